package volume

import (
	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Real spherical harmonics basis constants, bands 0 to 2.
const (
	shY00  = 0.282095
	shY1   = 0.488603
	shY2x  = 1.092548
	shY20  = 0.315392
	shY22  = 0.546274
	shBand = 9
)

// SH9 is an L2 spherical harmonics probe with one RGB coefficient per basis
// function.
type SH9 [shBand]mgl32.Vec3

func shBasis(d mgl32.Vec3) [shBand]float32 {
	x, y, z := d[0], d[1], d[2]
	return [shBand]float32{
		shY00,
		shY1 * y,
		shY1 * z,
		shY1 * x,
		shY2x * x * y,
		shY2x * y * z,
		shY20 * (3*z*z - 1),
		shY2x * x * z,
		shY22 * (x*x - y*y),
	}
}

// NewAmbientSH returns a probe that evaluates to c in every direction.
func NewAmbientSH(c mgl32.Vec3) SH9 {
	var sh SH9
	sh[0] = c.Mul(1 / shY00)
	return sh
}

// AddDirectional projects a light of color c arriving from direction dir.
func (sh *SH9) AddDirectional(dir mgl32.Vec3, c mgl32.Vec3) {
	if dir.Len() == 0 {
		return
	}
	b := shBasis(dir.Normalize())
	for i := range sh {
		sh[i] = sh[i].Add(c.Mul(b[i]))
	}
}

// Evaluate returns the radiance in direction dir, clamped at zero.
func (sh SH9) Evaluate(dir mgl32.Vec3) mgl32.Vec3 {
	if dir.Len() == 0 {
		return mgl32.Vec3{}
	}
	b := shBasis(dir.Normalize())
	var out mgl32.Vec3
	for i := range sh {
		out = out.Add(sh[i].Mul(b[i]))
	}
	for i := range out {
		out[i] = max(out[i], 0)
	}
	return out
}

func (sh SH9) Scale(s float32) SH9 {
	for i := range sh {
		sh[i] = sh[i].Mul(s)
	}
	return sh
}

func (sh SH9) Add(o SH9) SH9 {
	for i := range sh {
		sh[i] = sh[i].Add(o[i])
	}
	return sh
}

// ProbeField is the light probe data a bake reads. The bool is false where
// no probe data exists.
type ProbeField interface {
	Probe(pos mgl32.Vec3) (SH9, bool)
}

// AmbientProbe is the same probe everywhere.
type AmbientProbe struct {
	SH SH9
}

func (a AmbientProbe) Probe(mgl32.Vec3) (SH9, bool) {
	return a.SH, true
}

// ProbeGrid is a regular lattice of probes spanning Bounds, interpolated
// trilinearly. Positions outside the bounds clamp to the nearest face.
type ProbeGrid struct {
	Bounds     core.Bounds
	NX, NY, NZ int
	Probes     []SH9
}

func NewProbeGrid(bounds core.Bounds, nx, ny, nz int) *ProbeGrid {
	nx, ny, nz = max(nx, 1), max(ny, 1), max(nz, 1)
	return &ProbeGrid{
		Bounds: bounds,
		NX:     nx,
		NY:     ny,
		NZ:     nz,
		Probes: make([]SH9, nx*ny*nz),
	}
}

func (g *ProbeGrid) index(x, y, z int) int {
	return (z*g.NY+y)*g.NX + x
}

func (g *ProbeGrid) Set(x, y, z int, sh SH9) {
	if x < 0 || y < 0 || z < 0 || x >= g.NX || y >= g.NY || z >= g.NZ {
		return
	}
	g.Probes[g.index(x, y, z)] = sh
}

func (g *ProbeGrid) At(x, y, z int) SH9 {
	x = min(max(x, 0), g.NX-1)
	y = min(max(y, 0), g.NY-1)
	z = min(max(z, 0), g.NZ-1)
	return g.Probes[g.index(x, y, z)]
}

func (g *ProbeGrid) Probe(pos mgl32.Vec3) (SH9, bool) {
	if g == nil || len(g.Probes) != g.NX*g.NY*g.NZ || len(g.Probes) == 0 {
		return SH9{}, false
	}
	lo := g.Bounds.Min()
	size := g.Bounds.Size()
	dims := [3]int{g.NX, g.NY, g.NZ}

	var base [3]int
	var frac [3]float32
	for a := 0; a < 3; a++ {
		if dims[a] <= 1 || size[a] <= 0 {
			continue
		}
		u := (pos[a] - lo[a]) / size[a] * float32(dims[a]-1)
		u = min(max(u, 0), float32(dims[a]-1))
		i := min(int(u), dims[a]-2)
		base[a] = i
		frac[a] = u - float32(i)
	}

	var out SH9
	for corner := 0; corner < 8; corner++ {
		w := float32(1)
		var idx [3]int
		for a := 0; a < 3; a++ {
			bit := (corner >> a) & 1
			idx[a] = base[a] + bit
			if bit == 1 {
				w *= frac[a]
			} else {
				w *= 1 - frac[a]
			}
		}
		if w == 0 {
			continue
		}
		out = out.Add(g.At(idx[0], idx[1], idx[2]).Scale(w))
	}
	return out, true
}
