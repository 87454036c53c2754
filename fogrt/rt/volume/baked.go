package volume

import (
	"errors"
	"fmt"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

var ErrNoBuffer = errors.New("volume: not baked")

// SampleShape selects the directions the probe field is evaluated in.
type SampleShape uint8

const (
	SampleOctagonal SampleShape = iota
	SampleOctagonalCorners
	SampleForward
)

func (s SampleShape) String() string {
	switch s {
	case SampleOctagonal:
		return "octagonal"
	case SampleOctagonalCorners:
		return "octagonal_corners"
	case SampleForward:
		return "forward"
	}
	return fmt.Sprintf("SampleShape(%d)", uint8(s))
}

func ParseSampleShape(s string) (SampleShape, error) {
	switch s {
	case "", "octagonal":
		return SampleOctagonal, nil
	case "octagonal_corners":
		return SampleOctagonalCorners, nil
	case "forward":
		return SampleForward, nil
	}
	return SampleOctagonal, fmt.Errorf("unknown sample shape %q", s)
}

// PassFlags selects what is rendered into a bake.
type PassFlags uint32

const (
	PassNone     PassFlags = 0
	PassIndirect PassFlags = 2
	PassAll      PassFlags = ^PassFlags(0)
)

func (f PassFlags) Has(flag PassFlags) bool {
	return f&flag != 0
}

const DefaultBufferDimension = 64

var (
	axisForward = mgl32.Vec3{0, 0, 1}
	axisUp      = mgl32.Vec3{0, 1, 0}
	axisRight   = mgl32.Vec3{1, 0, 0}
)

// BakedVolume is a box of precomputed indirect light sampled by the fog.
type BakedVolume struct {
	ID                    string
	Name                  string
	Bounds                core.Bounds
	Transform             core.Transform
	Width                 int
	Height                int
	Depth                 int
	SampleShape           SampleShape
	Density               float32
	Filter                mgl32.Vec3
	BakeAfterLightmapBake bool
	PassFlags             PassFlags

	// Buffer is nil until the volume is baked.
	Buffer *Texture3D
}

func NewBakedVolume(name string) *BakedVolume {
	return &BakedVolume{
		ID:                    uuid.NewString(),
		Name:                  name,
		Bounds:                core.NewBounds(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}),
		Transform:             *core.NewTransform(),
		Width:                 DefaultBufferDimension,
		Height:                DefaultBufferDimension,
		Depth:                 DefaultBufferDimension,
		SampleShape:           SampleOctagonal,
		Density:               1,
		Filter:                mgl32.Vec3{1, 1, 1},
		BakeAfterLightmapBake: true,
		PassFlags:             PassAll,
	}
}

// Dimensions returns the texture size with negatives raised to zero and
// every axis capped at MaxBufferDimension.
func (v *BakedVolume) Dimensions() (w, h, d int) {
	c := func(n int) int {
		return min(max(n, 0), MaxBufferDimension)
	}
	return c(v.Width), c(v.Height), c(v.Depth)
}

// PointInBounds maps grid indices to a world position. Index 0 lands on the
// bounds minimum and dim-1 on the maximum. Axes with a single sample map to
// the minimum.
func (v *BakedVolume) PointInBounds(x, y, z int) mgl32.Vec3 {
	w, h, d := v.Dimensions()
	delta := mgl32.Vec3{gridDelta(x, w), gridDelta(y, h), gridDelta(z, d)}

	size := v.Bounds.Size()
	interior := mgl32.Vec3{size[0] * delta[0], size[1] * delta[1], size[2] * delta[2]}.Sub(v.Bounds.Extents)
	return v.Transform.TransformPoint(v.Bounds.Center.Add(interior))
}

func gridDelta(i, dim int) float32 {
	if dim <= 1 {
		return 0
	}
	return float32(i) / float32(dim-1)
}

// SampleDirections returns the probe evaluation directions for the shape.
func (v *BakedVolume) SampleDirections() []mgl32.Vec3 {
	return sampleDirections(v.SampleShape)
}

func sampleDirections(s SampleShape) []mgl32.Vec3 {
	octagonal := []mgl32.Vec3{
		axisForward, axisForward.Mul(-1),
		axisUp, axisUp.Mul(-1),
		axisRight, axisRight.Mul(-1),
	}
	switch s {
	case SampleOctagonal:
		return octagonal
	case SampleOctagonalCorners:
		q := mgl32.QuatRotate(mgl32.DegToRad(-45), axisUp).
			Mul(mgl32.QuatRotate(mgl32.DegToRad(-45), axisRight))
		for i, d := range octagonal {
			octagonal[i] = q.Rotate(d)
		}
		return octagonal
	}
	return []mgl32.Vec3{axisForward}
}

// WorldToLocal is the matrix the baked sampler uses to find froxels inside
// the volume.
func (v *BakedVolume) WorldToLocal() mgl32.Mat4 {
	return v.Transform.WorldToObject()
}

// WorldAABB is the world space box enclosing the transformed bounds.
func (v *BakedVolume) WorldAABB() [2]mgl32.Vec3 {
	return v.Bounds.WorldAABB(v.Transform.ObjectToWorld())
}

// Baked reports whether the volume has a texture to sample.
func (v *BakedVolume) Baked() bool {
	return v != nil && v.Buffer != nil
}

func (v *BakedVolume) String() string {
	if v.Name != "" {
		return v.Name
	}
	return v.ID
}
