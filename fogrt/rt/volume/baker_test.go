package volume

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradientProbes(bounds core.Bounds) *ProbeGrid {
	g := NewProbeGrid(bounds, 3, 2, 4)
	for z := 0; z < g.NZ; z++ {
		for y := 0; y < g.NY; y++ {
			for x := 0; x < g.NX; x++ {
				sh := NewAmbientSH(mgl32.Vec3{float32(x) * 0.25, float32(y) * 0.5, float32(z) * 0.125})
				sh.AddDirectional(mgl32.Vec3{1, 1, 0}, mgl32.Vec3{0.2, 0.1, 0})
				g.Set(x, y, z, sh)
			}
		}
	}
	return g
}

func smallVolume() *BakedVolume {
	v := NewBakedVolume("small")
	v.Bounds = core.NewBounds(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{4, 2, 6})
	v.Width, v.Height, v.Depth = 8, 6, 5
	return v
}

func TestBakeIsDeterministic(t *testing.T) {
	v := smallVolume()
	probes := gradientProbes(v.Bounds)

	a, err := NewBaker(WithWorkers(3)).Bake(v, probes)
	require.NoError(t, err)
	b, err := NewBaker(WithWorkers(1)).Bake(v, probes)
	require.NoError(t, err)

	assert.Equal(t, a.Bytes(), b.Bytes())
	assert.Nil(t, v.Buffer, "Bake must not modify the volume")
}

func TestBakeAmbientAppliesDensityAndFilter(t *testing.T) {
	v := smallVolume()
	v.Density = 2
	v.Filter = mgl32.Vec3{1, 0.5, 0.25}
	probes := AmbientProbe{SH: NewAmbientSH(mgl32.Vec3{1, 0.5, 0.25})}

	baker := NewBaker(WithWorkers(2))
	require.NoError(t, baker.BakeInto(v, probes))
	require.True(t, v.Baked())

	for _, p := range [][3]int{{0, 0, 0}, {7, 5, 4}, {3, 2, 1}} {
		c := v.Buffer.At(p[0], p[1], p[2])
		assert.InDelta(t, 2, c[0], 1e-2)
		assert.InDelta(t, 0.5, c[1], 1e-2)
		assert.InDelta(t, 0.125, c[2], 1e-2)
		assert.InDelta(t, 2, c[3], 1e-2)
	}
}

func TestBakeWithoutIndirectOrProbesIsZero(t *testing.T) {
	baker := NewBaker(WithWorkers(2))
	probes := AmbientProbe{SH: NewAmbientSH(mgl32.Vec3{1, 1, 1})}

	v := smallVolume()
	v.PassFlags = PassNone
	tex, err := baker.Bake(v, probes)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, len(tex.Pix)*2), tex.Bytes())

	v.PassFlags = PassAll
	tex, err = baker.Bake(v, nil)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, len(tex.Pix)*2), tex.Bytes())
}

func TestBakeMissingProbeDataIsZero(t *testing.T) {
	v := smallVolume()
	empty := &ProbeGrid{}
	tex, err := NewBaker().Bake(v, empty)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{}, tex.At(1, 1, 1))
}

func TestBakeRejectsEmptyDimensions(t *testing.T) {
	v := smallVolume()
	v.Depth = 0
	_, err := NewBaker().Bake(v, AmbientProbe{})
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestProbeGridInterpolates(t *testing.T) {
	bounds := core.NewBounds(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 2, 2})
	g := NewProbeGrid(bounds, 2, 1, 1)
	g.Set(0, 0, 0, NewAmbientSH(mgl32.Vec3{0, 0, 0}))
	g.Set(1, 0, 0, NewAmbientSH(mgl32.Vec3{1, 1, 1}))

	up := mgl32.Vec3{0, 1, 0}
	sh, ok := g.Probe(mgl32.Vec3{0, 0, 0})
	require.True(t, ok)
	assert.InDelta(t, 0.5, sh.Evaluate(up)[0], 1e-4)

	sh, _ = g.Probe(mgl32.Vec3{-50, 0, 0})
	assert.InDelta(t, 0, sh.Evaluate(up)[0], 1e-4)

	sh, _ = g.Probe(mgl32.Vec3{50, 0, 0})
	assert.InDelta(t, 1, sh.Evaluate(up)[0], 1e-4)
}

func TestSHDirectionalIsBrighterTowardsLight(t *testing.T) {
	var sh SH9
	sh.AddDirectional(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 1, 1})
	assert.Greater(t, sh.Evaluate(mgl32.Vec3{0, 1, 0})[0], sh.Evaluate(mgl32.Vec3{1, 0, 0})[0])
	assert.Equal(t, mgl32.Vec3{}, sh.Evaluate(mgl32.Vec3{}))
}

func TestWritePreview(t *testing.T) {
	tex, err := NewTexture3D(4, 3, 5)
	require.NoError(t, err)
	tex.Set(0, 0, 4, mgl32.Vec4{1, 1, 1, 1})

	var buf bytes.Buffer
	require.NoError(t, WritePreviewPNG(&buf, tex, 2))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	// 5 slices -> 3 columns, 2 rows.
	assert.Equal(t, 3*4*2, img.Bounds().Dx())
	assert.Equal(t, 2*3*2, img.Bounds().Dy())

	r, _, _, _ := img.At(4*2, 3*2).RGBA()
	assert.Equal(t, uint32(128), r>>8)

	buf.Reset()
	assert.NoError(t, WritePreview(&buf, tex, 1, "bmp"))
	assert.Error(t, WritePreview(&buf, tex, 1, "gif"))
	assert.ErrorIs(t, WritePreview(&buf, nil, 1, "png"), ErrNoBuffer)
}
