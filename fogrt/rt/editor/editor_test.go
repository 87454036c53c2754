package editor

import (
	"testing"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/gekko3d/volumetrics/fogrt/rt/volume"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBaker struct{ bakes int }

func (c *countingBaker) BakeVolume(*volume.BakedVolume) error {
	c.bakes++
	return nil
}

func volumeAt(name string, center mgl32.Vec3) *volume.BakedVolume {
	v := volume.NewBakedVolume(name)
	v.Bounds = core.NewBounds(center, mgl32.Vec3{2, 2, 2})
	return v
}

func TestPickNearest(t *testing.T) {
	near := volumeAt("near", mgl32.Vec3{0, 0, -5})
	far := volumeAt("far", mgl32.Vec3{0, 0, -15})
	aside := volumeAt("aside", mgl32.Vec3{10, 0, -5})

	e := NewEditor()
	ray := Ray{Origin: mgl32.Vec3{}, Direction: mgl32.Vec3{0, 0, -1}}
	hit := e.Pick([]*volume.BakedVolume{far, aside, near}, ray)
	require.NotNil(t, hit)
	assert.Same(t, near, hit.Volume)
	assert.InDelta(t, 4, hit.T, 1e-3)

	e.Select([]*volume.BakedVolume{aside}, ray)
	assert.Nil(t, e.Selected)
}

func TestPickRespectsRotation(t *testing.T) {
	v := volume.NewBakedVolume("slab")
	v.Bounds = core.NewBounds(mgl32.Vec3{}, mgl32.Vec3{10, 0.5, 0.5})
	v.Transform.Position = mgl32.Vec3{0, 0, -10}
	v.Transform.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})

	e := NewEditor()
	// The world AABB of the rotated slab spans y, not x.
	miss := e.Pick([]*volume.BakedVolume{v}, Ray{Origin: mgl32.Vec3{3, 0, 0}, Direction: mgl32.Vec3{0, 0, -1}})
	assert.Nil(t, miss)
	hit := e.Pick([]*volume.BakedVolume{v}, Ray{Origin: mgl32.Vec3{0, 3, 0}, Direction: mgl32.Vec3{0, 0, -1}})
	assert.NotNil(t, hit)
}

func TestGetPickRayCenter(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{1, 2, -7}, mgl32.Vec3{0, 1, 0})
	proj := core.GPUProjection(mgl32.Perspective(mgl32.DegToRad(60), 2, 0.1, 100))
	eye := core.NewEyeMatrices(view, proj)

	ray := NewEditor().GetPickRay(400, 200, 800, 400, eye)
	assert.InDelta(t, 1, ray.Origin.X(), 1e-4)
	assert.InDelta(t, -1, ray.Direction.Z(), 1e-3)
}

func TestDensityScalingDebounced(t *testing.T) {
	b := &countingBaker{}
	e := NewEditor()
	v := volumeAt("v", mgl32.Vec3{})

	ran, err := e.Update(b, 0)
	assert.False(t, ran)
	require.NoError(t, err)

	e.Selected = v
	e.LastDensityUpdateTime = 1.0
	e.ScaleDensity(2, 1.0)
	e.ScaleDensity(2, 1.05)
	ran, _ = e.Update(b, 1.06)
	assert.False(t, ran, "inputs still arriving")

	ran, err = e.Update(b, 1.3)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, float32(4), v.Density)
	assert.Equal(t, 1, b.bakes)
}
