package gpu

import (
	"math"
	"testing"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// realtimeLights builds n point lights with ids 0..n-1, all realtime.
func realtimeLights(n int) (core.LightList, *core.LightTable) {
	table := core.NewLightTable()
	list := core.LightList{MainLightIndex: -1}
	for i := 0; i < n; i++ {
		id := core.LightID(i)
		list.Lights = append(list.Lights, core.VisibleLight{
			ID:         id,
			Kind:       core.LightPoint,
			Position:   mgl32.Vec3{float32(i), 0, 0},
			FinalColor: mgl32.Vec3{1, 1, 1},
			Intensity:  1,
			Range:      10,
		})
		d := core.DefaultLightData()
		d.Mode = core.LightModeRealtime
		table.Set(id, d)
	}
	return list, table
}

func TestPackCounts(t *testing.T) {
	for _, n := range []int{0, 1, 2, 17, 255, 256} {
		list, table := realtimeLights(n)
		p := NewLightPacker()
		got := p.Pack(list, table, nil)
		if got != n {
			t.Errorf("Pack(%d lights) = %d, want %d", n, got, n)
		}
		assert.Equal(t, got, p.Count())
	}
}

func TestPackCapsAtFirst256InListOrder(t *testing.T) {
	list, table := realtimeLights(300)
	p := NewLightPacker()
	require.Equal(t, MaxVisibleLights, p.Pack(list, table, nil))
	for i := 0; i < MaxVisibleLights; i++ {
		l, ok := p.Additional(i)
		require.True(t, ok)
		assert.Equal(t, float32(i), l.Position.X())
	}
	_, ok := p.Additional(MaxVisibleLights)
	assert.False(t, ok)
}

func TestPackExcludesMainByIndex(t *testing.T) {
	list, table := realtimeLights(300)
	list.MainLightIndex = 5
	p := NewLightPacker()
	require.Equal(t, MaxVisibleLights-1, p.Pack(list, table, nil))

	// List positions 0..255 minus the main light, in order.
	want := 0
	for i := 0; i < p.Count(); i++ {
		if want == 5 {
			want++
		}
		l, _ := p.Additional(i)
		assert.Equal(t, float32(want), l.Position.X(), "entry %d", i)
		want++
	}
}

func TestPackSkipsNonRealtime(t *testing.T) {
	list, table := realtimeLights(6)
	baked := core.DefaultLightData()
	baked.Mode = core.LightModeBaked
	table.Set(1, baked)
	table.Delete(3) // falls back to Disabled

	p := NewLightPacker()
	require.Equal(t, 4, p.Pack(list, table, nil))
	var xs []float32
	for i := 0; i < p.Count(); i++ {
		l, _ := p.Additional(i)
		xs = append(xs, l.Position.X())
	}
	assert.Equal(t, []float32{0, 2, 4, 5}, xs)
}

func TestPackMainLight(t *testing.T) {
	list, table := realtimeLights(2)
	list.Lights[0].Kind = core.LightDirectional
	list.Lights[0].Forward = mgl32.Vec3{0, -1, 0}
	list.Lights[0].FinalColor = mgl32.Vec3{2, 4, 6}
	list.Lights[0].Intensity = 2
	list.Lights[0].Shadows = true
	list.MainLightIndex = 0

	d := table.Get(0)
	d.Power = 3
	table.Set(0, d)

	p := NewLightPacker()
	assert.Equal(t, 1, p.Pack(list, table, nil))
	main := p.Main()
	assert.Equal(t, mgl32.Vec4{0, -1, 0, 0}, main.Position)
	assert.Equal(t, mgl32.Vec4{2, 4, 6, 1}, main.Color)
	assert.Equal(t, mgl32.Vec4{3, 0, 0, 0}, main.FogParams)
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, main.ShadowParams)

	d.SyncIntensity = false
	d.Intensity = 0.5
	table.Set(0, d)
	p.Pack(list, table, nil)
	assert.Equal(t, mgl32.Vec4{0.5, 1, 1.5, 1}, p.Main().Color)
}

func TestPackMainLightBlack(t *testing.T) {
	list, table := realtimeLights(3)

	p := NewLightPacker()
	list.MainLightIndex = -1
	p.Pack(list, table, nil)
	assert.Equal(t, MainLight{}, p.Main())

	list.MainLightIndex = 10
	p.Pack(list, table, nil)
	assert.Equal(t, MainLight{}, p.Main())

	list.MainLightIndex = 1
	baked := core.DefaultLightData()
	baked.Mode = core.LightModeBaked
	table.Set(1, baked)
	p.Pack(list, table, nil)
	assert.Equal(t, mgl32.Vec4{}, p.Main().Color)
}

func TestLightConstants(t *testing.T) {
	dir := core.VisibleLight{Kind: core.LightDirectional, Forward: mgl32.Vec3{0, 0, 1}}
	pos, atten, spot := lightConstants(dir)
	assert.Equal(t, mgl32.Vec4{0, 0, -1, 0}, pos)
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, atten)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 0}, spot)

	point := core.VisibleLight{Kind: core.LightPoint, Position: mgl32.Vec3{1, 2, 3}, Range: 2}
	pos, atten, _ = lightConstants(point)
	assert.Equal(t, mgl32.Vec4{1, 2, 3, 1}, pos)
	assert.InDelta(t, 0.25, atten[0], 1e-6)
	assert.InDelta(t, 1/0.36, atten[1], 1e-4)
	assert.Equal(t, float32(0), atten[2])
	assert.Equal(t, float32(1), atten[3])

	spotLight := core.VisibleLight{
		Kind:           core.LightSpot,
		Forward:        mgl32.Vec3{0, -1, 0},
		Range:          5,
		SpotAngle:      60,
		InnerSpotAngle: 30,
	}
	_, atten, spot = lightConstants(spotLight)
	cosOuter := math.Cos(math.Pi / 6)
	cosInner := math.Cos(math.Pi / 12)
	inv := 1 / (cosInner - cosOuter)
	assert.InDelta(t, inv, atten[2], 1e-2)
	assert.InDelta(t, -cosOuter*inv, atten[3], 1e-2)
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 0}, spot)

	zero := core.VisibleLight{Kind: core.LightPoint}
	_, atten, _ = lightConstants(zero)
	assert.False(t, math.IsInf(float64(atten[0]), 0))
	assert.False(t, math.IsNaN(float64(atten[1])))
}

func TestPackShadows(t *testing.T) {
	list, table := realtimeLights(3)
	shadows := &core.ShadowData{
		AdditionalShadowParams:  []mgl32.Vec4{{1, 0, 0, 0}, {2, 0, 0, 0}},
		AdditionalWorldToShadow: []mgl32.Mat4{mgl32.Scale3D(2, 2, 2)},
	}
	shadows.CascadeSplitSpheres[1] = mgl32.Vec4{0, 0, 0, 3}

	p := NewLightPacker()
	p.Pack(list, table, shadows)

	l0, _ := p.Additional(0)
	l2, _ := p.Additional(2)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 0}, l0.ShadowParams)
	assert.Equal(t, mgl32.Scale3D(2, 2, 2), l0.WorldToShadow)
	assert.Equal(t, mgl32.Vec4{}, l2.ShadowParams)
	assert.Equal(t, mgl32.Ident4(), l2.WorldToShadow)

	frame := NewUniformBlock(DefaultParams(), BlockFrame)
	p.WriteFrame(frame)
	assert.Equal(t, mgl32.Vec4{0, 9, 0, 0}, frame.Vec4(ParamCascadeShadowSplitSphereRadii))
	assert.Equal(t, mgl32.Vec4{3, 0, 0, 0}, frame.Vec4(ParamAdditionalLightsCount))
}

func TestMarshalZeroesUnusedEntries(t *testing.T) {
	block := NewUniformBlock(DefaultParams(), BlockLights)
	p := NewLightPacker()

	list, table := realtimeLights(4)
	p.Pack(list, table, nil)
	p.Marshal(block)
	assert.Equal(t, mgl32.Vec4{3, 0, 0, 1}, block.Vec4At(ParamAdditionalLightsPosition, 3))

	list, table = realtimeLights(2)
	p.Pack(list, table, nil)
	p.Marshal(block)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, block.Vec4At(ParamAdditionalLightsPosition, 1))
	assert.Equal(t, mgl32.Vec4{}, block.Vec4At(ParamAdditionalLightsPosition, 3))
}

func TestPackDoesNotAllocate(t *testing.T) {
	list, table := realtimeLights(64)
	p := NewLightPacker()
	allocs := testing.AllocsPerRun(20, func() {
		p.Pack(list, table, nil)
	})
	assert.Zero(t, allocs)
}
