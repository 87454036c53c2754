package core

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLightDataEnabledFollowsMode(t *testing.T) {
	d := DefaultLightData()
	assert.False(t, d.Enabled())

	d.Mode = LightModeRealtime
	assert.True(t, d.Enabled())

	d.Mode = LightModeBaked
	assert.False(t, d.Enabled())
}

func TestFogColor(t *testing.T) {
	l := VisibleLight{FinalColor: mgl32.Vec3{4, 2, 0}, Intensity: 2}

	d := DefaultLightData()
	assert.Equal(t, mgl32.Vec3{4, 2, 0}, d.FogColor(l))

	d.SyncIntensity = false
	d.Intensity = 3
	assert.Equal(t, mgl32.Vec3{6, 3, 0}, d.FogColor(l))

	l.Intensity = 0
	assert.Equal(t, mgl32.Vec3{}, d.FogColor(l))
}

func TestLightTableDefaults(t *testing.T) {
	table := NewLightTable()
	assert.Equal(t, DefaultLightData(), table.Get(42))

	custom := DefaultLightData()
	custom.Mode = LightModeBaked
	table.Set(42, custom)
	assert.Equal(t, LightModeBaked, table.Get(42).Mode)
	assert.Equal(t, 1, table.Len())

	table.Delete(42)
	assert.Equal(t, LightModeDisabled, table.Get(42).Mode)

	var nilTable *LightTable
	assert.Equal(t, DefaultLightData(), nilTable.Get(1))
}

func TestLightTableConcurrentAccess(t *testing.T) {
	table := NewLightTable()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id LightID) {
			defer wg.Done()
			d := DefaultLightData()
			d.Mode = LightModeRealtime
			table.Set(id, d)
			_ = table.Get(id)
		}(LightID(i))
	}
	wg.Wait()
	assert.Equal(t, 8, table.Len())
}

func TestParseLightMode(t *testing.T) {
	m, err := ParseLightMode("realtime")
	require.NoError(t, err)
	assert.Equal(t, LightModeRealtime, m)
	assert.Equal(t, "realtime", m.String())

	_, err = ParseLightMode("sometimes")
	assert.Error(t, err)
}

func TestLightListMain(t *testing.T) {
	list := LightList{Lights: []VisibleLight{{ID: 1}, {ID: 2}}, MainLightIndex: 1}
	l, ok := list.Main()
	assert.True(t, ok)
	assert.Equal(t, LightID(2), l.ID)

	list.MainLightIndex = -1
	_, ok = list.Main()
	assert.False(t, ok)

	list.MainLightIndex = 5
	_, ok = list.Main()
	assert.False(t, ok)
}

func TestCascadeRadiiSquared(t *testing.T) {
	var s ShadowData
	s.CascadeSplitSpheres[0] = mgl32.Vec4{0, 0, 0, 2}
	s.CascadeSplitSpheres[3] = mgl32.Vec4{1, 1, 1, 5}
	assert.Equal(t, mgl32.Vec4{4, 0, 0, 25}, s.CascadeRadiiSquared())
}
