package volumetrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/gekko3d/volumetrics/fogrt/rt/volume"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneYAML = `
settings:
  noise_size: 64
  workers: 2
profile:
  density: 0.4
cameras:
  main:
    percent: 0.5
    quality: high
    far: 80
    flags: [realtime]
  off:
    enabled: false
lights:
  1:
    mode: realtime
    power: 2
  2:
    mode: baked
volumes:
  - name: hall
    center: [0, 1, 0]
    size: [4, 2, 4]
    resolution: [8, 4, 8]
    sample_shape: octagonal_corners
    density: 0.5
    passes: indirect
probes:
  ambient: [0.2, 0.2, 0.3]
  directional:
    - direction: [0, 1, 0]
      color: [1, 0.9, 0.8]
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sceneYAML))
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Settings.NoiseSize)
	assert.Equal(t, DefaultOutputDir, cfg.Settings.OutputDir)
	assert.Equal(t, DefaultNoiseStrength, cfg.Settings.Strength())

	prof := cfg.Profile.ToProfile()
	require.NotNil(t, prof)
	assert.Equal(t, float32(0.4), prof.Density)
	assert.Equal(t, core.DefaultProfile().Scattering, prof.Scattering)

	main := cfg.Camera("main")
	assert.True(t, main.Enabled)
	assert.Equal(t, float32(0.5), main.Percent)
	assert.Equal(t, core.QualityHigh, main.Quality)
	assert.Equal(t, float32(80), main.Far)
	assert.Equal(t, core.RenderRealtime, main.Flags)
	assert.False(t, cfg.Camera("off").Enabled)
	assert.Equal(t, core.DefaultCameraData(), cfg.Camera("missing"))

	table := cfg.LightTable()
	assert.Equal(t, core.LightModeRealtime, table.Get(1).Mode)
	assert.Equal(t, float32(2), table.Get(1).Power)
	assert.Equal(t, core.LightModeBaked, table.Get(2).Mode)
	assert.False(t, table.Get(2).Enabled())

	vols, err := cfg.BuildVolumes()
	require.NoError(t, err)
	require.Len(t, vols, 1)
	v := vols[0]
	assert.Equal(t, "hall", v.Name)
	assert.Equal(t, mgl32.Vec3{2, 1, 2}, v.Bounds.Extents)
	assert.Equal(t, volume.SampleOctagonalCorners, v.SampleShape)
	assert.Equal(t, volume.PassIndirect, v.PassFlags)
	assert.Equal(t, 8, v.Width)
	assert.Equal(t, 4, v.Height)
	assert.True(t, v.BakeAfterLightmapBake)
}

func TestParseConfigRejectsUnknownValues(t *testing.T) {
	_, err := ParseConfig([]byte("cameras:\n  a:\n    quality: extreme\n"))
	assert.ErrorContains(t, err, "camera a")

	_, err = ParseConfig([]byte("lights:\n  3:\n    mode: mixed\n"))
	assert.ErrorContains(t, err, "light 3")

	_, err = ParseConfig([]byte("settings: ["))
	assert.Error(t, err)
}

func TestParseRenderFlags(t *testing.T) {
	f, err := ParseRenderFlags([]string{"realtime", "Baked"})
	require.NoError(t, err)
	assert.True(t, f.Has(core.RenderRealtime))
	assert.True(t, f.Has(core.RenderBaked))

	f, err = ParseRenderFlags([]string{"none"})
	require.NoError(t, err)
	assert.Equal(t, core.RenderNone, f)

	_, err = ParseRenderFlags([]string{"sky"})
	assert.Error(t, err)
}

func TestVolumeConfigClampsAndRejects(t *testing.T) {
	res := [3]int{-4, 1000, 16}
	v, err := VolumeConfig{Name: "big", Resolution: &res}.ToVolume()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Width)
	assert.Equal(t, volume.MaxBufferDimension, v.Height)
	assert.Equal(t, 16, v.Depth)

	_, err = VolumeConfig{Name: "bad", Passes: "direct"}.ToVolume()
	assert.Error(t, err)
	_, err = VolumeConfig{Name: "bad", SampleShape: "sphere"}.ToVolume()
	assert.Error(t, err)

	cfg := &Config{Volumes: []VolumeConfig{{Name: "ok"}, {Name: "bad", Passes: "x"}}}
	vols, err := cfg.BuildVolumes()
	assert.Error(t, err)
	assert.Len(t, vols, 1)
}

func TestProbeFieldGridGradient(t *testing.T) {
	pc := ProbeConfig{Grid: &ProbeGridConfig{
		Size:       [3]float32{2, 2, 2},
		Resolution: [3]int{2, 2, 2},
		Bottom:     [3]float32{0, 0, 0},
		Top:        [3]float32{1, 1, 1},
	}}
	field := pc.ProbeField()

	low, ok := field.Probe(mgl32.Vec3{0, -1, 0})
	require.True(t, ok)
	high, ok := field.Probe(mgl32.Vec3{0, 1, 0})
	require.True(t, ok)
	up := mgl32.Vec3{0, 1, 0}
	assert.InDelta(t, 0, low.Evaluate(up).X(), 1e-4)
	assert.InDelta(t, 1, high.Evaluate(up).X(), 1e-4)

	ambient := ProbeConfig{Ambient: &[3]float32{0.5, 0.5, 0.5}}.ProbeField()
	sh, ok := ambient.Probe(mgl32.Vec3{100, 0, 0})
	require.True(t, ok)
	assert.InDelta(t, 0.5, sh.Evaluate(mgl32.Vec3{1, 0, 0}).X(), 1e-4)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sceneYAML), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Volumes, 1)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSceneVisibleLights(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
scene:
  lights:
    - id: 1
      kind: point
      position: [0, 0, 3]
      color: [1, 0.5, 0]
      intensity: 2
    - id: 2
      kind: directional
      direction: [0, 0, -2]
      main: true
    - id: 3
      kind: area
`))
	require.NoError(t, err)

	list, err := cfg.Scene.VisibleLights()
	assert.Error(t, err)
	require.Len(t, list.Lights, 2)
	assert.Equal(t, 1, list.MainLightIndex)

	p := list.Lights[0]
	assert.Equal(t, core.LightPoint, p.Kind)
	assert.Equal(t, mgl32.Vec3{2, 1, 0}, p.FinalColor)
	assert.Equal(t, float32(10), p.Range)

	main, ok := list.Main()
	require.True(t, ok)
	assert.Equal(t, core.LightDirectional, main.Kind)
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, main.Forward)
}
