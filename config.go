package volumetrics

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/gekko3d/volumetrics/fogrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// Config is the YAML scene description read by the viewer and the bake tool.
type Config struct {
	Settings Settings                `yaml:"settings"`
	Profile  *ProfileConfig          `yaml:"profile"`
	Cameras  map[string]CameraConfig `yaml:"cameras"`
	Lights   map[uint64]LightConfig  `yaml:"lights"`
	Volumes  []VolumeConfig          `yaml:"volumes"`
	Probes   ProbeConfig             `yaml:"probes"`
	Scene    SceneConfig             `yaml:"scene"`
}

// Settings are the resource overrides. Empty shader paths use the embedded
// kernels; an empty noise path uses generated noise.
type Settings struct {
	Shaders       ShaderPaths `yaml:"shaders"`
	NoiseTexture  string      `yaml:"noise_texture"`
	NoiseSize     int         `yaml:"noise_size"`
	NoiseStrength *float32    `yaml:"noise_strength"`
	Workers       int         `yaml:"workers"`
	OutputDir     string      `yaml:"output_dir"`
}

type ShaderPaths struct {
	Compositor string `yaml:"compositor"`
	Realtime   string `yaml:"realtime"`
	Baked      string `yaml:"baked"`
	Blend      string `yaml:"blend"`
}

const (
	DefaultNoiseSize     = 128
	DefaultNoiseStrength = float32(1)
	DefaultOutputDir     = "bakes"
)

func (s Settings) withDefaults() Settings {
	if s.NoiseSize <= 0 {
		s.NoiseSize = DefaultNoiseSize
	}
	if s.NoiseStrength == nil {
		v := DefaultNoiseStrength
		s.NoiseStrength = &v
	}
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	return s
}

// Strength is the jitter noise strength.
func (s Settings) Strength() float32 {
	if s.NoiseStrength == nil {
		return DefaultNoiseStrength
	}
	return *s.NoiseStrength
}

type ProfileConfig struct {
	Density    *float32 `yaml:"density"`
	Scattering *float32 `yaml:"scattering"`
}

func (p *ProfileConfig) ToProfile() *core.Profile {
	if p == nil {
		return nil
	}
	out := core.DefaultProfile()
	if p.Density != nil {
		out.Density = *p.Density
	}
	if p.Scattering != nil {
		out.Scattering = *p.Scattering
	}
	out = out.Clamped()
	return &out
}

type CameraConfig struct {
	Enabled      *bool    `yaml:"enabled"`
	Percent      *float32 `yaml:"percent"`
	Downsampling int      `yaml:"downsampling"`
	Quality      string   `yaml:"quality"`
	Steps        int      `yaml:"steps"`
	Far          *float32 `yaml:"far"`
	Density      *float32 `yaml:"density"`
	Scattering   *float32 `yaml:"scattering"`
	Flags        []string `yaml:"flags"`
}

func (c CameraConfig) ToCameraData() (core.CameraData, error) {
	d := core.DefaultCameraData()
	if c.Enabled != nil {
		d.Enabled = *c.Enabled
	}
	if c.Percent != nil {
		d.Percent = *c.Percent
	}
	d.Downsampling = c.Downsampling
	q, err := core.ParseQualityTier(c.Quality)
	if err != nil {
		return d, err
	}
	d.Quality = q
	if c.Steps > 0 {
		d.Steps = c.Steps
	}
	if c.Far != nil {
		d.Far = *c.Far
	}
	if c.Density != nil {
		d.Density = max(*c.Density, 0)
	}
	if c.Scattering != nil {
		d.Scattering = min(max(*c.Scattering, 0), 1)
	}
	if c.Flags != nil {
		if d.Flags, err = ParseRenderFlags(c.Flags); err != nil {
			return d, err
		}
	}
	return d, nil
}

// ParseRenderFlags combines flag names: realtime, baked, all, none.
func ParseRenderFlags(names []string) (core.RenderFlags, error) {
	var f core.RenderFlags
	for _, n := range names {
		switch strings.ToLower(n) {
		case "realtime":
			f |= core.RenderRealtime
		case "baked":
			f |= core.RenderBaked
		case "all":
			f = core.RenderAll
		case "none":
		default:
			return core.RenderNone, fmt.Errorf("unknown render flag %q", n)
		}
	}
	return f, nil
}

type LightConfig struct {
	Mode            string   `yaml:"mode"`
	SyncIntensity   *bool    `yaml:"sync_intensity"`
	Intensity       *float32 `yaml:"intensity"`
	Power           *float32 `yaml:"power"`
	LayerMask       *uint32  `yaml:"layer_mask"`
	ShadowLayerMask *uint32  `yaml:"shadow_layer_mask"`
}

func (c LightConfig) ToLightData() (core.LightData, error) {
	d := core.DefaultLightData()
	mode, err := core.ParseLightMode(c.Mode)
	if err != nil {
		return d, err
	}
	d.Mode = mode
	if c.SyncIntensity != nil {
		d.SyncIntensity = *c.SyncIntensity
	}
	if c.Intensity != nil {
		d.Intensity = max(*c.Intensity, 0)
	}
	if c.Power != nil {
		d.Power = max(*c.Power, 0)
	}
	if c.LayerMask != nil {
		d.LayerMask = *c.LayerMask
	}
	if c.ShadowLayerMask != nil {
		d.ShadowLayerMask = *c.ShadowLayerMask
	}
	return d, nil
}

type VolumeConfig struct {
	ID                    string      `yaml:"id"`
	Name                  string      `yaml:"name"`
	Center                [3]float32  `yaml:"center"`
	Size                  *[3]float32 `yaml:"size"`
	Position              [3]float32  `yaml:"position"`
	Rotation              [3]float32  `yaml:"rotation"` // euler degrees, XYZ
	Scale                 *[3]float32 `yaml:"scale"`
	Resolution            *[3]int     `yaml:"resolution"`
	SampleShape           string      `yaml:"sample_shape"`
	Density               *float32    `yaml:"density"`
	Filter                *[3]float32 `yaml:"filter"`
	BakeAfterLightmapBake *bool       `yaml:"bake_after_lightmap_bake"`
	Passes                string      `yaml:"passes"`
}

func (c VolumeConfig) ToVolume() (*volume.BakedVolume, error) {
	v := volume.NewBakedVolume(c.Name)
	if c.ID != "" {
		v.ID = c.ID
	}
	if c.Size != nil {
		v.Bounds = core.NewBounds(mgl32.Vec3(c.Center), mgl32.Vec3(*c.Size))
	} else {
		v.Bounds.Center = mgl32.Vec3(c.Center)
	}
	v.Transform.Position = mgl32.Vec3(c.Position)
	v.Transform.Rotation = mgl32.AnglesToQuat(
		mgl32.DegToRad(c.Rotation[0]),
		mgl32.DegToRad(c.Rotation[1]),
		mgl32.DegToRad(c.Rotation[2]),
		mgl32.XYZ,
	)
	if c.Scale != nil {
		v.Transform.Scale = mgl32.Vec3(*c.Scale)
	}
	if c.Resolution != nil {
		v.Width = min(max(c.Resolution[0], 0), volume.MaxBufferDimension)
		v.Height = min(max(c.Resolution[1], 0), volume.MaxBufferDimension)
		v.Depth = min(max(c.Resolution[2], 0), volume.MaxBufferDimension)
	}
	shape, err := volume.ParseSampleShape(c.SampleShape)
	if err != nil {
		return nil, fmt.Errorf("volume %s: %w", c.Name, err)
	}
	v.SampleShape = shape
	if c.Density != nil {
		v.Density = max(*c.Density, 0)
	}
	if c.Filter != nil {
		v.Filter = mgl32.Vec3(*c.Filter)
	}
	if c.BakeAfterLightmapBake != nil {
		v.BakeAfterLightmapBake = *c.BakeAfterLightmapBake
	}
	switch strings.ToLower(c.Passes) {
	case "", "all":
		v.PassFlags = volume.PassAll
	case "none":
		v.PassFlags = volume.PassNone
	case "indirect":
		v.PassFlags = volume.PassIndirect
	default:
		return nil, fmt.Errorf("volume %s: unknown passes %q", c.Name, c.Passes)
	}
	return v, nil
}

type DirectionalProbe struct {
	Direction [3]float32 `yaml:"direction"`
	Color     [3]float32 `yaml:"color"`
}

// ProbeGridConfig builds a probe grid whose ambient term blends from Bottom
// to Top along world Y.
type ProbeGridConfig struct {
	Center     [3]float32 `yaml:"center"`
	Size       [3]float32 `yaml:"size"`
	Resolution [3]int     `yaml:"resolution"`
	Bottom     [3]float32 `yaml:"bottom"`
	Top        [3]float32 `yaml:"top"`
}

type ProbeConfig struct {
	Ambient     *[3]float32        `yaml:"ambient"`
	Directional []DirectionalProbe `yaml:"directional"`
	Grid        *ProbeGridConfig   `yaml:"grid"`
}

// ProbeField builds the field the baker queries. Directional terms are
// added to every probe.
func (c ProbeConfig) ProbeField() volume.ProbeField {
	var base volume.SH9
	if c.Ambient != nil {
		base = volume.NewAmbientSH(mgl32.Vec3(*c.Ambient))
	}
	for _, d := range c.Directional {
		base.AddDirectional(mgl32.Vec3(d.Direction), mgl32.Vec3(d.Color))
	}
	if c.Grid == nil {
		return volume.AmbientProbe{SH: base}
	}
	g := c.Grid
	nx, ny, nz := max(g.Resolution[0], 1), max(g.Resolution[1], 1), max(g.Resolution[2], 1)
	grid := volume.NewProbeGrid(core.NewBounds(mgl32.Vec3(g.Center), mgl32.Vec3(g.Size)), nx, ny, nz)
	bottom, top := mgl32.Vec3(g.Bottom), mgl32.Vec3(g.Top)
	for y := 0; y < ny; y++ {
		t := float32(0)
		if ny > 1 {
			t = float32(y) / float32(ny-1)
		}
		sh := base.Add(volume.NewAmbientSH(bottom.Mul(1 - t).Add(top.Mul(t))))
		for z := 0; z < nz; z++ {
			for x := 0; x < nx; x++ {
				grid.Set(x, y, z, sh)
			}
		}
	}
	return grid
}

// SceneLightConfig is a host light as the viewer places it. Fog settings for
// the same ID live under lights.
type SceneLightConfig struct {
	ID             uint64     `yaml:"id"`
	Kind           string     `yaml:"kind"`
	Position       [3]float32 `yaml:"position"`
	Direction      [3]float32 `yaml:"direction"`
	Color          [3]float32 `yaml:"color"`
	Intensity      *float32   `yaml:"intensity"`
	Range          float32    `yaml:"range"`
	SpotAngle      float32    `yaml:"spot_angle"`
	InnerSpotAngle float32    `yaml:"inner_spot_angle"`
	Shadows        bool       `yaml:"shadows"`
	Main           bool       `yaml:"main"`
}

type SceneConfig struct {
	Lights []SceneLightConfig `yaml:"lights"`
}

func (c SceneLightConfig) ToVisibleLight() (core.VisibleLight, error) {
	l := core.VisibleLight{
		ID:             core.LightID(c.ID),
		Position:       mgl32.Vec3(c.Position),
		Range:          c.Range,
		SpotAngle:      c.SpotAngle,
		InnerSpotAngle: c.InnerSpotAngle,
		Shadows:        c.Shadows,
		Intensity:      1,
	}
	switch strings.ToLower(c.Kind) {
	case "", "point":
		l.Kind = core.LightPoint
	case "directional":
		l.Kind = core.LightDirectional
	case "spot":
		l.Kind = core.LightSpot
	default:
		return l, fmt.Errorf("light %d: unknown kind %q", c.ID, c.Kind)
	}
	if dir := mgl32.Vec3(c.Direction); dir.Len() > 0 {
		l.Forward = dir.Normalize()
	} else {
		l.Forward = mgl32.Vec3{0, 0, -1}
	}
	if c.Intensity != nil {
		l.Intensity = max(*c.Intensity, 0)
	}
	l.FinalColor = mgl32.Vec3(c.Color).Mul(l.Intensity)
	if l.Range <= 0 && l.Kind != core.LightDirectional {
		l.Range = 10
	}
	if l.SpotAngle <= 0 {
		l.SpotAngle = 30
	}
	return l, nil
}

// VisibleLights builds the light list the viewer hands to the pass. The
// first light marked main becomes the main light.
func (s SceneConfig) VisibleLights() (core.LightList, error) {
	list := core.LightList{MainLightIndex: -1}
	var errs []error
	for _, lc := range s.Lights {
		l, err := lc.ToVisibleLight()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if lc.Main && list.MainLightIndex < 0 {
			list.MainLightIndex = len(list.Lights)
		}
		list.Lights = append(list.Lights, l)
	}
	return list, errors.Join(errs...)
}

// LoadConfig reads and decodes a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML and substitutes defaults for unset values.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Settings = cfg.Settings.withDefaults()
	var errs []error
	for name, c := range cfg.Cameras {
		if _, err := c.ToCameraData(); err != nil {
			errs = append(errs, fmt.Errorf("camera %s: %w", name, err))
		}
	}
	for id, l := range cfg.Lights {
		if _, err := l.ToLightData(); err != nil {
			errs = append(errs, fmt.Errorf("light %d: %w", id, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Camera returns the camera data for name, or the defaults.
func (c *Config) Camera(name string) core.CameraData {
	cc, ok := c.Cameras[name]
	if !ok {
		return core.DefaultCameraData()
	}
	d, _ := cc.ToCameraData()
	return d
}

// LightTable builds the per light side table.
func (c *Config) LightTable() *core.LightTable {
	t := core.NewLightTable()
	for id, l := range c.Lights {
		d, err := l.ToLightData()
		if err != nil {
			continue
		}
		t.Set(core.LightID(id), d)
	}
	return t
}

// BuildVolumes converts every volume entry, collecting failures.
func (c *Config) BuildVolumes() ([]*volume.BakedVolume, error) {
	var out []*volume.BakedVolume
	var errs []error
	for _, vc := range c.Volumes {
		v, err := vc.ToVolume()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, v)
	}
	return out, errors.Join(errs...)
}
