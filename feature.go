// Package volumetrics renders froxel based volumetric fog: realtime lights
// and baked volumes are accumulated into a camera aligned grid, integrated
// front to back and blended over the scene.
package volumetrics

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/gekko3d/volumetrics/fogrt/rt/gpu"
	"github.com/gekko3d/volumetrics/fogrt/rt/volume"
)

var ErrMissingResource = errors.New("volumetrics: missing resource")

// Camera is a host camera for one frame: its matrices and fog settings.
type Camera struct {
	Frame core.CameraFrame
	Data  core.CameraData
}

// RenderContext is the per frame host state handed to Execute.
type RenderContext struct {
	Lights  core.LightList
	Shadows *core.ShadowData
	Targets gpu.FrameTargets
}

// volumeForgetter is implemented by backends that cache volume textures.
type volumeForgetter interface {
	ForgetVolume(id string)
}

// Feature owns the baked volume registry, the light side table and the
// per camera passes.
type Feature struct {
	backend  gpu.Backend
	registry *volume.Registry
	lights   *core.LightTable
	baker    *volume.Baker
	log      Logger
	profiler *Profiler
	params   *gpu.ParamTable
	packer   *gpu.LightPacker

	noiseStrength float32

	mu      sync.Mutex
	probes  volume.ProbeField
	profile *core.Profile
	passes  map[string]*cameraPass
	frame   uint32
}

type Option func(*Feature)

func WithLogger(l Logger) Option {
	return func(f *Feature) {
		if l != nil {
			f.log = l
		}
	}
}

func WithProfiler(p *Profiler) Option {
	return func(f *Feature) { f.profiler = p }
}

func WithLightTable(t *core.LightTable) Option {
	return func(f *Feature) {
		if t != nil {
			f.lights = t
		}
	}
}

func WithProbeField(p volume.ProbeField) Option {
	return func(f *Feature) { f.probes = p }
}

func WithBaker(b *volume.Baker) Option {
	return func(f *Feature) {
		if b != nil {
			f.baker = b
		}
	}
}

func WithNoiseStrength(s float32) Option {
	return func(f *Feature) { f.noiseStrength = s }
}

func WithProfile(p *core.Profile) Option {
	return func(f *Feature) { f.profile = p }
}

func NewFeature(backend gpu.Backend, opts ...Option) *Feature {
	f := &Feature{
		backend:       backend,
		lights:        core.NewLightTable(),
		log:           NewNopLogger(),
		params:        gpu.DefaultParams(),
		packer:        gpu.NewLightPacker(),
		noiseStrength: DefaultNoiseStrength,
		passes:        make(map[string]*cameraPass),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.baker == nil {
		f.baker = volume.NewBaker(volume.WithLogger(f.log))
	}
	f.registry = volume.NewRegistry(f.log)
	return f
}

// IsEnabled reports whether volumetrics render for a camera.
func (f *Feature) IsEnabled(data core.CameraData) bool {
	return data.Enabled
}

// RenderFlags is the mask of contribution sources a camera runs.
func (f *Feature) RenderFlags(data core.CameraData) core.RenderFlags {
	return data.Flags
}

func (f *Feature) Registry() *volume.Registry {
	return f.registry
}

func (f *Feature) Lights() *core.LightTable {
	return f.lights
}

// SetProfile replaces the global density and scattering override. Nil
// means the camera values apply.
func (f *Feature) SetProfile(p *core.Profile) {
	f.mu.Lock()
	f.profile = p
	f.mu.Unlock()
}

func (f *Feature) SetProbeField(p volume.ProbeField) {
	f.mu.Lock()
	f.probes = p
	f.mu.Unlock()
}

func (f *Feature) probeField() volume.ProbeField {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probes == nil {
		return volume.AmbientProbe{}
	}
	return f.probes
}

func (f *Feature) AddVolume(v *volume.BakedVolume) {
	f.registry.Add(v)
}

// RemoveVolume unregisters v and drops any device copy of its texture.
func (f *Feature) RemoveVolume(v *volume.BakedVolume) {
	if !f.registry.Remove(v) {
		return
	}
	if vf, ok := f.backend.(volumeForgetter); ok {
		vf.ForgetVolume(v.ID)
	}
}

// BakeVolume bakes one volume synchronously from the current probe field.
func (f *Feature) BakeVolume(v *volume.BakedVolume) error {
	if v == nil {
		return errors.New("bake: nil volume")
	}
	start := time.Now()
	if err := f.baker.BakeInto(v, f.probeField()); err != nil {
		f.log.Errorf("bake %s: %v", v, err)
		return fmt.Errorf("bake %s: %w", v.Name, err)
	}
	f.log.Infof("baked %s in %s", v, time.Since(start))
	return nil
}

// BakeAll bakes every registered volume.
func (f *Feature) BakeAll() error {
	defer f.profiler.Scope("fog.bake")()
	err := f.registry.BakeAll(f.baker, f.probeField())
	f.profiler.SetCount("fog.volumes", f.registry.Len())
	return err
}

// OnLightmapBakeCompleted rebakes the volumes that follow lightmap bakes.
func (f *Feature) OnLightmapBakeCompleted() error {
	defer f.profiler.Scope("fog.bake")()
	return f.registry.OnLightmapBakeCompleted(f.baker, f.probeField())
}

// missingResources logs every absent resource and reports whether any is.
func (f *Feature) missingResources() error {
	missing := f.backend.MissingResources()
	if len(missing) == 0 {
		return nil
	}
	errs := make([]error, 0, len(missing))
	for _, r := range missing {
		f.log.Errorf("Please assign the %s in the volumetrics settings.", r)
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingResource, r))
	}
	return errors.Join(errs...)
}

func (f *Feature) pass(name string) *cameraPass {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.passes[name]
	if !ok {
		p = newCameraPass(name, f.params)
		f.passes[name] = p
	}
	return p
}

// Setup prepares a camera's pass for this frame and allocates its grids.
// It returns false when the pass will not run; nothing is allocated then.
func (f *Feature) Setup(cam *Camera) bool {
	if cam == nil || !f.IsEnabled(cam.Data) {
		return false
	}
	f.mu.Lock()
	profile := f.profile
	f.mu.Unlock()
	fog, active := core.ResolveFog(cam.Data, profile)
	if !active {
		f.log.Debugf("volumetrics inactive for %s: density is zero", cam.Frame.Name)
		return false
	}
	if err := f.missingResources(); err != nil {
		return false
	}
	defer f.profiler.Scope("fog.setup")()
	return f.pass(cam.Frame.Name).setup(f, cam, fog)
}

// Execute records and submits the camera's fog frame. It never panics
// across the frame boundary; failures are logged and the frame has no fog.
func (f *Feature) Execute(ctx RenderContext, cam *Camera) {
	if cam == nil {
		return
	}
	f.mu.Lock()
	p := f.passes[cam.Frame.Name]
	f.frame++
	frameIndex := f.frame
	f.mu.Unlock()
	if p == nil || p.State() != PassCameraSetup {
		return
	}
	if err := p.execute(f, ctx, cam, frameIndex); err != nil {
		f.log.Errorf("volumetrics %s: %v", cam.Frame.Name, err)
	}
}

// Stats is the profiler summary.
func (f *Feature) Stats() string {
	return f.profiler.GetStatsString()
}
