package volumetrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gekko3d/volumetrics/fogrt/rt/bvh"
	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/gekko3d/volumetrics/fogrt/rt/gpu"
	"github.com/gekko3d/volumetrics/fogrt/rt/volume"
	"github.com/go-gl/mathgl/mgl32"
)

// PassState is the lifecycle of a camera pass within one frame.
type PassState uint8

const (
	PassIdle PassState = iota
	PassCameraSetup
	PassSample
	PassComposite
	PassBlend
)

func (s PassState) String() string {
	switch s {
	case PassIdle:
		return "idle"
	case PassCameraSetup:
		return "camera-setup"
	case PassSample:
		return "sample"
	case PassComposite:
		return "composite"
	case PassBlend:
		return "blend"
	}
	return fmt.Sprintf("PassState(%d)", uint8(s))
}

// cameraPass is the fog pass of one camera. Grids live from Setup until the
// end of Execute.
type cameraPass struct {
	name string

	mu    sync.Mutex
	state PassState
	desc  gpu.GridDesc
	fog   core.FogParams
	grids [core.MaxEyes]gpu.GridHandle
	views int

	frames [core.MaxEyes]*gpu.UniformBlock
	volume *gpu.UniformBlock
}

func newCameraPass(name string, params *gpu.ParamTable) *cameraPass {
	p := &cameraPass{
		name:   name,
		volume: gpu.NewUniformBlock(params, gpu.BlockVolume),
	}
	for i := range p.frames {
		p.frames[i] = gpu.NewUniformBlock(params, gpu.BlockFrame)
	}
	return p
}

func (p *cameraPass) State() PassState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *cameraPass) setState(s PassState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// setup allocates one grid per eye. A pass left over from a frame that
// never executed gives its grids back first.
func (p *cameraPass) setup(f *Feature, cam *Camera, fog core.FogParams) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked(f.backend)

	w, h, d := cam.Data.GridSize(cam.Frame.Width, cam.Frame.Height)
	p.desc = gpu.GridDesc{Width: w, Height: h, Depth: d}
	p.fog = fog
	p.views = cam.Frame.Views()
	for eye := 0; eye < p.views; eye++ {
		handle, err := f.backend.AllocateGrid(p.desc)
		if err != nil {
			f.log.Errorf("volumetrics %s: allocate grid %dx%dx%d: %v", p.name, w, h, d, err)
			p.releaseLocked(f.backend)
			return false
		}
		p.grids[eye] = handle
	}
	p.state = PassCameraSetup
	return true
}

func (p *cameraPass) releaseLocked(b gpu.Backend) {
	for i, h := range p.grids {
		if h != 0 {
			b.ReleaseGrid(h)
			p.grids[i] = 0
		}
	}
	p.views = 0
	p.state = PassIdle
}

func (p *cameraPass) release(b gpu.Backend) {
	p.mu.Lock()
	p.releaseLocked(b)
	p.mu.Unlock()
}

// execute records every kernel of the frame. The grids are released on
// every path out.
func (p *cameraPass) execute(f *Feature, ctx RenderContext, cam *Camera, frameIndex uint32) (err error) {
	defer f.profiler.Scope("fog.execute")()
	defer p.release(f.backend)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := f.backend.BeginFrame(ctx.Targets); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	count := f.packer.Pack(ctx.Lights, f.lights, ctx.Shadows)
	f.profiler.SetCount("fog.lights", count)
	if err := f.backend.UploadLights(f.packer); err != nil {
		return errors.Join(fmt.Errorf("upload lights: %w", err), f.backend.EndFrame())
	}

	volumes := bakedVolumes(f.registry.Snapshot())
	var errs []error
	for eye := 0; eye < p.views; eye++ {
		if err := p.executeEye(f, ctx, cam, eye, frameIndex, volumes); err != nil {
			errs = append(errs, fmt.Errorf("eye %d: %w", eye, err))
		}
	}
	if err := f.backend.EndFrame(); err != nil {
		errs = append(errs, fmt.Errorf("end frame: %w", err))
	}
	return errors.Join(errs...)
}

// volumeSet is the frame's baked volumes with a hierarchy over their world
// boxes.
type volumeSet struct {
	volumes []*volume.BakedVolume
	tree    *bvh.Tree
}

func bakedVolumes(all []*volume.BakedVolume) volumeSet {
	set := volumeSet{}
	boxes := make([][2]mgl32.Vec3, 0, len(all))
	for _, v := range all {
		if !v.Baked() {
			continue
		}
		set.volumes = append(set.volumes, v)
		boxes = append(boxes, v.WorldAABB())
	}
	set.tree = bvh.Build(boxes)
	return set
}

func (p *cameraPass) executeEye(f *Feature, ctx RenderContext, cam *Camera, eye int, frameIndex uint32, volumes volumeSet) error {
	m := cam.Frame.Eye(eye)
	frame := p.frames[eye]
	p.writeFrame(frame, m, eye, cam.Frame.Width, cam.Frame.Height, f.noiseStrength, frameIndex)
	f.packer.WriteFrame(frame)

	grid := p.grids[eye]
	groups := p.desc.Groups3D(gpu.SamplerTile)
	base := gpu.Dispatch{Groups: groups, Eye: eye, Grid: grid, Frame: frame}

	p.setState(PassSample)
	clr := base
	clr.Kernel = gpu.KernelClear
	if err := f.backend.Dispatch(clr); err != nil {
		return err
	}

	flags := f.RenderFlags(cam.Data)
	if flags.Has(core.RenderRealtime) {
		rt := base
		rt.Kernel = gpu.KernelRealtime
		if err := f.backend.Dispatch(rt); err != nil {
			return err
		}
	}
	if flags.Has(core.RenderBaked) {
		if err := p.sampleVolumes(f, base, m, volumes); err != nil {
			return err
		}
	}

	p.setState(PassComposite)
	comp := base
	comp.Kernel = gpu.KernelComposite
	comp.Groups = p.desc.Groups2D(gpu.CompositeTile)
	comp.Variant = gpu.SelectQualityVariant(cam.Data.Quality)
	if err := f.backend.Dispatch(comp); err != nil {
		return err
	}

	p.setState(PassBlend)
	blend := gpu.BlendCall{
		Eye:   eye,
		Grid:  grid,
		MSAA:  gpu.SelectMSAAVariant(ctx.Targets.MSAASamples),
		Frame: frame,
	}
	if cam.Frame.Stereo() {
		w, h := float32(cam.Frame.Width), float32(cam.Frame.Height)
		blend.Viewport = [4]float32{float32(eye) * w, 0, w, h}
	}
	return f.backend.Blend(blend)
}

// sampleVolumes adds every baked volume that intersects the eye's frustum,
// in registration order.
func (p *cameraPass) sampleVolumes(f *Feature, base gpu.Dispatch, m core.EyeMatrices, volumes volumeSet) error {
	visible := volumes.tree.Cull(m.Frustum())
	for _, i := range visible {
		v := volumes.volumes[i]
		p.volume.Reset()
		p.volume.SetMat4(gpu.ParamBakeMatrixInverse, v.WorldToLocal())
		p.volume.SetVec4(gpu.ParamBakeOrigin, v.Bounds.Center.Vec4(1))
		p.volume.SetVec4(gpu.ParamBakeExtents, v.Bounds.Extents.Vec4(0))

		d := base
		d.Kernel = gpu.KernelBaked
		d.Volume = v
		d.VolumeParams = p.volume
		if err := f.backend.Dispatch(d); err != nil {
			return fmt.Errorf("volume %s: %w", v, err)
		}
	}
	f.profiler.SetCount("fog.volumes.sampled", len(visible))
	return nil
}

func (p *cameraPass) writeFrame(u *gpu.UniformBlock, m core.EyeMatrices, eye int, width, height uint32, noise float32, frameIndex uint32) {
	u.Reset()
	u.SetMat4(gpu.ParamCameraToWorld, m.CameraToWorld)
	u.SetMat4(gpu.ParamWorldToCamera, m.WorldToCamera)
	u.SetMat4(gpu.ParamProjection, m.Projection)
	u.SetMat4(gpu.ParamInverseProjection, m.InverseProjection)
	u.SetMat4(gpu.ParamInverseViewProjection, m.InverseViewProjection)
	u.SetVec4(gpu.ParamFogParams, mgl32.Vec4{p.fog.Steps, p.fog.Far, p.fog.Density, p.fog.Scattering})
	u.SetVec4(gpu.ParamPassData, mgl32.Vec4{
		float32(p.desc.Width), float32(p.desc.Height), float32(p.desc.Depth), float32(eye),
	})
	u.SetVec4(gpu.ParamNoiseData, mgl32.Vec4{noise, float32(frameIndex), 0, 0})
	u.SetVec4(gpu.ParamBlendData, mgl32.Vec4{p.fog.Far, float32(eye), float32(width), float32(height)})
}
