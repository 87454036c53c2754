package gpu

import (
	"errors"
	"fmt"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"

	"github.com/cogentcore/webgpu/wgpu"
)

// froxelStride is the byte size of one packed froxel (four half floats).
const froxelStride = 8

var (
	ErrNoFrame       = errors.New("gpu: no frame in progress")
	ErrUnknownGrid   = errors.New("gpu: unknown grid handle")
	ErrNoPipeline    = errors.New("gpu: pipeline not built")
	ErrTargetMissing = errors.New("gpu: render target missing")
)

// Logger is the logging surface the backend reports through.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

type gridResources struct {
	Froxels       *wgpu.Buffer
	Composite     *wgpu.Texture
	CompositeView *wgpu.TextureView
}

func (g *gridResources) release() {
	if g.CompositeView != nil {
		g.CompositeView.Release()
	}
	if g.Composite != nil {
		g.Composite.Release()
	}
	if g.Froxels != nil {
		g.Froxels.Release()
	}
}

// WgpuBackend records the fog kernels on a WebGPU device. Pipelines are
// built once; grids, bind groups and the command encoder are per frame.
type WgpuBackend struct {
	Device      *wgpu.Device
	Queue       *wgpu.Queue
	ColorFormat wgpu.TextureFormat

	params  *ParamTable
	sources ShaderSources
	log     Logger

	modules            map[Resource]*wgpu.ShaderModule
	ClearPipeline      *wgpu.ComputePipeline
	RealtimePipeline   *wgpu.ComputePipeline
	BakedPipeline      *wgpu.ComputePipeline
	CompositePipelines [qualityVariantCount]*wgpu.ComputePipeline
	BlendPipelines     [msaaVariantCount]*wgpu.RenderPipeline

	LightsBuf  *wgpu.Buffer
	FrameBufs  [core.MaxEyes]*wgpu.Buffer
	lightBlock *UniformBlock

	// Volume uniform buffers are handed out in dispatch order and rewound
	// every frame.
	volumeBufs   []*wgpu.Buffer
	volumeCursor int

	grids    *gridTable[*gridResources]
	textures map[string]*volumeTexture

	NoiseTexture      *wgpu.Texture
	NoiseView         *wgpu.TextureView
	LinearSampler     *wgpu.Sampler
	fallbackDepth     *wgpu.Texture
	FallbackDepthView *wgpu.TextureView

	encoder   *wgpu.CommandEncoder
	targets   FrameTargets
	transient []*wgpu.BindGroup
}

// BackendOption configures a WgpuBackend.
type BackendOption func(*WgpuBackend)

func WithShaderSources(s ShaderSources) BackendOption {
	return func(b *WgpuBackend) { b.sources = s }
}

func WithBackendLogger(l Logger) BackendOption {
	return func(b *WgpuBackend) {
		if l != nil {
			b.log = l
		}
	}
}

func WithParams(p *ParamTable) BackendOption {
	return func(b *WgpuBackend) {
		if p != nil {
			b.params = p
		}
	}
}

// NewWgpuBackend compiles the kernels and creates the persistent buffers.
// Kernels whose source is missing are skipped and reported by
// MissingResources.
func NewWgpuBackend(device *wgpu.Device, colorFormat wgpu.TextureFormat, opts ...BackendOption) (*WgpuBackend, error) {
	b := &WgpuBackend{
		Device:      device,
		Queue:       device.GetQueue(),
		ColorFormat: colorFormat,
		params:      DefaultParams(),
		sources:     DefaultShaderSources(),
		log:         nopLogger{},
		modules:     make(map[Resource]*wgpu.ShaderModule),
		grids:       newGridTable[*gridResources](),
		textures:    make(map[string]*volumeTexture),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lightBlock = NewUniformBlock(b.params, BlockLights)

	var err error
	b.LinearSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Fog Linear Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	if err := b.createFallbackDepth(); err != nil {
		return nil, err
	}

	empty := make([]byte, b.params.BlockSize(BlockLights))
	if err := b.ensureBuffer("Fog Lights", &b.LightsBuf, empty, wgpu.BufferUsageStorage); err != nil {
		return nil, err
	}
	frame := make([]byte, b.params.BlockSize(BlockFrame))
	for i := range b.FrameBufs {
		if err := b.ensureBuffer(fmt.Sprintf("Fog Frame %d", i), &b.FrameBufs[i], frame, wgpu.BufferUsageUniform); err != nil {
			return nil, err
		}
	}

	if err := b.buildPipelines(); err != nil {
		return nil, err
	}
	return b, nil
}

// ensureBuffer grows buf to hold data and uploads it.
func (b *WgpuBackend) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage) error {
	neededSize := uint64(len(data))
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}
	if neededSize == 0 {
		neededSize = 16
	}

	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
		}
		newBuf, err := b.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            name,
			Size:             neededSize,
			Usage:            usage | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			*buf = nil
			return fmt.Errorf("create buffer %s: %w", name, err)
		}
		*buf = newBuf
	}
	if len(data) > 0 {
		b.Queue.WriteBuffer(*buf, 0, data)
	}
	return nil
}

func (b *WgpuBackend) shaderModule(r Resource) (*wgpu.ShaderModule, error) {
	if m, ok := b.modules[r]; ok {
		return m, nil
	}
	src := b.sources.Module(b.params, r)
	if src == "" {
		return nil, nil
	}
	m, err := b.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          r.String(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", r, err)
	}
	b.modules[r] = m
	return m, nil
}

func (b *WgpuBackend) computePipeline(m *wgpu.ShaderModule, label, entry string) (*wgpu.ComputePipeline, error) {
	p, err := b.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     m,
			EntryPoint: entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", label, err)
	}
	return p, nil
}

func (b *WgpuBackend) buildPipelines() error {
	comp, err := b.shaderModule(ResourceCompositorShader)
	if err != nil {
		return err
	}
	if comp != nil {
		if b.ClearPipeline, err = b.computePipeline(comp, "Fog Clear", "clear_main"); err != nil {
			return err
		}
		for _, v := range QualityVariants() {
			if b.CompositePipelines[v], err = b.computePipeline(comp, "Fog Composite "+v.String(), v.EntryPoint()); err != nil {
				return err
			}
		}
	}

	rt, err := b.shaderModule(ResourceRealtimeShader)
	if err != nil {
		return err
	}
	if rt != nil {
		if b.RealtimePipeline, err = b.computePipeline(rt, "Fog Realtime Sampler", "main"); err != nil {
			return err
		}
	}

	baked, err := b.shaderModule(ResourceBakedShader)
	if err != nil {
		return err
	}
	if baked != nil {
		if b.BakedPipeline, err = b.computePipeline(baked, "Fog Baked Sampler", "main"); err != nil {
			return err
		}
	}

	return b.buildBlendPipelines()
}

// MissingResources lists the shaders and textures that were never provided.
func (b *WgpuBackend) MissingResources() []Resource {
	missing := b.sources.Missing()
	if b.NoiseView == nil {
		missing = append(missing, ResourceNoiseTexture)
	}
	return missing
}

func (b *WgpuBackend) createGrid(desc GridDesc) (*gridResources, error) {
	g := &gridResources{}
	var err error
	g.Froxels, err = b.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Fog Froxels",
		Size:  desc.Froxels() * froxelStride,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create froxel buffer: %w", err)
	}
	g.Composite, err = b.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Fog Composite",
		Size:          wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: desc.Depth},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension3D,
		Format:        wgpu.TextureFormatRGBA16Float,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		g.release()
		return nil, fmt.Errorf("create composite texture: %w", err)
	}
	g.CompositeView, err = g.Composite.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Fog Composite View",
		Format:          wgpu.TextureFormatRGBA16Float,
		Dimension:       wgpu.TextureViewDimension3D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
	})
	if err != nil {
		g.release()
		return nil, fmt.Errorf("create composite view: %w", err)
	}
	return g, nil
}

// AllocateGrid returns a froxel grid and composite texture of the given
// size, reusing a released pair when one matches.
func (b *WgpuBackend) AllocateGrid(desc GridDesc) (GridHandle, error) {
	return b.grids.acquire(desc, b.createGrid)
}

func (b *WgpuBackend) ReleaseGrid(h GridHandle) {
	b.grids.release(h)
}

func (b *WgpuBackend) BeginFrame(targets FrameTargets) error {
	if b.encoder != nil {
		b.encoder.Release()
		b.releaseTransient()
	}
	encoder, err := b.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	b.encoder = encoder
	b.targets = targets
	b.volumeCursor = 0
	return nil
}

func (b *WgpuBackend) UploadLights(p *LightPacker) error {
	p.Marshal(b.lightBlock)
	return b.ensureBuffer("Fog Lights", &b.LightsBuf, b.lightBlock.Bytes(), wgpu.BufferUsageStorage)
}

func (b *WgpuBackend) uploadFrame(eye int, u *UniformBlock) (*wgpu.Buffer, error) {
	if eye < 0 || eye >= core.MaxEyes {
		return nil, fmt.Errorf("eye %d out of range", eye)
	}
	if u == nil {
		return nil, errors.New("nil frame block")
	}
	if err := b.ensureBuffer(fmt.Sprintf("Fog Frame %d", eye), &b.FrameBufs[eye], u.Bytes(), wgpu.BufferUsageUniform); err != nil {
		return nil, err
	}
	return b.FrameBufs[eye], nil
}

func (b *WgpuBackend) bindGroup(label string, layout *wgpu.BindGroupLayout, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	bg, err := b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group %s: %w", label, err)
	}
	b.transient = append(b.transient, bg)
	return bg, nil
}

// Dispatch records one compute kernel.
func (b *WgpuBackend) Dispatch(d Dispatch) error {
	if b.encoder == nil {
		return ErrNoFrame
	}
	grid, _, ok := b.grids.get(d.Grid)
	if !ok {
		return ErrUnknownGrid
	}
	frameBuf, err := b.uploadFrame(d.Eye, d.Frame)
	if err != nil {
		return err
	}
	common := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: frameBuf, Size: wgpu.WholeSize},
		{Binding: 1, Buffer: grid.Froxels, Size: wgpu.WholeSize},
	}

	var pipeline *wgpu.ComputePipeline
	var entries []wgpu.BindGroupEntry
	switch d.Kernel {
	case KernelClear:
		pipeline = b.ClearPipeline
		entries = common
	case KernelRealtime:
		pipeline = b.RealtimePipeline
		entries = append(common,
			wgpu.BindGroupEntry{Binding: 2, Buffer: b.LightsBuf, Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 3, TextureView: b.NoiseView},
			wgpu.BindGroupEntry{Binding: 4, TextureView: b.depthOrFallback(b.targets.Shadows.Main)},
			wgpu.BindGroupEntry{Binding: 5, TextureView: b.depthOrFallback(b.targets.Shadows.Additional)},
		)
	case KernelBaked:
		pipeline = b.BakedPipeline
		view, paramsBuf, err := b.bindVolume(d)
		if err != nil {
			return err
		}
		entries = append(common,
			wgpu.BindGroupEntry{Binding: 2, Buffer: paramsBuf, Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 3, TextureView: view},
			wgpu.BindGroupEntry{Binding: 4, Sampler: b.LinearSampler},
		)
	case KernelComposite:
		if d.Variant < qualityVariantCount {
			pipeline = b.CompositePipelines[d.Variant]
		}
		depth := b.FallbackDepthView
		if b.targets.MSAASamples <= 1 {
			depth = b.depthOrFallback(b.targets.Depth)
		}
		entries = append(common,
			wgpu.BindGroupEntry{Binding: 2, TextureView: grid.CompositeView},
			wgpu.BindGroupEntry{Binding: 3, TextureView: depth},
		)
	default:
		return fmt.Errorf("unknown kernel %v", d.Kernel)
	}
	if pipeline == nil {
		return fmt.Errorf("%v: %w", d.Kernel, ErrNoPipeline)
	}

	bg, err := b.bindGroup("Fog "+d.Kernel.String(), pipeline.GetBindGroupLayout(0), entries)
	if err != nil {
		return err
	}
	pass := b.encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(d.Groups[0], d.Groups[1], d.Groups[2])
	if err := pass.End(); err != nil {
		return fmt.Errorf("%v pass: %w", d.Kernel, err)
	}
	return nil
}

func (b *WgpuBackend) depthOrFallback(target any) *wgpu.TextureView {
	if v, ok := target.(*wgpu.TextureView); ok && v != nil {
		return v
	}
	return b.FallbackDepthView
}

// EndFrame submits the recorded commands.
func (b *WgpuBackend) EndFrame() error {
	if b.encoder == nil {
		return ErrNoFrame
	}
	encoder := b.encoder
	b.encoder = nil
	defer encoder.Release()
	defer b.releaseTransient()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	b.Queue.Submit(cmd)
	cmd.Release()
	return nil
}

func (b *WgpuBackend) releaseTransient() {
	for _, bg := range b.transient {
		bg.Release()
	}
	b.transient = b.transient[:0]
}

// Release frees every GPU object the backend owns.
func (b *WgpuBackend) Release() {
	if b.encoder != nil {
		b.encoder.Release()
		b.encoder = nil
	}
	b.releaseTransient()
	b.grids.drain(func(g *gridResources) { g.release() })
	for id, t := range b.textures {
		t.release()
		delete(b.textures, id)
	}
	for _, buf := range b.volumeBufs {
		buf.Release()
	}
	b.volumeBufs = nil
	if b.LightsBuf != nil {
		b.LightsBuf.Release()
	}
	for _, buf := range b.FrameBufs {
		if buf != nil {
			buf.Release()
		}
	}
	b.releaseNoise()
	if b.FallbackDepthView != nil {
		b.FallbackDepthView.Release()
	}
	if b.fallbackDepth != nil {
		b.fallbackDepth.Release()
	}
	if b.LinearSampler != nil {
		b.LinearSampler.Release()
	}
	for r, m := range b.modules {
		m.Release()
		delete(b.modules, r)
	}
}
