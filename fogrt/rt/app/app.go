package app

import (
	"fmt"
	"unsafe"

	"github.com/gekko3d/volumetrics"
	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/gekko3d/volumetrics/fogrt/rt/editor"
	"github.com/gekko3d/volumetrics/fogrt/rt/gpu"
	"github.com/gekko3d/volumetrics/fogrt/rt/shaders"
	"github.com/gekko3d/volumetrics/fogrt/rt/volume"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraName is the config key of the viewer camera.
const CameraName = "main"

type groundParams struct {
	InverseViewProjection mgl32.Mat4
	ViewProjection        mgl32.Mat4
	CameraPosition        mgl32.Vec4
	SkyColor              mgl32.Vec4
}

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	GroundPipeline *wgpu.RenderPipeline
	GroundBuf      *wgpu.Buffer
	GroundBG       *wgpu.BindGroup

	DepthTexture *wgpu.Texture
	DepthView    *wgpu.TextureView

	Backend  *gpu.WgpuBackend
	Feature  *volumetrics.Feature
	Profiler *volumetrics.Profiler
	Log      volumetrics.Logger

	Scene  *volumetrics.Config
	Camera *core.FlyCamera
	Lights core.LightList
	Editor *editor.Editor

	SkyColor      mgl32.Vec4
	LastTime      float64
	MouseCaptured bool
	MouseX        float64
	MouseY        float64
	DebugMode     bool
	FrameCount    int
}

func NewApp(window *glfw.Window, scene *volumetrics.Config, log volumetrics.Logger) *App {
	if log == nil {
		log = volumetrics.NewNopLogger()
	}
	if scene == nil {
		scene = &volumetrics.Config{}
	}
	return &App{
		Window:   window,
		Scene:    scene,
		Log:      log,
		Camera:   core.NewFlyCamera(),
		Editor:   editor.NewEditor(),
		Profiler: volumetrics.NewProfiler(),
		SkyColor: mgl32.Vec4{0.55, 0.62, 0.7, 1},
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	format := caps.Formats[0]
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.Config)

	if err := a.setupGround(format); err != nil {
		return err
	}
	if err := a.setupDepth(width, height); err != nil {
		return err
	}
	if err := a.setupFog(format); err != nil {
		return err
	}

	a.LastTime = glfw.GetTime()
	return nil
}

func (a *App) setupGround(format wgpu.TextureFormat) error {
	module, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Ground",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.GroundWGSL},
	})
	if err != nil {
		return fmt.Errorf("ground shader: %w", err)
	}
	defer module.Release()

	a.GroundPipeline, err = a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Ground Pipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("ground pipeline: %w", err)
	}

	a.GroundBuf, err = a.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Ground Params",
		Size:  uint64(unsafe.Sizeof(groundParams{})),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("ground params: %w", err)
	}
	a.GroundBG, err = a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: a.GroundPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: a.GroundBuf, Size: wgpu.WholeSize},
		},
	})
	return err
}

func (a *App) setupDepth(w, h int) error {
	if w == 0 || h == 0 {
		return nil
	}
	if a.DepthView != nil {
		a.DepthView.Release()
	}
	if a.DepthTexture != nil {
		a.DepthTexture.Release()
	}

	var err error
	a.DepthTexture, err = a.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Scene Depth",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("depth texture: %w", err)
	}
	a.DepthView, err = a.DepthTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("depth view: %w", err)
	}
	return nil
}

// setupFog loads the fog resources, registers the configured volumes and
// bakes them, reusing assets saved by the bake tool when present.
func (a *App) setupFog(format wgpu.TextureFormat) error {
	settings := a.Scene.Settings
	res := volumetrics.LoadResources(settings, a.Log)

	var err error
	a.Backend, err = gpu.NewWgpuBackend(a.Device, format,
		gpu.WithShaderSources(res.Shaders),
		gpu.WithBackendLogger(a.Log),
	)
	if err != nil {
		return fmt.Errorf("fog backend: %w", err)
	}
	if err := res.Install(a.Backend); err != nil {
		a.Log.Errorf("noise texture: %v", err)
	}

	a.Feature = volumetrics.NewFeature(a.Backend,
		volumetrics.WithLogger(a.Log),
		volumetrics.WithProfiler(a.Profiler),
		volumetrics.WithLightTable(a.Scene.LightTable()),
		volumetrics.WithProbeField(a.Scene.Probes.ProbeField()),
		volumetrics.WithNoiseStrength(settings.Strength()),
		volumetrics.WithProfile(a.Scene.Profile.ToProfile()),
		volumetrics.WithBaker(volume.NewBaker(
			volume.WithWorkers(settings.Workers),
			volume.WithLogger(a.Log),
		)),
	)

	vols, err := a.Scene.BuildVolumes()
	if err != nil {
		a.Log.Errorf("volumes: %v", err)
	}
	for _, v := range vols {
		if err := volume.LoadVolume(settings.OutputDir, v); err != nil {
			a.Log.Debugf("no saved bake for %s: %v", v, err)
		}
		a.Feature.AddVolume(v)
	}
	for _, v := range vols {
		if !v.Baked() {
			if err := a.Feature.BakeVolume(v); err != nil {
				a.Log.Errorf("%v", err)
			}
		}
	}

	a.Lights, err = a.Scene.Scene.VisibleLights()
	if err != nil {
		a.Log.Errorf("scene lights: %v", err)
	}
	return nil
}

func (a *App) Resize(w, h int) {
	if w > 0 && h > 0 {
		a.Config.Width = uint32(w)
		a.Config.Height = uint32(h)
		a.Surface.Configure(a.Adapter, a.Device, a.Config)
		if err := a.setupDepth(w, h); err != nil {
			a.Log.Errorf("resize: %v", err)
		}
	}
}

// Update moves the camera from keyboard state.
func (a *App) Update() {
	now := glfw.GetTime()
	dt := float32(now - a.LastTime)
	a.LastTime = now

	move := mgl32.Vec3{}
	forward, right := a.Camera.GetForward(), a.Camera.GetRight()
	if a.Window.GetKey(glfw.KeyW) == glfw.Press {
		move = move.Add(forward)
	}
	if a.Window.GetKey(glfw.KeyS) == glfw.Press {
		move = move.Sub(forward)
	}
	if a.Window.GetKey(glfw.KeyD) == glfw.Press {
		move = move.Add(right)
	}
	if a.Window.GetKey(glfw.KeyA) == glfw.Press {
		move = move.Sub(right)
	}
	if a.Window.GetKey(glfw.KeySpace) == glfw.Press {
		move = move.Add(mgl32.Vec3{0, 0, 1})
	}
	if a.Window.GetKey(glfw.KeyLeftShift) == glfw.Press {
		move = move.Sub(mgl32.Vec3{0, 0, 1})
	}
	if move.Len() > 0 {
		a.Camera.Position = a.Camera.Position.Add(move.Normalize().Mul(a.Camera.Speed * dt))
	}

	if a.Window.GetKey(glfw.KeyEqual) == glfw.Press {
		a.Editor.ScaleDensity(1.05, now)
	}
	if a.Window.GetKey(glfw.KeyMinus) == glfw.Press {
		a.Editor.ScaleDensity(0.95, now)
	}
	if baked, err := a.Editor.Update(a.Feature, now); err != nil {
		a.Log.Errorf("rebake %s: %v", a.Editor.Selected, err)
	} else if baked {
		a.Log.Debugf("volume %s density %.3f", a.Editor.Selected, a.Editor.Selected.Density)
	}
}

// HandleClick selects the baked volume under the cursor.
func (a *App) HandleClick(x, y float64) {
	eye := a.Camera.Frame(CameraName, a.Config.Width, a.Config.Height).Eye(0)
	ray := a.Editor.GetPickRay(x, y, int(a.Config.Width), int(a.Config.Height), eye)
	a.Editor.Select(a.Feature.Registry().Snapshot(), ray)
	if a.Editor.Selected != nil {
		a.Log.Infof("selected volume %s", a.Editor.Selected)
	}
}

func (a *App) Look(dx, dy float64) {
	a.Camera.Yaw += float32(dx) * a.Camera.Sensitivity
	a.Camera.Pitch -= float32(dy) * a.Camera.Sensitivity
	a.Camera.Pitch = min(max(a.Camera.Pitch, -1.5), 1.5)
}

func (a *App) Render() {
	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Log.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.Log.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	a.Profiler.Reset()
	cam := &volumetrics.Camera{
		Frame: a.Camera.Frame(CameraName, a.Config.Width, a.Config.Height),
		Data:  a.Scene.Camera(CameraName),
	}

	endScene := a.Profiler.Scope("scene")
	a.drawGround(view, cam.Frame.Eye(0))
	endScene()

	if a.Feature.Setup(cam) {
		a.Feature.Execute(volumetrics.RenderContext{
			Lights: a.Lights,
			Targets: gpu.FrameTargets{
				Color:       view,
				Depth:       a.DepthView,
				MSAASamples: 1,
			},
		}, cam)
	}
	a.Surface.Present()

	a.FrameCount++
	if a.DebugMode && a.FrameCount%120 == 0 {
		a.Log.Infof("\n%s", a.Feature.Stats())
	}
}

func (a *App) drawGround(view *wgpu.TextureView, eye core.EyeMatrices) {
	params := groundParams{
		InverseViewProjection: eye.InverseViewProjection,
		ViewProjection:        eye.ViewProjection(),
		CameraPosition:        eye.Position().Vec4(1),
		SkyColor:              a.SkyColor,
	}
	a.Queue.WriteBuffer(a.GroundBuf, 0, unsafe.Slice((*byte)(unsafe.Pointer(&params)), unsafe.Sizeof(params)))

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.Log.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}
	defer encoder.Release()

	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{0, 0, 0, 1},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            a.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	rPass.SetPipeline(a.GroundPipeline)
	rPass.SetBindGroup(0, a.GroundBG, nil)
	rPass.Draw(3, 1, 0, 0)
	if err := rPass.End(); err != nil {
		a.Log.Errorf("ground pass: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.Log.Errorf("Encoder Finish failed: %v", err)
		return
	}
	a.Queue.Submit(cmd)
	cmd.Release()
}

func (a *App) Release() {
	if a.Backend != nil {
		a.Backend.Release()
	}
	if a.GroundBG != nil {
		a.GroundBG.Release()
	}
	if a.GroundBuf != nil {
		a.GroundBuf.Release()
	}
	if a.GroundPipeline != nil {
		a.GroundPipeline.Release()
	}
	if a.DepthView != nil {
		a.DepthView.Release()
	}
	if a.DepthTexture != nil {
		a.DepthTexture.Release()
	}
}
