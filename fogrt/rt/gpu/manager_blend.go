package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// fogBlendState composites (inscatter, transmittance) over the scene:
// color = fog.rgb + dst.rgb * fog.a, destination alpha untouched.
var fogBlendState = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorZero,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
}

func (b *WgpuBackend) buildBlendPipelines() error {
	module, err := b.shaderModule(ResourceBlendShader)
	if err != nil || module == nil {
		return err
	}
	for _, v := range MSAAVariants() {
		blend := fogBlendState
		b.BlendPipelines[v], err = b.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label: "Fog Blend " + v.String(),
			Vertex: wgpu.VertexState{
				Module:     module,
				EntryPoint: "vs_main",
			},
			Fragment: &wgpu.FragmentState{
				Module:     module,
				EntryPoint: v.EntryPoint(),
				Targets: []wgpu.ColorTargetState{{
					Format:    b.ColorFormat,
					Blend:     &blend,
					WriteMask: wgpu.ColorWriteMaskAll,
				}},
			},
			Primitive: wgpu.PrimitiveState{
				Topology: wgpu.PrimitiveTopologyTriangleList,
			},
			Multisample: wgpu.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
		})
		if err != nil {
			return fmt.Errorf("blend pipeline %s: %w", v, err)
		}
	}
	return nil
}

// createFallbackDepth builds the 1x1 far plane depth texture bound where a
// single sampled depth or shadow map is absent.
func (b *WgpuBackend) createFallbackDepth() error {
	var err error
	b.fallbackDepth, err = b.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Fog Fallback Depth",
		Size:          wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create fallback depth: %w", err)
	}
	b.FallbackDepthView, err = b.fallbackDepth.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Fog Fallback Depth View",
		Format:          wgpu.TextureFormatDepth32Float,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectDepthOnly,
	})
	if err != nil {
		return fmt.Errorf("create fallback depth view: %w", err)
	}

	encoder, err := b.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.FallbackDepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	if err := pass.End(); err != nil {
		return fmt.Errorf("clear fallback depth: %w", err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	b.Queue.Submit(cmd)
	cmd.Release()
	return nil
}

// Blend draws one eye's composite over the frame's color target.
func (b *WgpuBackend) Blend(c BlendCall) error {
	if b.encoder == nil {
		return ErrNoFrame
	}
	color, ok := b.targets.Color.(*wgpu.TextureView)
	if !ok || color == nil {
		return fmt.Errorf("color: %w", ErrTargetMissing)
	}
	grid, _, ok := b.grids.get(c.Grid)
	if !ok {
		return ErrUnknownGrid
	}
	if c.MSAA >= msaaVariantCount || b.BlendPipelines[c.MSAA] == nil {
		return fmt.Errorf("blend %v: %w", c.MSAA, ErrNoPipeline)
	}
	pipeline := b.BlendPipelines[c.MSAA]

	frameBuf, err := b.uploadFrame(c.Eye, c.Frame)
	if err != nil {
		return err
	}
	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: frameBuf, Size: wgpu.WholeSize},
		{Binding: 1, TextureView: grid.CompositeView},
		{Binding: 2, Sampler: b.LinearSampler},
	}
	if c.MSAA.Multisampled() {
		depth, ok := b.targets.Depth.(*wgpu.TextureView)
		if !ok || depth == nil {
			return fmt.Errorf("multisampled depth: %w", ErrTargetMissing)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: 4, TextureView: depth})
	} else {
		entries = append(entries, wgpu.BindGroupEntry{Binding: 3, TextureView: b.depthOrFallback(b.targets.Depth)})
	}
	bg, err := b.bindGroup("Fog Blend", pipeline.GetBindGroupLayout(0), entries)
	if err != nil {
		return err
	}

	rPass := b.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    color,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	rPass.SetPipeline(pipeline)
	rPass.SetBindGroup(0, bg, nil)
	if vp := c.Viewport; vp[2] > 0 && vp[3] > 0 {
		rPass.SetViewport(vp[0], vp[1], vp[2], vp[3], 0, 1)
	}
	rPass.Draw(3, 1, 0, 0)
	if err := rPass.End(); err != nil {
		return fmt.Errorf("blend pass: %w", err)
	}
	return nil
}
