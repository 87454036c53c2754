package gpu

import (
	"github.com/gekko3d/volumetrics/fogrt/rt/shaders"
)

// ShaderSources holds the kernel bodies. The parameter structs and shared
// helpers are prepended by Module, so overrides only carry the body.
type ShaderSources struct {
	Compositor string
	Realtime   string
	Baked      string
	Blend      string
}

// DefaultShaderSources returns the embedded kernels.
func DefaultShaderSources() ShaderSources {
	return ShaderSources{
		Compositor: shaders.CompositorWGSL,
		Realtime:   shaders.RealtimeSamplerWGSL,
		Baked:      shaders.BakedSamplerWGSL,
		Blend:      shaders.BlendWGSL,
	}
}

func (s ShaderSources) Body(r Resource) string {
	switch r {
	case ResourceCompositorShader:
		return s.Compositor
	case ResourceRealtimeShader:
		return s.Realtime
	case ResourceBakedShader:
		return s.Baked
	case ResourceBlendShader:
		return s.Blend
	}
	return ""
}

// Missing lists the shader resources with an empty body.
func (s ShaderSources) Missing() []Resource {
	var out []Resource
	for _, r := range []Resource{ResourceCompositorShader, ResourceRealtimeShader, ResourceBakedShader, ResourceBlendShader} {
		if s.Body(r) == "" {
			out = append(out, r)
		}
	}
	return out
}

// Module assembles the complete WGSL module for a shader resource. It
// returns "" when the body is empty or r is not a shader.
func (s ShaderSources) Module(params *ParamTable, r Resource) string {
	body := s.Body(r)
	if body == "" {
		return ""
	}
	frame := params.WGSLStruct(BlockFrame)
	switch r {
	case ResourceCompositorShader:
		return shaders.Compose(frame, shaders.CommonWGSL, shaders.GridWGSL, body)
	case ResourceRealtimeShader:
		return shaders.Compose(frame, params.WGSLStruct(BlockLights), shaders.CommonWGSL, shaders.GridWGSL, body)
	case ResourceBakedShader:
		return shaders.Compose(frame, params.WGSLStruct(BlockVolume), shaders.CommonWGSL, shaders.GridWGSL, body)
	default:
		return shaders.Compose(frame, shaders.CommonWGSL, body)
	}
}
