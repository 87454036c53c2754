// Package shaders embeds the WGSL sources of the fog kernels.
package shaders

import (
	_ "embed"
	"strings"
)

// CommonWGSL binds the frame block and holds slice and ray helpers.
//
//go:embed common.wgsl
var CommonWGSL string

// GridWGSL binds the froxel grid storage buffer.
//
//go:embed grid.wgsl
var GridWGSL string

//go:embed compositor.wgsl
var CompositorWGSL string

//go:embed realtime_sampler.wgsl
var RealtimeSamplerWGSL string

//go:embed baked_sampler.wgsl
var BakedSamplerWGSL string

//go:embed fog_blend.wgsl
var BlendWGSL string

// GroundWGSL is the viewer's backdrop. It does not use the frame block.
//
//go:embed ground.wgsl
var GroundWGSL string

// Compose joins source fragments into one module source. Empty parts are
// skipped.
func Compose(parts ...string) string {
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		sb.WriteString(p)
		if !strings.HasSuffix(p, "\n") {
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
