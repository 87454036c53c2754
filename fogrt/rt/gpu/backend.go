package gpu

import (
	"fmt"

	"github.com/gekko3d/volumetrics/fogrt/rt/volume"
)

// Tile sizes of the compute kernels.
const (
	SamplerTile   = 8
	CompositeTile = 32
)

// Kernel is one compute stage of the fog frame.
type Kernel uint8

const (
	KernelClear Kernel = iota
	KernelRealtime
	KernelBaked
	KernelComposite
)

func (k Kernel) String() string {
	switch k {
	case KernelClear:
		return "clear"
	case KernelRealtime:
		return "realtime"
	case KernelBaked:
		return "baked"
	case KernelComposite:
		return "composite"
	}
	return fmt.Sprintf("Kernel(%d)", uint8(k))
}

// Resource is an asset the backend needs before it can record a frame.
type Resource uint8

const (
	ResourceCompositorShader Resource = iota
	ResourceRealtimeShader
	ResourceBakedShader
	ResourceBlendShader
	ResourceNoiseTexture
)

func (r Resource) String() string {
	switch r {
	case ResourceCompositorShader:
		return "compositor shader"
	case ResourceRealtimeShader:
		return "realtime sampler shader"
	case ResourceBakedShader:
		return "baked sampler shader"
	case ResourceBlendShader:
		return "blend shader"
	case ResourceNoiseTexture:
		return "noise texture"
	}
	return fmt.Sprintf("Resource(%d)", uint8(r))
}

// GridDesc is the size of one froxel grid.
type GridDesc struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

func (d GridDesc) Froxels() uint64 {
	return uint64(d.Width) * uint64(d.Height) * uint64(d.Depth)
}

// Groups3D is the workgroup count of a 3D kernel with the given tile.
func (d GridDesc) Groups3D(tile uint32) [3]uint32 {
	return [3]uint32{ceilDiv(d.Width, tile), ceilDiv(d.Height, tile), ceilDiv(d.Depth, tile)}
}

// Groups2D is the workgroup count of a kernel that walks whole depth columns.
func (d GridDesc) Groups2D(tile uint32) [3]uint32 {
	return [3]uint32{ceilDiv(d.Width, tile), ceilDiv(d.Height, tile), 1}
}

func ceilDiv(n, d uint32) uint32 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}

// GridHandle names an allocated grid pair (froxels plus composite). Zero is
// never a valid handle.
type GridHandle uint32

// FrameTargets are the host render targets of one camera. Color and Depth
// are backend specific views.
type FrameTargets struct {
	Color       any
	Depth       any
	MSAASamples int
	Shadows     ShadowTargets
}

// ShadowTargets carries the host shadow maps, nil when absent.
type ShadowTargets struct {
	Main       any
	Additional any
}

// Dispatch is one compute kernel invocation.
type Dispatch struct {
	Kernel Kernel
	Groups [3]uint32
	Eye    int
	Grid   GridHandle
	Frame  *UniformBlock

	// Baked kernel only.
	Volume       *volume.BakedVolume
	VolumeParams *UniformBlock

	// Composite kernel only.
	Variant QualityVariant
}

// BlendCall is the fullscreen composite of one eye over the scene color.
type BlendCall struct {
	Eye   int
	Grid  GridHandle
	MSAA  MSAAVariant
	Frame *UniformBlock
	// Viewport is x, y, width, height in target pixels. Zero covers the
	// whole target.
	Viewport [4]float32
}

// Backend records the fog frame on a device. The pass drives it in a fixed
// order: BeginFrame, UploadLights, per eye Dispatch calls then Blend, and
// finally EndFrame.
type Backend interface {
	// MissingResources lists assets that were never provided.
	MissingResources() []Resource
	AllocateGrid(desc GridDesc) (GridHandle, error)
	ReleaseGrid(h GridHandle)
	BeginFrame(targets FrameTargets) error
	UploadLights(p *LightPacker) error
	Dispatch(d Dispatch) error
	Blend(b BlendCall) error
	EndFrame() error
}
