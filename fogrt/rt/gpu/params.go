package gpu

import (
	"fmt"
	"strings"
)

// Block identifies one GPU parameter block.
type Block uint8

const (
	// BlockFrame is the per-eye uniform block shared by every kernel.
	BlockFrame Block = iota
	// BlockLights is the additional light storage block.
	BlockLights
	// BlockVolume is the per baked volume uniform block.
	BlockVolume
	blockCount
)

func (b Block) String() string {
	switch b {
	case BlockFrame:
		return "FrameParams"
	case BlockLights:
		return "LightParams"
	case BlockVolume:
		return "VolumeParams"
	}
	return fmt.Sprintf("Block(%d)", uint8(b))
}

type paramKind uint8

const (
	kindVec4 paramKind = iota
	kindMat4
)

func (k paramKind) size() int {
	if k == kindMat4 {
		return 64
	}
	return 16
}

func (k paramKind) wgsl() string {
	if k == kindMat4 {
		return "mat4x4<f32>"
	}
	return "vec4<f32>"
}

// ParamID names one shader parameter. Names are resolved once into
// ParamHandles; nothing looks a parameter up by string per frame.
type ParamID uint8

const (
	ParamCameraToWorld ParamID = iota
	ParamWorldToCamera
	ParamProjection
	ParamInverseProjection
	ParamInverseViewProjection
	ParamFogParams
	ParamPassData
	ParamNoiseData
	ParamBlendData
	ParamMainLightPosition
	ParamMainLightColor
	ParamMainLightFogParams
	ParamMainLightShadowParams
	ParamCascadeShadowSplitSpheres0
	ParamCascadeShadowSplitSpheres1
	ParamCascadeShadowSplitSpheres2
	ParamCascadeShadowSplitSpheres3
	ParamCascadeShadowSplitSphereRadii
	ParamMainLightWorldToShadow
	ParamAdditionalLightsCount

	ParamAdditionalLightsPosition
	ParamAdditionalLightsColor
	ParamAdditionalLightsAttenuation
	ParamAdditionalLightsSpotDir
	ParamAdditionalLightsFogParams
	ParamAdditionalShadowParams
	ParamAdditionalLightsWorldToShadow

	ParamBakeMatrixInverse
	ParamBakeOrigin
	ParamBakeExtents

	ParamCount
)

type paramDecl struct {
	name  string
	block Block
	kind  paramKind
	count int
}

var paramDecls = [ParamCount]paramDecl{
	ParamCameraToWorld:                 {"camera_to_world", BlockFrame, kindMat4, 1},
	ParamWorldToCamera:                 {"world_to_camera", BlockFrame, kindMat4, 1},
	ParamProjection:                    {"projection", BlockFrame, kindMat4, 1},
	ParamInverseProjection:             {"inverse_projection", BlockFrame, kindMat4, 1},
	ParamInverseViewProjection:         {"inverse_view_projection", BlockFrame, kindMat4, 1},
	ParamFogParams:                     {"fog_params", BlockFrame, kindVec4, 1},
	ParamPassData:                      {"pass_data", BlockFrame, kindVec4, 1},
	ParamNoiseData:                     {"noise_data", BlockFrame, kindVec4, 1},
	ParamBlendData:                     {"blend_data", BlockFrame, kindVec4, 1},
	ParamMainLightPosition:             {"main_light_position", BlockFrame, kindVec4, 1},
	ParamMainLightColor:                {"main_light_color", BlockFrame, kindVec4, 1},
	ParamMainLightFogParams:            {"main_light_fog_params", BlockFrame, kindVec4, 1},
	ParamMainLightShadowParams:         {"main_light_shadow_params", BlockFrame, kindVec4, 1},
	ParamCascadeShadowSplitSpheres0:    {"cascade_split_spheres0", BlockFrame, kindVec4, 1},
	ParamCascadeShadowSplitSpheres1:    {"cascade_split_spheres1", BlockFrame, kindVec4, 1},
	ParamCascadeShadowSplitSpheres2:    {"cascade_split_spheres2", BlockFrame, kindVec4, 1},
	ParamCascadeShadowSplitSpheres3:    {"cascade_split_spheres3", BlockFrame, kindVec4, 1},
	ParamCascadeShadowSplitSphereRadii: {"cascade_split_sphere_radii", BlockFrame, kindVec4, 1},
	ParamMainLightWorldToShadow:        {"main_light_world_to_shadow", BlockFrame, kindMat4, MainWorldToShadowCount},
	ParamAdditionalLightsCount:         {"additional_lights_count", BlockFrame, kindVec4, 1},

	ParamAdditionalLightsPosition:      {"position", BlockLights, kindVec4, MaxVisibleLights},
	ParamAdditionalLightsColor:         {"color", BlockLights, kindVec4, MaxVisibleLights},
	ParamAdditionalLightsAttenuation:   {"attenuation", BlockLights, kindVec4, MaxVisibleLights},
	ParamAdditionalLightsSpotDir:       {"spot_dir", BlockLights, kindVec4, MaxVisibleLights},
	ParamAdditionalLightsFogParams:     {"fog_params", BlockLights, kindVec4, MaxVisibleLights},
	ParamAdditionalShadowParams:        {"shadow_params", BlockLights, kindVec4, MaxVisibleLights},
	ParamAdditionalLightsWorldToShadow: {"world_to_shadow", BlockLights, kindMat4, MaxVisibleLights},

	ParamBakeMatrixInverse: {"bake_matrix_inverse", BlockVolume, kindMat4, 1},
	ParamBakeOrigin:        {"bake_origin", BlockVolume, kindVec4, 1},
	ParamBakeExtents:       {"bake_extents", BlockVolume, kindVec4, 1},
}

func (p ParamID) String() string {
	if p >= ParamCount {
		return fmt.Sprintf("ParamID(%d)", uint8(p))
	}
	return paramDecls[p].name
}

// ParamHandle is a resolved parameter: its block, byte offset and element count.
type ParamHandle struct {
	Block  Block
	Offset int
	Count  int
	kind   paramKind
}

// Stride is the byte size of one element.
func (h ParamHandle) Stride() int {
	return h.kind.size()
}

// ParamTable is the resolved layout of every parameter block.
type ParamTable struct {
	handles [ParamCount]ParamHandle
	sizes   [blockCount]int
	byName  [blockCount]map[string]ParamID
}

// NewParamTable lays out every block in declaration order. All members are
// vec4 or mat4 so 16 byte alignment holds without padding.
func NewParamTable() *ParamTable {
	t := &ParamTable{}
	for b := range t.byName {
		t.byName[b] = make(map[string]ParamID)
	}
	for id := ParamID(0); id < ParamCount; id++ {
		d := paramDecls[id]
		t.handles[id] = ParamHandle{
			Block:  d.block,
			Offset: t.sizes[d.block],
			Count:  d.count,
			kind:   d.kind,
		}
		t.sizes[d.block] += d.kind.size() * d.count
		t.byName[d.block][d.name] = id
	}
	return t
}

var defaultParams = NewParamTable()

// DefaultParams is the table shared by the packer, the pass and the backend.
func DefaultParams() *ParamTable {
	return defaultParams
}

func (t *ParamTable) Handle(id ParamID) ParamHandle {
	return t.handles[id]
}

// BlockSize is the byte size of a block.
func (t *ParamTable) BlockSize(b Block) int {
	return t.sizes[b]
}

// Lookup resolves a parameter by block and name. Used at startup only.
func (t *ParamTable) Lookup(b Block, name string) (ParamHandle, bool) {
	if b >= blockCount {
		return ParamHandle{}, false
	}
	id, ok := t.byName[b][name]
	if !ok {
		return ParamHandle{}, false
	}
	return t.handles[id], true
}

// WGSLStruct renders the block as a WGSL struct declaration whose member
// order and offsets match the table.
func (t *ParamTable) WGSLStruct(b Block) string {
	var sb strings.Builder
	sb.WriteString("struct ")
	sb.WriteString(b.String())
	sb.WriteString(" {\n")
	for id := ParamID(0); id < ParamCount; id++ {
		d := paramDecls[id]
		if d.block != b {
			continue
		}
		if d.count > 1 {
			fmt.Fprintf(&sb, "    %s: array<%s, %d>,\n", d.name, d.kind.wgsl(), d.count)
		} else {
			fmt.Fprintf(&sb, "    %s: %s,\n", d.name, d.kind.wgsl())
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
