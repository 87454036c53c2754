package gpu

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamTableLayout(t *testing.T) {
	params := NewParamTable()

	h := params.Handle(ParamCameraToWorld)
	assert.Equal(t, BlockFrame, h.Block)
	assert.Equal(t, 0, h.Offset)
	assert.Equal(t, 64, h.Stride())

	assert.Equal(t, 64, params.Handle(ParamWorldToCamera).Offset)
	assert.Equal(t, 5*64, params.Handle(ParamFogParams).Offset)

	w2s := params.Handle(ParamMainLightWorldToShadow)
	assert.Equal(t, MainWorldToShadowCount, w2s.Count)

	// Light block: 6 vec4 arrays and 1 mat4 array.
	assert.Equal(t, MaxVisibleLights*(6*16+64), params.BlockSize(BlockLights))
	assert.Equal(t, 0, params.Handle(ParamAdditionalLightsPosition).Offset)

	assert.Equal(t, 64+16+16, params.BlockSize(BlockVolume))

	for id := ParamID(0); id < ParamCount; id++ {
		h := params.Handle(id)
		assert.Zero(t, h.Offset%16, "%v not 16 byte aligned", id)
		assert.LessOrEqual(t, h.Offset+h.Count*h.Stride(), params.BlockSize(h.Block), "%v overruns block", id)
	}
}

func TestParamLookup(t *testing.T) {
	params := DefaultParams()

	h, ok := params.Lookup(BlockFrame, "fog_params")
	require.True(t, ok)
	assert.Equal(t, params.Handle(ParamFogParams), h)

	h, ok = params.Lookup(BlockLights, "fog_params")
	require.True(t, ok)
	assert.Equal(t, params.Handle(ParamAdditionalLightsFogParams), h)

	_, ok = params.Lookup(BlockVolume, "fog_params")
	assert.False(t, ok)
	_, ok = params.Lookup(Block(9), "fog_params")
	assert.False(t, ok)
}

func TestWGSLStruct(t *testing.T) {
	src := DefaultParams().WGSLStruct(BlockLights)
	assert.True(t, strings.HasPrefix(src, "struct LightParams {\n"))
	assert.Contains(t, src, "    position: array<vec4<f32>, 256>,\n")
	assert.Contains(t, src, "    world_to_shadow: array<mat4x4<f32>, 256>,\n")

	frame := DefaultParams().WGSLStruct(BlockFrame)
	assert.Contains(t, frame, "    camera_to_world: mat4x4<f32>,\n")
	assert.Contains(t, frame, "    main_light_world_to_shadow: array<mat4x4<f32>, 5>,\n")
	assert.Less(t, strings.Index(frame, "camera_to_world"), strings.Index(frame, "fog_params"))
}

func TestUniformBlockRoundTrip(t *testing.T) {
	u := NewUniformBlock(DefaultParams(), BlockFrame)
	m := mgl32.Translate3D(1, 2, 3)
	u.SetMat4(ParamWorldToCamera, m)
	u.SetVec4(ParamPassData, mgl32.Vec4{8, 4, 64, 1})
	u.SetMat4At(ParamMainLightWorldToShadow, 4, m)

	assert.Equal(t, m, u.Mat4(ParamWorldToCamera))
	assert.Equal(t, mgl32.Vec4{8, 4, 64, 1}, u.Vec4(ParamPassData))
	assert.Equal(t, m, u.Mat4At(ParamMainLightWorldToShadow, 4))
	assert.Equal(t, mgl32.Mat4{}, u.Mat4(ParamCameraToWorld))

	// Writes to another block or out of range are dropped.
	before := append([]byte(nil), u.Bytes()...)
	u.SetVec4(ParamBakeOrigin, mgl32.Vec4{1, 1, 1, 1})
	u.SetMat4At(ParamMainLightWorldToShadow, 5, m)
	assert.Equal(t, before, u.Bytes())

	u.Reset()
	assert.Equal(t, mgl32.Vec4{}, u.Vec4(ParamPassData))
}
