package gpu

import (
	"math"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxVisibleLights bounds the additional light arrays.
const MaxVisibleLights = 256

// MainWorldToShadowCount is the cascade matrix count plus the trailing
// no-cascade matrix.
const MainWorldToShadowCount = core.MainShadowCascades + 1

// LightDataSource resolves the fog configuration of a visible light.
type LightDataSource interface {
	Get(id core.LightID) core.LightData
}

// AdditionalLight is one packed entry of the additional light arrays.
type AdditionalLight struct {
	Position      mgl32.Vec4
	Color         mgl32.Vec4
	Attenuation   mgl32.Vec4
	SpotDir       mgl32.Vec4
	FogParams     mgl32.Vec4
	ShadowParams  mgl32.Vec4
	WorldToShadow mgl32.Mat4
}

// MainLight is the packed main directional light.
type MainLight struct {
	Position     mgl32.Vec4
	Color        mgl32.Vec4
	FogParams    mgl32.Vec4
	ShadowParams mgl32.Vec4
}

// LightPacker converts the visible light list into the fixed size arrays the
// realtime sampler reads. Its arrays are reused across frames.
type LightPacker struct {
	main MainLight

	splitSpheres      [core.MainShadowCascades]mgl32.Vec4
	splitRadii        mgl32.Vec4
	mainWorldToShadow [MainWorldToShadowCount]mgl32.Mat4

	position      [MaxVisibleLights]mgl32.Vec4
	color         [MaxVisibleLights]mgl32.Vec4
	attenuation   [MaxVisibleLights]mgl32.Vec4
	spotDir       [MaxVisibleLights]mgl32.Vec4
	fogParams     [MaxVisibleLights]mgl32.Vec4
	shadowParams  [MaxVisibleLights]mgl32.Vec4
	worldToShadow [MaxVisibleLights]mgl32.Mat4

	count int
}

func NewLightPacker() *LightPacker {
	return &LightPacker{}
}

// Pack fills the packer from one frame's lights and returns the number of
// additional lights written. Lights whose mode is not realtime are skipped,
// the main light never appears in the additional arrays, and only the first
// MaxVisibleLights list positions are considered.
func (p *LightPacker) Pack(lights core.LightList, table LightDataSource, shadows *core.ShadowData) int {
	p.packMain(lights, table)
	p.packShadows(shadows)

	p.count = 0
	for l := 0; l < MaxVisibleLights; l++ {
		if l == lights.MainLightIndex {
			continue
		}
		if l >= len(lights.Lights) {
			continue
		}
		light := lights.Lights[l]
		data := table.Get(light.ID)
		if data.Mode != core.LightModeRealtime {
			continue
		}

		i := p.count
		p.position[i], p.attenuation[i], p.spotDir[i] = lightConstants(light)
		p.color[i] = data.FogColor(light).Vec4(1)
		p.fogParams[i] = mgl32.Vec4{data.Power, 0, 0, 0}
		p.shadowParams[i] = mgl32.Vec4{}
		p.worldToShadow[i] = mgl32.Ident4()
		if shadows != nil {
			if l < len(shadows.AdditionalShadowParams) {
				p.shadowParams[i] = shadows.AdditionalShadowParams[l]
			}
			if l < len(shadows.AdditionalWorldToShadow) {
				p.worldToShadow[i] = shadows.AdditionalWorldToShadow[l]
			}
		}
		p.count++
	}
	return p.count
}

func (p *LightPacker) packMain(lights core.LightList, table LightDataSource) {
	p.main = MainLight{}
	light, ok := lights.Main()
	if !ok {
		return
	}
	data := table.Get(light.ID)
	if data.Mode != core.LightModeRealtime {
		return
	}
	p.main.Position = light.Forward.Vec4(0)
	p.main.Color = data.FogColor(light).Vec4(1)
	p.main.FogParams = mgl32.Vec4{data.Power, 0, 0, 0}
	if light.Shadows {
		p.main.ShadowParams = mgl32.Vec4{1, 1, 1, 1}
	}
}

func (p *LightPacker) packShadows(shadows *core.ShadowData) {
	if shadows == nil {
		p.splitSpheres = [core.MainShadowCascades]mgl32.Vec4{}
		p.splitRadii = mgl32.Vec4{}
		for i := range p.mainWorldToShadow {
			p.mainWorldToShadow[i] = mgl32.Ident4()
		}
		return
	}
	p.splitSpheres = shadows.CascadeSplitSpheres
	p.splitRadii = shadows.CascadeRadiiSquared()
	p.mainWorldToShadow = shadows.MainWorldToShadow
}

// lightConstants computes position, attenuation and spot direction the way a
// forward renderer's light loop expects them.
func lightConstants(l core.VisibleLight) (pos, atten, spotDir mgl32.Vec4) {
	if l.Kind == core.LightDirectional {
		pos = l.Forward.Mul(-1).Vec4(0)
	} else {
		pos = l.Position.Vec4(1)
	}

	atten = mgl32.Vec4{0, 1, 0, 1}
	spotDir = mgl32.Vec4{0, 0, 1, 0}
	if l.Kind != core.LightDirectional {
		r2 := l.Range * l.Range
		fadeStart := 0.8 * 0.8 * r2
		atten[0] = 1 / max(r2, 1e-4)
		if fadeStart != r2 {
			atten[1] = -r2 / (fadeStart - r2)
		}
	}
	if l.Kind == core.LightSpot {
		spotDir = l.Forward.Mul(-1).Vec4(0)
		cosOuter := float32(math.Cos(float64(mgl32.DegToRad(l.SpotAngle)) * 0.5))
		cosInner := float32(math.Cos(float64(mgl32.DegToRad(l.InnerSpotAngle)) * 0.5))
		inv := 1 / max(cosInner-cosOuter, 1e-3)
		atten[2] = inv
		atten[3] = -cosOuter * inv
	}
	return pos, atten, spotDir
}

// Count is the number of additional lights written by the last Pack.
func (p *LightPacker) Count() int {
	return p.count
}

func (p *LightPacker) Main() MainLight {
	return p.main
}

// Additional returns the packed entry i, with i in [0, Count).
func (p *LightPacker) Additional(i int) (AdditionalLight, bool) {
	if i < 0 || i >= p.count {
		return AdditionalLight{}, false
	}
	return AdditionalLight{
		Position:      p.position[i],
		Color:         p.color[i],
		Attenuation:   p.attenuation[i],
		SpotDir:       p.spotDir[i],
		FogParams:     p.fogParams[i],
		ShadowParams:  p.shadowParams[i],
		WorldToShadow: p.worldToShadow[i],
	}, true
}

// WriteFrame stores the main light, cascade data and light count in the
// frame block.
func (p *LightPacker) WriteFrame(u *UniformBlock) {
	u.SetVec4(ParamMainLightPosition, p.main.Position)
	u.SetVec4(ParamMainLightColor, p.main.Color)
	u.SetVec4(ParamMainLightFogParams, p.main.FogParams)
	u.SetVec4(ParamMainLightShadowParams, p.main.ShadowParams)
	u.SetVec4(ParamCascadeShadowSplitSpheres0, p.splitSpheres[0])
	u.SetVec4(ParamCascadeShadowSplitSpheres1, p.splitSpheres[1])
	u.SetVec4(ParamCascadeShadowSplitSpheres2, p.splitSpheres[2])
	u.SetVec4(ParamCascadeShadowSplitSpheres3, p.splitSpheres[3])
	u.SetVec4(ParamCascadeShadowSplitSphereRadii, p.splitRadii)
	for i, m := range p.mainWorldToShadow {
		u.SetMat4At(ParamMainLightWorldToShadow, i, m)
	}
	u.SetVec4(ParamAdditionalLightsCount, mgl32.Vec4{float32(p.count), 0, 0, 0})
}

// Marshal writes the additional light arrays into the light block. Entries
// past Count are zeroed.
func (p *LightPacker) Marshal(u *UniformBlock) {
	u.Reset()
	for i := 0; i < p.count; i++ {
		u.SetVec4At(ParamAdditionalLightsPosition, i, p.position[i])
		u.SetVec4At(ParamAdditionalLightsColor, i, p.color[i])
		u.SetVec4At(ParamAdditionalLightsAttenuation, i, p.attenuation[i])
		u.SetVec4At(ParamAdditionalLightsSpotDir, i, p.spotDir[i])
		u.SetVec4At(ParamAdditionalLightsFogParams, i, p.fogParams[i])
		u.SetVec4At(ParamAdditionalShadowParams, i, p.shadowParams[i])
		u.SetMat4At(ParamAdditionalLightsWorldToShadow, i, p.worldToShadow[i])
	}
}
