package core

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// LightID identifies a host light across frames.
type LightID uint64

type LightKind uint8

const (
	LightDirectional LightKind = iota
	LightPoint
	LightSpot
)

func (k LightKind) String() string {
	switch k {
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	case LightSpot:
		return "spot"
	}
	return fmt.Sprintf("LightKind(%d)", uint8(k))
}

// LightMode decides which fog source a light feeds.
type LightMode uint8

const (
	LightModeDisabled LightMode = iota
	LightModeRealtime
	LightModeBaked
)

func (m LightMode) String() string {
	switch m {
	case LightModeDisabled:
		return "disabled"
	case LightModeRealtime:
		return "realtime"
	case LightModeBaked:
		return "baked"
	}
	return fmt.Sprintf("LightMode(%d)", uint8(m))
}

// ParseLightMode accepts the names produced by String.
func ParseLightMode(s string) (LightMode, error) {
	switch s {
	case "", "disabled":
		return LightModeDisabled, nil
	case "realtime":
		return LightModeRealtime, nil
	case "baked":
		return LightModeBaked, nil
	}
	return LightModeDisabled, fmt.Errorf("unknown light mode %q", s)
}

// VisibleLight is one entry of the host's per-frame visible light list.
type VisibleLight struct {
	ID             LightID
	Kind           LightKind
	Position       mgl32.Vec3
	Forward        mgl32.Vec3
	FinalColor     mgl32.Vec3 // color * intensity
	Intensity      float32
	Range          float32
	SpotAngle      float32 // outer, degrees
	InnerSpotAngle float32 // degrees
	Shadows        bool
}

// LightList is the visible light list with the main light's index (-1 for none).
type LightList struct {
	Lights         []VisibleLight
	MainLightIndex int
}

func (l LightList) Main() (VisibleLight, bool) {
	if l.MainLightIndex < 0 || l.MainLightIndex >= len(l.Lights) {
		return VisibleLight{}, false
	}
	return l.Lights[l.MainLightIndex], true
}

// LightData is the per-light fog configuration kept alongside each host light.
type LightData struct {
	Mode            LightMode
	SyncIntensity   bool
	Intensity       float32
	Power           float32
	LayerMask       uint32
	ShadowLayerMask uint32
}

func DefaultLightData() LightData {
	return LightData{
		Mode:            LightModeDisabled,
		SyncIntensity:   true,
		Intensity:       1,
		Power:           1,
		LayerMask:       ^uint32(0),
		ShadowLayerMask: ^uint32(0),
	}
}

// Enabled is the boolean view of Mode used by realtime-only consumers.
func (d LightData) Enabled() bool {
	return d.Mode == LightModeRealtime
}

// FogColor returns the color a light contributes to fog. When intensity is
// not synced, the light's own intensity is divided out and replaced by the
// fog intensity.
func (d LightData) FogColor(l VisibleLight) mgl32.Vec3 {
	if d.SyncIntensity {
		return l.FinalColor
	}
	if l.Intensity <= 0 {
		return mgl32.Vec3{}
	}
	return l.FinalColor.Mul(1.0 / l.Intensity).Mul(d.Intensity)
}

// LightTable maps light IDs to their fog configuration. It is filled at
// scene load so the frame loop only reads it.
type LightTable struct {
	mu      sync.RWMutex
	entries map[LightID]LightData
}

func NewLightTable() *LightTable {
	return &LightTable{entries: make(map[LightID]LightData)}
}

func (t *LightTable) Set(id LightID, d LightData) {
	t.mu.Lock()
	t.entries[id] = d
	t.mu.Unlock()
}

func (t *LightTable) Delete(id LightID) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

// Get returns the configuration for id, or the defaults when none was set.
func (t *LightTable) Get(id LightID) LightData {
	if t == nil {
		return DefaultLightData()
	}
	t.mu.RLock()
	d, ok := t.entries[id]
	t.mu.RUnlock()
	if !ok {
		return DefaultLightData()
	}
	return d
}

func (t *LightTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// MainShadowCascades is the number of main light shadow cascades.
const MainShadowCascades = 4

// ShadowData is what the host's shadow caster passes hand over each frame.
type ShadowData struct {
	MainShadowmap           any
	MainWorldToShadow       [MainShadowCascades + 1]mgl32.Mat4
	CascadeSplitSpheres     [MainShadowCascades]mgl32.Vec4 // xyz center, w radius
	AdditionalShadowmap     any
	AdditionalShadowParams  []mgl32.Vec4 // per visible light: strength, soft, slice, pad
	AdditionalWorldToShadow []mgl32.Mat4
}

// CascadeRadiiSquared packs the squared split sphere radii.
func (s *ShadowData) CascadeRadiiSquared() mgl32.Vec4 {
	var r mgl32.Vec4
	for i := 0; i < MainShadowCascades; i++ {
		w := s.CascadeSplitSpheres[i].W()
		r[i] = w * w
	}
	return r
}
