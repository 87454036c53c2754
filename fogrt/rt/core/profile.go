package core

import (
	"fmt"
	"math"
	"strings"
)

// QualityTier selects the froxel slice count. The value is the slice count.
type QualityTier int

const (
	QualityVeryLow  QualityTier = 16
	QualityLow      QualityTier = 32
	QualityMedium   QualityTier = 64
	QualityHigh     QualityTier = 96
	QualityUltra    QualityTier = 128
	QualityOverkill QualityTier = 256
)

// DefaultSlices is used for tiers that are not one of the named constants.
const DefaultSlices = 64

func (q QualityTier) Valid() bool {
	switch q {
	case QualityVeryLow, QualityLow, QualityMedium, QualityHigh, QualityUltra, QualityOverkill:
		return true
	}
	return false
}

// Slices returns the froxel grid depth for the tier.
func (q QualityTier) Slices() uint32 {
	if !q.Valid() {
		return DefaultSlices
	}
	return uint32(q)
}

func (q QualityTier) String() string {
	switch q {
	case QualityVeryLow:
		return "verylow"
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	case QualityUltra:
		return "ultra"
	case QualityOverkill:
		return "overkill"
	}
	return fmt.Sprintf("QualityTier(%d)", int(q))
}

func ParseQualityTier(s string) (QualityTier, error) {
	switch strings.ToLower(s) {
	case "verylow", "very_low":
		return QualityVeryLow, nil
	case "low":
		return QualityLow, nil
	case "", "medium":
		return QualityMedium, nil
	case "high":
		return QualityHigh, nil
	case "ultra":
		return QualityUltra, nil
	case "overkill":
		return QualityOverkill, nil
	}
	return QualityMedium, fmt.Errorf("unknown quality tier %q", s)
}

// RenderFlags selects which contribution sources the sampler runs.
type RenderFlags uint32

const (
	RenderNone     RenderFlags = 0
	RenderRealtime RenderFlags = 1
	RenderBaked    RenderFlags = 2
	RenderAll      RenderFlags = ^RenderFlags(0)
)

func (f RenderFlags) Has(flag RenderFlags) bool {
	return f&flag != 0
}

// Profile is the global post process override. A nil *Profile means defaults.
type Profile struct {
	Density    float32
	Scattering float32
}

func DefaultProfile() Profile {
	return Profile{Density: 1, Scattering: 0.5}
}

// Clamped enforces density >= 0 and scattering in [0, 1].
func (p Profile) Clamped() Profile {
	if p.Density < 0 || isNaN(p.Density) {
		p.Density = 0
	}
	p.Scattering = clamp01(p.Scattering)
	return p
}

func (p Profile) IsActive() bool {
	return p.Density > 0
}

// CameraData is the per camera fog configuration.
type CameraData struct {
	Enabled      bool
	Percent      float32
	Downsampling int
	Quality      QualityTier
	Steps        int
	Far          float32
	Density      float32
	Scattering   float32
	Flags        RenderFlags
}

func DefaultCameraData() CameraData {
	return CameraData{
		Enabled:      true,
		Percent:      0.25,
		Downsampling: 0,
		Quality:      QualityMedium,
		Far:          50,
		Density:      1,
		Scattering:   0.5,
		Flags:        RenderAll,
	}
}

// MaxDownsampling caps the downsample exponent.
const MaxDownsampling = 8

// DownsampleFactor is 2^Downsampling, with the exponent clamped to [0, MaxDownsampling].
func (c CameraData) DownsampleFactor() uint32 {
	e := c.Downsampling
	if e < 0 {
		e = 0
	}
	if e > MaxDownsampling {
		e = MaxDownsampling
	}
	return 1 << uint(e)
}

// Slices is the grid depth: Steps when set, otherwise the tier's slice count.
func (c CameraData) Slices() uint32 {
	if c.Steps > 0 {
		return uint32(c.Steps)
	}
	return c.Quality.Slices()
}

// GridSize computes the froxel grid for a viewport. Width and height are
// scaled by Percent (rounded up), then divided by the downsample factor.
// No dimension is ever zero.
func (c CameraData) GridSize(viewW, viewH uint32) (w, h, d uint32) {
	pct := c.Percent
	if pct <= 0 || pct > 1 || isNaN(pct) {
		pct = 1
	}
	f := c.DownsampleFactor()
	w = uint32(math.Ceil(float64(viewW)*float64(pct))) / f
	h = uint32(math.Ceil(float64(viewH)*float64(pct))) / f
	d = c.Slices()
	return max(w, 1), max(h, 1), max(d, 1)
}

// FogParams are the scalars shared by every kernel of one frame.
type FogParams struct {
	Steps      float32
	Far        float32
	Density    float32
	Scattering float32
}

// ResolveFog picks density and scattering from the profile when present,
// otherwise from the camera. The second result is false when the effect
// is inactive for the frame.
func ResolveFog(cam CameraData, profile *Profile) (FogParams, bool) {
	p := Profile{Density: cam.Density, Scattering: cam.Scattering}
	if profile != nil {
		p = *profile
	}
	p = p.Clamped()
	far := cam.Far
	if far <= 0 || isNaN(far) {
		far = DefaultCameraData().Far
	}
	fp := FogParams{
		Steps:      float32(cam.Slices()),
		Far:        far,
		Density:    p.Density,
		Scattering: p.Scattering,
	}
	return fp, p.IsActive()
}

func clamp01(v float32) float32 {
	if isNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isNaN(v float32) bool {
	return v != v
}
