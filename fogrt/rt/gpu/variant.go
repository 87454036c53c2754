package gpu

import (
	"fmt"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
)

// QualityVariant is the compositor kernel variant. Exactly one is active per
// dispatch.
type QualityVariant uint8

const (
	QualityDefault QualityVariant = iota
	QualityLowVariant
	QualityMediumVariant
	QualityHighVariant
	QualityUltraVariant
	QualityOverkillVariant
	qualityVariantCount
)

// SelectQualityVariant maps a tier to its compositor variant. Tiers without
// a dedicated variant, VeryLow included, use QualityDefault.
func SelectQualityVariant(q core.QualityTier) QualityVariant {
	switch q {
	case core.QualityLow:
		return QualityLowVariant
	case core.QualityMedium:
		return QualityMediumVariant
	case core.QualityHigh:
		return QualityHighVariant
	case core.QualityUltra:
		return QualityUltraVariant
	case core.QualityOverkill:
		return QualityOverkillVariant
	}
	return QualityDefault
}

// EntryPoint is the compositor WGSL entry point for the variant.
func (v QualityVariant) EntryPoint() string {
	switch v {
	case QualityLowVariant:
		return "composite_low"
	case QualityMediumVariant:
		return "composite_medium"
	case QualityHighVariant:
		return "composite_high"
	case QualityUltraVariant:
		return "composite_ultra"
	case QualityOverkillVariant:
		return "composite_overkill"
	}
	return "composite_default"
}

func (v QualityVariant) String() string {
	if v >= qualityVariantCount {
		return fmt.Sprintf("QualityVariant(%d)", uint8(v))
	}
	return v.EntryPoint()
}

// QualityVariants lists every compositor variant.
func QualityVariants() []QualityVariant {
	out := make([]QualityVariant, 0, qualityVariantCount)
	for v := QualityDefault; v < qualityVariantCount; v++ {
		out = append(out, v)
	}
	return out
}

// MSAAVariant is the blend shader variant for the depth target's sample count.
type MSAAVariant uint8

const (
	MSAANone MSAAVariant = iota
	MSAA1
	MSAA2
	MSAA4
	MSAA8
	msaaVariantCount
)

// SelectMSAAVariant maps a sample count to its blend variant. Counts other
// than 1, 2, 4 and 8 use MSAANone.
func SelectMSAAVariant(samples int) MSAAVariant {
	switch samples {
	case 1:
		return MSAA1
	case 2:
		return MSAA2
	case 4:
		return MSAA4
	case 8:
		return MSAA8
	}
	return MSAANone
}

// Samples is the depth texture sample count the variant binds.
func (v MSAAVariant) Samples() uint32 {
	switch v {
	case MSAA2:
		return 2
	case MSAA4:
		return 4
	case MSAA8:
		return 8
	}
	return 1
}

// Multisampled reports whether the variant reads a multisampled depth texture.
func (v MSAAVariant) Multisampled() bool {
	return v.Samples() > 1
}

// EntryPoint is the blend fragment entry point for the variant.
func (v MSAAVariant) EntryPoint() string {
	switch v {
	case MSAA1:
		return "fs_blend_msaa1"
	case MSAA2:
		return "fs_blend_msaa2"
	case MSAA4:
		return "fs_blend_msaa4"
	case MSAA8:
		return "fs_blend_msaa8"
	}
	return "fs_blend"
}

func (v MSAAVariant) String() string {
	if v >= msaaVariantCount {
		return fmt.Sprintf("MSAAVariant(%d)", uint8(v))
	}
	return v.EntryPoint()
}

func MSAAVariants() []MSAAVariant {
	out := make([]MSAAVariant, 0, msaaVariantCount)
	for v := MSAANone; v < msaaVariantCount; v++ {
		out = append(out, v)
	}
	return out
}
