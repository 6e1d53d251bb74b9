package isr

import "fmt"

// ShadingTier is a discrete shading density level. Tiers are strictly
// ordered by decreasing shading density: TierFull shades every sample,
// TierEighth shades one sample per 8x8 block.
//
// The zero value is TierFull, so an uninitialized grid shades at full
// rate rather than silently coarsening.
type ShadingTier uint8

const (
	// TierFull shades at native 1x1 resolution (maximum quality).
	TierFull ShadingTier = iota

	// TierHalf shades one sample per 2x2 block.
	TierHalf

	// TierQuarter shades one sample per 4x4 block.
	TierQuarter

	// TierEighth shades one sample per 8x8 block (minimum quality).
	TierEighth

	// tierCount is the number of shading tiers.
	tierCount
)

// String returns the human-readable name of the tier.
func (t ShadingTier) String() string {
	switch t {
	case TierFull:
		return "1x1"
	case TierHalf:
		return "2x2"
	case TierQuarter:
		return "4x4"
	case TierEighth:
		return "8x8"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// PixelSize returns the edge length of the super-pixel block shaded as
// one sample under this tier: 1, 2, 4 or 8.
func (t ShadingTier) PixelSize() int {
	switch t {
	case TierFull:
		return 1
	case TierHalf:
		return 2
	case TierQuarter:
		return 4
	case TierEighth:
		return 8
	default:
		return 1
	}
}

// PixelArea returns the number of pixels covered by one shaded sample
// under this tier (PixelSize squared).
func (t ShadingTier) PixelArea() int {
	s := t.PixelSize()
	return s * s
}

// SavingsFactor returns the fraction of shading work avoided relative
// to full-rate shading: 0 for TierFull, 1 - 1/64 for TierEighth.
func (t ShadingTier) SavingsFactor() float32 {
	return 1 - 1/float32(t.PixelArea())
}

// Coarser reports whether t shades less densely than other.
func (t ShadingTier) Coarser(other ShadingTier) bool { return t > other }

// Finer reports whether t shades more densely than other.
func (t ShadingTier) Finer(other ShadingTier) bool { return t < other }

// Clamp restricts t to the inclusive range [minTier, maxTier].
// The arguments are not reordered; callers must pass minTier <= maxTier.
func (t ShadingTier) Clamp(minTier, maxTier ShadingTier) ShadingTier {
	if t < minTier {
		return minTier
	}
	if t > maxTier {
		return maxTier
	}
	return t
}

// TierFromPixelSize returns the tier whose super-pixel edge length is
// closest to size without exceeding it. Sizes below 1 map to TierFull,
// sizes of 8 or more map to TierEighth.
func TierFromPixelSize(size int) ShadingTier {
	switch {
	case size >= 8:
		return TierEighth
	case size >= 4:
		return TierQuarter
	case size >= 2:
		return TierHalf
	default:
		return TierFull
	}
}
