package isr

// TierGrid is a 2D array of shading tiers, one entry per tile in
// hierarchical mode or one per pixel otherwise. It is the logical
// content of the hardware shading-rate image; encoding into a specific
// hardware rate format is the renderer's concern.
//
// Tiers are stored row-major. The zero value of each entry is TierFull.
type TierGrid struct {
	width  int
	height int
	tiers  []ShadingTier
}

// NewTierGrid creates a grid of width x height entries, all TierFull.
func NewTierGrid(width, height int) *TierGrid {
	return &TierGrid{
		width:  width,
		height: height,
		tiers:  make([]ShadingTier, width*height),
	}
}

// Width returns the grid width in entries.
func (g *TierGrid) Width() int { return g.width }

// Height returns the grid height in entries.
func (g *TierGrid) Height() int { return g.height }

// At returns the tier at (x, y). Out-of-bounds coordinates return
// TierFull so a caller indexing past the grid never coarsens shading.
func (g *TierGrid) At(x, y int) ShadingTier {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return TierFull
	}
	return g.tiers[y*g.width+x]
}

// Set stores a tier at (x, y). Out-of-bounds coordinates are ignored.
func (g *TierGrid) Set(x, y int, t ShadingTier) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return
	}
	g.tiers[y*g.width+x] = t
}

// Tiers returns the underlying row-major tier slice. The slice aliases
// the grid's storage; callers must treat it as read-only.
func (g *TierGrid) Tiers() []ShadingTier { return g.tiers }

// Fill sets every entry to t.
func (g *TierGrid) Fill(t ShadingTier) {
	for i := range g.tiers {
		g.tiers[i] = t
	}
}

// Clone returns a deep copy of the grid.
func (g *TierGrid) Clone() *TierGrid {
	c := NewTierGrid(g.width, g.height)
	copy(c.tiers, g.tiers)
	return c
}

// Counts returns the number of entries at each tier, indexed by
// ShadingTier. The counts always sum to Width*Height.
func (g *TierGrid) Counts() [4]int {
	var counts [4]int
	for _, t := range g.tiers {
		if t < tierCount {
			counts[t]++
		}
	}
	return counts
}
