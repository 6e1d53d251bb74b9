package isr

// Stats is the per-frame statistics snapshot exposed for telemetry and
// HUD display. All fields except UpdateFailures describe the latest
// completed frame only and are recomputed on every Update; nothing is
// accumulated across frames.
type Stats struct {
	// Frame is the number of Update calls that have completed
	// successfully since construction or the last Reset.
	Frame uint64

	// TileCounts is the number of grid entries at each tier, indexed by
	// ShadingTier. The counts always sum to TotalTiles.
	TileCounts [4]int

	// TotalTiles is the number of entries in the tier grid.
	TotalTiles int

	// AveragePixelArea is the mean effective super-pixel area across
	// the grid: 1.0 when everything shades at full rate, 64.0 when
	// everything is at TierEighth under tiles of at least 8 pixels.
	// The area is capped at each entry's pixel cover, so in per-pixel
	// mode it is always 1.0: a coarse tier on a single-pixel entry
	// still shades that pixel.
	AveragePixelArea float32

	// PerformanceGain is the fraction of shading work avoided versus
	// full-rate shading of the whole frame, in [0, 1).
	PerformanceGain float32

	// PixelsSaved is the number of pixels not individually shaded this
	// frame.
	PixelsSaved int

	// TilesChanged is the number of grid entries whose tier differs
	// from the previous frame's stabilized grid. The flicker
	// diagnostic: a well-stabilized static scene holds this near zero.
	TilesChanged int

	// TemporalStability is 1 - TilesChanged/TotalTiles.
	TemporalStability float32

	// UpdateFailures counts Update calls that failed and republished
	// the previous grid. Cumulative since construction; a renderer
	// watching this counter advance can disable the pipeline and fall
	// back to full-rate shading.
	UpdateFailures uint64
}

// computeStats derives the per-frame statistics from a stabilized grid.
// pixelsPerEntry is TileSize^2 under hierarchical mode and 1 otherwise.
// changed is the transition count reported by the temporal stage.
func computeStats(grid *TierGrid, pixelsPerEntry int, changed int) Stats {
	s := Stats{
		TileCounts: grid.Counts(),
		TotalTiles: grid.Width() * grid.Height(),
	}

	// Each grid entry covers pixelsPerEntry pixels; a tier with
	// super-pixel area a shades pixelsPerEntry/a samples of them.
	var shadedSamples, totalPixels float64
	for t := TierFull; t < tierCount; t++ {
		n := float64(s.TileCounts[t])
		area := float64(t.PixelArea())
		cover := float64(pixelsPerEntry)
		if cover < area {
			// A tile smaller than the super-pixel still shades at
			// least one sample.
			area = cover
		}
		shadedSamples += n * cover / area
		totalPixels += n * cover
		s.AveragePixelArea += float32(n * area)
	}
	if s.TotalTiles > 0 {
		s.AveragePixelArea /= float32(s.TotalTiles)
	}
	if totalPixels > 0 {
		s.PerformanceGain = float32(1 - shadedSamples/totalPixels)
		s.PixelsSaved = int(totalPixels - shadedSamples)
	}

	s.TilesChanged = changed
	if s.TotalTiles > 0 {
		s.TemporalStability = 1 - float32(changed)/float32(s.TotalTiles)
	}
	return s
}
