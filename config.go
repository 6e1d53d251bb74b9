package isr

import "fmt"

// Default configuration values. These mirror the tuning the pipeline
// ships with: edge changes dominate importance, silhouettes are always
// shaded at full rate, and history is weighted 90/10 over the current
// frame.
const (
	DefaultEdgeWeight          = 0.4
	DefaultNormalWeight        = 0.3
	DefaultDistanceWeight      = 0.2
	DefaultMotionWeight        = 0.1
	DefaultSilhouetteThreshold = 0.7
	DefaultThreshold1x1        = 0.8
	DefaultThreshold2x2        = 0.5
	DefaultThreshold4x4        = 0.3
	DefaultTemporalBlend       = 0.9
	DefaultTileSize            = 8
	DefaultMaxMotion           = 32.0
)

// Config holds the full pipeline configuration. It is immutable per
// frame: the orchestrator applies a new Config only between Update
// calls, never concurrently with one in flight.
//
// Construct a Config either by struct literal plus Validate, or through
// the fluent [Builder] returned by [Create].
type Config struct {
	// Width and Height are the frame resolution in pixels.
	Width  int
	Height int

	// EdgeWeight scales the color-gradient (edge) signal.
	EdgeWeight float32

	// NormalWeight scales the normal-variation signal.
	NormalWeight float32

	// DistanceWeight scales the inverse camera-distance signal.
	DistanceWeight float32

	// MotionWeight scales the motion-vector magnitude signal. Ignored
	// when a frame carries no motion image.
	MotionWeight float32

	// SilhouetteThreshold forces importance to 1 for any pixel whose
	// edge or normal signal exceeds it. Silhouettes are never coarsened
	// regardless of the weighted sum.
	SilhouetteThreshold float32

	// MaxMotion is the motion-vector magnitude, in pixels per frame,
	// that normalizes the motion signal to 1.
	MaxMotion float32

	// Threshold1x1, Threshold2x2 and Threshold4x4 quantize importance
	// into tiers, evaluated top-down with inclusive boundaries:
	// v >= Threshold1x1 is TierFull, v >= Threshold2x2 is TierHalf,
	// v >= Threshold4x4 is TierQuarter, anything lower is TierEighth.
	// They must satisfy Threshold1x1 >= Threshold2x2 >= Threshold4x4 >= 0.
	Threshold1x1 float32
	Threshold2x2 float32
	Threshold4x4 float32

	// TemporalBlend is the exponential smoothing factor in [0, 1]:
	// smoothed = TemporalBlend*history + (1-TemporalBlend)*current.
	// 0 disables history entirely; 1 freezes the grid at its initial
	// state.
	TemporalBlend float32

	// Hierarchical enables fixed-size tile analysis. When false the
	// pipeline quantizes per pixel and the tier grid has one entry per
	// pixel.
	Hierarchical bool

	// TileSize is the tile edge length in pixels under hierarchical
	// mode. A tile's representative importance is the maximum over its
	// member pixels, so a minority of important pixels is never
	// coarsened away.
	TileSize int

	// MinTier and MaxTier clamp every assigned tier to an adaptive
	// range. Setting both to TierFull disables adaptation and shades
	// everything at full rate, the fallback a renderer selects after
	// sustained per-frame failures.
	MinTier ShadingTier
	MaxTier ShadingTier

	// DebugVisualization enables the false-color debug image produced
	// by DebugImage. A pure read path with no effect on pipeline output.
	DebugVisualization bool
}

// DefaultConfig returns the configuration used when a Builder option is
// left unset.
func DefaultConfig() Config {
	return Config{
		Width:               1920,
		Height:              1080,
		EdgeWeight:          DefaultEdgeWeight,
		NormalWeight:        DefaultNormalWeight,
		DistanceWeight:      DefaultDistanceWeight,
		MotionWeight:        DefaultMotionWeight,
		SilhouetteThreshold: DefaultSilhouetteThreshold,
		MaxMotion:           DefaultMaxMotion,
		Threshold1x1:        DefaultThreshold1x1,
		Threshold2x2:        DefaultThreshold2x2,
		Threshold4x4:        DefaultThreshold4x4,
		TemporalBlend:       DefaultTemporalBlend,
		Hierarchical:        true,
		TileSize:            DefaultTileSize,
		MinTier:             TierFull,
		MaxTier:             TierEighth,
	}
}

// Validate checks every configuration invariant and returns the first
// violation. Validation happens before any GPU resource is created so
// a bad configuration can never leak device memory.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, c.Width, c.Height)
	}
	if c.Threshold4x4 < 0 || c.Threshold2x2 < c.Threshold4x4 || c.Threshold1x1 < c.Threshold2x2 {
		return fmt.Errorf("%w: got %.3f/%.3f/%.3f",
			ErrUnorderedThresholds, c.Threshold1x1, c.Threshold2x2, c.Threshold4x4)
	}
	if c.TemporalBlend < 0 || c.TemporalBlend > 1 {
		return fmt.Errorf("%w: got %.3f", ErrInvalidBlendFactor, c.TemporalBlend)
	}
	if c.EdgeWeight < 0 || c.NormalWeight < 0 || c.DistanceWeight < 0 || c.MotionWeight < 0 {
		return fmt.Errorf("%w: got %.3f/%.3f/%.3f/%.3f",
			ErrInvalidWeight, c.EdgeWeight, c.NormalWeight, c.DistanceWeight, c.MotionWeight)
	}
	if c.MinTier > TierEighth || c.MaxTier > TierEighth || c.MinTier > c.MaxTier {
		return fmt.Errorf("%w: min %s, max %s", ErrInvalidTierRange, c.MinTier, c.MaxTier)
	}
	if c.Hierarchical && c.TileSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTileSize, c.TileSize)
	}
	return nil
}

// GridSize returns the tier grid dimensions for this configuration:
// ceil(resolution / TileSize) under hierarchical mode, the pixel
// resolution otherwise.
func (c Config) GridSize() (w, h int) {
	if !c.Hierarchical {
		return c.Width, c.Height
	}
	w = (c.Width + c.TileSize - 1) / c.TileSize
	h = (c.Height + c.TileSize - 1) / c.TileSize
	return w, h
}
