package isr

import "errors"

// Configuration errors, rejected eagerly by Config.Validate before any
// GPU resource is created.
var (
	// ErrInvalidResolution is returned for zero or negative resolution.
	ErrInvalidResolution = errors.New("isr: resolution must be positive")

	// ErrUnorderedThresholds is returned when the tier thresholds are not
	// monotonically ordered (Threshold1x1 >= Threshold2x2 >= Threshold4x4 >= 0).
	ErrUnorderedThresholds = errors.New("isr: tier thresholds must be ordered 1x1 >= 2x2 >= 4x4 >= 0")

	// ErrInvalidBlendFactor is returned when the temporal blend factor is
	// outside [0, 1].
	ErrInvalidBlendFactor = errors.New("isr: temporal blend factor must be in [0, 1]")

	// ErrInvalidWeight is returned when a signal weight is negative.
	ErrInvalidWeight = errors.New("isr: signal weights must be non-negative")

	// ErrInvalidTierRange is returned when the adaptive range names a tier
	// outside the enum or MinTier is coarser than MaxTier.
	ErrInvalidTierRange = errors.New("isr: invalid adaptive tier range")

	// ErrInvalidTileSize is returned for a non-positive hierarchical tile size.
	ErrInvalidTileSize = errors.New("isr: tile size must be positive")
)

// Runtime errors.
var (
	// ErrNotReady is returned when Update or Reset is called on a closed
	// or never-constructed pipeline.
	ErrNotReady = errors.New("isr: pipeline is not ready")

	// ErrResolutionMismatch is returned when a frame input image does not
	// match the configured resolution. The frame is dropped and the
	// previous shading-rate grid stays published.
	ErrResolutionMismatch = errors.New("isr: frame input resolution does not match configuration")

	// ErrMissingInput is returned when a required frame input (color,
	// normal, or depth) is nil.
	ErrMissingInput = errors.New("isr: color, normal, and depth inputs are required")

	// ErrResourceExhausted is returned when GPU image, buffer, or
	// pipeline allocation fails. Fatal during construction; during
	// Update the pipeline degrades to the previous frame's output.
	ErrResourceExhausted = errors.New("isr: GPU resource allocation failed")
)
