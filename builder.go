package isr

import "github.com/gogpu/wgpu/hal"

// Builder assembles a pipeline configuration fluently and constructs
// the ISR orchestrator. Unset options keep their DefaultConfig values.
//
//	pipeline, err := isr.Create().
//	    Resolution(2560, 1440).
//	    AdaptiveRange(1, 8).
//	    TemporalBlend(0.9).
//	    Build()
type Builder struct {
	config Config
	device hal.Device
	queue  hal.Queue
}

// Create returns a Builder seeded with DefaultConfig.
func Create() *Builder {
	return &Builder{config: DefaultConfig()}
}

// Resolution sets the frame resolution in pixels.
func (b *Builder) Resolution(width, height int) *Builder {
	b.config.Width = width
	b.config.Height = height
	return b
}

// AdaptiveRange sets the finest and coarsest permitted super-pixel
// sizes, e.g. AdaptiveRange(1, 8) allows the full 1x1..8x8 span while
// AdaptiveRange(1, 1) forces full-rate shading everywhere.
func (b *Builder) AdaptiveRange(minSize, maxSize int) *Builder {
	b.config.MinTier = TierFromPixelSize(minSize)
	b.config.MaxTier = TierFromPixelSize(maxSize)
	return b
}

// TemporalBlend sets the exponential smoothing factor in [0, 1].
func (b *Builder) TemporalBlend(blend float32) *Builder {
	b.config.TemporalBlend = blend
	return b
}

// ImportanceWeights sets the four signal weights.
func (b *Builder) ImportanceWeights(edge, normal, distance, motion float32) *Builder {
	b.config.EdgeWeight = edge
	b.config.NormalWeight = normal
	b.config.DistanceWeight = distance
	b.config.MotionWeight = motion
	return b
}

// Thresholds sets the three tier quantization thresholds.
func (b *Builder) Thresholds(t1x1, t2x2, t4x4 float32) *Builder {
	b.config.Threshold1x1 = t1x1
	b.config.Threshold2x2 = t2x2
	b.config.Threshold4x4 = t4x4
	return b
}

// SilhouetteThreshold sets the edge/normal signal level above which a
// pixel's importance is forced to 1.
func (b *Builder) SilhouetteThreshold(t float32) *Builder {
	b.config.SilhouetteThreshold = t
	return b
}

// Hierarchical toggles fixed-tile analysis; size is the tile edge
// length in pixels (ignored when enable is false).
func (b *Builder) Hierarchical(enable bool, size int) *Builder {
	b.config.Hierarchical = enable
	if size > 0 {
		b.config.TileSize = size
	}
	return b
}

// DebugVisualization toggles the false-color debug image.
func (b *Builder) DebugVisualization(enable bool) *Builder {
	b.config.DebugVisualization = enable
	return b
}

// Device attaches a gogpu/wgpu HAL device and queue. When set, Build
// additionally creates the GPU compute path; construction then fails if
// any shader or pipeline cannot be created. Without a device the
// pipeline runs entirely on the CPU.
func (b *Builder) Device(device hal.Device, queue hal.Queue) *Builder {
	b.device = device
	b.queue = queue
	return b
}

// Config returns the configuration assembled so far.
func (b *Builder) Config() Config { return b.config }

// Build validates the configuration and constructs the pipeline.
func (b *Builder) Build() (*ISR, error) {
	if b.device != nil {
		return New(b.config, WithDevice(b.device, b.queue))
	}
	return New(b.config)
}
