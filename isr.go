package isr

import (
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"

	igpu "github.com/gogpu/isr/internal/gpu"
	"github.com/gogpu/isr/internal/ratecompute"
)

// Option configures an ISR pipeline during creation.
// Use functional options to customize pipeline behavior.
//
// Example:
//
//	// Software-only analysis
//	p, err := isr.New(cfg)
//
//	// GPU-accelerated analysis on a shared device
//	p, err := isr.New(cfg, isr.WithDevice(device, queue))
type Option func(*pipelineOptions)

// pipelineOptions holds optional configuration for pipeline creation.
type pipelineOptions struct {
	device hal.Device
	queue  hal.Queue
}

// WithDevice attaches a HAL device and queue so Update runs the
// analysis stages on the GPU and keeps the stabilized grid resident in
// device memory for the renderer's rate-encode pass.
//
// The pipeline RECEIVES the device from the host, it does not create
// one. Without this option every stage runs on the CPU.
func WithDevice(device hal.Device, queue hal.Queue) Option {
	return func(o *pipelineOptions) {
		o.device = device
		o.queue = queue
	}
}

// WithDeviceHandle attaches a host DeviceHandle. A convenience wrapper
// over WithDevice for hosts exposing gpucontext.DeviceProvider.
func WithDeviceHandle(h DeviceHandle) Option {
	return func(o *pipelineOptions) {
		if h == nil {
			return
		}
		dev, devOK := h.Device().(hal.Device)
		q, qOK := h.Queue().(hal.Queue)
		if devOK && qOK && dev != nil && q != nil {
			o.device = dev
			o.queue = q
		}
	}
}

// ISR analyzes each rendered frame and produces a grid of shading
// tiers for hardware variable-rate shading. One instance serves one
// render surface; Update is called once per frame before the surface's
// main shading pass.
//
// Methods are safe to call concurrently, but accessors such as
// ShadingRateGrid and ImportanceMap return storage the next Update
// mutates in place; a caller holding a result across frames must copy
// it (see TierGrid.Clone). The intended pattern is a single Update
// caller with readers on other goroutines consuming each frame's
// result before the next Update.
type ISR struct {
	mu sync.Mutex

	cfg Config

	// pipeline is the CPU analysis path. It always runs, serving both
	// as the software fallback and as the source of the published grid
	// and statistics when the GPU path is active.
	pipeline *ratecompute.Pipeline

	// GPU path. Nil without WithDevice.
	dispatcher *igpu.Dispatcher
	bufs       *igpu.Buffers

	grid     *TierGrid
	stats    Stats
	frame    uint64
	failures uint64
	closed   bool
}

// New creates a pipeline for the given configuration. The
// configuration is validated before any resource is created.
func New(config Config, opts ...Option) (*ISR, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var o pipelineOptions
	for _, opt := range opts {
		opt(&o)
	}

	gridW, gridH := config.GridSize()
	p := &ISR{
		cfg:      config,
		pipeline: ratecompute.NewPipeline(computeConfig(config)),
		grid:     NewTierGrid(gridW, gridH),
	}

	if o.device != nil && o.queue != nil {
		d := igpu.NewDispatcher(o.device, o.queue)
		if err := d.Init(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
		}
		p.dispatcher = d
	}

	slogger().Info("isr: pipeline created",
		"resolution", fmt.Sprintf("%dx%d", config.Width, config.Height),
		"grid", fmt.Sprintf("%dx%d", gridW, gridH),
		"hierarchical", config.Hierarchical,
		"gpu", p.dispatcher != nil)

	return p, nil
}

// computeConfig maps the public configuration onto the analysis
// pipeline's configuration.
func computeConfig(c Config) ratecompute.Config {
	return ratecompute.Config{
		Width:  c.Width,
		Height: c.Height,
		Importance: ratecompute.ImportanceConfig{
			EdgeWeight:          c.EdgeWeight,
			NormalWeight:        c.NormalWeight,
			DistanceWeight:      c.DistanceWeight,
			MotionWeight:        c.MotionWeight,
			SilhouetteThreshold: c.SilhouetteThreshold,
			MaxMotion:           c.MaxMotion,
		},
		Quantize: ratecompute.QuantizeConfig{
			Threshold1x1: c.Threshold1x1,
			Threshold2x2: c.Threshold2x2,
			Threshold4x4: c.Threshold4x4,
			MinTier:      uint8(c.MinTier),
			MaxTier:      uint8(c.MaxTier),
		},
		Blend:        c.TemporalBlend,
		Hierarchical: c.Hierarchical,
		TileSize:     c.TileSize,
	}
}

// validateInputs checks one frame's inputs against the configuration.
func (p *ISR) validateInputs(in FrameInputs) error {
	if in.Color == nil || in.Normal == nil || in.Depth == nil {
		return ErrMissingInput
	}
	check := func(name string, im *FloatImage, minChannels int) error {
		if im.Width() != p.cfg.Width || im.Height() != p.cfg.Height {
			return fmt.Errorf("%w: %s is %dx%d, want %dx%d",
				ErrResolutionMismatch, name, im.Width(), im.Height(), p.cfg.Width, p.cfg.Height)
		}
		if im.Channels() < minChannels {
			return fmt.Errorf("%w: %s has %d channels, want at least %d",
				ErrMissingInput, name, im.Channels(), minChannels)
		}
		return nil
	}
	if err := check("color", in.Color, 3); err != nil {
		return err
	}
	if err := check("normal", in.Normal, 3); err != nil {
		return err
	}
	if err := check("depth", in.Depth, 1); err != nil {
		return err
	}
	if in.Motion != nil {
		if err := check("motion", in.Motion, 2); err != nil {
			return err
		}
	}
	return nil
}

// computeFrame converts public frame inputs into the analysis
// pipeline's frame. Pixel storage is shared, not copied.
func computeFrame(in FrameInputs) *ratecompute.Frame {
	img := func(im *FloatImage) *ratecompute.Image {
		if im == nil {
			return nil
		}
		return &ratecompute.Image{
			Width:    im.Width(),
			Height:   im.Height(),
			Channels: im.Channels(),
			Pix:      im.Pix(),
		}
	}
	return &ratecompute.Frame{
		Color:  img(in.Color),
		Normal: img(in.Normal),
		Depth:  img(in.Depth),
		Motion: img(in.Motion),
	}
}

// Update analyzes one frame and refreshes the shading-rate grid.
//
// On failure the previous grid is retained unchanged, the failure
// counter in Stats is incremented, and the error is returned; the
// renderer keeps shading with the slightly stale rates. Sustained
// failures are the caller's signal to fall back to uniform full-rate
// shading.
func (p *ISR) Update(in FrameInputs) (Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.stats, ErrNotReady
	}

	if err := p.validateInputs(in); err != nil {
		return p.degrade(err)
	}

	if err := p.pipeline.Update(computeFrame(in)); err != nil {
		return p.degrade(err)
	}

	if p.dispatcher != nil {
		if err := p.dispatchGPU(in); err != nil {
			// The CPU result is good but the device-resident grid is
			// stale, so the frame still counts as failed. The mirror's
			// history has already absorbed this frame; drop it along
			// with the frame counter so both sides restart smoothing
			// together on the next frame.
			p.pipeline.InvalidateHistory()
			p.frame = 0
			return p.degrade(err)
		}
	}

	// Publish the stabilized grid.
	stable := p.pipeline.StableTiers()
	tiers := p.grid.Tiers()
	for i, t := range stable {
		tiers[i] = ShadingTier(t)
	}

	pixelsPerEntry := 1
	if p.cfg.Hierarchical {
		pixelsPerEntry = p.cfg.TileSize * p.cfg.TileSize
	}
	p.stats = computeStats(p.grid, pixelsPerEntry, p.pipeline.Changed())
	p.stats.Frame = p.frame
	p.stats.UpdateFailures = p.failures
	p.frame++

	slogger().Debug("isr: frame updated",
		"frame", p.stats.Frame,
		"full", p.stats.TileCounts[TierFull],
		"half", p.stats.TileCounts[TierHalf],
		"quarter", p.stats.TileCounts[TierQuarter],
		"eighth", p.stats.TileCounts[TierEighth],
		"gain", p.stats.PerformanceGain)

	return p.stats, nil
}

// degrade records a failed update. Must be called with the mutex held.
func (p *ISR) degrade(err error) (Stats, error) {
	p.failures++
	p.stats.UpdateFailures = p.failures
	slogger().Warn("isr: update failed, keeping previous grid",
		"frame", p.frame,
		"failures", p.failures,
		"error", err)
	return p.stats, err
}

// dispatchGPU uploads the frame and runs the three compute stages.
// Must be called with the mutex held, after a successful CPU update so
// the history-valid flag matches the analysis pipeline's state.
func (p *ISR) dispatchGPU(in FrameInputs) error {
	gridW, gridH := p.cfg.GridSize()
	dims := igpu.Dims{
		Width:         p.cfg.Width,
		Height:        p.cfg.Height,
		GridWidth:     gridW,
		GridHeight:    gridH,
		ColorChannels: in.Color.Channels(),
	}

	if p.bufs == nil || p.bufs.Dims() != dims {
		p.dispatcher.DestroyBuffers(p.bufs)
		bufs, err := p.dispatcher.AllocateBuffers(dims)
		if err != nil {
			p.bufs = nil
			return fmt.Errorf("%w: %v", ErrResourceExhausted, err)
		}
		p.bufs = bufs
	}

	var motion []float32
	if in.Motion != nil {
		motion = in.Motion.Pix()
	}
	p.dispatcher.UploadFrame(p.bufs, in.Color.Pix(), in.Normal.Pix(), in.Depth.Pix(), motion)

	c := p.cfg
	params := igpu.Params{
		Width:               uint32(c.Width),
		Height:              uint32(c.Height),
		GridWidth:           uint32(gridW),
		GridHeight:          uint32(gridH),
		TileSize:            uint32(c.TileSize),
		ColorChannels:       uint32(in.Color.Channels()),
		EdgeWeight:          c.EdgeWeight,
		NormalWeight:        c.NormalWeight,
		DistanceWeight:      c.DistanceWeight,
		MotionWeight:        c.MotionWeight,
		SilhouetteThreshold: c.SilhouetteThreshold,
		MaxMotion:           c.MaxMotion,
		Threshold1x1:        c.Threshold1x1,
		Threshold2x2:        c.Threshold2x2,
		Threshold4x4:        c.Threshold4x4,
		Blend:               c.TemporalBlend,
		MinTier:             uint32(c.MinTier),
		MaxTier:             uint32(c.MaxTier),
	}
	if c.Hierarchical {
		params.Hierarchical = 1
	}
	if in.Motion != nil {
		params.HasMotion = 1
	}
	if p.frame > 0 {
		params.HistoryValid = 1
	}

	return p.dispatcher.Dispatch(p.bufs, params, p.frame)
}

// ShadingRateGrid returns the current stabilized tier grid. The grid
// is owned by the pipeline; callers needing a stable snapshot across
// Update calls should Clone it.
func (p *ISR) ShadingRateGrid() *TierGrid {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.grid
}

// StableRatesBuffer returns the GPU buffer holding the stabilized tier
// grid, one u32 per entry, for the renderer's rate-encode pass. Nil
// when no device is attached or no frame has been dispatched yet.
func (p *ISR) StableRatesBuffer() hal.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bufs == nil {
		return nil
	}
	return p.bufs.StableRates
}

// ImportanceMap returns the per-pixel fused importance of the most
// recent successful update as a single-channel image. The pixel
// storage aliases the pipeline's working buffer.
func (p *ISR) ImportanceMap() *FloatImage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &FloatImage{
		width:    p.cfg.Width,
		height:   p.cfg.Height,
		channels: 1,
		pix:      p.pipeline.Importance(),
	}
}

// Stats returns the statistics of the most recent update.
func (p *ISR) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Config returns the active configuration.
func (p *ISR) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// SetConfig replaces the configuration between frames. The new
// configuration is validated first; on error the old configuration
// stays active. A resolution or grid-geometry change invalidates the
// temporal history and releases the session's GPU buffers so the next
// Update reallocates them.
func (p *ISR) SetConfig(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrNotReady
	}

	oldW, oldH := p.cfg.GridSize()
	newW, newH := config.GridSize()
	gridChanged := oldW != newW || oldH != newH
	// Any geometry change invalidates the mirror's history inside
	// Reconfigure, even when the grid dimensions happen to survive
	// (e.g. a small width change under large tiles). The frame counter
	// and GPU buffers must follow the same rule or the next dispatch
	// claims valid history against freshly zeroed buffers.
	historyLost := gridChanged ||
		config.Width != p.cfg.Width || config.Height != p.cfg.Height

	p.cfg = config
	p.pipeline.Reconfigure(computeConfig(config))

	if gridChanged {
		p.grid = NewTierGrid(newW, newH)
	}
	if historyLost {
		p.frame = 0
		if p.dispatcher != nil && p.bufs != nil {
			p.dispatcher.DestroyBuffers(p.bufs)
			p.bufs = nil
		}
		slogger().Info("isr: reconfigured",
			"grid", fmt.Sprintf("%dx%d", newW, newH),
			"history", "invalidated")
	}

	return nil
}

// Reset clears the temporal history and returns the grid to full rate
// everywhere. The next Update behaves exactly like the first frame
// after creation. Reset of a fresh pipeline is a no-op.
func (p *ISR) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pipeline.Reset()
	p.grid.Fill(TierFull)
	p.frame = 0
	p.stats = Stats{UpdateFailures: p.failures}
	slogger().Debug("isr: reset")
}

// Close releases all GPU resources. The pipeline must not be used
// after Close. Close is idempotent.
func (p *ISR) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.dispatcher != nil {
		p.dispatcher.DestroyBuffers(p.bufs)
		p.bufs = nil
		p.dispatcher.Close()
	}
	p.closed = true
}
