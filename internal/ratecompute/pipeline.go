// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ratecompute

import "fmt"

// Config holds the full CPU pipeline configuration for one session.
type Config struct {
	Width  int
	Height int

	Importance ImportanceConfig
	Quantize   QuantizeConfig

	// Blend is the temporal smoothing factor in [0, 1].
	Blend float32

	// Hierarchical enables tile analysis with TileSize-pixel tiles;
	// when false the grid has one entry per pixel.
	Hierarchical bool
	TileSize     int
}

// GridSize returns the tier grid dimensions for the configuration.
func (c Config) GridSize() (int, int) {
	if !c.Hierarchical {
		return c.Width, c.Height
	}
	gw := (c.Width + c.TileSize - 1) / c.TileSize
	gh := (c.Height + c.TileSize - 1) / c.TileSize
	return gw, gh
}

// Pipeline sequences the three stages on the CPU. It owns the
// importance map, the tile reduction scratch, the temporal history, and
// the raw/stabilized tier grids for one session.
//
// Pipeline is not safe for concurrent use; the orchestrator serializes
// Update, Reset, and reconfiguration.
type Pipeline struct {
	cfg   Config
	gridW int
	gridH int

	importance []float32 // per pixel, width*height
	tileVals   []float32 // per grid entry, current frame
	rawTiers   []uint8   // quantized before temporal stabilization
	stable     []uint8   // quantized after temporal stabilization
	prevStable []uint8   // previous frame's stabilized tiers

	temporal *TemporalState

	rawCounts    [4]int
	stableCounts [4]int
	changed      int
	frame        uint64
}

// NewPipeline allocates stage storage for the configuration.
func NewPipeline(cfg Config) *Pipeline {
	gw, gh := cfg.GridSize()
	n := gw * gh
	return &Pipeline{
		cfg:        cfg,
		gridW:      gw,
		gridH:      gh,
		importance: make([]float32, cfg.Width*cfg.Height),
		tileVals:   make([]float32, n),
		rawTiers:   make([]uint8, n),
		stable:     make([]uint8, n),
		prevStable: make([]uint8, n),
		temporal:   NewTemporalState(n, cfg.Blend),
	}
}

// Reconfigure applies a new configuration between frames. A change of
// resolution, grid dimensions, or tile size invalidates the temporal
// history; a pure weight/threshold change keeps it.
func (p *Pipeline) Reconfigure(cfg Config) {
	gw, gh := cfg.GridSize()
	resized := gw != p.gridW || gh != p.gridH ||
		cfg.Width != p.cfg.Width || cfg.Height != p.cfg.Height

	p.cfg = cfg
	p.temporal.SetBlend(cfg.Blend)
	if resized {
		p.gridW, p.gridH = gw, gh
		n := gw * gh
		p.importance = make([]float32, cfg.Width*cfg.Height)
		p.tileVals = make([]float32, n)
		p.rawTiers = make([]uint8, n)
		p.stable = make([]uint8, n)
		p.prevStable = make([]uint8, n)
		p.temporal.Resize(n)
		p.frame = 0
	}
}

// validate checks one frame's inputs against the configured resolution.
func (p *Pipeline) validate(frame *Frame) error {
	check := func(name string, im *Image, minCh int) error {
		if im.Width != p.cfg.Width || im.Height != p.cfg.Height {
			return fmt.Errorf("ratecompute: %s buffer is %dx%d, want %dx%d",
				name, im.Width, im.Height, p.cfg.Width, p.cfg.Height)
		}
		if im.Channels < minCh {
			return fmt.Errorf("ratecompute: %s buffer has %d channels, want >= %d",
				name, im.Channels, minCh)
		}
		return nil
	}
	if err := check("color", frame.Color, 3); err != nil {
		return err
	}
	if err := check("normal", frame.Normal, 3); err != nil {
		return err
	}
	if err := check("depth", frame.Depth, 1); err != nil {
		return err
	}
	if frame.Motion != nil {
		if err := check("motion", frame.Motion, 2); err != nil {
			return err
		}
	}
	return nil
}

// Update runs the three stages for one frame. On error no state is
// mutated and the previously published grids remain intact.
func (p *Pipeline) Update(frame *Frame) error {
	if frame == nil || frame.Color == nil || frame.Normal == nil || frame.Depth == nil {
		return fmt.Errorf("ratecompute: color, normal, and depth inputs are required")
	}
	if err := p.validate(frame); err != nil {
		return err
	}

	// Stage 1: importance fusion.
	CalculateImportance(p.importance, frame, p.cfg.Importance)

	// Stage 2: tile reduction + quantization of the raw signal.
	if p.cfg.Hierarchical {
		TileReduceMax(p.tileVals, p.importance, p.cfg.Width, p.cfg.Height, p.cfg.TileSize)
	} else {
		copy(p.tileVals, p.importance)
	}
	p.rawCounts = Quantize(p.rawTiers, p.tileVals, p.cfg.Quantize)

	// Stage 3: temporal smoothing of the continuous signal, then
	// re-quantization with the same rule.
	copy(p.prevStable, p.stable)
	hadHistory := p.temporal.Valid()
	smoothed := p.temporal.Stabilize(p.tileVals)
	useHysteresis := hadHistory && p.cfg.Blend > 0
	p.stableCounts = QuantizeStable(p.stable, smoothed, p.prevStable,
		useHysteresis, StabilizeHysteresis, p.cfg.Quantize)

	if hadHistory {
		p.changed = CountTransitions(p.stable, p.prevStable)
	} else {
		// First frame of a session has no previous decision to differ
		// from.
		p.changed = 0
	}
	p.frame++

	slogger().Debug("ratecompute: frame complete",
		"frame", p.frame,
		"grid", fmt.Sprintf("%dx%d", p.gridW, p.gridH),
		"full", p.stableCounts[TierFull],
		"half", p.stableCounts[TierHalf],
		"quarter", p.stableCounts[TierQuarter],
		"eighth", p.stableCounts[TierEighth],
		"changed", p.changed)
	return nil
}

// InvalidateHistory clears the temporal history and frame counter but
// leaves the published grids intact. Used when a companion copy of the
// history (such as a device-resident one) is lost and both sides must
// restart smoothing from the next frame.
func (p *Pipeline) InvalidateHistory() {
	p.temporal.Reset()
	p.changed = 0
	p.frame = 0
}

// Reset clears the temporal history and frame counter, leaving the
// allocated storage in place. The next Update decides from the current
// frame alone.
func (p *Pipeline) Reset() {
	p.temporal.Reset()
	p.changed = 0
	p.frame = 0
	for i := range p.stable {
		p.stable[i] = TierFull
		p.prevStable[i] = TierFull
		p.rawTiers[i] = TierFull
	}
	p.rawCounts = [4]int{p.gridW * p.gridH}
	p.stableCounts = p.rawCounts
}

// GridSize returns the tier grid dimensions.
func (p *Pipeline) GridSize() (int, int) { return p.gridW, p.gridH }

// Importance returns the latest per-pixel importance map.
// The slice aliases internal storage; treat it as read-only.
func (p *Pipeline) Importance() []float32 { return p.importance }

// TileValues returns the latest per-entry continuous importance
// (post-reduction, pre-smoothing).
func (p *Pipeline) TileValues() []float32 { return p.tileVals }

// RawTiers returns the tier grid before temporal stabilization.
func (p *Pipeline) RawTiers() []uint8 { return p.rawTiers }

// StableTiers returns the stabilized tier grid, the pipeline's output.
func (p *Pipeline) StableTiers() []uint8 { return p.stable }

// SmoothedValues returns the temporally smoothed continuous signal.
func (p *Pipeline) SmoothedValues() []float32 { return p.temporal.History() }

// StableCounts returns the per-tier entry counts of the stabilized grid.
func (p *Pipeline) StableCounts() [4]int { return p.stableCounts }

// RawCounts returns the per-tier entry counts before stabilization.
func (p *Pipeline) RawCounts() [4]int { return p.rawCounts }

// Changed returns the number of grid entries whose stabilized tier
// differs from the previous frame.
func (p *Pipeline) Changed() int { return p.changed }

// Frame returns the number of completed Update calls since construction
// or the last Reset.
func (p *Pipeline) Frame() uint64 { return p.frame }
