package isr

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// DebugMode selects which intermediate result DebugImage renders.
type DebugMode int

const (
	// DebugImportance renders the per-pixel fused importance as a
	// grayscale heat map.
	DebugImportance DebugMode = iota

	// DebugRawTiers renders the pre-stabilization tier grid in false
	// color.
	DebugRawTiers

	// DebugStableTiers renders the stabilized tier grid in false color.
	DebugStableTiers
)

// String returns the human-readable name of the debug mode.
func (m DebugMode) String() string {
	switch m {
	case DebugImportance:
		return "importance"
	case DebugRawTiers:
		return "raw-tiers"
	case DebugStableTiers:
		return "stable-tiers"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// tierColors is the false-color palette for tier visualization. Hot
// colors mark regions shaded at full cost, cool colors mark savings.
var tierColors = [tierCount]color.RGBA{
	TierFull:    {R: 0xE5, G: 0x39, B: 0x35, A: 0xFF},
	TierHalf:    {R: 0xFB, G: 0x8C, B: 0x00, A: 0xFF},
	TierQuarter: {R: 0x43, G: 0xA0, B: 0x47, A: 0xFF},
	TierEighth:  {R: 0x1E, G: 0x88, B: 0xE5, A: 0xFF},
}

// DebugImage renders the selected intermediate result of the most
// recent update as a full-resolution image. Tier grids are upscaled
// with nearest-neighbor sampling so tile boundaries stay sharp.
//
// Requires Config.DebugVisualization; DebugImage is a pure read path
// and never alters pipeline output.
func (p *ISR) DebugImage(mode DebugMode) (*image.RGBA, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrNotReady
	}
	if !p.cfg.DebugVisualization {
		return nil, fmt.Errorf("%w: debug visualization disabled", ErrNotReady)
	}

	switch mode {
	case DebugImportance:
		return p.renderImportance(), nil
	case DebugRawTiers:
		return p.renderTiers(p.pipeline.RawTiers()), nil
	case DebugStableTiers:
		return p.renderTiers(p.pipeline.StableTiers()), nil
	default:
		return nil, fmt.Errorf("isr: unknown debug mode %d", mode)
	}
}

// renderImportance maps fused importance onto a grayscale image.
func (p *ISR) renderImportance() *image.RGBA {
	w, h := p.cfg.Width, p.cfg.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	src := p.pipeline.Importance()
	for i, v := range src {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		g := uint8(v*255 + 0.5)
		o := i * 4
		img.Pix[o] = g
		img.Pix[o+1] = g
		img.Pix[o+2] = g
		img.Pix[o+3] = 0xFF
	}
	return img
}

// renderTiers paints the grid in false color at grid resolution, then
// upscales to the frame resolution.
func (p *ISR) renderTiers(tiers []uint8) *image.RGBA {
	gridW, gridH := p.cfg.GridSize()
	small := image.NewRGBA(image.Rect(0, 0, gridW, gridH))
	for i, t := range tiers {
		c := tierColors[TierFull]
		if int(t) < len(tierColors) {
			c = tierColors[t]
		}
		o := i * 4
		small.Pix[o] = c.R
		small.Pix[o+1] = c.G
		small.Pix[o+2] = c.B
		small.Pix[o+3] = c.A
	}

	if gridW == p.cfg.Width && gridH == p.cfg.Height {
		return small
	}

	full := image.NewRGBA(image.Rect(0, 0, p.cfg.Width, p.cfg.Height))
	draw.NearestNeighbor.Scale(full, full.Bounds(), small, small.Bounds(), draw.Src, nil)
	return full
}
