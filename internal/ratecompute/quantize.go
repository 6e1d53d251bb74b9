// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Tier quantization: tile max-reduction of the importance map and
// threshold mapping to discrete shading tiers.
// Mirrors internal/gpu/shaders/quantize.wgsl.

package ratecompute

// Tier values. These are the numeric encoding shared with the shaders
// and with the public isr.ShadingTier type; the ordering (finer is
// smaller) is load-bearing for the min/max clamp below.
const (
	TierFull    uint8 = 0 // 1x1
	TierHalf    uint8 = 1 // 2x2
	TierQuarter uint8 = 2 // 4x4
	TierEighth  uint8 = 3 // 8x8
)

// QuantizeConfig holds the stage parameters. Thresholds must already be
// validated as ordered (t1x1 >= t2x2 >= t4x4 >= 0).
type QuantizeConfig struct {
	Threshold1x1 float32
	Threshold2x2 float32
	Threshold4x4 float32

	// MinTier and MaxTier clamp every assigned tier to the adaptive
	// range. MinTier == MaxTier == TierFull forces full-rate shading.
	MinTier uint8
	MaxTier uint8
}

// TierFor maps one importance value to a tier, evaluated top-down with
// inclusive boundaries: a value exactly equal to a threshold gets the
// finer tier. The result is clamped to the configured adaptive range.
func (cfg QuantizeConfig) TierFor(v float32) uint8 {
	var t uint8
	switch {
	case v >= cfg.Threshold1x1:
		t = TierFull
	case v >= cfg.Threshold2x2:
		t = TierHalf
	case v >= cfg.Threshold4x4:
		t = TierQuarter
	default:
		t = TierEighth
	}
	if t < cfg.MinTier {
		t = cfg.MinTier
	}
	if t > cfg.MaxTier {
		t = cfg.MaxTier
	}
	return t
}

// TileReduceMax reduces a width x height importance map into a
// gridW x gridH tile map, writing each tile's maximum importance into
// dst. Max aggregation keeps a minority of important pixels inside a
// tile from being coarsened away.
//
// dst must have gridW*gridH elements; gridW/gridH must equal
// ceil(width/tileSize) and ceil(height/tileSize).
func TileReduceMax(dst []float32, importance []float32, width, height, tileSize int) {
	gridW := (width + tileSize - 1) / tileSize
	gridH := (height + tileSize - 1) / tileSize

	for ty := 0; ty < gridH; ty++ {
		for tx := 0; tx < gridW; tx++ {
			var m float32
			y0, y1 := ty*tileSize, (ty+1)*tileSize
			x0, x1 := tx*tileSize, (tx+1)*tileSize
			if y1 > height {
				y1 = height
			}
			if x1 > width {
				x1 = width
			}
			for y := y0; y < y1; y++ {
				row := importance[y*width : y*width+width]
				for x := x0; x < x1; x++ {
					if row[x] > m {
						m = row[x]
					}
				}
			}
			dst[ty*gridW+tx] = m
		}
	}
}

// Quantize maps each value in src to a tier in dst and returns the
// per-tier counts. dst and src must have equal length.
func Quantize(dst []uint8, src []float32, cfg QuantizeConfig) [4]int {
	var counts [4]int
	for i, v := range src {
		t := cfg.TierFor(v)
		dst[i] = t
		counts[t]++
	}
	return counts
}
