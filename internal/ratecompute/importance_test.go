// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ratecompute

import (
	"math"
	"testing"
)

// uniformImage builds a w x h image with every channel of every pixel
// set to v.
func uniformImage(w, h, ch int, v float32) *Image {
	im := &Image{Width: w, Height: h, Channels: ch, Pix: make([]float32, w*h*ch)}
	for i := range im.Pix {
		im.Pix[i] = v
	}
	return im
}

// stepColor builds a grayscale color image that jumps from 0 to 1 at
// column at.
func stepColor(w, h, at int) *Image {
	im := &Image{Width: w, Height: h, Channels: 3, Pix: make([]float32, w*h*3)}
	for y := 0; y < h; y++ {
		for x := at; x < w; x++ {
			o := (y*w + x) * 3
			im.Pix[o] = 1
			im.Pix[o+1] = 1
			im.Pix[o+2] = 1
		}
	}
	return im
}

func uniformFrame(w, h int, depth float32) *Frame {
	return &Frame{
		Color:  uniformImage(w, h, 3, 0.5),
		Normal: uniformImage(w, h, 3, 0),
		Depth:  uniformImage(w, h, 1, depth),
	}
}

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestLuminance(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float32
		want    float32
	}{
		{"black", 0, 0, 0, 0},
		{"white", 1, 1, 1, 1},
		{"red", 1, 0, 0, 0.299},
		{"green", 0, 1, 0, 0.587},
		{"blue", 0, 0, 1, 0.114},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := luminance(tt.r, tt.g, tt.b)
			if !almostEqual(got, tt.want) {
				t.Errorf("luminance(%v, %v, %v) = %v, want %v", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestEdgeSignalUniform(t *testing.T) {
	color := uniformImage(8, 8, 3, 0.5)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got := edgeSignal(color, x, y); got != 0 {
				t.Fatalf("edgeSignal(%d, %d) = %v on uniform image, want 0", x, y, got)
			}
		}
	}
}

func TestEdgeSignalStep(t *testing.T) {
	// Luminance jumps 0 -> 1 between columns 3 and 4. Both pixels
	// adjacent to the step see the full gradient.
	color := stepColor(8, 4, 4)

	if got := edgeSignal(color, 3, 1); !almostEqual(got, 1) {
		t.Errorf("edgeSignal left of step = %v, want 1", got)
	}
	if got := edgeSignal(color, 4, 1); !almostEqual(got, 1) {
		t.Errorf("edgeSignal right of step = %v, want 1", got)
	}
	if got := edgeSignal(color, 1, 1); got != 0 {
		t.Errorf("edgeSignal far from step = %v, want 0", got)
	}
}

func TestNormalSignal(t *testing.T) {
	// Flat normals give zero signal.
	flat := uniformImage(8, 8, 3, 0.5)
	if got := normalSignal(flat, 4, 4); got != 0 {
		t.Errorf("normalSignal on flat normals = %v, want 0", got)
	}

	// A normal flip from (0,0,1) to (0,0,-1) across a column is a
	// gradient of 2 on one channel, scaled by 0.5 to saturate at 1.
	flip := &Image{Width: 8, Height: 4, Channels: 3, Pix: make([]float32, 8*4*3)}
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			z := float32(1)
			if x >= 4 {
				z = -1
			}
			flip.Pix[(y*8+x)*3+2] = z
		}
	}
	if got := normalSignal(flip, 3, 1); !almostEqual(got, 1) {
		t.Errorf("normalSignal at flip = %v, want 1", got)
	}
}

func TestDistanceSignal(t *testing.T) {
	tests := []struct {
		name  string
		depth float32
		want  float32
	}{
		{"near plane", 0, 1},
		{"far plane", 1, 0},
		{"midway", 0.25, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := uniformImage(4, 4, 1, tt.depth)
			if got := distanceSignal(im, 2, 2); !almostEqual(got, tt.want) {
				t.Errorf("distanceSignal(depth=%v) = %v, want %v", tt.depth, got, tt.want)
			}
		})
	}
}

func TestMotionSignal(t *testing.T) {
	motion := &Image{Width: 4, Height: 4, Channels: 2, Pix: make([]float32, 4*4*2)}
	motion.Pix[(1*4+1)*2] = 3
	motion.Pix[(1*4+1)*2+1] = 4 // magnitude 5

	tests := []struct {
		name      string
		im        *Image
		maxMotion float32
		want      float32
	}{
		{"nil buffer", nil, 32, 0},
		{"zero max", motion, 0, 0},
		{"normalized", motion, 10, 0.5},
		{"saturated", motion, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := motionSignal(tt.im, 1, 1, tt.maxMotion); !almostEqual(got, tt.want) {
				t.Errorf("motionSignal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateImportanceWeightedSum(t *testing.T) {
	// Uniform color and normals contribute zero; only the distance
	// signal is live. depth 0.25 -> distance 0.75, weighted by 0.4.
	frame := uniformFrame(4, 4, 0.25)
	cfg := ImportanceConfig{
		EdgeWeight:          0.3,
		NormalWeight:        0.2,
		DistanceWeight:      0.4,
		MotionWeight:        0.1,
		SilhouetteThreshold: 2, // unreachable
		MaxMotion:           32,
	}

	dst := make([]float32, 16)
	CalculateImportance(dst, frame, cfg)
	for i, v := range dst {
		if !almostEqual(v, 0.3) {
			t.Fatalf("importance[%d] = %v, want 0.3", i, v)
		}
	}
}

func TestCalculateImportanceSilhouetteOverride(t *testing.T) {
	// All weights zero, so the weighted sum is 0 everywhere. The
	// silhouette override must still force step pixels to 1.
	frame := &Frame{
		Color:  stepColor(8, 4, 4),
		Normal: uniformImage(8, 4, 3, 0),
		Depth:  uniformImage(8, 4, 1, 1),
	}
	cfg := ImportanceConfig{SilhouetteThreshold: 0.5, MaxMotion: 32}

	dst := make([]float32, 32)
	CalculateImportance(dst, frame, cfg)

	if got := dst[1*8+3]; got != 1 {
		t.Errorf("importance left of silhouette = %v, want 1", got)
	}
	if got := dst[1*8+4]; got != 1 {
		t.Errorf("importance right of silhouette = %v, want 1", got)
	}
	if got := dst[1*8+1]; got != 0 {
		t.Errorf("importance away from silhouette = %v, want 0", got)
	}
}

func TestCalculateImportanceMonotonicInDistance(t *testing.T) {
	cfg := ImportanceConfig{DistanceWeight: 1, SilhouetteThreshold: 2, MaxMotion: 32}
	dst := make([]float32, 16)

	var prev float32 = -1
	for _, depth := range []float32{1, 0.75, 0.5, 0.25, 0} {
		CalculateImportance(dst, uniformFrame(4, 4, depth), cfg)
		if dst[0] < prev {
			t.Fatalf("importance decreased from %v to %v as geometry got closer", prev, dst[0])
		}
		prev = dst[0]
	}
}

func TestCalculateImportanceClamped(t *testing.T) {
	// Oversized weights must not push importance past 1.
	frame := uniformFrame(4, 4, 0)
	cfg := ImportanceConfig{DistanceWeight: 5, SilhouetteThreshold: 2, MaxMotion: 32}

	dst := make([]float32, 16)
	CalculateImportance(dst, frame, cfg)
	for i, v := range dst {
		if v < 0 || v > 1 {
			t.Fatalf("importance[%d] = %v out of [0, 1]", i, v)
		}
	}
}
