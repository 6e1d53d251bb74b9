// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Importance fusion: per-pixel weighted sum of edge, normal-variation,
// camera-distance, and motion signals, with a silhouette override.
// Mirrors internal/gpu/shaders/importance.wgsl.

package ratecompute

import "math"

// ImportanceConfig holds the stage parameters. Must match the
// importance section of the shader uniform layout.
type ImportanceConfig struct {
	EdgeWeight          float32
	NormalWeight        float32
	DistanceWeight      float32
	MotionWeight        float32
	SilhouetteThreshold float32

	// MaxMotion normalizes motion magnitude (pixels per frame) to [0, 1].
	MaxMotion float32
}

// luminance converts linear RGB to a perceptual brightness scalar
// (Rec. 601 coefficients, matching the shader).
func luminance(r, g, b float32) float32 {
	return 0.299*r + 0.587*g + 0.114*b
}

// lumaAt samples the luminance of the color buffer at (x, y).
func lumaAt(color *Image, x, y int) float32 {
	return luminance(color.At(x, y, 0), color.At(x, y, 1), color.At(x, y, 2))
}

// edgeSignal is the screen-space luminance gradient magnitude at (x, y),
// clamped to [0, 1]. Central differences over a 2-pixel span are used
// without halving so a unit luminance step registers as a full-strength
// edge on both adjacent pixels.
func edgeSignal(color *Image, x, y int) float32 {
	gx := lumaAt(color, x+1, y) - lumaAt(color, x-1, y)
	gy := lumaAt(color, x, y+1) - lumaAt(color, x, y-1)
	return clamp01(float32(math.Sqrt(float64(gx*gx + gy*gy))))
}

// normalSignal is the gradient magnitude of the normal buffer at (x, y),
// clamped to [0, 1]. Normals live in [-1, 1] per channel, so the raw
// magnitude is scaled by 0.5 to bring a fully flipped normal to 1.
func normalSignal(normal *Image, x, y int) float32 {
	var sum float32
	for c := 0; c < 3; c++ {
		gx := normal.At(x+1, y, c) - normal.At(x-1, y, c)
		gy := normal.At(x, y+1, c) - normal.At(x, y-1, c)
		sum += gx*gx + gy*gy
	}
	return clamp01(0.5 * float32(math.Sqrt(float64(sum))))
}

// distanceSignal scores closer geometry higher: depth is normalized
// [0, 1] between near and far planes, so the signal is its inverse.
func distanceSignal(depth *Image, x, y int) float32 {
	return clamp01(1 - depth.At(x, y, 0))
}

// motionSignal is the motion-vector magnitude normalized against the
// maximum expected speed. Zero when no motion buffer is present.
func motionSignal(motion *Image, x, y int, maxMotion float32) float32 {
	if motion == nil || maxMotion <= 0 {
		return 0
	}
	mx := motion.At(x, y, 0)
	my := motion.At(x, y, 1)
	return clamp01(float32(math.Sqrt(float64(mx*mx+my*my))) / maxMotion)
}

// CalculateImportance fills dst with the fused per-pixel importance of
// frame, one float in [0, 1] per pixel in row-major order. dst must
// have width*height elements.
//
// A pixel whose edge or normal signal reaches the silhouette threshold
// is forced to importance 1 regardless of the weighted sum: silhouettes
// are never coarsened.
func CalculateImportance(dst []float32, frame *Frame, cfg ImportanceConfig) {
	color, normal, depth := frame.Color, frame.Normal, frame.Depth
	w, h := color.Width, color.Height

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			edge := edgeSignal(color, x, y)
			nrm := normalSignal(normal, x, y)
			dist := distanceSignal(depth, x, y)
			mot := motionSignal(frame.Motion, x, y, cfg.MaxMotion)

			v := cfg.EdgeWeight*edge +
				cfg.NormalWeight*nrm +
				cfg.DistanceWeight*dist +
				cfg.MotionWeight*mot

			if edge >= cfg.SilhouetteThreshold || nrm >= cfg.SilhouetteThreshold {
				v = 1
			}
			dst[y*w+x] = clamp01(v)
		}
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
