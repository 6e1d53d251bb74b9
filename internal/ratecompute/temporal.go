// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Temporal stabilization: exponential smoothing of the continuous
// per-tile importance signal across frames, followed by re-quantization.
// Smoothing the driving signal instead of the discrete tier avoids
// discontinuous re-quantization artifacts when importance hovers around
// a threshold.
// Mirrors internal/gpu/shaders/temporal.wgsl.

package ratecompute

// TemporalState owns the smoothed-importance history for one pipeline
// session. It is mutated exactly once per frame by Stabilize and
// cleared by Reset; no other writer exists.
type TemporalState struct {
	blend   float32
	history []float32
	valid   bool
}

// NewTemporalState creates history storage for n grid entries with the
// given blend factor in [0, 1].
func NewTemporalState(n int, blend float32) *TemporalState {
	return &TemporalState{
		blend:   blend,
		history: make([]float32, n),
	}
}

// SetBlend updates the blend factor. Must be called between frames.
func (s *TemporalState) SetBlend(blend float32) { s.blend = blend }

// Resize reallocates history for n entries and invalidates it.
func (s *TemporalState) Resize(n int) {
	if len(s.history) != n {
		s.history = make([]float32, n)
	}
	s.valid = false
}

// Valid reports whether history from a previous frame exists.
func (s *TemporalState) Valid() bool { return s.valid }

// History returns the smoothed signal from the latest Stabilize call.
// The slice aliases internal storage; treat it as read-only.
func (s *TemporalState) History() []float32 { return s.history }

// Reset clears the history. Required on scene cuts, resolution changes,
// and camera teleports so stale history never influences the next
// frame's decision.
func (s *TemporalState) Reset() {
	s.valid = false
}

// Stabilize folds the current frame's continuous signal into history
// and returns the smoothed signal for re-quantization:
//
//	smoothed = blend*history + (1-blend)*current
//
// The first call after construction or Reset adopts current verbatim,
// so with blend = 1 the grid freezes at its initial state and with
// blend = 0 history never influences anything.
//
// current must have the same length as the state's history.
func (s *TemporalState) Stabilize(current []float32) []float32 {
	if !s.valid || s.blend == 0 {
		copy(s.history, current)
		s.valid = true
		return s.history
	}

	b := s.blend
	inv := 1 - b
	for i, v := range current {
		s.history[i] = b*s.history[i] + inv*v
	}
	return s.history
}

// StabilizeHysteresis is the half-width of the dead band applied when
// re-quantizing the smoothed signal. Exponential smoothing alone lets a
// signal oscillating symmetrically around a threshold settle into a
// cycle that straddles the boundary forever; the band keeps the
// previous tier whenever the smoothed value sits within it.
const StabilizeHysteresis = 0.01

// QuantizeStable re-quantizes the smoothed signal into dst, holding
// each entry's previous tier while the value stays within hyst of a
// threshold boundary. prev is the previous frame's stabilized grid.
// With hasPrev false or hyst <= 0 this degenerates to plain Quantize,
// which is also the required behavior for blend factor 0 (pure
// current-frame decision). Returns per-tier counts.
func QuantizeStable(dst []uint8, src []float32, prev []uint8, hasPrev bool, hyst float32, cfg QuantizeConfig) [4]int {
	if !hasPrev || hyst <= 0 {
		return Quantize(dst, src, cfg)
	}
	var counts [4]int
	for i, v := range src {
		// TierFor is non-increasing in v, so v+hyst gives the finest
		// justifiable tier and v-hyst the coarsest.
		finest := cfg.TierFor(v + hyst)
		coarsest := cfg.TierFor(v - hyst)
		t := prev[i]
		if t < finest {
			t = finest
		}
		if t > coarsest {
			t = coarsest
		}
		dst[i] = t
		counts[t]++
	}
	return counts
}

// CountTransitions returns the number of positions where a and b hold
// different tiers. Used for the flicker diagnostic in Stats.
func CountTransitions(a, b []uint8) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}
