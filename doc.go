// Package isr implements an Intelligent Shading Rate pipeline for
// variable-rate shading.
//
// # Overview
//
// isr estimates, per screen region, how visually important that region
// is, converts importance into one of four discrete shading tiers, and
// stabilizes tier decisions across frames so that single-frame signal
// noise never causes visible shading-rate popping. The output is a
// shading-rate grid that a renderer binds to a hardware variable-rate
// shading feature: full shading cost is spent only where perceptually
// needed, everything else is coarsened.
//
// # Quick Start
//
//	import "github.com/gogpu/isr"
//
//	pipeline, err := isr.Create().
//	    Resolution(1920, 1080).
//	    ImportanceWeights(0.4, 0.3, 0.2, 0.1).
//	    TemporalBlend(0.9).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pipeline.Close()
//
//	// Per frame:
//	if _, err := pipeline.Update(frame); err != nil {
//	    log.Println("isr: degraded frame:", err)
//	}
//	grid := pipeline.ShadingRateGrid() // bind as hardware rate image
//	stats := pipeline.Stats()          // HUD / telemetry
//
// # Pipeline Stages
//
// Each Update runs three stages in order, each stage's output feeding
// the next:
//
//  1. Importance: fuse edge, normal-variation, camera-distance, and
//     motion signals into a per-pixel importance scalar in [0, 1].
//  2. Quantize: partition the importance map into tiles and map each
//     tile's peak importance to a ShadingTier via ordered thresholds.
//  3. Temporal: blend the continuous importance signal with history
//     from the previous frame and re-quantize, suppressing flicker.
//
// # Backends
//
// The semantic core runs on the CPU (internal/ratecompute) and is
// always available. When a GPU device is supplied via WithDevice, the
// three stages are additionally dispatched as WGSL compute shaders
// through gogpu/wgpu, keeping the stabilized rate buffer GPU-resident
// for zero-copy consumption by the renderer's graphics pipeline.
//
// # Logging
//
// isr produces no log output by default. Call [SetLogger] with a
// log/slog logger to enable diagnostics.
package isr
