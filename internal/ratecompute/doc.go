// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ratecompute is the CPU reference implementation of the three
// shading-rate pipeline stages: importance fusion, tier quantization,
// and temporal stabilization.
//
// The package mirrors the WGSL compute shaders in internal/gpu/shaders
// stage for stage and constant for constant. It serves three roles:
//
//   - the software execution path when no GPU device is attached
//   - the source of the published tier grid and statistics in GPU mode
//   - the golden reference for shader behavior in tests
//
// All functions operate on flat float32/uint8 slices in row-major
// order, matching the storage-buffer layouts bound by the shaders.
package ratecompute
