// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"math"
)

// Params is the per-frame parameter block shared by all three compute
// stages. It is uploaded as the uniform buffer at group(0) binding(0).
//
// This struct must match the Params struct defined in every WGSL
// shader under shaders/: 21 consecutive 32-bit fields in the same
// order.
type Params struct {
	// Width and Height are the frame resolution in pixels.
	Width  uint32
	Height uint32

	// GridWidth and GridHeight are the tier grid dimensions.
	GridWidth  uint32
	GridHeight uint32

	// TileSize is the tile edge length in pixels (hierarchical mode).
	TileSize uint32

	// Hierarchical is 1 for tile analysis, 0 for per-pixel.
	Hierarchical uint32

	// ColorChannels is the interleaved channel count of the color
	// buffer (3 or 4).
	ColorChannels uint32

	// Signal weights.
	EdgeWeight     float32
	NormalWeight   float32
	DistanceWeight float32
	MotionWeight   float32

	// SilhouetteThreshold forces importance 1 when exceeded by the
	// edge or normal signal.
	SilhouetteThreshold float32

	// MaxMotion normalizes motion magnitude to [0, 1].
	MaxMotion float32

	// Tier thresholds, ordered 1x1 >= 2x2 >= 4x4.
	Threshold1x1 float32
	Threshold2x2 float32
	Threshold4x4 float32

	// Blend is the temporal smoothing factor in [0, 1].
	Blend float32

	// MinTier and MaxTier clamp assigned tiers to the adaptive range.
	MinTier uint32
	MaxTier uint32

	// HasMotion is 1 when a motion buffer was uploaded this frame.
	HasMotion uint32

	// HistoryValid is 1 when the history buffer holds a previous
	// frame's smoothed signal.
	HistoryValid uint32
}

// paramsSize is the byte size of Params: 21 fields * 4 bytes.
const paramsSize = 21 * 4

// toBytes serializes Params to little-endian bytes in shader layout
// order.
func (p Params) toBytes() []byte {
	buf := make([]byte, paramsSize)
	le := binary.LittleEndian
	u := func(off int, v uint32) { le.PutUint32(buf[off:off+4], v) }
	f := func(off int, v float32) { le.PutUint32(buf[off:off+4], math.Float32bits(v)) }

	u(0, p.Width)
	u(4, p.Height)
	u(8, p.GridWidth)
	u(12, p.GridHeight)
	u(16, p.TileSize)
	u(20, p.Hierarchical)
	u(24, p.ColorChannels)
	f(28, p.EdgeWeight)
	f(32, p.NormalWeight)
	f(36, p.DistanceWeight)
	f(40, p.MotionWeight)
	f(44, p.SilhouetteThreshold)
	f(48, p.MaxMotion)
	f(52, p.Threshold1x1)
	f(56, p.Threshold2x2)
	f(60, p.Threshold4x4)
	f(64, p.Blend)
	u(68, p.MinTier)
	u(72, p.MaxTier)
	u(76, p.HasMotion)
	u(80, p.HistoryValid)
	return buf
}

// floatsToBytes serializes a float32 slice to little-endian bytes for
// queue.WriteBuffer uploads.
func floatsToBytes(vals []float32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}
