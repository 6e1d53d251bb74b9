// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ratecompute

// Image is a flat multi-channel float image, row-major with interleaved
// channels. It is the stage-level view of a frame input buffer; the
// public API wraps the same storage without copying.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// At returns channel c of the pixel at (x, y) with clamp-to-edge
// sampling, matching textureLoad with clamped coordinates in the
// shaders.
func (im *Image) At(x, y, c int) float32 {
	if x < 0 {
		x = 0
	} else if x >= im.Width {
		x = im.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= im.Height {
		y = im.Height - 1
	}
	return im.Pix[(y*im.Width+x)*im.Channels+c]
}

// Frame bundles one frame's input images. Motion may be nil.
type Frame struct {
	Color  *Image
	Normal *Image
	Depth  *Image
	Motion *Image
}
