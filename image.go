package isr

// FloatImage is a CPU-visible multi-channel float image. It is the
// exchange format for the per-frame inputs the host renderer hands to
// the pipeline (color, normal, depth, motion) and for the importance
// map the pipeline produces.
//
// Pixels are stored row-major with interleaved channels:
// pix[(y*width+x)*channels + c].
type FloatImage struct {
	width    int
	height   int
	channels int
	pix      []float32
}

// NewFloatImage creates a zero-filled image.
func NewFloatImage(width, height, channels int) *FloatImage {
	return &FloatImage{
		width:    width,
		height:   height,
		channels: channels,
		pix:      make([]float32, width*height*channels),
	}
}

// Width returns the image width in pixels.
func (im *FloatImage) Width() int { return im.width }

// Height returns the image height in pixels.
func (im *FloatImage) Height() int { return im.height }

// Channels returns the number of interleaved channels per pixel.
func (im *FloatImage) Channels() int { return im.channels }

// Pix returns the underlying pixel storage. The slice aliases the
// image; treat it as read-only unless the image is owned by the caller.
func (im *FloatImage) Pix() []float32 { return im.pix }

// At returns channel c of the pixel at (x, y). Coordinates are clamped
// to the image bounds, giving gradient kernels clamp-to-edge sampling
// without per-call branching at every use site.
func (im *FloatImage) At(x, y, c int) float32 {
	if x < 0 {
		x = 0
	} else if x >= im.width {
		x = im.width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= im.height {
		y = im.height - 1
	}
	return im.pix[(y*im.width+x)*im.channels+c]
}

// Set stores v into channel c of the pixel at (x, y).
// Out-of-bounds coordinates are ignored.
func (im *FloatImage) Set(x, y, c int, v float32) {
	if x < 0 || y < 0 || x >= im.width || y >= im.height || c < 0 || c >= im.channels {
		return
	}
	im.pix[(y*im.width+x)*im.channels+c] = v
}

// FrameInputs carries one frame's input images, borrowed from the
// renderer for the duration of a single Update call. All images must
// share the configured resolution and are read-only to the pipeline.
//
// Motion is optional. When nil, the motion signal contributes zero to
// importance regardless of the configured motion weight.
type FrameInputs struct {
	// Color is the frame color buffer. At least 3 channels (RGB);
	// a fourth channel is ignored.
	Color *FloatImage

	// Normal is the view-space normal buffer, 3 channels in [-1, 1].
	Normal *FloatImage

	// Depth is the scene depth buffer, 1 channel, normalized to [0, 1]
	// between the camera near and far planes.
	Depth *FloatImage

	// Motion is the screen-space motion-vector buffer, 2 channels in
	// pixels per frame. Nil when the renderer does not produce one.
	Motion *FloatImage
}
