package robot

import (
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"github.com/swiftbotics/swiftbot/internal/hw/camera"
)

// Frame is one immutable camera image: 640x480, three bytes per pixel,
// BGR byte order. It owns its pixel data outright; the shared capture
// buffer is never aliased, so the producer can keep overwriting it while
// the caller holds the Frame.
type Frame struct {
	pix []byte
}

// newFrame wraps an already-private byte slice. The caller must not
// retain the slice.
func newFrame(pix []byte) Frame {
	return Frame{pix: pix}
}

// NewFrame copies pix into a fresh frame. Input shorter than a full
// frame leaves the remainder black. Useful for synthetic frames.
func NewFrame(pix []byte) Frame {
	buf := make([]byte, camera.FrameBytes)
	copy(buf, pix)
	return Frame{pix: buf}
}

// Width returns the frame width in pixels.
func (f Frame) Width() int { return camera.FrameWidth }

// Height returns the frame height in pixels.
func (f Frame) Height() int { return camera.FrameHeight }

// Bytes returns the raw interleaved BGR pixel data. The slice is the
// frame's backing store and must be treated as read-only.
func (f Frame) Bytes() []byte { return f.pix }

// At returns the pixel color at (x, y).
func (f Frame) At(x, y int) color.RGBA {
	i := (y*camera.FrameWidth + x) * camera.FrameChannels
	return color.RGBA{B: f.pix[i], G: f.pix[i+1], R: f.pix[i+2], A: 0xff}
}

// Image converts the frame to a standard library RGBA image.
func (f Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, camera.FrameWidth, camera.FrameHeight))
	for i, j := 0, 0; i < len(f.pix); i, j = i+3, j+4 {
		img.Pix[j] = f.pix[i+2]   // R
		img.Pix[j+1] = f.pix[i+1] // G
		img.Pix[j+2] = f.pix[i]   // B
		img.Pix[j+3] = 0xff
	}
	return img
}

// EncodeJPEG writes the frame as a JPEG with the given quality (1-100).
func (f Frame) EncodeJPEG(w io.Writer, quality int) error {
	return jpeg.Encode(w, f.Image(), &jpeg.Options{Quality: quality})
}
