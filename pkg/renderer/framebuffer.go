package renderer

import (
	"image"
	"image/color"
	"math"

	"github.com/df07/go-scanline-raytracer/pkg/core"
)

// bytesPerPixel is the size of one RGBA pixel in the buffer
const bytesPerPixel = 4

// intensity is the range a gamma-corrected channel is clamped to before scaling
var intensity = core.NewInterval(0, 0.999)

// FrameBuffer is the shared RGBA output image. Each row is a disjoint slice
// of the pixel array, so workers can write different rows without locking.
type FrameBuffer struct {
	img *image.RGBA
}

// NewFrameBuffer creates a zeroed buffer of width x height pixels
func NewFrameBuffer(width, height int) *FrameBuffer {
	return &FrameBuffer{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the image width in pixels
func (fb *FrameBuffer) Width() int { return fb.img.Rect.Dx() }

// Height returns the image height in pixels
func (fb *FrameBuffer) Height() int { return fb.img.Rect.Dy() }

// Image returns the underlying image. It must not be read while a render is
// writing to it.
func (fb *FrameBuffer) Image() *image.RGBA { return fb.img }

// Row returns the bytes of row y, starting at byte offset y*width*4
func (fb *FrameBuffer) Row(y int) []byte {
	start := y * fb.img.Stride
	return fb.img.Pix[start : start+fb.Width()*bytesPerPixel : start+fb.Width()*bytesPerPixel]
}

// RowImage copies row y into a standalone 1-pixel-high image
func (fb *FrameBuffer) RowImage(y int) *image.RGBA {
	rowImage := image.NewRGBA(image.Rect(0, 0, fb.Width(), 1))
	copy(rowImage.Pix, fb.Row(y))
	return rowImage
}

// EncodeChannel converts a linear color component to an 8-bit value: gamma 2
// correction, clamped to [0, 0.999] and scaled by 256. NaN and negative
// values encode as 0.
func EncodeChannel(c float64) uint8 {
	if math.IsNaN(c) || c <= 0 {
		return 0
	}
	return uint8(256 * intensity.Clamp(math.Sqrt(c)))
}

// ColorToRGBA encodes a linear color as an opaque pixel
func ColorToRGBA(c core.Vec3) color.RGBA {
	return color.RGBA{
		R: EncodeChannel(c.X),
		G: EncodeChannel(c.Y),
		B: EncodeChannel(c.Z),
		A: 255,
	}
}

// WritePixel encodes c into pixel x of a row slice
func WritePixel(row []byte, x int, c core.Vec3) {
	rgba := ColorToRGBA(c)
	offset := x * bytesPerPixel
	row[offset+0] = rgba.R
	row[offset+1] = rgba.G
	row[offset+2] = rgba.B
	row[offset+3] = rgba.A
}
