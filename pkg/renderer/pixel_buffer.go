package renderer

import (
	"image"
	"image/color"

	"github.com/df07/go-tile-pathtracer/pkg/core"
)

// PixelBuffer holds averaged linear radiance per pixel, row-major from the top-left.
// Tiles write disjoint regions, so concurrent tiles need no locking.
type PixelBuffer struct {
	Width  int
	Height int
	Pixels []core.Vec3
}

// NewPixelBuffer creates a black buffer
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pixels: make([]core.Vec3, width*height),
	}
}

// At returns the radiance stored for pixel (x, y)
func (pb *PixelBuffer) At(x, y int) core.Vec3 {
	return pb.Pixels[y*pb.Width+x]
}

// Set stores the radiance for pixel (x, y)
func (pb *PixelBuffer) Set(x, y int, c core.Vec3) {
	pb.Pixels[y*pb.Width+x] = c
}

// ToRGBA clamps a radiance value to [0,1] and truncates it to 8 bits per channel
func ToRGBA(c core.Vec3) color.RGBA {
	c = c.Clamp(0, 1)
	return color.RGBA{
		R: uint8(255 * c.X),
		G: uint8(255 * c.Y),
		B: uint8(255 * c.Z),
		A: 255,
	}
}

// ToImage converts the buffer to an 8-bit image
func (pb *PixelBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, pb.Width, pb.Height))
	for y := 0; y < pb.Height; y++ {
		for x := 0; x < pb.Width; x++ {
			img.SetRGBA(x, y, ToRGBA(pb.At(x, y)))
		}
	}
	return img
}
