package render

import (
	"fmt"
)

// BytesPerPixel of the ARGB8888 format.
const BytesPerPixel = 4

// Canvas is a little-endian ARGB8888 pixel buffer, so every pixel is stored
// as the bytes B, G, R, A. Pix may be shared memory owned by a surface.
type Canvas struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewCanvas allocates a canvas of the given size
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		Width:  width,
		Height: height,
		Stride: width * BytesPerPixel,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// WrapCanvas uses pix as backing storage for a width x height canvas
func WrapCanvas(pix []byte, width, height int) (*Canvas, error) {
	stride := width * BytesPerPixel
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyCanvas, width, height)
	}
	if len(pix) < stride*height {
		return nil, fmt.Errorf("pixel buffer too small: %d bytes for %dx%d", len(pix), width, height)
	}
	return &Canvas{Width: width, Height: height, Stride: stride, Pix: pix}, nil
}

// At returns the color components of the pixel at (x, y)
func (c *Canvas) At(x, y int) (r, g, b, a uint8) {
	i := y*c.Stride + x*BytesPerPixel
	return c.Pix[i+2], c.Pix[i+1], c.Pix[i], c.Pix[i+3]
}

func (c *Canvas) set(x, y int, r, g, b, a uint8) {
	i := y*c.Stride + x*BytesPerPixel
	c.Pix[i] = b
	c.Pix[i+1] = g
	c.Pix[i+2] = r
	c.Pix[i+3] = a
}

// blend draws an opaque color over (x, y) with the given coverage
func (c *Canvas) blend(x, y int, r, g, b, coverage uint8) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height || coverage == 0 {
		return
	}
	dr, dg, db, _ := c.At(x, y)
	mix := func(src, dst uint8) uint8 {
		return uint8((int(src)*int(coverage) + int(dst)*(255-int(coverage))) / 255)
	}
	c.set(x, y, mix(r, dr), mix(g, dg), mix(b, db), 255)
}
