// Package render produces lock surface pixels from a media descriptor.
package render

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tuxx/shroudlock/internal/logger"
	"github.com/tuxx/shroudlock/internal/media"
)

// ErrEmptyCanvas is returned when painting a canvas without pixels
var ErrEmptyCanvas = errors.New("canvas has no pixels")

// ShaderPainter runs a shader over a whole canvas
type ShaderPainter interface {
	PaintShader(c *Canvas, s media.Shader) error
}

// ShaderFactory creates the shader backend on first use
type ShaderFactory func() (ShaderPainter, error)

// Dispatcher paints descriptors onto canvases. It is used from the
// orchestrator goroutine only.
type Dispatcher struct {
	newShader   ShaderFactory
	shader      ShaderPainter
	shaderTried bool
}

// NewDispatcher creates a dispatcher. newShader may be nil when no shader
// backend is available, in which case shaders are replaced by the gradient.
func NewDispatcher(newShader ShaderFactory) *Dispatcher {
	return &Dispatcher{newShader: newShader}
}

// Paint fills c with desc. The result depends only on the canvas size and
// the descriptor.
func (d *Dispatcher) Paint(c *Canvas, desc media.Descriptor) error {
	if c == nil || c.Width <= 0 || c.Height <= 0 {
		return ErrEmptyCanvas
	}

	switch m := desc.(type) {
	case media.Solid:
		fillSolid(c, m)
	case *media.Image:
		copyImage(c, m)
	case media.Shader:
		d.paintShader(c, m)
	case media.None:
		fillGradient(c)
	default:
		return fmt.Errorf("unsupported media descriptor %T", desc)
	}
	return nil
}

func (d *Dispatcher) paintShader(c *Canvas, s media.Shader) {
	if !d.shaderTried {
		d.shaderTried = true
		if d.newShader == nil {
			logger.Error("No shader backend available, painting gradient instead of %s", s.Path)
		} else if p, err := d.newShader(); err != nil {
			logger.Error("Failed to initialise shader backend, painting gradient: %v", err)
		} else {
			d.shader = p
		}
	}

	if d.shader == nil {
		fillGradient(c)
		return
	}
	if err := d.shader.PaintShader(c, s); err != nil {
		logger.Error("Shader %s failed, painting gradient: %v", s.Path, err)
		fillGradient(c)
	}
}

func fillSolid(c *Canvas, s media.Solid) {
	packed := uint32(s.A)<<24 | uint32(s.R)<<16 | uint32(s.G)<<8 | uint32(s.B)
	for y := 0; y < c.Height; y++ {
		row := c.Pix[y*c.Stride:]
		for x := 0; x < c.Width; x++ {
			binary.LittleEndian.PutUint32(row[x*BytesPerPixel:], packed)
		}
	}
}

func copyImage(c *Canvas, img *media.Image) {
	src := img.Resized(c.Width, c.Height)
	for y := 0; y < c.Height; y++ {
		s := src.Pix[y*src.Stride:]
		d := c.Pix[y*c.Stride:]
		for x := 0; x < c.Width; x++ {
			i := x * BytesPerPixel
			d[i] = s[i+2]
			d[i+1] = s[i+1]
			d[i+2] = s[i]
			d[i+3] = s[i+3]
		}
	}
}

// Gradient returns the fallback color of pixel (x, y) on a w x h surface.
func Gradient(x, y, w, h int) (r, g, b, a uint8) {
	r = uint8(min((w-x)*255/w, (h-y)*255/h))
	g = uint8(min(x*255/w, (h-y)*255/h))
	b = uint8(min((w-x)*255/w, y*255/h))
	return r, g, b, 255
}

func fillGradient(c *Canvas) {
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			r, g, b, a := Gradient(x, y, c.Width, c.Height)
			c.set(x, y, r, g, b, a)
		}
	}
}
