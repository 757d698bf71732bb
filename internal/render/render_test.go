package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/tuxx/shroudlock/internal/media"
)

func TestSolidFillByteOrder(t *testing.T) {
	c := NewCanvas(2, 2)
	if err := NewDispatcher(nil).Paint(c, media.Solid{R: 255, G: 0, B: 0, A: 255}); err != nil {
		t.Fatalf("Paint: %v", err)
	}

	want := bytes.Repeat([]byte{0x00, 0x00, 0xFF, 0xFF}, 4)
	if !bytes.Equal(c.Pix, want) {
		t.Fatalf("pixels = % X, want % X", c.Pix, want)
	}
}

func TestGradientCorners(t *testing.T) {
	c := NewCanvas(100, 100)
	if err := NewDispatcher(nil).Paint(c, media.None{}); err != nil {
		t.Fatalf("Paint: %v", err)
	}

	tests := []struct {
		x, y       int
		r, g, b, a uint8
	}{
		{0, 0, 255, 0, 0, 255},
		{99, 99, 2, 2, 2, 255},
		{99, 0, 2, 252, 0, 255},
		{0, 99, 2, 0, 252, 255},
		{50, 50, 127, 127, 127, 255},
	}
	for _, tt := range tests {
		r, g, b, a := c.At(tt.x, tt.y)
		if r != tt.r || g != tt.g || b != tt.b || a != tt.a {
			t.Errorf("pixel (%d,%d) = (%d,%d,%d,%d), want (%d,%d,%d,%d)",
				tt.x, tt.y, r, g, b, a, tt.r, tt.g, tt.b, tt.a)
		}
	}
}

func TestPaintIsRepeatable(t *testing.T) {
	d := NewDispatcher(nil)
	first := NewCanvas(17, 9)
	second := NewCanvas(17, 9)
	for _, c := range []*Canvas{first, second} {
		if err := d.Paint(c, media.None{}); err != nil {
			t.Fatalf("Paint: %v", err)
		}
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Fatalf("gradient differs between identical paints")
	}
}

func TestImageIsResampledAndSwizzled(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xFF})
	img := media.NewImage(src)

	c := NewCanvas(3, 2)
	if err := NewDispatcher(nil).Paint(c, img); err != nil {
		t.Fatalf("Paint: %v", err)
	}

	want := bytes.Repeat([]byte{0x33, 0x22, 0x11, 0xFF}, 6)
	if !bytes.Equal(c.Pix, want) {
		t.Fatalf("pixels = % X, want % X", c.Pix, want)
	}
	if w, h := img.CachedSize(); w != 3 || h != 2 {
		t.Fatalf("cache not replaced, size %dx%d", w, h)
	}
}

type fakeShader struct {
	calls int
	err   error
}

func (f *fakeShader) PaintShader(c *Canvas, s media.Shader) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	fillSolid(c, media.Solid{R: 1, G: 2, B: 3, A: 4})
	return nil
}

func gradientPixel(c *Canvas) bool {
	r, g, b, a := c.At(0, 0)
	return r == 255 && g == 0 && b == 0 && a == 255
}

func TestShaderWithoutBackendPaintsGradient(t *testing.T) {
	c := NewCanvas(4, 4)
	if err := NewDispatcher(nil).Paint(c, media.Shader{Path: "x.wgsl"}); err != nil {
		t.Fatalf("Paint: %v", err)
	}
	if !gradientPixel(c) {
		t.Fatalf("expected gradient fallback")
	}
}

func TestShaderBackendIsCreatedOnce(t *testing.T) {
	shader := &fakeShader{}
	created := 0
	d := NewDispatcher(func() (ShaderPainter, error) {
		created++
		return shader, nil
	})

	for i := 0; i < 3; i++ {
		c := NewCanvas(2, 2)
		if err := d.Paint(c, media.Shader{Path: "x.wgsl"}); err != nil {
			t.Fatalf("Paint: %v", err)
		}
		if r, g, b, a := c.At(1, 1); r != 1 || g != 2 || b != 3 || a != 4 {
			t.Fatalf("shader output not used: %d %d %d %d", r, g, b, a)
		}
	}
	if created != 1 || shader.calls != 3 {
		t.Fatalf("created=%d calls=%d, want 1 and 3", created, shader.calls)
	}
}

func TestShaderFailuresFallBackToGradient(t *testing.T) {
	attempts := 0
	d := NewDispatcher(func() (ShaderPainter, error) {
		attempts++
		return nil, errors.New("no adapter")
	})
	for i := 0; i < 2; i++ {
		c := NewCanvas(4, 4)
		if err := d.Paint(c, media.Shader{}); err != nil {
			t.Fatalf("Paint: %v", err)
		}
		if !gradientPixel(c) {
			t.Fatalf("expected gradient after init failure")
		}
	}
	if attempts != 1 {
		t.Fatalf("factory called %d times, want 1", attempts)
	}

	failing := NewDispatcher(func() (ShaderPainter, error) {
		return &fakeShader{err: errors.New("lost device")}, nil
	})
	c := NewCanvas(4, 4)
	if err := failing.Paint(c, media.Shader{}); err != nil {
		t.Fatalf("Paint: %v", err)
	}
	if !gradientPixel(c) {
		t.Fatalf("expected gradient after draw failure")
	}
}

func TestPaintRejectsEmptyCanvas(t *testing.T) {
	err := NewDispatcher(nil).Paint(&Canvas{}, media.None{})
	if !errors.Is(err, ErrEmptyCanvas) {
		t.Fatalf("expected ErrEmptyCanvas, got %v", err)
	}
}

func TestWrapCanvas(t *testing.T) {
	if _, err := WrapCanvas(make([]byte, 15), 2, 2); err == nil {
		t.Fatalf("expected error for short buffer")
	}
	if _, err := WrapCanvas(nil, 0, 10); !errors.Is(err, ErrEmptyCanvas) {
		t.Fatalf("expected ErrEmptyCanvas, got %v", err)
	}
	c, err := WrapCanvas(make([]byte, 16), 2, 2)
	if err != nil {
		t.Fatalf("WrapCanvas: %v", err)
	}
	if c.Stride != 8 {
		t.Fatalf("stride = %d, want 8", c.Stride)
	}
}
