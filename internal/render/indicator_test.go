package render

import (
	"bytes"
	"testing"
)

func TestIndicatorCaption(t *testing.T) {
	tests := []struct {
		ind  Indicator
		want string
	}{
		{Indicator{}, ""},
		{Indicator{Length: 4}, ""},
		{Indicator{Failures: 1}, "1 failed attempt"},
		{Indicator{Failures: 3}, "3 failed attempts"},
		{Indicator{Failures: 3, Notice: "Try again in 00:30"}, "Try again in 00:30"},
	}
	for _, tt := range tests {
		if got := tt.ind.Caption(); got != tt.want {
			t.Errorf("%+v: caption %q, want %q", tt.ind, got, tt.want)
		}
	}
}

func TestDrawIndicatorDot(t *testing.T) {
	c := NewCanvas(100, 100)
	DrawIndicator(c, Indicator{Length: 1})

	if r, g, b, a := c.At(50, 80); r != 255 || g != 255 || b != 255 || a != 255 {
		t.Fatalf("dot centre = (%d,%d,%d,%d), want white", r, g, b, a)
	}
	if r, _, _, _ := c.At(0, 0); r != 0 {
		t.Fatalf("pixels outside the indicator were touched")
	}
}

func TestDrawIndicatorNothingToShow(t *testing.T) {
	c := NewCanvas(40, 40)
	DrawIndicator(c, Indicator{})
	if !bytes.Equal(c.Pix, make([]byte, len(c.Pix))) {
		t.Fatalf("empty indicator modified the canvas")
	}
}

func TestDrawIndicatorCaptionStaysInBounds(t *testing.T) {
	c := NewCanvas(30, 20)
	DrawIndicator(c, Indicator{Length: 40, Failures: 12})
}
