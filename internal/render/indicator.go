package render

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	dotRadius  = 8
	dotSpacing = 28
	maxDots    = 32
)

// Indicator is the input feedback drawn over the media
type Indicator struct {
	// Number of characters typed so far
	Length int

	// Failed attempts in this lock session
	Failures int

	// Replaces the failure caption when set, e.g. a cooldown notice
	Notice string
}

// Caption returns the text shown under the dots, if any
func (ind Indicator) Caption() string {
	switch {
	case ind.Notice != "":
		return ind.Notice
	case ind.Failures == 1:
		return "1 failed attempt"
	case ind.Failures > 1:
		return fmt.Sprintf("%d failed attempts", ind.Failures)
	default:
		return ""
	}
}

// DrawIndicator overlays typed-character dots and the caption near the
// bottom of the canvas.
func DrawIndicator(c *Canvas, ind Indicator) {
	if c == nil || c.Width <= 0 || c.Height <= 0 {
		return
	}

	baseline := c.Height - c.Height/5
	count := min(ind.Length, maxDots)
	startX := (c.Width - (count-1)*dotSpacing) / 2

	for i := 0; i < count; i++ {
		cx := startX + i*dotSpacing
		for dy := -dotRadius; dy <= dotRadius; dy++ {
			for dx := -dotRadius; dx <= dotRadius; dx++ {
				if dx*dx+dy*dy <= dotRadius*dotRadius {
					c.blend(cx+dx, baseline+dy, 0xff, 0xff, 0xff, 0xff)
				}
			}
		}
	}

	if caption := ind.Caption(); caption != "" {
		drawText(c, caption, baseline+2*dotRadius+8, 0xff, 0x50, 0x50)
	}
}

// drawText renders s horizontally centred with its top edge at y
func drawText(c *Canvas, s string, y int, r, g, b uint8) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	height := face.Metrics().Height.Ceil()

	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)

	x0 := (c.Width - width) / 2
	for my := 0; my < height; my++ {
		for mx := 0; mx < width; mx++ {
			c.blend(x0+mx, y+my, r, g, b, mask.AlphaAt(mx, my).A)
		}
	}
}
