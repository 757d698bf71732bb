package media

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/tuxx/shroudlock/internal/config"
	"github.com/tuxx/shroudlock/internal/logger"
)

// Image is a decoded picture plus a single resized copy of it.
//
// The cached buffer always holds exactly one generation: a request for a
// different size resamples from the decoded source and replaces it. Image is
// not safe for concurrent use; the orchestrator paints from one goroutine.
type Image struct {
	source image.Image
	cached *image.RGBA
}

// NewImage wraps an already decoded image. The cache starts at its native size.
func NewImage(src image.Image) *Image {
	b := src.Bounds()
	cached := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(cached, cached.Bounds(), src, b.Min, draw.Src)
	return &Image{source: src, cached: cached}
}

// LoadImage decodes the image at path and applies the configured blur once.
func LoadImage(path string, blurSize int, blurType string) (*Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if blurSize > 0 {
		logger.Debug("Applying %s blur of size %d to %s", blurType, blurSize, path)
		img = Blur(img, blurSize, blurType)
	}

	return NewImage(img), nil
}

// Blur softens img. Gaussian uses blurSize as sigma; box runs a 3x3 mean
// filter blurSize times.
func Blur(img image.Image, blurSize int, blurType string) *image.NRGBA {
	if blurType == config.BlurGaussian {
		return imaging.Blur(img, float64(blurSize))
	}

	kernel := [9]float64{1, 1, 1, 1, 1, 1, 1, 1, 1}
	out := imaging.Clone(img)
	for i := 0; i < blurSize; i++ {
		out = imaging.Convolve3x3(out, kernel, &imaging.ConvolveOptions{Normalize: true})
	}
	return out
}

// CachedSize returns the dimensions of the current cached buffer
func (i *Image) CachedSize() (width, height int) {
	b := i.cached.Bounds()
	return b.Dx(), b.Dy()
}

// Resized returns the picture at width x height, resampling with nearest
// neighbour when the cached buffer has a different size.
func (i *Image) Resized(width, height int) *image.RGBA {
	if w, h := i.CachedSize(); w == width && h == height {
		return i.cached
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), i.source, i.source.Bounds(), draw.Src, nil)
	i.cached = dst
	logger.Debug("Resized image cache to %dx%d", width, height)
	return dst
}
