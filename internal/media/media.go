// Package media describes what gets painted on every lock surface.
package media

import (
	"fmt"
	"os"

	"github.com/tuxx/shroudlock/internal/config"
	"github.com/tuxx/shroudlock/internal/logger"
)

// Descriptor is one of Solid, *Image, Shader or None.
type Descriptor interface {
	isDescriptor()
}

// Solid fills the surface with a single straight-alpha color.
type Solid struct {
	R, G, B, A uint8
}

// Shader references a shader source file. Source holds its contents.
type Shader struct {
	Path   string
	Source string
}

// None means no media is configured; the fallback gradient is painted.
type None struct{}

func (Solid) isDescriptor()  {}
func (*Image) isDescriptor() {}
func (Shader) isDescriptor() {}
func (None) isDescriptor()   {}

// White is the descriptor used when no valid configuration is available
var White = Solid{R: 255, G: 255, B: 255, A: 255}

// LoadShader reads the shader source at path
func LoadShader(path string) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Shader{}, fmt.Errorf("failed to read shader: %w", err)
	}
	return Shader{Path: path, Source: string(data)}, nil
}

// FromConfig builds the descriptor for a validated configuration. Media that
// fails to load is logged and replaced by None so the screen is never blank.
func FromConfig(cfg config.Configuration) Descriptor {
	switch cfg.Main.Type {
	case config.MediaSolid:
		return Solid{
			R: uint8(cfg.Solid.Red),
			G: uint8(cfg.Solid.Green),
			B: uint8(cfg.Solid.Blue),
			A: uint8(cfg.Solid.Alpha),
		}
	case config.MediaImage:
		img, err := LoadImage(cfg.Image.Path, cfg.Image.BlurSize, cfg.Image.BlurType)
		if err != nil {
			logger.Error("Failed to load image %s, using gradient: %v", cfg.Image.Path, err)
			return None{}
		}
		return img
	case config.MediaShader:
		shader, err := LoadShader(cfg.Shader.Path)
		if err != nil {
			logger.Error("Failed to load shader %s, using gradient: %v", cfg.Shader.Path, err)
			return None{}
		}
		return shader
	case config.MediaGradient:
		return None{}
	default:
		logger.Warn("Unknown media type %q, using solid white", cfg.Main.Type)
		return White
	}
}

// Kind returns the configuration name of a descriptor, for logging
func Kind(d Descriptor) string {
	switch d.(type) {
	case Solid:
		return config.MediaSolid
	case *Image:
		return config.MediaImage
	case Shader:
		return config.MediaShader
	case None:
		return "none"
	default:
		return "unknown"
	}
}
