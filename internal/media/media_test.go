package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/tuxx/shroudlock/internal/config"
)

func writePNG(t *testing.T, w, h int, fill color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}
	path := filepath.Join(t.TempDir(), "bg.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestFromConfigSolid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Solid = config.SolidSection{Red: 1, Green: 2, Blue: 3, Alpha: 4}

	got := FromConfig(cfg)
	if got != (Solid{1, 2, 3, 4}) {
		t.Fatalf("unexpected descriptor %#v", got)
	}
}

func TestFromConfigGradientIsNone(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Main.Type = config.MediaGradient
	if _, ok := FromConfig(cfg).(None); !ok {
		t.Fatalf("expected None for gradient")
	}
}

func TestFromConfigFallsBackToNoneOnLoadError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	cfg := config.DefaultConfig()
	cfg.Main.Type = config.MediaImage
	cfg.Image.Path = missing + ".png"
	if _, ok := FromConfig(cfg).(None); !ok {
		t.Fatalf("expected None when image cannot be read")
	}

	cfg.Main.Type = config.MediaShader
	cfg.Shader.Path = missing + ".wgsl"
	if _, ok := FromConfig(cfg).(None); !ok {
		t.Fatalf("expected None when shader cannot be read")
	}
}

func TestFromConfigShader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waves.wgsl")
	if err := os.WriteFile(path, []byte("@fragment fn main() {}"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Main.Type = config.MediaShader
	cfg.Shader.Path = path

	shader, ok := FromConfig(cfg).(Shader)
	if !ok {
		t.Fatalf("expected Shader descriptor")
	}
	if shader.Path != path || shader.Source != "@fragment fn main() {}" {
		t.Fatalf("unexpected shader %+v", shader)
	}
}

func TestLoadImageStartsAtNativeSize(t *testing.T) {
	path := writePNG(t, 8, 4, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	img, err := LoadImage(path, 0, config.BlurBox)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if w, h := img.CachedSize(); w != 8 || h != 4 {
		t.Fatalf("cached size = %dx%d, want 8x4", w, h)
	}
	if c := img.Resized(8, 4).RGBAAt(3, 2); c != (color.RGBA{200, 100, 50, 255}) {
		t.Fatalf("unexpected pixel %v", c)
	}
}

func TestResizedKeepsSingleGeneration(t *testing.T) {
	img := NewImage(image.NewRGBA(image.Rect(0, 0, 10, 10)))

	first := img.Resized(4, 4)
	if again := img.Resized(4, 4); again != first {
		t.Fatalf("same size must reuse the cached buffer")
	}

	second := img.Resized(2, 3)
	if second == first {
		t.Fatalf("new size must replace the cached buffer")
	}
	if w, h := img.CachedSize(); w != 2 || h != 3 {
		t.Fatalf("cached size = %dx%d, want 2x3", w, h)
	}

	if back := img.Resized(4, 4); back == first {
		t.Fatalf("stale buffer generation was resurrected")
	}
}

func TestResizedNearestNeighbour(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	src.SetRGBA(1, 0, color.RGBA{0, 0, 255, 255})

	out := NewImage(src).Resized(4, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			want := color.RGBA{255, 0, 0, 255}
			if x >= 2 {
				want = color.RGBA{0, 0, 255, 255}
			}
			if got := out.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestBlurKeepsUniformImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	for i := range src.Pix {
		src.Pix[i] = 128
	}
	for _, kind := range []string{config.BlurBox, config.BlurGaussian} {
		out := Blur(src, 2, kind)
		if out.Bounds() != src.Bounds() {
			t.Fatalf("%s blur changed bounds to %v", kind, out.Bounds())
		}
		if c := out.NRGBAAt(3, 3); farFrom(c.R, 128) || farFrom(c.A, 128) {
			t.Fatalf("%s blur altered a uniform image: %v", kind, c)
		}
	}
}

func farFrom(got, want uint8) bool {
	d := int(got) - int(want)
	return d < -1 || d > 1
}

func TestKind(t *testing.T) {
	cases := map[string]Descriptor{
		"solid":  Solid{},
		"image":  NewImage(image.NewRGBA(image.Rect(0, 0, 1, 1))),
		"shader": Shader{},
		"none":   None{},
	}
	for want, d := range cases {
		if got := Kind(d); got != want {
			t.Errorf("Kind(%T) = %q, want %q", d, got, want)
		}
	}
}
