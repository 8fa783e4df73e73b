package main

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/animation"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu/software"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#ff0000", color.RGBA{R: 255, A: 255}, false},
		{"#0f08", color.RGBA{}, true},
		{"#0f0", color.RGBA{G: 255, A: 255}, false},
		{"#11223380", color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x80}, false},
		{" #ABCDEF ", color.RGBA{R: 0xab, G: 0xcd, B: 0xef, A: 0xff}, false},
		{"red", color.RGBA{}, true},
		{"#gg0000", color.RGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTiming(t *testing.T) {
	tests := []struct {
		in      string
		want    animation.TimingFunction
		wantErr bool
	}{
		{"linear", animation.Linear{}, false},
		{"ease-in-out", animation.EaseInOut, false},
		{"steps(4)", animation.Steps{N: 4}, false},
		{"steps(3, start)", animation.Steps{N: 3, AtStart: true}, false},
		{"cubic-bezier(0.1, 0.7, 1, 0.1)", animation.CubicBezier{X1: 0.1, Y1: 0.7, X2: 1, Y2: 0.1}, false},
		{"steps(0)", nil, true},
		{"steps(2, middle)", nil, true},
		{"cubic-bezier(1, 2)", nil, true},
		{"bounce", nil, true},
		{"steps(2", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTiming(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTiming(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseTiming(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadScene(t *testing.T) {
	s, err := LoadScene("testdata/scene.yaml")
	if err != nil {
		t.Fatalf("LoadScene() = %v", err)
	}
	if s.Width != 320 || s.Height != 200 {
		t.Errorf("size = %dx%d, want 320x200", s.Width, s.Height)
	}
	if len(s.Layers) != 5 {
		t.Fatalf("layers = %d, want 5", len(s.Layers))
	}
	pulse := s.Layers[2]
	if len(pulse.Animations) != 2 || pulse.Animations[0].Duration != 2*time.Second {
		t.Errorf("pulse animations = %+v", pulse.Animations)
	}
	if !s.Background.Set || s.Background.RGBA != (color.RGBA{R: 0x1e, G: 0x1e, B: 0x28, A: 0xff}) {
		t.Errorf("background = %+v", s.Background)
	}
}

func TestLoadSceneErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"no size", "layers: []\n"},
		{"bad colour", "width: 10\nheight: 10\nbackground: blue\n"},
		{"bad yaml", "width: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadScene(path); err == nil {
				t.Errorf("LoadScene(%s) succeeded", tt.name)
			}
		})
	}
}

func TestBuildAndDraw(t *testing.T) {
	s, err := LoadScene("testdata/scene.yaml")
	if err != nil {
		t.Fatalf("LoadScene() = %v", err)
	}
	dev := software.New(s.Width, s.Height)
	c, err := compositor.New(dev, compositor.WithClock(func() time.Time { return time.Unix(0, 0) }))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer c.Close()

	if err := s.Build(c, "testdata"); err != nil {
		t.Fatalf("Build() = %v", err)
	}
	if got := len(c.RootLayer().Sublayers()); got != 5 {
		t.Errorf("root sublayers = %d, want 5", got)
	}

	res, err := c.CommitAndDraw(geom.IR(0, 0, s.Width, s.Height), s.Viewport())
	if err != nil {
		t.Fatalf("CommitAndDraw() = %v", err)
	}
	if !res.Animating {
		t.Error("Animating = false, want true for the infinite pulse")
	}
	if len(res.HolePunchRects) != 1 || res.HolePunchRects[0] != geom.IR(130, 165, 60, 30) {
		t.Errorf("HolePunchRects = %v, want [%v]", res.HolePunchRects, geom.IR(130, 165, 60, 30))
	}
	if got := dev.Image().RGBAAt(90, 100); got != (color.RGBA{R: 0xf0, G: 0xa0, B: 0x30, A: 0xff}) {
		t.Errorf("overflowing child at panel centre = %v", got)
	}
	if got := dev.Image().RGBAAt(56, 100); got != (color.RGBA{R: 0x30, G: 0x60, B: 0xc0, A: 0xff}) {
		t.Errorf("panel left of child = %v", got)
	}
	// The first bar of the plugin, swizzled from BGRA.
	if got := dev.Image().RGBAAt(7, 180); got != (color.RGBA{R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff}) {
		t.Errorf("plugin bar = %v", got)
	}
	if got := dev.Image().RGBAAt(160, 180); got != (color.RGBA{}) {
		t.Errorf("video hole = %v, want transparent", got)
	}
	if got := dev.Image().RGBAAt(200, 36); got != patternLight {
		t.Errorf("checker corner = %v, want %v", got, patternLight)
	}

	// Rebuilding replaces the layers instead of adding to them.
	if err := s.Build(c, "testdata"); err != nil {
		t.Fatalf("second Build() = %v", err)
	}
	if got := len(c.RootLayer().Sublayers()); got != 5 {
		t.Errorf("root sublayers after rebuild = %d, want 5", got)
	}
	if got := c.Tree().Len(); got != 7 {
		t.Errorf("live layers = %d, want 7", got)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		l    Layer
	}{
		{"hole punch arity", Layer{Name: "a", HolePunch: []float64{1, 2}}},
		{"gravity", Layer{Name: "b", Gravity: "sideways"}},
		{"pattern", Layer{Name: "c", Pattern: "plaid"}},
		{"image", Layer{Name: "d", Image: "missing.png"}},
		{"animation", Layer{Name: "e", Animations: []Animation{{Property: "colour"}}}},
		{"external", Layer{Name: "f", External: "webcam"}},
	}
	c, err := compositor.New(software.New(10, 10))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer c.Close()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scene{Width: 10, Height: 10, Layers: []Layer{tt.l}}
			if err := s.Build(c, t.TempDir()); err == nil {
				t.Errorf("Build(%s) succeeded", tt.name)
			}
		})
	}
}

func TestPremultiply(t *testing.T) {
	got := premultiply(color.RGBA{R: 255, G: 128, A: 128})
	want := color.RGBA{R: 128, G: 64, A: 128}
	if got != want {
		t.Errorf("premultiply() = %v, want %v", got, want)
	}
}
