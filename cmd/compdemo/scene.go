package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register JPEG for layer images
	_ "image/png"  // register PNG for layer images
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/animation"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/layer"
)

// Scene is the top level of a scene file.
type Scene struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Background Color   `yaml:"background"`
	Layers     []Layer `yaml:"layers"`
}

// Layer describes one layer and its subtree.
type Layer struct {
	Name       string      `yaml:"name"`
	Position   [2]float64  `yaml:"position"`
	Bounds     [2]float64  `yaml:"bounds"`
	Anchor     *[2]float64 `yaml:"anchor"`
	Background Color       `yaml:"background"`
	Opacity    *float64    `yaml:"opacity"`
	Hidden     bool        `yaml:"hidden"`

	// Rotate is in degrees about the z axis.
	Rotate      float64    `yaml:"rotate"`
	RotateY     float64    `yaml:"rotateY"`
	Scale       [2]float64 `yaml:"scale"`
	TranslateZ  float64    `yaml:"translateZ"`
	Perspective float64    `yaml:"perspective"`

	MasksToBounds bool  `yaml:"masksToBounds"`
	Preserves3D   bool  `yaml:"preserves3D"`
	DoubleSided   *bool `yaml:"doubleSided"`
	Fixed         bool  `yaml:"fixed"`

	Border struct {
		Color Color   `yaml:"color"`
		Width float64 `yaml:"width"`
	} `yaml:"border"`

	HolePunch []float64 `yaml:"holePunch"`
	Image     string    `yaml:"image"`
	Pattern   string    `yaml:"pattern"`
	Gravity   string    `yaml:"gravity"`

	// External is "video" for an overlay video that is hole punched, or
	// "plugin" for a plugin drawing colour bars.
	External string `yaml:"external"`

	Animations []Animation `yaml:"animations"`
	Sublayers  []Layer     `yaml:"sublayers"`
}

// Animation describes one keyframe run.
type Animation struct {
	Property   string        `yaml:"property"`
	Duration   time.Duration `yaml:"duration"`
	Iterations int           `yaml:"iterations"`
	Direction  string        `yaml:"direction"`
	Timing     string        `yaml:"timing"`
	Keyframes  []Keyframe    `yaml:"keyframes"`
}

// Keyframe is one animation value. Rotate is in degrees.
type Keyframe struct {
	Time    float64  `yaml:"time"`
	Opacity float64  `yaml:"opacity"`
	Rotate  *float64 `yaml:"rotate"`
	X       *float64 `yaml:"x"`
	Y       *float64 `yaml:"y"`
	Scale   *float64 `yaml:"scale"`
	Timing  string   `yaml:"timing"`
}

// Color is a straight-alpha colour written as #rgb, #rrggbb or #rrggbbaa.
type Color struct {
	color.RGBA
	Set bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	rgba, err := parseColor(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	c.RGBA = rgba
	c.Set = true
	return nil
}

var errColor = errors.New("invalid colour")

func parseColor(s string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("%w %q: want #rrggbb", errColor, s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("%w %q", errColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w %q: %w", errColor, s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// LoadScene reads and decodes a scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("parse %s: scene size %dx%d", path, s.Width, s.Height)
	}
	return &s, nil
}

// builder turns scene layers into authoring nodes.
type builder struct {
	c   *compositor.Compositor
	dir string
}

// Build replaces the sublayers of the compositor root with the scene's
// layers. Image paths are relative to dir.
func (s *Scene) Build(c *compositor.Compositor, dir string) error {
	root := c.RootLayer()
	for _, old := range root.Sublayers() {
		destroyTree(old)
	}
	root.SetBounds(geom.Sz(float64(s.Width), float64(s.Height)))

	b := builder{c: c, dir: dir}
	for i := range s.Layers {
		n, err := b.build(&s.Layers[i])
		if err != nil {
			return err
		}
		root.AddSublayer(n)
	}
	return nil
}

// destroyTree destroys n and everything below it.
func destroyTree(n *layer.AuthoringNode) {
	for _, c := range n.Sublayers() {
		destroyTree(c)
	}
	n.Destroy()
}

func (b *builder) build(l *Layer) (*layer.AuthoringNode, error) {
	n := b.c.NewLayer()
	n.SetName(l.Name)
	n.SetBounds(geom.Sz(l.Bounds[0], l.Bounds[1]))
	n.SetPosition(geom.Pt(l.Position[0], l.Position[1]))
	if l.Anchor != nil {
		n.SetAnchorPoint(geom.Pt(l.Anchor[0], l.Anchor[1]))
	}
	if l.Background.Set {
		n.SetBackgroundColor(l.Background.RGBA)
	}
	if l.Opacity != nil {
		n.SetOpacity(*l.Opacity)
	}
	n.SetHidden(l.Hidden)
	n.SetTransform(l.transform())
	n.SetMasksToBounds(l.MasksToBounds)
	n.SetPreserves3D(l.Preserves3D)
	if l.DoubleSided != nil {
		n.SetDoubleSided(*l.DoubleSided)
	}
	n.SetFixedPosition(l.Fixed)
	if l.Border.Width > 0 {
		n.SetBorderWidth(l.Border.Width)
		if l.Border.Color.Set {
			n.SetBorderColor(l.Border.Color.RGBA)
		}
	}
	if len(l.HolePunch) != 0 {
		if len(l.HolePunch) != 4 {
			return nil, fmt.Errorf("layer %q: holePunch wants [x, y, w, h]", l.Name)
		}
		n.SetHolePunchRect(geom.R(l.HolePunch[0], l.HolePunch[1], l.HolePunch[2], l.HolePunch[3]))
	}
	if l.Gravity != "" {
		g, ok := layer.ParseGravity(l.Gravity)
		if !ok {
			return nil, fmt.Errorf("layer %q: unknown gravity %q", l.Name, l.Gravity)
		}
		n.SetContentsGravity(g)
	}
	if err := b.content(n, l); err != nil {
		return nil, err
	}

	for i := range l.Sublayers {
		c, err := b.build(&l.Sublayers[i])
		if err != nil {
			return nil, err
		}
		n.AddSublayer(c)
	}

	if len(l.Animations) > 0 {
		runs, err := buildRuns(l.Animations)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.Name, err)
		}
		if err := n.SetAnimations(runs); err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.Name, err)
		}
	}
	return n, nil
}

func (b *builder) content(n *layer.AuthoringNode, l *Layer) error {
	switch {
	case l.Image != "":
		path := l.Image
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.dir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("layer %q: %w", l.Name, err)
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return fmt.Errorf("layer %q: decode %s: %w", l.Name, path, err)
		}
		n.SetContents(img)
	case l.Pattern != "":
		p, ok := patterns[l.Pattern]
		if !ok {
			return fmt.Errorf("layer %q: unknown pattern %q", l.Name, l.Pattern)
		}
		n.SetDrawsOwnContent(true, p)
	case l.External == "video":
		n.SetVideo(&barsSource{})
	case l.External == "plugin":
		n.SetPlugin(&barsSource{width: int(l.Bounds[0]), height: int(l.Bounds[1])})
	case l.External != "":
		return fmt.Errorf("layer %q: unknown external source %q", l.Name, l.External)
	}
	return nil
}

// transform composes the static transform functions of l.
func (l *Layer) transform() geom.Matrix4 {
	var list animation.TransformList
	if l.Perspective != 0 {
		list = append(list, animation.PerspectiveOp{D: l.Perspective})
	}
	if l.TranslateZ != 0 {
		list = append(list, animation.Translate{Z: l.TranslateZ})
	}
	if l.Rotate != 0 {
		list = append(list, animation.Rotate{Angle: radians(l.Rotate)})
	}
	if l.RotateY != 0 {
		list = append(list, animation.Rotate{Y: 1, Angle: radians(l.RotateY)})
	}
	if l.Scale != [2]float64{} {
		list = append(list, animation.Scale{X: l.Scale[0], Y: l.Scale[1], Z: 1})
	}
	return list.Matrix()
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Viewport returns the viewport covering the whole scene.
func (s *Scene) Viewport() compositor.Viewport {
	r := geom.R(0, 0, float64(s.Width), float64(s.Height))
	return compositor.Viewport{Visible: r, Layout: r, ContentsSize: geom.Sz(float64(s.Width), float64(s.Height))}
}
