// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
	"github.com/gogpu/compositor/gpu/software"
	"github.com/gogpu/compositor/layer"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
	none = color.RGBA{}
)

type scene struct {
	t    *testing.T
	tree *layer.Tree
	root *layer.AuthoringNode
	dev  *software.Device
	eng  *Engine
	dest geom.IntRect
}

func newScene(t *testing.T, devOpts []software.Option, opts ...Option) *scene {
	t.Helper()
	tree := layer.NewTree()
	root := tree.NewLayer()
	root.SetBounds(geom.Sz(100, 100))
	tree.SetRoot(root)
	dev := software.New(100, 100, devOpts...)
	eng, err := New(dev, opts...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return &scene{t: t, tree: tree, root: root, dev: dev, eng: eng, dest: geom.IR(0, 0, 100, 100)}
}

// box adds a layer with its top-left corner at (x, y) of parent.
func (s *scene) box(parent *layer.AuthoringNode, x, y, w, h float64, bg color.RGBA) *layer.AuthoringNode {
	n := s.tree.NewLayer()
	n.SetBounds(geom.Sz(w, h))
	n.SetPosition(geom.Pt(x+w/2, y+h/2))
	n.SetBackgroundColor(bg)
	parent.AddSublayer(n)
	return n
}

func (s *scene) render() FrameResult {
	s.t.Helper()
	s.tree.PrepareCommit()
	if !s.tree.Commit() {
		s.t.Fatal("Commit() = false")
	}
	res, err := s.eng.Render(s.tree.RenderRoot(), s.dest, Viewport{}, time.Unix(0, 0))
	if err != nil {
		s.t.Fatalf("Render() = %v", err)
	}
	return res
}

func (s *scene) pixel(x, y int) color.RGBA {
	return s.dev.Image().RGBAAt(x, y)
}

func TestNewWithoutDevice(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoDevice) {
		t.Errorf("New(nil) = %v, want %v", err, ErrNoDevice)
	}
}

func TestRenderPlacesLayer(t *testing.T) {
	s := newScene(t, nil)
	s.box(s.root, 0, 5, 20, 10, red)
	res := s.render()

	if got, want := res.DirtyRegion[0], geom.IR(0, 5, 20, 10); got != want {
		t.Errorf("DirtyRegion[0] = %v, want %v", got, want)
	}
	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{5, 10, red},
		{18, 13, red},
		{25, 10, none},
		{5, 2, none},
	}
	for _, tt := range tests {
		if got := s.pixel(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
	if s.eng.State() != Idle {
		t.Errorf("State() = %v, want %v", s.eng.State(), Idle)
	}
	if got := s.eng.Len(); got != 2 {
		t.Errorf("registered layers = %d, want 2", got)
	}
}

func TestChildrenUseParentTopLeft(t *testing.T) {
	s := newScene(t, nil)
	p := s.box(s.root, 40, 40, 20, 20, none)
	s.box(p, 5, 5, 10, 10, blue)
	s.render()
	if got := s.pixel(47, 47); got != blue {
		t.Errorf("child pixel = %v, want %v", got, blue)
	}
	if got := s.pixel(42, 42); got != none {
		t.Errorf("parent pixel = %v, want transparent", got)
	}
}

func TestOpacityIsInherited(t *testing.T) {
	s := newScene(t, nil)
	p := s.box(s.root, 0, 0, 50, 50, none)
	p.SetOpacity(0.5)
	s.box(p, 0, 0, 50, 50, red)
	s.render()
	got := s.pixel(25, 25)
	if got.R < 127 || got.R > 128 || got.A < 127 || got.A > 128 {
		t.Errorf("pixel = %v, want half red", got)
	}
}

func TestHiddenSkipsOwnContentOnly(t *testing.T) {
	s := newScene(t, nil)
	p := s.box(s.root, 0, 0, 100, 100, blue)
	p.SetHidden(true)
	s.box(p, 10, 10, 10, 10, red)
	s.render()
	if got := s.pixel(50, 50); got != none {
		t.Errorf("hidden parent pixel = %v, want transparent", got)
	}
	if got := s.pixel(15, 15); got != red {
		t.Errorf("child of hidden parent = %v, want %v", got, red)
	}
}

type fakeSource struct{}

func (fakeSource) LockFrontBuffer() (gpu.ExternalImage, bool) { return gpu.ExternalImage{}, false }
func (fakeSource) UnlockFrontBuffer()                         {}
func (fakeSource) PixelFormat() gpu.PixelFormat               { return gpu.FormatRGBA }
func (fakeSource) ContentSizeKnown() bool                     { return true }

func TestHolePunchClippedByMask(t *testing.T) {
	s := newScene(t, nil)
	p := s.box(s.root, 0, 0, 50, 50, blue)
	p.SetMasksToBounds(true)
	plugin := s.box(p, 0, 0, 100, 100, none)
	plugin.SetPlugin(fakeSource{})
	plugin.SetHolePunchRect(geom.R(0, 0, 100, 100))

	res := s.render()
	if len(res.HolePunchRects) != 1 {
		t.Fatalf("len(HolePunchRects) = %d, want 1", len(res.HolePunchRects))
	}
	if got, want := res.HolePunchRects[0], geom.IR(0, 0, 50, 50); got != want {
		t.Errorf("HolePunchRects[0] = %v, want %v", got, want)
	}
	if got := s.pixel(25, 25); got != none {
		t.Errorf("pixel in hole = %v, want transparent", got)
	}

	plugin.SetHidden(true)
	res = s.render()
	if len(res.HolePunchRects) != 0 {
		t.Errorf("hidden plugin punched %v", res.HolePunchRects)
	}
}

func TestVideoHoleFollowsBounds(t *testing.T) {
	s := newScene(t, nil)
	v := s.box(s.root, 10, 20, 30, 40, none)
	v.SetVideo(fakeSource{})
	res := s.render()
	if len(res.HolePunchRects) != 1 || res.HolePunchRects[0] != geom.IR(10, 20, 30, 40) {
		t.Errorf("HolePunchRects = %v, want [%v]", res.HolePunchRects, geom.IR(10, 20, 30, 40))
	}
}

func TestStencilIsolatesRotatedSiblings(t *testing.T) {
	s := newScene(t, nil)
	for _, c := range []struct {
		x     float64
		color color.RGBA
	}{{30, red}, {70, blue}} {
		clip := s.box(s.root, c.x-15, 35, 30, 30, none)
		clip.SetTransform(geom.RotationZ(math.Pi / 4))
		clip.SetMasksToBounds(true)
		// The child overflows the clip on every side.
		s.box(clip, -35, -35, 100, 100, c.color)
	}
	s.render()

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"first clip", 30, 50, red},
		{"second clip", 70, 50, blue},
		{"above first", 30, 10, none},
		{"first bounding box corner", 12, 32, none},
		{"second bounding box corner", 88, 68, none},
		{"corner", 5, 5, none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.pixel(tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
	for _, p := range []image.Point{{30, 50}, {70, 50}} {
		if v := s.dev.StencilAt(p.X, p.Y); v != 0 {
			t.Errorf("StencilAt(%v) = %d after frame, want 0", p, v)
		}
	}
}

func TestAxisAlignedMaskUsesScissor(t *testing.T) {
	s := newScene(t, nil)
	clip := s.box(s.root, 20, 20, 20, 20, none)
	clip.SetMasksToBounds(true)
	s.box(clip, -20, -20, 60, 60, red)
	s.render()
	if got := s.pixel(30, 30); got != red {
		t.Errorf("inside mask = %v, want %v", got, red)
	}
	if got := s.pixel(10, 10); got != none {
		t.Errorf("outside mask = %v, want transparent", got)
	}
}

func TestPreserves3DSortsByDepth(t *testing.T) {
	for _, tt := range []struct {
		name     string
		preserve bool
		want     color.RGBA
	}{
		{"flat", false, blue},
		{"preserve-3d", true, red},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t, nil)
			p := s.box(s.root, 0, 0, 100, 100, none)
			p.SetPreserves3D(tt.preserve)
			s.box(p, 0, 0, 50, 50, red)
			back := s.box(p, 0, 0, 50, 50, blue)
			back.SetTransform(geom.Translation(0, 0, 10))
			s.render()
			if got := s.pixel(25, 25); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmptyFramesAreSkipped(t *testing.T) {
	s := newScene(t, nil)
	first := s.render()
	if first.Skipped || first.WasEmpty {
		t.Errorf("first frame = %v, want drawn", first)
	}
	second := s.render()
	if !second.Skipped || !second.WasEmpty {
		t.Errorf("second frame = %v, want skipped", second)
	}

	s.box(s.root, 0, 0, 10, 10, red)
	third := s.render()
	if third.Skipped {
		t.Error("frame with content skipped")
	}
}

func TestDebugBorders(t *testing.T) {
	s := newScene(t, nil, WithDebugBorders(true))
	n := s.box(s.root, 20, 20, 40, 40, none)
	n.SetBorderWidth(4)
	s.render()
	if got := s.pixel(20, 40); got != DefaultBorderColor {
		t.Errorf("border pixel = %v, want %v", got, DefaultBorderColor)
	}
	if got := s.pixel(40, 40); got != none {
		t.Errorf("interior = %v, want transparent", got)
	}
}

func TestPlaceholderForFailedUpload(t *testing.T) {
	s := newScene(t, []software.Option{software.WithMaxTextureSize(16)}, WithPlaceholders(true))
	n := s.box(s.root, 0, 0, 40, 40, none)
	n.SetContents(image.NewRGBA(image.Rect(0, 0, 40, 40)))
	s.render()
	got := s.pixel(2, 2)
	if got != checkerLight && got != checkerDark {
		t.Errorf("pixel = %v, want checkerboard", got)
	}
}

func TestContentIsUploadedAndDrawn(t *testing.T) {
	s := newScene(t, nil)
	n := s.box(s.root, 10, 10, 20, 20, none)
	n.SetDrawsOwnContent(true, layer.PainterFunc(func(dst *image.RGBA, dirty image.Rectangle) {
		for y := dirty.Min.Y; y < dirty.Max.Y; y++ {
			for x := dirty.Min.X; x < dirty.Max.X; x++ {
				dst.SetRGBA(x, y, blue)
			}
		}
	}))
	s.render()
	if got := s.pixel(20, 20); got != blue {
		t.Errorf("painted pixel = %v, want %v", got, blue)
	}
	if s.dev.LiveTextures() == 0 {
		t.Error("no texture allocated")
	}
	n.Destroy()
	if s.eng.Len() != 1 {
		t.Errorf("registered layers after Destroy = %d, want 1", s.eng.Len())
	}
}

func TestCloseReleasesTextures(t *testing.T) {
	s := newScene(t, nil)
	n := s.box(s.root, 0, 0, 10, 10, none)
	n.SetContents(image.NewRGBA(image.Rect(0, 0, 10, 10)))
	s.render()
	s.eng.Close()
	if got := s.dev.LiveTextures(); got != 0 {
		t.Errorf("LiveTextures() after Close = %d, want 0", got)
	}
	if _, err := s.eng.Render(s.tree.RenderRoot(), s.dest, Viewport{}, time.Now()); !errors.Is(err, ErrClosed) {
		t.Errorf("Render() after Close = %v, want %v", err, ErrClosed)
	}
}

func TestAddDirtyMergesByLeastGrowth(t *testing.T) {
	var r FrameResult
	r.AddDirty(geom.IR(0, 0, 10, 10))
	r.AddDirty(geom.IR(100, 0, 10, 10))
	r.AddDirty(geom.IR(0, 100, 10, 10))
	r.AddDirty(geom.IR(12, 0, 2, 2))
	r.AddDirty(geom.IR(5, 5, 1, 1))

	want := [MaxDirtyRects]geom.IntRect{
		geom.IR(0, 0, 14, 10),
		geom.IR(100, 0, 10, 10),
		geom.IR(0, 100, 10, 10),
	}
	if r.DirtyRegion != want {
		t.Errorf("DirtyRegion = %v, want %v", r.DirtyRegion, want)
	}
	if got := r.Bounds(); got != geom.IR(0, 0, 110, 110) {
		t.Errorf("Bounds() = %v, want %v", got, geom.IR(0, 0, 110, 110))
	}
}

func TestFixedPositionOffset(t *testing.T) {
	g := layer.DefaultGeometry()
	g.Bounds = geom.Sz(100, 20)
	vp := Viewport{
		Visible:      geom.R(0, 300, 800, 600),
		Layout:       geom.R(0, 0, 800, 600),
		ContentsSize: geom.Sz(800, 2000),
	}
	tests := []struct {
		name string
		y    float64
		want float64
	}{
		{"top bar follows scroll", 10, 300},
		{"bottom bar sticks to bottom", 590, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fixedPositionOffset(tt.y, &g, vp); got != tt.want {
				t.Errorf("fixedPositionOffset(%v) = %v, want %v", tt.y, got, tt.want)
			}
		})
	}

	// Layout taller than contents clamps the scroll to zero.
	vp = Viewport{Visible: geom.R(0, 0, 800, 600), Layout: geom.R(0, 50, 800, 600), ContentsSize: geom.Sz(800, 400)}
	if got := fixedPositionOffset(10, &g, vp); got != 0 {
		t.Errorf("clamped offset = %v, want 0", got)
	}
}

func TestProjection(t *testing.T) {
	m := Projection(geom.R(10, 20, 100, 50))
	tests := []struct {
		in, want geom.Point
	}{
		{geom.Pt(10, 20), geom.Pt(-1, 1)},
		{geom.Pt(110, 70), geom.Pt(1, -1)},
		{geom.Pt(60, 45), geom.Pt(0, 0)},
	}
	for _, tt := range tests {
		got := m.MapPoint(tt.in)
		if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
			t.Errorf("Projection.MapPoint(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func BenchmarkRender(b *testing.B) {
	tree := layer.NewTree()
	root := tree.NewLayer()
	tree.SetRoot(root)
	for i := range 20 {
		n := tree.NewLayer()
		n.SetBounds(geom.Sz(30, 30))
		n.SetPosition(geom.Pt(float64(i*4+15), float64(i*3+15)))
		n.SetBackgroundColor(color.RGBA{R: uint8(i * 10), A: 200})
		root.AddSublayer(n)
	}
	tree.PrepareCommit()
	tree.Commit()
	eng, err := New(software.New(128, 128))
	if err != nil {
		b.Fatal(err)
	}
	defer eng.Close()
	dest := geom.IR(0, 0, 128, 128)
	now := time.Unix(0, 0)
	b.ReportAllocs()
	for b.Loop() {
		if _, err := eng.Render(tree.RenderRoot(), dest, Viewport{}, now); err != nil {
			b.Fatal(err)
		}
	}
}
