// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"math"
	"time"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
	"github.com/gogpu/compositor/layer"
)

// clipSpace is the initial clip rect: the whole of clip space.
var clipSpace = geom.R(-1, -1, 2, 2)

// Projection maps page coordinates of the visible rect onto clip space,
// y up.
func Projection(visible geom.Rect) geom.Matrix4 {
	return geom.Ortho(0, visible.Width, visible.Height, 0, -1000, 1000).
		Translate3d(-visible.X, -visible.Y, 0)
}

// Update runs the update pass over the sublayers of root and returns the
// frame's dirty region. An empty visible rect means the whole of dest,
// and an empty layout rect means the visible rect. It leaves the engine
// idle.
func (e *Engine) Update(root *layer.RenderNode, dest geom.IntRect, vp Viewport, now time.Time) FrameResult {
	e.state = UpdatePass
	defer func() { e.state = Idle }()

	if vp.Visible.IsEmpty() {
		vp.Visible = geom.R(0, 0, float64(dest.Width), float64(dest.Height))
	}
	if vp.Layout.IsEmpty() {
		vp.Layout = vp.Visible
	}
	e.viewport = vp
	e.dest = dest
	e.now = now
	e.result = FrameResult{WasEmpty: e.lastEmpty}

	if root != nil {
		root.SetRenderer(e)
		if root.UpdateAnimations(now) {
			e.result.Animating = true
		}
		proj := Projection(vp.Visible)
		for _, c := range root.Sublayers() {
			e.updateNode(c, proj, 1, clipSpace)
		}
	}
	e.lastEmpty = e.result.Empty()
	return e.result
}

func (e *Engine) updateNode(n *layer.RenderNode, parent geom.Matrix4, parentOpacity float64, clip geom.Rect) {
	n.SetRenderer(e)
	if n.UpdateAnimations(e.now) {
		e.result.Animating = true
	}
	g := n.Geometry()

	pos := g.Position
	if g.IsFixedPosition || g.HasFixedAncestorInDOMTree {
		pos.Y += fixedPositionOffset(pos.Y, &g, e.viewport)
	}

	w, h := g.Bounds.Width, g.Bounds.Height
	cx := (0.5 - g.AnchorPoint.X) * w
	cy := (0.5 - g.AnchorPoint.Y) * h
	world := parent.
		Translate3d(pos.X, pos.Y, g.AnchorPointZ).
		Multiply(g.Transform).
		Translate3d(cx, cy, -g.AnchorPointZ)

	n.SetDrawTransform(world)
	opacity := g.Opacity * parentOpacity
	n.SetDrawOpacity(opacity)
	n.SetClipRect(clip)

	drawRect := n.DrawRect()
	visible := clip.Intersects(drawRect) || n.ContentKind() == layer.ContentVideo
	n.SetVisible(visible)

	if visible && hasContent(n, &g) {
		vp := e.dest.Image()
		e.result.AddDirty(pixelRect(gpu.WindowRect(vp, drawRect.Intersect(clip))))
	}

	if g.MasksToBounds {
		clip = clip.Intersect(drawRect)
	}

	child := world
	if !g.Preserves3D {
		child = child.Flatten()
	}
	if g.GeometryFlipped {
		child = child.Multiply(geom.Scaling(1, -1, 1))
	}
	child = child.Multiply(g.SublayerTransform).Translate3d(-w/2, -h/2, 0)

	for _, c := range n.Sublayers() {
		e.updateNode(c, child, opacity, clip)
	}
}

// hasContent reports whether the node draws anything of its own.
func hasContent(n *layer.RenderNode, g *layer.Geometry) bool {
	return n.NeedsTexture() || g.BackgroundColor.A > 0
}

// fixedPositionOffset returns how far a fixed-position layer at y moves to
// follow the visible rect. Layers below the middle of the layout rect
// stick to the bottom edge, the rest to the top edge.
func fixedPositionOffset(y float64, g *layer.Geometry, vp Viewport) float64 {
	contentsH := vp.ContentsSize.Height
	visibleH := vp.Visible.Height
	layoutH := vp.Layout.Height
	maxScrollY := contentsH - visibleH

	visibleY := max(0, vp.Visible.Y)
	layoutY := max(0, min(vp.Layout.Y, maxScrollY))

	if y-g.AnchorPoint.Y*g.Bounds.Height > layoutY+layoutH/2 {
		visibleY = min(contentsH, vp.Visible.Y+visibleH)
		layoutY = min(contentsH, max(0, vp.Layout.Y)+layoutH)
	}
	return visibleY - layoutY
}

// pixelEpsilon absorbs rounding error of the clip space round trip.
const pixelEpsilon = 1e-6

// pixelRect returns the smallest integer rect containing r, ignoring
// overhangs below pixelEpsilon.
func pixelRect(r geom.Rect) geom.IntRect {
	if r.IsEmpty() {
		return geom.IntRect{}
	}
	x0 := int(math.Floor(r.X + pixelEpsilon))
	y0 := int(math.Floor(r.Y + pixelEpsilon))
	x1 := int(math.Ceil(r.MaxX() - pixelEpsilon))
	y1 := int(math.Ceil(r.MaxY() - pixelEpsilon))
	if x1 <= x0 || y1 <= y0 {
		return geom.IntRect{}
	}
	return geom.IR(x0, y0, x1-x0, y1-y0)
}
