// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"cmp"
	"image"
	"image/color"
	"slices"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
	"github.com/gogpu/compositor/layer"
)

// Draw runs the draw pass over the sublayers of root, using the transforms
// of the last Update. Locked external buffers are released once the frame
// has ended.
func (e *Engine) Draw(root *layer.RenderNode) (FrameResult, error) {
	if e.closed {
		return e.result, ErrClosed
	}
	e.state = DrawPass
	defer func() { e.state = Idle }()

	vp := e.dest.Image()
	if err := e.dev.BeginFrame(vp, e.opts.clear); err != nil {
		return e.result, err
	}
	e.result.HolePunchRects = nil
	if root != nil {
		for _, c := range root.Sublayers() {
			e.drawNode(c, 0, vp)
		}
	}
	err := e.dev.EndFrame()
	e.releases.Flush()
	return e.result, err
}

func (e *Engine) drawNode(n *layer.RenderNode, stencil uint8, vp image.Rectangle) {
	g := n.Geometry()

	base := gpu.DefaultState()
	base.Stencil = gpu.StencilState{Compare: gpu.CompareEqual, Ref: stencil}

	if n.Visible() {
		st := base
		clipWindow := gpu.WindowRect(vp, n.ClipRect())
		st.Scissor = gpu.Scissor(vp, clipWindow)
		st.Cull = !g.DoubleSided
		if !st.Scissor.Empty() {
			e.drawContent(n, &g, st, clipWindow)
		}
	}

	stencilClip := g.MasksToBounds && n.DrawTransform().HasRotationalComponent()
	if stencilClip && stencil == 255 {
		slogger().Warn("composite: stencil clip depth exhausted", "layer", n.ID())
		stencilClip = false
	}
	quad := gpu.NewQuad(n.Quad())
	childStencil := stencil
	if stencilClip {
		e.dev.DrawColor(quad, color.RGBA{}, gpu.DrawState{
			Stencil: gpu.StencilState{Compare: gpu.CompareEqual, Ref: stencil, PassOp: gpu.StencilIncrementClamp},
		})
		childStencil = stencil + 1
	}

	children := n.Sublayers()
	if g.Preserves3D {
		slices.SortStableFunc(children, func(a, b *layer.RenderNode) int {
			return cmp.Compare(a.DrawTransform().ZTranslation(), b.DrawTransform().ZTranslation())
		})
	}
	for _, c := range children {
		e.drawNode(c, childStencil, vp)
	}

	if stencilClip {
		e.dev.DrawColor(quad, color.RGBA{}, gpu.DrawState{
			Stencil: gpu.StencilState{Compare: gpu.CompareLessEqual, Ref: stencil, PassOp: gpu.StencilReplace},
		})
	}
}

// drawContent draws the node's own pixels: hole, background, content and
// debug border.
func (e *Engine) drawContent(n *layer.RenderNode, g *layer.Geometry, st gpu.DrawState, clipWindow geom.Rect) {
	quad := gpu.NewQuad(n.Quad())

	if n.NeedsTexture() {
		if err := n.UploadTextures(e.dev); err != nil {
			slogger().Debug("composite: upload failed, retrying next frame", "layer", n.ID(), "err", err)
		}

		if n.HasVisibleHolePunchRect() {
			hole := n.TransformedHolePunchRect()
			hs := st
			hs.Blend = gpu.BlendSrc
			e.dev.DrawColor(gpu.NewQuad(hole), color.RGBA{}, hs)
			r := pixelRect(gpu.WindowRect(e.dest.Image(), hole.BoundingBox()).Intersect(clipWindow))
			if !r.IsEmpty() {
				e.result.HolePunchRects = append(e.result.HolePunchRects, r)
			}
		}
	}

	if !g.Hidden {
		if g.BackgroundColor.A > 0 {
			e.dev.DrawColor(quad, premultiply(g.BackgroundColor, n.DrawOpacity()), st)
		}
		if n.NeedsTexture() {
			dc := layer.DrawContext{Device: e.dev, State: st, Releases: &e.releases}
			if !n.DrawTextures(dc) && e.opts.placeholders {
				n.DrawMissingTextures(dc, e.resources.Placeholder())
			}
		}
	}

	if g.BorderColor.A > 0 || e.opts.debugBorders {
		c, w := DefaultBorderColor, float64(DefaultBorderWidth)
		if g.BorderColor.A > 0 {
			c = g.BorderColor
			c.A = 0xff
		}
		if g.BorderWidth > 0 {
			w = g.BorderWidth
		}
		bs := st
		bs.Cull = false
		e.dev.DrawOutline(quad, c, w, bs)
	}
}

// premultiply scales a straight-alpha colour by its alpha and opacity.
func premultiply(c color.RGBA, opacity float64) color.RGBA {
	a := float64(c.A) / 255 * opacity
	return color.RGBA{
		R: uint8(float64(c.R)*a + 0.5),
		G: uint8(float64(c.G)*a + 0.5),
		B: uint8(float64(c.B)*a + 0.5),
		A: uint8(255*a + 0.5),
	}
}
