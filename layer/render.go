// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

import (
	"image"
	"slices"
	"time"

	"github.com/gogpu/compositor/animation"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
	"github.com/gogpu/compositor/texture"
)

// RenderNode is the compositing-side twin of an AuthoringNode. It owns the
// layer's textures and animations. Every method must run on the
// compositing goroutine.
type RenderNode struct {
	tree *Tree
	id   ID

	geo     Geometry
	content Content

	parent   ID
	children []ID

	tex      *texture.Manager
	external *texture.External
	anims    *animation.Set
	renderer Renderer

	drawTransform geom.Matrix4
	quad          geom.Quad
	drawRect      geom.Rect
	drawOpacity   float64
	visible       bool
	clipRect      geom.Rect
}

func newRenderNode(t *Tree, id ID) *RenderNode {
	return &RenderNode{
		tree:          t,
		id:            id,
		geo:           DefaultGeometry(),
		tex:           texture.NewManager(t.opts.stats, t.opts.tileEdge),
		drawTransform: geom.Identity(),
		drawOpacity:   1,
	}
}

// ID returns the layer's identifier.
func (rn *RenderNode) ID() ID { return rn.id }

// Geometry returns the committed attributes with animations applied.
func (rn *RenderNode) Geometry() Geometry { return rn.geo }

// Bounds returns the layer size.
func (rn *RenderNode) Bounds() geom.Size { return rn.geo.Bounds }

// ContentKind returns the kind of the committed content.
func (rn *RenderNode) ContentKind() ContentKind { return rn.content.Kind }

// NeedsTexture reports whether the layer has pixels to draw.
func (rn *RenderNode) NeedsTexture() bool { return rn.content.NeedsTexture() }

// Textures returns the texture manager of bitmap content.
func (rn *RenderNode) Textures() *texture.Manager { return rn.tex }

// Superlayer returns the render parent, or nil.
func (rn *RenderNode) Superlayer() *RenderNode { return rn.tree.render[rn.parent] }

// Sublayers returns the render children in drawing order.
func (rn *RenderNode) Sublayers() []*RenderNode {
	out := make([]*RenderNode, 0, len(rn.children))
	for _, id := range rn.children {
		if c := rn.tree.render[id]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// setContent installs committed content, dropping textures and external
// locks that no longer apply.
func (rn *RenderNode) setContent(c Content) {
	if rn.external != nil && (!c.Kind.External() || rn.external.Source() != c.Source) {
		rn.external.Release()
		rn.external = nil
	}
	switch c.Kind {
	case ContentPlugin, ContentVideo:
		if rn.external == nil && c.Source != nil {
			rn.external = texture.NewExternal(c.Source, rn.tree.opts.stats)
		}
	case ContentImage, ContentOwn:
		rn.tex.SetFormat(c.Format())
	}
	ownsTiles := c.Kind == ContentImage || c.Kind == ContentOwn
	if !ownsTiles && (len(rn.tex.Tiles()) > 0 || rn.tex.NeedsUpload()) {
		rn.tex.Clear()
	}
	rn.content = Content{Kind: c.Kind, Source: c.Source}
}

// setNeedsDisplay queues painted pixels for upload.
func (rn *RenderNode) setNeedsDisplay(pix *image.RGBA, dirty image.Rectangle, required image.Point) {
	if err := rn.tex.SetNeedsDisplay(rn.device(), pix, dirty, required); err != nil {
		slogger().Debug("layer: flushing pending update failed", "layer", rn.id, "err", err)
	}
}

// setSublayers links the render children to match ids.
func (rn *RenderNode) setSublayers(ids []ID) {
	if slices.Equal(ids, rn.children) {
		return
	}
	t := rn.tree
	for _, id := range rn.children {
		if c := t.render[id]; c != nil && c.parent == rn.id && !slices.Contains(ids, id) {
			c.parent = 0
		}
	}
	for _, id := range ids {
		c := t.renderFor(id)
		if c.parent != 0 && c.parent != rn.id {
			c.removeFromSuperlayer()
		}
		c.parent = rn.id
	}
	rn.children = slices.Clone(ids)
}

func (rn *RenderNode) removeFromSuperlayer() {
	p := rn.tree.render[rn.parent]
	rn.parent = 0
	if p == nil {
		return
	}
	if i := slices.Index(p.children, rn.id); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
}

// SetRenderer registers the node with r the first time it is walked.
func (rn *RenderNode) SetRenderer(r Renderer) {
	if r == rn.renderer {
		return
	}
	if rn.renderer != nil && r != nil {
		rn.tree.violation("layer %d moved between renderers", rn.id)
		rn.renderer.RemoveLayer(rn)
	}
	rn.renderer = r
	if r != nil {
		r.AddLayer(rn)
	}
}

func (rn *RenderNode) device() gpu.Device {
	if rn.renderer == nil {
		return nil
	}
	return rn.renderer.Device()
}

// SetDrawTransform sets the matrix from layer space, with the origin at
// the layer centre, to clip space. It recomputes the transformed bounds
// and their bounding rect.
func (rn *RenderNode) SetDrawTransform(m geom.Matrix4) {
	rn.drawTransform = m
	bx := rn.geo.Bounds.Width / 2
	by := rn.geo.Bounds.Height / 2
	rn.quad = m.MapQuad(geom.R(-bx, -by, 2*bx, 2*by))
	rn.drawRect = rn.quad.BoundingBox()
}

// DrawTransform returns the matrix set by SetDrawTransform.
func (rn *RenderNode) DrawTransform() geom.Matrix4 { return rn.drawTransform }

// Quad returns the transformed bounds.
func (rn *RenderNode) Quad() geom.Quad { return rn.quad }

// DrawRect returns the bounding rect of the transformed bounds.
func (rn *RenderNode) DrawRect() geom.Rect { return rn.drawRect }

// SetDrawOpacity sets the opacity inherited from all ancestors.
func (rn *RenderNode) SetDrawOpacity(o float64) { rn.drawOpacity = o }

// DrawOpacity returns the inherited opacity.
func (rn *RenderNode) DrawOpacity() float64 { return rn.drawOpacity }

// SetVisible records whether the last update pass found the node inside
// its clip.
func (rn *RenderNode) SetVisible(v bool) { rn.visible = v }

// Visible returns the value set by SetVisible.
func (rn *RenderNode) Visible() bool { return rn.visible }

// SetClipRect records the clip inherited from masking ancestors, in clip
// space.
func (rn *RenderNode) SetClipRect(r geom.Rect) { rn.clipRect = r }

// ClipRect returns the value set by SetClipRect.
func (rn *RenderNode) ClipRect() geom.Rect { return rn.clipRect }

// TransformedHolePunchRect maps the hole onto the draw transform.
func (rn *RenderNode) TransformedHolePunchRect() geom.Quad {
	hp := rn.geo.HolePunchRect
	return rn.drawTransform.MapQuad(geom.R(
		-rn.geo.Bounds.Width/2+hp.X,
		-rn.geo.Bounds.Height/2+hp.Y,
		hp.Width, hp.Height,
	))
}

// HasVisibleHolePunchRect reports whether a hole should be punched.
// Hidden plugins and videos punch nothing.
func (rn *RenderNode) HasVisibleHolePunchRect() bool {
	if rn.content.Kind.External() && rn.geo.Hidden {
		return false
	}
	return rn.geo.HasHolePunchRect()
}

// ContentsDirty reports whether bitmap content waits for upload.
func (rn *RenderNode) ContentsDirty() bool {
	return rn.tex.NeedsUpload()
}

// UploadTextures uploads pending bitmap content. External content is never
// uploaded.
func (rn *RenderNode) UploadTextures(dev gpu.Device) error {
	switch rn.content.Kind {
	case ContentImage, ContentOwn:
		if rn.tex.NeedsUpload() {
			return rn.tex.Upload(dev)
		}
	}
	return nil
}

// DeleteTextures releases every texture and any locked external buffer.
// A later commit repaints the layer.
func (rn *RenderNode) DeleteTextures() {
	if rn.external != nil {
		rn.external.Release()
	}
	rn.tex.Delete()
	if rn.tex.Repaint() {
		rn.tree.requestCommit()
	}
}

// HasAnimations reports whether any animation is attached.
func (rn *RenderNode) HasAnimations() bool { return rn.anims.Len() > 0 }

// UpdateAnimations writes animated transform and opacity into the
// geometry. It reports whether an animation is still running.
func (rn *RenderNode) UpdateAnimations(now time.Time) bool {
	if rn.anims == nil {
		return false
	}
	target := animation.Target{Transform: rn.geo.Transform, Opacity: rn.geo.Opacity}
	running := rn.anims.Update(now, &target)
	rn.geo.Transform = target.Transform
	rn.geo.Opacity = target.Opacity
	return running
}
