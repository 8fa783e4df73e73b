// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

import (
	"image"
	"image/color"
	"math"
	"slices"
	"time"

	"github.com/gogpu/compositor/animation"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/texture"
)

// AuthoringNode is the layout-side handle of a layer. Its mutators record
// changes that the next commit copies to the render side.
type AuthoringNode struct {
	tree *Tree
	id   ID
	name string

	geo     Geometry
	content Content

	parent   ID
	children []ID

	// dirty is the area to repaint, in layer coordinates.
	dirty         geom.Rect
	contentsDirty bool
	allocatedSize image.Point

	// contentGen changes whenever painted pixels stop matching the
	// content or bounds, so a paint that raced such a change is dropped.
	contentGen uint64

	// staged holds painted pixels waiting for the next commit.
	staged *stagedContents

	destroyed bool
}

// ID returns the layer's identifier.
func (n *AuthoringNode) ID() ID { return n.id }

// Tree returns the owning tree.
func (n *AuthoringNode) Tree() *Tree { return n.tree }

// update applies fn under the tree lock and schedules a commit.
func (n *AuthoringNode) update(fn func()) {
	n.tree.mu.Lock()
	fn()
	n.tree.mu.Unlock()
	n.tree.requestCommit()
}

// read runs fn under the tree lock.
func (n *AuthoringNode) read(fn func()) {
	n.tree.mu.Lock()
	fn()
	n.tree.mu.Unlock()
}

// SetName sets a debug name.
func (n *AuthoringNode) SetName(name string) { n.read(func() { n.name = name }) }

// Name returns the debug name.
func (n *AuthoringNode) Name() (name string) {
	n.read(func() { name = n.name })
	return name
}

// Geometry returns a copy of the current attributes.
func (n *AuthoringNode) Geometry() (g Geometry) {
	n.read(func() { g = n.geo })
	return g
}

// Content returns the current content.
func (n *AuthoringNode) Content() (c Content) {
	n.read(func() { c = n.content })
	return c
}

// NeedsTexture reports whether the layer has pixels to draw.
func (n *AuthoringNode) NeedsTexture() (b bool) {
	n.read(func() { b = n.content.NeedsTexture() })
	return b
}

// DirtyRect returns the area waiting to be repainted.
func (n *AuthoringNode) DirtyRect() (r geom.Rect) {
	n.read(func() { r = n.dirty })
	return r
}

// Bounds returns the layer size.
func (n *AuthoringNode) Bounds() (s geom.Size) {
	n.read(func() { s = n.geo.Bounds })
	return s
}

// SetBounds resizes the layer. The first resize from an empty size
// repaints everything, and a video layer's hole is resized to the new
// bounds.
func (n *AuthoringNode) SetBounds(s geom.Size) {
	n.update(func() {
		if n.geo.Bounds == s {
			return
		}
		firstResize := n.geo.Bounds.Width == 0 && n.geo.Bounds.Height == 0 &&
			s.Width != 0 && s.Height != 0
		n.geo.Bounds = s
		if n.content.Kind == ContentOwn {
			n.contentGen++
		}
		if n.content.Kind == ContentVideo {
			n.geo.HolePunchRect = geom.RectFromSize(s)
		}
		if firstResize {
			n.setNeedsDisplayLocked()
		}
	})
}

// SetPosition moves the layer's anchor point in the parent's space.
func (n *AuthoringNode) SetPosition(p geom.Point) {
	n.update(func() { n.geo.Position = p })
}

// SetAnchorPoint sets the normalized anchor point.
func (n *AuthoringNode) SetAnchorPoint(p geom.Point) {
	n.update(func() { n.geo.AnchorPoint = p })
}

// SetAnchorPointZ sets the anchor depth.
func (n *AuthoringNode) SetAnchorPointZ(z float64) {
	n.update(func() { n.geo.AnchorPointZ = z })
}

// SetTransform sets the transform applied at the anchor point.
func (n *AuthoringNode) SetTransform(m geom.Matrix4) {
	n.update(func() { n.geo.Transform = m })
}

// SetSublayerTransform sets the transform applied to the sublayers.
func (n *AuthoringNode) SetSublayerTransform(m geom.Matrix4) {
	n.update(func() { n.geo.SublayerTransform = m })
}

// SetOpacity sets the opacity, clamped to [0, 1].
func (n *AuthoringNode) SetOpacity(o float64) {
	n.update(func() { n.geo.Opacity = math.Max(0, math.Min(o, 1)) })
}

// SetBackgroundColor sets the background colour.
func (n *AuthoringNode) SetBackgroundColor(c color.RGBA) {
	n.update(func() { n.geo.BackgroundColor = c })
}

// SetBorderColor sets the debug border colour. A transparent colour draws
// no border.
func (n *AuthoringNode) SetBorderColor(c color.RGBA) {
	n.update(func() { n.geo.BorderColor = c })
}

// SetBorderWidth sets the debug border width in pixels.
func (n *AuthoringNode) SetBorderWidth(w float64) {
	n.update(func() { n.geo.BorderWidth = w })
}

// SetMasksToBounds clips sublayers to the layer bounds.
func (n *AuthoringNode) SetMasksToBounds(b bool) {
	n.update(func() { n.geo.MasksToBounds = b })
}

// SetDoubleSided controls whether the back face is drawn.
func (n *AuthoringNode) SetDoubleSided(b bool) {
	n.update(func() { n.geo.DoubleSided = b })
}

// SetPreserves3D keeps sublayers in 3D and depth sorts them.
func (n *AuthoringNode) SetPreserves3D(b bool) {
	n.update(func() { n.geo.Preserves3D = b })
}

// SetGeometryFlipped flips the layer's y axis.
func (n *AuthoringNode) SetGeometryFlipped(b bool) {
	n.update(func() { n.geo.GeometryFlipped = b })
}

// SetHidden hides the layer's own content.
func (n *AuthoringNode) SetHidden(b bool) {
	n.update(func() { n.geo.Hidden = b })
}

// SetOpaque marks the content as fully opaque.
func (n *AuthoringNode) SetOpaque(b bool) {
	n.update(func() { n.geo.Opaque = b })
}

// SetFixedPosition marks the layer as fixed to the viewport.
func (n *AuthoringNode) SetFixedPosition(b bool) {
	n.update(func() { n.geo.IsFixedPosition = b })
}

// SetHasFixedContainer records a fixed-position container. It excludes
// HasFixedAncestorInDOMTree; setting both is reported as a violation and
// the newer flag wins.
func (n *AuthoringNode) SetHasFixedContainer(b bool) {
	n.update(func() {
		if b && n.geo.HasFixedAncestorInDOMTree {
			n.tree.violation("layer %d has both a fixed container and a fixed ancestor", n.id)
			n.geo.HasFixedAncestorInDOMTree = false
		}
		n.geo.HasFixedContainer = b
	})
}

// SetHasFixedAncestorInDOMTree records a fixed-position ancestor. It
// excludes HasFixedContainer.
func (n *AuthoringNode) SetHasFixedAncestorInDOMTree(b bool) {
	n.update(func() {
		if b && n.geo.HasFixedContainer {
			n.tree.violation("layer %d has both a fixed ancestor and a fixed container", n.id)
			n.geo.HasFixedContainer = false
		}
		n.geo.HasFixedAncestorInDOMTree = b
	})
}

// SetContentsGravity positions content within the bounds.
func (n *AuthoringNode) SetContentsGravity(g Gravity) {
	n.update(func() { n.geo.ContentsGravity = g })
}

// SetHolePunchRect sets the area, in layer coordinates, left transparent
// for an external surface. The empty rect removes the hole.
func (n *AuthoringNode) SetHolePunchRect(r geom.Rect) {
	n.update(func() { n.geo.HolePunchRect = r })
}

// SetNeedsDisplay marks the full bounds for repainting.
func (n *AuthoringNode) SetNeedsDisplay() {
	n.update(n.setNeedsDisplayLocked)
}

func (n *AuthoringNode) setNeedsDisplayLocked() {
	n.dirty = n.geo.BoundsRect()
	n.contentsDirty = true
}

// SetNeedsDisplayInRect adds r, in layer coordinates, to the area to
// repaint.
func (n *AuthoringNode) SetNeedsDisplayInRect(r geom.Rect) {
	n.update(func() {
		n.dirty = n.dirty.Union(r)
		n.contentsDirty = true
	})
}

// setContentLocked replaces the content. A change of NeedsTexture, or new
// content, repaints the full bounds.
func (n *AuthoringNode) setContentLocked(c Content) {
	had := n.content.NeedsTexture()
	n.content = c
	n.contentGen++
	if c.NeedsTexture() != had || c.NeedsTexture() {
		n.setNeedsDisplayLocked()
	}
}

// SetContents shows img. A nil img clears image content.
func (n *AuthoringNode) SetContents(img image.Image) {
	n.update(func() {
		if n.content.Kind == ContentImage && n.content.Image == img {
			return
		}
		if img == nil {
			if n.content.Kind == ContentImage {
				n.setContentLocked(Content{})
			}
			return
		}
		n.setContentLocked(Content{Kind: ContentImage, Image: img})
	})
}

// SetDrawsOwnContent makes p paint the layer on demand. Passing false
// clears own content.
func (n *AuthoringNode) SetDrawsOwnContent(draws bool, p Painter) {
	n.update(func() {
		if !draws || p == nil {
			if n.content.Kind == ContentOwn {
				n.setContentLocked(Content{})
			}
			return
		}
		n.setContentLocked(Content{Kind: ContentOwn, Painter: p})
	})
}

// SetPlugin shows an externally rendered plugin. The render side sees the
// change before SetPlugin returns, so a detached source may be destroyed
// right after. A nil src detaches the plugin.
func (n *AuthoringNode) SetPlugin(src ExternalSource) {
	n.setExternal(ContentPlugin, src)
}

// SetVideo shows an externally rendered video, hole punched over the full
// bounds once the source knows its size. A nil src detaches the video and
// removes the hole.
func (n *AuthoringNode) SetVideo(src ExternalSource) {
	n.setExternal(ContentVideo, src)
}

func (n *AuthoringNode) setExternal(kind ContentKind, src ExternalSource) {
	var c Content
	n.update(func() {
		if src == nil {
			if n.content.Kind != kind {
				c = n.content
				return
			}
			if kind == ContentVideo {
				n.geo.HolePunchRect = geom.Rect{}
			}
			n.setContentLocked(Content{})
		} else {
			n.setContentLocked(Content{Kind: kind, Source: src})
			if kind == ContentVideo && src.ContentSizeKnown() {
				n.geo.HolePunchRect = n.geo.BoundsRect()
			}
		}
		c = n.content
	})

	t := n.tree
	t.opts.dispatcher.Sync(func() {
		if rn := t.render[n.id]; rn != nil {
			rn.setContent(c)
		}
	})
}

// SetAnimations replaces the layer's animations. Runs without a start
// time start now. The render side owns the runs from then on.
func (n *AuthoringNode) SetAnimations(runs []*animation.Run) error {
	now := n.tree.opts.clock()
	for _, r := range runs {
		if r.StartTime.IsZero() {
			r.StartTime = now
		}
	}
	set, err := animation.NewSet(runs)
	if err != nil {
		return err
	}
	n.syncRender(func(rn *RenderNode) { rn.anims = set })
	return nil
}

// ClearAnimations removes every animation. The committed transform and
// opacity return with the next commit.
func (n *AuthoringNode) ClearAnimations() {
	n.syncRender(func(rn *RenderNode) { rn.anims = nil })
	n.tree.requestCommit()
}

// SuspendAnimations freezes running animations at t.
func (n *AuthoringNode) SuspendAnimations(t time.Time) {
	n.syncRender(func(rn *RenderNode) {
		if rn.anims != nil {
			rn.anims.Suspend(t)
		}
	})
}

// ResumeAnimations unfreezes animations.
func (n *AuthoringNode) ResumeAnimations() {
	n.syncRender(func(rn *RenderNode) {
		if rn.anims != nil {
			rn.anims.Resume()
		}
	})
}

// syncRender runs fn against the render twin on the compositing goroutine,
// creating the twin if no commit has reached it yet.
func (n *AuthoringNode) syncRender(fn func(rn *RenderNode)) {
	t := n.tree
	t.opts.dispatcher.Sync(func() { fn(t.renderFor(n.id)) })
}

// Superlayer returns the parent, or nil.
func (n *AuthoringNode) Superlayer() (p *AuthoringNode) {
	n.read(func() { p = n.tree.authoring[n.parent] })
	return p
}

// Sublayers returns the children in drawing order.
func (n *AuthoringNode) Sublayers() []*AuthoringNode {
	var out []*AuthoringNode
	n.read(func() {
		out = make([]*AuthoringNode, 0, len(n.children))
		for _, id := range n.children {
			out = append(out, n.tree.authoring[id])
		}
	})
	return out
}

// RootLayer returns the topmost ancestor, which may be n itself.
func (n *AuthoringNode) RootLayer() (root *AuthoringNode) {
	n.read(func() {
		root = n
		for p := n.tree.authoring[root.parent]; p != nil; p = n.tree.authoring[p.parent] {
			root = p
		}
	})
	return root
}

// IndexOfSublayer returns the position of ref among the children, or -1
// if ref is not a direct child.
func (n *AuthoringNode) IndexOfSublayer(ref *AuthoringNode) (i int) {
	n.read(func() { i = n.indexLocked(ref) })
	return i
}

func (n *AuthoringNode) indexLocked(ref *AuthoringNode) int {
	if ref == nil {
		return -1
	}
	return slices.Index(n.children, ref.id)
}

// AddSublayer appends child, first removing it from its current parent.
func (n *AuthoringNode) AddSublayer(child *AuthoringNode) {
	n.InsertSublayer(child, math.MaxInt)
}

// InsertSublayer inserts child at index, clamped to the number of
// children, first removing it from its current parent.
func (n *AuthoringNode) InsertSublayer(child *AuthoringNode, index int) {
	n.update(func() { n.insertLocked(child, index) })
}

func (n *AuthoringNode) insertLocked(child *AuthoringNode, index int) {
	if child == nil || child.tree != n.tree || child.destroyed || n.destroyed {
		n.tree.violation("invalid sublayer for layer %d", n.id)
		return
	}
	for p := n; p != nil; p = n.tree.authoring[p.parent] {
		if p == child {
			n.tree.violation("layer %d cannot be inserted below itself", child.id)
			return
		}
	}
	child.removeFromSuperlayerLocked()
	index = max(0, min(index, len(n.children)))
	n.children = slices.Insert(n.children, index, child.id)
	child.parent = n.id
}

// RemoveFromSuperlayer detaches the layer from its parent. Calling it on
// a detached layer does nothing.
func (n *AuthoringNode) RemoveFromSuperlayer() {
	n.tree.mu.Lock()
	removed := n.removeFromSuperlayerLocked()
	n.tree.mu.Unlock()
	if removed {
		n.tree.requestCommit()
	}
}

func (n *AuthoringNode) removeFromSuperlayerLocked() bool {
	p := n.tree.authoring[n.parent]
	if p == nil {
		n.parent = 0
		return false
	}
	i := p.indexLocked(n)
	if i < 0 {
		n.tree.violation("layer %d not found in its parent %d", n.id, p.id)
		n.parent = 0
		return false
	}
	p.children = slices.Delete(p.children, i, i+1)
	n.parent = 0
	return true
}

// ReplaceSublayer puts replacement where ref is. ref must be a child. A
// nil replacement just removes ref.
func (n *AuthoringNode) ReplaceSublayer(ref, replacement *AuthoringNode) {
	n.update(func() {
		if ref == replacement {
			return
		}
		i := n.indexLocked(ref)
		if i < 0 {
			n.tree.violation("replaced layer is not a sublayer of %d", n.id)
			return
		}
		ref.removeFromSuperlayerLocked()
		if replacement != nil {
			n.insertLocked(replacement, i)
		}
	})
}

// RemoveAllSublayers detaches every child.
func (n *AuthoringNode) RemoveAllSublayers() {
	n.update(n.removeAllLocked)
}

func (n *AuthoringNode) removeAllLocked() {
	for len(n.children) > 0 {
		c := n.tree.authoring[n.children[0]]
		if c == nil {
			n.children = n.children[1:]
			continue
		}
		c.removeFromSuperlayerLocked()
	}
}

// SetSublayers replaces the children with list.
func (n *AuthoringNode) SetSublayers(list []*AuthoringNode) {
	n.update(func() {
		ids := make([]ID, 0, len(list))
		for _, c := range list {
			if c != nil {
				ids = append(ids, c.id)
			}
		}
		if slices.Equal(ids, n.children) {
			return
		}
		n.removeAllLocked()
		for _, c := range list {
			n.insertLocked(c, len(n.children))
		}
	})
}

// Destroy removes the layer from the tree and releases its render twin on
// the compositing goroutine. It returns once the textures are gone.
// Sublayers are detached, not destroyed.
func (n *AuthoringNode) Destroy() {
	t := n.tree
	t.mu.Lock()
	if n.destroyed {
		t.mu.Unlock()
		return
	}
	n.removeFromSuperlayerLocked()
	n.removeAllLocked()
	if t.root == n.id {
		t.root = 0
	}
	delete(t.authoring, n.id)
	n.destroyed = true
	t.mu.Unlock()

	t.opts.dispatcher.Sync(func() { t.finalize(n.id) })
	t.requestCommit()
}

// stagedContents is one painted update: pix covers dirty, in content
// coordinates, and required is the full content size.
type stagedContents struct {
	pix      *image.RGBA
	dirty    image.Rectangle
	required image.Point
	gen      uint64
}

// paintJob is the work PrepareCommit does for one layer outside the tree
// lock.
type paintJob struct {
	node    *AuthoringNode
	gen     uint64
	content Content
	staged  stagedContents
}

// takePaintJob claims the layer's dirty area. Caller must hold the tree
// lock. It returns false when there is nothing to paint.
func (n *AuthoringNode) takePaintJob() (paintJob, bool) {
	job := paintJob{node: n, gen: n.contentGen, content: n.content}
	dirty := n.dirty
	n.dirty = geom.Rect{}
	n.contentsDirty = false

	switch n.content.Kind {
	case ContentOwn:
		bounds := image.Rectangle{Max: imageSize(n.geo.Bounds.Width, n.geo.Bounds.Height)}
		job.staged.required = bounds.Size()
		if job.staged.required != n.allocatedSize {
			job.staged.dirty = bounds
		} else {
			job.staged.dirty = dirty.EnclosingIntRect().Image().Intersect(bounds)
		}
		// An earlier paint not yet committed is repainted with this one.
		if s := n.staged; s != nil && s.required == job.staged.required {
			job.staged.dirty = job.staged.dirty.Union(s.dirty)
		}
	case ContentImage:
		job.staged.required = n.content.Image.Bounds().Size()
		job.staged.dirty = image.Rectangle{Max: job.staged.required}
	default:
		// External content is drawn from its source every frame.
		n.allocatedSize = image.Point{}
		n.staged = nil
		return job, false
	}

	empty := job.staged.required.X <= 0 || job.staged.required.Y <= 0
	if job.staged.dirty.Empty() && !empty {
		return job, false
	}
	return job, true
}

// paint produces the job's pixels. It runs without the tree lock, so the
// painter may call back into the tree.
func (j *paintJob) paint() {
	st := &j.staged
	if st.required.X <= 0 || st.required.Y <= 0 {
		st.required = image.Point{}
		return
	}
	var err error
	switch j.content.Kind {
	case ContentOwn:
		st.pix, err = texture.Paint(j.content.Painter, st.dirty)
	case ContentImage:
		st.pix, err = texture.FromImage(j.content.Image)
	}
	if err != nil {
		slogger().Debug("layer: content dropped", "layer", j.node.id, "err", err)
		st.pix = nil
		st.dirty = image.Rectangle{}
		st.required = image.Point{}
	}
}

// stage hands the painted pixels to the next commit. Caller must hold the
// tree lock. A paint that raced a content or bounds change is dropped;
// that change already re-dirtied the layer.
func (j *paintJob) stage() {
	n := j.node
	if n.destroyed || n.contentGen != j.gen {
		return
	}
	n.allocatedSize = j.staged.required
	st := j.staged
	st.gen = j.gen
	n.staged = &st
}
