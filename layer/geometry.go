// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
	"github.com/gogpu/compositor/texture"
)

// Painter draws a layer's own content into a dirty rectangle.
type Painter = texture.Painter

// PainterFunc adapts a function to Painter.
type PainterFunc = texture.PainterFunc

// ExternalSource supplies plugin or video frames as lockable buffers.
type ExternalSource = texture.ExternalSource

// Gravity positions content inside the layer bounds.
type Gravity uint8

// Gravity values.
const (
	GravityCenter Gravity = iota
	GravityTop
	GravityBottom
	GravityLeft
	GravityRight
	GravityTopLeft
	GravityTopRight
	GravityBottomLeft
	GravityBottomRight
	GravityResize
	GravityResizeAspect
	GravityResizeAspectFill
)

var gravityNames = [...]string{
	"center", "top", "bottom", "left", "right",
	"topLeft", "topRight", "bottomLeft", "bottomRight",
	"resize", "resizeAspect", "resizeAspectFill",
}

// String returns the gravity name.
func (g Gravity) String() string {
	if int(g) < len(gravityNames) {
		return gravityNames[g]
	}
	return fmt.Sprintf("Gravity(%d)", int(g))
}

// ParseGravity returns the gravity with the given name.
func ParseGravity(s string) (Gravity, bool) {
	for i, n := range gravityNames {
		if n == s {
			return Gravity(i), true
		}
	}
	return GravityCenter, false
}

// ContentKind is the active member of Content.
type ContentKind uint8

const (
	// ContentNone is a pure container.
	ContentNone ContentKind = iota

	// ContentImage holds a decoded bitmap.
	ContentImage

	// ContentOwn is painted on demand by a Painter.
	ContentOwn

	// ContentPlugin is an externally rendered plugin surface.
	ContentPlugin

	// ContentVideo is an externally rendered video surface. Video is
	// always hole punched over the full bounds.
	ContentVideo
)

// String returns the kind name.
func (k ContentKind) String() string {
	switch k {
	case ContentNone:
		return "none"
	case ContentImage:
		return "image"
	case ContentOwn:
		return "own"
	case ContentPlugin:
		return "plugin"
	case ContentVideo:
		return "video"
	default:
		return fmt.Sprintf("ContentKind(%d)", int(k))
	}
}

// External reports whether the kind is drawn from an ExternalSource.
func (k ContentKind) External() bool {
	return k == ContentPlugin || k == ContentVideo
}

// Content is what a layer shows. Only the field matching Kind is set.
type Content struct {
	Kind    ContentKind
	Image   image.Image
	Painter Painter
	Source  ExternalSource
}

// NeedsTexture reports whether the content has pixels to draw.
func (c Content) NeedsTexture() bool {
	return c.Kind != ContentNone
}

// Format returns the shader variant the content is drawn with.
// Video defaults to BGRA, plugins ask their source, everything else is
// RGBA.
func (c Content) Format() gpu.PixelFormat {
	switch c.Kind {
	case ContentVideo:
		if c.Source != nil {
			return c.Source.PixelFormat()
		}
		return gpu.FormatBGRA
	case ContentPlugin:
		if c.Source != nil {
			return c.Source.PixelFormat()
		}
	}
	return gpu.FormatRGBA
}

// Geometry is the attribute set shared by authoring and render nodes.
// A commit copies it as a whole.
type Geometry struct {
	Bounds       geom.Size
	Position     geom.Point
	AnchorPoint  geom.Point
	AnchorPointZ float64

	// Transform is applied at the anchor point.
	Transform geom.Matrix4

	// SublayerTransform is applied to the children's coordinate space.
	SublayerTransform geom.Matrix4

	Opacity float64

	// BackgroundColor is straight alpha and fills the bounds below the
	// content.
	BackgroundColor color.RGBA

	// BorderColor outlines the layer when its alpha is non-zero. It is
	// drawn opaque.
	BorderColor color.RGBA
	BorderWidth float64

	MasksToBounds   bool
	DoubleSided     bool
	Preserves3D     bool
	GeometryFlipped bool
	Hidden          bool
	Opaque          bool

	IsFixedPosition           bool
	HasFixedContainer         bool
	HasFixedAncestorInDOMTree bool

	ContentsGravity Gravity

	// HolePunchRect is in layer coordinates with the origin at the
	// top-left corner. The empty rect means no hole.
	HolePunchRect geom.Rect
}

// DefaultGeometry returns the attributes of a new layer.
func DefaultGeometry() Geometry {
	return Geometry{
		AnchorPoint:       geom.Pt(0.5, 0.5),
		Transform:         geom.Identity(),
		SublayerTransform: geom.Identity(),
		Opacity:           1,
		DoubleSided:       true,
		ContentsGravity:   GravityResize,
	}
}

// BoundsRect returns the layer bounds at the origin.
func (g *Geometry) BoundsRect() geom.Rect {
	return geom.RectFromSize(g.Bounds)
}

// HasHolePunchRect reports whether a hole is set.
func (g *Geometry) HasHolePunchRect() bool {
	return !g.HolePunchRect.IsEmpty()
}
