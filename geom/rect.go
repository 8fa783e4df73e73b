// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geom

import (
	"image"
	"math"
)

// Rect is an axis-aligned rectangle with float64 origin and size.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// R is a convenience function to create a Rect.
func R(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// RectFromSize returns a rect at the origin with the given size.
func RectFromSize(s Size) Rect {
	return Rect{Width: s.Width, Height: s.Height}
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Size returns the rect's size.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// IsEmpty reports whether the rect has no area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersects reports whether r and s overlap with positive area.
func (r Rect) Intersects(s Rect) bool {
	return !r.IsEmpty() && !s.IsEmpty() &&
		r.X < s.MaxX() && s.X < r.MaxX() &&
		r.Y < s.MaxY() && s.Y < r.MaxY()
}

// Intersect returns the overlap of r and s, or the zero Rect.
func (r Rect) Intersect(s Rect) Rect {
	x0 := math.Max(r.X, s.X)
	y0 := math.Max(r.Y, s.Y)
	x1 := math.Min(r.MaxX(), s.MaxX())
	y1 := math.Min(r.MaxY(), s.MaxY())
	if x0 >= x1 || y0 >= y1 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Union returns the smallest rect containing r and s.
// Empty rects do not contribute.
func (r Rect) Union(s Rect) Rect {
	if r.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return r
	}
	x0 := math.Min(r.X, s.X)
	y0 := math.Min(r.Y, s.Y)
	x1 := math.Max(r.MaxX(), s.MaxX())
	y1 := math.Max(r.MaxY(), s.MaxY())
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Contains reports whether p lies inside r, edges inclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// Translate returns r moved by d.
func (r Rect) Translate(d Point) Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}

// EnclosingIntRect returns the smallest IntRect containing r.
func (r Rect) EnclosingIntRect() IntRect {
	if r.IsEmpty() {
		return IntRect{}
	}
	x0 := int(math.Floor(r.X))
	y0 := int(math.Floor(r.Y))
	x1 := int(math.Ceil(r.MaxX()))
	y1 := int(math.Ceil(r.MaxY()))
	return IntRect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// IntRect is an integer rectangle in pixel space.
type IntRect struct {
	X, Y          int
	Width, Height int
}

// IR is a convenience function to create an IntRect.
func IR(x, y, w, h int) IntRect {
	return IntRect{X: x, Y: y, Width: w, Height: h}
}

// IntRectFromImage converts an image.Rectangle.
func IntRectFromImage(r image.Rectangle) IntRect {
	return IntRect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// MaxX returns the right edge.
func (r IntRect) MaxX() int { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r IntRect) MaxY() int { return r.Y + r.Height }

// IsEmpty reports whether the rect has no area.
func (r IntRect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns Width*Height, or 0 for an empty rect.
func (r IntRect) Area() int {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}

// Intersect returns the overlap of r and s, or the zero IntRect.
func (r IntRect) Intersect(s IntRect) IntRect {
	return IntRectFromImage(r.Image().Intersect(s.Image()))
}

// Union returns the smallest rect containing r and s.
func (r IntRect) Union(s IntRect) IntRect {
	if r.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return r
	}
	return IntRectFromImage(r.Image().Union(s.Image()))
}

// Image converts to an image.Rectangle.
func (r IntRect) Image() image.Rectangle {
	if r.IsEmpty() {
		return image.Rectangle{}
	}
	return image.Rect(r.X, r.Y, r.MaxX(), r.MaxY())
}

// Rect converts to a float Rect.
func (r IntRect) Rect() Rect {
	return Rect{X: float64(r.X), Y: float64(r.Y), Width: float64(r.Width), Height: float64(r.Height)}
}

// Size returns the rect's size as an integer pair.
func (r IntRect) Size() (int, int) {
	return r.Width, r.Height
}
