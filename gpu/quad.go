// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"image"
	"math"

	"github.com/gogpu/compositor/geom"
)

// Vertex is a clip-space position with a texture coordinate.
type Vertex struct {
	Position geom.Point4
	U, V     float64
}

// Quad is four vertices in fan order. Compositor quads start at the
// top-left corner and run counter-clockwise in clip space.
type Quad [4]Vertex

// quadUV is the texture coordinate of each corner of a compositor quad.
var quadUV = [4][2]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

// NewQuad attaches the standard texture coordinates to q.
func NewQuad(q geom.Quad) Quad {
	var out Quad
	for i := range q {
		out[i] = Vertex{Position: q[i], U: quadUV[i][0], V: quadUV[i][1]}
	}
	return out
}

// Projected returns the four corners after the perspective divide.
func (q Quad) Projected() [4]geom.Point {
	var p [4]geom.Point
	for i := range q {
		p[i] = q[i].Position.Project()
	}
	return p
}

// FrontFacing reports whether the projected quad winds counter-clockwise.
func (q Quad) FrontFacing() bool {
	p := q.Projected()
	var area float64
	for i := range p {
		j := (i + 1) % len(p)
		area += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return area > 0
}

// Window maps a clip-space point onto viewport, with y growing downwards.
func Window(viewport image.Rectangle, p geom.Point) geom.Point {
	w := float64(viewport.Dx())
	h := float64(viewport.Dy())
	return geom.Point{
		X: float64(viewport.Min.X) + (p.X+1)*w/2,
		Y: float64(viewport.Min.Y) + (1-p.Y)*h/2,
	}
}

// WindowRect maps a clip-space rectangle onto viewport.
func WindowRect(viewport image.Rectangle, r geom.Rect) geom.Rect {
	a := Window(viewport, geom.Pt(r.X, r.MaxY()))
	b := Window(viewport, geom.Pt(r.MaxX(), r.Y))
	return geom.Rect{X: a.X, Y: a.Y, Width: b.X - a.X, Height: b.Y - a.Y}
}

// Scissor converts a window rectangle into whole pixels, rounding outwards
// and clipping to viewport.
func Scissor(viewport image.Rectangle, r geom.Rect) image.Rectangle {
	if r.IsEmpty() {
		return image.Rectangle{}
	}
	s := image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.MaxX())), int(math.Ceil(r.MaxY())),
	)
	return s.Intersect(viewport)
}
