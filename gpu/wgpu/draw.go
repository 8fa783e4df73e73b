// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/chewxy/math32"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
)

// floatsPerVertex matches vertexStride.
const floatsPerVertex = vertexStride / 4

// quadIndices splits a fan-ordered quad into two triangles.
var quadIndices = [6]int{0, 1, 2, 0, 2, 3}

// drawCall is one recorded draw.
type drawCall struct {
	key     pipelineKey
	bind    hal.BindGroup
	scissor image.Rectangle
	ref     uint8
	first   uint32
	count   uint32
}

// DrawTexture implements gpu.Device. Textures from other devices are
// dropped.
func (d *Device) DrawTexture(tex gpu.Texture, q gpu.Quad, opacity float64, st gpu.DrawState) {
	t, ok := tex.(*Texture)
	if !ok || t.dev != d {
		slogger().Warn("wgpu: foreign texture dropped", "type", fmt.Sprintf("%T", tex))
		return
	}
	scissor, ok := d.prepare(q, st)
	if !ok {
		return
	}
	bind, err := t.bindGroup()
	if err != nil {
		slogger().Warn("wgpu: texture draw dropped", "err", err)
		return
	}
	o := float32(opacity)
	first := d.appendQuad(q, [4]float32{o, o, o, o})
	d.draws = append(d.draws, drawCall{
		key:     keyFor(textureShader(t.format), st),
		bind:    bind,
		scissor: scissor,
		ref:     st.Stencil.Ref,
		first:   first,
		count:   6,
	})
}

// DrawColor implements gpu.Device.
func (d *Device) DrawColor(q gpu.Quad, c color.RGBA, st gpu.DrawState) {
	scissor, ok := d.prepare(q, st)
	if !ok {
		return
	}
	first := d.appendQuad(q, colorFloats(c))
	d.draws = append(d.draws, drawCall{
		key:     keyFor(shaderColor, st),
		scissor: scissor,
		ref:     st.Stencil.Ref,
		first:   first,
		count:   6,
	})
}

// DrawOutline implements gpu.Device. The edges are expanded in window
// space, so width is in target pixels whatever the transform.
func (d *Device) DrawOutline(q gpu.Quad, c color.RGBA, width float64, st gpu.DrawState) {
	if width <= 0 {
		return
	}
	scissor, ok := d.prepare(q, st)
	if !ok {
		return
	}
	var win [4]geom.Point
	for i, p := range q.Projected() {
		win[i] = gpu.Window(d.viewport, p)
	}

	col := colorFloats(c)
	hw := float32(width / 2)
	first := uint32(len(d.vertices) / floatsPerVertex) //nolint:gosec // bounded by draw count
	var count uint32
	for i := range win {
		a, b := win[i], win[(i+1)%len(win)]
		ax, ay := float32(a.X), float32(a.Y)
		bx, by := float32(b.X), float32(b.Y)
		dx, dy := bx-ax, by-ay
		l := math32.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		ex, ey := dx/l*hw, dy/l*hw
		edge := [4][2]float32{
			{ax - ex + nx, ay - ey + ny},
			{bx + ex + nx, by + ey + ny},
			{bx + ex - nx, by + ey - ny},
			{ax - ex - nx, ay - ey - ny},
		}
		for _, k := range quadIndices {
			x, y := d.clipPoint(edge[k][0], edge[k][1])
			d.vertices = append(d.vertices, x, y, 0, 1, 0, 0, col[0], col[1], col[2], col[3])
		}
		count += 6
	}
	if count == 0 {
		return
	}
	key := keyFor(shaderColor, st)
	// Edge strips wind either way.
	key.cull = false
	d.draws = append(d.draws, drawCall{
		key:     key,
		scissor: scissor,
		ref:     st.Stencil.Ref,
		first:   first,
		count:   count,
	})
}

// prepare rejects draws outside a frame, culled or degenerate quads, and
// returns the effective scissor rectangle.
func (d *Device) prepare(q gpu.Quad, st gpu.DrawState) (image.Rectangle, bool) {
	if !d.inFrame {
		return image.Rectangle{}, false
	}
	if st.Cull && !q.FrontFacing() {
		return image.Rectangle{}, false
	}
	for _, p := range q.Projected() {
		x, y := float32(p.X), float32(p.Y)
		if math32.IsNaN(x) || math32.IsNaN(y) || math32.IsInf(x, 0) || math32.IsInf(y, 0) {
			return image.Rectangle{}, false
		}
	}
	s := d.viewport.Intersect(d.image.Rect)
	if !st.Scissor.Empty() {
		s = s.Intersect(st.Scissor)
	}
	return s, !s.Empty()
}

// appendQuad appends the two triangles of q and returns the first vertex.
func (d *Device) appendQuad(q gpu.Quad, col [4]float32) uint32 {
	first := uint32(len(d.vertices) / floatsPerVertex) //nolint:gosec // bounded by draw count
	for _, k := range quadIndices {
		v := q[k]
		d.vertices = append(d.vertices,
			float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z), float32(v.Position.W),
			float32(v.U), float32(v.V),
			col[0], col[1], col[2], col[3],
		)
	}
	return first
}

// clipPoint maps a window point back to clip space with w = 1.
func (d *Device) clipPoint(x, y float32) (float32, float32) {
	vp := d.viewport
	w, h := float32(vp.Dx()), float32(vp.Dy())
	return (x-float32(vp.Min.X))/w*2 - 1, 1 - (y-float32(vp.Min.Y))/h*2
}

// prependClear inserts a draw that overwrites the viewport with the clear
// colour and zeroes its stencil values.
func (d *Device) prependClear() {
	full := gpu.NewQuad(geom.Quad{
		{X: -1, Y: 1, W: 1},
		{X: -1, Y: -1, W: 1},
		{X: 1, Y: -1, W: 1},
		{X: 1, Y: 1, W: 1},
	})
	first := d.appendQuad(full, colorFloats(d.clear))
	clear := drawCall{
		key: keyFor(shaderColor, gpu.DrawState{
			Blend:      gpu.BlendSrc,
			ColorWrite: true,
			Stencil:    gpu.StencilState{Compare: gpu.CompareAlways, PassOp: gpu.StencilReplace},
		}),
		scissor: d.viewport.Intersect(d.image.Rect),
		first:   first,
		count:   6,
	}
	d.draws = append([]drawCall{clear}, d.draws...)
}

// colorFloats converts a premultiplied colour to shader floats.
func colorFloats(c color.RGBA) [4]float32 {
	return [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

// packVertices encodes vertex floats little-endian.
func packVertices(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}
