// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
)

const drawSrc = draw.Src

// stencilCoverage is the mask value from which a pixel counts as covered
// for the stencil test and write.
const stencilCoverage = 128

// DrawTexture draws tex over q, multiplied by opacity.
func (d *Device) DrawTexture(tex gpu.Texture, q gpu.Quad, opacity float64, st gpu.DrawState) {
	t, ok := tex.(*Texture)
	if !ok {
		slogger().Warn("software: foreign texture dropped", "type", fmt.Sprintf("%T", tex))
		return
	}
	if t.released || opacity <= 0 && st.Blend != gpu.BlendSrc {
		return
	}
	pts, clip, ok := d.prepare(q, st)
	if !ok {
		return
	}
	if st.ColorWrite {
		d.texture(t, q, pts, clip)
	}
	d.composite(clip, st, func(x, y int) color.RGBA {
		c := d.scratch.RGBAAt(x, y)
		if t.format == gpu.FormatBGRA {
			c.R, c.B = c.B, c.R
		}
		return scale(c, opacity)
	})
}

// DrawColor fills q with the premultiplied colour c.
func (d *Device) DrawColor(q gpu.Quad, c color.RGBA, st gpu.DrawState) {
	_, clip, ok := d.prepare(q, st)
	if !ok {
		return
	}
	d.composite(clip, st, func(int, int) color.RGBA { return c })
}

// DrawOutline strokes the four edges of q, width pixels wide, centred on
// the edges.
func (d *Device) DrawOutline(q gpu.Quad, c color.RGBA, width float64, st gpu.DrawState) {
	if width <= 0 {
		return
	}
	pts, clip, ok := d.project(q, st)
	if !ok {
		return
	}
	d.ras.Reset(d.target.Rect.Dx(), d.target.Rect.Dy())
	hw := width / 2
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		ex, ey := dx/l*hw, dy/l*hw
		d.ras.MoveTo(float32(a.X-ex+nx), float32(a.Y-ey+ny))
		d.ras.LineTo(float32(b.X+ex+nx), float32(b.Y+ey+ny))
		d.ras.LineTo(float32(b.X+ex-nx), float32(b.Y+ey-ny))
		d.ras.LineTo(float32(a.X-ex-nx), float32(a.Y-ey-ny))
		d.ras.ClosePath()
	}
	d.ras.Draw(d.mask, d.mask.Rect, image.Opaque, image.Point{})
	d.composite(clip.Inset(-int(math.Ceil(width))).Intersect(d.limit(st)), st, func(int, int) color.RGBA { return c })
}

// project maps q to window coordinates and bounds the affected pixels.
func (d *Device) project(q gpu.Quad, st gpu.DrawState) ([4]geom.Point, image.Rectangle, bool) {
	var pts [4]geom.Point
	if !d.inFrame {
		return pts, image.Rectangle{}, false
	}
	if st.Cull && !q.FrontFacing() {
		return pts, image.Rectangle{}, false
	}
	for i, p := range q.Projected() {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return pts, image.Rectangle{}, false
		}
		pts[i] = gpu.Window(d.viewport, p)
	}
	box := geom.Quad{
		{X: pts[0].X, Y: pts[0].Y, W: 1}, {X: pts[1].X, Y: pts[1].Y, W: 1},
		{X: pts[2].X, Y: pts[2].Y, W: 1}, {X: pts[3].X, Y: pts[3].Y, W: 1},
	}.BoundingBox()
	clip := image.Rect(
		int(math.Floor(box.X)), int(math.Floor(box.Y)),
		int(math.Ceil(box.MaxX())), int(math.Ceil(box.MaxY())),
	).Intersect(d.limit(st))
	return pts, clip, !clip.Empty()
}

// limit is the region a draw may touch: the viewport, the target and the
// scissor.
func (d *Device) limit(st gpu.DrawState) image.Rectangle {
	r := d.viewport.Intersect(d.target.Rect)
	if !st.Scissor.Empty() {
		r = r.Intersect(st.Scissor)
	}
	return r
}

// prepare projects q and rasterizes its coverage into the mask.
func (d *Device) prepare(q gpu.Quad, st gpu.DrawState) ([4]geom.Point, image.Rectangle, bool) {
	pts, clip, ok := d.project(q, st)
	if !ok {
		return pts, clip, false
	}
	d.ras.Reset(d.target.Rect.Dx(), d.target.Rect.Dy())
	d.ras.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		d.ras.LineTo(float32(p.X), float32(p.Y))
	}
	d.ras.ClosePath()
	d.ras.Draw(d.mask, d.mask.Rect, image.Opaque, image.Point{})
	return pts, clip, true
}

// texture resamples t into the scratch buffer over clip. Texture (0, 0)
// lands on the first corner, (0, h) on the second and (w, 0) on the
// fourth.
func (d *Device) texture(t *Texture, q gpu.Quad, pts [4]geom.Point, clip image.Rectangle) {
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		off := d.scratch.PixOffset(clip.Min.X, y)
		clear(d.scratch.Pix[off : off+clip.Dx()*4])
	}
	w := float64(t.Width())
	h := float64(t.Height())
	u0, v0 := q[0].U, q[0].V
	du := q[3].U - u0
	dv := q[1].V - v0
	if du == 0 || dv == 0 {
		return
	}
	// Source rect in texels covered by the quad's texture coordinates.
	sr := image.Rect(
		int(math.Round(u0*w)), int(math.Round(v0*h)),
		int(math.Round((u0+du)*w)), int(math.Round((v0+dv)*h)),
	).Canon()
	if sr.Empty() {
		return
	}
	sw := float64(sr.Dx())
	sh := float64(sr.Dy())
	o := pts[0]
	ax := (pts[3].X - o.X) / sw
	ay := (pts[3].Y - o.Y) / sw
	bx := (pts[1].X - o.X) / sh
	by := (pts[1].Y - o.Y) / sh
	if ax*by-bx*ay == 0 {
		return
	}
	s2d := f64.Aff3{
		ax, bx, o.X - ax*float64(sr.Min.X) - bx*float64(sr.Min.Y),
		ay, by, o.Y - ay*float64(sr.Min.X) - by*float64(sr.Min.Y),
	}
	draw.BiLinear.Transform(d.scratch.SubImage(clip).(*image.RGBA), s2d, t.img, sr, draw.Src, nil)
}

// composite blends src into every covered pixel of clip that passes the
// stencil test, then applies the stencil write.
func (d *Device) composite(clip image.Rectangle, st gpu.DrawState, src func(x, y int) color.RGBA) {
	w := d.target.Rect.Dx()
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			cov := d.mask.Pix[d.mask.PixOffset(x, y)]
			if cov == 0 {
				continue
			}
			si := y*w + x
			if st.Stencil.Compare != gpu.CompareAlways || st.Stencil.Writes() {
				if cov < stencilCoverage || !st.Stencil.Test(d.stencil[si]) {
					continue
				}
				d.stencil[si] = st.Stencil.Apply(d.stencil[si])
			}
			if !st.ColorWrite {
				continue
			}
			s := scale(src(x, y), float64(cov)/255)
			off := d.target.PixOffset(x, y)
			px := d.target.Pix[off : off+4 : off+4]
			switch st.Blend {
			case gpu.BlendSrc:
				k := 255 - uint32(cov)
				px[0] = uint8((uint32(s.R)*255 + uint32(px[0])*k) / 255)
				px[1] = uint8((uint32(s.G)*255 + uint32(px[1])*k) / 255)
				px[2] = uint8((uint32(s.B)*255 + uint32(px[2])*k) / 255)
				px[3] = uint8((uint32(s.A)*255 + uint32(px[3])*k) / 255)
			default:
				k := 255 - uint32(s.A)
				px[0] = uint8(uint32(s.R) + uint32(px[0])*k/255)
				px[1] = uint8(uint32(s.G) + uint32(px[1])*k/255)
				px[2] = uint8(uint32(s.B) + uint32(px[2])*k/255)
				px[3] = uint8(uint32(s.A) + uint32(px[3])*k/255)
			}
		}
	}
}

// scale multiplies a premultiplied colour by f in [0, 1].
func scale(c color.RGBA, f float64) color.RGBA {
	if f >= 1 {
		return c
	}
	if f <= 0 {
		return color.RGBA{}
	}
	return color.RGBA{
		R: uint8(float64(c.R)*f + 0.5),
		G: uint8(float64(c.G)*f + 0.5),
		B: uint8(float64(c.B)*f + 0.5),
		A: uint8(float64(c.A)*f + 0.5),
	}
}
