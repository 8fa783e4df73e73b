// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements gpu.Device on the CPU.
//
// Quads are rasterized with golang.org/x/image/vector into an 8-bit
// coverage mask and textured with golang.org/x/image/draw. The device keeps
// a real stencil buffer, so stencil clipping behaves as on a GPU: a pixel
// is tested and written when the quad covers at least half of it.
//
// Perspective quads are textured with the affine map through three of
// their projected corners.
package software

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/vector"

	"github.com/gogpu/compositor/gpu"
)

// DefaultMaxTextureSize is the texture edge limit reported by default.
const DefaultMaxTextureSize = 8192

// Option configures a Device.
type Option func(*Device)

// WithMaxTextureSize sets the largest texture edge the device accepts.
func WithMaxTextureSize(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.maxTexture = n
		}
	}
}

// Device renders into an *image.RGBA with premultiplied colour.
type Device struct {
	target  *image.RGBA
	stencil []uint8
	mask    *image.Alpha
	scratch *image.RGBA
	ras     vector.Rasterizer

	viewport   image.Rectangle
	inFrame    bool
	closed     bool
	maxTexture int
	live       int
}

var _ gpu.Device = (*Device)(nil)

// New returns a device with a width x height render target.
func New(width, height int, opts ...Option) *Device {
	r := image.Rect(0, 0, max(width, 0), max(height, 0))
	d := &Device{
		target:     image.NewRGBA(r),
		stencil:    make([]uint8, r.Dx()*r.Dy()),
		mask:       image.NewAlpha(r),
		scratch:    image.NewRGBA(r),
		maxTexture: DefaultMaxTextureSize,
	}
	d.ras.DrawOp = drawSrc
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Image returns the render target. It is valid until the next BeginFrame.
func (d *Device) Image() *image.RGBA { return d.target }

// StencilAt returns the stencil value of pixel (x, y).
func (d *Device) StencilAt(x, y int) uint8 {
	if !(image.Point{X: x, Y: y}).In(d.target.Rect) {
		return 0
	}
	return d.stencil[y*d.target.Rect.Dx()+x]
}

// LiveTextures returns the number of textures not yet released.
func (d *Device) LiveTextures() int { return d.live }

// BeginFrame clears viewport and resets its stencil values.
func (d *Device) BeginFrame(viewport image.Rectangle, clear color.RGBA) error {
	if d.closed {
		return gpu.ErrClosed
	}
	vp := viewport.Intersect(d.target.Rect)
	if vp.Empty() {
		return fmt.Errorf("%w: viewport %v outside target %v", gpu.ErrInvalidSize, viewport, d.target.Rect)
	}
	d.viewport = viewport
	d.inFrame = true
	w := d.target.Rect.Dx()
	for y := vp.Min.Y; y < vp.Max.Y; y++ {
		for x := vp.Min.X; x < vp.Max.X; x++ {
			d.target.SetRGBA(x, y, clear)
			d.stencil[y*w+x] = 0
		}
	}
	return nil
}

// EndFrame finishes the frame. Pixels are final once it returns.
func (d *Device) EndFrame() error {
	if !d.inFrame {
		return gpu.ErrNoFrame
	}
	d.inFrame = false
	return nil
}

// Capabilities reports the device limits.
func (d *Device) Capabilities() gpu.Capabilities {
	return gpu.Capabilities{MaxTextureSize: d.maxTexture, Name: "software"}
}

// Close drops the render target. Textures created earlier stay usable
// until released.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.inFrame = false
	if d.live > 0 {
		slogger().Warn("software: device closed with live textures", "count", d.live)
	}
	return nil
}

// CreateTexture allocates a zeroed texture.
func (d *Device) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if d.closed {
		return nil, gpu.ErrClosed
	}
	if err := desc.Validate(d.maxTexture); err != nil {
		return nil, fmt.Errorf("software: create %q: %w", desc.Label, err)
	}
	d.live++
	return &Texture{
		dev:    d,
		img:    image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height)),
		format: desc.Format,
	}, nil
}

// ImportExternal copies a locked external buffer into a texture.
func (d *Device) ImportExternal(img gpu.ExternalImage) (gpu.Texture, error) {
	if d.closed {
		return nil, gpu.ErrClosed
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("software: import: %w: %dx%d", gpu.ErrInvalidSize, img.Width, img.Height)
	}
	stride := img.Stride
	if stride == 0 {
		stride = img.Width * gpu.BytesPerPixel
	}
	row := img.Width * gpu.BytesPerPixel
	if stride < row || len(img.Pix) < stride*(img.Height-1)+row {
		return nil, fmt.Errorf("software: import: %w", gpu.ErrShortBuffer)
	}
	dst := image.NewRGBA(img.Bounds())
	for y := 0; y < img.Height; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+row], img.Pix[y*stride:y*stride+row])
	}
	d.live++
	return &Texture{dev: d, img: dst, format: img.Format}, nil
}

// Texture is a CPU texture. Its pixels are stored in the byte order of its
// format.
type Texture struct {
	dev      *Device
	img      *image.RGBA
	format   gpu.PixelFormat
	released bool
}

var _ gpu.Texture = (*Texture)(nil)

// Width returns the texture width.
func (t *Texture) Width() int { return t.img.Rect.Dx() }

// Height returns the texture height.
func (t *Texture) Height() int { return t.img.Rect.Dy() }

// Format returns the byte order.
func (t *Texture) Format() gpu.PixelFormat { return t.format }

// Upload copies tightly packed rows into r.
func (t *Texture) Upload(r image.Rectangle, pix []byte) error {
	if t.released {
		return gpu.ErrClosed
	}
	if r.Empty() || !r.In(t.img.Rect) {
		return fmt.Errorf("software: upload %v into %v: %w", r, t.img.Rect, gpu.ErrInvalidSize)
	}
	row := r.Dx() * gpu.BytesPerPixel
	if len(pix) < row*r.Dy() {
		return fmt.Errorf("software: upload %v: %w", r, gpu.ErrShortBuffer)
	}
	for y := 0; y < r.Dy(); y++ {
		off := t.img.PixOffset(r.Min.X, r.Min.Y+y)
		copy(t.img.Pix[off:off+row], pix[y*row:(y+1)*row])
	}
	return nil
}

// Release frees the texture. Releasing twice is harmless.
func (t *Texture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.dev.live--
}

// RGBAAt returns the texel at (x, y) as premultiplied RGBA, whatever the
// storage order.
func (t *Texture) RGBAAt(x, y int) color.RGBA {
	c := t.img.RGBAAt(x, y)
	if t.format == gpu.FormatBGRA {
		c.R, c.B = c.B, c.R
	}
	return c
}
