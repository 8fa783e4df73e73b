// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/gpu"
)

// Texture is a sampled RGBA8 texture. BGRA content is stored unswizzled
// and swapped by the fragment shader.
type Texture struct {
	dev    *Device
	tex    hal.Texture
	view   hal.TextureView
	bind   hal.BindGroup
	width  int
	height int
	format gpu.PixelFormat
}

var _ gpu.Texture = (*Texture)(nil)

// Width implements gpu.Texture.
func (t *Texture) Width() int { return t.width }

// Height implements gpu.Texture.
func (t *Texture) Height() int { return t.height }

// Format implements gpu.Texture.
func (t *Texture) Format() gpu.PixelFormat { return t.format }

// Upload implements gpu.Texture.
func (t *Texture) Upload(r image.Rectangle, pix []byte) error {
	if t.tex == nil || t.dev.closed {
		return gpu.ErrClosed
	}
	if r.Empty() || !r.In(image.Rect(0, 0, t.width, t.height)) {
		return fmt.Errorf("%w: region %v outside %dx%d", gpu.ErrInvalidSize, r, t.width, t.height)
	}
	stride := r.Dx() * gpu.BytesPerPixel
	if len(pix) < stride*r.Dy() {
		return fmt.Errorf("%w: have %d bytes, need %d", gpu.ErrShortBuffer, len(pix), stride*r.Dy())
	}
	t.dev.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(r.Min.X), Y: uint32(r.Min.Y)}, //nolint:gosec // checked against texture bounds
		},
		pix[:stride*r.Dy()],
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(stride), //nolint:gosec // bounded by max texture size
			RowsPerImage: uint32(r.Dy()), //nolint:gosec // bounded by max texture size
		},
		&hal.Extent3D{Width: uint32(r.Dx()), Height: uint32(r.Dy()), DepthOrArrayLayers: 1}, //nolint:gosec // bounded by max texture size
	)
	return nil
}

// Release implements gpu.Texture. It is idempotent.
func (t *Texture) Release() {
	if t.tex == nil {
		return
	}
	dev := t.dev.device
	if t.bind != nil {
		dev.DestroyBindGroup(t.bind)
		t.bind = nil
	}
	if t.view != nil {
		dev.DestroyTextureView(t.view)
		t.view = nil
	}
	dev.DestroyTexture(t.tex)
	t.tex = nil
	t.dev.live--
}

// bindGroup returns the texture and sampler bind group, creating it on
// first use.
func (t *Texture) bindGroup() (hal.BindGroup, error) {
	if t.bind != nil {
		return t.bind, nil
	}
	if t.tex == nil {
		return nil, gpu.ErrClosed
	}
	p := &t.dev.pipes
	bg, err := t.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "composite_texture_bind",
		Layout: p.textureLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create texture bind group: %w", err)
	}
	t.bind = bg
	return bg, nil
}

// CreateTexture implements gpu.Device.
func (d *Device) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if d.closed {
		return nil, gpu.ErrClosed
	}
	if err := desc.Validate(d.maxTexture); err != nil {
		return nil, fmt.Errorf("wgpu: create %q: %w", desc.Label, err)
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              uint32(desc.Width),  //nolint:gosec // validated above
			Height:             uint32(desc.Height), //nolint:gosec // validated above
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         desc.Label,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create %q view: %w", desc.Label, err)
	}
	d.live++
	return &Texture{
		dev:    d,
		tex:    tex,
		view:   view,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}, nil
}

// ImportExternal implements gpu.Device. The buffer is copied into a new
// texture, so the source may be unlocked once the frame has ended.
func (d *Device) ImportExternal(img gpu.ExternalImage) (gpu.Texture, error) {
	tex, err := d.CreateTexture(gpu.TextureDescriptor{
		Label:  "external",
		Width:  img.Width,
		Height: img.Height,
		Format: img.Format,
	})
	if err != nil {
		return nil, err
	}
	row := img.Width * gpu.BytesPerPixel
	stride := img.Stride
	if stride == 0 {
		stride = row
	}
	if stride < row || len(img.Pix) < stride*(img.Height-1)+row {
		tex.Release()
		return nil, fmt.Errorf("%w: external %dx%d stride %d", gpu.ErrShortBuffer, img.Width, img.Height, stride)
	}
	pix := img.Pix
	if stride != row {
		pix = make([]byte, row*img.Height)
		for y := range img.Height {
			copy(pix[y*row:(y+1)*row], img.Pix[y*stride:])
		}
	}
	if err := tex.Upload(img.Bounds(), pix); err != nil {
		tex.Release()
		return nil, err
	}
	return tex, nil
}
