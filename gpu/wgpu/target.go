// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// renderTarget is the offscreen colour texture and its stencil
// attachment. Both are recreated when the size changes.
type renderTarget struct {
	colorTex    hal.Texture
	colorView   hal.TextureView
	stencilTex  hal.Texture
	stencilView hal.TextureView

	width, height uint32
}

// ensure creates or recreates the textures for width x height. Matching
// dimensions are a no-op. On failure partially created resources are
// released.
func (t *renderTarget) ensure(dev hal.Device, width, height uint32) error {
	if t.width == width && t.height == height && t.colorTex != nil {
		return nil
	}
	t.destroy(dev)

	size := hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}

	var err error
	t.colorTex, err = dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "composite_color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create colour target: %w", err)
	}
	t.colorView, err = dev.CreateTextureView(t.colorTex, &hal.TextureViewDescriptor{
		Label: "composite_color_view",
	})
	if err != nil {
		t.destroy(dev)
		return fmt.Errorf("create colour target view: %w", err)
	}

	t.stencilTex, err = dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "composite_stencil",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        stencilFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.destroy(dev)
		return fmt.Errorf("create stencil target: %w", err)
	}
	t.stencilView, err = dev.CreateTextureView(t.stencilTex, &hal.TextureViewDescriptor{
		Label: "composite_stencil_view",
	})
	if err != nil {
		t.destroy(dev)
		return fmt.Errorf("create stencil target view: %w", err)
	}

	t.width, t.height = width, height
	slogger().Debug("wgpu: render target allocated", "width", width, "height", height)
	return nil
}

// passDescriptor returns the frame's render pass. With clear set it
// clears colour to value and stencil to zero; otherwise it keeps the
// previous contents for a partial viewport.
func (t *renderTarget) passDescriptor(clear bool, value gputypes.Color) *hal.RenderPassDescriptor {
	load := gputypes.LoadOpLoad
	if clear {
		load = gputypes.LoadOpClear
	}
	return &hal.RenderPassDescriptor{
		Label: "composite_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       t.colorView,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: value,
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:              t.stencilView,
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpDiscard,
			DepthClearValue:   1.0,
			StencilLoadOp:     load,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: 0,
		},
	}
}

// destroy releases views and textures and resets the size.
func (t *renderTarget) destroy(dev hal.Device) {
	if t.stencilView != nil {
		dev.DestroyTextureView(t.stencilView)
		t.stencilView = nil
	}
	if t.stencilTex != nil {
		dev.DestroyTexture(t.stencilTex)
		t.stencilTex = nil
	}
	if t.colorView != nil {
		dev.DestroyTextureView(t.colorView)
		t.colorView = nil
	}
	if t.colorTex != nil {
		dev.DestroyTexture(t.colorTex)
		t.colorTex = nil
	}
	t.width, t.height = 0, 0
}
