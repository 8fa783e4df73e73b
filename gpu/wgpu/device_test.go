// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
)

// createNoopDevice opens a noop HAL device for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		open.Device.Destroy()
		instance.Destroy()
	})
	return open.Device, open.Queue
}

func newTestDevice(t *testing.T, opts ...Option) *Device {
	t.Helper()
	dev, queue := createNoopDevice(t)
	d, err := NewFromHAL(dev, queue, 64, 64, opts...)
	if err != nil {
		t.Fatalf("NewFromHAL failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func unitQuad() gpu.Quad {
	return gpu.NewQuad(geom.Quad{
		{X: -0.5, Y: 0.5, W: 1},
		{X: -0.5, Y: -0.5, W: 1},
		{X: 0.5, Y: -0.5, W: 1},
		{X: 0.5, Y: 0.5, W: 1},
	})
}

func TestNewFromHALValidates(t *testing.T) {
	dev, queue := createNoopDevice(t)
	if _, err := NewFromHAL(nil, queue, 10, 10); err == nil {
		t.Error("NewFromHAL(nil device) succeeded")
	}
	if _, err := NewFromHAL(dev, queue, 0, 10); !errors.Is(err, gpu.ErrInvalidSize) {
		t.Errorf("NewFromHAL(0x10) = %v, want %v", err, gpu.ErrInvalidSize)
	}
}

func TestFrameLifecycle(t *testing.T) {
	d := newTestDevice(t)

	if err := d.EndFrame(); !errors.Is(err, gpu.ErrNoFrame) {
		t.Errorf("EndFrame() without frame = %v, want %v", err, gpu.ErrNoFrame)
	}
	if err := d.BeginFrame(image.Rect(100, 100, 200, 200), color.RGBA{}); !errors.Is(err, gpu.ErrInvalidSize) {
		t.Errorf("BeginFrame(outside) = %v, want %v", err, gpu.ErrInvalidSize)
	}

	if err := d.BeginFrame(image.Rect(0, 0, 64, 64), color.RGBA{A: 255}); err != nil {
		t.Fatalf("BeginFrame() = %v", err)
	}
	d.DrawColor(unitQuad(), color.RGBA{R: 255, A: 255}, gpu.DefaultState())
	if err := d.EndFrame(); err != nil {
		t.Fatalf("EndFrame() = %v", err)
	}
	if got := len(d.draws); got != 1 {
		t.Errorf("recorded draws = %d, want 1", got)
	}

	d.Close()
	if err := d.BeginFrame(image.Rect(0, 0, 64, 64), color.RGBA{}); !errors.Is(err, gpu.ErrClosed) {
		t.Errorf("BeginFrame() after Close = %v, want %v", err, gpu.ErrClosed)
	}
}

func TestPartialViewportPrependsClear(t *testing.T) {
	d := newTestDevice(t)
	if err := d.BeginFrame(image.Rect(0, 0, 32, 32), color.RGBA{}); err != nil {
		t.Fatalf("BeginFrame() = %v", err)
	}
	d.DrawColor(unitQuad(), color.RGBA{G: 255, A: 255}, gpu.DefaultState())
	if err := d.EndFrame(); err != nil {
		t.Fatalf("EndFrame() = %v", err)
	}
	if len(d.draws) != 2 {
		t.Fatalf("draws = %d, want clear plus one", len(d.draws))
	}
	if k := d.draws[0].key; k.blend != gpu.BlendSrc || k.passOp != gpu.StencilReplace {
		t.Errorf("first draw key = %v, want clear", k)
	}
}

func TestPipelinesAreCachedByState(t *testing.T) {
	d := newTestDevice(t)
	tex, err := d.CreateTexture(gpu.TextureDescriptor{Width: 4, Height: 4, Format: gpu.FormatBGRA})
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	defer tex.Release()

	clip := gpu.DefaultState()
	clip.ColorWrite = false
	clip.Stencil = gpu.StencilState{Compare: gpu.CompareEqual, PassOp: gpu.StencilIncrementClamp}

	for range 2 {
		if err := d.BeginFrame(image.Rect(0, 0, 64, 64), color.RGBA{}); err != nil {
			t.Fatalf("BeginFrame() = %v", err)
		}
		d.DrawColor(unitQuad(), color.RGBA{A: 255}, gpu.DefaultState())
		d.DrawColor(unitQuad(), color.RGBA{}, clip)
		d.DrawTexture(tex, unitQuad(), 1, gpu.DefaultState())
		d.DrawTexture(tex, unitQuad(), 0.5, gpu.DefaultState())
		if err := d.EndFrame(); err != nil {
			t.Fatalf("EndFrame() = %v", err)
		}
	}
	if got := d.Pipelines(); got != 3 {
		t.Errorf("Pipelines() = %d, want 3", got)
	}
}

func TestDrawsAreRejected(t *testing.T) {
	d := newTestDevice(t)
	reversed := unitQuad()
	reversed[1], reversed[3] = reversed[3], reversed[1]
	culled := gpu.DefaultState()
	culled.Cull = true
	offscreen := gpu.DefaultState()
	offscreen.Scissor = image.Rect(100, 100, 120, 120)

	d.DrawColor(unitQuad(), color.RGBA{A: 255}, gpu.DefaultState())
	if len(d.draws) != 0 {
		t.Error("draw outside a frame was recorded")
	}

	if err := d.BeginFrame(image.Rect(0, 0, 64, 64), color.RGBA{}); err != nil {
		t.Fatalf("BeginFrame() = %v", err)
	}
	d.DrawColor(reversed, color.RGBA{A: 255}, culled)
	d.DrawColor(unitQuad(), color.RGBA{A: 255}, offscreen)
	d.DrawOutline(unitQuad(), color.RGBA{A: 255}, 0, gpu.DefaultState())
	if len(d.draws) != 0 {
		t.Errorf("draws = %d, want 0", len(d.draws))
	}

	d.DrawOutline(unitQuad(), color.RGBA{A: 255}, 2, culled)
	if len(d.draws) != 1 || d.draws[0].count != 24 {
		t.Fatalf("outline draws = %+v, want one draw of 24 vertices", d.draws)
	}
	if d.draws[0].key.cull {
		t.Error("outline strips must not be culled")
	}
	if err := d.EndFrame(); err != nil {
		t.Fatalf("EndFrame() = %v", err)
	}
}

func TestTextureErrors(t *testing.T) {
	d := newTestDevice(t, WithMaxTextureSize(32))

	if _, err := d.CreateTexture(gpu.TextureDescriptor{Width: 64, Height: 8}); !errors.Is(err, gpu.ErrTooLarge) {
		t.Errorf("CreateTexture(64x8) = %v, want %v", err, gpu.ErrTooLarge)
	}
	tex, err := d.CreateTexture(gpu.TextureDescriptor{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	if d.LiveTextures() != 1 {
		t.Errorf("LiveTextures() = %d, want 1", d.LiveTextures())
	}

	tests := []struct {
		name string
		r    image.Rectangle
		pix  int
		want error
	}{
		{"outside", image.Rect(4, 4, 12, 12), 8 * 8 * 4, gpu.ErrInvalidSize},
		{"short", image.Rect(0, 0, 8, 8), 10, gpu.ErrShortBuffer},
		{"ok", image.Rect(2, 2, 6, 6), 4 * 4 * 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tex.Upload(tt.r, make([]byte, tt.pix)); !errors.Is(err, tt.want) {
				t.Errorf("Upload(%v) = %v, want %v", tt.r, err, tt.want)
			}
		})
	}

	tex.Release()
	tex.Release()
	if d.LiveTextures() != 0 {
		t.Errorf("LiveTextures() after Release = %d, want 0", d.LiveTextures())
	}
}

func TestImportExternalRepacksRows(t *testing.T) {
	d := newTestDevice(t)
	img := gpu.ExternalImage{Width: 2, Height: 2, Stride: 12, Pix: make([]byte, 20), Format: gpu.FormatBGRA}
	tex, err := d.ImportExternal(img)
	if err != nil {
		t.Fatalf("ImportExternal() = %v", err)
	}
	if tex.Format() != gpu.FormatBGRA {
		t.Errorf("Format() = %v, want BGRA", tex.Format())
	}
	tex.Release()

	img.Pix = img.Pix[:10]
	if _, err := d.ImportExternal(img); !errors.Is(err, gpu.ErrShortBuffer) {
		t.Errorf("ImportExternal(short) = %v, want %v", err, gpu.ErrShortBuffer)
	}
	if d.LiveTextures() != 0 {
		t.Errorf("LiveTextures() = %d, want 0", d.LiveTextures())
	}
}

type plainProvider struct{}

func (plainProvider) Device() gpucontext.Device             { return nil }
func (plainProvider) Queue() gpucontext.Queue               { return nil }
func (plainProvider) Adapter() gpucontext.Adapter           { return nil }
func (plainProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

type halProvider struct {
	plainProvider
	device hal.Device
	queue  hal.Queue
}

func (p halProvider) HalDevice() any { return p.device }
func (p halProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	if _, err := NewFromProvider(plainProvider{}, 8, 8); !errors.Is(err, ErrNoHAL) {
		t.Errorf("NewFromProvider(plain) = %v, want %v", err, ErrNoHAL)
	}
	if _, err := NewFromProvider(halProvider{}, 8, 8); !errors.Is(err, ErrNoHAL) {
		t.Errorf("NewFromProvider(nil HAL) = %v, want %v", err, ErrNoHAL)
	}

	dev, queue := createNoopDevice(t)
	d, err := NewFromProvider(halProvider{device: dev, queue: queue}, 8, 8)
	if err != nil {
		t.Fatalf("NewFromProvider() = %v", err)
	}
	defer d.Close()
	if got := d.Capabilities().Name; got != "wgpu shared" {
		t.Errorf("Capabilities().Name = %q, want %q", got, "wgpu shared")
	}
}
