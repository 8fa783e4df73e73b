// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/gpu"

	// Register the Vulkan backend for New.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// DefaultMaxTextureSize is the texture edge limit of devices whose HAL
// limits are unknown.
const DefaultMaxTextureSize = 8192

// DefaultFenceTimeout bounds the wait for a submitted frame.
const DefaultFenceTimeout = 5 * time.Second

// copyPitchAlignment is the row alignment of texture to buffer copies.
const copyPitchAlignment = 256

// ErrNoHAL is returned by NewFromProvider when the provider does not
// expose HAL objects.
var ErrNoHAL = errors.New("wgpu: provider does not expose a HAL device")

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

// WithFenceTimeout sets how long EndFrame waits for the GPU.
func WithFenceTimeout(t time.Duration) Option {
	return func(d *Device) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// Device renders compositor frames on a HAL device.
type Device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	owned    bool
	name     string

	pipes  pipelines
	target renderTarget
	image  *image.RGBA

	viewport image.Rectangle
	clear    color.RGBA
	inFrame  bool
	closed   bool

	vertices []float32
	draws    []drawCall

	maxTexture int
	timeout    time.Duration
	live       int
}

var _ gpu.Device = (*Device)(nil)

// New opens the first suitable Vulkan adapter and returns a device with a
// width x height render target.
func New(width, height int, opts ...Option) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, errors.New("wgpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("wgpu: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	limits := gputypes.DefaultLimits()
	open, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	opts = append([]Option{WithMaxTextureSize(int(limits.MaxTextureDimension2D))}, opts...)
	d, err := newDevice(open.Device, open.Queue, selected.Info.Name, width, height, opts)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.owned = true
	return d, nil
}

// NewFromHAL wraps an open HAL device. The caller keeps ownership of
// device and queue.
func NewFromHAL(device hal.Device, queue hal.Queue, width, height int, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, errors.New("wgpu: nil HAL device or queue")
	}
	return newDevice(device, queue, "hal", width, height, opts)
}

// NewFromProvider shares the device of a host application. The provider
// must also implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func NewFromProvider(p gpucontext.DeviceProvider, width, height int, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	return newDevice(device, queue, "shared", width, height, opts)
}

func newDevice(device hal.Device, queue hal.Queue, name string, width, height int, opts []Option) (*Device, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", gpu.ErrInvalidSize, width, height)
	}
	d := &Device{
		device:     device,
		queue:      queue,
		name:       name,
		image:      image.NewRGBA(image.Rect(0, 0, width, height)),
		maxTexture: DefaultMaxTextureSize,
		timeout:    DefaultFenceTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.pipes.init(device); err != nil {
		d.pipes.destroy()
		return nil, fmt.Errorf("wgpu: %w", err)
	}
	if err := d.target.ensure(device, uint32(width), uint32(height)); err != nil { //nolint:gosec // positive, checked above
		d.pipes.destroy()
		return nil, fmt.Errorf("wgpu: %w", err)
	}
	slogger().Info("wgpu: device ready", "adapter", name, "width", width, "height", height, "maxTexture", d.maxTexture)
	return d, nil
}

// Image returns the pixels of the last finished frame. It is valid until
// the next EndFrame.
func (d *Device) Image() *image.RGBA { return d.image }

// LiveTextures returns the number of textures not yet released.
func (d *Device) LiveTextures() int { return d.live }

// Pipelines returns the number of cached render pipelines.
func (d *Device) Pipelines() int { return d.pipes.Len() }

// BeginFrame implements gpu.Device.
func (d *Device) BeginFrame(viewport image.Rectangle, clear color.RGBA) error {
	if d.closed {
		return gpu.ErrClosed
	}
	if viewport.Intersect(d.image.Rect).Empty() {
		return fmt.Errorf("%w: viewport %v outside target %v", gpu.ErrInvalidSize, viewport, d.image.Rect)
	}
	d.viewport = viewport
	d.clear = clear
	d.inFrame = true
	d.vertices = d.vertices[:0]
	d.draws = d.draws[:0]
	return nil
}

// EndFrame implements gpu.Device. It submits the recorded draws, waits
// for the GPU and reads the target back into Image.
func (d *Device) EndFrame() error {
	if !d.inFrame {
		return gpu.ErrNoFrame
	}
	d.inFrame = false
	if err := d.submit(); err != nil {
		return fmt.Errorf("wgpu: %w", err)
	}
	return nil
}

// Capabilities implements gpu.Device.
func (d *Device) Capabilities() gpu.Capabilities {
	return gpu.Capabilities{MaxTextureSize: d.maxTexture, Name: "wgpu " + d.name}
}

// Close releases pipelines and the render target, and the HAL device
// when New opened it.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.inFrame = false
	d.pipes.destroy()
	d.target.destroy(d.device)
	if d.owned {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	if d.live > 0 {
		slogger().Warn("wgpu: device closed with live textures", "count", d.live)
	}
	return nil
}

// fullTarget reports whether the viewport covers the whole target, in
// which case the render pass clears instead of drawing a clear quad.
func (d *Device) fullTarget() bool {
	return d.viewport.Intersect(d.image.Rect) == d.image.Rect
}

// submit encodes one render pass for the recorded draws, copies the
// target into a staging buffer and reads it back.
func (d *Device) submit() error {
	if !d.fullTarget() {
		d.prependClear()
	}

	resolved := make([]hal.RenderPipeline, len(d.draws))
	for i, dc := range d.draws {
		rp, err := d.pipes.get(dc.key)
		if err != nil {
			return err
		}
		resolved[i] = rp
	}

	var vbuf hal.Buffer
	if len(d.vertices) > 0 {
		data := packVertices(d.vertices)
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "composite_vertices",
			Size:  uint64(len(data)),
			Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create vertex buffer: %w", err)
		}
		defer d.device.DestroyBuffer(buf)
		d.queue.WriteBuffer(buf, 0, data)
		vbuf = buf
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "composite_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("composite_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := d.target.passDescriptor(d.fullTarget(), clearValue(d.clear))
	rp := encoder.BeginRenderPass(pass)
	vp := d.viewport
	rp.SetViewport(float32(vp.Min.X), float32(vp.Min.Y), float32(vp.Dx()), float32(vp.Dy()), 0, 1)
	for i, dc := range d.draws {
		rp.SetPipeline(resolved[i])
		if dc.bind != nil {
			rp.SetBindGroup(0, dc.bind, nil)
		}
		rp.SetVertexBuffer(0, vbuf, 0)
		s := dc.scissor
		rp.SetScissorRect(uint32(s.Min.X), uint32(s.Min.Y), uint32(s.Dx()), uint32(s.Dy())) //nolint:gosec // clipped to the target
		rp.SetStencilReference(uint32(dc.ref))
		rp.Draw(dc.count, 1, dc.first, 0)
	}
	rp.End()

	w, h := d.target.width, d.target.height
	bytesPerRow := w * gpu.BytesPerPixel
	aligned := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(aligned) * uint64(h)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "composite_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.target.colorTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(d.target.colorTex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: aligned, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: d.target.colorTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.target.colorTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, d.timeout)
	if err != nil || !ok {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", ok, err)
	}

	readback := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	for y := range int(h) {
		src := readback[y*int(aligned) : y*int(aligned)+int(bytesPerRow)]
		copy(d.image.Pix[y*d.image.Stride:], src)
	}
	slogger().Debug("wgpu: frame submitted", "draws", len(d.draws), "vertices", len(d.vertices)/floatsPerVertex)
	return nil
}

// clearValue converts a premultiplied colour to the pass clear value.
func clearValue(c color.RGBA) gputypes.Color {
	return gputypes.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}
