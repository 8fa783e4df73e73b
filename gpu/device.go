// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu defines the device abstraction the compositor draws through.
//
// A Device is owned by the compositing goroutine. None of its methods are
// safe for concurrent use; the compositor only calls them from inside a
// frame, between BeginFrame and EndFrame, or while holding the
// compositing thread through a synchronous dispatch.
//
// Two implementations ship with the module: gpu/software rasterizes on the
// CPU with a real stencil buffer, and gpu/wgpu drives a gogpu/wgpu HAL
// device.
package gpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// PixelFormat is the byte order of 32-bit premultiplied pixels.
// It also selects the shader variant used to sample a texture.
type PixelFormat uint8

const (
	// FormatRGBA stores bytes in R, G, B, A order.
	FormatRGBA PixelFormat = iota

	// FormatBGRA stores bytes in B, G, R, A order.
	FormatBGRA
)

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA:
		return "RGBA"
	case FormatBGRA:
		return "BGRA"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// BytesPerPixel is the size of one pixel in every supported format.
const BytesPerPixel = 4

// Device errors.
var (
	// ErrInvalidSize is returned when a texture or image has a non-positive
	// dimension.
	ErrInvalidSize = errors.New("gpu: invalid size")

	// ErrTooLarge is returned when a texture exceeds the device limit.
	ErrTooLarge = errors.New("gpu: texture exceeds device limit")

	// ErrShortBuffer is returned when upload data is smaller than the
	// target region.
	ErrShortBuffer = errors.New("gpu: pixel buffer too small")

	// ErrNoFrame is returned by EndFrame without a matching BeginFrame.
	ErrNoFrame = errors.New("gpu: no frame in progress")

	// ErrClosed is returned by a device after Close.
	ErrClosed = errors.New("gpu: device closed")
)

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	Width  int
	Height int
	Format PixelFormat
}

// Validate checks the descriptor against a maximum edge length.
// A maxEdge of zero disables the limit check.
func (d TextureDescriptor) Validate(maxEdge int) error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, d.Width, d.Height)
	}
	if maxEdge > 0 && (d.Width > maxEdge || d.Height > maxEdge) {
		return fmt.Errorf("%w: %dx%d > %d", ErrTooLarge, d.Width, d.Height, maxEdge)
	}
	return nil
}

// Texture is a device texture holding premultiplied pixels.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() int

	// Height returns the texture height in pixels.
	Height() int

	// Format returns the pixel byte order.
	Format() PixelFormat

	// Upload writes tightly packed pixels into r. The row stride of pix is
	// r.Dx()*BytesPerPixel; callers repack rows before uploading.
	Upload(r image.Rectangle, pix []byte) error

	// Release frees the device resources. Further use is undefined.
	Release()
}

// ExternalImage is a locked front buffer of a plugin or video source.
// Pix is only valid until the source is unlocked.
type ExternalImage struct {
	Width  int
	Height int
	Pix    []byte
	Stride int
	Format PixelFormat
}

// Bounds returns the image rectangle anchored at the origin.
func (e ExternalImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, e.Width, e.Height)
}

// Capabilities describes limits the compositor reads once at setup.
type Capabilities struct {
	// MaxTextureSize is the largest texture edge in pixels.
	MaxTextureSize int

	// Name identifies the device for logging.
	Name string
}

// Device draws compositor quads into a render target.
//
// Quads carry clip-space positions. The device maps clip space onto the
// viewport passed to BeginFrame with a top-left origin and performs the
// perspective divide itself.
type Device interface {
	// BeginFrame starts a frame on viewport, clearing colour to clear and
	// the stencil buffer to zero.
	BeginFrame(viewport image.Rectangle, clear color.RGBA) error

	// EndFrame submits the frame and waits until it is presented.
	EndFrame() error

	// CreateTexture allocates an uninitialized texture.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// ImportExternal wraps a locked external buffer as a texture. The
	// returned texture must be released before the buffer is unlocked.
	ImportExternal(img ExternalImage) (Texture, error)

	// DrawTexture draws tex over q, multiplied by opacity.
	DrawTexture(tex Texture, q Quad, opacity float64, st DrawState)

	// DrawColor fills q with a premultiplied colour.
	DrawColor(q Quad, c color.RGBA, st DrawState)

	// DrawOutline strokes the edges of q with a line of width pixels.
	DrawOutline(q Quad, c color.RGBA, width float64, st DrawState)

	// Capabilities returns the device limits.
	Capabilities() Capabilities

	// Close releases every device resource.
	Close() error
}
