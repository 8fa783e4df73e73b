package main

import (
	"github.com/gogpu/compositor/gpu"
)

// barColors are the BGRA colour bars a plugin source shows.
var barColors = [][4]byte{
	{0xc0, 0xc0, 0xc0, 0xff},
	{0x00, 0xc0, 0xc0, 0xff},
	{0xc0, 0xc0, 0x00, 0xff},
	{0x00, 0xc0, 0x00, 0xff},
	{0xc0, 0x00, 0xc0, 0xff},
	{0x00, 0x00, 0xc0, 0xff},
	{0xc0, 0x00, 0x00, 0xff},
}

// barsSource is an external source. With a size it serves a BGRA frame of
// colour bars; without one it stands for a video shown by a hardware
// overlay, which never hands out a buffer.
type barsSource struct {
	width, height int
	pix           []byte
	locks         int
}

// LockFrontBuffer implements layer.ExternalSource.
func (s *barsSource) LockFrontBuffer() (gpu.ExternalImage, bool) {
	if s.width <= 0 || s.height <= 0 {
		return gpu.ExternalImage{}, false
	}
	if s.pix == nil {
		s.pix = colorBars(s.width, s.height)
	}
	s.locks++
	return gpu.ExternalImage{
		Width:  s.width,
		Height: s.height,
		Pix:    s.pix,
		Stride: s.width * gpu.BytesPerPixel,
		Format: gpu.FormatBGRA,
	}, true
}

// UnlockFrontBuffer implements layer.ExternalSource.
func (s *barsSource) UnlockFrontBuffer() { s.locks-- }

// PixelFormat implements layer.ExternalSource.
func (s *barsSource) PixelFormat() gpu.PixelFormat { return gpu.FormatBGRA }

// ContentSizeKnown implements layer.ExternalSource.
func (s *barsSource) ContentSizeKnown() bool { return true }

func colorBars(w, h int) []byte {
	pix := make([]byte, w*h*gpu.BytesPerPixel)
	for y := range h {
		for x := range w {
			c := barColors[x*len(barColors)/w]
			copy(pix[(y*w+x)*gpu.BytesPerPixel:], c[:])
		}
	}
	return pix
}
