// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/compositor/gpu"
)

// Checkerboard colours of the placeholder, premultiplied.
var (
	checkerLight = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	checkerDark  = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
)

const (
	checkerSquare = 8
	checkerSize   = 2 * checkerSquare
)

// ResourceTable holds the device resources shared by every layer of one
// engine. It lives exactly as long as the engine.
type ResourceTable struct {
	placeholder gpu.Texture
}

// NewResourceTable creates the shared resources on dev.
func NewResourceTable(dev gpu.Device) (*ResourceTable, error) {
	tex, err := dev.CreateTexture(gpu.TextureDescriptor{
		Label:  "placeholder",
		Width:  checkerSize,
		Height: checkerSize,
		Format: gpu.FormatRGBA,
	})
	if err != nil {
		return nil, fmt.Errorf("composite: create placeholder: %w", err)
	}
	if err := tex.Upload(image.Rect(0, 0, checkerSize, checkerSize), checkerboard()); err != nil {
		tex.Release()
		return nil, fmt.Errorf("composite: upload placeholder: %w", err)
	}
	return &ResourceTable{placeholder: tex}, nil
}

// Placeholder returns the checkerboard drawn for content that has not
// arrived yet.
func (t *ResourceTable) Placeholder() gpu.Texture {
	if t == nil {
		return nil
	}
	return t.placeholder
}

// Release frees every resource. The table is unusable afterwards.
func (t *ResourceTable) Release() {
	if t == nil || t.placeholder == nil {
		return
	}
	t.placeholder.Release()
	t.placeholder = nil
}

func checkerboard() []byte {
	pix := make([]byte, checkerSize*checkerSize*gpu.BytesPerPixel)
	for y := range checkerSize {
		for x := range checkerSize {
			c := checkerLight
			if (x/checkerSquare+y/checkerSquare)%2 == 1 {
				c = checkerDark
			}
			i := (y*checkerSize + x) * gpu.BytesPerPixel
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return pix
}
