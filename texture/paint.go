// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor/gpu"
)

// MaxPaintBytes caps the pixel data produced for one layer update.
// Larger requests produce no content and the layer draws nothing.
const MaxPaintBytes = 40 * 1024 * 1024

// ErrPaintTooLarge is returned when an update exceeds MaxPaintBytes.
var ErrPaintTooLarge = errors.New("texture: paint request exceeds size limit")

// Painter draws a layer's own content. dst covers dirty in layer
// coordinates and starts out transparent.
type Painter interface {
	Paint(dst *image.RGBA, dirty image.Rectangle)
}

// PainterFunc adapts a function to Painter.
type PainterFunc func(dst *image.RGBA, dirty image.Rectangle)

// Paint calls f(dst, dirty).
func (f PainterFunc) Paint(dst *image.RGBA, dirty image.Rectangle) { f(dst, dirty) }

func checkPaintSize(r image.Rectangle) error {
	if n := r.Dx() * r.Dy() * gpu.BytesPerPixel; n > MaxPaintBytes {
		return fmt.Errorf("%w: %v is %d bytes", ErrPaintTooLarge, r, n)
	}
	return nil
}

// Paint asks p to draw dirty into a new buffer whose bounds are dirty.
func Paint(p Painter, dirty image.Rectangle) (*image.RGBA, error) {
	if err := checkPaintSize(dirty); err != nil {
		return nil, err
	}
	dst := image.NewRGBA(dirty)
	p.Paint(dst, dirty)
	return dst, nil
}

// FromImage converts img into premultiplied RGBA anchored at the origin.
// An *image.RGBA already at the origin is returned as is.
func FromImage(img image.Image) (*image.RGBA, error) {
	b := img.Bounds()
	size := image.Rectangle{Max: b.Size()}
	if err := checkPaintSize(size); err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba, nil
	}
	dst := image.NewRGBA(size)
	draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	return dst, nil
}
