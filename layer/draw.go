// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

import (
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
	"github.com/gogpu/compositor/texture"
)

// DrawContext carries the device state for one node's draw calls.
type DrawContext struct {
	Device gpu.Device
	State  gpu.DrawState

	// Releases collects external buffers locked during the frame.
	Releases *texture.ReleaseList
}

// DrawTextures draws the node's content at its draw transform and
// opacity. It reports whether anything was drawn.
func (rn *RenderNode) DrawTextures(dc DrawContext) bool {
	switch rn.content.Kind {
	case ContentImage, ContentOwn:
		return rn.drawTiles(dc)
	case ContentPlugin, ContentVideo:
		return rn.drawExternal(dc)
	}
	return false
}

// drawTiles draws one quad per tile. Tile origins are relative to the
// layer centre.
func (rn *RenderNode) drawTiles(dc DrawContext) bool {
	tiles := rn.tex.Tiles()
	if len(tiles) == 0 {
		return false
	}
	size := rn.tex.AllocatedSize()
	ox := float64(size.X) / 2
	oy := float64(size.Y) / 2
	for _, tile := range tiles {
		r := geom.R(
			float64(tile.Rect.Min.X)-ox,
			float64(tile.Rect.Min.Y)-oy,
			float64(tile.Rect.Dx()),
			float64(tile.Rect.Dy()),
		)
		q := gpu.NewQuad(rn.drawTransform.MapQuad(r))
		dc.Device.DrawTexture(tile.Texture, q, rn.drawOpacity, dc.State)
	}
	return true
}

func (rn *RenderNode) drawExternal(dc DrawContext) bool {
	if rn.external == nil {
		return false
	}
	tex, ok := rn.external.Lock(dc.Device, dc.Releases)
	if !ok {
		return false
	}
	dc.Device.DrawTexture(tex, gpu.NewQuad(rn.quad), rn.drawOpacity, dc.State)
	return true
}

// DrawMissingTextures draws placeholder over bitmap content that has no
// tiles yet. It reports whether the placeholder was drawn.
func (rn *RenderNode) DrawMissingTextures(dc DrawContext, placeholder gpu.Texture) bool {
	if placeholder == nil || rn.content.Kind.External() || !rn.content.NeedsTexture() {
		return false
	}
	if len(rn.tex.Tiles()) > 0 {
		return false
	}
	dc.Device.DrawTexture(placeholder, gpu.NewQuad(rn.quad), rn.drawOpacity, dc.State)
	return true
}
