// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

import (
	"errors"
	"image"
	"image/color"

	"github.com/gogpu/compositor/gpu"
)

type fakeTexture struct {
	w, h     int
	format   gpu.PixelFormat
	uploads  int
	released bool
}

func (t *fakeTexture) Width() int                           { return t.w }
func (t *fakeTexture) Height() int                          { return t.h }
func (t *fakeTexture) Format() gpu.PixelFormat              { return t.format }
func (t *fakeTexture) Upload(image.Rectangle, []byte) error { t.uploads++; return nil }
func (t *fakeTexture) Release()                             { t.released = true }

type drawCall struct {
	tex     gpu.Texture
	quad    gpu.Quad
	opacity float64
}

type fakeDevice struct {
	created []*fakeTexture
	draws   []drawCall
	// outOfMemory makes CreateTexture fail.
	outOfMemory bool
}

func (d *fakeDevice) BeginFrame(image.Rectangle, color.RGBA) error             { return nil }
func (d *fakeDevice) EndFrame() error                                          { return nil }
func (d *fakeDevice) Close() error                                             { return nil }
func (d *fakeDevice) Capabilities() gpu.Capabilities                           { return gpu.Capabilities{MaxTextureSize: 2048} }
func (d *fakeDevice) DrawColor(gpu.Quad, color.RGBA, gpu.DrawState)            {}
func (d *fakeDevice) DrawOutline(gpu.Quad, color.RGBA, float64, gpu.DrawState) {}

func (d *fakeDevice) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if d.outOfMemory {
		return nil, errors.New("out of texture memory")
	}
	t := &fakeTexture{w: desc.Width, h: desc.Height, format: desc.Format}
	d.created = append(d.created, t)
	return t, nil
}

func (d *fakeDevice) ImportExternal(img gpu.ExternalImage) (gpu.Texture, error) {
	return &fakeTexture{w: img.Width, h: img.Height, format: img.Format}, nil
}

func (d *fakeDevice) DrawTexture(tex gpu.Texture, q gpu.Quad, opacity float64, _ gpu.DrawState) {
	d.draws = append(d.draws, drawCall{tex: tex, quad: q, opacity: opacity})
}

// fakeRenderer records registrations.
type fakeRenderer struct {
	dev     *fakeDevice
	layers  map[ID]*RenderNode
	removed []ID
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{dev: &fakeDevice{}, layers: make(map[ID]*RenderNode)}
}

func (r *fakeRenderer) AddLayer(n *RenderNode) { r.layers[n.ID()] = n }
func (r *fakeRenderer) RemoveLayer(n *RenderNode) {
	delete(r.layers, n.ID())
	r.removed = append(r.removed, n.ID())
}
func (r *fakeRenderer) Device() gpu.Device { return r.dev }

type fakeSource struct {
	known  bool
	format gpu.PixelFormat
	locks  int
}

func (s *fakeSource) LockFrontBuffer() (gpu.ExternalImage, bool) {
	s.locks++
	return gpu.ExternalImage{Width: 2, Height: 2, Pix: make([]byte, 16), Stride: 8, Format: s.format}, true
}
func (s *fakeSource) UnlockFrontBuffer()           {}
func (s *fakeSource) PixelFormat() gpu.PixelFormat { return s.format }
func (s *fakeSource) ContentSizeKnown() bool       { return s.known }

// walk registers every committed render node with r.
func walk(rn *RenderNode, r Renderer) {
	if rn == nil {
		return
	}
	rn.SetRenderer(r)
	for _, c := range rn.Sublayers() {
		walk(c, r)
	}
}
