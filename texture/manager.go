// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package texture turns layer content into device textures.
//
// A Manager belongs to one render node. Content larger than the tile edge
// is split into a grid of tiles, walked column by column. When the
// required size matches what is already allocated only the dirty
// rectangle is uploaded; otherwise every tile is recreated and filled.
//
// External content (plugins and video) is never copied. It is locked and
// imported each frame through External and released once per frame by a
// ReleaseList.
package texture

import (
	"errors"
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/compositor/gpu"
)

// MaxTileEdge is the default largest tile edge in pixels.
const MaxTileEdge = 2048

// ErrAllocation is returned when a tile texture cannot be created.
// The layer is skipped for the frame and the upload is retried next frame.
var ErrAllocation = errors.New("texture: allocation failed")

// Tile is one texture of a tiled layer. Rect is the tile's area in content
// pixels.
type Tile struct {
	Rect    image.Rectangle
	Texture gpu.Texture
}

// TileRects splits a size into tiles no larger than edge. Tiles are
// ordered x-major: every tile of the first column comes first.
func TileRects(size image.Point, edge int) []image.Rectangle {
	if size.X <= 0 || size.Y <= 0 || edge <= 0 {
		return nil
	}
	cols := (size.X + edge - 1) / edge
	rows := (size.Y + edge - 1) / edge
	rects := make([]image.Rectangle, 0, cols*rows)
	for x := 0; x < size.X; x += edge {
		for y := 0; y < size.Y; y += edge {
			rects = append(rects, image.Rect(x, y, min(x+edge, size.X), min(y+edge, size.Y)))
		}
	}
	return rects
}

// Manager holds the tile textures of one layer and the content waiting to
// be uploaded into them.
//
// Manager is owned by the compositing thread and is not safe for
// concurrent use.
type Manager struct {
	stats    *Tracker
	tileEdge int
	format   gpu.PixelFormat

	tiles     []Tile
	allocated image.Point

	// Pending content. contents covers dirty in content coordinates.
	contents      *image.RGBA
	dirty         image.Rectangle
	required      image.Point
	contentsDirty bool

	// repaint is set when pixels the owner already handed over were lost.
	repaint bool
}

// NewManager returns an empty manager. A tileEdge of zero selects
// MaxTileEdge. stats may be nil.
func NewManager(stats *Tracker, tileEdge int) *Manager {
	if tileEdge <= 0 {
		tileEdge = MaxTileEdge
	}
	return &Manager{stats: stats, tileEdge: tileEdge}
}

// SetFormat sets the pixel format of tiles created from now on.
func (m *Manager) SetFormat(f gpu.PixelFormat) { m.format = f }

// Format returns the tile pixel format.
func (m *Manager) Format() gpu.PixelFormat { return m.format }

// Tiles returns the allocated tiles. The slice is owned by the manager.
func (m *Manager) Tiles() []Tile { return m.tiles }

// AllocatedSize returns the content size the tiles currently hold.
func (m *Manager) AllocatedSize() image.Point { return m.allocated }

// RequiredSize returns the content size of the last SetNeedsDisplay.
func (m *Manager) RequiredSize() image.Point { return m.required }

// NeedsUpload reports whether content is waiting for Upload.
func (m *Manager) NeedsUpload() bool { return m.contentsDirty }

// Repaint reports whether content was lost, without consuming the flag.
func (m *Manager) Repaint() bool { return m.repaint }

// TakeRepaint reports whether content was lost since the last call, either
// because Delete released the tiles or because a partial update could not
// be kept. The owner re-dirties the full bounds in that case.
func (m *Manager) TakeRepaint() bool {
	r := m.repaint
	m.repaint = false
	return r
}

// SetNeedsDisplay queues contents for upload. contents covers dirty, in
// content coordinates; required is the full content size.
//
// An empty required size drops all pending content and releases the
// tiles. If a partial update is still waiting when another partial update
// arrives, the waiting one is uploaded first through dev so its pixels are
// not lost. When that is impossible, because dev is nil or the upload
// fails, the waiting update is kept, the new one is dropped and
// Repaint reports whether content was lost, without consuming the flag.
func (m *Manager) Repaint() bool { return m.repaint }

// TakeRepaint reports true so the owner repaints everything.
func (m *Manager) SetNeedsDisplay(dev gpu.Device, contents *image.RGBA, dirty image.Rectangle, required image.Point) error {
	if required.X <= 0 || required.Y <= 0 {
		m.Clear()
		return nil
	}
	if dirty.Empty() {
		return nil
	}

	if m.contentsDirty && dirty != (image.Rectangle{Max: required}) {
		if dev == nil {
			slogger().Debug("texture: partial update before first draw, repainting", "dirty", dirty)
			m.repaint = true
			return nil
		}
		if err := m.Upload(dev); err != nil {
			m.repaint = true
			return fmt.Errorf("texture: flush pending update: %w", err)
		}
	}

	m.dirty = dirty
	m.contents = contents
	m.contentsDirty = true
	m.required = required
	return nil
}

type uploadJob struct {
	tile   int
	region image.Rectangle
	pix    []byte
}

// Upload writes pending content into the tiles, allocating them first
// when the required size differs from the allocated one.
//
// On ErrAllocation the pending content is kept so the next frame retries.
func (m *Manager) Upload(dev gpu.Device) error {
	if m.required.X <= 0 || m.required.Y <= 0 {
		m.releaseTiles()
		m.allocated = image.Point{}
		m.contentsDirty = false
		return nil
	}
	if m.contents == nil {
		m.contentsDirty = false
		return nil
	}

	full := m.required != m.allocated
	if full {
		if err := m.allocate(dev); err != nil {
			return err
		}
	}

	jobs := make([]uploadJob, 0, len(m.tiles))
	for i, t := range m.tiles {
		region := t.Rect
		if !full {
			region = region.Intersect(m.dirty)
		}
		region = region.Intersect(m.contents.Rect)
		if region.Empty() {
			continue
		}
		jobs = append(jobs, uploadJob{tile: i, region: region})
	}

	if err := repack(m.contents, jobs); err != nil {
		return err
	}

	for _, j := range jobs {
		t := m.tiles[j.tile]
		dst := j.region.Sub(t.Rect.Min)
		if err := t.Texture.Upload(dst, j.pix); err != nil {
			return fmt.Errorf("texture: upload tile %d: %w", j.tile, err)
		}
		m.stats.uploaded(len(j.pix))
	}

	m.contents = nil
	m.allocated = m.required
	m.contentsDirty = false
	m.dirty = image.Rectangle{}
	return nil
}

// allocate replaces every tile with a fresh texture sized for the
// required content.
func (m *Manager) allocate(dev gpu.Device) error {
	m.releaseTiles()
	m.allocated = image.Point{}

	rects := TileRects(m.required, m.tileEdge)
	tiles := make([]Tile, 0, len(rects))
	for i, r := range rects {
		tex, err := dev.CreateTexture(gpu.TextureDescriptor{
			Label:  fmt.Sprintf("layer tile %d", i),
			Width:  r.Dx(),
			Height: r.Dy(),
			Format: m.format,
		})
		if err != nil {
			for _, t := range tiles {
				m.stats.released(t.Texture)
				t.Texture.Release()
			}
			slogger().Debug("texture: tile allocation failed", "size", m.required, "tile", i, "err", err)
			return fmt.Errorf("%w: tile %d of %v: %w", ErrAllocation, i, m.required, err)
		}
		m.stats.allocated(tex)
		tiles = append(tiles, Tile{Rect: r, Texture: tex})
	}
	m.tiles = tiles
	slogger().Debug("texture: tiles allocated", "size", m.required, "tiles", len(tiles))
	return nil
}

// repack fills each job with tightly packed rows. Regions whose rows are
// already contiguous in src share its buffer.
func repack(src *image.RGBA, jobs []uploadJob) error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range jobs {
		j := &jobs[i]
		g.Go(func() error {
			j.pix = packRows(src, j.region)
			return nil
		})
	}
	return g.Wait()
}

func packRows(src *image.RGBA, r image.Rectangle) []byte {
	rowLen := r.Dx() * gpu.BytesPerPixel
	off := src.PixOffset(r.Min.X, r.Min.Y)
	if src.Stride == rowLen {
		return src.Pix[off : off+rowLen*r.Dy()]
	}
	buf := make([]byte, rowLen*r.Dy())
	for y := 0; y < r.Dy(); y++ {
		copy(buf[y*rowLen:(y+1)*rowLen], src.Pix[off:off+rowLen])
		off += src.Stride
	}
	return buf
}

// Clear drops pending content and releases every tile, as when the layer
// stops showing bitmap content.
func (m *Manager) Clear() {
	m.contents = nil
	m.dirty = image.Rectangle{}
	m.required = image.Point{}
	m.contentsDirty = false
	m.repaint = false
	m.releaseTiles()
	m.allocated = image.Point{}
}

// Delete releases every tile. Pending content is kept.
func (m *Manager) Delete() {
	if len(m.tiles) > 0 {
		m.repaint = true
	}
	m.releaseTiles()
	m.allocated = image.Point{}
}

func (m *Manager) releaseTiles() {
	for _, t := range m.tiles {
		m.stats.released(t.Texture)
		t.Texture.Release()
	}
	m.tiles = nil
}
