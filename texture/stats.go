// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"fmt"
	"sync"

	"github.com/gogpu/compositor/gpu"
)

// Stats reports texture memory held by one engine. There is no budget:
// textures live exactly as long as their layer, so these numbers are
// diagnostics only.
type Stats struct {
	// UsedBytes is the memory of every live tile texture.
	UsedBytes uint64

	// TileCount is the number of live tile textures.
	TileCount int

	// Allocations counts tile textures created since the engine started.
	Allocations uint64

	// Uploads counts tile uploads, full or partial.
	Uploads uint64

	// UploadedBytes is the total pixel data uploaded.
	UploadedBytes uint64

	// ExternalLocks counts external front buffers locked for drawing.
	ExternalLocks uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Textures[%d tiles, %.1f MB, %d allocs, %d uploads, %d external locks]",
		s.TileCount,
		float64(s.UsedBytes)/(1024*1024),
		s.Allocations,
		s.Uploads,
		s.ExternalLocks)
}

// Tracker accumulates Stats. The compositing thread writes it; the host
// may read it at any time.
//
// Tracker is safe for concurrent use. A nil *Tracker ignores updates.
type Tracker struct {
	mu sync.Mutex
	s  Stats
}

// Stats returns a snapshot.
func (t *Tracker) Stats() Stats {
	if t == nil {
		return Stats{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

func tileBytes(tex gpu.Texture) uint64 {
	//nolint:gosec // G115: texture dimensions are positive and bounded by the tile edge
	return uint64(tex.Width()) * uint64(tex.Height()) * gpu.BytesPerPixel
}

func (t *Tracker) allocated(tex gpu.Texture) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.s.UsedBytes += tileBytes(tex)
	t.s.TileCount++
	t.s.Allocations++
	t.mu.Unlock()
}

func (t *Tracker) released(tex gpu.Texture) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.s.UsedBytes -= min(t.s.UsedBytes, tileBytes(tex))
	if t.s.TileCount > 0 {
		t.s.TileCount--
	}
	t.mu.Unlock()
}

func (t *Tracker) uploaded(n int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.s.Uploads++
	t.s.UploadedBytes += uint64(n) //nolint:gosec // G115: n is a slice length
	t.mu.Unlock()
}

func (t *Tracker) locked() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.s.ExternalLocks++
	t.mu.Unlock()
}
