// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"fmt"

	"github.com/gogpu/compositor/geom"
)

// MaxDirtyRects is the number of rects kept in a frame's dirty region.
const MaxDirtyRects = 3

// FrameResult reports what a frame touched, in window pixels with a
// top-left origin.
type FrameResult struct {
	// DirtyRegion covers every visible layer with content. Unused slots
	// are empty.
	DirtyRegion [MaxDirtyRects]geom.IntRect

	// HolePunchRects are the areas left transparent for external
	// surfaces, clipped to their scissor.
	HolePunchRects []geom.IntRect

	// WasEmpty reports whether the previous frame had an empty dirty
	// region.
	WasEmpty bool

	// Skipped reports that drawing was skipped because this frame and the
	// previous one were both empty.
	Skipped bool

	// Committed reports whether the frame committed authoring changes.
	Committed bool

	// Animating reports that an animation needs another frame.
	Animating bool
}

// Empty reports whether the dirty region is empty.
func (r FrameResult) Empty() bool {
	for _, d := range r.DirtyRegion {
		if !d.IsEmpty() {
			return false
		}
	}
	return true
}

// Bounds returns the union of the dirty region.
func (r FrameResult) Bounds() geom.IntRect {
	var u geom.IntRect
	for _, d := range r.DirtyRegion {
		u = u.Union(d)
	}
	return u
}

// AddDirty merges d into the slot whose area grows the least. An empty
// slot grows by the area of d.
func (r *FrameResult) AddDirty(d geom.IntRect) {
	if d.IsEmpty() {
		return
	}
	best, bestGrowth := 0, -1
	for i, s := range r.DirtyRegion {
		growth := s.Union(d).Area() - s.Area()
		if bestGrowth < 0 || growth < bestGrowth {
			best, bestGrowth = i, growth
		}
	}
	r.DirtyRegion[best] = r.DirtyRegion[best].Union(d)
}

func (r FrameResult) String() string {
	return fmt.Sprintf("FrameResult{dirty=%v holes=%d empty=%v skipped=%v committed=%v animating=%v}",
		r.Bounds(), len(r.HolePunchRects), r.Empty(), r.Skipped, r.Committed, r.Animating)
}
