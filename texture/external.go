// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import "github.com/gogpu/compositor/gpu"

// ExternalSource supplies a GPU-importable front buffer each frame, such as
// a plugin surface or a decoded video frame.
type ExternalSource interface {
	// LockFrontBuffer locks the current buffer for reading. It returns
	// false when no buffer is ready.
	LockFrontBuffer() (gpu.ExternalImage, bool)

	// UnlockFrontBuffer releases the buffer returned by LockFrontBuffer.
	UnlockFrontBuffer()

	// PixelFormat selects the shader variant used to draw the buffer.
	PixelFormat() gpu.PixelFormat

	// ContentSizeKnown reports whether the source knows its natural size.
	ContentSizeKnown() bool
}

// External tracks the lock on one layer's external buffer. A buffer
// locked during a frame stays locked, and is reused, until the frame's
// ReleaseList is flushed.
type External struct {
	src    ExternalSource
	stats  *Tracker
	tex    gpu.Texture
	locked bool
}

// NewExternal returns a tracker for src. stats may be nil.
func NewExternal(src ExternalSource, stats *Tracker) *External {
	return &External{src: src, stats: stats}
}

// Source returns the tracked source.
func (e *External) Source() ExternalSource { return e.src }

// Locked reports whether the buffer is currently locked.
func (e *External) Locked() bool { return e.locked }

// Lock locks and imports the front buffer unless it is already locked
// this frame. It returns false when the source has no buffer or the
// import fails; nothing should be drawn in that case.
func (e *External) Lock(dev gpu.Device, releases *ReleaseList) (gpu.Texture, bool) {
	if e.locked {
		return e.tex, true
	}
	img, ok := e.src.LockFrontBuffer()
	if !ok {
		return nil, false
	}
	tex, err := dev.ImportExternal(img)
	if err != nil {
		e.src.UnlockFrontBuffer()
		slogger().Debug("texture: external import failed", "err", err)
		return nil, false
	}
	e.tex = tex
	e.locked = true
	e.stats.locked()
	releases.Add(e)
	return tex, true
}

// Release drops the imported texture and unlocks the buffer.
// It is a no-op when nothing is locked.
func (e *External) Release() {
	if !e.locked {
		return
	}
	e.tex.Release()
	e.tex = nil
	e.locked = false
	e.src.UnlockFrontBuffer()
}

// ReleaseList collects externals locked during a frame.
type ReleaseList struct {
	list []*External
}

// Add appends e. A nil list ignores the call, which leaves e locked until
// its owner releases it.
func (l *ReleaseList) Add(e *External) {
	if l == nil {
		return
	}
	l.list = append(l.list, e)
}

// Len returns the number of pending releases.
func (l *ReleaseList) Len() int { return len(l.list) }

// Flush releases every collected external. It runs once per frame after
// the frame is presented.
func (l *ReleaseList) Flush() {
	for _, e := range l.list {
		e.Release()
	}
	clear(l.list)
	l.list = l.list[:0]
}
