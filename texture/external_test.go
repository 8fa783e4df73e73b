// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/compositor/gpu"
)

type fakeSource struct {
	ready   bool
	locks   int
	unlocks int
	known   bool
	format  gpu.PixelFormat
}

func (s *fakeSource) LockFrontBuffer() (gpu.ExternalImage, bool) {
	if !s.ready {
		return gpu.ExternalImage{}, false
	}
	s.locks++
	return gpu.ExternalImage{Width: 4, Height: 4, Pix: make([]byte, 64), Stride: 16, Format: s.format}, true
}

func (s *fakeSource) UnlockFrontBuffer()           { s.unlocks++ }
func (s *fakeSource) PixelFormat() gpu.PixelFormat { return s.format }
func (s *fakeSource) ContentSizeKnown() bool       { return s.known }

func TestExternalLocksOncePerFrame(t *testing.T) {
	src := &fakeSource{ready: true, format: gpu.FormatBGRA}
	dev := &fakeDevice{}
	stats := &Tracker{}
	e := NewExternal(src, stats)
	var releases ReleaseList

	for range 3 {
		if _, ok := e.Lock(dev, &releases); !ok {
			t.Fatal("Lock() = false, want true")
		}
	}
	if src.locks != 1 || dev.imported != 1 {
		t.Errorf("locks = %d imports = %d, want 1 each", src.locks, dev.imported)
	}
	if releases.Len() != 1 {
		t.Errorf("release list len = %d, want 1", releases.Len())
	}

	releases.Flush()
	if src.unlocks != 1 || e.Locked() {
		t.Errorf("after Flush unlocks = %d locked = %v, want 1 and false", src.unlocks, e.Locked())
	}
	if releases.Len() != 0 {
		t.Errorf("release list len after Flush = %d, want 0", releases.Len())
	}

	if _, ok := e.Lock(dev, &releases); !ok || src.locks != 2 {
		t.Errorf("next frame should lock again, locks = %d", src.locks)
	}
	if got := stats.Stats().ExternalLocks; got != 2 {
		t.Errorf("ExternalLocks = %d, want 2", got)
	}
}

func TestExternalNotReady(t *testing.T) {
	src := &fakeSource{}
	var releases ReleaseList
	if _, ok := NewExternal(src, nil).Lock(&fakeDevice{}, &releases); ok {
		t.Error("Lock() = true for a source without a buffer")
	}
	if releases.Len() != 0 {
		t.Error("failed lock must not be queued for release")
	}
}

func TestExternalReleaseIsIdempotent(t *testing.T) {
	src := &fakeSource{ready: true}
	e := NewExternal(src, nil)
	var releases ReleaseList
	e.Lock(&fakeDevice{}, &releases)
	e.Release()
	e.Release()
	releases.Flush()
	if src.unlocks != 1 {
		t.Errorf("unlocks = %d, want 1", src.unlocks)
	}
}

func TestPaintLimit(t *testing.T) {
	called := false
	p := PainterFunc(func(dst *image.RGBA, dirty image.Rectangle) { called = true })

	if _, err := Paint(p, image.Rect(0, 0, 4000, 4000)); !errors.Is(err, ErrPaintTooLarge) {
		t.Errorf("Paint(4000x4000) = %v, want ErrPaintTooLarge", err)
	}
	if called {
		t.Error("painter should not run for oversized requests")
	}

	img, err := Paint(p, image.Rect(10, 10, 20, 30))
	if err != nil {
		t.Fatalf("Paint() = %v", err)
	}
	if !called || img.Rect != image.Rect(10, 10, 20, 30) {
		t.Errorf("Paint() bounds = %v, want (10,10)-(20,30)", img.Rect)
	}
}

func TestFromImageConvertsNRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 7))
	src.Pix[0], src.Pix[3] = 255, 128
	got, err := FromImage(src)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rect != image.Rect(0, 0, 2, 2) {
		t.Errorf("bounds = %v, want (0,0)-(2,2)", got.Rect)
	}
	if r := got.Pix[0]; r != 128 {
		t.Errorf("premultiplied red = %d, want 128", r)
	}
}
