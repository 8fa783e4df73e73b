// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package animation

import (
	"time"

	"github.com/gogpu/compositor/geom"
)

// Target receives animated values. The caller seeds it with the committed
// values so properties without a run keep their layout-time state.
type Target struct {
	Transform geom.Matrix4
	Opacity   float64
}

// Set is the collection of runs attached to one layer.
//
// Set is not safe for concurrent use. It is owned by the compositing
// thread and replaced only through synchronous cross-thread calls.
type Set struct {
	running   []*Run
	suspended []*Run

	// suspendTime freezes running animations while non-zero.
	suspendTime time.Time
}

// NewSet validates runs and sorts them into running and suspended lists.
// Invalid runs are returned as an error and the set is left empty.
func NewSet(runs []*Run) (*Set, error) {
	s := &Set{}
	for _, r := range runs {
		if err := r.Validate(); err != nil {
			return &Set{}, err
		}
		if r.Suspended {
			s.suspended = append(s.suspended, r)
		} else {
			s.running = append(s.running, r)
		}
	}
	return s, nil
}

// Len returns the number of runs in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.running) + len(s.suspended)
}

// HasRunning reports whether any non-suspended run exists.
func (s *Set) HasRunning() bool {
	return s != nil && len(s.running) > 0
}

// Suspend freezes all running animations at t.
func (s *Set) Suspend(t time.Time) {
	s.suspendTime = t
}

// Resume unfreezes running animations.
func (s *Set) Resume() {
	s.suspendTime = time.Time{}
}

// Update samples every run at now and writes the results into t.
// Suspended runs are sampled at their stored offset. It reports whether
// any running run has not finished, in which case another frame is needed.
func (s *Set) Update(now time.Time, t *Target) bool {
	if s == nil {
		return false
	}
	for _, r := range s.suspended {
		apply(r.SampleAt(r.TimeOffset), t)
	}

	at := now
	if !s.suspendTime.IsZero() {
		at = s.suspendTime
	}
	active := false
	for _, r := range s.running {
		apply(r.SampleAt(r.Elapsed(at)), t)
		if !r.Finished(at) {
			active = true
		}
	}
	return active
}

func apply(sample Sample, t *Target) {
	switch sample.Property {
	case PropertyTransform:
		t.Transform = sample.Transform
	case PropertyOpacity:
		t.Opacity = sample.Opacity
	}
}
