// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package animation implements keyframe animation of layer transform and
// opacity. Runs are sampled on the compositing thread every frame, so an
// animation keeps moving while the authoring side is busy.
package animation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/compositor/geom"
)

// Property identifies the animated layer attribute.
type Property int

const (
	// PropertyTransform animates the layer transform.
	PropertyTransform Property = iota
	// PropertyOpacity animates the layer opacity.
	PropertyOpacity
)

func (p Property) String() string {
	switch p {
	case PropertyTransform:
		return "transform"
	case PropertyOpacity:
		return "opacity"
	default:
		return fmt.Sprintf("Property(%d)", int(p))
	}
}

// Direction controls playback of successive iterations.
type Direction int

const (
	// Normal plays every iteration forwards.
	Normal Direction = iota
	// Alternate plays odd iterations backwards.
	Alternate
)

// Infinite is the iteration count of a run that never ends.
const Infinite = -1

// Keyframe is one value of a run at a normalized time.
type Keyframe struct {
	// Time is the normalized position in [0, 1].
	Time float64

	// Opacity is the value for PropertyOpacity runs.
	Opacity float64

	// Transform is the value for PropertyTransform runs.
	Transform TransformList

	// Timing eases the interval that starts at this keyframe.
	// Nil falls back to the run's timing function.
	Timing TimingFunction
}

// Keyframe errors.
var (
	// ErrNoKeyframes is returned for a run without keyframes.
	ErrNoKeyframes = errors.New("animation: run has no keyframes")

	// ErrKeyframeOrder is returned when keyframes are not time-ordered
	// from 0 to 1.
	ErrKeyframeOrder = errors.New("animation: keyframes must be ordered from time 0 to 1")
)

// Run is one active keyframe animation on a layer.
type Run struct {
	Name      string
	Property  Property
	Keyframes []Keyframe

	// Timing is the run-wide timing function. Nil means Ease.
	Timing TimingFunction

	Duration       time.Duration
	IterationCount int
	Direction      Direction

	StartTime  time.Time
	TimeOffset time.Duration
	Suspended  bool

	listsValid bool
}

// Validate checks the keyframe invariants and precomputes whether the
// transform function lists can be blended op by op.
func (r *Run) Validate() error {
	n := len(r.Keyframes)
	if n == 0 {
		return ErrNoKeyframes
	}
	if r.Keyframes[0].Time != 0 || r.Keyframes[n-1].Time != 1 {
		return fmt.Errorf("%w: first=%v last=%v", ErrKeyframeOrder, r.Keyframes[0].Time, r.Keyframes[n-1].Time)
	}
	for i := 1; i < n; i++ {
		if r.Keyframes[i].Time < r.Keyframes[i-1].Time {
			return fmt.Errorf("%w: keyframe %d at %v precedes %v", ErrKeyframeOrder, i, r.Keyframes[i].Time, r.Keyframes[i-1].Time)
		}
	}
	if r.IterationCount == 0 {
		r.IterationCount = 1
	}
	r.listsValid = r.validateTransformLists()
	return nil
}

func (r *Run) validateTransformLists() bool {
	if len(r.Keyframes) < 2 || r.Property != PropertyTransform {
		return false
	}
	first := -1
	for i, k := range r.Keyframes {
		if len(k.Transform) > 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return false
	}
	ref := r.Keyframes[first].Transform
	for _, k := range r.Keyframes[first+1:] {
		if len(k.Transform) == 0 {
			continue
		}
		if len(k.Transform) != len(ref) || !ref.matches(k.Transform) {
			return false
		}
	}
	return true
}

// Elapsed returns the active time of the run at now. Suspended runs
// report their stored offset.
func (r *Run) Elapsed(now time.Time) time.Duration {
	if r.Suspended {
		return r.TimeOffset
	}
	return now.Sub(r.StartTime) + r.TimeOffset
}

// Finished reports whether a finite run has played all iterations.
func (r *Run) Finished(now time.Time) bool {
	if r.IterationCount == Infinite || r.Duration <= 0 {
		return r.Duration <= 0
	}
	return r.Elapsed(now) >= r.Duration*time.Duration(r.IterationCount)
}

// progress converts elapsed seconds into eased progress within the
// keyframe interval described by scale and offset.
func (r *Run) progress(elapsed, scale, offset float64, tf TimingFunction) float64 {
	dur := r.Duration.Seconds()
	total := dur
	if r.IterationCount > 0 {
		total *= float64(r.IterationCount)
	}

	if dur == 0 {
		return 1
	}
	if r.IterationCount > 0 && elapsed >= total {
		if r.IterationCount%2 != 0 {
			return 1
		}
		return 0
	}

	fractional := elapsed / dur
	integral := int(fractional)
	fractional -= float64(integral)

	if r.Direction == Alternate && integral&1 != 0 {
		fractional = 1 - fractional
	}

	if scale != 1 || offset != 0 {
		fractional = (fractional - offset) * scale
	}

	if tf == nil {
		tf = r.timing()
	}
	return tf.Solve(fractional, dur)
}

func (r *Run) timing() TimingFunction {
	if r.Timing != nil {
		return r.Timing
	}
	return Ease
}

// interval locates the keyframes bracketing elapsed and the eased
// progress between them.
func (r *Run) interval(elapsed float64) (from, to *Keyframe, prog float64) {
	dur := r.Duration.Seconds()
	if dur != 0 && r.IterationCount != Infinite {
		elapsed = math.Min(elapsed, dur*float64(r.IterationCount))
	}

	fractional := 1.0
	if dur != 0 {
		fractional = elapsed / dur
	}
	if fractional < 0 {
		fractional = 0
	}

	iteration := int(fractional)
	if r.IterationCount != Infinite {
		iteration = min(iteration, r.IterationCount-1)
	}
	fractional -= float64(iteration)

	if r.Direction == Alternate && iteration&1 != 0 {
		fractional = 1 - fractional
	}

	n := len(r.Keyframes)
	if n == 0 {
		return nil, nil, 0
	}

	prev, next := -1, -1
	for i := range r.Keyframes {
		if fractional < r.Keyframes[i].Time {
			next = i
			break
		}
		prev = i
	}
	if prev == -1 {
		prev = 0
	}
	if next == -1 {
		next = n - 1
	}

	from = &r.Keyframes[prev]
	to = &r.Keyframes[next]

	offset := from.Time
	scale := 1.0
	if to.Time != from.Time {
		scale = 1.0 / (to.Time - from.Time)
	}

	tf := from.Timing
	if tf == nil {
		tf = r.timing()
	}
	return from, to, r.progress(elapsed, scale, offset, tf)
}

// Sample is the animated value of a run at one instant.
type Sample struct {
	Property  Property
	Opacity   float64
	Transform geom.Matrix4
}

// SampleAt evaluates the run at elapsed time.
func (r *Run) SampleAt(elapsed time.Duration) Sample {
	from, to, p := r.interval(elapsed.Seconds())
	s := Sample{Property: r.Property, Transform: geom.Identity(), Opacity: 1}
	if from == nil {
		return s
	}
	switch r.Property {
	case PropertyTransform:
		s.Transform = blendTransformLists(from.Transform, to.Transform, p, r.listsValid)
	case PropertyOpacity:
		s.Opacity = BlendOpacity(from.Opacity, to.Opacity, p)
	}
	return s
}

// BlendOpacity interpolates opacity and clamps the result to [0, 1].
func BlendOpacity(from, to, progress float64) float64 {
	o := from + (to-from)*progress
	return math.Max(0, math.Min(o, 1))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
