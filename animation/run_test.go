// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package animation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gogpu/compositor/geom"
)

func nearly(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func opacityRun(from, to float64, tf TimingFunction) *Run {
	r := &Run{
		Property: PropertyOpacity,
		Keyframes: []Keyframe{
			{Time: 0, Opacity: from},
			{Time: 1, Opacity: to},
		},
		Timing:         tf,
		Duration:       time.Second,
		IterationCount: 1,
	}
	if err := r.Validate(); err != nil {
		panic(err)
	}
	return r
}

func TestAlternateOpacityScenario(t *testing.T) {
	r := &Run{
		Property: PropertyOpacity,
		Keyframes: []Keyframe{
			{Time: 0, Opacity: 0.2},
			{Time: 1, Opacity: 0.8},
		},
		Timing:         Linear{},
		Duration:       time.Second,
		IterationCount: 3,
		Direction:      Alternate,
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	got := r.SampleAt(2500 * time.Millisecond).Opacity
	want := BlendOpacity(0.2, 0.8, 0.5)
	if !nearly(got, want) {
		t.Errorf("opacity at 2.5s = %v, want %v", got, want)
	}

	// Iteration 1 is reversed: 1.25s maps to fraction 0.75.
	got = r.SampleAt(1250 * time.Millisecond).Opacity
	want = BlendOpacity(0.2, 0.8, 0.75)
	if !nearly(got, want) {
		t.Errorf("opacity at 1.25s = %v, want %v", got, want)
	}
}

func TestKeyframeEndpointsAreLiteral(t *testing.T) {
	r := &Run{
		Property: PropertyOpacity,
		Keyframes: []Keyframe{
			{Time: 0, Opacity: 0.1},
			{Time: 0.5, Opacity: 0.9},
			{Time: 1, Opacity: 0.4},
		},
		Duration:       2 * time.Second,
		IterationCount: 1,
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"start", 0, 0.1},
		{"middle keyframe", time.Second, 0.9},
		{"end", 2 * time.Second, 0.4},
		{"past end", 5 * time.Second, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.SampleAt(tt.elapsed).Opacity; !nearly(got, tt.want) {
				t.Errorf("SampleAt(%v) = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestFiniteEndParity(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		direction Direction
		want      float64
	}{
		{"one normal", 1, Normal, 1},
		{"two normal", 2, Normal, 1},
		{"two alternate", 2, Alternate, 0},
		{"three alternate", 3, Alternate, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := opacityRun(0, 1, Linear{})
			r.IterationCount = tt.count
			r.Direction = tt.direction
			got := r.SampleAt(time.Duration(tt.count+1) * time.Second).Opacity
			if !nearly(got, tt.want) {
				t.Errorf("final opacity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestZeroDurationJumpsToEnd(t *testing.T) {
	r := opacityRun(0.3, 0.7, nil)
	r.Duration = 0
	if got := r.SampleAt(0).Opacity; !nearly(got, 0.7) {
		t.Errorf("zero duration opacity = %v, want 0.7", got)
	}
	if !r.Finished(time.Now()) {
		t.Error("zero duration run should be finished")
	}
}

func TestKeyframeTimingOverridesRun(t *testing.T) {
	r := opacityRun(0, 1, Linear{})
	r.Keyframes[0].Timing = Steps{N: 4}
	got := r.SampleAt(600 * time.Millisecond).Opacity
	if !nearly(got, 0.5) {
		t.Errorf("steps(4) at 0.6 = %v, want 0.5", got)
	}
}

func TestDefaultTimingIsEase(t *testing.T) {
	r := opacityRun(0, 1, nil)
	got := r.SampleAt(500 * time.Millisecond).Opacity
	want := Ease.Solve(0.5, 1)
	if !nearly(got, want) {
		t.Errorf("default timing at 0.5 = %v, want ease %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		keys []Keyframe
		want error
	}{
		{"empty", nil, ErrNoKeyframes},
		{"missing end", []Keyframe{{Time: 0}, {Time: 0.5}}, ErrKeyframeOrder},
		{"out of order", []Keyframe{{Time: 0}, {Time: 0.7}, {Time: 0.3}, {Time: 1}}, ErrKeyframeOrder},
		{"valid", []Keyframe{{Time: 0}, {Time: 1}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Run{Keyframes: tt.keys, Duration: time.Second}
			err := r.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSuspendedRunUsesTimeOffset(t *testing.T) {
	r := opacityRun(0, 1, Linear{})
	r.StartTime = time.Unix(100, 0)
	r.TimeOffset = 250 * time.Millisecond
	r.Suspended = true

	for _, now := range []time.Time{time.Unix(100, 0), time.Unix(900, 0)} {
		if got := r.Elapsed(now); got != r.TimeOffset {
			t.Errorf("Elapsed(%v) = %v, want %v", now, got, r.TimeOffset)
		}
	}
}

func TestTransformRunBlendsFunctionLists(t *testing.T) {
	r := &Run{
		Property: PropertyTransform,
		Keyframes: []Keyframe{
			{Time: 0, Transform: TransformList{Rotate{Angle: 0}}},
			{Time: 1, Transform: TransformList{Rotate{Angle: 2 * math.Pi}}},
		},
		Timing:         Linear{},
		Duration:       time.Second,
		IterationCount: 1,
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if !r.listsValid {
		t.Fatal("matching function lists should be valid")
	}

	// Half of a full turn is 180 degrees; matrix blending would give identity.
	got := r.SampleAt(500 * time.Millisecond).Transform
	p := got.MapPoint(geom.Pt(1, 0))
	if !nearly(p.X, -1) || !nearly(p.Y, 0) {
		t.Errorf("rotated point = %v, want (-1, 0)", p)
	}
}

func TestTransformRunMismatchedListsUsesMatrixBlend(t *testing.T) {
	r := &Run{
		Property: PropertyTransform,
		Keyframes: []Keyframe{
			{Time: 0, Transform: TransformList{Translate{X: 0}}},
			{Time: 1, Transform: TransformList{Scale{X: 3, Y: 3, Z: 1}}},
		},
		Timing:         Linear{},
		Duration:       time.Second,
		IterationCount: 1,
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if r.listsValid {
		t.Fatal("mismatched function lists should not be valid")
	}
	got := r.SampleAt(500 * time.Millisecond).Transform
	if !nearly(got[0][0], 2) || !nearly(got[1][1], 2) {
		t.Errorf("blended scale = (%v, %v), want (2, 2)", got[0][0], got[1][1])
	}
}

func TestSetUpdate(t *testing.T) {
	start := time.Unix(10, 0)
	op := opacityRun(0, 1, Linear{})
	op.StartTime = start

	s, err := NewSet([]*Run{op})
	if err != nil {
		t.Fatalf("NewSet() = %v", err)
	}

	target := Target{Transform: geom.Translation(5, 0, 0), Opacity: 1}
	running := s.Update(start.Add(250*time.Millisecond), &target)
	if !running {
		t.Error("Update() = false, want true while a run is active")
	}
	if !nearly(target.Opacity, 0.25) {
		t.Errorf("Opacity = %v, want 0.25", target.Opacity)
	}
	if target.Transform != geom.Translation(5, 0, 0) {
		t.Error("transform without a run must keep its committed value")
	}

	s.Suspend(start.Add(500 * time.Millisecond))
	s.Update(start.Add(900*time.Millisecond), &target)
	if !nearly(target.Opacity, 0.5) {
		t.Errorf("suspended Opacity = %v, want 0.5", target.Opacity)
	}

	s.Resume()
	s.Update(start.Add(900*time.Millisecond), &target)
	if !nearly(target.Opacity, 0.9) {
		t.Errorf("resumed Opacity = %v, want 0.9", target.Opacity)
	}
}

func TestNilSetIsInert(t *testing.T) {
	var s *Set
	if s.Len() != 0 || s.HasRunning() {
		t.Error("nil set should be empty")
	}
	target := Target{Opacity: 0.3}
	if s.Update(time.Now(), &target) {
		t.Error("nil set Update() = true, want false")
	}
}

func TestSetUpdateReportsFinishedRuns(t *testing.T) {
	start := time.Unix(10, 0)
	op := opacityRun(0, 1, Linear{})
	op.StartTime = start
	s, err := NewSet([]*Run{op})
	if err != nil {
		t.Fatalf("NewSet() = %v", err)
	}
	target := Target{Opacity: 0}
	if s.Update(start.Add(2*time.Second), &target) {
		t.Error("Update() = true after the only run finished")
	}
	if !nearly(target.Opacity, 1) {
		t.Errorf("final Opacity = %v, want 1", target.Opacity)
	}
}
