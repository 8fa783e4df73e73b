// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geom

import "testing"

func TestRectIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"overlap", R(0, 0, 10, 10), R(5, 5, 10, 10), true},
		{"touching edges", R(0, 0, 10, 10), R(10, 0, 10, 10), false},
		{"disjoint", R(0, 0, 10, 10), R(20, 20, 1, 1), false},
		{"contained", R(0, 0, 10, 10), R(2, 2, 1, 1), true},
		{"empty", R(0, 0, 10, 10), R(2, 2, 0, 5), false},
		{"ndc clip", R(-1, -1, 2, 2), R(0.5, 0.5, 1, 1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersects(tt.b); got != tt.want {
				t.Errorf("%v.Intersects(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRectIntersect(t *testing.T) {
	got := R(0, 0, 10, 10).Intersect(R(5, -5, 10, 10))
	want := R(5, 0, 5, 5)
	if got != want {
		t.Errorf("Intersect = %v, want %v", got, want)
	}
	if got := R(0, 0, 1, 1).Intersect(R(3, 3, 1, 1)); !got.IsEmpty() {
		t.Errorf("Intersect of disjoint rects = %v, want empty", got)
	}
}

func TestRectUnionIgnoresEmpty(t *testing.T) {
	a := R(1, 1, 2, 2)
	if got := a.Union(Rect{}); got != a {
		t.Errorf("Union(empty) = %v, want %v", got, a)
	}
	if got := (Rect{}).Union(a); got != a {
		t.Errorf("empty.Union = %v, want %v", got, a)
	}
	if got := a.Union(R(5, 5, 1, 1)); got != R(1, 1, 5, 5) {
		t.Errorf("Union = %v, want (1,1,5,5)", got)
	}
}

func TestEnclosingIntRect(t *testing.T) {
	got := R(0.5, 1.2, 2.1, 2.9).EnclosingIntRect()
	want := IR(0, 1, 3, 4)
	if got != want {
		t.Errorf("EnclosingIntRect = %v, want %v", got, want)
	}
}

func TestIntRectArea(t *testing.T) {
	if got := IR(0, 0, 4, 5).Area(); got != 20 {
		t.Errorf("Area = %d, want 20", got)
	}
	if got := IR(0, 0, -4, 5).Area(); got != 0 {
		t.Errorf("Area of empty rect = %d, want 0", got)
	}
	if got := IR(0, 0, 4, 4).Union(IR(10, 10, 2, 2)); got != IR(0, 0, 12, 12) {
		t.Errorf("Union = %v, want (0,0,12,12)", got)
	}
}
