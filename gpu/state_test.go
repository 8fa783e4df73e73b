// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/compositor/geom"
)

func TestStencilTest(t *testing.T) {
	tests := []struct {
		name  string
		s     StencilState
		value uint8
		want  bool
	}{
		{"always", StencilState{Compare: CompareAlways}, 7, true},
		{"equal hit", StencilState{Compare: CompareEqual, Ref: 1}, 1, true},
		{"equal miss", StencilState{Compare: CompareEqual, Ref: 1}, 2, false},
		{"lequal below", StencilState{Compare: CompareLessEqual, Ref: 1}, 2, true},
		{"lequal equal", StencilState{Compare: CompareLessEqual, Ref: 1}, 1, true},
		{"lequal above", StencilState{Compare: CompareLessEqual, Ref: 1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Test(tt.value); got != tt.want {
				t.Errorf("Test(%d) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestStencilApply(t *testing.T) {
	tests := []struct {
		name  string
		s     StencilState
		value uint8
		want  uint8
	}{
		{"keep", StencilState{PassOp: StencilKeep}, 3, 3},
		{"incr", StencilState{PassOp: StencilIncrementClamp}, 3, 4},
		{"incr clamps", StencilState{PassOp: StencilIncrementClamp}, 255, 255},
		{"replace", StencilState{PassOp: StencilReplace, Ref: 1}, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Apply(tt.value); got != tt.want {
				t.Errorf("Apply(%d) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name string
		d    TextureDescriptor
		max  int
		want error
	}{
		{"ok", TextureDescriptor{Width: 10, Height: 10}, 2048, nil},
		{"zero", TextureDescriptor{Width: 0, Height: 10}, 2048, ErrInvalidSize},
		{"too large", TextureDescriptor{Width: 4096, Height: 10}, 2048, ErrTooLarge},
		{"no limit", TextureDescriptor{Width: 4096, Height: 10}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.d.Validate(tt.max); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestQuadFrontFacing(t *testing.T) {
	ccw := NewQuad(geom.Quad{
		{X: -1, Y: 1, W: 1}, {X: -1, Y: -1, W: 1}, {X: 1, Y: -1, W: 1}, {X: 1, Y: 1, W: 1},
	})
	if !ccw.FrontFacing() {
		t.Error("compositor quad order should be front facing")
	}
	cw := Quad{ccw[0], ccw[3], ccw[2], ccw[1]}
	if cw.FrontFacing() {
		t.Error("reversed quad should be back facing")
	}
}

func TestWindowRect(t *testing.T) {
	vp := image.Rect(10, 20, 110, 220)
	got := WindowRect(vp, geom.R(-1, 0, 1, 1))
	want := geom.R(10, 20, 50, 100)
	if got != want {
		t.Errorf("WindowRect() = %+v, want %+v", got, want)
	}
	if s := Scissor(vp, got); s != image.Rect(10, 20, 60, 120) {
		t.Errorf("Scissor() = %v, want (10,20)-(60,120)", s)
	}
}
