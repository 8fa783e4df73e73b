// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "image"

// BlendMode selects how a draw combines with the render target.
type BlendMode uint8

const (
	// BlendPremultiplied is src + dst*(1-srcAlpha).
	BlendPremultiplied BlendMode = iota

	// BlendSrc overwrites the destination (ONE, ZERO).
	BlendSrc
)

// CompareFunc is the stencil comparison. The test passes when
// Ref <op> stored value holds.
type CompareFunc uint8

const (
	// CompareAlways always passes.
	CompareAlways CompareFunc = iota

	// CompareEqual passes when Ref equals the stored value.
	CompareEqual

	// CompareLessEqual passes when Ref is less than or equal to the
	// stored value.
	CompareLessEqual
)

// StencilOp updates the stored value of pixels that pass the test.
type StencilOp uint8

const (
	// StencilKeep leaves the stored value unchanged.
	StencilKeep StencilOp = iota

	// StencilIncrementClamp adds one, saturating at 255.
	StencilIncrementClamp

	// StencilReplace stores Ref.
	StencilReplace
)

// StencilState is the stencil test and write for a draw.
// Failing pixels always keep their value.
type StencilState struct {
	Compare CompareFunc
	Ref     uint8
	PassOp  StencilOp
}

// Test reports whether a pixel with stored value v passes.
func (s StencilState) Test(v uint8) bool {
	switch s.Compare {
	case CompareEqual:
		return s.Ref == v
	case CompareLessEqual:
		return s.Ref <= v
	default:
		return true
	}
}

// Apply returns the stored value after a passing draw.
func (s StencilState) Apply(v uint8) uint8 {
	switch s.PassOp {
	case StencilIncrementClamp:
		if v < 255 {
			return v + 1
		}
		return v
	case StencilReplace:
		return s.Ref
	default:
		return v
	}
}

// Writes reports whether the state can modify the stencil buffer.
func (s StencilState) Writes() bool {
	return s.PassOp != StencilKeep
}

// DrawState is the fixed-function state of one draw call.
type DrawState struct {
	Blend   BlendMode
	Stencil StencilState

	// ColorWrite enables writes to the colour attachment.
	ColorWrite bool

	// Scissor limits the draw, in render-target pixels. An empty
	// rectangle disables the scissor test.
	Scissor image.Rectangle

	// Cull discards quads whose clip-space winding is clockwise.
	Cull bool
}

// DefaultState returns premultiplied blending with colour writes on and
// no stencil, scissor or culling.
func DefaultState() DrawState {
	return DrawState{
		Blend:      BlendPremultiplied,
		Stencil:    StencilState{Compare: CompareAlways, PassOp: StencilKeep},
		ColorWrite: true,
	}
}
