// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package animation

import (
	"math"

	"github.com/gogpu/compositor/geom"
)

// TransformOp is a single transform function such as translate or rotate.
type TransformOp interface {
	// Matrix returns the op as a matrix.
	Matrix() geom.Matrix4

	// Blend interpolates from `from` to the receiver. A nil from means the
	// identity op of the same kind.
	Blend(from TransformOp, progress float64) TransformOp

	// SameType reports whether o is the same kind of op.
	SameType(o TransformOp) bool
}

// Translate moves by X, Y, Z.
type Translate struct{ X, Y, Z float64 }

// Scale scales by X, Y, Z.
type Scale struct{ X, Y, Z float64 }

// Rotate rotates by Angle radians about the axis (X, Y, Z).
// The zero axis means the Z axis.
type Rotate struct{ X, Y, Z, Angle float64 }

// Skew shears by AX and AY radians.
type Skew struct{ AX, AY float64 }

// PerspectiveOp applies a perspective with eye distance D.
type PerspectiveOp struct{ D float64 }

// MatrixOp is an arbitrary matrix.
type MatrixOp struct{ M geom.Matrix4 }

// Matrix implements TransformOp.
func (t Translate) Matrix() geom.Matrix4 { return geom.Translation(t.X, t.Y, t.Z) }

// Blend implements TransformOp.
func (t Translate) Blend(from TransformOp, p float64) TransformOp {
	f, _ := from.(Translate)
	return Translate{X: lerp(f.X, t.X, p), Y: lerp(f.Y, t.Y, p), Z: lerp(f.Z, t.Z, p)}
}

// SameType implements TransformOp.
func (Translate) SameType(o TransformOp) bool { _, ok := o.(Translate); return ok }

// Matrix implements TransformOp.
func (s Scale) Matrix() geom.Matrix4 { return geom.Scaling(s.X, s.Y, s.Z) }

// Blend implements TransformOp.
func (s Scale) Blend(from TransformOp, p float64) TransformOp {
	f, ok := from.(Scale)
	if !ok {
		f = Scale{1, 1, 1}
	}
	return Scale{X: lerp(f.X, s.X, p), Y: lerp(f.Y, s.Y, p), Z: lerp(f.Z, s.Z, p)}
}

// SameType implements TransformOp.
func (Scale) SameType(o TransformOp) bool { _, ok := o.(Scale); return ok }

func (r Rotate) axis() (float64, float64, float64) {
	if r.X == 0 && r.Y == 0 && r.Z == 0 {
		return 0, 0, 1
	}
	return r.X, r.Y, r.Z
}

// Matrix implements TransformOp.
func (r Rotate) Matrix() geom.Matrix4 {
	x, y, z := r.axis()
	l := math.Sqrt(x*x + y*y + z*z)
	x, y, z = x/l, y/l, z/l
	c, s := math.Cos(r.Angle), math.Sin(r.Angle)
	t := 1 - c

	m := geom.Identity()
	m[0][0] = c + x*x*t
	m[0][1] = x*y*t + z*s
	m[0][2] = x*z*t - y*s
	m[1][0] = x*y*t - z*s
	m[1][1] = c + y*y*t
	m[1][2] = y*z*t + x*s
	m[2][0] = x*z*t + y*s
	m[2][1] = y*z*t - x*s
	m[2][2] = c + z*z*t
	return m
}

// Blend implements TransformOp. Rotations about different axes fall back
// to matrix interpolation.
func (r Rotate) Blend(from TransformOp, p float64) TransformOp {
	f, ok := from.(Rotate)
	if !ok {
		f = Rotate{X: r.X, Y: r.Y, Z: r.Z}
	}
	fx, fy, fz := f.axis()
	tx, ty, tz := r.axis()
	if fx != tx || fy != ty || fz != tz {
		return MatrixOp{M: r.Matrix().Blend(f.Matrix(), p)}
	}
	return Rotate{X: r.X, Y: r.Y, Z: r.Z, Angle: lerp(f.Angle, r.Angle, p)}
}

// SameType implements TransformOp.
func (Rotate) SameType(o TransformOp) bool { _, ok := o.(Rotate); return ok }

// Matrix implements TransformOp.
func (s Skew) Matrix() geom.Matrix4 {
	m := geom.Identity()
	m[1][0] = math.Tan(s.AX)
	m[0][1] = math.Tan(s.AY)
	return m
}

// Blend implements TransformOp.
func (s Skew) Blend(from TransformOp, p float64) TransformOp {
	f, _ := from.(Skew)
	return Skew{AX: lerp(f.AX, s.AX, p), AY: lerp(f.AY, s.AY, p)}
}

// SameType implements TransformOp.
func (Skew) SameType(o TransformOp) bool { _, ok := o.(Skew); return ok }

// Matrix implements TransformOp.
func (po PerspectiveOp) Matrix() geom.Matrix4 { return geom.Perspective(po.D) }

// Blend implements TransformOp.
func (po PerspectiveOp) Blend(from TransformOp, p float64) TransformOp {
	f, ok := from.(PerspectiveOp)
	if !ok || f.D == 0 || po.D == 0 {
		return MatrixOp{M: po.Matrix().Blend(opMatrix(from), p)}
	}
	return PerspectiveOp{D: lerp(f.D, po.D, p)}
}

// SameType implements TransformOp.
func (PerspectiveOp) SameType(o TransformOp) bool { _, ok := o.(PerspectiveOp); return ok }

// Matrix implements TransformOp.
func (mo MatrixOp) Matrix() geom.Matrix4 { return mo.M }

// Blend implements TransformOp.
func (mo MatrixOp) Blend(from TransformOp, p float64) TransformOp {
	return MatrixOp{M: mo.M.Blend(opMatrix(from), p)}
}

// SameType implements TransformOp.
func (MatrixOp) SameType(o TransformOp) bool { _, ok := o.(MatrixOp); return ok }

func opMatrix(op TransformOp) geom.Matrix4 {
	if op == nil {
		return geom.Identity()
	}
	return op.Matrix()
}

// TransformList is an ordered list of transform functions.
// The empty list is the identity.
type TransformList []TransformOp

// Matrix composes the list; earlier ops are outermost.
func (l TransformList) Matrix() geom.Matrix4 {
	m := geom.Identity()
	for _, op := range l {
		m = m.Multiply(op.Matrix())
	}
	return m
}

// matches reports whether l and o have the same op kinds in the same order.
// An empty list matches anything.
func (l TransformList) matches(o TransformList) bool {
	if len(l) == 0 || len(o) == 0 {
		return true
	}
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].SameType(o[i]) {
			return false
		}
	}
	return true
}

// blendTransformLists interpolates from -> to. When the function lists
// are compatible each op is blended on its own, which keeps rotations
// beyond 180 degrees intact; otherwise the composed matrices are blended.
func blendTransformLists(from, to TransformList, progress float64, listsValid bool) geom.Matrix4 {
	if !listsValid {
		return to.Matrix().Blend(from.Matrix(), progress)
	}

	n := max(len(from), len(to))
	m := geom.Identity()
	for i := 0; i < n; i++ {
		var fromOp, toOp TransformOp
		if i < len(from) {
			fromOp = from[i]
		}
		if i < len(to) {
			toOp = to[i]
		}
		switch {
		case toOp != nil:
			m = m.Multiply(toOp.Blend(fromOp, progress).Matrix())
		case fromOp != nil:
			m = m.Multiply(fromOp.Blend(nil, 1-progress).Matrix())
		}
	}
	return m
}
