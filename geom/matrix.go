// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geom

import "math"

// Matrix4 is a 3D homogeneous transformation.
//
// Entries are stored row-major and points are treated as row vectors,
// so m[i][j] is the conventional M(i+1)(j+1) entry:
//
//	x' = x*m11 + y*m21 + z*m31 + m41
//	y' = x*m12 + y*m22 + z*m32 + m42
//	z' = x*m13 + y*m23 + z*m33 + m43
//	w' = x*m14 + y*m24 + z*m34 + m44
//
// Translation lives in the fourth row. Composition follows the usual
// matrix-times-vector reading: m.Multiply(n) applies n first, then m.
type Matrix4 [4][4]float64

// Identity returns the identity transformation matrix.
func Identity() Matrix4 {
	return Matrix4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translation creates a 3D translation matrix.
func Translation(x, y, z float64) Matrix4 {
	m := Identity()
	m[3][0], m[3][1], m[3][2] = x, y, z
	return m
}

// Scaling creates a 3D scaling matrix.
func Scaling(x, y, z float64) Matrix4 {
	m := Identity()
	m[0][0], m[1][1], m[2][2] = x, y, z
	return m
}

// RotationZ creates a rotation about the Z axis (angle in radians).
// Positive angles rotate clockwise on a y-down screen.
func RotationZ(angle float64) Matrix4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[0][0], m[0][1] = c, s
	m[1][0], m[1][1] = -s, c
	return m
}

// RotationX creates a rotation about the X axis (angle in radians).
func RotationX(angle float64) Matrix4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[1][1], m[1][2] = c, s
	m[2][1], m[2][2] = -s, c
	return m
}

// RotationY creates a rotation about the Y axis (angle in radians).
func RotationY(angle float64) Matrix4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[0][0], m[0][2] = c, -s
	m[2][0], m[2][2] = s, c
	return m
}

// Perspective creates a perspective projection with eye distance d.
// A zero distance yields the identity.
func Perspective(d float64) Matrix4 {
	m := Identity()
	if d != 0 {
		m[2][3] = -1 / d
	}
	return m
}

// Ortho creates an orthographic projection onto normalized device
// coordinates. Degenerate extents yield the identity.
func Ortho(left, right, bottom, top, near, far float64) Matrix4 {
	dx := right - left
	dy := top - bottom
	dz := far - near
	m := Identity()
	if dx == 0 || dy == 0 || dz == 0 {
		return m
	}
	m[0][0] = 2 / dx
	m[3][0] = -(right + left) / dx
	m[1][1] = 2 / dy
	m[3][1] = -(top + bottom) / dy
	m[2][2] = -2 / dz
	m[3][2] = -(near + far) / dz
	return m
}

// Multiply returns m * n. The result applies n first, then m.
func (m Matrix4) Multiply(n Matrix4) Matrix4 {
	var r Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = n[i][0]*m[0][j] + n[i][1]*m[1][j] + n[i][2]*m[2][j] + n[i][3]*m[3][j]
		}
	}
	return r
}

// Translate3d returns m with a translation applied before it.
func (m Matrix4) Translate3d(x, y, z float64) Matrix4 {
	return m.Multiply(Translation(x, y, z))
}

// MapPoint4 maps (x, y, z, 1) through m without the perspective divide.
func (m Matrix4) MapPoint4(x, y, z float64) Point4 {
	return Point4{
		X: x*m[0][0] + y*m[1][0] + z*m[2][0] + m[3][0],
		Y: x*m[0][1] + y*m[1][1] + z*m[2][1] + m[3][1],
		Z: x*m[0][2] + y*m[1][2] + z*m[2][2] + m[3][2],
		W: x*m[0][3] + y*m[1][3] + z*m[2][3] + m[3][3],
	}
}

// MapPoint maps a 2D point at z=0 and projects the result.
func (m Matrix4) MapPoint(p Point) Point {
	return m.MapPoint4(p.X, p.Y, 0).Project()
}

// MapQuad maps the corners of r in the order (minX,minY), (minX,maxY),
// (maxX,maxY), (maxX,minY).
func (m Matrix4) MapQuad(r Rect) Quad {
	return Quad{
		m.MapPoint4(r.X, r.Y, 0),
		m.MapPoint4(r.X, r.MaxY(), 0),
		m.MapPoint4(r.MaxX(), r.MaxY(), 0),
		m.MapPoint4(r.MaxX(), r.Y, 0),
	}
}

// Flatten drops the Z-affecting terms so children composite in a plane.
// m33 is pinned to a small depth to keep ordering stable.
func (m Matrix4) Flatten() Matrix4 {
	m[0][2] = 0
	m[1][2] = 0
	m[2][0] = 0
	m[2][1] = 0
	m[2][2] = 0.001
	m[2][3] = 0
	m[3][2] = 0
	return m
}

// HasRotationalComponent reports whether any off-diagonal term of the
// upper 3x3 block is non-zero, in which case an axis-aligned scissor
// cannot represent the mapped bounds.
func (m Matrix4) HasRotationalComponent() bool {
	return m[0][1] != 0 || m[0][2] != 0 || m[1][2] != 0 ||
		m[1][0] != 0 || m[2][0] != 0 || m[2][1] != 0
}

// IsIdentity returns true if the matrix is the identity matrix.
func (m Matrix4) IsIdentity() bool {
	return m == Identity()
}

// ZTranslation returns m43, the depth used for painter's ordering.
func (m Matrix4) ZTranslation() float64 {
	return m[3][2]
}

// Transpose returns the transposed matrix.
func (m Matrix4) Transpose() Matrix4 {
	var r Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

// Inverse returns the inverse matrix and whether m was invertible.
func (m Matrix4) Inverse() (Matrix4, bool) {
	a := m
	inv := Identity()
	for col := 0; col < 4; col++ {
		pivot := col
		for r := col + 1; r < 4; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return Identity(), false
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		p := a[col][col]
		for j := 0; j < 4; j++ {
			a[col][j] /= p
			inv[col][j] /= p
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			f := a[r][col]
			if f == 0 {
				continue
			}
			for j := 0; j < 4; j++ {
				a[r][j] -= f * a[col][j]
				inv[r][j] -= f * inv[col][j]
			}
		}
	}
	return inv, true
}

// Determinant returns the determinant of m.
func (m Matrix4) Determinant() float64 {
	det := 0.0
	for c := 0; c < 4; c++ {
		sign := 1.0
		if c%2 == 1 {
			sign = -1
		}
		det += sign * m[0][c] * minor3(m, 0, c)
	}
	return det
}

func minor3(m Matrix4, row, col int) float64 {
	var s [3][3]float64
	si := 0
	for i := 0; i < 4; i++ {
		if i == row {
			continue
		}
		sj := 0
		for j := 0; j < 4; j++ {
			if j == col {
				continue
			}
			s[si][sj] = m[i][j]
			sj++
		}
		si++
	}
	return s[0][0]*(s[1][1]*s[2][2]-s[1][2]*s[2][1]) -
		s[0][1]*(s[1][0]*s[2][2]-s[1][2]*s[2][0]) +
		s[0][2]*(s[1][0]*s[2][1]-s[1][1]*s[2][0])
}
