// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geom

import "math"

// Decomposed holds the components of a Matrix4 split into independently
// interpolable parts.
type Decomposed struct {
	Scale       [3]float64
	Skew        [3]float64 // xy, xz, yz
	Quaternion  [4]float64 // x, y, z, w
	Translate   [3]float64
	Perspective [4]float64
}

// Decompose splits m into scale, skew, rotation, translation and
// perspective. It reports false when m is singular.
func (m Matrix4) Decompose() (Decomposed, bool) {
	var d Decomposed
	if m[3][3] == 0 {
		return d, false
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m[i][j] /= m[3][3]
		}
	}

	pm := m
	for i := 0; i < 3; i++ {
		pm[i][3] = 0
	}
	pm[3][3] = 1
	if pm.Determinant() == 0 {
		return d, false
	}

	if m[0][3] != 0 || m[1][3] != 0 || m[2][3] != 0 {
		rhs := [4]float64{m[0][3], m[1][3], m[2][3], m[3][3]}
		inv, ok := pm.Inverse()
		if !ok {
			return d, false
		}
		for i := 0; i < 4; i++ {
			d.Perspective[i] = rhs[0]*inv[i][0] + rhs[1]*inv[i][1] + rhs[2]*inv[i][2] + rhs[3]*inv[i][3]
		}
		m[0][3], m[1][3], m[2][3] = 0, 0, 0
		m[3][3] = 1
	} else {
		d.Perspective = [4]float64{0, 0, 0, 1}
	}

	for i := 0; i < 3; i++ {
		d.Translate[i] = m[3][i]
		m[3][i] = 0
	}

	var row [3][3]float64
	for i := 0; i < 3; i++ {
		row[i] = [3]float64{m[i][0], m[i][1], m[i][2]}
	}

	d.Scale[0] = length3(row[0])
	row[0] = normalize3(row[0])

	d.Skew[0] = dot3(row[0], row[1])
	row[1] = combine3(row[1], row[0], 1, -d.Skew[0])
	d.Scale[1] = length3(row[1])
	row[1] = normalize3(row[1])
	d.Skew[0] /= d.Scale[1]

	d.Skew[1] = dot3(row[0], row[2])
	row[2] = combine3(row[2], row[0], 1, -d.Skew[1])
	d.Skew[2] = dot3(row[1], row[2])
	row[2] = combine3(row[2], row[1], 1, -d.Skew[2])
	d.Scale[2] = length3(row[2])
	row[2] = normalize3(row[2])
	d.Skew[1] /= d.Scale[2]
	d.Skew[2] /= d.Scale[2]

	// Coordinate system flip.
	if dot3(row[0], cross3(row[1], row[2])) < 0 {
		for i := 0; i < 3; i++ {
			d.Scale[i] = -d.Scale[i]
			for j := 0; j < 3; j++ {
				row[i][j] = -row[i][j]
			}
		}
	}

	q := &d.Quaternion
	q[0] = 0.5 * math.Sqrt(math.Max(1+row[0][0]-row[1][1]-row[2][2], 0))
	q[1] = 0.5 * math.Sqrt(math.Max(1-row[0][0]+row[1][1]-row[2][2], 0))
	q[2] = 0.5 * math.Sqrt(math.Max(1-row[0][0]-row[1][1]+row[2][2], 0))
	q[3] = 0.5 * math.Sqrt(math.Max(1+row[0][0]+row[1][1]+row[2][2], 0))
	if row[2][1] > row[1][2] {
		q[0] = -q[0]
	}
	if row[0][2] > row[2][0] {
		q[1] = -q[1]
	}
	if row[1][0] > row[0][1] {
		q[2] = -q[2]
	}
	return d, true
}

// Recompose builds the matrix described by d.
func (d Decomposed) Recompose() Matrix4 {
	p := Identity()
	for i := 0; i < 4; i++ {
		p[i][3] = d.Perspective[i]
	}

	x, y, z, w := d.Quaternion[0], d.Quaternion[1], d.Quaternion[2], d.Quaternion[3]
	rot := Identity()
	rot[0][0] = 1 - 2*(y*y+z*z)
	rot[0][1] = 2 * (x*y + z*w)
	rot[0][2] = 2 * (x*z - y*w)
	rot[1][0] = 2 * (x*y - z*w)
	rot[1][1] = 1 - 2*(x*x+z*z)
	rot[1][2] = 2 * (y*z + x*w)
	rot[2][0] = 2 * (x*z + y*w)
	rot[2][1] = 2 * (y*z - x*w)
	rot[2][2] = 1 - 2*(x*x+y*y)

	skew := Identity()
	skew[1][0] = d.Skew[0]
	skew[2][0] = d.Skew[1]
	skew[2][1] = d.Skew[2]

	return p.
		Multiply(Translation(d.Translate[0], d.Translate[1], d.Translate[2])).
		Multiply(rot).
		Multiply(skew).
		Multiply(Scaling(d.Scale[0], d.Scale[1], d.Scale[2]))
}

// Blend interpolates from `from` (progress 0) to m (progress 1) by
// decomposing both matrices and interpolating the parts. Rotation uses
// quaternion slerp. If either matrix cannot be decomposed the result
// switches discretely at progress 0.5.
func (m Matrix4) Blend(from Matrix4, progress float64) Matrix4 {
	if from.IsIdentity() && m.IsIdentity() {
		return m
	}
	fd, ok1 := from.Decompose()
	td, ok2 := m.Decompose()
	if !ok1 || !ok2 {
		if progress < 0.5 {
			return from
		}
		return m
	}

	var out Decomposed
	for i := 0; i < 3; i++ {
		out.Scale[i] = lerp(fd.Scale[i], td.Scale[i], progress)
		out.Skew[i] = lerp(fd.Skew[i], td.Skew[i], progress)
		out.Translate[i] = lerp(fd.Translate[i], td.Translate[i], progress)
	}
	for i := 0; i < 4; i++ {
		out.Perspective[i] = lerp(fd.Perspective[i], td.Perspective[i], progress)
	}
	out.Quaternion = slerp(fd.Quaternion, td.Quaternion, progress)
	return out.Recompose()
}

func slerp(a, b [4]float64, t float64) [4]float64 {
	cos := a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
	if cos < 0 {
		cos = -cos
		for i := range b {
			b[i] = -b[i]
		}
	}
	cos = math.Min(cos, 1)

	var wa, wb float64
	if cos > 0.9995 {
		wa, wb = 1-t, t
	} else {
		theta := math.Acos(cos)
		sin := math.Sin(theta)
		wa = math.Sin((1-t)*theta) / sin
		wb = math.Sin(t*theta) / sin
	}

	var r [4]float64
	var n float64
	for i := range r {
		r[i] = a[i]*wa + b[i]*wb
		n += r[i] * r[i]
	}
	if n = math.Sqrt(n); n > 0 {
		for i := range r {
			r[i] /= n
		}
	}
	return r
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func length3(v [3]float64) float64 {
	return math.Sqrt(dot3(v, v))
}

func normalize3(v [3]float64) [3]float64 {
	l := length3(v)
	if l == 0 {
		return v
	}
	return [3]float64{v[0] / l, v[1] / l, v[2] / l}
}

func dot3(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func combine3(a, b [3]float64, ascl, bscl float64) [3]float64 {
	return [3]float64{
		a[0]*ascl + b[0]*bscl,
		a[1]*ascl + b[1]*bscl,
		a[2]*ascl + b[2]*bscl,
	}
}
