// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package animation

import "math"

// TimingFunction maps linear progress within a keyframe interval to eased
// progress. Duration is the run's single-iteration duration in seconds and
// controls the solver precision of curve based functions.
type TimingFunction interface {
	Solve(t, duration float64) float64
}

// Linear returns its input unchanged.
type Linear struct{}

// Solve implements TimingFunction.
func (Linear) Solve(t, _ float64) float64 { return t }

// CubicBezier is a timing curve matching CSS cubic-bezier().
// The curve starts at (0,0) and ends at (1,1); the fields are the two
// inner control points.
type CubicBezier struct {
	X1, Y1, X2, Y2 float64
}

// Standard curves.
var (
	// Ease is the default timing function.
	Ease = CubicBezier{0.25, 0.1, 0.25, 1.0}

	// EaseIn starts slowly and accelerates.
	EaseIn = CubicBezier{0.42, 0, 1.0, 1.0}

	// EaseOut starts quickly and decelerates.
	EaseOut = CubicBezier{0, 0, 0.58, 1.0}

	// EaseInOut starts and ends slowly.
	EaseInOut = CubicBezier{0.42, 0, 0.58, 1.0}
)

// SolveEpsilon is the precision used for a curve over duration seconds.
// Longer animations need a tighter tolerance to avoid visible steps.
func SolveEpsilon(duration float64) float64 {
	return 1.0 / (200.0 * duration)
}

// Solve implements TimingFunction.
func (c CubicBezier) Solve(t, duration float64) float64 {
	return c.sampleY(c.solveX(t, SolveEpsilon(duration)))
}

func (c CubicBezier) coefficients(p1, p2 float64) (a, b, cc float64) {
	cc = 3 * p1
	b = 3*(p2-p1) - cc
	a = 1 - cc - b
	return a, b, cc
}

func (c CubicBezier) sampleX(t float64) float64 {
	a, b, cc := c.coefficients(c.X1, c.X2)
	return ((a*t+b)*t + cc) * t
}

func (c CubicBezier) sampleY(t float64) float64 {
	a, b, cc := c.coefficients(c.Y1, c.Y2)
	return ((a*t+b)*t + cc) * t
}

func (c CubicBezier) sampleDerivativeX(t float64) float64 {
	a, b, cc := c.coefficients(c.X1, c.X2)
	return (3*a*t+2*b)*t + cc
}

// solveX finds the curve parameter whose X equals x within epsilon.
func (c CubicBezier) solveX(x, epsilon float64) float64 {
	// Newton-Raphson converges quickly for most values.
	t := x
	for range 8 {
		x2 := c.sampleX(t) - x
		if math.Abs(x2) < epsilon {
			return t
		}
		d := c.sampleDerivativeX(t)
		if math.Abs(d) < 1e-6 {
			break
		}
		t -= x2 / d
	}

	// Fallback to bisection.
	lo, hi := 0.0, 1.0
	t = x
	if t < lo {
		return lo
	}
	if t > hi {
		return hi
	}
	for range 64 {
		if lo >= hi {
			break
		}
		x2 := c.sampleX(t)
		if math.Abs(x2-x) < epsilon {
			return t
		}
		if x > x2 {
			lo = t
		} else {
			hi = t
		}
		t = (hi-lo)*0.5 + lo
	}
	return t
}

// Steps is a staircase timing function matching CSS steps().
type Steps struct {
	N       int
	AtStart bool
}

// Solve implements TimingFunction.
func (s Steps) Solve(t, _ float64) float64 {
	n := float64(s.N)
	if s.N <= 0 {
		return t
	}
	if s.AtStart {
		return math.Min(1, (math.Floor(n*t)+1)/n)
	}
	return math.Floor(n*t) / n
}
