// Package geom holds the floating-point and vector helpers shared by the road network.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the tolerance used for offset and distance comparisons.
const Epsilon = 1e-7

// Up is the axis turns are measured around.
var Up = r3.Vec{Y: 1}

// AlmostEqual reports whether a and b differ by less than Epsilon.
func AlmostEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Mod returns x modulo m, always in [0, m).
func Mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	// math.Mod can hand back m itself after the correction above for tiny negatives.
	if r >= m {
		r -= m
	}
	return r
}

// Sign returns -1, 0 or 1.
func Sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Direction returns the unit vector pointing from a to b.
func Direction(a, b r3.Vec) r3.Vec {
	d := r3.Sub(b, a)
	if r3.Norm(d) < Epsilon {
		return r3.Vec{}
	}
	return r3.Unit(d)
}

// SignedAngle returns the angle from a to b in (-pi, pi], positive when the
// rotation is counter-clockwise around axis.
func SignedAngle(a, b, axis r3.Vec) float64 {
	cross := r3.Cross(a, b)
	angle := math.Atan2(r3.Norm(cross), r3.Dot(a, b))
	if r3.Dot(cross, axis) < 0 {
		return -angle
	}
	return angle
}

// PositiveAngle is SignedAngle mapped onto [0, 2*pi).
func PositiveAngle(a, b, axis r3.Vec) float64 {
	angle := SignedAngle(a, b, axis)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

// ClosestPointsBetweenSegments returns the closest pair of points between
// segments p1-q1 and p2-q2.
func ClosestPointsBetweenSegments(p1, q1, p2, q2 r3.Vec) (r3.Vec, r3.Vec) {
	d1 := r3.Sub(q1, p1)
	d2 := r3.Sub(q2, p2)
	r := r3.Sub(p1, p2)
	a := r3.Dot(d1, d1)
	e := r3.Dot(d2, d2)
	f := r3.Dot(d2, r)

	var s, t float64
	switch {
	case a <= Epsilon && e <= Epsilon:
		return p1, p2
	case a <= Epsilon:
		t = clamp01(f / e)
	default:
		c := r3.Dot(d1, r)
		if e <= Epsilon {
			s = clamp01(-c / a)
		} else {
			b := r3.Dot(d1, d2)
			denom := a*e - b*b
			if denom != 0 {
				s = clamp01((b*f - c*e) / denom)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}
	return r3.Add(p1, r3.Scale(s, d1)), r3.Add(p2, r3.Scale(t, d2))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
