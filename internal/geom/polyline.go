package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrTooFewPoints is returned for polylines with fewer than two distinct points.
var ErrTooFewPoints = errors.New("polyline needs at least two points")

// Polyline is a baked road center line parametrized by arc length.
type Polyline struct {
	points []r3.Vec
	// cumulative[i] is the arc length from points[0] to points[i].
	cumulative []float64
}

// NewPolyline bakes the given points. Consecutive duplicates are dropped.
func NewPolyline(points []r3.Vec) (*Polyline, error) {
	baked := make([]r3.Vec, 0, len(points))
	for _, p := range points {
		if len(baked) > 0 && r3.Norm(r3.Sub(p, baked[len(baked)-1])) < Epsilon {
			continue
		}
		baked = append(baked, p)
	}
	if len(baked) < 2 {
		return nil, ErrTooFewPoints
	}

	cumulative := make([]float64, len(baked))
	for i := 1; i < len(baked); i++ {
		cumulative[i] = cumulative[i-1] + r3.Norm(r3.Sub(baked[i], baked[i-1]))
	}
	return &Polyline{points: baked, cumulative: cumulative}, nil
}

// Length returns the total arc length.
func (p *Polyline) Length() float64 {
	return p.cumulative[len(p.cumulative)-1]
}

// Points returns the baked points. The slice must not be modified.
func (p *Polyline) Points() []r3.Vec {
	return p.points
}

// PointAt resolves an offset to a world point. Offsets are clamped to the curve.
func (p *Polyline) PointAt(offset float64) r3.Vec {
	if offset <= 0 {
		return p.points[0]
	}
	if offset >= p.Length() {
		return p.points[len(p.points)-1]
	}
	// first index whose cumulative length is >= offset
	lo, hi := 1, len(p.cumulative)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if p.cumulative[mid] < offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	a, b := p.points[lo-1], p.points[lo]
	segment := p.cumulative[lo] - p.cumulative[lo-1]
	t := (offset - p.cumulative[lo-1]) / segment
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// ClosestOffset projects a world point onto the curve and returns its offset.
func (p *Polyline) ClosestOffset(point r3.Vec) float64 {
	best := math.Inf(1)
	bestOffset := 0.0
	for i := 1; i < len(p.points); i++ {
		a, b := p.points[i-1], p.points[i]
		ab := r3.Sub(b, a)
		t := clamp01(r3.Dot(r3.Sub(point, a), ab) / r3.Dot(ab, ab))
		projected := r3.Add(a, r3.Scale(t, ab))
		if d := r3.Norm(r3.Sub(point, projected)); d < best {
			best = d
			bestOffset = p.cumulative[i-1] + t*(p.cumulative[i]-p.cumulative[i-1])
		}
	}
	return bestOffset
}
