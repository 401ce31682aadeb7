package roadnet

import (
	"math"

	"github.com/samber/lo"
	"github.com/ukydev/traffic-sim/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// EnclosureTolerance is the maximum endpoint distance of a closed loop.
const EnclosureTolerance = 1e-3

// Curve is the parametrized center line of a road.
type Curve interface {
	Length() float64
	PointAt(offset float64) r3.Vec
	ClosestOffset(point r3.Vec) float64
	Points() []r3.Vec
}

// Road is a one-dimensional lane pair along a curve. All offset arithmetic,
// including wrap-around on enclosed roads, goes through its methods.
type Road struct {
	ID   RoadID
	Name string

	curve         Curve
	length        float64
	enclosed      bool
	intersections []IntersectionID
	spots         []ReservedSpot
}

func newRoad(id RoadID, name string, curve Curve) *Road {
	points := curve.Points()
	first, last := points[0], points[len(points)-1]
	return &Road{
		ID:       id,
		Name:     name,
		curve:    curve,
		length:   curve.Length(),
		enclosed: r3.Norm(r3.Sub(first, last)) <= EnclosureTolerance,
	}
}

// Length returns the road's parametrized length.
func (r *Road) Length() float64 { return r.length }

// IsEnclosed reports whether the road is a closed loop.
func (r *Road) IsEnclosed() bool { return r.enclosed }

// Curve returns the road's center line.
func (r *Road) Curve() Curve { return r.curve }

// PointAt resolves an offset to a world point.
func (r *Road) PointAt(offset float64) r3.Vec {
	return r.curve.PointAt(r.normalize(offset))
}

// Intersections lists the intersections on this road.
func (r *Road) Intersections() []IntersectionID {
	return append([]IntersectionID(nil), r.intersections...)
}

// Position builds a position on this road, normalizing the offset on loops.
func (r *Road) Position(offset float64) Position {
	return Position{Road: r.ID, Offset: r.normalize(offset)}
}

func (r *Road) normalize(offset float64) float64 {
	if r.enclosed {
		return geom.Mod(offset, r.length)
	}
	return offset
}

// ShortestPath returns the shorter of the direct and the looped path on
// enclosed roads, and the direct path otherwise.
func (r *Road) ShortestPath(from, to float64) SingleRoadPath {
	from, to = r.normalize(from), r.normalize(to)
	if geom.AlmostEqual(from, to) {
		return zeroPath(r.ID, 0)
	}
	direct := math.Abs(to - from)
	sign := geom.Sign(to - from)
	if !r.enclosed {
		return SingleRoadPath{Road: r.ID, Distance: direct, Direction: sign}
	}

	looped := r.length - direct
	if almostZero(looped) {
		return zeroPath(r.ID, 0)
	}
	if direct < looped {
		return SingleRoadPath{Road: r.ID, Distance: direct, Direction: sign}
	}
	return SingleRoadPath{Road: r.ID, Distance: looped, Direction: -sign}
}

// PathWithSetDirection is ShortestPath with a forced direction. It fails on
// open roads when the target lies behind.
func (r *Road) PathWithSetDirection(from, to float64, direction int) (SingleRoadPath, bool) {
	from, to = r.normalize(from), r.normalize(to)
	if geom.AlmostEqual(from, to) {
		return zeroPath(r.ID, direction), true
	}
	if direction != 1 && direction != -1 {
		return SingleRoadPath{}, false
	}
	direct := math.Abs(to - from)
	sign := geom.Sign(to - from)
	if direction == sign {
		return SingleRoadPath{Road: r.ID, Distance: direct, Direction: direction}, true
	}
	if !r.enclosed {
		return SingleRoadPath{}, false
	}
	return SingleRoadPath{Road: r.ID, Distance: r.length - direct, Direction: direction}, true
}

// MoveBy moves an offset by distance in direction. It fails when the result
// would leave an open road.
func (r *Road) MoveBy(offset, distance float64, direction int) (float64, bool) {
	moved := offset + distance*float64(direction)
	if r.enclosed {
		return geom.Mod(moved, r.length), true
	}
	if moved < -geom.Epsilon || moved > r.length+geom.Epsilon {
		return 0, false
	}
	return lo.Clamp(moved, 0, r.length), true
}

// MoveByCapped never fails: it clamps on open roads and wraps on loops.
func (r *Road) MoveByCapped(offset, distance float64, direction int) float64 {
	moved := offset + distance*float64(direction)
	if r.enclosed {
		return geom.Mod(moved, r.length)
	}
	return lo.Clamp(moved, 0, r.length)
}
