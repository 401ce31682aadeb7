package roadnet

import (
	"math"

	"github.com/samber/lo"
	"github.com/ukydev/traffic-sim/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCrossingProximity is the world distance under which two segments cross.
const DefaultCrossingProximity = 1e-3

// Crossing is a point shared by two curves, as offsets on each.
type Crossing struct {
	OffsetA float64
	OffsetB float64
}

// CrossingFinder reports where two curves cross.
type CrossingFinder interface {
	Crossings(a, b Curve) []Crossing
}

// SegmentCrossingFinder compares every segment of one polyline with every
// segment of the other.
type SegmentCrossingFinder struct {
	Proximity float64
}

// Crossings implements CrossingFinder. A crossing on a shared polyline vertex
// is found by two neighbouring segments and reported once.
func (f SegmentCrossingFinder) Crossings(a, b Curve) []Crossing {
	proximity := f.Proximity
	if proximity <= 0 {
		proximity = DefaultCrossingProximity
	}
	pa, pb := a.Points(), b.Points()

	var found []Crossing
	for i := 1; i < len(pa); i++ {
		for j := 1; j < len(pb); j++ {
			ca, cb := geom.ClosestPointsBetweenSegments(pa[i-1], pa[i], pb[j-1], pb[j])
			if r3.Norm(r3.Sub(ca, cb)) >= proximity {
				continue
			}
			c := Crossing{OffsetA: a.ClosestOffset(ca), OffsetB: b.ClosestOffset(cb)}
			duplicate := lo.ContainsBy(found, func(o Crossing) bool {
				return math.Abs(o.OffsetA-c.OffsetA) < proximity && math.Abs(o.OffsetB-c.OffsetB) < proximity
			})
			if !duplicate {
				found = append(found, c)
			}
		}
	}
	return found
}
