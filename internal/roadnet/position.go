package roadnet

import (
	"fmt"
	"math"

	"github.com/ukydev/traffic-sim/internal/geom"
)

// RoadID addresses a road inside its Network.
type RoadID int

// IntersectionID addresses an intersection inside its Network.
type IntersectionID int

// NoIntersection marks a leg or lookup without an intersection.
const NoIntersection IntersectionID = -1

// PositionTolerance is the offset tolerance under which two positions are equal.
const PositionTolerance = 1e-4

// Position is a scalar offset along a road.
type Position struct {
	Road   RoadID  `json:"road" bson:"road"`
	Offset float64 `json:"offset" bson:"offset"`
}

// Equal compares positions with PositionTolerance.
func (p Position) Equal(o Position) bool {
	return p.Road == o.Road && math.Abs(p.Offset-o.Offset) < PositionTolerance
}

// Key buckets the offset into PositionTolerance sized cells so positions can
// be used as map keys. Positions that are Equal land in the same or an
// adjacent bucket; callers that memoize rely on intersection offsets, which
// are produced by the same computation and therefore share a bucket.
func (p Position) Key() PositionKey {
	return PositionKey{Road: p.Road, Bucket: int64(math.Round(p.Offset / PositionTolerance))}
}

func (p Position) String() string {
	return fmt.Sprintf("road %d @ %.4f", p.Road, p.Offset)
}

// PositionKey is the hashable form of a Position.
type PositionKey struct {
	Road   RoadID
	Bucket int64
}

// SingleRoadPath is a directed distance between two offsets of the same road.
// Direction is 0 only when both offsets coincide.
type SingleRoadPath struct {
	Road      RoadID
	Distance  float64
	Direction int
}

func zeroPath(road RoadID, direction int) SingleRoadPath {
	return SingleRoadPath{Road: road, Distance: 0, Direction: direction}
}

func almostZero(v float64) bool {
	return geom.AlmostEqual(v, 0)
}
