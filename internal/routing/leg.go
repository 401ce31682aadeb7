package routing

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/ukydev/traffic-sim/internal/roadnet"
)

// Leg is one directed hop confined to a single road.
type Leg struct {
	Start     roadnet.Position `json:"start"`
	End       roadnet.Position `json:"end"`
	Direction int              `json:"direction"`
	Distance  float64          `json:"distance"`
	// Intersection is the crossing the leg arrives at, or NoIntersection.
	Intersection roadnet.IntersectionID `json:"intersection"`
}

// Road returns the road the leg runs on.
func (l Leg) Road() roadnet.RoadID { return l.Start.Road }

// HasIntersection reports whether the leg ends at a crossing.
func (l Leg) HasIntersection() bool { return l.Intersection != roadnet.NoIntersection }

func (l Leg) String() string {
	if !l.HasIntersection() {
		return fmt.Sprintf("%s -> %s (%+d, %.3f)", l.Start, l.End, l.Direction, l.Distance)
	}
	return fmt.Sprintf("%s -> %s (%+d, %.3f) via %d", l.Start, l.End, l.Direction, l.Distance, l.Intersection)
}

// TotalDistance sums the distance of every leg.
func TotalDistance(legs []Leg) float64 {
	return lo.SumBy(legs, func(l Leg) float64 { return l.Distance })
}
