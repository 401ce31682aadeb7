package vehicle

import (
	"fmt"

	"github.com/ukydev/traffic-sim/internal/roadnet"
)

// State is one of ParkedSeekingPath, ParkedToClaimLane, Moving and
// CrossingIntersection. The set is closed.
type State interface {
	Name() string
	state()
}

// ParkedSeekingPath waits at Position for a path to a new goal.
type ParkedSeekingPath struct {
	Position roadnet.Position
}

// ParkedToClaimLane waits for Spot to become free before driving off.
type ParkedToClaimLane struct {
	Spot roadnet.ReservedSpot
}

// Moving drives along the current leg holding Spot.
type Moving struct {
	Spot roadnet.ReservedSpot
}

// CrossingIntersection transits the intersection.
type CrossingIntersection struct {
	Intersection roadnet.IntersectionID
}

func (ParkedSeekingPath) state()    {}
func (ParkedToClaimLane) state()    {}
func (Moving) state()               {}
func (CrossingIntersection) state() {}

func (ParkedSeekingPath) Name() string    { return "parked_seeking_path" }
func (ParkedToClaimLane) Name() string    { return "parked_to_claim_lane" }
func (Moving) Name() string               { return "moving" }
func (CrossingIntersection) Name() string { return "crossing_intersection" }

// LaneSide is where the vehicle sits across the road.
type LaneSide int

const (
	DrivingPositive LaneSide = iota
	DrivingNegative
	ParkedPositive
	ParkedNegative
)

func laneSide(direction int, parked bool) LaneSide {
	switch {
	case parked && direction < 0:
		return ParkedNegative
	case parked:
		return ParkedPositive
	case direction < 0:
		return DrivingNegative
	default:
		return DrivingPositive
	}
}

// Direction returns the lane direction of the side.
func (s LaneSide) Direction() int {
	if s == DrivingNegative || s == ParkedNegative {
		return -1
	}
	return 1
}

// Parked reports whether the side is a parking side.
func (s LaneSide) Parked() bool {
	return s == ParkedPositive || s == ParkedNegative
}

func (s LaneSide) String() string {
	switch s {
	case DrivingPositive:
		return "driving_positive"
	case DrivingNegative:
		return "driving_negative"
	case ParkedPositive:
		return "parked_positive"
	case ParkedNegative:
		return "parked_negative"
	default:
		return fmt.Sprintf("lane_side(%d)", int(s))
	}
}
