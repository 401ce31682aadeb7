package roadnet

import (
	"github.com/samber/lo"
)

// VehicleID identifies the owner of a reservation.
type VehicleID string

// ReservedSpot is an exclusive claim over [Offset-Radius, Offset+Radius] of
// the Direction lane of Road.
type ReservedSpot struct {
	Owner     VehicleID `json:"owner"`
	Offset    float64   `json:"offset"`
	Radius    float64   `json:"radius"`
	Road      RoadID    `json:"road"`
	Direction int       `json:"direction"`
}

// Position returns the spot's center.
func (s ReservedSpot) Position() Position {
	return Position{Road: s.Road, Offset: s.Offset}
}

// WithDirection returns the same spot in the other (or same) lane.
func (s ReservedSpot) WithDirection(direction int) ReservedSpot {
	s.Direction = direction
	return s
}

// Spots returns a copy of the claims currently registered on the road.
func (r *Road) Spots() []ReservedSpot {
	return append([]ReservedSpot(nil), r.spots...)
}

// CanBeClaimed checks the candidate against every registered spot. Spots of
// the same owner or of the other lane never conflict; otherwise the centers
// must be further apart than both radii.
func (r *Road) CanBeClaimed(spot ReservedSpot) bool {
	r.mustOwn(spot)
	return lo.EveryBy(r.spots, func(existing ReservedSpot) bool {
		return existing.Direction != spot.Direction ||
			existing.Owner == spot.Owner ||
			r.ShortestPath(spot.Offset, existing.Offset).Distance > spot.Radius+existing.Radius
	})
}

// RegisterClaim adds the spot. Unless evictPrevious is false, the spots the
// same owner already holds on this road are dropped first.
func (r *Road) RegisterClaim(spot ReservedSpot, evictPrevious bool) {
	r.mustOwn(spot)
	if evictPrevious {
		r.ReleaseOwner(spot.Owner)
	}
	r.spots = append(r.spots, spot)
}

// UnregisterClaim removes the spot. Removing an unknown spot is a no-op.
func (r *Road) UnregisterClaim(spot ReservedSpot) {
	for i, s := range r.spots {
		if s == spot {
			r.spots = append(r.spots[:i], r.spots[i+1:]...)
			return
		}
	}
}

// ReleaseOwner drops every spot held by owner and returns how many were held.
func (r *Road) ReleaseOwner(owner VehicleID) int {
	before := len(r.spots)
	r.spots = lo.Reject(r.spots, func(s ReservedSpot, _ int) bool { return s.Owner == owner })
	return before - len(r.spots)
}

func (r *Road) mustOwn(spot ReservedSpot) {
	if spot.Road != r.ID {
		panic(unknownRoadf("spot on road %d checked against road %d", spot.Road, r.ID))
	}
}
