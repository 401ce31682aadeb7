package roadnet

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type transitEntry struct {
	owner        VehicleID
	entrance     Exit
	exit         Exit
	entranceSpot ReservedSpot
	exitSpot     ReservedSpot
	current      Position
	destination  Position
	entering     bool
}

// TransitEntry is a read-only view of a vehicle inside an intersection.
type TransitEntry struct {
	Owner    VehicleID `json:"owner"`
	Entrance Exit      `json:"entrance"`
	Exit     Exit      `json:"exit"`
	Position Position  `json:"position"`
	Entering bool      `json:"entering"`
}

// Transits lists the vehicles currently inside the intersection.
func (in *Intersection) Transits() []TransitEntry {
	return lo.Map(in.entries, func(e *transitEntry, _ int) TransitEntry {
		return TransitEntry{Owner: e.owner, Entrance: e.entrance, Exit: e.exit, Position: e.current, Entering: e.entering}
	})
}

func (in *Intersection) entry(owner VehicleID) (*transitEntry, int) {
	for i, e := range in.entries {
		if e.owner == owner {
			return e, i
		}
	}
	return nil, -1
}

func (in *Intersection) mustEntry(owner VehicleID) *transitEntry {
	e, _ := in.entry(owner)
	if e == nil {
		panic(fmt.Errorf("%w: vehicle %s at intersection %d", ErrNotTransiting, owner, in.ID))
	}
	return e
}

func (in *Intersection) road(id RoadID) *Road {
	return in.roads[in.index(id)]
}

// TryReservePath claims an entrance spot behind the crossing on the current
// road and an exit spot past it on the next road. Both must be claimable and
// the right-of-way rule must admit the movement; otherwise nothing changes
// and the caller retries on a later tick.
func (in *Intersection) TryReservePath(owner VehicleID, radius float64, currentRoad RoadID, currentDirection int, roadAfter RoadID, directionAfter int) bool {
	if e, _ := in.entry(owner); e != nil {
		log.WithFields(log.Fields{"vehicle": owner, "intersection": in.ID}).Error("Vehicle tries to reserve an intersection path while already inside")
		return false
	}

	entrance := in.mustExit(currentRoad, -currentDirection)
	exit := in.mustExit(roadAfter, directionAfter)
	from, to := in.road(currentRoad), in.road(roadAfter)
	distance := in.settings.InteractionDistance

	entranceSpot := ReservedSpot{
		Owner:     owner,
		Offset:    from.MoveByCapped(in.OffsetOn(currentRoad), distance, entrance.LaneDirection),
		Radius:    radius,
		Road:      currentRoad,
		Direction: currentDirection,
	}
	exitSpot := ReservedSpot{
		Owner:     owner,
		Offset:    to.MoveByCapped(in.OffsetOn(roadAfter), distance, exit.LaneDirection),
		Radius:    radius,
		Road:      roadAfter,
		Direction: directionAfter,
	}

	fields := log.Fields{"vehicle": owner, "intersection": in.ID, "entrance": entrance.String(), "exit": exit.String()}
	if !from.CanBeClaimed(entranceSpot) || !to.CanBeClaimed(exitSpot) {
		log.WithFields(fields).Debug("Intersection spots are taken")
		return false
	}
	if !in.admits(entrance, exit) {
		log.WithFields(fields).Debug("Right of way denied")
		return false
	}

	from.RegisterClaim(entranceSpot, false)
	to.RegisterClaim(exitSpot, false)
	waypoint := from.MoveByCapped(in.OffsetOn(currentRoad), distance*(1-in.settings.EntranceTraversalFactor), entrance.LaneDirection)
	in.entries = append(in.entries, &transitEntry{
		owner:        owner,
		entrance:     entrance,
		exit:         exit,
		entranceSpot: entranceSpot,
		exitSpot:     exitSpot,
		current:      entranceSpot.Position(),
		destination:  Position{Road: currentRoad, Offset: waypoint},
		entering:     true,
	})
	return true
}

// admits is the uncontrolled-intersection right-of-way rule.
//
// Straight is blocked by anything coming from the right and by traffic from
// straight or left heading to the right. Right turns are never blocked. A left
// turn only coexists with oncoming traffic turning into our own lane. Turning
// back is admitted only into an empty intersection.
func (in *Intersection) admits(entrance, exit Exit) bool {
	right, straight, left := in.Classify(entrance)
	switch {
	case exit.Same(straight):
		return !lo.SomeBy(in.entries, func(e *transitEntry) bool {
			return e.entrance.Same(right) ||
				(e.entrance.Same(straight) && e.exit.Same(right)) ||
				(e.entrance.Same(left) && e.exit.Same(right))
		})
	case exit.Same(right):
		return true
	case exit.Same(left):
		return lo.EveryBy(in.entries, func(e *transitEntry) bool {
			return e.entrance.Same(left) && e.exit.Same(entrance)
		})
	default:
		return len(in.entries) == 0
	}
}

// Advance moves the vehicle towards its current waypoint by at most
// maxDistance. Reaching the entrance waypoint switches to the exit leg, which
// starts at the crossing point of the next road.
func (in *Intersection) Advance(owner VehicleID, maxDistance float64) {
	e := in.mustEntry(owner)
	spot := e.exitSpot
	if e.entering {
		spot = e.entranceSpot
	}

	road := in.road(e.current.Road)
	path, ok := road.PathWithSetDirection(e.current.Offset, e.destination.Offset, spot.Direction)
	if !ok {
		log.WithFields(log.Fields{"vehicle": owner, "intersection": in.ID}).Warn("Transit waypoint is unreachable in the lane direction")
		return
	}
	moved, ok := road.MoveBy(e.current.Offset, math.Min(maxDistance, path.Distance), spot.Direction)
	if !ok {
		return
	}
	remaining, ok := road.PathWithSetDirection(moved, e.destination.Offset, spot.Direction)
	if !ok {
		log.WithFields(log.Fields{"vehicle": owner, "intersection": in.ID}).Warn("Transit overshot its waypoint")
		return
	}

	if e.entering && almostZero(remaining.Distance) {
		e.entering = false
		e.destination = e.exitSpot.Position()
		e.current = in.PositionOn(e.exitSpot.Road)
		return
	}
	e.current = Position{Road: road.ID, Offset: moved}
}

// CurrentPosition returns where the vehicle is inside the intersection.
func (in *Intersection) CurrentPosition(owner VehicleID) (Position, bool) {
	e, _ := in.entry(owner)
	if e == nil {
		return Position{}, false
	}
	return e.current, true
}

// CurrentDirection returns the lane direction the vehicle currently travels in.
func (in *Intersection) CurrentDirection(owner VehicleID) (int, bool) {
	e, _ := in.entry(owner)
	if e == nil {
		return 0, false
	}
	if e.entering {
		return e.entranceSpot.Direction, true
	}
	return e.exitSpot.Direction, true
}

// TransitComplete finishes the transit once the exit spot is reached: the
// entrance spot is released, the entry removed, and the still-registered exit
// spot handed back to the caller.
func (in *Intersection) TransitComplete(owner VehicleID) (ReservedSpot, bool) {
	e, idx := in.entry(owner)
	if e == nil || e.entering {
		return ReservedSpot{}, false
	}
	road := in.road(e.current.Road)
	if !almostZero(road.ShortestPath(e.current.Offset, e.destination.Offset).Distance) {
		return ReservedSpot{}, false
	}
	in.road(e.entranceSpot.Road).UnregisterClaim(e.entranceSpot)
	in.entries = append(in.entries[:idx], in.entries[idx+1:]...)
	return e.exitSpot, true
}

// Abandon drops the vehicle's transit entry and both of its spots.
func (in *Intersection) Abandon(owner VehicleID) bool {
	e, idx := in.entry(owner)
	if e == nil {
		return false
	}
	in.road(e.entranceSpot.Road).UnregisterClaim(e.entranceSpot)
	in.road(e.exitSpot.Road).UnregisterClaim(e.exitSpot)
	in.entries = append(in.entries[:idx], in.entries[idx+1:]...)
	return true
}
