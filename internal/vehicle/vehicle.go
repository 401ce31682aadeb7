// Package vehicle drives a single agent through the road network, one tick
// at a time.
package vehicle

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/geom"
	"github.com/ukydev/traffic-sim/internal/roadnet"
	"github.com/ukydev/traffic-sim/internal/routing"
	"gonum.org/v1/gonum/spatial/r3"
)

// GoalPicker supplies destinations for vehicles looking for a new path.
type GoalPicker interface {
	PickGoal() (roadnet.Position, bool)
}

// GoalFunc adapts a function to GoalPicker.
type GoalFunc func() (roadnet.Position, bool)

// PickGoal calls f.
func (f GoalFunc) PickGoal() (roadnet.Position, bool) { return f() }

// Trip describes a finished path.
type Trip struct {
	Vehicle      roadnet.VehicleID
	Start        roadnet.Position
	Goal         roadnet.Position
	Legs         int
	Distance     float64
	StartedTick  int
	FinishedTick int
}

// Options configure a vehicle.
type Options struct {
	// Speed is the distance travelled per unit of tick delta.
	Speed float64
	// Radius is the half length of every spot the vehicle reserves.
	Radius float64
	// OnTrip, when set, is called each time the vehicle reaches its goal.
	OnTrip func(Trip)
}

// Vehicle is one agent. It is not safe for concurrent use; the engine ticks
// all vehicles from one goroutine.
type Vehicle struct {
	ID roadnet.VehicleID

	network *roadnet.Network
	router  *routing.Router
	goals   GoalPicker
	opts    Options

	state     State
	legs      []routing.Leg
	position  roadnet.Position
	direction int
	parked    bool

	ticks   int
	stalled int
	trip    *Trip
}

// New parks a vehicle at start, facing the positive lane.
func New(id roadnet.VehicleID, network *roadnet.Network, router *routing.Router, goals GoalPicker, start roadnet.Position, opts Options) *Vehicle {
	return &Vehicle{
		ID:        id,
		network:   network,
		router:    router,
		goals:     goals,
		opts:      opts,
		state:     ParkedSeekingPath{Position: start},
		position:  start,
		direction: 1,
		parked:    true,
	}
}

// State returns the current state.
func (v *Vehicle) State() State { return v.state }

// Position returns the last resolved position.
func (v *Vehicle) Position() roadnet.Position { return v.position }

// LaneSide returns the side of the road the vehicle occupies.
func (v *Vehicle) LaneSide() LaneSide { return laneSide(v.direction, v.parked) }

// Legs returns the legs still ahead.
func (v *Vehicle) Legs() []routing.Leg {
	return append([]routing.Leg(nil), v.legs...)
}

// Stalled returns the number of consecutive ticks without progress.
func (v *Vehicle) Stalled() int { return v.stalled }

// Tick advances the vehicle by delta time units.
func (v *Vehicle) Tick(delta float64) {
	v.ticks++
	before, beforeState := v.position, v.state.Name()
	maxDistance := v.opts.Speed * delta

	switch s := v.state.(type) {
	case ParkedSeekingPath:
		v.seekPath(s)
	case ParkedToClaimLane:
		v.claimLane(s)
	case Moving:
		v.move(s, maxDistance)
	case CrossingIntersection:
		v.cross(s, maxDistance)
	default:
		panic(fmt.Sprintf("vehicle %s: unexpected state %T", v.ID, v.state))
	}

	if v.position.Equal(before) && v.state.Name() == beforeState {
		v.stalled++
	} else {
		v.stalled = 0
	}
}

func (v *Vehicle) spotAt(p roadnet.Position, direction int) roadnet.ReservedSpot {
	return roadnet.ReservedSpot{
		Owner:     v.ID,
		Offset:    p.Offset,
		Radius:    v.opts.Radius,
		Road:      p.Road,
		Direction: direction,
	}
}

func (v *Vehicle) seekPath(s ParkedSeekingPath) {
	goal, ok := v.goals.PickGoal()
	if !ok {
		return
	}
	legs, ok := v.router.FindShortestPathTo(s.Position, goal)
	if !ok || len(legs) == 0 {
		log.WithFields(log.Fields{"vehicle": v.ID, "goal": goal.String()}).Debug("No path to goal, retrying next tick")
		return
	}

	v.legs = legs
	v.trip = &Trip{
		Vehicle:     v.ID,
		Start:       s.Position,
		Goal:        goal,
		Legs:        len(legs),
		Distance:    routing.TotalDistance(legs),
		StartedTick: v.ticks,
	}
	first := legs[0]
	v.state = ParkedToClaimLane{Spot: v.spotAt(first.Start, first.Direction)}
}

func (v *Vehicle) claimLane(s ParkedToClaimLane) {
	if !v.network.CanBeClaimed(s.Spot) {
		return
	}
	// Driving off into the other lane crosses the one the vehicle is parked in.
	if v.direction != s.Spot.Direction && !v.network.CanBeClaimed(s.Spot.WithDirection(v.direction)) {
		return
	}
	v.network.RegisterClaim(s.Spot, true)
	v.direction = s.Spot.Direction
	v.parked = false
	v.position = s.Spot.Position()
	v.state = Moving{Spot: s.Spot}
}

func (v *Vehicle) move(s Moving, maxDistance float64) {
	leg := v.legs[0]
	path, ok := v.network.PathWithSetDirection(s.Spot.Position(), leg.End, s.Spot.Direction)
	if !ok {
		v.cancel("leg end is unreachable in the lane direction")
		return
	}
	step := math.Min(maxDistance, path.Distance)
	moved, ok := v.network.MoveSpot(s.Spot, step)
	if !ok {
		v.cancel("move leaves the road")
		return
	}
	if !v.network.CanBeClaimed(moved) {
		return
	}

	if leg.HasIntersection() && len(v.legs) > 1 && path.Distance-step <= v.network.Settings().InteractionDistance {
		in := v.network.Intersection(leg.Intersection)
		next := v.legs[1]
		if !in.TryReservePath(v.ID, v.opts.Radius, leg.Road(), s.Spot.Direction, next.Road(), next.Direction) {
			return
		}
		v.network.UnregisterClaim(s.Spot)
		v.legs = v.legs[1:]
		v.state = CrossingIntersection{Intersection: in.ID}
		if p, ok := in.CurrentPosition(v.ID); ok {
			v.position = p
		}
		return
	}

	v.network.RegisterClaim(moved, true)
	v.position = moved.Position()
	if !geom.AlmostEqual(path.Distance-step, 0) {
		v.state = Moving{Spot: moved}
		return
	}

	v.legs = v.legs[1:]
	v.network.UnregisterClaim(moved)
	v.parked = true
	if len(v.legs) > 0 {
		next := v.legs[0]
		v.state = ParkedToClaimLane{Spot: v.spotAt(next.Start, next.Direction)}
		return
	}
	v.arrive()
}

func (v *Vehicle) cross(s CrossingIntersection, maxDistance float64) {
	in := v.network.Intersection(s.Intersection)
	in.Advance(v.ID, maxDistance)
	if p, ok := in.CurrentPosition(v.ID); ok {
		v.position = p
	}
	if d, ok := in.CurrentDirection(v.ID); ok {
		v.direction = d
	}

	exit, ok := in.TransitComplete(v.ID)
	if !ok {
		return
	}
	v.position = exit.Position()
	v.direction = exit.Direction
	if len(v.legs) > 0 {
		v.state = Moving{Spot: exit}
		return
	}
	v.network.UnregisterClaim(exit)
	v.parked = true
	v.arrive()
}

func (v *Vehicle) arrive() {
	v.state = ParkedSeekingPath{Position: v.position}
	if v.trip == nil {
		return
	}
	trip := *v.trip
	trip.FinishedTick = v.ticks
	v.trip = nil
	log.WithFields(log.Fields{
		"vehicle":  v.ID,
		"goal":     trip.Goal.String(),
		"distance": trip.Distance,
		"ticks":    trip.FinishedTick - trip.StartedTick,
	}).Debug("Vehicle reached its goal")
	if v.opts.OnTrip != nil {
		v.opts.OnTrip(trip)
	}
}

// cancel abandons the path and everything reserved for it. It only ever
// releases resources, so it is always safe.
func (v *Vehicle) cancel(reason string) {
	log.WithFields(log.Fields{
		"vehicle":  v.ID,
		"position": v.position.String(),
		"state":    v.state.Name(),
	}).Warn("Cancelling path: " + reason)
	v.Release()
	v.legs = nil
	v.trip = nil
	v.parked = true
	v.state = ParkedSeekingPath{Position: v.position}
}

// Release drops every spot and transit entry the vehicle holds.
func (v *Vehicle) Release() {
	v.network.Release(v.ID)
}

// Snapshot is the read-only projection of a vehicle.
type Snapshot struct {
	ID       roadnet.VehicleID
	State    string
	Position roadnet.Position
	LaneSide LaneSide
	World    r3.Vec
	LegsLeft int
	Stalled  int
	Ticks    int
	Goal     *roadnet.Position
}

// Snapshot captures the vehicle's current projection.
func (v *Vehicle) Snapshot() Snapshot {
	s := Snapshot{
		ID:       v.ID,
		State:    v.state.Name(),
		Position: v.position,
		LaneSide: v.LaneSide(),
		World:    v.network.WorldPoint(v.position),
		LegsLeft: len(v.legs),
		Stalled:  v.stalled,
		Ticks:    v.ticks,
	}
	if v.trip != nil {
		goal := v.trip.Goal
		s.Goal = &goal
	}
	return s
}
