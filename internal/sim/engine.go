// Package sim runs every vehicle of a road network tick by tick.
package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/geom"
	"github.com/ukydev/traffic-sim/internal/models"
	"github.com/ukydev/traffic-sim/internal/roadnet"
	"github.com/ukydev/traffic-sim/internal/routing"
	"github.com/ukydev/traffic-sim/internal/vehicle"
)

// Options configure an Engine.
type Options struct {
	// Speed and Radius apply to every vehicle the engine creates.
	Speed  float64
	Radius float64
	// Delta is the simulated time of one tick.
	Delta float64
	Seed  uint64
	// StallThreshold is the number of ticks without progress after which a
	// vehicle is reported as stalled. Zero disables the report.
	StallThreshold int
	// RunID tags every frame. A random one is generated when empty.
	RunID string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{Speed: 5, Radius: 1, Delta: 0.1, Seed: 1, StallThreshold: 200}
}

// Publisher receives the frame of every tick the run loop produces.
type Publisher interface {
	Publish(ctx context.Context, frame models.Frame) error
}

// Engine owns a network and the vehicles driving on it. All access goes
// through its lock; vehicles are ticked in insertion order.
type Engine struct {
	mu sync.RWMutex

	network *roadnet.Network
	router  *routing.Router
	rng     *rand.Rand
	opts    Options

	vehicles map[roadnet.VehicleID]*vehicle.Vehicle
	order    []roadnet.VehicleID
	tick     int64
	pending  []models.Trip
	trips    int
}

// NewEngine creates an engine with no vehicles.
func NewEngine(network *roadnet.Network, opts Options) *Engine {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Engine{
		network:  network,
		router:   routing.NewRouter(network),
		rng:      rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		opts:     opts,
		vehicles: make(map[roadnet.VehicleID]*vehicle.Vehicle),
	}
}

// RunID identifies this run in stored telemetry.
func (e *Engine) RunID() string { return e.opts.RunID }

// Tick returns the number of completed ticks.
func (e *Engine) Tick() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tick
}

// TripsCompleted returns the number of trips finished so far.
func (e *Engine) TripsCompleted() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trips
}

// PickGoal draws a random goal. The engine lock is held by Step while
// vehicles ask for goals.
func (e *Engine) PickGoal() (roadnet.Position, bool) {
	return e.network.RandomPosition(e.rng)
}

// Spawn parks a new vehicle at a random position.
func (e *Engine) Spawn() (roadnet.VehicleID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start, ok := e.network.RandomPosition(e.rng)
	if !ok {
		return "", ErrNoFreePosition
	}
	id := roadnet.VehicleID(uuid.NewString())
	e.add(id, start)
	return id, nil
}

// AddVehicle parks a vehicle with a chosen ID at start. Like random goals,
// start may not lie within the interaction distance of an intersection.
func (e *Engine) AddVehicle(id roadnet.VehicleID, start roadnet.Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.vehicles[id]; exists {
		return fmt.Errorf("add vehicle %s: %w", id, ErrDuplicateVehicle)
	}
	road, ok := e.network.LookupRoad(start.Road)
	if !ok {
		return fmt.Errorf("add vehicle %s: %w: road %d", id, ErrInvalidPosition, start.Road)
	}
	if !road.IsEnclosed() && (start.Offset < 0 || start.Offset > road.Length()) {
		return fmt.Errorf("add vehicle %s: %w: offset %.3f not in [0, %.3f]", id, ErrInvalidPosition, start.Offset, road.Length())
	}
	start = road.Position(start.Offset)
	if in, d, ok := e.network.NearestIntersection(start); ok && d <= e.network.Settings().InteractionDistance {
		return fmt.Errorf("add vehicle %s: %w: %.3f from intersection %d", id, ErrInvalidPosition, d, in.ID)
	}
	e.add(id, start)
	return nil
}

func (e *Engine) add(id roadnet.VehicleID, start roadnet.Position) {
	e.vehicles[id] = vehicle.New(id, e.network, e.router, e, start, vehicle.Options{
		Speed:  e.opts.Speed,
		Radius: e.opts.Radius,
		OnTrip: e.recordTrip,
	})
	e.order = append(e.order, id)
	log.WithFields(log.Fields{"vehicle": id, "position": start.String()}).Debug("Vehicle added")
}

// RemoveVehicle releases everything the vehicle holds and forgets it.
func (e *Engine) RemoveVehicle(id roadnet.VehicleID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.vehicles[id]
	if !ok {
		return fmt.Errorf("remove vehicle %s: %w", id, ErrUnknownVehicle)
	}
	v.Release()
	delete(e.vehicles, id)
	e.order = slices.DeleteFunc(e.order, func(o roadnet.VehicleID) bool { return o == id })
	log.WithField("vehicle", id).Debug("Vehicle removed")
	return nil
}

// Step ticks every vehicle once and returns the resulting frame.
func (e *Engine) Step() models.Frame {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tick++
	for _, id := range e.order {
		e.vehicles[id].Tick(e.opts.Delta)
	}

	frame := models.Frame{
		RunID:     e.opts.RunID,
		Tick:      e.tick,
		Timestamp: time.Now(),
		Vehicles:  e.snapshots(),
		Trips:     e.pending,
	}
	e.pending = nil
	return frame
}

func (e *Engine) recordTrip(trip vehicle.Trip) {
	e.trips++
	now := time.Now()
	ticks := trip.FinishedTick - trip.StartedTick
	e.pending = append(e.pending, models.Trip{
		RunID:         e.opts.RunID,
		VehicleID:     string(trip.Vehicle),
		StartRoad:     int(trip.Start.Road),
		StartOffset:   trip.Start.Offset,
		GoalRoad:      int(trip.Goal.Road),
		GoalOffset:    trip.Goal.Offset,
		StartLocation: models.LocationFromVec(e.network.WorldPoint(trip.Start)),
		EndLocation:   models.LocationFromVec(e.network.WorldPoint(trip.Goal)),
		Legs:          trip.Legs,
		Distance:      trip.Distance,
		StartTick:     e.tick - int64(ticks),
		EndTick:       e.tick,
		Duration:      float64(ticks) * e.opts.Delta,
		Status:        models.TripStatusCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (e *Engine) snapshots() []models.Telemetry {
	now := time.Now()
	return lo.Map(e.order, func(id roadnet.VehicleID, _ int) models.Telemetry {
		return e.telemetry(e.vehicles[id].Snapshot(), now)
	})
}

func (e *Engine) telemetry(s vehicle.Snapshot, now time.Time) models.Telemetry {
	return models.Telemetry{
		RunID:        e.opts.RunID,
		VehicleID:    string(s.ID),
		Tick:         e.tick,
		Timestamp:    now,
		Road:         int(s.Position.Road),
		Offset:       s.Position.Offset,
		LaneSide:     s.LaneSide.String(),
		Direction:    s.LaneSide.Direction(),
		Parked:       s.LaneSide.Parked(),
		State:        s.State,
		Location:     models.LocationFromVec(s.World),
		LegsLeft:     s.LegsLeft,
		StalledTicks: s.Stalled,
	}
}

// Vehicles returns the projection of every vehicle.
func (e *Engine) Vehicles() []models.Telemetry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshots()
}

// Vehicle returns the projection of one vehicle.
func (e *Engine) Vehicle(id roadnet.VehicleID) (models.Telemetry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vehicles[id]
	if !ok {
		return models.Telemetry{}, false
	}
	return e.telemetry(v.Snapshot(), time.Now()), true
}

// Stalled lists the vehicles that made no progress for at least threshold
// ticks.
func (e *Engine) Stalled(threshold int) []roadnet.VehicleID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return lo.Filter(e.order, func(id roadnet.VehicleID, _ int) bool {
		return e.vehicles[id].Stalled() >= threshold
	})
}

// CheckReservations verifies that no two spots of different owners in the
// same lane overlap.
func (e *Engine) CheckReservations() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, road := range e.network.Roads() {
		spots := road.Spots()
		for i, a := range spots {
			for _, b := range spots[i+1:] {
				if a.Owner == b.Owner || a.Direction != b.Direction {
					continue
				}
				d := road.ShortestPath(a.Offset, b.Offset).Distance
				if d < a.Radius+b.Radius-geom.Epsilon {
					return fmt.Errorf("%w: road %d lane %+d: %s at %.3f and %s at %.3f are %.3f apart",
						ErrMutualExclusion, road.ID, a.Direction, a.Owner, a.Offset, b.Owner, b.Offset, d)
				}
			}
		}
	}
	return nil
}
