package roadnet

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Exit is one directional departure option of an intersection: leaving
// along Road in LaneDirection, heading towards WorldDirection.
type Exit struct {
	WorldDirection r3.Vec
	Road           RoadID
	LaneDirection  int
}

// Same reports whether both exits leave along the same road and lane.
func (e Exit) Same(o Exit) bool {
	return e.Road == o.Road && e.LaneDirection == o.LaneDirection
}

func (e Exit) String() string {
	return fmt.Sprintf("road %d (%+d)", e.Road, e.LaneDirection)
}

// Turn classifies an exit relative to an entrance.
type Turn int

const (
	TurnRight Turn = iota
	TurnStraight
	TurnLeft
	TurnBack
)

func (t Turn) String() string {
	switch t {
	case TurnRight:
		return "right"
	case TurnStraight:
		return "straight"
	case TurnLeft:
		return "left"
	default:
		return "back"
	}
}

// Intersection joins exactly two roads at one offset on each.
type Intersection struct {
	ID IntersectionID

	roads    [2]*Road
	offsets  [2]float64
	point    r3.Vec
	exits    []Exit
	entries  []*transitEntry
	settings Settings
}

func newIntersection(id IntersectionID, a *Road, offsetA float64, b *Road, offsetB float64, settings Settings) (*Intersection, error) {
	if a.ID == b.ID {
		return nil, fmt.Errorf("%w: road %q", ErrSelfIntersection, a.Name)
	}
	in := &Intersection{
		ID:       id,
		roads:    [2]*Road{a, b},
		offsets:  [2]float64{a.normalize(offsetA), b.normalize(offsetB)},
		point:    a.PointAt(offsetA),
		settings: settings,
	}

	var unsampled []Exit
	for i, road := range in.roads {
		start := in.offsets[i]
		startPoint := road.PointAt(start)
		for _, direction := range []int{-1, 1} {
			moved, ok := road.MoveBy(start, settings.SampleDistance, direction)
			if !ok {
				unsampled = append(unsampled, Exit{Road: road.ID, LaneDirection: direction})
				continue
			}
			in.exits = append(in.exits, Exit{
				WorldDirection: geom.Direction(startPoint, road.PointAt(moved)),
				Road:           road.ID,
				LaneDirection:  direction,
			})
		}
	}

	// A dead end cannot be sampled; it is assumed to point away from its counterpart.
	for _, exit := range unsampled {
		opposite, ok := lo.Find(in.exits, func(e Exit) bool { return e.Road == exit.Road })
		if !ok {
			return nil, fmt.Errorf("%w: road %d at intersection %d", ErrDeadEndBothWays, exit.Road, id)
		}
		log.WithFields(log.Fields{
			"intersection": id,
			"exit":         exit.String(),
		}).Debug("Exit could not be sampled, assuming the opposite of its counterpart")
		exit.WorldDirection = r3.Scale(-1, opposite.WorldDirection)
		in.exits = append(in.exits, exit)
	}
	return in, nil
}

func (in *Intersection) String() string {
	return fmt.Sprintf("[%s(%.3f) x %s(%.3f)]", in.roads[0].Name, in.offsets[0], in.roads[1].Name, in.offsets[1])
}

func (in *Intersection) index(road RoadID) int {
	for i, r := range in.roads {
		if r.ID == road {
			return i
		}
	}
	panic(unknownRoadf("intersection %d does not connect road %d", in.ID, road))
}

// Connects reports whether road is one of the two joined roads.
func (in *Intersection) Connects(road RoadID) bool {
	return in.roads[0].ID == road || in.roads[1].ID == road
}

// Roads returns the two joined roads.
func (in *Intersection) Roads() [2]RoadID {
	return [2]RoadID{in.roads[0].ID, in.roads[1].ID}
}

// OffsetOn returns the intersection's offset on road. Unknown roads panic.
func (in *Intersection) OffsetOn(road RoadID) float64 {
	return in.offsets[in.index(road)]
}

// PositionOn returns the intersection as a position on road.
func (in *Intersection) PositionOn(road RoadID) Position {
	return Position{Road: road, Offset: in.OffsetOn(road)}
}

// Opposite returns the road joined with road.
func (in *Intersection) Opposite(road RoadID) RoadID {
	return in.roads[1-in.index(road)].ID
}

// Point returns the world point of the crossing.
func (in *Intersection) Point() r3.Vec { return in.point }

// Exits returns a copy of the four exits.
func (in *Intersection) Exits() []Exit {
	return append([]Exit(nil), in.exits...)
}

// Exit looks up the exit leaving along road in direction.
func (in *Intersection) Exit(road RoadID, direction int) (Exit, error) {
	exit, ok := lo.Find(in.exits, func(e Exit) bool { return e.Road == road && e.LaneDirection == direction })
	if !ok {
		return Exit{}, fmt.Errorf("%w: road %d direction %d at intersection %d", ErrUnknownExit, road, direction, in.ID)
	}
	return exit, nil
}

func (in *Intersection) mustExit(road RoadID, direction int) Exit {
	exit, err := in.Exit(road, direction)
	if err != nil {
		panic(err)
	}
	return exit
}

// Classify orders the other three exits by counter-clockwise angle from the
// entrance around the up axis: right, straight, left.
func (in *Intersection) Classify(entrance Exit) (right, straight, left Exit) {
	others := lo.Reject(in.exits, func(e Exit, _ int) bool { return e.Same(entrance) })
	slices.SortStableFunc(others, func(a, b Exit) int {
		angleA := geom.PositiveAngle(entrance.WorldDirection, a.WorldDirection, geom.Up)
		angleB := geom.PositiveAngle(entrance.WorldDirection, b.WorldDirection, geom.Up)
		switch {
		case angleA < angleB:
			return -1
		case angleA > angleB:
			return 1
		default:
			return 0
		}
	})
	return others[0], others[1], others[2]
}

// Turn classifies exit relative to entrance.
func (in *Intersection) Turn(entrance, exit Exit) Turn {
	right, straight, left := in.Classify(entrance)
	switch {
	case exit.Same(right):
		return TurnRight
	case exit.Same(straight):
		return TurnStraight
	case exit.Same(left):
		return TurnLeft
	default:
		return TurnBack
	}
}
