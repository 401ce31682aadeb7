package roadnet

import (
	"fmt"
	"math/rand/v2"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// randomPositionAttempts bounds the rejection sampling of RandomPosition.
const randomPositionAttempts = 64

// Network is the arena owning every road and intersection. Roads and
// intersections refer to each other by ID only.
type Network struct {
	settings      Settings
	roads         []*Road
	intersections []*Intersection
}

// NewNetwork creates an empty network.
func NewNetwork(settings Settings) *Network {
	return &Network{settings: settings}
}

// Settings returns the network's negotiation constants.
func (n *Network) Settings() Settings { return n.settings }

// AddRoad appends a road along curve.
func (n *Network) AddRoad(name string, curve Curve) *Road {
	road := newRoad(RoadID(len(n.roads)), name, curve)
	n.roads = append(n.roads, road)
	return road
}

// LookupRoad returns the road with id, if any.
func (n *Network) LookupRoad(id RoadID) (*Road, bool) {
	if id < 0 || int(id) >= len(n.roads) {
		return nil, false
	}
	return n.roads[id], true
}

// Road returns the road with id. An unknown id is a programming error.
func (n *Network) Road(id RoadID) *Road {
	road, ok := n.LookupRoad(id)
	if !ok {
		panic(unknownRoadf("road %d", id))
	}
	return road
}

// RoadByName finds a road by its name.
func (n *Network) RoadByName(name string) (*Road, bool) {
	return lo.Find(n.roads, func(r *Road) bool { return r.Name == name })
}

// Roads returns every road in ID order.
func (n *Network) Roads() []*Road {
	return append([]*Road(nil), n.roads...)
}

// LookupIntersection returns the intersection with id, if any.
func (n *Network) LookupIntersection(id IntersectionID) (*Intersection, bool) {
	if id < 0 || int(id) >= len(n.intersections) {
		return nil, false
	}
	return n.intersections[id], true
}

// Intersection returns the intersection with id. An unknown id panics.
func (n *Network) Intersection(id IntersectionID) *Intersection {
	in, ok := n.LookupIntersection(id)
	if !ok {
		panic(fmt.Sprintf("unknown intersection %d", id))
	}
	return in
}

// Intersections returns every intersection in ID order.
func (n *Network) Intersections() []*Intersection {
	return append([]*Intersection(nil), n.intersections...)
}

// IntersectionsOn returns the intersections touching road.
func (n *Network) IntersectionsOn(road RoadID) []*Intersection {
	return lo.Map(n.Road(road).intersections, func(id IntersectionID, _ int) *Intersection {
		return n.intersections[id]
	})
}

// AddIntersection joins road a at offsetA with road b at offsetB.
func (n *Network) AddIntersection(a RoadID, offsetA float64, b RoadID, offsetB float64) (*Intersection, error) {
	roadA, ok := n.LookupRoad(a)
	if !ok {
		return nil, unknownRoadf("intersection on road %d", a)
	}
	roadB, ok := n.LookupRoad(b)
	if !ok {
		return nil, unknownRoadf("intersection on road %d", b)
	}

	in, err := newIntersection(IntersectionID(len(n.intersections)), roadA, offsetA, roadB, offsetB, n.settings)
	if err != nil {
		return nil, err
	}
	n.intersections = append(n.intersections, in)
	roadA.intersections = append(roadA.intersections, in.ID)
	roadB.intersections = append(roadB.intersections, in.ID)
	return in, nil
}

// Connect discovers the crossings of every pair of roads with finder and
// turns each of them into an intersection.
func (n *Network) Connect(finder CrossingFinder) error {
	for i, a := range n.roads {
		for _, b := range n.roads[i+1:] {
			for _, c := range finder.Crossings(a.curve, b.curve) {
				in, err := n.AddIntersection(a.ID, c.OffsetA, b.ID, c.OffsetB)
				if err != nil {
					return fmt.Errorf("connect %q and %q: %w", a.Name, b.Name, err)
				}
				log.WithFields(log.Fields{
					"intersection": in.ID,
					"roads":        in.String(),
				}).Debug("Intersection discovered")
			}
		}
	}
	return nil
}

// ShortestPath is Road.ShortestPath between two positions of the same road.
func (n *Network) ShortestPath(from, to Position) SingleRoadPath {
	if from.Road != to.Road {
		panic(unknownRoadf("path from road %d to road %d", from.Road, to.Road))
	}
	return n.Road(from.Road).ShortestPath(from.Offset, to.Offset)
}

// PathWithSetDirection is Road.PathWithSetDirection between two positions.
func (n *Network) PathWithSetDirection(from, to Position, direction int) (SingleRoadPath, bool) {
	if from.Road != to.Road {
		panic(unknownRoadf("path from road %d to road %d", from.Road, to.Road))
	}
	return n.Road(from.Road).PathWithSetDirection(from.Offset, to.Offset, direction)
}

// Move moves a position along its road; ok is false past an open road's end.
func (n *Network) Move(p Position, distance float64, direction int) (Position, bool) {
	offset, ok := n.Road(p.Road).MoveBy(p.Offset, distance, direction)
	if !ok {
		return Position{}, false
	}
	return Position{Road: p.Road, Offset: offset}, true
}

// MoveCapped moves a position, clamping at open road ends.
func (n *Network) MoveCapped(p Position, distance float64, direction int) Position {
	return Position{Road: p.Road, Offset: n.Road(p.Road).MoveByCapped(p.Offset, distance, direction)}
}

// MoveSpot returns spot moved along its lane.
func (n *Network) MoveSpot(spot ReservedSpot, distance float64) (ReservedSpot, bool) {
	moved, ok := n.Move(spot.Position(), distance, spot.Direction)
	if !ok {
		return ReservedSpot{}, false
	}
	spot.Offset = moved.Offset
	return spot, true
}

// CanBeClaimed checks spot against its road's reservations.
func (n *Network) CanBeClaimed(spot ReservedSpot) bool {
	return n.Road(spot.Road).CanBeClaimed(spot)
}

// RegisterClaim registers spot on its road.
func (n *Network) RegisterClaim(spot ReservedSpot, evictPrevious bool) {
	n.Road(spot.Road).RegisterClaim(spot, evictPrevious)
}

// UnregisterClaim removes spot from its road.
func (n *Network) UnregisterClaim(spot ReservedSpot) {
	n.Road(spot.Road).UnregisterClaim(spot)
}

// Release drops everything owner holds: spots on every road and any transit
// entry. It returns the number of spots released.
func (n *Network) Release(owner VehicleID) int {
	for _, in := range n.intersections {
		in.Abandon(owner)
	}
	return lo.SumBy(n.roads, func(r *Road) int { return r.ReleaseOwner(owner) })
}

// WorldPoint resolves a position to world space.
func (n *Network) WorldPoint(p Position) r3.Vec {
	return n.Road(p.Road).PointAt(p.Offset)
}

// NearestIntersection returns the closest intersection on p's road and its
// distance along the road.
func (n *Network) NearestIntersection(p Position) (*Intersection, float64, bool) {
	road := n.Road(p.Road)
	var (
		nearest  *Intersection
		distance float64
	)
	for _, in := range n.IntersectionsOn(p.Road) {
		d := road.ShortestPath(p.Offset, in.OffsetOn(p.Road)).Distance
		if nearest == nil || d < distance {
			nearest, distance = in, d
		}
	}
	return nearest, distance, nearest != nil
}

// RandomPosition picks a uniformly random road and offset, rejecting
// candidates within the interaction distance of an intersection. It gives up
// after a bounded number of attempts.
func (n *Network) RandomPosition(rng *rand.Rand) (Position, bool) {
	if len(n.roads) == 0 {
		return Position{}, false
	}
	for range randomPositionAttempts {
		road := n.roads[rng.IntN(len(n.roads))]
		p := road.Position(rng.Float64() * road.length)
		if _, d, ok := n.NearestIntersection(p); ok && d <= n.settings.InteractionDistance {
			continue
		}
		return p, true
	}
	return Position{}, false
}
