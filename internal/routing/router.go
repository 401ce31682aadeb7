// Package routing finds leg sequences between road positions.
package routing

import (
	"math"
	"slices"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/geom"
	"github.com/ukydev/traffic-sim/internal/roadnet"
)

// Router searches paths over one network.
type Router struct {
	network *roadnet.Network
}

// NewRouter creates a router for network.
func NewRouter(network *roadnet.Network) *Router {
	return &Router{network: network}
}

type search struct {
	network *roadnet.Network
	goal    roadnet.Position
	best    map[roadnet.PositionKey]float64
}

// FindShortestPath returns the raw legs from start to goal, one per road
// hop. The search is a depth-first relaxation: a position is explored again
// only when reached with a strictly shorter travelled distance, which bounds
// it on cyclic networks.
func (r *Router) FindShortestPath(start, goal roadnet.Position) ([]Leg, bool) {
	s := &search{
		network: r.network,
		goal:    goal,
		best:    make(map[roadnet.PositionKey]float64),
	}
	legs, _, ok := s.from(start, roadnet.NoIntersection, 0)
	if !ok {
		log.WithFields(log.Fields{"start": start.String(), "goal": goal.String()}).Debug("No path found")
	}
	return legs, ok
}

// from explores onwards from start, having arrived through the intersection
// via. Hopping straight back through via is never shorter and would force a
// turn back, so it is skipped.
func (s *search) from(start roadnet.Position, via roadnet.IntersectionID, travelled float64) ([]Leg, float64, bool) {
	if start.Road == s.goal.Road {
		path := s.network.ShortestPath(start, s.goal)
		return []Leg{{
			Start:        start,
			End:          s.goal,
			Direction:    path.Direction,
			Distance:     path.Distance,
			Intersection: roadnet.NoIntersection,
		}}, path.Distance, true
	}

	key := start.Key()
	if previous, seen := s.best[key]; seen && travelled >= previous-geom.Epsilon {
		return nil, 0, false
	}
	s.best[key] = travelled

	var (
		bestLegs  []Leg
		bestTotal = math.Inf(1)
	)
	for _, in := range s.network.IntersectionsOn(start.Road) {
		if in.ID == via {
			continue
		}
		at := in.PositionOn(start.Road)
		hop := s.network.ShortestPath(start, at)
		rest, restDistance, ok := s.from(in.PositionOn(in.Opposite(start.Road)), in.ID, travelled+hop.Distance)
		if !ok {
			continue
		}
		if total := hop.Distance + restDistance; total < bestTotal {
			bestTotal = total
			bestLegs = append([]Leg{{
				Start:        start,
				End:          at,
				Direction:    hop.Direction,
				Distance:     hop.Distance,
				Intersection: in.ID,
			}}, rest...)
		}
	}
	if bestLegs == nil {
		return nil, 0, false
	}
	return bestLegs, bestTotal, true
}

type waypoint struct {
	intersection roadnet.IntersectionID
	distance     float64
}

// SplitPathByIntersections cuts every leg at each intersection it passes on
// its road, so that each resulting leg ends at the next crossing to negotiate.
// The terminal intersection of a leg is kept as the terminal of its last
// piece. Zero-direction legs go nowhere and are dropped.
func (r *Router) SplitPathByIntersections(legs []Leg) []Leg {
	var split []Leg
	for _, leg := range legs {
		if leg.Direction == 0 {
			continue
		}
		road := leg.Road()

		passed := lo.FilterMap(r.network.IntersectionsOn(road), func(in *roadnet.Intersection, _ int) (waypoint, bool) {
			if in.ID == leg.Intersection {
				return waypoint{}, false
			}
			path, ok := r.network.PathWithSetDirection(leg.Start, in.PositionOn(road), leg.Direction)
			if !ok || path.Distance <= geom.Epsilon || path.Distance >= leg.Distance-geom.Epsilon {
				return waypoint{}, false
			}
			return waypoint{intersection: in.ID, distance: path.Distance}, true
		})
		slices.SortFunc(passed, func(a, b waypoint) int {
			switch {
			case a.distance < b.distance:
				return -1
			case a.distance > b.distance:
				return 1
			default:
				return 0
			}
		})

		current, covered := leg.Start, 0.0
		for _, w := range passed {
			at := r.network.Intersection(w.intersection).PositionOn(road)
			split = append(split, Leg{
				Start:        current,
				End:          at,
				Direction:    leg.Direction,
				Distance:     w.distance - covered,
				Intersection: w.intersection,
			})
			current, covered = at, w.distance
		}
		split = append(split, Leg{
			Start:        current,
			End:          leg.End,
			Direction:    leg.Direction,
			Distance:     leg.Distance - covered,
			Intersection: leg.Intersection,
		})
	}
	return split
}

// FindShortestPathTo finds the path and splits it so every leg boundary is
// exactly one intersection. A trip to the start itself is an empty path.
func (r *Router) FindShortestPathTo(start, goal roadnet.Position) ([]Leg, bool) {
	legs, ok := r.FindShortestPath(start, goal)
	if !ok {
		return nil, false
	}
	if len(legs) == 1 && legs[0].Direction == 0 {
		return nil, true
	}
	return r.SplitPathByIntersections(legs), true
}
