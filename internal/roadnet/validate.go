package roadnet

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Warning reports two intersections on one road that are closer than the
// interaction distance. Vehicles behave unpredictably between them.
type Warning struct {
	Road     RoadID
	First    IntersectionID
	Second   IntersectionID
	Distance float64
}

func (w Warning) String() string {
	return fmt.Sprintf("intersections %d and %d on road %d are %.3f apart", w.First, w.Second, w.Road, w.Distance)
}

// Validate lists too-close intersection pairs and logs each at warn level.
func (n *Network) Validate() []Warning {
	var warnings []Warning
	for _, road := range n.roads {
		ids := road.intersections
		for i, a := range ids {
			for _, b := range ids[i+1:] {
				d := road.ShortestPath(n.intersections[a].OffsetOn(road.ID), n.intersections[b].OffsetOn(road.ID)).Distance
				if d >= n.settings.InteractionDistance {
					continue
				}
				w := Warning{Road: road.ID, First: a, Second: b, Distance: d}
				log.WithFields(log.Fields{
					"road":     road.Name,
					"first":    a,
					"second":   b,
					"distance": d,
				}).Warn("Intersections are closer than the interaction distance")
				warnings = append(warnings, w)
			}
		}
	}
	return warnings
}
