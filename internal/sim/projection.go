package sim

import (
	"github.com/samber/lo"
	"github.com/ukydev/traffic-sim/internal/models"
	"github.com/ukydev/traffic-sim/internal/roadnet"
)

// Roads projects every road with its live reservations.
func (e *Engine) Roads() []models.Road {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return lo.Map(e.network.Roads(), func(r *roadnet.Road, _ int) models.Road {
		return models.Road{
			ID:       int(r.ID),
			Name:     r.Name,
			Length:   r.Length(),
			Enclosed: r.IsEnclosed(),
			Intersections: lo.Map(r.Intersections(), func(id roadnet.IntersectionID, _ int) int {
				return int(id)
			}),
			Spots: lo.Map(r.Spots(), func(s roadnet.ReservedSpot, _ int) models.ReservedSpot {
				return models.ReservedSpot{Owner: string(s.Owner), Offset: s.Offset, Radius: s.Radius, Direction: s.Direction}
			}),
		}
	})
}

// Intersections projects every intersection with the vehicles inside it.
func (e *Engine) Intersections() []models.Intersection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return lo.Map(e.network.Intersections(), func(in *roadnet.Intersection, _ int) models.Intersection {
		roads := in.Roads()
		return models.Intersection{
			ID:       int(in.ID),
			Roads:    [2]int{int(roads[0]), int(roads[1])},
			Offsets:  [2]float64{in.OffsetOn(roads[0]), in.OffsetOn(roads[1])},
			Location: models.LocationFromVec(in.Point()),
			Transits: lo.Map(in.Transits(), func(t roadnet.TransitEntry, _ int) models.Transit {
				return models.Transit{
					VehicleID: string(t.Owner),
					Road:      int(t.Position.Road),
					Offset:    t.Position.Offset,
					Entering:  t.Entering,
					Turn:      in.Turn(t.Entrance, t.Exit).String(),
				}
			}),
		}
	})
}
