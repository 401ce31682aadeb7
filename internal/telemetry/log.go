package telemetry

import (
	"context"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/models"
)

// LogSink logs finished trips and a fleet summary every Every ticks.
type LogSink struct {
	Every int64
}

// Publish logs frame.
func (s LogSink) Publish(_ context.Context, frame models.Frame) error {
	for _, trip := range frame.Trips {
		log.WithFields(log.Fields{
			"vehicle_id": trip.VehicleID,
			"legs":       trip.Legs,
			"distance":   trip.Distance,
			"duration":   trip.Duration,
		}).Info("Trip completed")
	}
	if s.Every <= 0 || frame.Tick%s.Every != 0 {
		return nil
	}

	states := lo.CountValuesBy(frame.Vehicles, func(t models.Telemetry) string { return t.State })
	log.WithFields(log.Fields{
		"run_id":   frame.RunID,
		"tick":     frame.Tick,
		"vehicles": len(frame.Vehicles),
		"states":   states,
		"stalled":  lo.CountBy(frame.Vehicles, func(t models.Telemetry) bool { return t.StalledTicks > 0 }),
	}).Info("Fleet status")
	return nil
}

// Close does nothing.
func (LogSink) Close(context.Context) error { return nil }
