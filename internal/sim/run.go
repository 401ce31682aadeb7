package sim

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Run steps the engine every interval until ctx is done, handing each frame
// to publisher. Publishing errors are logged and the run goes on.
func (e *Engine) Run(ctx context.Context, interval time.Duration, publisher Publisher) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithFields(log.Fields{
		"run_id":   e.RunID(),
		"interval": interval,
	}).Info("Simulation started")

	for {
		select {
		case <-ctx.Done():
			log.WithFields(log.Fields{"run_id": e.RunID(), "tick": e.Tick()}).Info("Simulation stopped")
			return nil
		case <-ticker.C:
			e.stepAndPublish(ctx, publisher)
		}
	}
}

// RunTicks steps the engine n times as fast as possible.
func (e *Engine) RunTicks(ctx context.Context, n int, publisher Publisher) error {
	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.stepAndPublish(ctx, publisher)
	}
	return nil
}

func (e *Engine) stepAndPublish(ctx context.Context, publisher Publisher) {
	frame := e.Step()

	if err := e.CheckReservations(); err != nil {
		log.WithError(err).WithField("tick", frame.Tick).Error("Reservation audit failed")
	}
	if e.opts.StallThreshold > 0 {
		for _, t := range frame.Vehicles {
			if t.StalledTicks == e.opts.StallThreshold {
				log.WithFields(log.Fields{
					"vehicle": t.VehicleID,
					"state":   t.State,
					"road":    t.Road,
					"offset":  t.Offset,
				}).Warn("Vehicle stalled")
			}
		}
	}

	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, frame); err != nil {
		log.WithError(err).WithField("tick", frame.Tick).Warn("Failed to publish frame")
	}
}
