// Command simulator runs the traffic engine headless for a fixed number of
// ticks and reports how the fleet did.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/app"
	"github.com/ukydev/traffic-sim/internal/config"
	"github.com/ukydev/traffic-sim/internal/models"
	"github.com/ukydev/traffic-sim/internal/roadnet"
	"github.com/ukydev/traffic-sim/internal/sim"
)

// Summary is the outcome of a batch run.
type Summary struct {
	RunID    string
	Ticks    int64
	Vehicles int
	Trips    int
	States   map[string]int
	Stalled  []string
	AuditErr error
}

func summarize(engine *sim.Engine, stallThreshold int) Summary {
	vehicles := engine.Vehicles()
	s := Summary{
		RunID:    engine.RunID(),
		Ticks:    engine.Tick(),
		Vehicles: len(vehicles),
		Trips:    engine.TripsCompleted(),
		States:   lo.CountValuesBy(vehicles, func(t models.Telemetry) string { return t.State }),
		AuditErr: engine.CheckReservations(),
	}
	if stallThreshold > 0 {
		s.Stalled = lo.Map(engine.Stalled(stallThreshold), func(id roadnet.VehicleID, _ int) string { return string(id) })
	}
	return s
}

func (s Summary) log() {
	entry := log.WithFields(log.Fields{
		"run_id":   s.RunID,
		"ticks":    s.Ticks,
		"vehicles": s.Vehicles,
		"trips":    s.Trips,
		"states":   s.States,
		"stalled":  len(s.Stalled),
	})
	if s.AuditErr != nil {
		entry.WithError(s.AuditErr).Error("Batch run finished with overlapping reservations")
		return
	}
	entry.Info("Batch run finished")
	for _, id := range s.Stalled {
		log.WithField("vehicle", id).Warn("Vehicle still stalled at end of run")
	}
}

// batch runs cfg for ticks steps, publishing to the configured sinks.
func batch(ctx context.Context, cfg config.Config, ticks int) (Summary, error) {
	engine, err := app.NewEngine(cfg)
	if err != nil {
		return Summary{}, err
	}
	sinks, err := app.OpenSinks(ctx, cfg)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if err := sinks.Close(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to close telemetry sinks")
		}
	}()

	log.WithFields(log.Fields{"run_id": engine.RunID(), "ticks": ticks}).Info("Starting batch run")
	err = engine.RunTicks(ctx, ticks, sinks)
	return summarize(engine, cfg.StallThreshold), err
}

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := cfg.ConfigureLogging(); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	ticks := 1000
	if v := os.Getenv("SIM_TICKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ticks = n
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := batch(ctx, cfg, ticks)
	if err != nil && summary.RunID == "" {
		log.WithError(err).Fatal("Batch run failed")
	}
	if err != nil {
		log.WithError(err).Warn("Batch run interrupted")
	}
	summary.log()
	if summary.AuditErr != nil {
		os.Exit(1)
	}
}
