package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/traffic-sim/internal/db"
	"github.com/ukydev/traffic-sim/internal/models"
)

type telemetryWriter interface {
	InsertTelemetryBatch(ctx context.Context, batch []models.Telemetry) error
}

type tripWriter interface {
	InsertTrip(ctx context.Context, trip models.Trip) error
}

// StoreSink writes the vehicles of every Every-th frame and all trips to a
// store.
type StoreSink struct {
	name      string
	telemetry telemetryWriter
	trips     tripWriter
	every     int64
	close     func(ctx context.Context) error
}

// NewMongoSink stores telemetry and trips in two MongoDB collections.
func NewMongoSink(telemetry, trips *db.MongoCollection, every int64, closeFn func(ctx context.Context) error) *StoreSink {
	return &StoreSink{name: "mongo", telemetry: telemetry, trips: trips, every: every, close: closeFn}
}

// NewPostgresSink stores telemetry and trips in PostgreSQL.
func NewPostgresSink(store *db.PostgresStore, every int64) *StoreSink {
	return &StoreSink{
		name:      "postgres",
		telemetry: store,
		trips:     store,
		every:     every,
		close: func(context.Context) error {
			if store.DB == nil {
				return nil
			}
			return store.DB.Close()
		},
	}
}

// Publish writes frame.
func (s *StoreSink) Publish(ctx context.Context, frame models.Frame) error {
	var errs []error
	if s.every <= 1 || frame.Tick%s.every == 0 {
		if err := s.telemetry.InsertTelemetryBatch(ctx, frame.Vehicles); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: tick %d telemetry: %w", s.name, frame.Tick, err))
		}
	}
	for _, trip := range frame.Trips {
		if err := s.trips.InsertTrip(ctx, trip); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: trip of %s: %w", s.name, trip.VehicleID, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the underlying connection.
func (s *StoreSink) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
