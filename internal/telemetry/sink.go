// Package telemetry delivers engine frames to logs, databases and brokers.
package telemetry

import (
	"context"
	"errors"

	"github.com/ukydev/traffic-sim/internal/models"
)

// Sink consumes engine frames.
type Sink interface {
	Publish(ctx context.Context, frame models.Frame) error
	Close(ctx context.Context) error
}

// Fanout publishes every frame to all of its sinks.
type Fanout []Sink

// Publish hands frame to every sink, even after one of them fails.
func (f Fanout) Publish(ctx context.Context, frame models.Frame) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (f Fanout) Close(ctx context.Context) error {
	var errs []error
	for _, s := range f {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
