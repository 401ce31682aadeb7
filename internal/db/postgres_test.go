package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/traffic-sim/internal/models"
)

func TestPostgresStore_NilDB(t *testing.T) {
	store := NewPostgresStore(nil)
	ctx := context.Background()

	assert.ErrorIs(t, store.InitSchema(ctx), errNilDB)
	assert.ErrorIs(t, store.InsertTelemetryBatch(ctx, []models.Telemetry{{}}), errNilDB)
	assert.ErrorIs(t, store.InsertTrip(ctx, models.Trip{}), errNilDB)
	_, err := store.ListTrips(ctx, "run", 10)
	assert.ErrorIs(t, err, errNilDB)
}

func TestPostgresStore_Integration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := OpenPostgres(ctx, url)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer conn.Close()

	store := NewPostgresStore(conn)
	require.NoError(t, store.InitSchema(ctx))

	runID := "it-" + time.Now().Format("150405.000000")
	now := time.Now().UTC()
	batch := []models.Telemetry{
		{RunID: runID, VehicleID: "a", Tick: 1, Timestamp: now, State: "moving", LaneSide: "driving_positive"},
		{RunID: runID, VehicleID: "b", Tick: 1, Timestamp: now, State: "moving", LaneSide: "driving_negative"},
	}
	require.NoError(t, store.InsertTelemetryBatch(ctx, batch))
	require.NoError(t, store.InsertTelemetryBatch(ctx, batch), "duplicate ticks are ignored")

	require.NoError(t, store.InsertTrip(ctx, models.Trip{RunID: runID, VehicleID: "a", EndTick: 3, Status: models.TripStatusCompleted, CreatedAt: now}))
	require.NoError(t, store.InsertTrip(ctx, models.Trip{RunID: runID, VehicleID: "b", EndTick: 8, Status: models.TripStatusCompleted, CreatedAt: now}))

	trips, err := store.ListTrips(ctx, runID, 0)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "b", trips[0].VehicleID)

	var count int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT count(*) FROM vehicle_telemetry WHERE run_id = $1`, runID).Scan(&count))
	assert.Equal(t, 2, count)
}
