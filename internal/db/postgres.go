package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ukydev/traffic-sim/internal/models"
	"github.com/ukydev/traffic-sim/internal/platform/obs"
)

var errNilDB = errors.New("postgres store: db is nil")

// OpenPostgres opens a pooled connection through the pgx driver and pings it.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open postgres: verify connection: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS vehicle_telemetry (
	run_id        TEXT             NOT NULL,
	vehicle_id    TEXT             NOT NULL,
	tick          BIGINT           NOT NULL,
	recorded_at   TIMESTAMPTZ      NOT NULL,
	road          INTEGER          NOT NULL,
	road_offset   DOUBLE PRECISION NOT NULL,
	lane_side     TEXT             NOT NULL,
	state         TEXT             NOT NULL,
	x             DOUBLE PRECISION NOT NULL,
	y             DOUBLE PRECISION NOT NULL,
	z             DOUBLE PRECISION NOT NULL,
	legs_left     INTEGER          NOT NULL,
	stalled_ticks INTEGER          NOT NULL,
	PRIMARY KEY (run_id, vehicle_id, tick)
);

CREATE TABLE IF NOT EXISTS trips (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT             NOT NULL,
	vehicle_id  TEXT             NOT NULL,
	start_road  INTEGER          NOT NULL,
	start_offset DOUBLE PRECISION NOT NULL,
	goal_road   INTEGER          NOT NULL,
	goal_offset DOUBLE PRECISION NOT NULL,
	legs        INTEGER          NOT NULL,
	distance    DOUBLE PRECISION NOT NULL,
	start_tick  BIGINT           NOT NULL,
	end_tick    BIGINT           NOT NULL,
	duration    DOUBLE PRECISION NOT NULL,
	status      TEXT             NOT NULL,
	created_at  TIMESTAMPTZ      NOT NULL
);

CREATE INDEX IF NOT EXISTS trips_run_idx ON trips (run_id, end_tick DESC);
`

// PostgresStore keeps telemetry and trips in PostgreSQL.
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore wraps an open database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// InitSchema creates the tables when they do not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) (err error) {
	defer obs.Time(ctx, "postgres.InitSchema")(&err)

	if s.DB == nil {
		return errNilDB
	}
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// InsertTelemetryBatch stores one tick of telemetry in a single transaction.
func (s *PostgresStore) InsertTelemetryBatch(ctx context.Context, batch []models.Telemetry) (err error) {
	defer obs.Time(ctx, "postgres.InsertTelemetryBatch")(&err)

	if s.DB == nil {
		return errNilDB
	}
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert telemetry: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO vehicle_telemetry
		(run_id, vehicle_id, tick, recorded_at, road, road_offset, lane_side, state, x, y, z, legs_left, stalled_ticks)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (run_id, vehicle_id, tick) DO NOTHING;
	`)
	if err != nil {
		return fmt.Errorf("insert telemetry: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range batch {
		if _, err := stmt.ExecContext(ctx,
			t.RunID, t.VehicleID, t.Tick, t.Timestamp, t.Road, t.Offset, t.LaneSide, t.State,
			t.Location.X, t.Location.Y, t.Location.Z, t.LegsLeft, t.StalledTicks,
		); err != nil {
			return fmt.Errorf("insert telemetry: vehicle %s: %w", t.VehicleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert telemetry: db commit: %w", err)
	}
	return nil
}

// InsertTrip stores a finished trip.
func (s *PostgresStore) InsertTrip(ctx context.Context, trip models.Trip) (err error) {
	defer obs.Time(ctx, "postgres.InsertTrip")(&err)

	if s.DB == nil {
		return errNilDB
	}
	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO trips
		(run_id, vehicle_id, start_road, start_offset, goal_road, goal_offset, legs, distance, start_tick, end_tick, duration, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`,
		trip.RunID, trip.VehicleID, trip.StartRoad, trip.StartOffset, trip.GoalRoad, trip.GoalOffset,
		trip.Legs, trip.Distance, trip.StartTick, trip.EndTick, trip.Duration, trip.Status, trip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// ListTrips returns the latest trips of a run.
func (s *PostgresStore) ListTrips(ctx context.Context, runID string, limit int) (_ []models.Trip, err error) {
	defer obs.Time(ctx, "postgres.ListTrips")(&err)

	if s.DB == nil {
		return nil, errNilDB
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT run_id, vehicle_id, start_road, start_offset, goal_road, goal_offset, legs, distance, start_tick, end_tick, duration, status, created_at
	FROM trips
	WHERE run_id = $1
	ORDER BY end_tick DESC
	LIMIT $2;
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("list trips: query: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		if err := rows.Scan(&t.RunID, &t.VehicleID, &t.StartRoad, &t.StartOffset, &t.GoalRoad, &t.GoalOffset,
			&t.Legs, &t.Distance, &t.StartTick, &t.EndTick, &t.Duration, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("list trips: scan rows: %w", err)
		}
		t.UpdatedAt = t.CreatedAt
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trips: row iteration: %w", err)
	}
	return trips, nil
}
