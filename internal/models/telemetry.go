package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Telemetry is the per-tick projection of one vehicle.
type Telemetry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RunID        string             `bson:"run_id" json:"run_id"`
	VehicleID    string             `bson:"vehicle_id" json:"vehicle_id"`
	Tick         int64              `bson:"tick" json:"tick"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
	Road         int                `bson:"road" json:"road"`
	Offset       float64            `bson:"offset" json:"offset"`
	LaneSide     string             `bson:"lane_side" json:"lane_side"`
	Direction    int                `bson:"direction" json:"direction"`
	Parked       bool               `bson:"parked" json:"parked"`
	State        string             `bson:"state" json:"state"`
	Location     Location           `bson:"location" json:"location"`
	LegsLeft     int                `bson:"legs_left" json:"legs_left"`
	StalledTicks int                `bson:"stalled_ticks" json:"stalled_ticks"`
}
