package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripStatusCompleted marks a trip whose vehicle reached the goal.
const TripStatusCompleted = "completed"

// Trip is a finished journey of one vehicle from a parking spot to its goal.
type Trip struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RunID         string             `json:"run_id" bson:"run_id"`
	VehicleID     string             `json:"vehicle_id" bson:"vehicle_id"`
	StartRoad     int                `json:"start_road" bson:"start_road"`
	StartOffset   float64            `json:"start_offset" bson:"start_offset"`
	GoalRoad      int                `json:"goal_road" bson:"goal_road"`
	GoalOffset    float64            `json:"goal_offset" bson:"goal_offset"`
	StartLocation Location           `json:"start_location" bson:"start_location"`
	EndLocation   Location           `json:"end_location" bson:"end_location"`
	Legs          int                `json:"legs" bson:"legs"`
	Distance      float64            `json:"distance" bson:"distance"` // in road length units
	StartTick     int64              `json:"start_tick" bson:"start_tick"`
	EndTick       int64              `json:"end_tick" bson:"end_tick"`
	Duration      float64            `json:"duration" bson:"duration"` // in simulated time units
	Status        string             `json:"status" bson:"status"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}
