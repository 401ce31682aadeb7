package models

import "time"

// Frame is everything one engine tick produced.
type Frame struct {
	RunID     string      `json:"run_id"`
	Tick      int64       `json:"tick"`
	Timestamp time.Time   `json:"timestamp"`
	Vehicles  []Telemetry `json:"vehicles"`
	Trips     []Trip      `json:"trips,omitempty"`
}
