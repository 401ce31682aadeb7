package models

// SpawnRequest asks the engine for a new vehicle. Without a road the vehicle
// is parked at a random position.
type SpawnRequest struct {
	Road   *int     `json:"road,omitempty"`
	Offset *float64 `json:"offset,omitempty"`
}

// SpawnResponse identifies the spawned vehicle.
type SpawnResponse struct {
	ID        string    `json:"id"`
	Telemetry Telemetry `json:"telemetry"`
}
