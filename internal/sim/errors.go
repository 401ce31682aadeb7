package sim

import "errors"

var (
	ErrUnknownVehicle   = errors.New("unknown vehicle")
	ErrDuplicateVehicle = errors.New("vehicle already exists")
	ErrNoFreePosition   = errors.New("no free position to spawn at")
	ErrInvalidPosition  = errors.New("position is off the network")
	ErrMutualExclusion  = errors.New("reserved spots overlap")
)
