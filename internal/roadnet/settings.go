package roadnet

import (
	"errors"
	"fmt"
)

// Settings are the physics constants of intersection negotiation.
type Settings struct {
	// InteractionDistance is where a vehicle starts negotiating a crossing.
	InteractionDistance float64
	// SampleDistance is the step used to measure exit world directions.
	SampleDistance float64
	// EntranceTraversalFactor is the share of InteractionDistance travelled
	// before a transit flips from entering to exiting.
	EntranceTraversalFactor float64
}

// DefaultSettings returns the stock constants.
func DefaultSettings() Settings {
	return Settings{
		InteractionDistance:     2.0,
		SampleDistance:          0.5,
		EntranceTraversalFactor: 0.75,
	}
}

var ErrInvalidSettings = errors.New("invalid network settings")

// Validate rejects non-positive distances and a traversal factor outside (0,1).
func (s Settings) Validate() error {
	switch {
	case s.InteractionDistance <= 0:
		return fmt.Errorf("%w: interaction distance %v", ErrInvalidSettings, s.InteractionDistance)
	case s.SampleDistance <= 0:
		return fmt.Errorf("%w: sample distance %v", ErrInvalidSettings, s.SampleDistance)
	case s.EntranceTraversalFactor <= 0 || s.EntranceTraversalFactor >= 1:
		return fmt.Errorf("%w: entrance traversal factor %v", ErrInvalidSettings, s.EntranceTraversalFactor)
	}
	return nil
}
