package roadnet

import (
	"errors"
	"fmt"
)

var (
	ErrSelfIntersection = errors.New("road cannot intersect itself")
	ErrUnknownRoad      = errors.New("unknown road")
	ErrUnknownExit      = errors.New("unknown intersection exit")
	ErrDeadEndBothWays  = errors.New("road is too short to sample in either direction")
	ErrNotTransiting    = errors.New("vehicle is not transiting the intersection")
)

func unknownRoadf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnknownRoad}, args...)...)
}
