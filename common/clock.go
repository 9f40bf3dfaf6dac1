package common

import "time"

// Clock is the monotonic time source used by the frame pacer and the simulation clock.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time
}

type systemClock struct{}

// SystemClock returns a Clock backed by time.Now, which carries a monotonic reading.
//
// Returns:
//   - Clock: the system clock
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}
