package engine

import "time"

// Clock supplies the engine's notion of "now". The on-time delivery rule and
// the acknowledge action both compare against the current time, so tests
// substitute a fixed clock to make rule outcomes deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
