package clock

import "time"

// Clock is the source of time for services; tests swap in mocks.MockClock
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// SystemClock reads the wall clock
type SystemClock struct{}

// New creates a new SystemClock
func New() *SystemClock {
	return &SystemClock{}
}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t
func (SystemClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
