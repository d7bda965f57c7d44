package repositories

import "time"

// Clock supplies the current time. Injected so token expiry can be tested
// with a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
