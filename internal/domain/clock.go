package domain

import "time"

// Clock abstracts wall-clock time so sweeps and guards are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
