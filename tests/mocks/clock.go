package mocks

import "time"

// FakeClock is a settable clock for deterministic sweep and guard tests.
type FakeClock struct {
	Time time.Time
}

func (c *FakeClock) Now() time.Time { return c.Time }

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) { c.Time = c.Time.Add(d) }
