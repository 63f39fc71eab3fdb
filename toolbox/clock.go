// Package toolbox collects the small hardware/host abstractions (clock,
// locking, tick source, allocation policy) the rest of the runtime is built
// against, so the same scheduler and mailbox code can run hosted (backed by
// goroutines and real timers) or on a bare-metal/manual-tick target driven
// entirely by an external caller.
package toolbox

import "time"

// Instant is an opaque point in time as seen by a Clock. It is comparable
// and orderable via Before/Sub but intentionally does not expose a wall-
// clock representation, since a ManualClock's Instant has no relationship
// to wall time at all.
type Instant struct {
	ticks int64
	res   time.Duration
}

// Before reports whether i happened before other.
func (i Instant) Before(other Instant) bool { return i.ticks < other.ticks }

// Sub returns the duration between two instants from the same Clock.
func (i Instant) Sub(other Instant) time.Duration {
	return time.Duration(i.ticks-other.ticks) * i.res
}

// Clock abstracts the passage of time for the scheduler and mailbox
// diagnostics.
type Clock interface {
	Now() Instant
}

// SystemClock is a Clock backed by time.Now(), with nanosecond resolution.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() Instant {
	return Instant{ticks: time.Now().UnixNano(), res: time.Nanosecond}
}

// ManualClock is a Clock a test or bare-metal driver advances explicitly.
// It never reads the real wall clock.
type ManualClock struct {
	ticks int64
	res   time.Duration
}

// NewManualClock creates a ManualClock starting at tick 0 with the given
// resolution (the duration one Advance(1) represents).
func NewManualClock(resolution time.Duration) *ManualClock {
	return &ManualClock{res: resolution}
}

// Now implements Clock.
func (c *ManualClock) Now() Instant {
	return Instant{ticks: c.ticks, res: c.res}
}

// Advance moves the clock forward by n ticks.
func (c *ManualClock) Advance(n int64) {
	c.ticks += n
}
