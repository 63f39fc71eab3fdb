package actor

import (
	"fmt"
	"sync/atomic"
)

// Pid uniquely identifies an actor instance for the lifetime of a process.
// The Incarnation field distinguishes a restarted actor occupying the same
// path from the instance it replaced: two Pids with the same ID but
// different Incarnation never refer to the same running goroutine.
type Pid struct {
	ID          uint64
	Incarnation uint64
}

// String renders the Pid in the form used in logs and dead-letter entries.
func (p Pid) String() string {
	return fmt.Sprintf("actor-%d.%d", p.ID, p.Incarnation)
}

// pidAllocator hands out monotonically increasing Pid IDs for a single
// ActorSystem. Incarnation bumps happen per-path on restart and are tracked
// by the cell that owns that path, not here.
type pidAllocator struct {
	next atomic.Uint64
}

// allocate returns a fresh Pid with Incarnation 0. Callers that restart an actor
// in place reuse the same ID and increment Incarnation themselves.
func (a *pidAllocator) allocate() Pid {
	return Pid{ID: a.next.Add(1)}
}
