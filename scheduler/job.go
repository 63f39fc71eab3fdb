package scheduler

import (
	"sync/atomic"
)

// Command is the unit of work a Wheel fires on a job's deadline. It is
// deliberately minimal (one method) so the actor package can adapt a Tell
// or an arbitrary closure to it without this package importing actor and
// creating a cycle: scheduler sits below actor in the dependency order.
type Command interface {
	Run(info FireInfo)
}

// RunnableCommand adapts a plain closure to Command, ignoring FireInfo.
type RunnableCommand func()

// Run implements Command.
func (r RunnableCommand) Run(FireInfo) { r() }

// FireInfo describes one firing of a scheduled job, including backlog
// coalescing accounting for fixed-rate jobs that fell behind.
type FireInfo struct {
	// Runs is the number of logical firings folded into this callback
	// invocation (1 for a normal on-time fire).
	Runs int
	// MissedRuns is Runs-1: how many additional firings were coalesced
	// away because the consumer fell behind.
	MissedRuns int
	// Mode records which schedule kind produced this firing.
	Mode JobMode
}

// JobMode distinguishes the three schedule kinds a Wheel supports.
type JobMode int

const (
	ModeOnce JobMode = iota
	ModeFixedRate
	ModeFixedDelay
)

// BacklogPolicy bounds how many coalesced runs a single Advance call will
// report for one job. Exceeding it produces a SchedulerWarning in addition
// to the capped FireInfo.
type BacklogPolicy struct {
	BacklogLimit int
}

// DefaultBacklogPolicy caps coalescing at 100 runs per Advance.
func DefaultBacklogPolicy() BacklogPolicy {
	return BacklogPolicy{BacklogLimit: 100}
}

// Handle identifies a scheduled job and allows cancelling it. The zero
// value is not a valid Handle; always use the one returned from a Schedule*
// call.
type Handle struct {
	id        uint64
	cancelled *atomic.Bool
}

// Cancel marks the job cancelled. It is idempotent and safe to call from
// any goroutine; the Wheel skips cancelled slots as tombstones during
// Advance instead of searching for and removing them.
func (h Handle) Cancel() {
	h.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called on this handle.
func (h Handle) Cancelled() bool {
	return h.cancelled.Load()
}

// job is the wheel's internal bookkeeping for one scheduled Command.
type job struct {
	id        uint64
	cancelled *atomic.Bool
	cmd       Command
	mode      JobMode

	// deadlineTick is the tick this job should next fire on.
	deadlineTick uint64
	// periodTicks is 0 for one-shot jobs, otherwise the fixed-rate or
	// fixed-delay interval in ticks.
	periodTicks uint64

	level int
	slot  int
}

func (j *job) handle() Handle {
	return Handle{id: j.id, cancelled: j.cancelled}
}

// nextDeadline computes the next deadlineTick once this job fires at
// actualTick, per its mode: FixedRate advances from the previously
// *scheduled* deadline (catching up if behind), FixedDelay advances from
// the tick it actually fired on.
func (j *job) nextDeadline(actualTick uint64) uint64 {
	switch j.mode {
	case ModeFixedRate:
		return j.deadlineTick + j.periodTicks
	case ModeFixedDelay:
		return actualTick + j.periodTicks
	default:
		return 0
	}
}

var jobIDCounter atomic.Uint64

func allocJobID() uint64 {
	return jobIDCounter.Add(1)
}
