package actor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/roasbeef/actorcore/toolbox"
)

// ExecutorHook decides how a Dispatcher's drive loop actually runs once
// onEnqueued wins the Idle->Running transition: synchronously on the
// caller's own goroutine, or deferred to some other tick/thread-pool
// source. A host wiring a dedicated worker pool provides its own ExecutorHook
// (an external collaborator, not built here).
type ExecutorHook interface {
	Execute(d *Dispatcher) error
}

// InlineExecutor runs drive() synchronously on the goroutine that called
// onEnqueued. This is the Dispatcher's default and preserves the teacher's
// synchronous-admin-call semantics: Cell's Suspend/Resume/Watch/etc. observe
// their effect applied before the call returns.
type InlineExecutor struct{}

// Execute implements ExecutorHook.
func (InlineExecutor) Execute(d *Dispatcher) error {
	d.drive()
	return nil
}

// TickExecutor defers drive() until the next tick from Ticks, for hosts that
// want dispatch batched onto a shared tick boundary rather than run on
// whichever goroutine happened to enqueue. A nil Ticks source falls back to
// inline execution.
type TickExecutor struct {
	Ticks toolbox.TickSource
}

// Execute implements ExecutorHook.
func (e TickExecutor) Execute(d *Dispatcher) error {
	if e.Ticks == nil {
		d.drive()
		return nil
	}

	go func() {
		select {
		case <-e.Ticks.Ticks():
			d.drive()
		case <-d.done:
		}
	}()

	return nil
}

// DispatcherConfig parameterizes a Dispatcher's drive loop.
type DispatcherConfig struct {
	// Throughput bounds how many user messages a single drive() call
	// processes before yielding, regardless of how many remain queued. 0
	// means unbounded (drain until empty).
	Throughput int

	// StarvationDeadline, if non-zero, is the maximum time a single
	// drive() call may spend processing before it logs a starvation
	// warning and yields anyway, even mid-throughput-budget.
	StarvationDeadline time.Duration

	// Clock provides Now() for StarvationDeadline tracking. Defaults to
	// toolbox.SystemClock{} if nil.
	Clock toolbox.Clock

	// Executor decides how drive() actually runs once onEnqueued wins
	// the Idle->Running CAS. Defaults to InlineExecutor{} if nil.
	Executor ExecutorHook

	// RunSystem drains all pending system messages, unthrottled, ahead
	// of any user message. Returning an error aborts the current
	// drive() pass (it is treated like a panic from RunUser: recovered,
	// wrapped, and reported via OnPanic).
	RunSystem func() error

	// RunUser processes at most one queued user message and reports
	// whether any work was actually available. It is called up to
	// Throughput times (or until it returns false) per drive() pass.
	RunUser func() (didWork bool, err error)

	// OnPanic, if non-nil, is invoked with the *ActorError a recovered
	// panic (or a RunSystem/RunUser error) was converted to. It is the
	// hook's job to escalate this to whatever supervises the owning
	// cell.
	OnPanic func(*ActorError)

	// HasWork peeks whether anything is queued, without dequeuing. It
	// backs drive's re-check after flipping to Idle, closing the
	// lost-wakeup race where a producer's onEnqueued loses the
	// Idle->Running CAS to a drive() pass that is simultaneously
	// deciding there is nothing left to do. A nil HasWork disables the
	// re-check: drive exits after the first pass finds no more work.
	HasWork func() bool
}

// Dispatcher implements spec C4: a single Idle/Running state machine over a
// mailbox-shaped pair of queues, CAS-guarding against two goroutines driving
// the same queue concurrently while still being safe to enqueue into from
// any number of producer goroutines. It does not own a queue itself; cfg's
// RunSystem/RunUser closures are the caller's bridge to whatever queue
// (Cell's sysQueue, a PolicyMailbox) it is in front of.
type Dispatcher struct {
	cfg DispatcherConfig

	running atomic.Bool
	done    chan struct{}
}

// NewDispatcher creates a Dispatcher in the Idle state, applying defaults for
// any zero-valued cfg fields.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Clock == nil {
		cfg.Clock = toolbox.SystemClock{}
	}
	if cfg.Executor == nil {
		cfg.Executor = InlineExecutor{}
	}
	return &Dispatcher{cfg: cfg, done: make(chan struct{})}
}

// Close releases any goroutine a TickExecutor may have parked waiting for a
// tick that will never come once the owning cell is gone.
func (d *Dispatcher) Close() {
	select {
	case <-d.done:
	default:
		close(d.done)
	}
}

// onEnqueued is called by a producer immediately after adding work to
// whichever queue(s) RunSystem/RunUser drain. It performs the Idle->Running
// CAS and, on winning it, hands off to the configured Executor. A losing CAS
// means some other goroutine is already driving (or about to re-check, see
// drive's re-check below), so this call is a no-op: that goroutine will see
// the new work.
func (d *Dispatcher) onEnqueued() {
	if !d.running.CompareAndSwap(false, true) {
		return
	}

	if err := d.cfg.Executor.Execute(d); err != nil && d.cfg.OnPanic != nil {
		d.cfg.OnPanic(NewActorError(Fatal, err))
	}
}

// drive runs system messages to exhaustion, then up to Throughput user
// messages (or until the queue reports no more work), watching
// StarvationDeadline throughout, before flipping back to Idle. Because a
// producer's onEnqueued may lose the CAS race against a drive() call that is
// about to go Idle, drive re-checks for work after flipping the flag and
// re-wins the CAS rather than risk a lost wakeup (spec.md's dispatcher step
// 5).
func (d *Dispatcher) drive() {
	for {
		d.stepSafely()

		d.running.Store(false)

		// Re-check: a producer's onEnqueued may have lost its CAS race
		// against the Store above finding nothing left to do. Try to
		// reclaim Running; if another goroutine already has it, this
		// pass is done.
		if !d.running.CompareAndSwap(false, true) {
			return
		}
		if d.cfg.HasWork == nil || !d.cfg.HasWork() {
			d.running.Store(false)
			return
		}
	}
}

// stepSafely runs one full batch (all system messages, then up to
// Throughput user messages), recovering from any panic raised by RunSystem
// or RunUser and routing it to OnPanic instead of crashing the driving
// goroutine.
func (d *Dispatcher) stepSafely() {
	defer func() {
		if r := recover(); r != nil && d.cfg.OnPanic != nil {
			d.cfg.OnPanic(NewActorError(
				Fatal, fmt.Errorf("dispatcher: recovered panic: %v", r),
			))
		}
	}()

	if d.cfg.RunSystem != nil {
		if err := d.cfg.RunSystem(); err != nil {
			if d.cfg.OnPanic != nil {
				d.cfg.OnPanic(NewActorError(Fatal, err))
			}
			return
		}
	}

	if d.cfg.RunUser == nil {
		return
	}

	start := d.cfg.Clock.Now()
	processed := 0
	for d.cfg.Throughput <= 0 || processed < d.cfg.Throughput {
		if d.cfg.StarvationDeadline > 0 {
			if d.cfg.Clock.Now().Sub(start) >= d.cfg.StarvationDeadline {
				log.WarnS(context.Background(),
					"Dispatcher exceeded starvation deadline",
					nil, "processed", processed)
				return
			}
		}

		didWork, err := d.cfg.RunUser()
		if err != nil {
			if d.cfg.OnPanic != nil {
				d.cfg.OnPanic(NewActorError(Fatal, err))
			}
			return
		}
		if !didWork {
			return
		}
		processed++
	}
}

// IsRunning reports whether a drive() pass currently owns this dispatcher.
// Intended for diagnostics and tests.
func (d *Dispatcher) IsRunning() bool {
	return d.running.Load()
}
