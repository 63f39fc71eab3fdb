package actor

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roasbeef/actorcore/eventstream"
)

// OverflowPolicy controls what a PolicyMailbox does when Send/TrySend is
// called against a full queue.
type OverflowPolicy int

const (
	// DropNewest discards the incoming message, keeping the queue as-is.
	DropNewest OverflowPolicy = iota
	// DropOldest evicts the head of the queue to make room for the
	// incoming message.
	DropOldest
	// Block waits (respecting the caller's context) until room is
	// available, exactly like the teacher's channel-backed mailbox.
	Block
	// Grow lifts the capacity ceiling, accepting the message
	// unconditionally. Intended for bursty but ultimately bounded
	// workloads; callers on constrained targets should prefer Fail.
	Grow
	// Fail rejects the send outright, returning false without mutating
	// the queue.
	Fail
)

// MailboxPressureEvent is published to the configured event stream when the
// queue length crosses WarningThreshold. It re-arms (can fire again) only
// after the length has dropped back below the threshold, so a sustained
// burst produces one event rather than one per message.
type MailboxPressureEvent struct {
	Owner  Pid
	Length int
	Policy OverflowPolicy
}

// PressureSink receives MailboxPressureEvent notifications. actor's
// eventstream.Stream satisfies this with a thin adapter at the call site so
// this package does not need to import eventstream directly and create a
// cycle risk as the two evolve independently.
type PressureSink interface {
	Publish(event any)
}

// PolicyMailboxConfig configures a PolicyMailbox.
type PolicyMailboxConfig struct {
	// Capacity is the nominal queue bound. Under Grow it is only a
	// starting point.
	Capacity int
	// Policy selects overflow behavior once Capacity is reached.
	Policy OverflowPolicy
	// WarningThreshold, if > 0, is the queue length at which a
	// MailboxPressureEvent fires (with hysteresis, see above).
	WarningThreshold int
	// Events, if non-nil, receives MailboxPressureEvent notifications.
	Events PressureSink
	// DeadLetters, if non-nil, records every envelope this mailbox drops
	// on overflow (DropOldest eviction, or DropNewest/Fail rejection)
	// with ReasonOverflow.
	DeadLetters *eventstream.DeadLetterOffice
}

// PolicyMailbox is a Mailbox[M,R] implementation built on a mutex-guarded
// slice rather than a Go channel, so it can support eviction policies
// (DropOldest) that a channel cannot express. It otherwise preserves the
// concurrency contract documented on the Mailbox interface: Send/TrySend may
// be called from any goroutine, Receive/Drain from exactly one.
type PolicyMailbox[M Message, R any] struct {
	cfg PolicyMailboxConfig

	mu      sync.Mutex
	queue   []envelope[M, R]
	closed  bool
	waiters []chan struct{}

	running   atomic.Bool
	suspended atomic.Bool
	armed     atomic.Bool // pressure event may fire again once below threshold
	bound     sync.Once
	owner     Pid

	actorCtx context.Context
}

// Suspend pauses delivery of queued user envelopes via Receive. Sends still
// accumulate in the queue; it is drained again once Resume is called.
func (m *PolicyMailbox[M, R]) Suspend() {
	m.suspended.Store(true)
}

// Resume clears a prior Suspend and wakes any Receive loop blocked on it.
func (m *PolicyMailbox[M, R]) Resume() {
	m.suspended.Store(false)
	m.mu.Lock()
	for _, w := range m.waiters {
		close(w)
	}
	m.waiters = nil
	m.mu.Unlock()
}

// IsSuspended reports whether Suspend has been called without a matching
// Resume.
func (m *PolicyMailbox[M, R]) IsSuspended() bool {
	return m.suspended.Load()
}

// NewPolicyMailbox creates a mailbox governed by cfg. actorCtx is the
// lifecycle context of the owning actor; Receive stops once it is done.
func NewPolicyMailbox[M Message, R any](
	actorCtx context.Context, cfg PolicyMailboxConfig,
) *PolicyMailbox[M, R] {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1
	}
	m := &PolicyMailbox[M, R]{
		cfg:      cfg,
		actorCtx: actorCtx,
	}
	m.armed.Store(true)
	return m
}

// BindPID associates this mailbox with the Pid of its owning actor, used to
// annotate MailboxPressureEvent and as the Recipient of the dead-letter
// entries this mailbox records. It is a no-op after the first call.
func (m *PolicyMailbox[M, R]) BindPID(pid Pid) {
	m.bound.Do(func() {
		m.owner = pid
	})
}

// MarkRunning performs the dispatcher's Idle->Running CAS, returning true if
// this call won the transition.
func (m *PolicyMailbox[M, R]) MarkRunning() bool {
	return m.running.CompareAndSwap(false, true)
}

// MarkIdle flips the dispatcher state back to Idle.
func (m *PolicyMailbox[M, R]) MarkIdle() {
	m.running.Store(false)
}

// Len returns the current queue length. Intended for diagnostics and tests.
func (m *PolicyMailbox[M, R]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *PolicyMailbox[M, R]) notifyOneLocked() {
	if len(m.waiters) == 0 {
		return
	}
	w := m.waiters[0]
	m.waiters = m.waiters[1:]
	close(w)
}

func (m *PolicyMailbox[M, R]) checkPressureLocked() {
	if m.cfg.WarningThreshold <= 0 || m.cfg.Events == nil {
		return
	}

	length := len(m.queue)
	if length >= m.cfg.WarningThreshold {
		if m.armed.CompareAndSwap(true, false) {
			m.cfg.Events.Publish(MailboxPressureEvent{
				Owner:  m.owner,
				Length: length,
				Policy: m.cfg.Policy,
			})
		}
	} else {
		m.armed.Store(true)
	}
}

// recordOverflowLocked records env as a dead letter with ReasonOverflow. Must
// be called under m.mu.
func (m *PolicyMailbox[M, R]) recordOverflowLocked(env envelope[M, R]) {
	if m.cfg.DeadLetters == nil {
		return
	}
	m.cfg.DeadLetters.Record(eventstream.DeadLetterEntry{
		Recipient: m.owner.String(),
		MsgType:   env.message.MessageType(),
		Reason:    eventstream.ReasonOverflow,
		Timestamp: time.Now(),
	})
}

// enqueue pushes env per the configured overflow policy. Must be called
// under m.mu.
func (m *PolicyMailbox[M, R]) enqueueLocked(env envelope[M, R]) bool {
	if len(m.queue) < m.cfg.Capacity {
		m.queue = append(m.queue, env)
		return true
	}

	switch m.cfg.Policy {
	case DropNewest, Fail:
		m.recordOverflowLocked(env)
		return false
	case DropOldest:
		evicted := m.queue[0]
		m.queue = append(m.queue[1:], env)
		m.recordOverflowLocked(evicted)
		return true
	case Grow:
		m.queue = append(m.queue, env)
		return true
	case Block:
		// Handled by the caller; Block never reaches here with the
		// queue full (see Send).
		return false
	default:
		return false
	}
}

// Send implements Mailbox. Under Block, it waits for room; every other
// policy resolves synchronously and cannot block past lock contention.
func (m *PolicyMailbox[M, R]) Send(ctx context.Context, env envelope[M, R]) bool {
	if ctx.Err() != nil || m.actorCtx.Err() != nil {
		return false
	}

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return false
		}

		if m.cfg.Policy != Block || len(m.queue) < m.cfg.Capacity {
			ok := m.enqueueLocked(env)
			if ok {
				m.notifyOneLocked()
				m.checkPressureLocked()
			}
			m.mu.Unlock()
			return ok
		}

		// Block policy, queue full: wait for room or cancellation.
		wake := make(chan struct{})
		m.waiters = append(m.waiters, wake)
		m.mu.Unlock()

		select {
		case <-wake:
			continue
		case <-ctx.Done():
			return false
		case <-m.actorCtx.Done():
			return false
		}
	}
}

// TrySend implements Mailbox without ever blocking: under Block policy a
// full queue simply fails, matching Fail semantics for this call only.
func (m *PolicyMailbox[M, R]) TrySend(env envelope[M, R]) bool {
	if m.actorCtx.Err() != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	if m.cfg.Policy == Block && len(m.queue) >= m.cfg.Capacity {
		return false
	}

	ok := m.enqueueLocked(env)
	if ok {
		m.notifyOneLocked()
		m.checkPressureLocked()
	}
	return ok
}

// Receive returns an iterator that yields queued envelopes as they arrive
// and stops when ctx or the actor's context is cancelled, or the mailbox is
// closed and emptied.
func (m *PolicyMailbox[M, R]) Receive(ctx context.Context) iter.Seq[envelope[M, R]] {
	return func(yield func(envelope[M, R]) bool) {
		for {
			if ctx.Err() != nil || m.actorCtx.Err() != nil {
				return
			}

			m.mu.Lock()
			if len(m.queue) > 0 && !m.suspended.Load() {
				env := m.queue[0]
				m.queue = m.queue[1:]
				m.checkPressureLocked()
				// Dequeuing may have freed room for a Block-policy
				// sender waiting on this same waiters list.
				m.notifyOneLocked()
				m.mu.Unlock()
				if !yield(env) {
					return
				}
				continue
			}
			if m.closed {
				m.mu.Unlock()
				return
			}

			wake := make(chan struct{})
			m.waiters = append(m.waiters, wake)
			m.mu.Unlock()

			select {
			case <-wake:
			case <-ctx.Done():
				return
			case <-m.actorCtx.Done():
				return
			}
		}
	}
}

// Close marks the mailbox closed, rejecting further sends and waking any
// blocked senders/receivers so they observe the closure promptly.
func (m *PolicyMailbox[M, R]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for _, w := range m.waiters {
		close(w)
	}
	m.waiters = nil
}

// IsClosed reports whether Close has been called.
func (m *PolicyMailbox[M, R]) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Drain yields any envelopes left in the queue after Close. It is a no-op if
// the mailbox was never closed.
func (m *PolicyMailbox[M, R]) Drain() iter.Seq[envelope[M, R]] {
	return func(yield func(envelope[M, R]) bool) {
		m.mu.Lock()
		if !m.closed {
			m.mu.Unlock()
			return
		}
		remaining := m.queue
		m.queue = nil
		m.mu.Unlock()

		for _, env := range remaining {
			if !yield(env) {
				return
			}
		}
	}
}

var _ Mailbox[Message, any] = (*PolicyMailbox[Message, any])(nil)
