package actor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// CellState enumerates the lifecycle stages of a supervised actor. Cells
// move strictly forward through this sequence except for the
// Running<->Suspended loop and the Restarting->Running recovery path.
type CellState int32

const (
	StateInitializing CellState = iota
	StateRunning
	StateSuspended
	StateRestarting
	StateStopping
	StateStopped
)

// suspendable is implemented by mailboxes that support administrative
// suspend/resume, currently only PolicyMailbox.
type suspendable interface {
	Suspend()
	Resume()
}

// Cell wraps an Actor with supervision: a position in the parent/child tree,
// a watch list notified on termination, and a SupervisorStrategy applied to
// FailedMsg reports from its children.
//
// Administrative transitions (Start/Suspend/Resume/Watch/Unwatch/Stop) are
// not applied directly by the calling goroutine. Each one constructs the
// matching SystemMessage variant and enqueues it on the cell's own sysQueue,
// which a Dispatcher drains strictly ahead of anything else, matching
// spec.md's "system messages flow through a separate queue with strictly
// higher priority" contract. The Dispatcher's default ExecutorHook
// (InlineExecutor) runs that drain synchronously on the enqueuing goroutine,
// so these calls still observe their effect applied before returning,
// exactly as the direct-mutation version did; only the path by which the
// mutation happens changed, from an ad hoc lock to a real queued message.
type Cell[M Message, R any] struct {
	id              Pid
	path            ActorPath
	actor           *Actor[M, R]
	system          *ActorSystem
	strategy        SupervisorStrategy
	behaviorFactory func() ActorBehavior[M, R]

	state atomic.Int32

	mu            sync.Mutex
	parent        *cellHandle
	selfName      string
	children      map[string]*cellHandle
	childOrder    []string
	childrenByPid map[Pid]string
	watchers      map[Pid]struct{}
	stats         map[string]*restartStats

	sysMu      sync.Mutex
	sysQueue   []SystemMessage
	dispatcher *Dispatcher
}

// cellHandle is the type-erased view of a Cell a parent keeps for its
// children, since a parent's children may have different M/R type
// parameters than the parent itself.
type cellHandle struct {
	id      Pid
	path    ActorPath
	stop    func()
	suspend func()
	resume  func()

	// restart enqueues a RecreateMsg with the given cause on the owning
	// cell's own system queue.
	restart func(cause error)

	// notifyFailed delivers a FailedMsg to whichever cell produced this
	// handle, naming (via FailedMsg.Child) the specific child that
	// raised it.
	notifyFailed func(msg FailedMsg)
}

// NewCell creates a supervised cell around a freshly constructed Actor.
// Callers typically obtain the Actor via NewActor and start it themselves
// before or after wrapping it, depending on whether children need to be
// attached first. behaviorFactory, if non-nil, constructs a fresh
// ActorBehavior[M,R] instance for DirectiveRestart to swap in; a nil
// behaviorFactory degrades restart to reusing the existing behavior value
// in place (acceptable for stateless behaviors, but it will not re-run any
// Setup-captured state the way a fresh instance would).
func NewCell[M Message, R any](
	system *ActorSystem, id Pid, path ActorPath, act *Actor[M, R],
	strategy SupervisorStrategy, behaviorFactory func() ActorBehavior[M, R],
) *Cell[M, R] {
	c := &Cell[M, R]{
		id:              id,
		path:            path,
		actor:           act,
		system:          system,
		strategy:        strategy,
		behaviorFactory: behaviorFactory,
		children:        make(map[string]*cellHandle),
		childrenByPid:   make(map[Pid]string),
		watchers:        make(map[Pid]struct{}),
		stats:           make(map[string]*restartStats),
	}
	c.state.Store(int32(StateInitializing))
	c.dispatcher = NewDispatcher(DispatcherConfig{
		RunSystem: c.drainSystem,
		HasWork:   c.hasQueuedSystemWork,
		OnPanic:   c.onSystemPanic,
	})
	return c
}

// State returns the cell's current lifecycle stage.
func (c *Cell[M, R]) State() CellState {
	return CellState(c.state.Load())
}

// Pid returns this cell's actor identity.
func (c *Cell[M, R]) Pid() Pid {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Path returns this cell's canonical address.
func (c *Cell[M, R]) Path() ActorPath { return c.path }

// handle returns the type-erased view of this cell for registration as
// someone else's child.
func (c *Cell[M, R]) handle() *cellHandle {
	return &cellHandle{
		id:      c.id,
		path:    c.path,
		stop:    func() { c.Stop() },
		suspend: func() { c.Suspend() },
		resume:  func() { c.Resume() },
		restart: func(cause error) {
			c.enqueueSystem(RecreateMsg{Cause: cause})
		},
		notifyFailed: func(msg FailedMsg) {
			c.enqueueSystem(msg)
		},
	}
}

// cellNode is implemented by every *Cell[M, R] regardless of its message
// and response type parameters, letting a parent attach heterogeneous
// children.
type cellNode interface {
	handle() *cellHandle
	setParent(h *cellHandle, name string)
}

// setParent records h as this cell's parent for failure escalation, along
// with the name the parent attached it under.
func (c *Cell[M, R]) setParent(h *cellHandle, name string) {
	c.mu.Lock()
	c.parent = h
	c.selfName = name
	c.mu.Unlock()
}

// AttachChild registers child as a child of c under the given name,
// recording c as its parent for escalation purposes.
func (c *Cell[M, R]) AttachChild(name string, child cellNode) {
	h := child.handle()
	child.setParent(c.handle(), name)

	c.mu.Lock()
	c.children[name] = h
	c.childOrder = append(c.childOrder, name)
	c.childrenByPid[h.id] = name
	c.stats[name] = &restartStats{}
	c.mu.Unlock()
}

// enqueueSystem appends msg to this cell's system queue and triggers the
// dispatcher to drain it. With the default InlineExecutor this runs
// synchronously: by the time enqueueSystem returns, msg (and anything else
// queued ahead of it) has already been applied.
func (c *Cell[M, R]) enqueueSystem(msg SystemMessage) {
	c.sysMu.Lock()
	c.sysQueue = append(c.sysQueue, msg)
	c.sysMu.Unlock()

	c.dispatcher.onEnqueued()
}

// hasQueuedSystemWork backs the dispatcher's lost-wakeup re-check.
func (c *Cell[M, R]) hasQueuedSystemWork() bool {
	c.sysMu.Lock()
	defer c.sysMu.Unlock()
	return len(c.sysQueue) > 0
}

// drainSystem pops and applies every queued SystemMessage in FIFO order.
// It is the Dispatcher's RunSystem hook for this cell.
func (c *Cell[M, R]) drainSystem() error {
	for {
		c.sysMu.Lock()
		if len(c.sysQueue) == 0 {
			c.sysMu.Unlock()
			return nil
		}
		msg := c.sysQueue[0]
		c.sysQueue = c.sysQueue[1:]
		c.sysMu.Unlock()

		c.applySystemMessage(msg)
	}
}

// applySystemMessage performs the effect of a single queued SystemMessage.
func (c *Cell[M, R]) applySystemMessage(msg SystemMessage) {
	switch m := msg.(type) {
	case CreateMsg:
		c.actor.Start()
		c.state.Store(int32(StateRunning))

	case SuspendMsg:
		if s, ok := c.actor.mailbox.(suspendable); ok {
			s.Suspend()
		}
		c.state.Store(int32(StateSuspended))

	case ResumeMsg:
		if s, ok := c.actor.mailbox.(suspendable); ok {
			s.Resume()
		}
		c.state.Store(int32(StateRunning))

	case WatchMsg:
		c.mu.Lock()
		c.watchers[m.Watcher] = struct{}{}
		c.mu.Unlock()

	case UnwatchMsg:
		c.mu.Lock()
		delete(c.watchers, m.Watcher)
		c.mu.Unlock()

	case RecreateMsg:
		c.doRestart(m.Cause)

	case StopMsg:
		c.doStop()

	case FailedMsg:
		c.mu.Lock()
		name, ok := c.childrenByPid[m.Child]
		if !ok {
			// A restarted child reports under a bumped Incarnation.
			for pid, n := range c.childrenByPid {
				if pid.ID == m.Child.ID {
					name, ok = n, true
					break
				}
			}
		}
		c.mu.Unlock()
		if ok {
			c.handleChildFailure(name, m.Err)
		}

	case TerminatedMsg:
		// Reserved for a cell that is itself a watcher target; nothing
		// in this package currently constructs a TerminatedMsg destined
		// for a cell's own queue (watchers are notified directly via
		// onTerminated in doStop), but the case is handled explicitly
		// rather than silently ignored should that change.
	}
}

// Start transitions the cell to Running and starts its underlying Actor.
func (c *Cell[M, R]) Start() {
	c.enqueueSystem(CreateMsg{})
}

// Suspend pauses message delivery to this cell's actor, if its mailbox
// supports it.
func (c *Cell[M, R]) Suspend() {
	c.enqueueSystem(SuspendMsg{})
}

// Resume clears a prior Suspend.
func (c *Cell[M, R]) Resume() {
	c.enqueueSystem(ResumeMsg{})
}

// Watch registers watcher to receive a TerminatedMsg (delivered via the
// package-level onTerminated hook) once this cell stops.
func (c *Cell[M, R]) Watch(watcher Pid) {
	c.enqueueSystem(WatchMsg{Watcher: watcher})
}

// Unwatch removes a prior Watch registration.
func (c *Cell[M, R]) Unwatch(watcher Pid) {
	c.enqueueSystem(UnwatchMsg{Watcher: watcher})
}

// onTerminated is invoked with a TerminatedMsg for every registered watcher
// when a cell stops. The default implementation is a no-op hook and nothing
// in this package replaces it, so the TerminatedMsg reaches no watcher
// unless this variable is reassigned.
var onTerminated = func(watcher Pid, msg TerminatedMsg) {}

// Stop stops this cell's actor, stops all children first (child-before-
// parent shutdown order), and notifies registered watchers.
func (c *Cell[M, R]) Stop() {
	c.enqueueSystem(StopMsg{})
}

// doStop is the actual effect of a StopMsg, applied by drainSystem.
func (c *Cell[M, R]) doStop() {
	c.state.Store(int32(StateStopping))

	c.mu.Lock()
	children := make([]*cellHandle, 0, len(c.childOrder))
	for _, name := range c.childOrder {
		if ch, ok := c.children[name]; ok {
			children = append(children, ch)
		}
	}
	watchers := make([]Pid, 0, len(c.watchers))
	for w := range c.watchers {
		watchers = append(watchers, w)
	}
	c.mu.Unlock()

	for _, ch := range children {
		ch.stop()
	}

	c.actor.Stop()
	c.state.Store(int32(StateStopped))

	msg := TerminatedMsg{Who: c.id}
	for _, w := range watchers {
		onTerminated(w, msg)
	}
}

// doRestart is the actual effect of a RecreateMsg: it runs post_stop on the
// outgoing behavior, constructs a fresh one via behaviorFactory, rewires the
// SelfAware/EventAware optional interfaces, swaps it in, and bumps
// Incarnation so watchers and Pid-based routing can distinguish the
// restarted instance from the one that failed. The mailbox is suspended for
// the duration so Actor.process cannot deliver the next queued message
// against a half-swapped behavior.
func (c *Cell[M, R]) doRestart(cause error) {
	if s, ok := c.actor.mailbox.(suspendable); ok {
		s.Suspend()
	}
	c.state.Store(int32(StateRestarting))

	old := c.actor.behavior
	if stopper, ok := old.(Stoppable); ok {
		cleanupCtx, cancel := context.WithTimeout(
			context.Background(), c.actor.cleanupTimeout,
		)
		if err := stopper.OnStop(cleanupCtx); err != nil {
			log.WarnS(cleanupCtx, "Restart cleanup error", err,
				"actor_id", c.actor.id)
		}
		cancel()
	}

	fresh := old
	if c.behaviorFactory != nil {
		fresh = c.behaviorFactory()
	}

	if aware, ok := fresh.(SelfAware[M]); ok {
		aware.SetSelf(c.actor.TellRef())
	}
	if aware, ok := fresh.(EventAware); ok && c.system != nil {
		aware.SetEvents(c.system.unhandledSink())
	}

	c.actor.behavior = fresh

	c.mu.Lock()
	c.id.Incarnation++
	incarnation := c.id.Incarnation
	c.mu.Unlock()

	if s, ok := c.actor.mailbox.(suspendable); ok {
		s.Resume()
	}
	c.state.Store(int32(StateRunning))

	log.InfoS(context.Background(), "Cell restarted",
		"actor_id", c.actor.id, "incarnation", incarnation, "cause", cause)
}

// onSystemPanic is the Dispatcher's OnPanic hook for this cell's queue,
// invoked when applySystemMessage (most likely doRestart's calls into user
// behavior code) panics or a RunSystem pass returns an error. It escalates
// exactly like ReportFailure, but applies the stop directly rather than
// re-entering the dispatcher, since this callback already runs on the
// dispatcher's own driving goroutine.
func (c *Cell[M, R]) onSystemPanic(err *ActorError) {
	c.mu.Lock()
	parent := c.parent
	c.mu.Unlock()

	if parent != nil {
		parent.notifyFailed(FailedMsg{Child: c.id, Err: err})
		return
	}

	c.doStop()
}

// handleChildFailure applies c's SupervisorStrategy to decide a failed
// child's fate. It is invoked by applySystemMessage when a FailedMsg is
// drained from this cell's own system queue.
func (c *Cell[M, R]) handleChildFailure(childName string, cause *ActorError) {
	c.mu.Lock()
	child, ok := c.children[childName]
	stats := c.stats[childName]
	strategy := c.strategy
	targets := map[string]*cellHandle{childName: child}
	if ok && strategy.Kind == AllForOne {
		targets = make(map[string]*cellHandle, len(c.children))
		for name, h := range c.children {
			targets[name] = h
		}
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	directive := DirectiveRestart
	if strategy.Decider != nil {
		directive = strategy.Decider(cause)
	}

	withinBudget := true
	if strategy.MaxRetries > 0 {
		window := strategy.Window
		if window <= 0 {
			window = time.Minute
		}
		withinBudget = stats.recordAndCheck(time.Now(), window, strategy.MaxRetries)
	}
	if !withinBudget {
		directive = DirectiveEscalate
	}

	switch directive {
	case DirectiveResume:
		for _, h := range targets {
			h.resume()
		}
	case DirectiveRestart:
		for _, h := range targets {
			h.restart(cause.Err)
		}
	case DirectiveStop:
		for _, h := range targets {
			h.stop()
		}
	case DirectiveEscalate:
		c.mu.Lock()
		parent := c.parent
		selfName := c.selfName
		c.mu.Unlock()
		if parent != nil {
			log.DebugS(context.Background(), "Escalating child failure to parent",
				"cell", selfName, "child", childName)
			parent.notifyFailed(FailedMsg{Child: c.id, Err: cause})
		} else {
			for _, h := range targets {
				h.stop()
			}
		}
	}
}

// ReportFailure lets the cell's own Actor surface an ActorError to its
// parent, driving the same supervisor-strategy path handleChildFailure
// implements for a child. Behaviors call this instead of panicking when
// they hit an error their own logic cannot absorb.
func (c *Cell[M, R]) ReportFailure(ctx context.Context, err *ActorError) {
	c.mu.Lock()
	parent := c.parent
	selfName := c.selfName
	c.mu.Unlock()

	if parent != nil {
		log.DebugS(ctx, "Reporting failure to parent",
			"cell", selfName, "actor_id", c.actor.id)
		parent.notifyFailed(FailedMsg{Child: c.id, Err: err})
		return
	}

	// No parent: the default root policy is to stop, matching the
	// strategy's Decider on a Fatal classification.
	if c.strategy.Decider == nil || c.strategy.Decider(err) == DirectiveStop {
		c.Stop()
	}
}
