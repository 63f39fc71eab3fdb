package actor

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/actorcore/eventstream"
)

// Signal is the type a Behavior's signal handler accepts for lifecycle
// events that are not ordinary messages (start, restart, stop). It does not
// satisfy Message, so signals never flow through a mailbox. The adapter
// returned by NewBehaviorActor delivers no signals: the signal handler of a
// ReceiveSignal or Composite behavior is not invoked by this package.
type Signal interface {
	signalMarker()
}

type baseSignal struct{}

func (baseSignal) signalMarker() {}

// PreStartSignal is the signal for the start of a behavior, before its first
// message.
type PreStartSignal struct{ baseSignal }

// PreRestartSignal is the signal for a restart of a behavior after a
// failure.
type PreRestartSignal struct {
	baseSignal
	Cause error
}

// PostStopSignal is the signal for the end of a behavior, after its last
// message.
type PostStopSignal struct{ baseSignal }

// Context is the handle a Behavior's callbacks receive, narrowing the
// surrounding ActorCell to what message-processing code needs.
type Context[M Message] struct {
	Ctx  context.Context
	Self TellOnlyRef[M]
}

// behaviorTag distinguishes the variant held by a Behavior value. The zero
// value is tagSame, matching the common case of "no behavior value
// constructed yet" defaulting sensibly if a Behavior is used uninitialized.
type behaviorTag int

const (
	tagSame behaviorTag = iota
	tagUnhandled
	tagStopped
	tagReceive
	tagReceiveSignal
	tagSetup
	tagComposite
)

// Behavior is a closed sum type describing how a typed actor reacts to its
// next message or signal, and what it becomes afterward. Combinators
// (Receive, ReceiveSignal, Setup, Composite) build the tree; Same, Unhandled
// and Stopped are the terminal/passthrough leaves returned from a handler to
// say "keep going unchanged," "I don't know this one," or "shut down."
type Behavior[M Message] struct {
	tag   behaviorTag
	onMsg func(Context[M], M) (Behavior[M], error)
	onSig func(Context[M], Signal) (Behavior[M], error)
	setup func(Context[M]) Behavior[M]
}

// Same returns the sentinel meaning "leave the current behavior in place."
func Same[M Message]() Behavior[M] { return Behavior[M]{tag: tagSame} }

// Unhandled returns the sentinel meaning "this behavior does not know how
// to process the given message"; the interpreter publishes an
// UnhandledMessage event and otherwise treats it like Same.
func Unhandled[M Message]() Behavior[M] { return Behavior[M]{tag: tagUnhandled} }

// Stopped returns the sentinel that ends the actor's lifecycle after the
// current signal/message finishes processing.
func Stopped[M Message]() Behavior[M] { return Behavior[M]{tag: tagStopped} }

// Receive builds a Behavior whose message handler is onMsg.
func Receive[M Message](onMsg func(Context[M], M) (Behavior[M], error)) Behavior[M] {
	return Behavior[M]{tag: tagReceive, onMsg: onMsg}
}

// ReceiveSignal builds a Behavior whose signal handler is onSig; messages
// are implicitly Unhandled.
func ReceiveSignal[M Message](onSig func(Context[M], Signal) (Behavior[M], error)) Behavior[M] {
	return Behavior[M]{tag: tagReceiveSignal, onSig: onSig}
}

// Setup builds a Behavior that runs setupFn once, when the adapter receives
// its first message (or as soon as a handler returns it), to produce the
// actual initial behavior (typically capturing actor-local mutable state in
// onMsg's closure).
func Setup[M Message](setupFn func(Context[M]) Behavior[M]) Behavior[M] {
	return Behavior[M]{tag: tagSetup, setup: setupFn}
}

// Composite builds a Behavior with both a message and a signal handler.
func Composite[M Message](
	onMsg func(Context[M], M) (Behavior[M], error),
	onSig func(Context[M], Signal) (Behavior[M], error),
) Behavior[M] {
	return Behavior[M]{tag: tagComposite, onMsg: onMsg, onSig: onSig}
}

// SelfAware is an optional interface an ActorBehavior can implement to
// receive its own TellOnlyRef once the owning Actor assigns it, mirroring
// the way Stoppable is an optional interface checked at a different point
// in the actor lifecycle. NewActor checks for this interface right after
// constructing the actor's reference, before Start is called, so Self is
// populated before the first message is processed.
type SelfAware[M Message] interface {
	SetSelf(self TellOnlyRef[M])
}

// EventAware is an optional interface an ActorBehavior can implement to
// receive the owning system's event sink, mirroring SelfAware. NewActor
// checks for this interface alongside SelfAware, before Start is called.
// Unlike SelfAware it is not generic over M since PressureSink itself
// carries no message type parameter.
type EventAware interface {
	SetEvents(sink PressureSink)
}

// behaviorActor adapts a Behavior[M] tree onto the ActorBehavior[M,R]
// contract the rest of the runtime (Actor, Mailbox, Promise) already
// understands, threading the "current behavior" pointer through Receive
// calls and unwinding Setup behaviors. It delivers no Signal values.
type behaviorActor[M Message] struct {
	current Behavior[M]
	self    TellOnlyRef[M]
	started bool
	events  PressureSink
}

// NewBehaviorActor adapts a Behavior[M] tree into an ActorBehavior[M, any],
// so it can be registered with an ActorSystem like any other behavior. The
// response type is any because Behavior handlers communicate results by
// sending further messages (Tell), not by returning a value from Receive;
// callers that need request/response semantics should use
// NewFunctionBehavior or AskViaPath instead.
func NewBehaviorActor[M Message](initial Behavior[M]) ActorBehavior[M, any] {
	return &behaviorActor[M]{current: initial}
}

// SetSelf implements SelfAware.
func (b *behaviorActor[M]) SetSelf(self TellOnlyRef[M]) {
	b.self = self
}

// SetEvents implements EventAware.
func (b *behaviorActor[M]) SetEvents(sink PressureSink) {
	b.events = sink
}

func (b *behaviorActor[M]) runSetup(ctx context.Context) {
	for b.current.tag == tagSetup {
		b.current = b.current.setup(Context[M]{Ctx: ctx, Self: b.self})
	}
}

// Receive implements ActorBehavior. It unwinds Setup behaviors lazily on
// first use (since Behavior has no dedicated pre_start hook in this
// adapter), dispatches to the current handler, and installs whatever
// Behavior it returns unless the result is Same (keep current) or
// Unhandled (keep current, but note the miss).
func (b *behaviorActor[M]) Receive(ctx context.Context, msg M) fn.Result[any] {
	if !b.started {
		b.started = true
		b.runSetup(ctx)
	}

	next, err := b.step(ctx, msg)
	if err != nil {
		return fn.Err[any](err)
	}

	switch next.tag {
	case tagSame:
		// Keep b.current as-is.
	case tagUnhandled:
		// Keep b.current as-is, but let observers know this message
		// went unanswered.
		if b.events != nil {
			b.events.Publish(eventstream.UnhandledMessageEvent{
				MsgType: msg.MessageType(),
			})
		}
	case tagStopped:
		// Keep b.current as-is and end the owning actor's lifecycle.
		if ref, ok := b.self.(*actorRefImpl[M, any]); ok {
			ref.actor.Stop()
		}
	default:
		b.current = next
		b.runSetup(ctx)
	}

	return fn.Ok[any](struct{}{})
}

func (b *behaviorActor[M]) step(ctx context.Context, msg M) (Behavior[M], error) {
	switch b.current.tag {
	case tagReceive, tagComposite:
		if b.current.onMsg == nil {
			return Unhandled[M](), nil
		}
		return b.current.onMsg(Context[M]{Ctx: ctx, Self: b.self}, msg)
	default:
		return Unhandled[M](), nil
	}
}
