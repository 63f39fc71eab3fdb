package actor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lightningnetwork/lnd/fn/v2"
)

var tempAskCounter atomic.Uint64

// replyMsg is the single message type a temporary ask-reply actor accepts:
// whatever the target actor's behavior sends back. It is intentionally
// untyped at the Message level and downcast by the waiting caller.
type replyMsg struct {
	BaseMessage
	value any
}

func (replyMsg) MessageType() string { return "ask-reply" }

// replyBehavior completes promise with whatever it receives, so a reply
// routed to the temp actor's path (rather than to an in-process closure)
// still resolves the caller's Future.
type replyBehavior[R any] struct {
	promise Promise[R]
}

func (b *replyBehavior[R]) Receive(_ context.Context, msg replyMsg) fn.Result[any] {
	typed, ok := msg.value.(R)
	if !ok {
		err := fmt.Errorf("ask reply type mismatch: got %T", msg.value)
		b.promise.Complete(fn.Err[R](err))
		return fn.Err[any](err)
	}
	b.promise.Complete(fn.Ok(typed))
	return fn.Ok[any](struct{}{})
}

// AskViaPath performs a request/response exchange by registering a
// temporary actor under a synthetic /temp/ask-<n> path and handing its
// ActorRef to sendFn as the reply-to address, rather than completing the
// Future from an in-process closure the way ActorRef.Ask does. This is the
// shape a behavior needs when the reply is addressed and routed like any
// other message (e.g. crossing a router or a message adapter) instead of
// being produced synchronously by Receive.
//
// sendFn is called with the temporary actor's TellOnlyRef[replyMsg]; it
// should arrange for the target to eventually Tell a replyMsg back to that
// ref. The returned Future resolves with the decoded reply, an AskError if
// timeout elapses first, or an error if sendFn itself fails.
func AskViaPath[R any](
	ctx context.Context, as *ActorSystem, timeout ScheduleOnceFunc,
	sendFn func(ctx context.Context, replyTo TellOnlyRef[replyMsg]) error,
) Future[R] {
	id := fmt.Sprintf("/temp/ask-%d", tempAskCounter.Add(1))

	promise := NewPromise[R]()
	behavior := &replyBehavior[R]{promise: promise}

	tempCfg := ActorConfig[replyMsg, any]{
		ID:          id,
		Behavior:    behavior,
		MailboxSize: 1,
	}
	tempActor := NewActor(tempCfg)
	tempActor.Start()

	as.tempsMu.Lock()
	as.temps[id] = tempActor
	as.tempsMu.Unlock()

	// Also register under the system's path table so a reply that only
	// carries the /temp/ask-<n> path string (rather than the TellOnlyRef
	// this function already closed over) can still be resolved via
	// ActorSelection.
	as.pathsMu.Lock()
	as.paths[id] = tempActor.Ref()
	as.pathsMu.Unlock()

	cleanup := func() {
		tempActor.Stop()
		as.tempsMu.Lock()
		delete(as.temps, id)
		as.tempsMu.Unlock()
		as.pathsMu.Lock()
		delete(as.paths, id)
		as.pathsMu.Unlock()
	}

	if timeout != nil {
		handle := timeout(func() {
			promise.Complete(fn.Err[R](ErrAskTimeout))
			cleanup()
		})
		_ = handle
	}

	if err := sendFn(ctx, tempActor.TellRef()); err != nil {
		promise.Complete(fn.Err[R](fmt.Errorf("%w: %v", ErrAskSendFailed, err)))
		cleanup()
		return promise.Future()
	}

	future := promise.Future()
	future.OnComplete(ctx, func(fn.Result[R]) {
		cleanup()
	})

	return future
}

// ScheduleOnceFunc arms a one-shot callback and returns an opaque cancel
// handle. actor does not depend on the scheduler package directly (to keep
// the dependency order leaves-first); a host wires scheduler.Wheel.
// ScheduleOnce into this shape at call sites, e.g.:
//
//	func(cb func()) any {
//	    h, _ := wheel.ScheduleOnce(timeout, scheduler.RunnableCommand(cb))
//	    return h
//	}
type ScheduleOnceFunc func(callback func()) any
