package actor

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// functionBehavior adapts a plain function into an ActorBehavior. This is the
// simplest way to stand up an actor for request/response style workloads
// that don't need the full typed Behavior interpreter (see Behavior[M] and
// NewBehaviorActor for stateful, self-replacing behaviors).
type functionBehavior[M Message, R any] struct {
	receiveFn func(context.Context, M) fn.Result[R]
}

// NewFunctionBehavior wraps a plain receive function as an ActorBehavior.
// The returned behavior is stateless from the runtime's perspective; any
// state must be captured by the closure itself.
func NewFunctionBehavior[M Message, R any](
	receiveFn func(context.Context, M) fn.Result[R],
) ActorBehavior[M, R] {
	return &functionBehavior[M, R]{receiveFn: receiveFn}
}

// Receive implements ActorBehavior.
func (f *functionBehavior[M, R]) Receive(ctx context.Context, msg M) fn.Result[R] {
	return f.receiveFn(ctx, msg)
}
