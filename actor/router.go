package actor

import (
	"context"
	"sync/atomic"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// RoutingStrategy selects one ActorRef from a non-empty slice of candidates
// for a single message. Implementations may keep internal state (e.g. a
// round-robin cursor) but must be safe for concurrent use, since a Router
// may be shared across many goroutines.
type RoutingStrategy[M Message, R any] interface {
	// Select picks one of the given refs, or returns ErrNoActorsAvailable
	// if refs is empty.
	Select(refs []ActorRef[M, R]) (ActorRef[M, R], error)
}

// roundRobinStrategy cycles through candidates in order.
type roundRobinStrategy[M Message, R any] struct {
	next atomic.Uint64
}

// NewRoundRobinStrategy returns a RoutingStrategy that cycles through the
// candidate refs in order, wrapping back to the start. This is the default
// strategy used by ServiceKey.Ref.
func NewRoundRobinStrategy[M Message, R any]() RoutingStrategy[M, R] {
	return &roundRobinStrategy[M, R]{}
}

// Select implements RoutingStrategy.
func (s *roundRobinStrategy[M, R]) Select(refs []ActorRef[M, R]) (ActorRef[M, R], error) {
	if len(refs) == 0 {
		return nil, ErrNoActorsAvailable
	}
	idx := s.next.Add(1) - 1
	return refs[idx%uint64(len(refs))], nil
}

// router is a virtual ActorRef that dispatches to whichever actors are
// currently registered with the receptionist under a given ServiceKey,
// re-resolving the candidate set on every call so that routers remain valid
// across registration and unregistration of pool members.
type router[M Message, R any] struct {
	receptionist *Receptionist
	key          ServiceKey[M, R]
	strategy     RoutingStrategy[M, R]
	dlo          ActorRef[Message, any]
}

// NewRouter creates a virtual ActorRef that load-balances across all actors
// currently registered under key, using strategy to pick among them on every
// Tell/Ask. If no actors are registered, messages are routed to dlo.
func NewRouter[M Message, R any](
	receptionist *Receptionist, key ServiceKey[M, R],
	strategy RoutingStrategy[M, R], dlo ActorRef[Message, any],
) ActorRef[M, R] {
	return &router[M, R]{
		receptionist: receptionist,
		key:          key,
		strategy:     strategy,
		dlo:          dlo,
	}
}

// ID returns a stable identifier for this virtual ref.
func (r *router[M, R]) ID() string {
	return "router:" + r.key.name
}

// Tell resolves the current candidate set and forwards msg to one member.
func (r *router[M, R]) Tell(ctx context.Context, msg M) {
	refs := FindInReceptionist(r.receptionist, r.key)
	if len(refs) == 0 {
		if r.dlo != nil {
			r.dlo.Tell(ctx, msg)
		}
		return
	}

	if target, err := r.strategy.Select(refs); err == nil {
		target.Tell(ctx, msg)
	}
}

// Ask resolves the current candidate set and forwards msg to one member,
// returning its Future. If no member is registered, the returned future
// completes immediately with ErrActorTerminated.
func (r *router[M, R]) Ask(ctx context.Context, msg M) Future[R] {
	refs := FindInReceptionist(r.receptionist, r.key)
	if len(refs) == 0 {
		p := NewPromise[R]()
		p.Complete(fn.Err[R](ErrActorTerminated))
		return p.Future()
	}

	target, err := r.strategy.Select(refs)
	if err != nil {
		p := NewPromise[R]()
		p.Complete(fn.Err[R](err))
		return p.Future()
	}

	return target.Ask(ctx, msg)
}

var _ ActorRef[Message, any] = (*router[Message, any])(nil)
