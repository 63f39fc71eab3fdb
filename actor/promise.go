package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// promiseState is a single-slot completion cell shared by a promise and all
// futures/listeners derived from it. It is completed at most once; the first
// Complete call wins.
type promiseState[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	result    fn.Result[T]

	// listeners are invoked, outside the lock, the moment the state
	// transitions to completed. OnComplete appends directly if already
	// completed it fires immediately instead.
	listeners []func(fn.Result[T])
}

func newPromiseState[T any]() *promiseState[T] {
	return &promiseState[T]{
		done: make(chan struct{}),
	}
}

// complete sets the result if not already set. It returns true if this call
// won the race to complete the state. Listeners are snapshotted and invoked
// after the lock is released, so a listener callback can never re-enter this
// state's lock.
func (p *promiseState[T]) complete(result fn.Result[T]) bool {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return false
	}

	p.completed = true
	p.result = result
	listeners := p.listeners
	p.listeners = nil
	close(p.done)
	p.mu.Unlock()

	for _, l := range listeners {
		l(result)
	}

	return true
}

// addListener registers fn to be called when the state completes. If the
// state is already completed, fn is invoked immediately (synchronously, on
// the calling goroutine).
func (p *promiseState[T]) addListener(listenerFn func(fn.Result[T])) {
	p.mu.Lock()
	if p.completed {
		result := p.result
		p.mu.Unlock()
		listenerFn(result)
		return
	}

	p.listeners = append(p.listeners, listenerFn)
	p.mu.Unlock()
}

// future is the concrete implementation of the Future interface, backed by a
// promiseState shared with its originating promise.
type future[T any] struct {
	state *promiseState[T]
}

// Await blocks until the result is available or ctx is cancelled.
func (f *future[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-f.state.done:
		f.state.mu.Lock()
		result := f.state.result
		f.state.mu.Unlock()
		return result

	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

// ThenApply returns a new Future that resolves to transformFn applied to
// this future's value, or passes through an error/ctx cancellation.
func (f *future[T]) ThenApply(ctx context.Context, transformFn func(T) T) Future[T] {
	derived := newPromiseState[T]()

	go func() {
		result := f.Await(ctx)
		val, err := result.Unpack()
		if err != nil {
			derived.complete(fn.Err[T](err))
			return
		}
		derived.complete(fn.Ok(transformFn(val)))
	}()

	return &future[T]{state: derived}
}

// OnComplete registers fn to run when the future resolves, or when ctx is
// cancelled first (in which case fn receives the context error).
func (f *future[T]) OnComplete(ctx context.Context, onCompleteFn func(fn.Result[T])) {
	fired := make(chan struct{})
	var once sync.Once

	f.state.addListener(func(result fn.Result[T]) {
		once.Do(func() {
			close(fired)
			onCompleteFn(result)
		})
	})

	if ctx.Done() == nil {
		return
	}

	go func() {
		select {
		case <-fired:
		case <-ctx.Done():
			once.Do(func() {
				onCompleteFn(fn.Err[T](ctx.Err()))
			})
		}
	}()
}

// promise is the concrete implementation of the Promise interface.
type promise[T any] struct {
	state *promiseState[T]
}

// NewPromise creates a new, uncompleted Promise. The associated Future can be
// obtained via Future() and awaited by any number of consumers.
func NewPromise[T any]() Promise[T] {
	return &promise[T]{state: newPromiseState[T]()}
}

// Future returns the Future associated with this Promise.
func (p *promise[T]) Future() Future[T] {
	return &future[T]{state: p.state}
}

// Complete sets the promise's result. Only the first call has any effect.
func (p *promise[T]) Complete(result fn.Result[T]) bool {
	return p.state.complete(result)
}
