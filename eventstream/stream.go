package eventstream

import "sync"

// Subscription represents one registered handler on a Stream. Unsubscribe is
// idempotent.
type Subscription struct {
	stream *Stream
	id     uint64
}

// Unsubscribe removes the handler from the stream. Safe to call more than
// once.
func (s *Subscription) Unsubscribe() {
	s.stream.remove(s.id)
}

type subscriber struct {
	id      uint64
	handler func(Event)
}

// Stream is a local, in-process publish/subscribe bus. Publish never blocks
// on slow subscribers: it takes a copy-on-write snapshot of the current
// subscriber list under a brief lock, then invokes every handler outside the
// lock on the publishing goroutine.
type Stream struct {
	mu          sync.Mutex
	subscribers []subscriber
	nextID      uint64
}

// NewStream creates an empty event stream.
func NewStream() *Stream {
	return &Stream{}
}

// Subscribe registers handler to be called, synchronously on the publishing
// goroutine, for every subsequent Publish call. Handlers must not block.
func (s *Stream) Subscribe(handler func(Event)) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	next := make([]subscriber, len(s.subscribers), len(s.subscribers)+1)
	copy(next, s.subscribers)
	next = append(next, subscriber{id: id, handler: handler})
	s.subscribers = next

	return Subscription{stream: s, id: id}
}

func (s *Stream) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		if sub.id != id {
			next = append(next, sub)
		}
	}
	s.subscribers = next
}

// Publish delivers event to every currently registered subscriber, using
// the snapshot of the subscriber list in effect at the moment Publish is
// called. Subscriptions added or removed concurrently do not affect this
// call.
func (s *Stream) Publish(event Event) {
	s.mu.Lock()
	snapshot := s.subscribers
	s.mu.Unlock()

	for _, sub := range snapshot {
		sub.handler(event)
	}
}
