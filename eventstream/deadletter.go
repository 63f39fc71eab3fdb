package eventstream

import (
	"sync"
	"time"
)

// DeadLetterReason classifies why a message ended up in the dead letter
// office.
type DeadLetterReason int

const (
	ReasonNoRecipient DeadLetterReason = iota
	ReasonQueueClosed
	ReasonOverflow
	ReasonUnhandled
)

// DeadLetterEntry records one undeliverable or unhandled message.
type DeadLetterEntry struct {
	Recipient string
	MsgType   string
	Reason    DeadLetterReason
	Timestamp time.Time
}

// DeadLetterOffice is a bounded ring buffer of DeadLetterEntry, publishing a
// KindDeadLetter Event to an associated Stream for every recorded entry. The
// ring silently overwrites the oldest entry once full: the repository is a
// diagnostics aid, not a durable log.
type DeadLetterOffice struct {
	mu      sync.Mutex
	entries []DeadLetterEntry
	cap     int
	next    int
	size    int

	stream *Stream
}

// NewDeadLetterOffice creates a ring of the given capacity. If stream is
// non-nil, every Record call also publishes a KindDeadLetter event to it.
func NewDeadLetterOffice(capacity int, stream *Stream) *DeadLetterOffice {
	if capacity <= 0 {
		capacity = 1
	}
	return &DeadLetterOffice{
		entries: make([]DeadLetterEntry, capacity),
		cap:     capacity,
		stream:  stream,
	}
}

// Record appends entry to the ring, evicting the oldest if full.
func (d *DeadLetterOffice) Record(entry DeadLetterEntry) {
	d.mu.Lock()
	d.entries[d.next] = entry
	d.next = (d.next + 1) % d.cap
	if d.size < d.cap {
		d.size++
	}
	d.mu.Unlock()

	if d.stream != nil {
		d.stream.Publish(Event{
			Kind:      KindDeadLetter,
			Timestamp: entry.Timestamp,
			Payload:   entry,
		})
	}
}

// Snapshot returns the currently retained entries, oldest first.
func (d *DeadLetterOffice) Snapshot() []DeadLetterEntry {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]DeadLetterEntry, 0, d.size)
	start := d.next - d.size
	for i := 0; i < d.size; i++ {
		idx := (start + i + d.cap) % d.cap
		out = append(out, d.entries[idx])
	}
	return out
}

// Len returns the number of entries currently retained.
func (d *DeadLetterOffice) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}
