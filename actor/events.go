package actor

import (
	"time"

	"github.com/roasbeef/actorcore/eventstream"
)

// eventStreamSink adapts an eventstream.Stream to the narrow PressureSink
// interface mailboxes depend on, wrapping every published value as a
// KindMailboxPressure Event.
type eventStreamSink struct {
	stream *eventstream.Stream
}

// Publish implements PressureSink.
func (s eventStreamSink) Publish(event any) {
	if s.stream == nil {
		return
	}
	s.stream.Publish(eventstream.Event{
		Kind:      eventstream.KindMailboxPressure,
		Timestamp: time.Now(),
		Payload:   event,
	})
}

// unhandledEventSink adapts an eventstream.Stream to PressureSink for
// behaviorActor's Unhandled path, wrapping every published value as a
// KindUnhandledMessage Event instead.
type unhandledEventSink struct {
	stream *eventstream.Stream
}

// Publish implements PressureSink.
func (s unhandledEventSink) Publish(event any) {
	if s.stream == nil {
		return
	}
	s.stream.Publish(eventstream.Event{
		Kind:      eventstream.KindUnhandledMessage,
		Timestamp: time.Now(),
		Payload:   event,
	})
}
