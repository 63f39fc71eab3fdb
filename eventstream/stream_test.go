package eventstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStreamPublishDeliversToSubscribers(t *testing.T) {
	t.Parallel()

	s := NewStream()

	var received []Event
	s.Subscribe(func(e Event) {
		received = append(received, e)
	})

	s.Publish(Event{Kind: KindLog, Timestamp: time.Now()})
	s.Publish(Event{Kind: KindLifecycle, Timestamp: time.Now()})

	require.Len(t, received, 2)
	require.Equal(t, KindLog, received[0].Kind)
	require.Equal(t, KindLifecycle, received[1].Kind)
}

func TestStreamUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	s := NewStream()

	count := 0
	sub := s.Subscribe(func(Event) { count++ })

	s.Publish(Event{Kind: KindLog})
	sub.Unsubscribe()
	s.Publish(Event{Kind: KindLog})

	require.Equal(t, 1, count)

	// Unsubscribe is idempotent.
	require.NotPanics(t, func() { sub.Unsubscribe() })
}

func TestStreamPublishSnapshotsSubscribersAtCallTime(t *testing.T) {
	t.Parallel()

	s := NewStream()

	var outer []Event
	s.Subscribe(func(e Event) {
		outer = append(outer, e)
		// Subscribing from inside a handler must not affect this
		// in-flight Publish call, since Publish snapshots the
		// subscriber list before invoking any handler.
		s.Subscribe(func(Event) {})
	})

	s.Publish(Event{Kind: KindLog})
	require.Len(t, outer, 1)
}
