package actor

import (
	"context"
	"testing"
	"time"

	"github.com/roasbeef/actorcore/eventstream"
	"github.com/stretchr/testify/require"
)

func newTestEnvelope(v int) envelope[*testMessage, string] {
	return envelope[*testMessage, string]{message: &testMessage{value: v}}
}

func TestPolicyMailboxDropNewestRejectsOnFull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mb := NewPolicyMailbox[*testMessage, string](ctx, PolicyMailboxConfig{
		Capacity: 2,
		Policy:   DropNewest,
	})

	require.True(t, mb.TrySend(newTestEnvelope(1)))
	require.True(t, mb.TrySend(newTestEnvelope(2)))
	require.False(t, mb.TrySend(newTestEnvelope(3)))
	require.Equal(t, 2, mb.Len())
}

func TestPolicyMailboxDropNewestRecordsDeadLetter(t *testing.T) {
	t.Parallel()

	dlo := eventstream.NewDeadLetterOffice(16, nil)
	ctx := context.Background()
	mb := NewPolicyMailbox[*testMessage, string](ctx, PolicyMailboxConfig{
		Capacity:    1,
		Policy:      DropNewest,
		DeadLetters: dlo,
	})

	require.True(t, mb.TrySend(newTestEnvelope(1)))
	require.False(t, mb.TrySend(newTestEnvelope(2)))

	entries := dlo.Snapshot()
	require.Len(t, entries, 1)
	require.Equal(t, eventstream.ReasonOverflow, entries[0].Reason)
}

func TestPolicyMailboxDropOldestEvictsHead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mb := NewPolicyMailbox[*testMessage, string](ctx, PolicyMailboxConfig{
		Capacity: 2,
		Policy:   DropOldest,
	})

	require.True(t, mb.TrySend(newTestEnvelope(1)))
	require.True(t, mb.TrySend(newTestEnvelope(2)))
	require.True(t, mb.TrySend(newTestEnvelope(3)))
	require.Equal(t, 2, mb.Len())

	var got []int
	for env := range mb.Receive(ctx) {
		got = append(got, env.message.value)
		if len(got) == 2 {
			break
		}
	}
	require.Equal(t, []int{2, 3}, got)
}

func TestPolicyMailboxDropOldestRecordsEvictedAsDeadLetter(t *testing.T) {
	t.Parallel()

	dlo := eventstream.NewDeadLetterOffice(16, nil)
	ctx := context.Background()
	mb := NewPolicyMailbox[*testMessage, string](ctx, PolicyMailboxConfig{
		Capacity:    2,
		Policy:      DropOldest,
		DeadLetters: dlo,
	})

	require.True(t, mb.TrySend(newTestEnvelope(1)))
	require.True(t, mb.TrySend(newTestEnvelope(2)))
	require.True(t, mb.TrySend(newTestEnvelope(3)))

	entries := dlo.Snapshot()
	require.Len(t, entries, 1)
	require.Equal(t, eventstream.ReasonOverflow, entries[0].Reason)
}

func TestPolicyMailboxGrowAcceptsPastCapacity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mb := NewPolicyMailbox[*testMessage, string](ctx, PolicyMailboxConfig{
		Capacity: 1,
		Policy:   Grow,
	})

	require.True(t, mb.TrySend(newTestEnvelope(1)))
	require.True(t, mb.TrySend(newTestEnvelope(2)))
	require.True(t, mb.TrySend(newTestEnvelope(3)))
	require.Equal(t, 3, mb.Len())
}

func TestPolicyMailboxBlockWaitsForRoom(t *testing.T) {
	t.Parallel()

	actorCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mb := NewPolicyMailbox[*testMessage, string](actorCtx, PolicyMailboxConfig{
		Capacity: 1,
		Policy:   Block,
	})

	require.True(t, mb.Send(context.Background(), newTestEnvelope(1)))

	sent := make(chan bool, 1)
	go func() {
		sent <- mb.Send(context.Background(), newTestEnvelope(2))
	}()

	select {
	case <-sent:
		t.Fatal("second Send should block while queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	// Draining one envelope should unblock the pending Send.
	for env := range mb.Receive(actorCtx) {
		_ = env
		break
	}

	select {
	case ok := <-sent:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("blocked Send did not unblock after room freed")
	}
}

func TestPolicyMailboxSuspendPausesReceive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mb := NewPolicyMailbox[*testMessage, string](ctx, PolicyMailboxConfig{
		Capacity: 4,
		Policy:   DropNewest,
	})

	require.True(t, mb.TrySend(newTestEnvelope(1)))
	mb.Suspend()
	require.True(t, mb.IsSuspended())

	received := make(chan int, 1)
	go func() {
		for env := range mb.Receive(ctx) {
			received <- env.message.value
			return
		}
	}()

	select {
	case <-received:
		t.Fatal("Receive should not yield while suspended")
	case <-time.After(50 * time.Millisecond):
	}

	mb.Resume()
	require.False(t, mb.IsSuspended())

	select {
	case v := <-received:
		require.Equal(t, 1, v)
	case <-time.After(time.Second):
		t.Fatal("Receive should yield once resumed")
	}
}

func TestPolicyMailboxPressureEventFiresOnceAboveThreshold(t *testing.T) {
	t.Parallel()

	sink := &recordingMailboxSink{}
	ctx := context.Background()
	mb := NewPolicyMailbox[*testMessage, string](ctx, PolicyMailboxConfig{
		Capacity:         10,
		Policy:           DropNewest,
		WarningThreshold: 2,
		Events:           sink,
	})

	require.True(t, mb.TrySend(newTestEnvelope(1)))
	require.Empty(t, sink.events)

	require.True(t, mb.TrySend(newTestEnvelope(2)))
	require.Len(t, sink.events, 1)

	// A further send while still above threshold should not re-fire.
	require.True(t, mb.TrySend(newTestEnvelope(3)))
	require.Len(t, sink.events, 1)
}

type recordingMailboxSink struct {
	events []any
}

func (r *recordingMailboxSink) Publish(event any) {
	r.events = append(r.events, event)
}
