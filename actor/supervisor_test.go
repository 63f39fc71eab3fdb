package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultSupervisorStrategyDecider(t *testing.T) {
	t.Parallel()

	strategy := DefaultSupervisorStrategy()

	recoverable := NewActorError(Recoverable, errors.New("transient"))
	require.Equal(t, DirectiveRestart, strategy.Decider(recoverable))

	fatal := NewActorError(Fatal, errors.New("corrupted state"))
	require.Equal(t, DirectiveStop, strategy.Decider(fatal))
}

func TestRestartStatsWithinBudget(t *testing.T) {
	t.Parallel()

	stats := &restartStats{}
	now := time.Now()

	for i := 0; i < 3; i++ {
		ok := stats.recordAndCheck(now.Add(time.Duration(i)*time.Second), time.Minute, 5)
		require.True(t, ok)
	}
}

func TestRestartStatsExceedsBudget(t *testing.T) {
	t.Parallel()

	stats := &restartStats{}
	now := time.Now()

	var lastOK bool
	for i := 0; i < 5; i++ {
		lastOK = stats.recordAndCheck(now.Add(time.Duration(i)*time.Second), time.Minute, 3)
	}

	require.False(t, lastOK)
}

func TestRestartStatsPrunesOldEntriesOutsideWindow(t *testing.T) {
	t.Parallel()

	stats := &restartStats{}
	base := time.Now()

	// Three restarts far in the past, outside a 10-second window.
	for i := 0; i < 3; i++ {
		stats.recordAndCheck(base.Add(time.Duration(i)*time.Millisecond), 10*time.Second, 2)
	}

	// A restart well after the window has elapsed should only see itself,
	// not the pruned-away earlier entries.
	ok := stats.recordAndCheck(base.Add(time.Minute), 10*time.Second, 2)
	require.True(t, ok)
}
