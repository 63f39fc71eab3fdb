package actor

import (
	"context"
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

func TestParsePathRoundTrip(t *testing.T) {
	t.Parallel()

	raw := "actor://my-system/user/worker-1#42"
	p, err := ParsePath(raw)
	require.NoError(t, err)
	require.Equal(t, "actor", p.Scheme)
	require.Equal(t, "my-system", p.System)
	require.Equal(t, []string{"user", "worker-1"}, p.Segments)
	require.True(t, p.HasUID)
	require.Equal(t, uint64(42), p.UID)
	require.Equal(t, raw, p.String())
}

func TestParsePathRejectsMissingAuthority(t *testing.T) {
	t.Parallel()

	_, err := ParsePath("actor:///user/worker-1")
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestParsePathRejectsReservedSegment(t *testing.T) {
	t.Parallel()

	_, err := ParsePath("actor://sys/user/$temp")
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestActorPathChildDropsUID(t *testing.T) {
	t.Parallel()

	p, err := ParsePath("actor://sys/user/parent#7")
	require.NoError(t, err)

	child := p.Child("worker")
	require.False(t, child.HasUID)
	require.Equal(t, []string{"user", "parent", "worker"}, child.Segments)
}

func TestActorPathParentEscapesRootError(t *testing.T) {
	t.Parallel()

	p, err := ParsePath("actor://sys/guardian")
	require.NoError(t, err)

	_, err = p.Parent()
	require.ErrorIs(t, err, ErrPathEscapesRoot)
}

func TestActorPathResolveRelative(t *testing.T) {
	t.Parallel()

	p, err := ParsePath("actor://sys/user/parent/child")
	require.NoError(t, err)

	resolved, err := p.Resolve("..", "sibling")
	require.NoError(t, err)
	require.Equal(t, []string{"user", "parent", "sibling"}, resolved.Segments)
}

func TestActorSystemActorSelectionResolvesRegisteredPath(t *testing.T) {
	t.Parallel()

	sys := NewActorSystem()
	defer sys.Shutdown(context.Background())

	key := NewServiceKey[*testMessage, string]("path-test-service")
	behavior := NewFunctionBehavior(func(ctx context.Context, msg *testMessage) fn.Result[string] {
		return fn.Ok("ok")
	})

	ref := RegisterWithSystem(sys, "path-test-actor", key, behavior)
	require.NotNil(t, ref)

	path := sys.PathOf("path-test-actor")
	found, ok := sys.ActorSelection(path.String())
	require.True(t, ok)
	require.NotNil(t, found)

	require.True(t, sys.StopAndRemoveActor("path-test-actor"))
	_, ok = sys.ActorSelection(path.String())
	require.False(t, ok)
}
