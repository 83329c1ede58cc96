package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

func nextMembership(t *testing.T, s types.GroupSession) types.Membership {
	t.Helper()

	select {
	case m, ok := <-s.Changes():
		require.True(t, ok, "changes channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("no membership change delivered")
	}

	return types.Membership{}
}

func TestGroup_JoinPublishesGenerations(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t)

	a, err := c.JoinGroup(ctx, "g", "a", []string{"demo_java"}, "cooperative-sticky")
	require.NoError(t, err)

	m := nextMembership(t, a)
	require.Equal(t, int64(1), m.Generation)
	require.Equal(t, []string{"a"}, m.Members)
	require.Equal(t, m, a.Membership())

	b, err := c.JoinGroup(ctx, "g", "b", []string{"demo_java"}, "cooperative-sticky")
	require.NoError(t, err)

	require.Equal(t, int64(2), nextMembership(t, a).Generation)
	mb := nextMembership(t, b)
	require.Equal(t, []string{"a", "b"}, mb.Members)
	require.Equal(t, "b", mb.MemberID)

	_, err = c.JoinGroup(ctx, "g", "a", nil, "")
	require.Error(t, err, "duplicate member")
}

func TestGroup_OnlyLatestSnapshotIsKept(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t)

	a, err := c.JoinGroup(ctx, "g", "a", nil, "")
	require.NoError(t, err)
	_, err = c.JoinGroup(ctx, "g", "b", nil, "")
	require.NoError(t, err)
	_, err = c.JoinGroup(ctx, "g", "c", nil, "")
	require.NoError(t, err)

	m := nextMembership(t, a)
	require.Equal(t, int64(3), m.Generation)
	require.Len(t, m.Members, 3)

	select {
	case <-a.Changes():
		t.Fatal("stale snapshots must be dropped")
	default:
	}
}

func TestGroup_SyncAssignment(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t)

	a, err := c.JoinGroup(ctx, "g", "a", nil, "")
	require.NoError(t, err)
	b, err := c.JoinGroup(ctx, "g", "b", nil, "")
	require.NoError(t, err)
	nextMembership(t, a)
	nextMembership(t, b)

	t.Run("growing ownership does not publish", func(t *testing.T) {
		accepted, err := a.SyncAssignment(ctx, []types.TopicPartition{p1, p0})
		require.NoError(t, err)
		require.Equal(t, []types.TopicPartition{p0, p1}, accepted)

		select {
		case <-b.Changes():
			t.Fatal("unexpected publish")
		default:
		}
	})

	t.Run("partitions owned by others are rejected", func(t *testing.T) {
		accepted, err := b.SyncAssignment(ctx, []types.TopicPartition{p1})
		require.NoError(t, err)
		require.Empty(t, accepted)
	})

	t.Run("releasing publishes the new ownership", func(t *testing.T) {
		_, err := a.SyncAssignment(ctx, []types.TopicPartition{p0})
		require.NoError(t, err)

		m := nextMembership(t, b)
		require.Equal(t, []types.PartitionAssignment{{TopicPartition: p0, OwnerClientID: "a"}}, m.Current)

		accepted, err := b.SyncAssignment(ctx, []types.TopicPartition{p1})
		require.NoError(t, err)
		require.Equal(t, []types.TopicPartition{p1}, accepted)
		require.Len(t, c.Ownership("g"), 2)
	})
}

func TestGroup_Leave(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t)

	a, err := c.JoinGroup(ctx, "g", "a", nil, "")
	require.NoError(t, err)
	b, err := c.JoinGroup(ctx, "g", "b", nil, "")
	require.NoError(t, err)
	_, err = a.SyncAssignment(ctx, []types.TopicPartition{p0})
	require.NoError(t, err)
	nextMembership(t, b)

	require.NoError(t, a.Leave(ctx))
	require.NoError(t, a.Leave(ctx), "leave is idempotent")

	m := nextMembership(t, b)
	require.Equal(t, []string{"b"}, m.Members)
	require.Empty(t, m.Current, "partitions of a leaving member are released")
	require.Equal(t, []string{"b"}, c.Members("g"))

	_, ok := <-a.Changes()
	for ok {
		_, ok = <-a.Changes()
	}

	_, err = a.SyncAssignment(ctx, nil)
	require.ErrorIs(t, err, types.ErrGroupClosed)
}
