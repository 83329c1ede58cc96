package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEager_Rebalance(t *testing.T) {
	ctx := context.Background()
	parts := tps("demo_java", 4)
	s := NewEager(NewRoundRobin())

	require.False(t, s.Cooperative())

	t.Run("membership change revokes everything", func(t *testing.T) {
		current := owned("a", 0, 1, 2, 3)

		plan, err := s.Rebalance(ctx, current, []string{"a", "b"}, parts)

		require.NoError(t, err)
		require.Equal(t, current, plan.Revoked)
		require.Empty(t, plan.Added, "partitions are added after the revoke round")
	})

	t.Run("second round adds the full target", func(t *testing.T) {
		plan, err := s.Rebalance(ctx, nil, []string{"a", "b"}, parts)

		require.NoError(t, err)
		require.Empty(t, plan.Revoked)
		require.Equal(t, plan.Target, plan.Added)
		require.Equal(t, 2, countByOwner(plan.Added)["a"])
	})

	t.Run("stable group is a no-op", func(t *testing.T) {
		first, err := s.Rebalance(ctx, nil, []string{"a", "b"}, parts)
		require.NoError(t, err)

		plan, err := s.Rebalance(ctx, first.Target, []string{"a", "b"}, parts)
		require.NoError(t, err)
		require.Empty(t, plan.Revoked)
		require.Empty(t, plan.Added)
	})

	t.Run("converges", func(t *testing.T) {
		final := converge(t, s, owned("a", 0, 1, 2, 3), []string{"a", "b"}, parts)
		require.Equal(t, map[string]int{"a": 2, "b": 2}, countByOwner(final))
	})

	t.Run("no members", func(t *testing.T) {
		_, err := s.Rebalance(ctx, nil, nil, parts)
		require.ErrorIs(t, err, ErrNoMembers)
	})
}

func TestEager_ConsistentHash(t *testing.T) {
	s := NewEager(NewConsistentHash())
	parts := tps("t", 20)

	final := converge(t, s, nil, []string{"x", "y"}, parts)

	require.Len(t, final, 20)
	for _, a := range final {
		require.Contains(t, []string{"x", "y"}, a.OwnerClientID)
	}
}
