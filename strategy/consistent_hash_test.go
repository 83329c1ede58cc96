package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConsistentHash_Assign(t *testing.T) {
	t.Run("assigns partitions to single member", func(t *testing.T) {
		strategy := NewConsistentHash()

		assignments, err := strategy.Assign([]string{"member-0"}, tps("t", 2))

		require.NoError(t, err)
		require.Len(t, assignments, 1)
		require.Len(t, assignments["member-0"], 2)
	})

	t.Run("distributes partitions across multiple members", func(t *testing.T) {
		strategy := NewConsistentHash()
		members := []string{"member-0", "member-1", "member-2"}
		partitions := tps("t", 30)

		assignments, err := strategy.Assign(members, partitions)

		require.NoError(t, err)
		require.Len(t, assignments, 3)

		totalAssigned := 0
		for member, assigned := range assignments {
			require.NotEmpty(t, assigned, "member %s should have at least some partitions", member)
			totalAssigned += len(assigned)
		}
		require.Equal(t, len(partitions), totalAssigned, "all partitions should be assigned")
	})

	t.Run("assignment is deterministic", func(t *testing.T) {
		members := []string{"member-0", "member-1", "member-2"}
		partitions := tps("t", 20)

		a, err := NewConsistentHash().Assign(members, partitions)
		require.NoError(t, err)
		b, err := NewConsistentHash().Assign(members, partitions)
		require.NoError(t, err)

		require.Equal(t, a, b)
	})

	t.Run("hash seed changes placement", func(t *testing.T) {
		members := []string{"member-0", "member-1", "member-2"}
		partitions := tps("t", 50)

		a, err := NewConsistentHash().Assign(members, partitions)
		require.NoError(t, err)
		b, err := NewConsistentHash(WithHashSeed(99), WithVirtualNodes(50)).Assign(members, partitions)
		require.NoError(t, err)

		require.NotEqual(t, a, b)
	})

	t.Run("returns error with no members", func(t *testing.T) {
		_, err := NewConsistentHash().Assign(nil, tps("t", 1))
		require.ErrorIs(t, err, ErrNoMembers)
	})
}
