package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

func TestRoundRobin_Assign(t *testing.T) {
	t.Run("distributes partitions evenly across members", func(t *testing.T) {
		strategy := NewRoundRobin()

		assignments, err := strategy.Assign([]string{"member-0", "member-1", "member-2"}, tps("t", 9))

		require.NoError(t, err)
		require.Len(t, assignments, 3)
		require.Len(t, assignments["member-0"], 3)
		require.Len(t, assignments["member-1"], 3)
		require.Len(t, assignments["member-2"], 3)
	})

	t.Run("handles uneven distribution", func(t *testing.T) {
		strategy := NewRoundRobin()

		assignments, err := strategy.Assign([]string{"member-1", "member-0"}, tps("t", 5))

		require.NoError(t, err)
		require.Len(t, assignments["member-0"], 3)
		require.Len(t, assignments["member-1"], 2)
		require.Equal(t, types.TopicPartition{Topic: "t", Partition: 1}, assignments["member-1"][0])
	})

	t.Run("handles more members than partitions", func(t *testing.T) {
		assignments, err := NewRoundRobin().Assign([]string{"a", "b", "c"}, tps("t", 1))

		require.NoError(t, err)
		require.Len(t, assignments["a"], 1)
		require.Empty(t, assignments["c"])
	})

	t.Run("returns error with no members", func(t *testing.T) {
		_, err := NewRoundRobin().Assign(nil, tps("t", 1))
		require.ErrorIs(t, err, ErrNoMembers)
	})
}
