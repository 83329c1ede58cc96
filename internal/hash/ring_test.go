package hash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

func TestNewRing(t *testing.T) {
	members := []string{"member-0", "member-1", "member-2"}
	ring := NewRing(members, 100, 0)

	require.NotNil(t, ring)
	require.Equal(t, 300, ring.Size()) // 3 members * 100 virtual nodes
	require.Equal(t, members, ring.Members())

	t.Run("deduplicates members", func(t *testing.T) {
		ring := NewRing([]string{"a", "b", "a"}, 10, 0)
		require.Equal(t, []string{"a", "b"}, ring.Members())
		require.Equal(t, 20, ring.Size())
	})

	t.Run("defaults virtual nodes", func(t *testing.T) {
		ring := NewRing([]string{"a"}, 0, 0)
		require.Equal(t, DefaultVirtualNodes, ring.Size())
	})
}

func TestRing_Owner(t *testing.T) {
	t.Run("assigns partitions consistently", func(t *testing.T) {
		members := []string{"member-0", "member-1"}
		ring := NewRing(members, 150, 0)
		other := NewRing([]string{"member-1", "member-0"}, 150, 0)

		for p := range int32(20) {
			tp := types.TopicPartition{Topic: "demo_java", Partition: p}
			owner := ring.Owner(tp)

			require.Contains(t, members, owner)
			require.Equal(t, owner, ring.Owner(tp))
			require.Equal(t, owner, other.Owner(tp), "member order must not matter")
		}
	})

	t.Run("distributes partitions across members", func(t *testing.T) {
		members := []string{"member-0", "member-1", "member-2"}
		ring := NewRing(members, 150, 0)

		counts := make(map[string]int)
		for p := range int32(1000) {
			counts[ring.Owner(types.TopicPartition{Topic: "t", Partition: p})]++
		}

		expected := 1000 / len(members)
		tolerance := expected * 25 / 100
		for _, m := range members {
			require.InDelta(t, expected, counts[m], float64(tolerance), "member %s", m)
		}
	})

	t.Run("returns empty string for empty ring", func(t *testing.T) {
		ring := NewRing(nil, 150, 0)
		require.Empty(t, ring.Owner(types.TopicPartition{Topic: "t"}))
		require.Empty(t, ring.OwnerOfKey("k"))
	})

	t.Run("adding a member moves a minority of partitions", func(t *testing.T) {
		before := NewRing([]string{"a", "b", "c"}, 150, 0)
		after := NewRing([]string{"a", "b", "c", "d"}, 150, 0)

		moved := 0
		for p := range int32(400) {
			tp := types.TopicPartition{Topic: "t", Partition: p}
			if before.Owner(tp) != after.Owner(tp) {
				require.Equal(t, "d", after.Owner(tp), "partitions only move to the new member")
				moved++
			}
		}
		require.Less(t, moved, 200)
	})
}

func TestRing_Seed(t *testing.T) {
	tp := types.TopicPartition{Topic: "demo_java", Partition: 3}
	a := NewRing([]string{"x"}, 10, 0)
	b := NewRing([]string{"x"}, 10, 42)

	require.NotEqual(t, a.HashPartition(tp), b.HashPartition(tp))
	require.Equal(t, b.HashPartition(tp), NewRing(nil, 1, 42).HashPartition(tp))
}

func BenchmarkRing_Owner(b *testing.B) {
	members := make([]string, 32)
	for i := range members {
		members[i] = fmt.Sprintf("member-%d", i)
	}
	ring := NewRing(members, 150, 0)
	tp := types.TopicPartition{Topic: "demo_java", Partition: 17}

	for b.Loop() {
		_ = ring.Owner(tp)
	}
}
