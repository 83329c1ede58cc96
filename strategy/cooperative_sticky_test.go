package strategy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

func tps(topic string, n int) []types.TopicPartition {
	out := make([]types.TopicPartition, n)
	for i := range out {
		out[i] = types.TopicPartition{Topic: topic, Partition: int32(i)} //nolint:gosec
	}

	return out
}

func owned(member string, parts ...int32) []types.PartitionAssignment {
	out := make([]types.PartitionAssignment, 0, len(parts))
	for _, p := range parts {
		out = append(out, types.PartitionAssignment{
			TopicPartition: types.TopicPartition{Topic: "demo_java", Partition: p},
			OwnerClientID:  member,
		})
	}

	return out
}

// applyPlan simulates every member applying plan: revoked partitions are
// released and added partitions are taken.
func applyPlan(current []types.PartitionAssignment, plan types.RebalancePlan, members []string) []types.PartitionAssignment {
	live := make(map[string]bool, len(members))
	for _, m := range members {
		live[m] = true
	}
	revoked := make(map[types.PartitionAssignment]bool, len(plan.Revoked))
	for _, a := range plan.Revoked {
		revoked[a] = true
	}

	next := make([]types.PartitionAssignment, 0, len(current)+len(plan.Added))
	for _, a := range current {
		if live[a.OwnerClientID] && !revoked[a] {
			next = append(next, a)
		}
	}
	next = append(next, plan.Added...)
	types.SortAssignments(next)

	return next
}

// converge runs rebalances until the plan is empty and returns the final ownership.
func converge(t *testing.T, s types.Rebalancer, current []types.PartitionAssignment, members []string, parts []types.TopicPartition) []types.PartitionAssignment {
	t.Helper()

	for range 4 {
		plan, err := s.Rebalance(context.Background(), current, members, parts)
		require.NoError(t, err)
		if len(plan.Revoked) == 0 && len(plan.Added) == 0 {
			return current
		}
		current = applyPlan(current, plan, members)
	}
	t.Fatalf("rebalance did not converge: %v", current)

	return nil
}

func countByOwner(as []types.PartitionAssignment) map[string]int {
	out := make(map[string]int)
	for _, a := range as {
		out[a.OwnerClientID]++
	}

	return out
}

func TestCooperativeSticky_Rebalance(t *testing.T) {
	ctx := context.Background()
	parts := tps("demo_java", 2)

	t.Run("initial assignment adds everything", func(t *testing.T) {
		s := NewCooperativeSticky()
		plan, err := s.Rebalance(ctx, nil, []string{"a"}, parts)

		require.NoError(t, err)
		require.Empty(t, plan.Revoked)
		require.Equal(t, owned("a", 0, 1), plan.Added)
		require.Equal(t, owned("a", 0, 1), plan.Target)
	})

	t.Run("only the moving partition is revoked", func(t *testing.T) {
		s := NewCooperativeSticky()
		current := owned("a", 0, 1)

		plan, err := s.Rebalance(ctx, current, []string{"a", "b"}, parts)

		require.NoError(t, err)
		require.Equal(t, owned("a", 1), plan.Revoked)
		require.Empty(t, plan.Added, "partition 1 is still owned by a until it releases it")
		require.Equal(t, []types.TopicPartition{parts[0]}, plan.TargetFor("a"))
		require.Equal(t, []types.TopicPartition{parts[1]}, plan.TargetFor("b"))

		next := applyPlan(current, plan, []string{"a", "b"})
		require.Equal(t, owned("a", 0), next)

		second, err := s.Rebalance(ctx, next, []string{"a", "b"}, parts)
		require.NoError(t, err)
		require.Empty(t, second.Revoked)
		require.Equal(t, owned("b", 1), second.Added)
	})

	t.Run("dead owners are dropped without revoke", func(t *testing.T) {
		s := NewCooperativeSticky()
		current := append(owned("a", 0), owned("gone", 1)...)

		plan, err := s.Rebalance(ctx, current, []string{"a"}, parts)

		require.NoError(t, err)
		require.Empty(t, plan.Revoked)
		require.Equal(t, owned("a", 1), plan.Added)
	})

	t.Run("deleted partitions are revoked", func(t *testing.T) {
		s := NewCooperativeSticky()
		current := owned("a", 0, 1, 5)

		plan, err := s.Rebalance(ctx, current, []string{"a"}, parts)

		require.NoError(t, err)
		require.Equal(t, owned("a", 5), plan.Revoked)
		require.Empty(t, plan.Added)
	})

	t.Run("double claims keep one owner", func(t *testing.T) {
		s := NewCooperativeSticky()
		current := append(owned("a", 0, 1), owned("b", 1)...)

		plan, err := s.Rebalance(ctx, current, []string{"a", "b"}, parts)

		require.NoError(t, err)
		require.Contains(t, plan.Revoked, owned("b", 1)[0])
	})

	t.Run("no members", func(t *testing.T) {
		_, err := NewCooperativeSticky().Rebalance(ctx, nil, nil, parts)
		require.ErrorIs(t, err, ErrNoMembers)
	})

	t.Run("no partitions", func(t *testing.T) {
		plan, err := NewCooperativeSticky().Rebalance(ctx, nil, []string{"a"}, nil)
		require.NoError(t, err)
		require.Empty(t, plan.Target)
		require.Empty(t, plan.Added)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewCooperativeSticky().Rebalance(cctx, nil, []string{"a"}, parts)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestCooperativeSticky_Balance(t *testing.T) {
	s := NewCooperativeSticky()
	parts := tps("t", 10)
	members := []string{"m1", "m2", "m3"}

	final := converge(t, s, nil, members, parts)

	require.Len(t, final, 10)
	for m, n := range countByOwner(final) {
		require.Contains(t, []int{3, 4}, n, "member %s", m)
	}
}

func TestCooperativeSticky_Deterministic(t *testing.T) {
	parts := tps("t", 12)
	current := owned("m2", 0, 1, 2)

	a, err := NewCooperativeSticky().Rebalance(context.Background(), current, []string{"m3", "m1", "m2"}, parts)
	require.NoError(t, err)
	b, err := NewCooperativeSticky().Rebalance(context.Background(), current, []string{"m1", "m2", "m3", "m1"}, parts)
	require.NoError(t, err)

	require.Equal(t, a, b)
}

// TestCooperativeSticky_StickyProperty drives random membership sequences and checks
// that only partitions whose owner changes are revoked, and that the group always
// converges to a balanced assignment.
func TestCooperativeSticky_StickyProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11)) //nolint:gosec
	s := NewCooperativeSticky()
	parts := append(tps("a", 7), tps("b", 5)...)

	for run := range 50 {
		var current []types.PartitionAssignment
		members := []string{"m0"}
		nextID := 1

		for step := range 12 {
			switch {
			case len(members) > 1 && rng.IntN(3) == 0:
				i := rng.IntN(len(members))
				members = append(members[:i:i], members[i+1:]...)
			default:
				members = append(members, fmt.Sprintf("m%d", nextID))
				nextID++
			}

			plan, err := s.Rebalance(context.Background(), current, members, parts)
			require.NoError(t, err)

			target := make(map[types.TopicPartition]string, len(plan.Target))
			for _, a := range plan.Target {
				target[a.TopicPartition] = a.OwnerClientID
			}
			for _, a := range plan.Revoked {
				require.NotEqual(t, target[a.TopicPartition], a.OwnerClientID,
					"run %d step %d: %s revoked but keeps its owner", run, step, a)
			}
			for _, a := range plan.Added {
				require.Equal(t, target[a.TopicPartition], a.OwnerClientID)
			}

			revoked := make(map[types.PartitionAssignment]bool, len(plan.Revoked))
			for _, a := range plan.Revoked {
				revoked[a] = true
			}
			for _, a := range applyPlan(current, types.RebalancePlan{}, members) {
				if target[a.TopicPartition] == a.OwnerClientID {
					require.False(t, revoked[a], "run %d step %d: %s stays but was revoked", run, step, a)
				}
			}

			current = converge(t, s, current, members, parts)

			require.Len(t, current, len(parts), "every partition owned after convergence")
			counts := countByOwner(current)
			lo, hi := len(parts)/len(members), (len(parts)+len(members)-1)/len(members)
			for _, m := range members {
				require.GreaterOrEqual(t, counts[m], lo)
				require.LessOrEqual(t, counts[m], hi)
			}
		}
	}
}

func BenchmarkCooperativeSticky_Rebalance(b *testing.B) {
	s := NewCooperativeSticky()
	parts := tps("t", 256)
	members := make([]string, 16)
	for i := range members {
		members[i] = fmt.Sprintf("member-%d", i)
	}
	plan, _ := s.Rebalance(context.Background(), nil, members[:15], parts)

	for b.Loop() {
		_, _ = s.Rebalance(context.Background(), plan.Target, members, parts)
	}
}
