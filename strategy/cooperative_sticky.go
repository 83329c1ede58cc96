package strategy

import (
	"cmp"
	"context"
	"slices"

	"github.com/arloliu/kcoop/types"
)

// CooperativeSticky computes cooperative rebalance plans.
//
// The target assignment keeps as many current (partition, owner) pairs as the
// balance quotas allow. Partitions that must change owner are revoked from the
// current owner and become assignable in the following rebalance, once the owner
// has committed their offsets and released them.
type CooperativeSticky struct {
	cfg ringConfig
}

var _ types.Rebalancer = (*CooperativeSticky)(nil)

// NewCooperativeSticky creates the cooperative sticky engine.
//
// Parameters:
//   - opts: Optional ring configuration for new placements (WithVirtualNodes, WithHashSeed)
//
// Returns:
//   - *CooperativeSticky: Initialized engine
//
// Example:
//
//	engine := strategy.NewCooperativeSticky()
//	plan, err := engine.Rebalance(ctx, membership.Current, membership.Members, partitions)
func NewCooperativeSticky(opts ...Option) *CooperativeSticky {
	return &CooperativeSticky{cfg: newRingConfig(opts)}
}

// Cooperative implements types.Rebalancer.
func (s *CooperativeSticky) Cooperative() bool {
	return true
}

// Rebalance calculates the cooperative plan for the given group state.
//
// The algorithm:
//  1. Quotas: every member gets floor(P/M) partitions; the P%M members currently
//     holding the most partitions (ties by member ID) get one more
//  2. Stickiness: current owners keep their partitions up to their quota
//  3. Placement: remaining partitions go to their hash ring owner when it is under
//     quota, otherwise to the least loaded member (ties by member ID)
//  4. Delta: a live owner that differs from the target owner is revoked; a partition
//     without a live owner is added; everything else is left untouched
//
// Assignments owned by members that are no longer live are dropped without a
// revoke, since there is no one left to release them.
//
// Parameters:
//   - ctx: Context for cancellation
//   - current: Current ownership reported by the group
//   - members: Live member IDs
//   - partitions: All partitions of the subscribed topics
//
// Returns:
//   - types.RebalancePlan: Target, revoked and added assignments, each sorted
//   - error: ErrNoMembers when members is empty, or ctx.Err()
func (s *CooperativeSticky) Rebalance(
	ctx context.Context,
	current []types.PartitionAssignment,
	members []string,
	partitions []types.TopicPartition,
) (types.RebalancePlan, error) {
	if err := ctx.Err(); err != nil {
		return types.RebalancePlan{}, err
	}

	members = normalizeMembers(members)
	if len(members) == 0 {
		return types.RebalancePlan{}, ErrNoMembers
	}
	partitions = normalizePartitions(partitions)

	live := make(map[string]struct{}, len(members))
	for _, m := range members {
		live[m] = struct{}{}
	}
	exists := make(map[types.TopicPartition]struct{}, len(partitions))
	for _, tp := range partitions {
		exists[tp] = struct{}{}
	}

	current = slices.Clone(current)
	types.SortAssignments(current)
	owners := liveOwners(current, live, exists)

	quota := quotas(members, partitions, owners)
	target := make(map[types.TopicPartition]string, len(partitions))
	load := make(map[string]int, len(members))

	for _, tp := range partitions {
		if o, ok := owners[tp]; ok && load[o] < quota[o] {
			target[tp] = o
			load[o]++
		}
	}

	ring := s.cfg.ring(members)
	for _, tp := range partitions {
		if _, ok := target[tp]; ok {
			continue
		}

		m := ring.Owner(tp)
		if load[m] >= quota[m] {
			m = lightestMember(members, load, quota)
		}
		target[tp] = m
		load[m]++
	}

	plan := types.RebalancePlan{
		Target:  make([]types.PartitionAssignment, 0, len(partitions)),
		Revoked: make([]types.PartitionAssignment, 0),
		Added:   make([]types.PartitionAssignment, 0),
	}
	for _, tp := range partitions {
		t := target[tp]
		plan.Target = append(plan.Target, types.PartitionAssignment{TopicPartition: tp, OwnerClientID: t})
		if _, owned := owners[tp]; !owned {
			plan.Added = append(plan.Added, types.PartitionAssignment{TopicPartition: tp, OwnerClientID: t})
		}
	}

	for _, a := range current {
		if _, ok := live[a.OwnerClientID]; !ok {
			continue
		}
		if owners[a.TopicPartition] != a.OwnerClientID {
			// partition deleted, or claimed twice and kept by a lower-sorted member
			plan.Revoked = append(plan.Revoked, a)
			continue
		}
		if t, ok := target[a.TopicPartition]; !ok || t != a.OwnerClientID {
			plan.Revoked = append(plan.Revoked, a)
		}
	}

	return plan, nil
}

// liveOwners maps every existing partition to its first live owner in current.
func liveOwners(
	current []types.PartitionAssignment,
	live map[string]struct{},
	exists map[types.TopicPartition]struct{},
) map[types.TopicPartition]string {
	owners := make(map[types.TopicPartition]string, len(current))
	for _, a := range current {
		if _, ok := live[a.OwnerClientID]; !ok {
			continue
		}
		if _, ok := exists[a.TopicPartition]; !ok {
			continue
		}
		if _, taken := owners[a.TopicPartition]; taken {
			continue
		}
		owners[a.TopicPartition] = a.OwnerClientID
	}

	return owners
}

// quotas returns the balanced partition count of every member.
func quotas(members []string, partitions []types.TopicPartition, owners map[types.TopicPartition]string) map[string]int {
	held := make(map[string]int, len(members))
	for _, o := range owners {
		held[o]++
	}

	order := slices.Clone(members)
	slices.SortFunc(order, func(a, b string) int {
		if c := cmp.Compare(held[b], held[a]); c != 0 {
			return c
		}

		return cmp.Compare(a, b)
	})

	floor, extra := len(partitions)/len(members), len(partitions)%len(members)
	quota := make(map[string]int, len(members))
	for i, m := range order {
		quota[m] = floor
		if i < extra {
			quota[m]++
		}
	}

	return quota
}

// lightestMember returns the member under quota with the fewest partitions, ties by ID.
func lightestMember(members []string, load, quota map[string]int) string {
	best := ""
	for _, m := range members {
		if load[m] >= quota[m] {
			continue
		}
		if best == "" || load[m] < load[best] {
			best = m
		}
	}

	return best
}

func normalizeMembers(members []string) []string {
	out := slices.Clone(members)
	slices.Sort(out)

	return slices.Compact(out)
}

func normalizePartitions(partitions []types.TopicPartition) []types.TopicPartition {
	out := slices.Clone(partitions)
	types.SortPartitions(out)

	return slices.Compact(out)
}
