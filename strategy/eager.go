package strategy

import (
	"context"
	"fmt"

	"github.com/arloliu/kcoop/types"
)

// Eager runs a plain AssignmentStrategy as a stop-the-world protocol.
//
// Whenever the target differs from the current ownership, every current
// assignment is revoked. Partitions are added only once nobody owns them, which
// happens on the rebalance that follows the revocation.
type Eager struct {
	base types.AssignmentStrategy
}

var _ types.Rebalancer = (*Eager)(nil)

// NewEager wraps base as an eager rebalance protocol.
//
// Example:
//
//	rb := strategy.NewEager(strategy.NewRoundRobin())
func NewEager(base types.AssignmentStrategy) *Eager {
	return &Eager{base: base}
}

// Cooperative implements types.Rebalancer.
func (e *Eager) Cooperative() bool {
	return false
}

// Rebalance implements types.Rebalancer.
func (e *Eager) Rebalance(
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

	assigned, err := e.base.Assign(members, partitions)
	if err != nil {
		return types.RebalancePlan{}, fmt.Errorf("eager assign: %w", err)
	}

	plan := types.RebalancePlan{
		Target:  make([]types.PartitionAssignment, 0, len(partitions)),
		Revoked: make([]types.PartitionAssignment, 0),
		Added:   make([]types.PartitionAssignment, 0),
	}
	for m, tps := range assigned {
		for _, tp := range tps {
			plan.Target = append(plan.Target, types.PartitionAssignment{TopicPartition: tp, OwnerClientID: m})
		}
	}
	types.SortAssignments(plan.Target)

	live := make(map[string]struct{}, len(members))
	for _, m := range members {
		live[m] = struct{}{}
	}
	liveCurrent := make([]types.PartitionAssignment, 0, len(current))
	owned := make(map[types.TopicPartition]struct{}, len(current))
	for _, a := range current {
		if _, ok := live[a.OwnerClientID]; ok {
			liveCurrent = append(liveCurrent, a)
			owned[a.TopicPartition] = struct{}{}
		}
	}
	types.SortAssignments(liveCurrent)

	if !sameAssignments(liveCurrent, plan.Target) {
		plan.Revoked = liveCurrent
	}
	for _, a := range plan.Target {
		if _, ok := owned[a.TopicPartition]; !ok {
			plan.Added = append(plan.Added, a)
		}
	}

	return plan, nil
}

func sameAssignments(a, b []types.PartitionAssignment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
