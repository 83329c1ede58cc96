package types

import "context"

// AssignmentStrategy calculates a full partition assignment for a set of members.
//
// Strategies implement different placement algorithms:
//   - ConsistentHash: xxh3 hash ring with virtual nodes
//   - RoundRobin: simple round-robin distribution
//
// A plain strategy has no notion of current ownership. Wrap it with strategy.Eager
// to run it as an eager rebalance protocol.
//
// Strategy implementations should:
//   - Be deterministic (same input → same output)
//   - Handle edge cases (no members, no partitions)
//   - Be stateless (no side effects)
type AssignmentStrategy interface {
	// Assign calculates partition assignments for the given members.
	//
	// Parameters:
	//   - members: List of member IDs to assign partitions to
	//   - partitions: List of partitions to assign
	//
	// Returns:
	//   - map[string][]TopicPartition: Map from member ID to assigned partitions
	//   - error: Assignment error (e.g., ErrNoMembers)
	Assign(members []string, partitions []TopicPartition) (map[string][]TopicPartition, error)
}

// RebalancePlan is the outcome of a rebalance.
type RebalancePlan struct {
	// Target is the full assignment the group converges to.
	Target []PartitionAssignment

	// Revoked lists current assignments whose owner must release the partition.
	Revoked []PartitionAssignment

	// Added lists assignments a member may start consuming now.
	Added []PartitionAssignment
}

// RevokedFor returns the revoked partitions owned by member, sorted.
func (p RebalancePlan) RevokedFor(member string) []TopicPartition {
	return filterOwner(p.Revoked, member)
}

// AddedFor returns the partitions added to member, sorted.
func (p RebalancePlan) AddedFor(member string) []TopicPartition {
	return filterOwner(p.Added, member)
}

// TargetFor returns the partitions member owns once the group converges, sorted.
func (p RebalancePlan) TargetFor(member string) []TopicPartition {
	return filterOwner(p.Target, member)
}

func filterOwner(as []PartitionAssignment, member string) []TopicPartition {
	out := make([]TopicPartition, 0)
	for _, a := range as {
		if a.OwnerClientID == member {
			out = append(out, a.TopicPartition)
		}
	}
	SortPartitions(out)

	return out
}

// Rebalancer computes revoke/add deltas from the current group state.
//
// Every member runs the same Rebalancer on the same Membership snapshot, so
// implementations must be deterministic.
type Rebalancer interface {
	// Rebalance computes the plan for the given group state.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - current: Current owned partitions of the group
	//   - members: Live member IDs
	//   - partitions: All partitions of the subscribed topics
	//
	// Returns:
	//   - RebalancePlan: Target, revoked and added assignments
	//   - error: ErrNoMembers when members is empty
	Rebalance(ctx context.Context, current []PartitionAssignment, members []string, partitions []TopicPartition) (RebalancePlan, error)

	// Cooperative reports whether the protocol keeps unmoved partitions during a rebalance.
	Cooperative() bool
}
