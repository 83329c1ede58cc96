package strategy

import (
	"slices"

	"github.com/arloliu/kcoop/types"
)

// RoundRobin implements simple round-robin partition assignment.
type RoundRobin struct{}

var _ types.AssignmentStrategy = (*RoundRobin)(nil)

// NewRoundRobin creates a new round-robin strategy.
//
// The strategy distributes partitions evenly across members in a simple
// round-robin fashion. This provides predictable assignment but does not
// preserve ownership across membership changes.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Assign calculates partition assignments using round-robin distribution.
//
// The algorithm:
//  1. Sort members and partitions for deterministic assignment
//  2. Distribute partitions evenly in round-robin fashion
//
// Parameters:
//   - members: List of member IDs
//   - partitions: List of partitions to assign
//
// Returns:
//   - map[string][]types.TopicPartition: Map from member ID to assigned partitions
//   - error: ErrNoMembers when members is empty
func (rr *RoundRobin) Assign(members []string, partitions []types.TopicPartition) (map[string][]types.TopicPartition, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	sortedMembers := slices.Clone(members)
	slices.Sort(sortedMembers)
	sortedMembers = slices.Compact(sortedMembers)

	sortedParts := slices.Clone(partitions)
	types.SortPartitions(sortedParts)

	assignments := make(map[string][]types.TopicPartition, len(sortedMembers))
	for _, m := range sortedMembers {
		assignments[m] = []types.TopicPartition{}
	}

	for i, tp := range sortedParts {
		m := sortedMembers[i%len(sortedMembers)]
		assignments[m] = append(assignments[m], tp)
	}

	return assignments, nil
}
