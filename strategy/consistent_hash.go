package strategy

import (
	"errors"

	"github.com/arloliu/kcoop/types"
)

// ConsistentHash implements consistent hashing with virtual nodes.
type ConsistentHash struct {
	cfg ringConfig
}

var _ types.AssignmentStrategy = (*ConsistentHash)(nil)

// NewConsistentHash creates a new consistent hash strategy.
//
// The strategy uses a hash ring with virtual nodes to place partitions so that
// adding or removing a member only moves the partitions next to it on the ring.
// Distribution is not exactly even; use CooperativeSticky when balance matters.
//
// Parameters:
//   - opts: Optional configuration (WithVirtualNodes, WithHashSeed)
//
// Returns:
//   - *ConsistentHash: Initialized consistent hash strategy
//
// Example:
//
//	rb := strategy.NewEager(strategy.NewConsistentHash(strategy.WithVirtualNodes(300)))
func NewConsistentHash(opts ...Option) *ConsistentHash {
	return &ConsistentHash{cfg: newRingConfig(opts)}
}

// Assign calculates partition assignments using consistent hashing.
//
// Parameters:
//   - members: List of member IDs
//   - partitions: List of partitions to assign
//
// Returns:
//   - map[string][]types.TopicPartition: Map from member ID to assigned partitions
//   - error: ErrNoMembers when members is empty
func (ch *ConsistentHash) Assign(members []string, partitions []types.TopicPartition) (map[string][]types.TopicPartition, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	ring := ch.cfg.ring(members)

	assignments := make(map[string][]types.TopicPartition, len(members))
	for _, m := range members {
		assignments[m] = []types.TopicPartition{}
	}

	for _, tp := range partitions {
		owner := ring.Owner(tp)
		if owner == "" {
			return nil, errors.New("consistent hash returned empty member")
		}
		assignments[owner] = append(assignments[owner], tp)
	}

	return assignments, nil
}
