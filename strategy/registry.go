package strategy

import (
	"fmt"

	"github.com/arloliu/kcoop/types"
)

// Assignment strategy identifiers accepted in configuration.
const (
	CooperativeStickyID = "cooperative-sticky"
	RoundRobinID        = "round-robin"
	ConsistentHashID    = "consistent-hash"
)

// IDs returns every recognized strategy identifier.
func IDs() []string {
	return []string{CooperativeStickyID, RoundRobinID, ConsistentHashID}
}

// ForID returns the rebalance protocol registered under id.
//
// Parameters:
//   - id: Strategy identifier from configuration
//   - opts: Ring options for ring-based strategies
//
// Returns:
//   - types.Rebalancer: The protocol implementation
//   - error: types.ErrUnknownStrategy for unrecognized identifiers
func ForID(id string, opts ...Option) (types.Rebalancer, error) {
	switch id {
	case CooperativeStickyID:
		return NewCooperativeSticky(opts...), nil
	case RoundRobinID:
		return NewEager(NewRoundRobin()), nil
	case ConsistentHashID:
		return NewEager(NewConsistentHash(opts...)), nil
	default:
		return nil, fmt.Errorf("%q: %w", id, types.ErrUnknownStrategy)
	}
}
