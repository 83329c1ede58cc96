// Package strategy provides the partition assignment engines.
//
// Two rebalance protocols are available:
//
//   - CooperativeSticky: keeps every partition whose owner does not have to change,
//     revokes only the partitions that must move and hands them out one round later,
//     after the previous owner committed and released them (recommended)
//   - Eager: wraps a plain AssignmentStrategy (RoundRobin, ConsistentHash) and revokes
//     the whole assignment whenever the target differs from the current one
//
// # Strategy Selection Guide
//
// CooperativeSticky:
//   - Use for long-running consumers; unaffected partitions keep polling during a rebalance
//   - Balanced within one partition per member
//   - New placements follow an xxh3 hash ring, so replays of the same group state agree
//
// Eager(ConsistentHash):
//   - Use when partition placement must be a pure function of the member set
//
// Eager(RoundRobin):
//   - Use for simple, stateless workloads
//   - Guarantees even distribution
//   - No affinity preservation
//
// Custom protocols can be implemented by satisfying the types.Rebalancer interface.
package strategy
