package types

import "context"

// Hooks defines callbacks for consumer lifecycle events.
//
// All hooks are optional.
//
// IMPORTANT: Hook execution behavior:
//   - OnPartitionsRevoked and OnPartitionsAssigned run synchronously on the poll
//     loop, so they can save external state before a partition moves
//   - OnStateChanged and OnError run in background goroutines and may not complete
//     before Stop() returns
//   - Hook errors are logged but don't fail consumer operations
//
// Best practices for hook implementation:
//   - Complete quickly; a slow revoke hook delays the whole group's rebalance
//   - Respect context cancellation
//   - Make hooks idempotent (may be called multiple times)
//
// Example:
//
//	hooks := &kcoop.Hooks{
//	    OnPartitionsRevoked: func(ctx context.Context, revoked []kcoop.TopicPartition) error {
//	        return cache.Evict(ctx, revoked)
//	    },
//	}
type Hooks struct {
	// OnPartitionsAssigned is called after partitions were added to this consumer.
	OnPartitionsAssigned func(ctx context.Context, added []TopicPartition) error

	// OnPartitionsRevoked is called before revoked partitions are committed and released.
	OnPartitionsRevoked func(ctx context.Context, revoked []TopicPartition) error

	// OnStateChanged is called when the consumer state transitions.
	OnStateChanged func(ctx context.Context, from, to ConsumerState) error

	// OnError is called when an error is reported (commit failures, fatal loop errors).
	OnError func(ctx context.Context, err error) error
}
