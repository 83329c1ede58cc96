// Package types provides core type definitions and interfaces for the kcoop library.
//
// This package contains shared types that are used across multiple packages in the
// kcoop library. By keeping these types in a separate package, the broker backends,
// the assignment engine and the internal helpers can depend on them without importing
// the root kcoop package.
//
// Key types:
//   - TopicPartition, PartitionAssignment: partition identity and ownership
//   - OffsetEntry: committed/fetched position of an owned partition
//   - ConsumerRecord, ProducerRecord, DeliveryResult: record flow
//   - ConsumerState: poll loop lifecycle state
//   - ConsumerBroker, Sender: broker collaborator contracts
//   - Logger, MetricsCollector, Hooks: ambient integration points
package types
