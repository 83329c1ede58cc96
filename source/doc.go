// Package source provides built-in partition source implementations.
//
// Partition sources discover the partitions of subscribed topics. Broker backends
// implement types.PartitionSource themselves; the sources here override that
// discovery, for example to pin a consumer group to a fixed partition layout.
//
// The package includes:
//
//   - Static: fixed partition count per topic
//
// Custom sources can be implemented by satisfying the types.PartitionSource interface.
package source
