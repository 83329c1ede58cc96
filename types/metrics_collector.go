package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	ConsumerMetrics
	ProducerMetrics
}

// ConsumerMetrics defines metrics for the poll loop.
type ConsumerMetrics interface {
	// RecordStateTransition records a consumer state transition.
	//
	// Parameters:
	//   - from: Previous state
	//   - to: New state
	//   - duration: Seconds spent in the previous state
	RecordStateTransition(from, to ConsumerState, duration float64)

	// RecordRebalance records an applied rebalance.
	//
	// Parameters:
	//   - generation: Group generation the plan was computed for
	//   - revoked: Number of partitions this member released
	//   - added: Number of partitions this member gained
	//   - duration: Time taken in seconds
	RecordRebalance(generation int64, revoked, added int, duration float64)

	// RecordRecordsConsumed records records dispatched to the handler for a partition.
	RecordRecordsConsumed(tp TopicPartition, count int)

	// RecordCommit records a commit attempt.
	//
	// Parameters:
	//   - reason: Why the commit ran ("auto", "revoke", "drain", "fatal")
	//   - partitions: Number of partitions in the commit
	//   - success: true if the broker accepted it
	RecordCommit(reason string, partitions int, success bool)

	// RecordFetch records a completed fetch.
	RecordFetch(records int, duration float64)

	// SetOwnedPartitions sets the number of partitions owned by this consumer.
	SetOwnedPartitions(count int)
}

// ProducerMetrics defines metrics for the async producer.
type ProducerMetrics interface {
	// RecordDelivery records the outcome of a single record delivery.
	//
	// Parameters:
	//   - topic: Destination topic
	//   - success: true if the broker accepted the record
	//   - latency: Seconds between Send and callback
	RecordDelivery(topic string, success bool, latency float64)

	// RecordBatch records the size of a batch handed to the sender.
	RecordBatch(size int)

	// SetInFlight sets the number of records submitted but not yet resolved.
	SetInFlight(count int)
}
