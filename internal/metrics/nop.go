// Package metrics provides MetricsCollector implementations.
package metrics

import "github.com/arloliu/kcoop/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	consumer, err := kcoop.NewConsumer(&cfg, broker, handler, kcoop.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// ConsumerMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.ConsumerState, _ /* duration */ float64) {
}

// RecordRebalance discards the rebalance metric.
func (n *NopMetrics) RecordRebalance(_ /* generation */ int64, _ /* revoked */, _ /* added */ int, _ /* duration */ float64) {
}

// RecordRecordsConsumed discards the consumed records metric.
func (n *NopMetrics) RecordRecordsConsumed(_ types.TopicPartition, _ int) {}

// RecordCommit discards the commit metric.
func (n *NopMetrics) RecordCommit(_ /* reason */ string, _ /* partitions */ int, _ /* success */ bool) {}

// RecordFetch discards the fetch metric.
func (n *NopMetrics) RecordFetch(_ /* records */ int, _ /* duration */ float64) {}

// SetOwnedPartitions discards the owned partitions gauge.
func (n *NopMetrics) SetOwnedPartitions(_ int) {}

// ProducerMetrics implementation

// RecordDelivery discards the delivery metric.
func (n *NopMetrics) RecordDelivery(_ /* topic */ string, _ /* success */ bool, _ /* latency */ float64) {}

// RecordBatch discards the batch size metric.
func (n *NopMetrics) RecordBatch(_ int) {}

// SetInFlight discards the in-flight gauge.
func (n *NopMetrics) SetInFlight(_ int) {}
