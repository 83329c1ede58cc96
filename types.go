package kcoop

import "github.com/arloliu/kcoop/types"

// Re-export types from the types package.
//
// Internal packages depend on `types` rather than the root package, which
// avoids import cycles while still offering kcoop.TopicPartition,
// kcoop.Logger and friends to applications.
type (
	TopicPartition      = types.TopicPartition
	PartitionAssignment = types.PartitionAssignment
	OffsetEntry         = types.OffsetEntry
	ConsumerRecord      = types.ConsumerRecord
	ProducerRecord      = types.ProducerRecord
	RecordMetadata      = types.RecordMetadata
	DeliveryResult      = types.DeliveryResult
	ConsumerState       = types.ConsumerState
	OffsetReset         = types.OffsetReset
	Membership          = types.Membership
	RebalancePlan       = types.RebalancePlan
)

// Re-export interfaces from the types package.
type (
	ConsumerBroker     = types.ConsumerBroker
	Sender             = types.Sender
	PartitionSource    = types.PartitionSource
	AssignmentStrategy = types.AssignmentStrategy
	Rebalancer         = types.Rebalancer
	MetricsCollector   = types.MetricsCollector
	Logger             = types.Logger
	Hooks              = types.Hooks
)

// Re-export constants from the types package.
const (
	StateInit        = types.StateInit
	StateSubscribed  = types.StateSubscribed
	StatePolling     = types.StatePolling
	StateRebalancing = types.StateRebalancing
	StateDraining    = types.StateDraining
	StateClosed      = types.StateClosed

	OffsetResetEarliest = types.OffsetResetEarliest
	OffsetResetLatest   = types.OffsetResetLatest

	AnyPartition = types.AnyPartition
)

// NewProducerRecord builds a record for topic with partition selection left to the producer.
func NewProducerRecord(topic, key, value string) ProducerRecord {
	return types.NewProducerRecord(topic, key, value)
}
