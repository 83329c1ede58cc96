package types

import "time"

// ConsumerRecord is a record fetched from a partition.
//
// Records are produced by the broker collaborator and must be treated as immutable.
type ConsumerRecord struct {
	Topic     string
	Partition int32
	Offset    uint64
	Key       []byte // nil when the record has no key
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// TopicPartition returns the partition the record was fetched from.
func (r *ConsumerRecord) TopicPartition() TopicPartition {
	return TopicPartition{Topic: r.Topic, Partition: r.Partition}
}

// KeyString returns the key decoded as UTF-8 ("" when absent).
func (r *ConsumerRecord) KeyString() string {
	return string(r.Key)
}

// ValueString returns the value decoded as UTF-8.
func (r *ConsumerRecord) ValueString() string {
	return string(r.Value)
}

// AnyPartition lets the producer choose the partition of a ProducerRecord.
const AnyPartition int32 = -1

// ProducerRecord is a record submitted to the producer.
type ProducerRecord struct {
	Topic string

	// Partition forces the target partition. AnyPartition (-1) lets the producer
	// pick one from the key hash, or round-robin when Key is nil.
	Partition int32

	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time // zero means "stamp at send time"
}

// NewProducerRecord builds a record with UTF-8 key and value and no forced partition.
//
// An empty key produces a keyless record.
func NewProducerRecord(topic, key, value string) ProducerRecord {
	rec := ProducerRecord{Topic: topic, Partition: AnyPartition, Value: []byte(value)}
	if key != "" {
		rec.Key = []byte(key)
	}

	return rec
}

// RecordMetadata is the broker-accepted position of a delivered record.
type RecordMetadata struct {
	Topic     string
	Partition int32
	Offset    uint64
	Timestamp time.Time
}

// DeliveryResult is the outcome of a single send.
//
// Exactly one of Metadata (when Err is nil) or Err is meaningful. Record is the
// originating record so callbacks can correlate results without closures.
type DeliveryResult struct {
	Record   ProducerRecord
	Metadata RecordMetadata
	Err      error
}

// Succeeded reports whether the record was accepted by the broker.
func (r DeliveryResult) Succeeded() bool {
	return r.Err == nil
}
