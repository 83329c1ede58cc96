// Package partitioner chooses the partition of produced records.
//
// The default partitioner matches the Java Kafka client: keyed records go to
// murmur2(key) modulo the partition count, keyless records rotate round-robin.
package partitioner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aviddiviner/go-murmur"

	"github.com/arloliu/kcoop/types"
)

// murmur2Seed is the seed used by the Java client's Utils.murmur2.
const murmur2Seed uint32 = 0x9747b28c

// ErrNoPartitions is returned when a topic reports zero partitions.
var ErrNoPartitions = errors.New("topic has no partitions")

// Partitioner picks a partition for a record.
type Partitioner interface {
	// Partition returns the partition for rec among numPartitions.
	//
	// Parameters:
	//   - rec: The record being sent (Partition is AnyPartition)
	//   - numPartitions: Partition count of rec.Topic
	//
	// Returns:
	//   - int32: Chosen partition in [0, numPartitions)
	//   - error: ErrNoPartitions when numPartitions <= 0
	Partition(rec *types.ProducerRecord, numPartitions int32) (int32, error)
}

// Default hashes keyed records with murmur2 and spreads keyless ones round-robin per topic.
type Default struct {
	mu       sync.Mutex
	counters map[string]uint32
}

var _ Partitioner = (*Default)(nil)

// NewDefault creates the Java-compatible partitioner.
func NewDefault() *Default {
	return &Default{counters: make(map[string]uint32)}
}

// Partition implements Partitioner.
func (d *Default) Partition(rec *types.ProducerRecord, numPartitions int32) (int32, error) {
	if numPartitions <= 0 {
		return 0, fmt.Errorf("%s: %w", rec.Topic, ErrNoPartitions)
	}
	if rec.Key != nil {
		return KeyPartition(rec.Key, numPartitions), nil
	}

	d.mu.Lock()
	n := d.counters[rec.Topic]
	d.counters[rec.Topic] = n + 1
	d.mu.Unlock()

	return toPositive(n) % numPartitions, nil
}

// KeyPartition returns the murmur2 partition of key, as computed by the Java client.
func KeyPartition(key []byte, numPartitions int32) int32 {
	return toPositive(murmur.MurmurHash2(key, murmur2Seed)) % numPartitions
}

// toPositive returns positive value as in Java Kafka client Utils.toPositive.
func toPositive(n uint32) int32 {
	return int32(n) & 0x7fffffff //nolint:gosec // masking the sign bit is the point
}
