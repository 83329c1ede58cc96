package source

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/arloliu/kcoop/types"
)

// Static serves a fixed partition count per topic.
type Static struct {
	mu     sync.RWMutex
	counts map[string]int32
}

var _ types.PartitionSource = (*Static)(nil)

// NewStatic creates a source from topic partition counts.
//
// Parameters:
//   - counts: Number of partitions per topic (copied)
//
// Returns:
//   - *Static: Partition source
//
// Example:
//
//	src := source.NewStatic(map[string]int32{"demo_java": 3})
//	consumer, err := kcoop.NewConsumer(&cfg, broker, handler, kcoop.WithPartitionSource(src))
func NewStatic(counts map[string]int32) *Static {
	c := maps.Clone(counts)
	if c == nil {
		c = make(map[string]int32)
	}

	return &Static{counts: c}
}

// ListPartitions returns every partition of topics, sorted.
//
// Returns:
//   - error: types.ErrUnknownTopic for a topic without a configured count
func (s *Static) ListPartitions(_ context.Context, topics []string) ([]types.TopicPartition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.TopicPartition, 0)
	for _, topic := range topics {
		n, ok := s.counts[topic]
		if !ok {
			return nil, fmt.Errorf("%s: %w", topic, types.ErrUnknownTopic)
		}
		for p := range n {
			result = append(result, types.TopicPartition{Topic: topic, Partition: p})
		}
	}
	types.SortPartitions(result)

	return result, nil
}

// Update replaces the partition count of topic. It takes effect on the next rebalance.
func (s *Static) Update(topic string, partitions int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[topic] = partitions
}
