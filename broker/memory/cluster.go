package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/arloliu/kcoop/types"
)

// ErrTopicExists is returned by CreateTopic for an existing topic with a different partition count.
var ErrTopicExists = errors.New("topic already exists")

// CommitFaultFunc decides whether a commit fails. A nil return lets it through.
type CommitFaultFunc func(groupID string, offsets map[types.TopicPartition]uint64) error

// SendFaultFunc decides whether a single record is rejected. A nil return lets it through.
type SendFaultFunc func(tp types.TopicPartition, rec types.ProducerRecord) error

// Cluster is an in-memory broker.
type Cluster struct {
	mu      sync.Mutex
	topics  map[string][][]types.ConsumerRecord
	offsets map[string]map[types.TopicPartition]uint64
	groups  map[string]*group

	// appended is closed and replaced whenever records are appended.
	appended chan struct{}

	commitFault CommitFaultFunc
	sendFault   SendFaultFunc
	sendDelay   time.Duration
	now         func() time.Time
}

var (
	_ types.ConsumerBroker = (*Cluster)(nil)
	_ types.Sender         = (*Cluster)(nil)
)

// NewCluster creates an empty cluster.
//
// Example:
//
//	cluster := memory.NewCluster()
//	_ = cluster.CreateTopic("demo_java", 3)
//	producer, _ := kcoop.NewProducer(&pcfg, cluster)
//	consumer, _ := kcoop.NewConsumer(&ccfg, cluster, handler)
func NewCluster() *Cluster {
	return &Cluster{
		topics:   make(map[string][][]types.ConsumerRecord),
		offsets:  make(map[string]map[types.TopicPartition]uint64),
		groups:   make(map[string]*group),
		appended: make(chan struct{}),
		now:      time.Now,
	}
}

// CreateTopic creates topic with the given number of partitions.
//
// Creating an existing topic with the same count is a no-op.
func (c *Cluster) CreateTopic(topic string, partitions int32) error {
	if partitions <= 0 {
		return fmt.Errorf("create %s: partitions must be positive, got %d", topic, partitions)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if logs, ok := c.topics[topic]; ok {
		if int32(len(logs)) != partitions { //nolint:gosec
			return fmt.Errorf("create %s: %w with %d partitions", topic, ErrTopicExists, len(logs))
		}

		return nil
	}
	c.topics[topic] = make([][]types.ConsumerRecord, partitions)

	return nil
}

// FailCommits installs a commit fault. Pass nil to clear it.
func (c *Cluster) FailCommits(fn CommitFaultFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.commitFault = fn
}

// FailSends installs a per-record send fault. Pass nil to clear it.
func (c *Cluster) FailSends(fn SendFaultFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sendFault = fn
}

// SetSendDelay makes every Send wait d before appending.
func (c *Cluster) SetSendDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sendDelay = d
}

// Records returns a copy of the log of tp.
func (c *Cluster) Records(tp types.TopicPartition) []types.ConsumerRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	log, err := c.logLocked(tp)
	if err != nil {
		return nil
	}

	return slices.Clone(log)
}

// Committed returns the committed offset of groupID for tp.
func (c *Cluster) Committed(groupID string, tp types.TopicPartition) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	off, ok := c.offsets[groupID][tp]

	return off, ok
}

func (c *Cluster) logLocked(tp types.TopicPartition) ([]types.ConsumerRecord, error) {
	logs, ok := c.topics[tp.Topic]
	if !ok {
		return nil, fmt.Errorf("%s: %w", tp.Topic, types.ErrUnknownTopic)
	}
	if tp.Partition < 0 || int(tp.Partition) >= len(logs) {
		return nil, fmt.Errorf("%s: %w", tp, types.ErrUnknownPartition)
	}

	return logs[tp.Partition], nil
}

// ListPartitions implements types.PartitionSource.
func (c *Cluster) ListPartitions(_ context.Context, topics []string) ([]types.TopicPartition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.TopicPartition, 0)
	for _, topic := range topics {
		logs, ok := c.topics[topic]
		if !ok {
			return nil, fmt.Errorf("%s: %w", topic, types.ErrUnknownTopic)
		}
		for p := range logs {
			out = append(out, types.TopicPartition{Topic: topic, Partition: int32(p)}) //nolint:gosec
		}
	}
	types.SortPartitions(out)

	return out, nil
}

// Partitions implements types.Sender.
func (c *Cluster) Partitions(_ context.Context, topic string) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logs, ok := c.topics[topic]
	if !ok {
		return 0, fmt.Errorf("%s: %w", topic, types.ErrUnknownTopic)
	}

	return int32(len(logs)), nil //nolint:gosec
}

// Send implements types.Sender.
//
// Records are appended in order. A record rejected by the send fault fails alone;
// the records around it are still appended.
func (c *Cluster) Send(ctx context.Context, tp types.TopicPartition, records []types.ProducerRecord) []types.DeliveryResult {
	results := make([]types.DeliveryResult, len(records))
	for i, rec := range records {
		results[i].Record = rec
	}

	c.mu.Lock()
	delay := c.sendDelay
	c.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			for i := range results {
				results[i].Err = ctx.Err()
			}

			return results
		case <-timer.C:
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.logLocked(tp); err != nil {
		for i := range results {
			results[i].Err = err
		}

		return results
	}

	appended := false
	for i, rec := range records {
		if c.sendFault != nil {
			if err := c.sendFault(tp, rec); err != nil {
				results[i].Err = err
				continue
			}
		}

		ts := rec.Timestamp
		if ts.IsZero() {
			ts = c.now()
		}
		log := c.topics[tp.Topic][tp.Partition]
		offset := uint64(len(log))
		c.topics[tp.Topic][tp.Partition] = append(log, types.ConsumerRecord{
			Topic:     tp.Topic,
			Partition: tp.Partition,
			Offset:    offset,
			Key:       slices.Clone(rec.Key),
			Value:     slices.Clone(rec.Value),
			Headers:   maps.Clone(rec.Headers),
			Timestamp: ts,
		})
		results[i].Metadata = types.RecordMetadata{Topic: tp.Topic, Partition: tp.Partition, Offset: offset, Timestamp: ts}
		appended = true
	}

	if appended {
		close(c.appended)
		c.appended = make(chan struct{})
	}

	return results
}

// Fetch implements types.Fetcher.
//
// It waits for appended records until timeout and returns early with ctx.Err()
// when ctx is cancelled.
func (c *Cluster) Fetch(
	ctx context.Context,
	positions map[types.TopicPartition]uint64,
	maxRecords int,
	timeout time.Duration,
) ([]types.ConsumerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tps := slices.Collect(maps.Keys(positions))
	types.SortPartitions(tps)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		c.mu.Lock()
		records, err := c.collectLocked(tps, positions, maxRecords)
		wait := c.appended
		c.mu.Unlock()

		if err != nil || len(records) > 0 {
			return records, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-wait:
		}
	}
}

func (c *Cluster) collectLocked(
	tps []types.TopicPartition,
	positions map[types.TopicPartition]uint64,
	maxRecords int,
) ([]types.ConsumerRecord, error) {
	var out []types.ConsumerRecord
	for _, tp := range tps {
		log, err := c.logLocked(tp)
		if err != nil {
			return nil, err
		}

		pos := positions[tp]
		if pos >= uint64(len(log)) {
			continue
		}
		for _, rec := range log[pos:] {
			if maxRecords > 0 && len(out) >= maxRecords {
				return out, nil
			}
			out = append(out, rec)
		}
	}

	return out, nil
}

// ListOffsets implements types.Fetcher. Logs are never truncated, so earliest is always 0.
func (c *Cluster) ListOffsets(_ context.Context, tps []types.TopicPartition, reset types.OffsetReset) (map[types.TopicPartition]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[types.TopicPartition]uint64, len(tps))
	for _, tp := range tps {
		log, err := c.logLocked(tp)
		if err != nil {
			return nil, err
		}
		if reset == types.OffsetResetLatest {
			out[tp] = uint64(len(log))
		} else {
			out[tp] = 0
		}
	}

	return out, nil
}

// CommitOffsets implements types.OffsetStore.
func (c *Cluster) CommitOffsets(_ context.Context, groupID string, offsets map[types.TopicPartition]uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.commitFault != nil {
		if err := c.commitFault(groupID, offsets); err != nil {
			return err
		}
	}

	stored, ok := c.offsets[groupID]
	if !ok {
		stored = make(map[types.TopicPartition]uint64, len(offsets))
		c.offsets[groupID] = stored
	}
	maps.Copy(stored, offsets)

	return nil
}

// CommittedOffsets implements types.OffsetStore.
func (c *Cluster) CommittedOffsets(_ context.Context, groupID string, tps []types.TopicPartition) (map[types.TopicPartition]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[types.TopicPartition]uint64, len(tps))
	for _, tp := range tps {
		if off, ok := c.offsets[groupID][tp]; ok {
			out[tp] = off
		}
	}

	return out, nil
}
