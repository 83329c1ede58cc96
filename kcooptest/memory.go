package kcooptest

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/kcoop/broker/memory"
	"github.com/arloliu/kcoop/types"
)

// NewCluster returns an in-memory broker with the given topics created.
func NewCluster(t testing.TB, topics map[string]int32) *memory.Cluster {
	t.Helper()

	c := memory.NewCluster()
	for topic, n := range topics {
		if err := c.CreateTopic(topic, n); err != nil {
			t.Fatalf("failed to create topic %s: %v", topic, err)
		}
	}

	return c
}

// Produce appends records with the given values to tp, failing the test on error.
func Produce(t testing.TB, sender types.Sender, tp types.TopicPartition, values ...string) {
	t.Helper()

	records := make([]types.ProducerRecord, len(values))
	for i, v := range values {
		records[i] = types.ProducerRecord{Topic: tp.Topic, Partition: tp.Partition, Value: []byte(v)}
	}

	for _, res := range sender.Send(context.Background(), tp, records) {
		if res.Err != nil {
			t.Fatalf("failed to produce to %s: %v", tp, res.Err)
		}
	}
}

// Collector is a record handler that keeps every record it receives.
//
// An optional hook runs before the record is stored; returning an error from
// it makes Handle fail without storing the record.
type Collector struct {
	mu      sync.Mutex
	records []types.ConsumerRecord
	notify  chan struct{}
	hook    func(ctx context.Context, rec *types.ConsumerRecord) error
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{notify: make(chan struct{}, 1)}
}

// OnRecord installs fn to run before each record is stored.
func (c *Collector) OnRecord(fn func(ctx context.Context, rec *types.ConsumerRecord) error) *Collector {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = fn

	return c
}

// Handle implements kcoop.RecordHandler.
func (c *Collector) Handle(ctx context.Context, rec *types.ConsumerRecord) error {
	c.mu.Lock()
	hook := c.hook
	c.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, rec); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.records = append(c.records, *rec)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}

	return nil
}

// Records returns a copy of the collected records in arrival order.
func (c *Collector) Records() []types.ConsumerRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.records)
}

// Len returns the number of collected records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.records)
}

// For returns the collected records of tp in arrival order.
func (c *Collector) For(tp types.TopicPartition) []types.ConsumerRecord {
	out := make([]types.ConsumerRecord, 0)
	for _, rec := range c.Records() {
		if rec.TopicPartition() == tp {
			out = append(out, rec)
		}
	}

	return out
}

// WaitFor blocks until at least n records were collected or timeout elapses.
//
// Returns:
//   - bool: true if n records arrived in time
func (c *Collector) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if c.Len() >= n {
			return true
		}
		select {
		case <-c.notify:
		case <-deadline.C:
			return c.Len() >= n
		}
	}
}
