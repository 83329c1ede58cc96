package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop"
	"github.com/arloliu/kcoop/kcooptest"
	"github.com/arloliu/kcoop/types"
)

// Group runs several consumers of one consumer group against a shared broker.
//
// All members feed a single Collector, so a test can check that every record
// was handled regardless of which member owned its partition at the time.
type Group struct {
	t         testing.TB
	broker    types.ConsumerBroker
	cfg       kcoop.ConsumerConfig
	collector *kcooptest.Collector
	opts      []kcoop.Option

	mu      sync.Mutex
	members map[string]*kcoop.Consumer
	next    int
}

// NewGroup creates an empty group. Members are stopped by t.Cleanup.
//
// Parameters:
//   - t: Testing context
//   - broker: Broker shared by all members
//   - cfg: Consumer configuration of every member
//   - opts: Extra options passed to every member
func NewGroup(t testing.TB, broker types.ConsumerBroker, cfg kcoop.ConsumerConfig, opts ...kcoop.Option) *Group {
	g := &Group{
		t:         t,
		broker:    broker,
		cfg:       cfg,
		collector: kcooptest.NewCollector(),
		opts:      opts,
		members:   make(map[string]*kcoop.Consumer),
	}
	t.Cleanup(g.StopAll)

	return g
}

// Collector returns the collector shared by all members.
func (g *Group) Collector() *kcooptest.Collector {
	return g.collector
}

// Add starts a new member and returns its ID.
func (g *Group) Add() string {
	g.t.Helper()

	g.mu.Lock()
	g.next++
	id := fmt.Sprintf("member-%d", g.next)
	g.mu.Unlock()

	opts := append([]kcoop.Option{kcoop.WithMemberID(id)}, g.opts...)
	c, err := kcoop.NewConsumer(&g.cfg, g.broker, g.collector, opts...)
	require.NoError(g.t, err)
	require.NoError(g.t, c.Start(context.Background()))

	g.mu.Lock()
	g.members[id] = c
	g.mu.Unlock()

	return id
}

// Stop stops member id and waits for it to leave.
func (g *Group) Stop(id string) error {
	g.mu.Lock()
	c, ok := g.members[id]
	delete(g.members, id)
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown member %s", id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return c.Stop(ctx)
}

// StopAll stops every member still running.
func (g *Group) StopAll() {
	for _, id := range g.IDs() {
		_ = g.Stop(id)
	}
}

// IDs returns the IDs of running members.
func (g *Group) IDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(g.members))
	for id := range g.members {
		ids = append(ids, id)
	}

	return ids
}

// Assignments returns the owned partitions of every running member.
func (g *Group) Assignments() map[string][]types.TopicPartition {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string][]types.TopicPartition, len(g.members))
	for id, c := range g.members {
		out[id] = c.Assignment()
	}

	return out
}

// WaitBalanced waits until all total partitions are owned exactly once and no
// member owns more than one partition above any other.
func (g *Group) WaitBalanced(total int, timeout time.Duration) {
	g.t.Helper()

	var last error
	ok := waitFor(timeout, func() bool {
		assignments := g.Assignments()
		if last = CheckAssignments(assignments, total); last != nil {
			return false
		}

		lo, hi := total, 0
		for _, parts := range assignments {
			lo = min(lo, len(parts))
			hi = max(hi, len(parts))
		}
		if len(assignments) > 0 && hi-lo > 1 {
			last = fmt.Errorf("unbalanced: min %d, max %d", lo, hi)
			return false
		}

		return true
	})
	if !ok {
		g.t.Fatalf("group did not balance within %v: %v", timeout, last)
	}
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}

	return cond()
}
