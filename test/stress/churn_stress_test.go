package stress_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop"
	"github.com/arloliu/kcoop/broker/natsjs"
	"github.com/arloliu/kcoop/kcooptest"
	"github.com/arloliu/kcoop/test/testutil"
	"github.com/arloliu/kcoop/types"
)

const (
	topic      = "demo_java"
	partitions = 12
	records    = 2000
)

// Random joins and leaves over JetStream with a backlog to drain. Ownership
// never overlaps and the group ends up having handled every record.
func TestStress_RandomChurnOverJetStream(t *testing.T) {
	requireStressEnabled(t)

	ctx := context.Background()
	_, nc := kcooptest.StartEmbeddedNATS(t)
	b, err := natsjs.New(ctx, nc, natsjs.Config{
		MemoryStorage:     true,
		MemberTTL:         2 * time.Second,
		HeartbeatInterval: 300 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, b.CreateTopic(ctx, topic, partitions))

	pcfg := kcoop.TestProducerConfig()
	p, err := kcoop.NewProducer(&pcfg, b)
	require.NoError(t, err)
	for i := range records {
		p.Send(ctx, kcoop.NewProducerRecord(topic, fmt.Sprintf("id_%d", i%97), fmt.Sprint(i)), nil)
	}
	require.NoError(t, p.Close(ctx))

	cfg := kcoop.TestConsumerConfig("stress", topic)
	group := testutil.NewGroup(t, b, cfg)
	group.Add()
	group.Add()

	rng := rand.New(rand.NewPCG(1, 2)) //nolint:gosec
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		ids := group.IDs()
		if len(ids) < 2 || (len(ids) < 6 && rng.IntN(2) == 0) {
			group.Add()
		} else {
			require.NoError(t, group.Stop(ids[rng.IntN(len(ids))]))
		}

		for range 10 {
			testutil.AssertNoOverlap(t, group.Assignments())
			time.Sleep(50 * time.Millisecond)
		}
	}

	group.WaitBalanced(partitions, 30*time.Second)

	require.Eventually(t, func() bool {
		seen := make(map[string]struct{})
		for _, rec := range group.Collector().Records() {
			seen[fmt.Sprintf("%s@%d", rec.TopicPartition(), rec.Offset)] = struct{}{}
		}

		return len(seen) == records
	}, 60*time.Second, 200*time.Millisecond)

	group.StopAll()

	all := make([]types.TopicPartition, 0, partitions)
	for p := range int32(partitions) {
		all = append(all, types.TopicPartition{Topic: topic, Partition: p})
	}
	committed, err := b.CommittedOffsets(ctx, "stress", all)
	require.NoError(t, err)

	var total uint64
	for _, off := range committed {
		total += off
	}
	require.Equal(t, uint64(records), total)
}
