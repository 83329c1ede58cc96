package natsjs_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop"
	"github.com/arloliu/kcoop/broker/natsjs"
	"github.com/arloliu/kcoop/kcooptest"
)

const topic = "demo_java"

func newBroker(t *testing.T) *natsjs.Broker {
	t.Helper()

	_, nc := kcooptest.StartEmbeddedNATS(t)
	b, err := natsjs.New(context.Background(), nc, natsjs.Config{
		MemoryStorage:     true,
		MemberTTL:         time.Second,
		HeartbeatInterval: 200 * time.Millisecond,
	}, natsjs.WithLogger(kcooptest.NewTestLogger(t)))
	require.NoError(t, err)
	require.NoError(t, b.CreateTopic(context.Background(), topic, 2))

	return b
}

func startConsumer(t *testing.T, b *natsjs.Broker, memberID string, collector *kcooptest.Collector) *kcoop.Consumer {
	t.Helper()

	cfg := kcoop.TestConsumerConfig("my-third-application", topic)
	c, err := kcoop.NewConsumer(&cfg, b, collector,
		kcoop.WithMemberID(memberID),
		kcoop.WithLogger(kcooptest.NewTestLogger(t)),
	)
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Stop(ctx)
	})

	return c
}

func TestProducerToConsumerOverJetStream(t *testing.T) {
	b := newBroker(t)

	pcfg := kcoop.TestProducerConfig()
	p, err := kcoop.NewProducer(&pcfg, b, kcoop.WithLogger(kcooptest.NewTestLogger(t)))
	require.NoError(t, err)
	for i := range 10 {
		p.Send(context.Background(), kcoop.NewProducerRecord(topic, fmt.Sprintf("id_%d", i), fmt.Sprintf("hello world %d", i)), nil)
	}
	require.NoError(t, p.Close(context.Background()))

	collector := kcooptest.NewCollector()
	startConsumer(t, b, "member-a", collector)

	require.True(t, collector.WaitFor(10, 10*time.Second))
	for _, rec := range collector.Records() {
		require.Contains(t, rec.ValueString(), "hello world")
	}
}

func TestCooperativeRebalanceOverJetStream(t *testing.T) {
	b := newBroker(t)

	a := startConsumer(t, b, "member-a", kcooptest.NewCollector())
	require.Eventually(t, func() bool { return len(a.Assignment()) == 2 }, 10*time.Second, 20*time.Millisecond)

	bc := startConsumer(t, b, "member-b", kcooptest.NewCollector())
	require.Eventually(t, func() bool {
		return len(a.Assignment()) == 1 && len(bc.Assignment()) == 1
	}, 10*time.Second, 20*time.Millisecond)
	require.NotEqual(t, a.Assignment(), bc.Assignment())

	require.NoError(t, bc.Stop(context.Background()))
	require.Eventually(t, func() bool { return len(a.Assignment()) == 2 }, 10*time.Second, 20*time.Millisecond)
}
