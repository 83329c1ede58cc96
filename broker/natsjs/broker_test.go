package natsjs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/kcooptest"
	"github.com/arloliu/kcoop/types"
)

const testTopic = "demo_java"

func tp(p int32) types.TopicPartition {
	return types.TopicPartition{Topic: testTopic, Partition: p}
}

func newTestBroker(t *testing.T, partitions int32) *Broker {
	t.Helper()

	_, nc := kcooptest.StartEmbeddedNATS(t)
	cfg := Config{
		MemoryStorage:     true,
		MemberTTL:         time.Second,
		HeartbeatInterval: 200 * time.Millisecond,
	}
	b, err := New(context.Background(), nc, cfg, WithLogger(kcooptest.NewTestLogger(t)))
	require.NoError(t, err)
	require.NoError(t, b.CreateTopic(context.Background(), testTopic, partitions))

	return b
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	require.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())

	bad := DefaultConfig()
	bad.MemberTTL = bad.HeartbeatInterval
	require.ErrorContains(t, bad.Validate(), "memberTtl")

	bad = DefaultConfig()
	bad.Prefix = "kcoop.bad"
	require.ErrorContains(t, bad.Validate(), "prefix")

	bad = DefaultConfig()
	bad.FetchPollMax = time.Millisecond
	require.Error(t, bad.Validate())
}

func TestBroker_Topics(t *testing.T) {
	b := newTestBroker(t, 3)
	ctx := context.Background()

	n, err := b.Partitions(ctx, testTopic)
	require.NoError(t, err)
	require.Equal(t, int32(3), n)

	require.NoError(t, b.CreateTopic(ctx, testTopic, 3), "same count is a no-op")
	require.ErrorIs(t, b.CreateTopic(ctx, testTopic, 4), types.ErrInvalidConfig)
	require.ErrorIs(t, b.CreateTopic(ctx, "bad.topic", 1), types.ErrInvalidConfig)
	require.ErrorIs(t, b.CreateTopic(ctx, "empty", 0), types.ErrInvalidConfig)

	_, err = b.Partitions(ctx, "missing")
	require.ErrorIs(t, err, types.ErrUnknownTopic)

	tps, err := b.ListPartitions(ctx, []string{testTopic})
	require.NoError(t, err)
	require.Equal(t, []types.TopicPartition{tp(0), tp(1), tp(2)}, tps)

	_, err = b.ListPartitions(ctx, []string{testTopic, "missing"})
	require.ErrorIs(t, err, types.ErrUnknownTopic)
}

func TestBroker_SendAndFetch(t *testing.T) {
	b := newTestBroker(t, 2)
	ctx := context.Background()

	records := make([]types.ProducerRecord, 3)
	for i := range records {
		records[i] = types.NewProducerRecord(testTopic, fmt.Sprintf("id_%d", i), fmt.Sprintf("hello world %d", i))
	}
	records[1].Headers = map[string]string{"trace": "abc"}
	records[2].Key = nil

	results := b.Send(ctx, tp(1), records)
	require.Len(t, results, 3)
	for i, res := range results {
		require.NoError(t, res.Err)
		require.Equal(t, uint64(i), res.Metadata.Offset) //nolint:gosec
		require.Equal(t, int32(1), res.Metadata.Partition)
	}

	got, err := b.Fetch(ctx, map[types.TopicPartition]uint64{tp(0): 0, tp(1): 0}, 0, time.Second)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "id_0", string(got[0].Key))
	require.Equal(t, "hello world 0", got[0].ValueString())
	require.Equal(t, "abc", got[1].Headers["trace"])
	require.Nil(t, got[2].Key)
	require.Equal(t, uint64(2), got[2].Offset)
	require.False(t, got[0].Timestamp.IsZero())

	limited, err := b.Fetch(ctx, map[types.TopicPartition]uint64{tp(1): 1}, 1, time.Second)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, uint64(1), limited[0].Offset)
}

func TestBroker_SendUnknownPartition(t *testing.T) {
	b := newTestBroker(t, 1)

	results := b.Send(context.Background(), tp(5), []types.ProducerRecord{types.NewProducerRecord(testTopic, "k", "v")})
	require.ErrorIs(t, results[0].Err, types.ErrUnknownPartition)
}

func TestBroker_FetchWaitsForRecords(t *testing.T) {
	b := newTestBroker(t, 1)
	ctx := context.Background()

	t.Run("empty fetch returns after timeout", func(t *testing.T) {
		start := time.Now()
		got, err := b.Fetch(ctx, map[types.TopicPartition]uint64{tp(0): 0}, 10, 150*time.Millisecond)
		require.NoError(t, err)
		require.Empty(t, got)
		require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	})

	t.Run("record appended while waiting is returned", func(t *testing.T) {
		go func() {
			time.Sleep(100 * time.Millisecond)
			b.Send(ctx, tp(0), []types.ProducerRecord{types.NewProducerRecord(testTopic, "k", "late")})
		}()

		got, err := b.Fetch(ctx, map[types.TopicPartition]uint64{tp(0): 0}, 10, 5*time.Second)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "late", got[0].ValueString())
	})

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		time.AfterFunc(50*time.Millisecond, cancel)

		start := time.Now()
		_, err := b.Fetch(cctx, map[types.TopicPartition]uint64{tp(0): 1}, 10, 5*time.Second)
		require.ErrorIs(t, err, context.Canceled)
		require.Less(t, time.Since(start), time.Second)
	})
}

func TestBroker_Offsets(t *testing.T) {
	b := newTestBroker(t, 2)
	ctx := context.Background()

	b.Send(ctx, tp(0), []types.ProducerRecord{
		types.NewProducerRecord(testTopic, "", "a"),
		types.NewProducerRecord(testTopic, "", "b"),
	})

	earliest, err := b.ListOffsets(ctx, []types.TopicPartition{tp(0), tp(1)}, types.OffsetResetEarliest)
	require.NoError(t, err)
	require.Equal(t, map[types.TopicPartition]uint64{tp(0): 0, tp(1): 0}, earliest)

	latest, err := b.ListOffsets(ctx, []types.TopicPartition{tp(0), tp(1)}, types.OffsetResetLatest)
	require.NoError(t, err)
	require.Equal(t, map[types.TopicPartition]uint64{tp(0): 2, tp(1): 0}, latest)

	committed, err := b.CommittedOffsets(ctx, "my-group", []types.TopicPartition{tp(0)})
	require.NoError(t, err)
	require.Empty(t, committed)

	require.NoError(t, b.CommitOffsets(ctx, "my-group", map[types.TopicPartition]uint64{tp(0): 2, tp(1): 0}))
	require.NoError(t, b.CommitOffsets(ctx, "other-group", map[types.TopicPartition]uint64{tp(0): 1}))

	committed, err = b.CommittedOffsets(ctx, "my-group", []types.TopicPartition{tp(0), tp(1)})
	require.NoError(t, err)
	require.Equal(t, map[types.TopicPartition]uint64{tp(0): 2, tp(1): 0}, committed)
}
