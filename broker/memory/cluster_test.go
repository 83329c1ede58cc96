package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

var (
	p0 = types.TopicPartition{Topic: "demo_java", Partition: 0}
	p1 = types.TopicPartition{Topic: "demo_java", Partition: 1}
)

func newCluster(t *testing.T) *Cluster {
	t.Helper()

	c := NewCluster()
	require.NoError(t, c.CreateTopic("demo_java", 2))

	return c
}

func send(t *testing.T, c *Cluster, tp types.TopicPartition, values ...string) []types.DeliveryResult {
	t.Helper()

	recs := make([]types.ProducerRecord, 0, len(values))
	for _, v := range values {
		recs = append(recs, types.NewProducerRecord(tp.Topic, "", v))
	}

	return c.Send(context.Background(), tp, recs)
}

func TestCluster_CreateTopic(t *testing.T) {
	c := NewCluster()

	require.NoError(t, c.CreateTopic("a", 3))
	require.NoError(t, c.CreateTopic("a", 3), "same count is a no-op")
	require.ErrorIs(t, c.CreateTopic("a", 4), ErrTopicExists)
	require.Error(t, c.CreateTopic("b", 0))

	n, err := c.Partitions(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, int32(3), n)

	_, err = c.Partitions(context.Background(), "missing")
	require.ErrorIs(t, err, types.ErrUnknownTopic)
}

func TestCluster_SendAssignsSequentialOffsets(t *testing.T) {
	c := newCluster(t)

	results := send(t, c, p0, "a", "b", "c")

	for i, r := range results {
		require.NoError(t, r.Err)
		require.Equal(t, uint64(i), r.Metadata.Offset)
		require.False(t, r.Metadata.Timestamp.IsZero())
	}
	require.Len(t, c.Records(p0), 3)
	require.Empty(t, c.Records(p1))

	t.Run("unknown partition fails every record", func(t *testing.T) {
		results := send(t, c, types.TopicPartition{Topic: "demo_java", Partition: 9}, "x", "y")
		for _, r := range results {
			require.ErrorIs(t, r.Err, types.ErrUnknownPartition)
		}
	})

	t.Run("send fault rejects single records", func(t *testing.T) {
		boom := errors.New("boom")
		c.FailSends(func(_ types.TopicPartition, rec types.ProducerRecord) error {
			if string(rec.Value) == "bad" {
				return boom
			}

			return nil
		})
		defer c.FailSends(nil)

		results := send(t, c, p1, "ok", "bad", "ok")
		require.NoError(t, results[0].Err)
		require.ErrorIs(t, results[1].Err, boom)
		require.NoError(t, results[2].Err)
		require.Equal(t, uint64(1), results[2].Metadata.Offset)
	})
}

func TestCluster_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns records from positions", func(t *testing.T) {
		c := newCluster(t)
		send(t, c, p0, "a", "b", "c")
		send(t, c, p1, "d")

		recs, err := c.Fetch(ctx, map[types.TopicPartition]uint64{p0: 1, p1: 0}, 0, time.Second)

		require.NoError(t, err)
		require.Len(t, recs, 3)
		require.Equal(t, "b", recs[0].ValueString())
		require.Equal(t, "c", recs[1].ValueString())
		require.Equal(t, "d", recs[2].ValueString())
	})

	t.Run("honours max records", func(t *testing.T) {
		c := newCluster(t)
		send(t, c, p0, "a", "b", "c")

		recs, err := c.Fetch(ctx, map[types.TopicPartition]uint64{p0: 0}, 2, time.Second)

		require.NoError(t, err)
		require.Len(t, recs, 2)
	})

	t.Run("empty after timeout", func(t *testing.T) {
		c := newCluster(t)
		start := time.Now()

		recs, err := c.Fetch(ctx, map[types.TopicPartition]uint64{p0: 0}, 0, 50*time.Millisecond)

		require.NoError(t, err)
		require.Empty(t, recs)
		require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("wakes up on append", func(t *testing.T) {
		c := newCluster(t)
		go func() {
			time.Sleep(20 * time.Millisecond)
			send(t, c, p0, "late")
		}()

		recs, err := c.Fetch(ctx, map[types.TopicPartition]uint64{p0: 0}, 0, 5*time.Second)

		require.NoError(t, err)
		require.Len(t, recs, 1)
	})

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		c := newCluster(t)
		cctx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		start := time.Now()

		_, err := c.Fetch(cctx, map[types.TopicPartition]uint64{p0: 0}, 0, 10*time.Second)

		require.ErrorIs(t, err, context.Canceled)
		require.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("unknown partition", func(t *testing.T) {
		c := newCluster(t)
		_, err := c.Fetch(ctx, map[types.TopicPartition]uint64{{Topic: "nope"}: 0}, 0, time.Second)
		require.ErrorIs(t, err, types.ErrUnknownTopic)
	})
}

func TestCluster_Offsets(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t)
	send(t, c, p0, "a", "b")

	t.Run("list offsets by reset policy", func(t *testing.T) {
		earliest, err := c.ListOffsets(ctx, []types.TopicPartition{p0}, types.OffsetResetEarliest)
		require.NoError(t, err)
		require.Equal(t, uint64(0), earliest[p0])

		latest, err := c.ListOffsets(ctx, []types.TopicPartition{p0, p1}, types.OffsetResetLatest)
		require.NoError(t, err)
		require.Equal(t, map[types.TopicPartition]uint64{p0: 2, p1: 0}, latest)
	})

	t.Run("commit and read back", func(t *testing.T) {
		require.NoError(t, c.CommitOffsets(ctx, "g", map[types.TopicPartition]uint64{p0: 2}))

		got, err := c.CommittedOffsets(ctx, "g", []types.TopicPartition{p0, p1})
		require.NoError(t, err)
		require.Equal(t, map[types.TopicPartition]uint64{p0: 2}, got)

		off, ok := c.Committed("g", p0)
		require.True(t, ok)
		require.Equal(t, uint64(2), off)
	})

	t.Run("commit fault", func(t *testing.T) {
		boom := errors.New("coordinator unavailable")
		c.FailCommits(func(string, map[types.TopicPartition]uint64) error { return boom })
		defer c.FailCommits(nil)

		err := c.CommitOffsets(ctx, "g", map[types.TopicPartition]uint64{p0: 5})
		require.ErrorIs(t, err, boom)

		off, _ := c.Committed("g", p0)
		require.Equal(t, uint64(2), off)
	})
}
