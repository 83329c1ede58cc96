package natsjs

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/kcoop/internal/backoff"
	"github.com/arloliu/kcoop/types"
)

// Fetch implements types.Fetcher.
//
// Streams are read directly by sequence. When nothing is available the call
// polls again after a jittered delay, bounded by FetchPollMax, until timeout
// elapses or ctx is cancelled.
func (b *Broker) Fetch(
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

	deadline := time.Now().Add(timeout)
	bo := backoff.New(b.cfg.FetchPollMin, b.cfg.FetchPollMax)

	for {
		records, err := b.readAvailable(ctx, tps, positions, maxRecords)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil || len(records) > 0 {
			return records, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(min(bo.Next(), remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (b *Broker) readAvailable(
	ctx context.Context,
	tps []types.TopicPartition,
	positions map[types.TopicPartition]uint64,
	maxRecords int,
) ([]types.ConsumerRecord, error) {
	var out []types.ConsumerRecord
	for _, tp := range tps {
		stream, err := b.stream(ctx, tp)
		if err != nil {
			return nil, err
		}

		for pos := positions[tp]; maxRecords <= 0 || len(out) < maxRecords; pos++ {
			msg, err := stream.GetMsg(ctx, pos+1)
			if errors.Is(err, jetstream.ErrMsgNotFound) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read %s at offset %d: %w", tp, pos, err)
			}

			rec, err := decodeRecord(tp, msg)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
	}

	return out, nil
}

// ListOffsets implements types.Fetcher.
func (b *Broker) ListOffsets(ctx context.Context, tps []types.TopicPartition, reset types.OffsetReset) (map[types.TopicPartition]uint64, error) {
	out := make(map[types.TopicPartition]uint64, len(tps))
	for _, tp := range tps {
		stream, err := b.stream(ctx, tp)
		if err != nil {
			return nil, err
		}

		info, err := stream.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe %s: %w", tp, err)
		}

		if reset == types.OffsetResetLatest {
			out[tp] = info.State.LastSeq
		} else {
			out[tp] = max(info.State.FirstSeq, 1) - 1
		}
	}

	return out, nil
}

// CommitOffsets implements types.OffsetStore.
func (b *Broker) CommitOffsets(ctx context.Context, groupID string, offsets map[types.TopicPartition]uint64) error {
	for _, tp := range sortedPartitions(offsets) {
		value := []byte(strconv.FormatUint(offsets[tp], 10))
		if _, err := b.offsets.Put(ctx, partitionKey(groupID, tp), value); err != nil {
			return fmt.Errorf("failed to commit %s for group %s: %w", tp, groupID, err)
		}
	}

	return nil
}

// CommittedOffsets implements types.OffsetStore.
func (b *Broker) CommittedOffsets(ctx context.Context, groupID string, tps []types.TopicPartition) (map[types.TopicPartition]uint64, error) {
	out := make(map[types.TopicPartition]uint64, len(tps))
	for _, tp := range tps {
		entry, err := b.offsets.Get(ctx, partitionKey(groupID, tp))
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read committed offset of %s for group %s: %w", tp, groupID, err)
		}

		off, err := strconv.ParseUint(string(entry.Value()), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt committed offset of %s for group %s: %w", tp, groupID, err)
		}
		out[tp] = off
	}

	return out, nil
}

// partitionKey is the KV key of a group's per-partition state.
func partitionKey(groupID string, tp types.TopicPartition) string {
	return fmt.Sprintf("%s.%s.%d", groupID, tp.Topic, tp.Partition)
}

func sortedPartitions[V any](m map[types.TopicPartition]V) []types.TopicPartition {
	tps := slices.Collect(maps.Keys(m))
	types.SortPartitions(tps)

	return tps
}
