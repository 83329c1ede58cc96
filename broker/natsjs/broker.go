package natsjs

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/kcoop/internal/kvutil"
	"github.com/arloliu/kcoop/internal/logging"
	"github.com/arloliu/kcoop/types"
)

// Record headers written by Send.
const (
	headerKey       = "Kcoop-Key"
	headerTimestamp = "Kcoop-Timestamp"
	headerPrefix    = "Kcoop-"
)

// Broker is a consumer-group broker on NATS JetStream.
//
// Every topic-partition is its own stream, so a record's offset is its stream
// sequence minus one. Topic metadata, committed offsets, group members and
// partition claims live in four KV buckets.
//
// Thread Safety:
//   - All methods are safe for concurrent use
type Broker struct {
	cfg    Config
	js     jetstream.JetStream
	logger types.Logger

	topics  jetstream.KeyValue
	offsets jetstream.KeyValue
	members jetstream.KeyValue
	owners  jetstream.KeyValue

	streams *xsync.Map[types.TopicPartition, jetstream.Stream]
	counts  *xsync.Map[string, int32]
}

var (
	_ types.ConsumerBroker = (*Broker)(nil)
	_ types.Sender         = (*Broker)(nil)
)

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the logger used for membership and heartbeat events.
func WithLogger(logger types.Logger) Option {
	return func(b *Broker) {
		b.logger = logger
	}
}

// New connects a Broker to JetStream and creates its KV buckets if needed.
//
// Parameters:
//   - ctx: Bounds bucket creation
//   - nc: NATS connection with JetStream enabled
//   - cfg: Broker configuration (zero values take defaults)
//   - opts: Optional logger
//
// Returns:
//   - *Broker: Ready broker
//   - error: Invalid configuration or bucket creation failure
//
// Example:
//
//	nc, _ := nats.Connect(nats.DefaultURL)
//	b, err := natsjs.New(ctx, nc, natsjs.Config{})
//	if err != nil {
//	    return err
//	}
//	_ = b.CreateTopic(ctx, "demo_java", 3)
func New(ctx context.Context, nc *nats.Conn, cfg Config, opts ...Option) (*Broker, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	b := &Broker{
		cfg:     cfg,
		js:      js,
		logger:  logging.NewNop(),
		streams: xsync.NewMap[types.TopicPartition, jetstream.Stream](),
		counts:  xsync.NewMap[string, int32](),
	}
	for _, opt := range opts {
		opt(b)
	}

	buckets := []struct {
		dst  *jetstream.KeyValue
		name string
		ttl  time.Duration
	}{
		{&b.topics, "topics", 0},
		{&b.offsets, "offsets", 0},
		{&b.members, "members", cfg.MemberTTL},
		{&b.owners, "owners", 0},
	}
	for _, bk := range buckets {
		kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
			Bucket:   cfg.Prefix + "-" + bk.name,
			TTL:      bk.ttl,
			History:  1,
			Storage:  cfg.storage(),
			Replicas: cfg.Replicas,
		}, cfg.SetupRetries)
		if err != nil {
			return nil, err
		}
		*bk.dst = kv
	}

	return b, nil
}

// CreateTopic creates the streams of a topic and records its partition count.
//
// Creating an existing topic with the same partition count is a no-op.
//
// Parameters:
//   - ctx: Context for cancellation
//   - topic: Topic name ([-_a-zA-Z0-9]+)
//   - partitions: Number of partitions (> 0)
//
// Returns:
//   - error: ErrInvalidConfig for bad arguments or a count mismatch
func (b *Broker) CreateTopic(ctx context.Context, topic string, partitions int32) error {
	if err := checkName("topic", topic); err != nil {
		return err
	}
	if partitions <= 0 {
		return fmt.Errorf("topic %s: partitions must be positive: %w", topic, types.ErrInvalidConfig)
	}

	for p := range partitions {
		tp := types.TopicPartition{Topic: topic, Partition: p}
		if _, err := kvutil.EnsureStreamWithRetry(ctx, b.js, jetstream.StreamConfig{
			Name:     b.streamName(tp),
			Subjects: []string{b.subject(tp)},
			Storage:  b.cfg.storage(),
			Replicas: b.cfg.Replicas,
		}, b.cfg.SetupRetries); err != nil {
			return err
		}
	}

	value := []byte(strconv.FormatInt(int64(partitions), 10))
	if _, err := b.topics.Create(ctx, topic, value); err != nil {
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("failed to register topic %s: %w", topic, err)
		}

		existing, err := b.Partitions(ctx, topic)
		if err != nil {
			return err
		}
		if existing != partitions {
			return fmt.Errorf("topic %s exists with %d partitions, not %d: %w", topic, existing, partitions, types.ErrInvalidConfig)
		}
	}
	b.counts.Store(topic, partitions)
	b.logger.Info("topic ready", "topic", topic, "partitions", partitions)

	return nil
}

// Partitions implements types.Sender.
func (b *Broker) Partitions(ctx context.Context, topic string) (int32, error) {
	if n, ok := b.counts.Load(topic); ok {
		return n, nil
	}

	entry, err := b.topics.Get(ctx, topic)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrInvalidKey) {
		return 0, fmt.Errorf("%s: %w", topic, types.ErrUnknownTopic)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up topic %s: %w", topic, err)
	}

	n, err := strconv.ParseInt(string(entry.Value()), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("corrupt partition count for topic %s: %w", topic, err)
	}
	b.counts.Store(topic, int32(n))

	return int32(n), nil
}

// ListPartitions implements types.PartitionSource.
func (b *Broker) ListPartitions(ctx context.Context, topics []string) ([]types.TopicPartition, error) {
	out := make([]types.TopicPartition, 0)
	for _, topic := range topics {
		n, err := b.Partitions(ctx, topic)
		if err != nil {
			return nil, err
		}
		for p := range n {
			out = append(out, types.TopicPartition{Topic: topic, Partition: p})
		}
	}
	types.SortPartitions(out)

	return out, nil
}

// Send implements types.Sender.
//
// Records are published one at a time in order. A failed publish fails only
// its own record.
func (b *Broker) Send(ctx context.Context, tp types.TopicPartition, records []types.ProducerRecord) []types.DeliveryResult {
	results := make([]types.DeliveryResult, len(records))
	for i, rec := range records {
		results[i].Record = rec
	}

	if err := b.checkPartition(ctx, tp); err != nil {
		for i := range results {
			results[i].Err = err
		}

		return results
	}

	for i, rec := range records {
		ts := rec.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}

		msg := nats.NewMsg(b.subject(tp))
		msg.Data = rec.Value
		for k, v := range rec.Headers {
			msg.Header.Set(k, v)
		}
		if rec.Key != nil {
			msg.Header.Set(headerKey, base64.StdEncoding.EncodeToString(rec.Key))
		}
		msg.Header.Set(headerTimestamp, ts.UTC().Format(time.RFC3339Nano))

		ack, err := b.js.PublishMsg(ctx, msg, jetstream.WithExpectStream(b.streamName(tp)))
		if err != nil {
			results[i].Err = fmt.Errorf("publish to %s: %w", tp, err)
			continue
		}
		results[i].Metadata = types.RecordMetadata{
			Topic:     tp.Topic,
			Partition: tp.Partition,
			Offset:    ack.Sequence - 1,
			Timestamp: ts,
		}
	}

	return results
}

func (b *Broker) checkPartition(ctx context.Context, tp types.TopicPartition) error {
	n, err := b.Partitions(ctx, tp.Topic)
	if err != nil {
		return err
	}
	if tp.Partition < 0 || tp.Partition >= n {
		return fmt.Errorf("%s: %w", tp, types.ErrUnknownPartition)
	}

	return nil
}

// stream returns the cached stream handle of tp.
func (b *Broker) stream(ctx context.Context, tp types.TopicPartition) (jetstream.Stream, error) {
	if s, ok := b.streams.Load(tp); ok {
		return s, nil
	}
	if err := b.checkPartition(ctx, tp); err != nil {
		return nil, err
	}

	s, err := b.js.Stream(ctx, b.streamName(tp))
	if err != nil {
		return nil, fmt.Errorf("failed to open stream of %s: %w", tp, err)
	}
	b.streams.Store(tp, s)

	return s, nil
}

func (b *Broker) streamName(tp types.TopicPartition) string {
	return fmt.Sprintf("%s_%s_%d", b.cfg.Prefix, tp.Topic, tp.Partition)
}

func (b *Broker) subject(tp types.TopicPartition) string {
	return fmt.Sprintf("%s.rec.%s.%d", b.cfg.Prefix, tp.Topic, tp.Partition)
}

func decodeRecord(tp types.TopicPartition, msg *jetstream.RawStreamMsg) (types.ConsumerRecord, error) {
	rec := types.ConsumerRecord{
		Topic:     tp.Topic,
		Partition: tp.Partition,
		Offset:    msg.Sequence - 1,
		Value:     msg.Data,
		Timestamp: msg.Time,
	}

	for k, vals := range msg.Header {
		if len(vals) == 0 {
			continue
		}
		switch {
		case k == headerKey:
			key, err := base64.StdEncoding.DecodeString(vals[0])
			if err != nil {
				return rec, fmt.Errorf("corrupt key at %s offset %d: %w", tp, rec.Offset, err)
			}
			rec.Key = key
		case k == headerTimestamp:
			if ts, err := time.Parse(time.RFC3339Nano, vals[0]); err == nil {
				rec.Timestamp = ts
			}
		case len(k) >= len(headerPrefix) && k[:len(headerPrefix)] == headerPrefix:
		default:
			if rec.Headers == nil {
				rec.Headers = make(map[string]string)
			}
			rec.Headers[k] = vals[0]
		}
	}

	return rec, nil
}
