// Package franz sends producer batches to Apache Kafka with franz-go.
package franz

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/arloliu/kcoop/types"
)

// Client is the subset of *kgo.Client the sender uses.
type Client interface {
	// ProduceSync produces records and waits for every result.
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults

	// Request issues a raw Kafka request.
	Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error)
}

// Ensure kgo.Client implements our Client interface at compile time.
var _ Client = (*kgo.Client)(nil)

// Sender implements types.Sender on a Kafka client.
//
// Partition selection happens in the kcoop producer, so the client must be
// built with kgo.ManualPartitioner; NewClient does that.
type Sender struct {
	client Client
}

var _ types.Sender = (*Sender)(nil)

// NewSender wraps client.
func NewSender(client Client) *Sender {
	return &Sender{client: client}
}

// NewClient builds a franz-go client suited to Sender.
//
// Parameters:
//   - seeds: Bootstrap brokers (e.g., "127.0.0.1:9092")
//   - clientID: Client ID reported to the brokers (empty keeps the franz-go default)
//   - opts: Extra franz-go options, applied last
//
// Returns:
//   - *kgo.Client: Client with manual partitioning
//   - error: Invalid options
func NewClient(seeds []string, clientID string, opts ...kgo.Opt) (*kgo.Client, error) {
	base := []kgo.Opt{
		kgo.SeedBrokers(seeds...),
		kgo.RecordPartitioner(kgo.ManualPartitioner()),
	}
	if clientID != "" {
		base = append(base, kgo.ClientID(clientID))
	}

	return kgo.NewClient(append(base, opts...)...)
}

// Partitions implements types.Sender with a metadata request for topic.
func (s *Sender) Partitions(ctx context.Context, topic string) (int32, error) {
	req := kmsg.NewPtrMetadataRequest()
	reqTopic := kmsg.NewMetadataRequestTopic()
	reqTopic.Topic = kmsg.StringPtr(topic)
	req.Topics = append(req.Topics, reqTopic)

	raw, err := s.client.Request(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("metadata request for %s failed: %w", topic, err)
	}
	resp, ok := raw.(*kmsg.MetadataResponse)
	if !ok {
		return 0, fmt.Errorf("unexpected metadata response type %T", raw)
	}

	for _, t := range resp.Topics {
		if t.Topic == nil || *t.Topic != topic {
			continue
		}
		if err := kerr.ErrorForCode(t.ErrorCode); err != nil {
			if errors.Is(err, kerr.UnknownTopicOrPartition) {
				return 0, fmt.Errorf("%s: %w", topic, types.ErrUnknownTopic)
			}

			return 0, fmt.Errorf("metadata for %s: %w", topic, err)
		}

		return int32(len(t.Partitions)), nil //nolint:gosec
	}

	return 0, fmt.Errorf("%s: %w", topic, types.ErrUnknownTopic)
}

// Send implements types.Sender.
//
// The batch is produced with one ProduceSync call and results are matched back
// to records by position.
func (s *Sender) Send(ctx context.Context, tp types.TopicPartition, records []types.ProducerRecord) []types.DeliveryResult {
	krs := make([]*kgo.Record, len(records))
	index := make(map[*kgo.Record]int, len(records))
	for i, rec := range records {
		kr := &kgo.Record{
			Topic:     tp.Topic,
			Partition: tp.Partition,
			Key:       rec.Key,
			Value:     rec.Value,
			Timestamp: rec.Timestamp,
		}
		for k, v := range rec.Headers {
			kr.Headers = append(kr.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
		}
		krs[i] = kr
		index[kr] = i
	}

	results := make([]types.DeliveryResult, len(records))
	for i, rec := range records {
		results[i] = types.DeliveryResult{Record: rec, Err: errMissingResult}
	}

	for _, pr := range s.client.ProduceSync(ctx, krs...) {
		i, ok := index[pr.Record]
		if !ok {
			continue
		}
		if pr.Err != nil {
			results[i].Err = pr.Err
			continue
		}
		results[i].Err = nil
		results[i].Metadata = types.RecordMetadata{
			Topic:     pr.Record.Topic,
			Partition: pr.Record.Partition,
			Offset:    uint64(pr.Record.Offset), //nolint:gosec
			Timestamp: pr.Record.Timestamp,
		}
	}

	return results
}

var errMissingResult = errors.New("no produce result for record")
