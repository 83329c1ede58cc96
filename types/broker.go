package types

import (
	"context"
	"time"
)

// Membership is a snapshot of a consumer group as seen by one member.
type Membership struct {
	GroupID  string
	MemberID string

	// Generation increases every time the coordinator publishes a new snapshot.
	Generation int64

	// Members holds the sorted IDs of all live members, including MemberID.
	Members []string

	// Current holds the partitions each live member reported owning on its last sync.
	Current []PartitionAssignment
}

// GroupCoordinator admits consumers into groups.
type GroupCoordinator interface {
	// JoinGroup registers memberID in groupID and returns its session.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - groupID: Consumer group identifier
	//   - memberID: Unique member identifier of the joining consumer
	//   - topics: Topics the member subscribes to
	//   - strategyID: Assignment strategy identifier the member will run
	//
	// Returns:
	//   - GroupSession: The member's session, carrying the initial membership
	//   - error: Join error (nil on success)
	JoinGroup(ctx context.Context, groupID, memberID string, topics []string, strategyID string) (GroupSession, error)
}

// GroupSession is one member's view of its group between JoinGroup and Leave.
type GroupSession interface {
	// Membership returns the latest snapshot observed by this session.
	Membership() Membership

	// Changes delivers a new snapshot whenever membership or ownership changes.
	// Only the latest undelivered snapshot is kept; the channel is closed after Leave.
	Changes() <-chan Membership

	// SyncAssignment reports the partitions this member now owns.
	//
	// Partitions currently owned by another live member are rejected. The accepted
	// set is returned and becomes this member's ownership on the coordinator.
	SyncAssignment(ctx context.Context, owned []TopicPartition) ([]TopicPartition, error)

	// Leave removes the member from the group and releases its partitions.
	Leave(ctx context.Context) error
}

// Fetcher reads records from partition logs.
type Fetcher interface {
	// Fetch returns records starting at the given positions.
	//
	// It blocks up to timeout when no record is available and must return early,
	// with the context's error, when ctx is cancelled.
	//
	// Parameters:
	//   - ctx: Cancellation context; cancelling it interrupts the wait
	//   - positions: Next offset to read for each owned partition
	//   - maxRecords: Upper bound on returned records (<= 0 means unbounded)
	//   - timeout: Maximum time to wait for records
	//
	// Returns:
	//   - []ConsumerRecord: Records in offset order within each partition (may be empty)
	//   - error: Fetch error or ctx.Err() on cancellation
	Fetch(ctx context.Context, positions map[TopicPartition]uint64, maxRecords int, timeout time.Duration) ([]ConsumerRecord, error)

	// ListOffsets resolves the start position of partitions according to reset.
	ListOffsets(ctx context.Context, tps []TopicPartition, reset OffsetReset) (map[TopicPartition]uint64, error)
}

// OffsetStore persists committed group offsets.
type OffsetStore interface {
	// CommitOffsets stores the next offset to consume for each partition.
	CommitOffsets(ctx context.Context, groupID string, offsets map[TopicPartition]uint64) error

	// CommittedOffsets returns the stored offsets. Partitions without a commit are absent.
	CommittedOffsets(ctx context.Context, groupID string, tps []TopicPartition) (map[TopicPartition]uint64, error)
}

// PartitionSource discovers the partitions of subscribed topics.
type PartitionSource interface {
	// ListPartitions returns every partition of the given topics, sorted.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - topics: Topics to describe
	//
	// Returns:
	//   - []TopicPartition: Discovered partitions
	//   - error: Discovery error (ErrUnknownTopic for missing topics)
	ListPartitions(ctx context.Context, topics []string) ([]TopicPartition, error)
}

// ConsumerBroker is everything the poll loop needs from a broker.
type ConsumerBroker interface {
	GroupCoordinator
	Fetcher
	OffsetStore
	PartitionSource
}

// Sender writes record batches to partitions.
type Sender interface {
	// Partitions returns the number of partitions of topic.
	Partitions(ctx context.Context, topic string) (int32, error)

	// Send writes records to tp in order.
	//
	// It returns exactly one DeliveryResult per record, in the same order. Failed
	// records carry an Err; the producer never retries them.
	Send(ctx context.Context, tp TopicPartition, records []ProducerRecord) []DeliveryResult
}
