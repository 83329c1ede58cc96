package types

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
)

// TopicPartition identifies a single partition of a topic.
type TopicPartition struct {
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
}

// String returns the "topic-partition" form used in logs and metric labels.
func (tp TopicPartition) String() string {
	return tp.Topic + "-" + strconv.FormatInt(int64(tp.Partition), 10)
}

// Compare orders partitions by topic, then by partition number.
//
// Returns:
//   - int: -1 if tp < other, 0 if equal, +1 if tp > other
func (tp TopicPartition) Compare(other TopicPartition) int {
	if c := cmp.Compare(tp.Topic, other.Topic); c != 0 {
		return c
	}

	return cmp.Compare(tp.Partition, other.Partition)
}

// SortPartitions sorts partitions in place by (topic, partition).
func SortPartitions(tps []TopicPartition) {
	slices.SortFunc(tps, TopicPartition.Compare)
}

// PartitionAssignment records which group member owns a partition.
//
// A partition has at most one assignment at a time. Assignments are created by the
// assignment engine during a rebalance and dropped when the partition is revoked.
type PartitionAssignment struct {
	TopicPartition

	// OwnerClientID is the member ID of the owning consumer.
	OwnerClientID string `json:"owner"`
}

// String returns a human-readable representation of the assignment.
func (a PartitionAssignment) String() string {
	return fmt.Sprintf("%s@%s", a.TopicPartition, a.OwnerClientID)
}

// SortAssignments sorts assignments in place by (topic, partition, owner).
func SortAssignments(as []PartitionAssignment) {
	slices.SortFunc(as, func(a, b PartitionAssignment) int {
		if c := a.Compare(b.TopicPartition); c != 0 {
			return c
		}

		return cmp.Compare(a.OwnerClientID, b.OwnerClientID)
	})
}

// PartitionsOf extracts the partitions of the given assignments, preserving order.
func PartitionsOf(as []PartitionAssignment) []TopicPartition {
	out := make([]TopicPartition, 0, len(as))
	for _, a := range as {
		out = append(out, a.TopicPartition)
	}

	return out
}

// OffsetEntry is the position bookkeeping for a partition owned by this client.
//
// Committed is the last offset acknowledged by the broker's offset store; Fetched is
// the next offset the poll loop will consume. Fetched is always >= Committed.
type OffsetEntry struct {
	TopicPartition

	Committed uint64 `json:"committed"`
	Fetched   uint64 `json:"fetched"`
}

// Lag returns the number of consumed but not yet committed records.
func (e OffsetEntry) Lag() uint64 {
	return e.Fetched - e.Committed
}
