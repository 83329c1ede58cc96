package types

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the kcoop library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap external errors with context using fmt.Errorf("%s: %w", msg, err).
//
// Error Naming Convention:
//   - Use descriptive names with Err prefix
//   - Group by component (Consumer, Producer, Engine, Broker, etc.)
//   - Use consistent messages across similar error types

// Taxonomy errors - the outcomes every component reports to its caller.
var (
	// ErrCancelled marks an expected cancellation (wakeup or shutdown). It is never a fault.
	ErrCancelled = errors.New("cancelled")

	// ErrCommitFailed is returned when offsets could not be committed.
	// Partitions are still released; records after the last commit may be delivered again.
	ErrCommitFailed = errors.New("offset commit failed")

	// ErrDeliveryFailed is reported to a producer callback when a record was not accepted.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrProcessing is returned when the application record handler fails.
	ErrProcessing = errors.New("record processing failed")

	// ErrProducerClosed is returned by Send after the producer has been closed.
	ErrProducerClosed = errors.New("producer closed")
)

// Lifecycle errors - returned by Consumer and Producer constructors and lifecycle calls.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBrokerRequired is returned when the consumer broker is nil.
	ErrBrokerRequired = errors.New("broker is required")

	// ErrHandlerRequired is returned when the record handler is nil.
	ErrHandlerRequired = errors.New("record handler is required")

	// ErrSenderRequired is returned when the producer sender is nil.
	ErrSenderRequired = errors.New("sender is required")

	// ErrAlreadyStarted is returned when Start is called on an already running consumer.
	ErrAlreadyStarted = errors.New("consumer already started")

	// ErrNotStarted is returned when operations require a started consumer.
	ErrNotStarted = errors.New("consumer not started")
)

// Engine errors - assignment engine failures.
var (
	// ErrNoMembers is returned when a rebalance is requested for an empty group.
	ErrNoMembers = errors.New("no group members available for assignment")

	// ErrUnknownStrategy is returned for an unrecognized assignment strategy identifier.
	ErrUnknownStrategy = errors.New("unknown assignment strategy")
)

// Ledger errors.
var (
	// ErrNotOwned is returned when a ledger operation targets a partition this client does not own.
	ErrNotOwned = errors.New("partition not owned")
)

// Broker errors - shared by the broker backends.
var (
	// ErrUnknownTopic is returned for a topic the broker does not know.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrUnknownPartition is returned for a partition outside the topic's range.
	ErrUnknownPartition = errors.New("unknown partition")

	// ErrUnknownMember is returned when a session references a member that left the group.
	ErrUnknownMember = errors.New("unknown group member")

	// ErrGroupClosed is returned by session operations after Leave.
	ErrGroupClosed = errors.New("group session closed")
)

// IsCancelled reports whether err represents an expected cancellation.
//
// Both the library's ErrCancelled and the standard context errors qualify, since
// broker fetches surface cancellation through their context.
//
// Parameters:
//   - err: The error to check
//
// Returns:
//   - bool: true if err is a cancellation, false otherwise
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// ProcessingError reports that the record handler failed for Record.
//
// errors.Is matches both ErrProcessing and the handler's own error.
type ProcessingError struct {
	Record *ConsumerRecord
	Err    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %s offset %d: %v",
		ErrProcessing.Error(), e.Record.TopicPartition(), e.Record.Offset, e.Err)
}

// Unwrap exposes the sentinel and the handler error.
func (e *ProcessingError) Unwrap() []error {
	return []error{ErrProcessing, e.Err}
}

// CommitError reports the offsets that failed to commit.
type CommitError struct {
	Offsets map[TopicPartition]uint64
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s for %d partitions: %v", ErrCommitFailed.Error(), len(e.Offsets), e.Err)
}

// Unwrap exposes the sentinel and the broker error.
func (e *CommitError) Unwrap() []error {
	return []error{ErrCommitFailed, e.Err}
}

// DeliveryError reports a record the broker did not accept.
type DeliveryError struct {
	Topic     string
	Partition int32
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s to %s-%d: %v", ErrDeliveryFailed.Error(), e.Topic, e.Partition, e.Err)
}

// Unwrap exposes the sentinel and the broker error.
func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailed, e.Err}
}
