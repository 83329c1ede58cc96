package types

// ConsumerState represents the poll loop lifecycle state.
//
// States follow a defined progression during normal operation:
//
//	StateSubscribed → StateRebalancing → StatePolling
//
// While polling, a membership change or a shutdown request moves the loop:
//
//	StatePolling → StateRebalancing → StatePolling
//	StatePolling → StateDraining → StateClosed
//
// A fatal processing error goes straight to StateClosed. StateClosed is terminal.
type ConsumerState int

const (
	// StateInit is the state of a consumer that has not been started.
	StateInit ConsumerState = iota

	// StateSubscribed indicates the consumer joined its group and awaits its first assignment.
	StateSubscribed

	// StatePolling indicates the loop is fetching and dispatching records.
	StatePolling

	// StateRebalancing indicates a membership change is being applied.
	StateRebalancing

	// StateDraining indicates cancellation was observed and offsets are being flushed.
	StateDraining

	// StateClosed indicates the consumer left its group and released all resources.
	StateClosed
)

// String returns the string representation of the state.
func (s ConsumerState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateSubscribed:
		return "Subscribed"
	case StatePolling:
		return "Polling"
	case StateRebalancing:
		return "Rebalancing"
	case StateDraining:
		return "Draining"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// OffsetReset selects the starting position of a partition without a committed offset.
type OffsetReset string

const (
	// OffsetResetEarliest starts from the first retained record.
	OffsetResetEarliest OffsetReset = "earliest"

	// OffsetResetLatest starts after the last record at assignment time.
	OffsetResetLatest OffsetReset = "latest"
)

// Valid reports whether r is a recognized policy.
func (r OffsetReset) Valid() bool {
	return r == OffsetResetEarliest || r == OffsetResetLatest
}
