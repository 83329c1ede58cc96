// Package ledger tracks committed and consumed offsets of owned partitions.
//
// The poll loop is the only writer. Readers such as metrics or Consumer.Offsets
// may run concurrently, so entries live in an xsync.Map and every update is a
// single atomic Compute.
package ledger

import (
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/kcoop/types"
)

// Ledger holds one OffsetEntry per owned partition.
type Ledger struct {
	entries *xsync.Map[types.TopicPartition, types.OffsetEntry]
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{entries: xsync.NewMap[types.TopicPartition, types.OffsetEntry]()}
}

// Assign starts tracking tp at start, which is both the committed and the next
// offset to consume. Assigning an already tracked partition keeps its entry.
//
// Returns:
//   - bool: true if tp was newly tracked
func (l *Ledger) Assign(tp types.TopicPartition, start uint64) bool {
	_, loaded := l.entries.LoadOrStore(tp, types.OffsetEntry{TopicPartition: tp, Committed: start, Fetched: start})

	return !loaded
}

// Advance records next as the next offset to consume for tp.
//
// The position never moves backwards; a lower next is ignored.
//
// Returns:
//   - error: types.ErrNotOwned when tp is not tracked
func (l *Ledger) Advance(tp types.TopicPartition, next uint64) error {
	owned := true
	l.entries.Compute(tp, func(e types.OffsetEntry, loaded bool) (types.OffsetEntry, xsync.ComputeOp) {
		if !loaded {
			owned = false
			return e, xsync.CancelOp
		}
		if next <= e.Fetched {
			return e, xsync.CancelOp
		}
		e.Fetched = next

		return e, xsync.UpdateOp
	})
	if !owned {
		return fmt.Errorf("advance %s: %w", tp, types.ErrNotOwned)
	}

	return nil
}

// Position returns the next offset to consume for tp.
func (l *Ledger) Position(tp types.TopicPartition) (uint64, bool) {
	e, ok := l.entries.Load(tp)

	return e.Fetched, ok
}

// Positions returns the next offset to consume for every owned partition.
func (l *Ledger) Positions() map[types.TopicPartition]uint64 {
	out := make(map[types.TopicPartition]uint64, l.entries.Size())
	l.entries.Range(func(tp types.TopicPartition, e types.OffsetEntry) bool {
		out[tp] = e.Fetched
		return true
	})

	return out
}

// Uncommitted returns the consumed positions that are ahead of their commit.
//
// Parameters:
//   - tps: Partitions to inspect; all owned partitions when empty
//
// Returns:
//   - map[types.TopicPartition]uint64: Offsets to commit, keyed by partition
func (l *Ledger) Uncommitted(tps ...types.TopicPartition) map[types.TopicPartition]uint64 {
	out := make(map[types.TopicPartition]uint64)
	collect := func(e types.OffsetEntry) {
		if e.Fetched > e.Committed {
			out[e.TopicPartition] = e.Fetched
		}
	}

	if len(tps) == 0 {
		l.entries.Range(func(_ types.TopicPartition, e types.OffsetEntry) bool {
			collect(e)
			return true
		})

		return out
	}

	for _, tp := range tps {
		if e, ok := l.entries.Load(tp); ok {
			collect(e)
		}
	}

	return out
}

// MarkCommitted raises the committed offset of each partition.
//
// Offsets are capped at the consumed position so Fetched >= Committed always
// holds; lower offsets and untracked partitions are ignored.
func (l *Ledger) MarkCommitted(offsets map[types.TopicPartition]uint64) {
	for tp, off := range offsets {
		l.entries.Compute(tp, func(e types.OffsetEntry, loaded bool) (types.OffsetEntry, xsync.ComputeOp) {
			if !loaded || off <= e.Committed {
				return e, xsync.CancelOp
			}
			e.Committed = min(off, e.Fetched)

			return e, xsync.UpdateOp
		})
	}
}

// Release stops tracking the given partitions and returns their final entries, sorted.
func (l *Ledger) Release(tps ...types.TopicPartition) []types.OffsetEntry {
	out := make([]types.OffsetEntry, 0, len(tps))
	for _, tp := range tps {
		if e, ok := l.entries.LoadAndDelete(tp); ok {
			out = append(out, e)
		}
	}
	sortEntries(out)

	return out
}

// Owned returns the tracked partitions, sorted.
func (l *Ledger) Owned() []types.TopicPartition {
	out := make([]types.TopicPartition, 0, l.entries.Size())
	l.entries.Range(func(tp types.TopicPartition, _ types.OffsetEntry) bool {
		out = append(out, tp)
		return true
	})
	types.SortPartitions(out)

	return out
}

// Snapshot returns a copy of every entry, sorted by partition.
func (l *Ledger) Snapshot() []types.OffsetEntry {
	out := make([]types.OffsetEntry, 0, l.entries.Size())
	l.entries.Range(func(_ types.TopicPartition, e types.OffsetEntry) bool {
		out = append(out, e)
		return true
	})
	sortEntries(out)

	return out
}

// Len returns the number of tracked partitions.
func (l *Ledger) Len() int {
	return l.entries.Size()
}

func sortEntries(es []types.OffsetEntry) {
	slices.SortFunc(es, func(a, b types.OffsetEntry) int {
		return a.Compare(b.TopicPartition)
	})
}
