package testutil

import (
	"fmt"
	"testing"

	"github.com/arloliu/kcoop/types"
)

// AssertAssignmentsConsistent verifies that the sum of owned partitions across
// all members equals the expected total and that no partition is owned by more
// than one member.
//
// Parameters:
//   - t: testing handle
//   - assignments: map of memberID -> slice of owned partitions
//   - expectedTotal: expected total number of unique partitions across all members
func AssertAssignmentsConsistent(t testing.TB, assignments map[string][]types.TopicPartition, expectedTotal int) {
	t.Helper()

	if err := CheckAssignments(assignments, expectedTotal); err != nil {
		t.Fatal(err)
	}
}

// AssertNoOverlap verifies that no partition is owned by more than one member.
//
// Unlike AssertAssignmentsConsistent it accepts unowned partitions, which are
// normal while a cooperative rebalance is in flight.
func AssertNoOverlap(t testing.TB, assignments map[string][]types.TopicPartition) {
	t.Helper()

	if owner, other, tp, ok := findOverlap(assignments); ok {
		t.Fatalf("partition %s owned by both %s and %s", tp, owner, other)
	}
}

// CheckAssignments is AssertAssignmentsConsistent as a predicate, for use in
// require.Eventually.
func CheckAssignments(assignments map[string][]types.TopicPartition, expectedTotal int) error {
	if owner, other, tp, ok := findOverlap(assignments); ok {
		return fmt.Errorf("partition %s owned by both %s and %s", tp, owner, other)
	}

	sum := 0
	for _, parts := range assignments {
		sum += len(parts)
	}
	if sum != expectedTotal {
		return fmt.Errorf("sum of assignments (%d) does not equal expected total (%d)", sum, expectedTotal)
	}

	return nil
}

func findOverlap(assignments map[string][]types.TopicPartition) (string, string, types.TopicPartition, bool) {
	seen := make(map[types.TopicPartition]string)
	for member, parts := range assignments {
		for _, tp := range parts {
			if owner, ok := seen[tp]; ok {
				return owner, member, tp, true
			}
			seen[tp] = member
		}
	}

	return "", "", types.TopicPartition{}, false
}
