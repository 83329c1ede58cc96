package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

func tp(p int32) types.TopicPartition {
	return types.TopicPartition{Topic: "demo_java", Partition: p}
}

func TestAssertAssignmentsConsistent_Passes(t *testing.T) {
	assignments := map[string][]types.TopicPartition{
		"m1": {tp(0), tp(1)},
		"m2": {tp(2), tp(3)},
	}
	AssertAssignmentsConsistent(t, assignments, 4)
	AssertNoOverlap(t, assignments)
}

func TestCheckAssignments(t *testing.T) {
	require.ErrorContains(t, CheckAssignments(map[string][]types.TopicPartition{
		"m1": {tp(0)},
		"m2": {tp(0)},
	}, 1), "owned by both")

	require.ErrorContains(t, CheckAssignments(map[string][]types.TopicPartition{
		"m1": {tp(0)},
	}, 2), "expected total")

	require.NoError(t, CheckAssignments(map[string][]types.TopicPartition{}, 0))
}
