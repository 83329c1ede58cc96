package partitioner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

func TestKeyPartition(t *testing.T) {
	t.Run("same key maps to same partition", func(t *testing.T) {
		for i := range 10 {
			key := []byte(fmt.Sprintf("id_%d", i))
			require.Equal(t, KeyPartition(key, 3), KeyPartition(key, 3))
		}
	})

	t.Run("result is within range", func(t *testing.T) {
		for i := range 1000 {
			p := KeyPartition([]byte(fmt.Sprintf("key-%d", i)), 7)
			require.GreaterOrEqual(t, p, int32(0))
			require.Less(t, p, int32(7))
		}
	})

	t.Run("single partition always zero", func(t *testing.T) {
		require.Equal(t, int32(0), KeyPartition([]byte("anything"), 1))
	})
}

func TestToPositive(t *testing.T) {
	require.Equal(t, int32(0x7fffffff), toPositive(0xffffffff))
	require.Equal(t, int32(5), toPositive(5))
	require.Equal(t, int32(0), toPositive(0x80000000))
}

func TestDefault_Partition(t *testing.T) {
	p := NewDefault()

	t.Run("keyed records use murmur2", func(t *testing.T) {
		rec := types.NewProducerRecord("demo_java", "id_3", "hello world 3")
		got, err := p.Partition(&rec, 3)
		require.NoError(t, err)
		require.Equal(t, KeyPartition([]byte("id_3"), 3), got)
	})

	t.Run("keyless records rotate per topic", func(t *testing.T) {
		a := types.NewProducerRecord("a", "", "v")
		b := types.NewProducerRecord("b", "", "v")

		seq := make([]int32, 0, 4)
		for range 4 {
			n, err := p.Partition(&a, 3)
			require.NoError(t, err)
			seq = append(seq, n)
		}
		require.Equal(t, []int32{0, 1, 2, 0}, seq)

		n, err := p.Partition(&b, 3)
		require.NoError(t, err)
		require.Equal(t, int32(0), n, "topics have independent counters")
	})

	t.Run("zero partitions is an error", func(t *testing.T) {
		rec := types.NewProducerRecord("empty", "k", "v")
		_, err := p.Partition(&rec, 0)
		require.ErrorIs(t, err, ErrNoPartitions)
	})
}
