package vectorclock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTickStrictlyAdvances(t *testing.T) {
	c := New()
	next := c.Tick("n1")
	require.Equal(t, uint64(0), c.At("n1"), "Tick must not mutate the receiver")
	require.Equal(t, uint64(1), next.At("n1"))
}

func TestPartialOrder(t *testing.T) {
	a := FromMap(map[string]uint64{"n1": 1, "n2": 2})
	b := FromMap(map[string]uint64{"n1": 2, "n2": 2})
	require.True(t, LessOrEqual(a, b))
	require.True(t, Less(a, b))
	require.False(t, LessOrEqual(b, a))
}

func TestConcurrent(t *testing.T) {
	a := FromMap(map[string]uint64{"n1": 2, "n2": 0})
	b := FromMap(map[string]uint64{"n1": 0, "n2": 2})
	require.True(t, Concurrent(a, b))
	require.False(t, Concurrent(a, a))
}

func TestMergeCommutativeAssociativeIdempotent(t *testing.T) {
	a := FromMap(map[string]uint64{"n1": 1, "n2": 5})
	b := FromMap(map[string]uint64{"n1": 3, "n3": 2})
	c := FromMap(map[string]uint64{"n2": 1, "n3": 9})

	require.True(t, Equal(Merge(a, b), Merge(b, a)))
	require.True(t, Equal(Merge(Merge(a, b), c), Merge(a, Merge(b, c))))
	require.True(t, Equal(Merge(a, a), a))
}

func TestLessImpliesNotConcurrent(t *testing.T) {
	a := FromMap(map[string]uint64{"n1": 1})
	b := a.Tick("n1")
	require.True(t, Less(a, b))
	require.False(t, Concurrent(a, b))
}

func TestMergeAllEmpty(t *testing.T) {
	out := MergeAll(nil)
	require.Equal(t, map[string]uint64{}, out.ToMap())
}
