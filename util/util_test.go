package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeAdd(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct{ a, b, sum uint64 }{
		{0, 0, 0},
		{1, 1, 2},
		{math.MaxUint64, 0, math.MaxUint64},
		{math.MaxUint64 - 1, 1, math.MaxUint64},
	} {
		sum, ok := SafeAdd(tt.a, tt.b)
		require.True(t, ok, "%x + %x", tt.a, tt.b)
		require.Equal(t, tt.sum, sum)
	}

	for _, tt := range []struct{ a, b uint64 }{
		{math.MaxUint64, 1},
		{1, math.MaxUint64},
		{math.MaxUint64, math.MaxUint64},
	} {
		_, ok := SafeAdd(tt.a, tt.b)
		require.False(t, ok, "expected overflow for %x + %x", tt.a, tt.b)
	}
}

func TestSafeSub(t *testing.T) {
	t.Parallel()

	r, ok := SafeSub(150, 10)
	require.True(t, ok)
	require.EqualValues(t, 140, r)

	r, ok = SafeSub(math.MaxUint64, math.MaxUint64)
	require.True(t, ok)
	require.Zero(t, r)

	_, ok = SafeSub(0, 1)
	require.False(t, ok)
	_, ok = SafeSub(1, math.MaxUint64)
	require.False(t, ok)
}

func TestSortedKeys(t *testing.T) {
	m := map[string]uint64{"bob": 2, "alice": 1, "carol": 3}
	require.Equal(t, []string{"alice", "bob", "carol"}, SortedKeys(m))
	require.Empty(t, SortedKeys(map[string]int{}))
}

func TestTransformSlice(t *testing.T) {
	type entry struct {
		account string
		id      uint64
	}
	entries := []entry{{"alice", 1}, {"carol", 3}, {"bob", 2}}
	accounts := TransformSlice(entries, func(e entry) string { return e.account })
	require.Equal(t, []string{"alice", "carol", "bob"}, accounts)
}
