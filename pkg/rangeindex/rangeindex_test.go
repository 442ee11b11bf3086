package rangeindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type intKey int

func (k intKey) Less(other Key) bool { return k < other.(intKey) }

func TestPutGetNonUnique(t *testing.T) {
	tr := New(16, false)
	require.NoError(t, tr.Put(intKey(5), 100))
	require.NoError(t, tr.Put(intKey(5), 200))

	got := tr.GetAll(intKey(5))
	require.ElementsMatch(t, []uint64{100, 200}, got)
}

func TestUniqueRejectsDuplicate(t *testing.T) {
	tr := New(16, true)
	require.NoError(t, tr.Put(intKey(1), 10))
	err := tr.Put(intKey(1), 20)
	require.Error(t, err)
}

func TestGetRangeYieldsAllValues(t *testing.T) {
	tr := New(16, false)
	for i := 0; i < 10; i++ {
		require.NoError(t, tr.Put(intKey(i), uint64(i)))
	}

	got := tr.GetRange(intKey(3), intKey(6))
	require.ElementsMatch(t, []uint64{3, 4, 5, 6}, got)
}

func TestRemoveThenGetReturnsNone(t *testing.T) {
	tr := New(16, false)
	require.NoError(t, tr.Put(intKey(1), 1))
	tr.Remove(intKey(1), nil)

	_, ok := tr.Get(intKey(1))
	require.False(t, ok)
}

func TestRemoveSpecificValue(t *testing.T) {
	tr := New(16, false)
	require.NoError(t, tr.Put(intKey(1), 1))
	require.NoError(t, tr.Put(intKey(1), 2))

	v := uint64(1)
	tr.Remove(intKey(1), &v)

	got := tr.GetAll(intKey(1))
	require.Equal(t, []uint64{2}, got)
}

func TestGreaterAndLessThan(t *testing.T) {
	tr := New(16, false)
	for i := 0; i < 5; i++ {
		require.NoError(t, tr.Put(intKey(i), uint64(i)))
	}

	gt := tr.GreaterThan(intKey(2), false)
	require.ElementsMatch(t, []uint64{3, 4}, gt)

	gte := tr.GreaterThan(intKey(2), true)
	require.ElementsMatch(t, []uint64{2, 3, 4}, gte)

	lt := tr.LessThan(intKey(2), false)
	require.ElementsMatch(t, []uint64{0, 1}, lt)

	lte := tr.LessThan(intKey(2), true)
	require.ElementsMatch(t, []uint64{0, 1, 2}, lte)
}

func TestMinMaxKey(t *testing.T) {
	tr := New(16, false)
	require.NoError(t, tr.Put(intKey(3), 3))
	require.NoError(t, tr.Put(intKey(1), 1))
	require.NoError(t, tr.Put(intKey(5), 5))

	minK, ok := tr.MinKey()
	require.True(t, ok)
	require.Equal(t, intKey(1), minK)

	maxK, ok := tr.MaxKey()
	require.True(t, ok)
	require.Equal(t, intKey(5), maxK)
}

func TestStatsTracksCounts(t *testing.T) {
	tr := New(16, false)
	tr.EnableStats()
	require.NoError(t, tr.Put(intKey(1), 1))
	_, _ = tr.Get(intKey(1))

	s := tr.Stats()
	require.Equal(t, 1, s.Count)
}
