package bitmapindex

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/require"
)

type person struct {
	id   uint64
	team string
}

func teamIndexer() *StringIgnoreCase[person] {
	return NewStringIgnoreCase("team", func(p person) string { return p.team }, false)
}

func TestIndexEntityAndQuery(t *testing.T) {
	ix := New[person](teamIndexer())

	ix.IndexEntity(1, person{id: 1, team: "Blue"})
	ix.IndexEntity(2, person{id: 2, team: "blue"})
	ix.IndexEntity(3, person{id: 3, team: "Red"})

	blue := ix.Query(Equals("blue"))
	require.True(t, blue.Contains(1))
	require.True(t, blue.Contains(2))
	require.False(t, blue.Contains(3))
}

func TestRemoveEntityDropsEmptyBucket(t *testing.T) {
	ix := New[person](teamIndexer())
	ix.IndexEntity(1, person{id: 1, team: "Red"})
	require.Equal(t, 1, ix.KeyCount())

	ix.RemoveEntity(1, person{id: 1, team: "Red"})
	require.Equal(t, 0, ix.KeyCount())
}

func TestBitmapComposition(t *testing.T) {
	universe := roaring.New()
	universe.AddRange(1, 11) // 1..10

	a := roaring.New()
	a.AddMany([]uint32{1, 2, 3})

	notA := Not(a, universe)
	require.True(t, And(a, notA).IsEmpty())
	require.True(t, Or(a, notA).Equals(universe))

	b := roaring.New()
	b.AddMany([]uint32{3, 4, 5})
	c := roaring.New()
	c.AddMany([]uint32{1, 4})

	left := And(Or(a, b), c)
	right := Or(And(a, c), And(b, c))
	require.True(t, left.Equals(right))
}

func TestNumericIndexer(t *testing.T) {
	type item struct {
		id    uint64
		price int
	}
	ix := New[item](NewNumeric("price", func(i item) int { return i.price }, false))
	ix.IndexEntity(1, item{id: 1, price: 100})
	ix.IndexEntity(2, item{id: 2, price: 100})
	ix.IndexEntity(3, item{id: 3, price: 200})

	bm := ix.Query(Equals("100"))
	require.Equal(t, uint64(2), bm.GetCardinality())
}

func TestIdentityUniqueFlag(t *testing.T) {
	ix := NewIdentity[person]("self", func(p person) string { return p.team }, true)
	require.True(t, ix.IsSuitableAsUniqueConstraint())
}
