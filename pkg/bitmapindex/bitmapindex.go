// Package bitmapindex implements per-indexer value→entity-id bitmaps
// with AND/OR/NOT composition, grounded on erigon-lib's use of
// RoaringBitmap for exactly this shape of posting-list problem (large
// sets of dense integer ids keyed by a secondary attribute).
package bitmapindex

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/cuemby/nebulastore/pkg/log"
)

// State mirrors spec §4.5's Building → Ready → (Mutating ↔ Ready)
// lifecycle. NebulaStore only ever observes Ready and Mutating from the
// outside; Building exists for a host that wants to bulk-load before
// any reader is let in.
type State int

const (
	Building State = iota
	Ready
	Mutating
)

// Indexer extracts a comparable key from an entity of type T. Two
// entities are bucketed together when their keys are equal after
// normalization by the concrete Indexer.
type Indexer[T any] interface {
	// Name identifies the indexer for diagnostics and constraint
	// registration.
	Name() string
	// Key extracts and normalizes the bucket key for entity e.
	Key(e T) string
	// IsSuitableAsUniqueConstraint reports whether this indexer's key
	// space can back a unique constraint (spec §4.5).
	IsSuitableAsUniqueConstraint() bool
}

// Index holds one indexer's bitmaps, one per distinct normalized key.
type Index[T any] struct {
	mu      sync.RWMutex
	indexer Indexer[T]
	state   State
	buckets map[string]*roaring.Bitmap
}

// New constructs a Ready index for the given indexer.
func New[T any](indexer Indexer[T]) *Index[T] {
	return &Index[T]{
		indexer: indexer,
		state:   Ready,
		buckets: make(map[string]*roaring.Bitmap),
	}
}

// Name returns the underlying indexer's name.
func (ix *Index[T]) Name() string { return ix.indexer.Name() }

// IsSuitableAsUniqueConstraint delegates to the underlying indexer.
func (ix *Index[T]) IsSuitableAsUniqueConstraint() bool {
	return ix.indexer.IsSuitableAsUniqueConstraint()
}

// IndexEntity applies the indexer to e and adds id to its bucket.
func (ix *Index[T]) IndexEntity(id uint64, e T) {
	key := ix.indexer.Key(e)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.state = Mutating
	defer func() { ix.state = Ready }()

	bm, ok := ix.buckets[key]
	if !ok {
		bm = roaring.New()
		ix.buckets[key] = bm
	}
	bm.Add(uint32(id))
}

// RemoveEntity removes id from its bucket, dropping the bucket entirely
// once empty (spec §4.5).
func (ix *Index[T]) RemoveEntity(id uint64, e T) {
	key := ix.indexer.Key(e)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.state = Mutating
	defer func() { ix.state = Ready }()

	bm, ok := ix.buckets[key]
	if !ok {
		return
	}
	bm.Remove(uint32(id))
	if bm.IsEmpty() {
		delete(ix.buckets, key)
		logBucketDrop(ix.indexer.Name(), key)
	}
}

// Predicate decides whether a bucket's key qualifies for inclusion in
// a Query result.
type Predicate func(key string) bool

// Equals returns a Predicate matching exactly one key.
func Equals(key string) Predicate {
	return func(k string) bool { return k == key }
}

// Query returns the union of all buckets whose key satisfies pred.
func (ix *Index[T]) Query(pred Predicate) *roaring.Bitmap {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	result := roaring.New()
	for key, bm := range ix.buckets {
		if pred(key) {
			result.Or(bm)
		}
	}
	return result
}

// KeyCount reports the number of distinct bucket keys, for diagnostics.
func (ix *Index[T]) KeyCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.buckets)
}

// And returns the intersection of a and b. Neither input is mutated.
func And(a, b *roaring.Bitmap) *roaring.Bitmap {
	return roaring.And(a, b)
}

// Or returns the union of a and b. Neither input is mutated.
func Or(a, b *roaring.Bitmap) *roaring.Bitmap {
	return roaring.Or(a, b)
}

// Not returns universe minus a. Neither input is mutated.
func Not(a, universe *roaring.Bitmap) *roaring.Bitmap {
	return roaring.AndNot(universe, a)
}

// logBucketDrop is invoked when a mutation empties a bucket; kept
// separate so tests can assert on log output without racing the
// index's own lock.
func logBucketDrop(indexName, key string) {
	log.WithMap(indexName).Debug().Str("key", key).Msg("bucket emptied, dropped")
}
