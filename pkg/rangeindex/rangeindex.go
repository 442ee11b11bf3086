// Package rangeindex implements an ordered key→value-list B-tree index
// with range queries and statistics, grounded on erigon-lib's use of
// google/btree for ordered in-memory lookups (history_reader_v3.go).
package rangeindex

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/cuemby/nebulastore/pkg/nerrs"
)

// Key is any totally-ordered key type the tree can compare.
type Key interface {
	// Less reports whether k sorts strictly before other.
	Less(other Key) bool
}

type entry struct {
	key    Key
	values []uint64
}

func (e *entry) Less(other btree.Item) bool {
	return e.key.Less(other.(*entry).key)
}

// Stats holds the running counters spec §4.6 asks for: count, average
// lookup/insert time in microseconds, and cache-hit ratio. Tree has no
// cache of its own; hits/misses are supplied by a caller-side cache
// layer (e.g. querycache) via RecordCacheLookup, so the ratio reflects
// whatever that caller chooses to report.
type Stats struct {
	Count           int
	AvgLookupMicros float64
	AvgInsertMicros float64
	CacheHitRatio   float64

	lookups      int64
	lookupMicros int64
	inserts      int64
	insertMicros int64
	cacheHits    int64
	cacheTotal   int64
}

// Tree is a reader-writer-locked B-tree index of degree d. Non-unique
// by default: put on an existing key appends to its value list unless
// Unique is set, in which case put on a duplicate key returns
// nerrs.DuplicateKey (spec §4.6, §7).
type Tree struct {
	mu         sync.RWMutex
	bt         *btree.BTree
	unique     bool
	stats      Stats
	trackStats bool
}

// New constructs an empty tree of the given B-tree degree.
func New(degree int, unique bool) *Tree {
	return &Tree{bt: btree.New(degree), unique: unique}
}

// EnableStats turns on statistics collection (spec §4.6: "collected
// when enabled").
func (t *Tree) EnableStats() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trackStats = true
}

// Put inserts value under key. Non-unique trees append to the
// existing bucket; unique trees reject a second value for the same key.
func (t *Tree) Put(key Key, value uint64) error {
	start := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	probe := &entry{key: key}
	if existing := t.bt.Get(probe); existing != nil {
		e := existing.(*entry)
		if t.unique {
			return nerrs.DuplicateKey.New("key already present")
		}
		e.values = append(e.values, value)
	} else {
		t.bt.ReplaceOrInsert(&entry{key: key, values: []uint64{value}})
	}
	t.recordInsert(time.Since(start))
	return nil
}

// Get returns the first value stored under key, if any.
func (t *Tree) Get(key Key) (uint64, bool) {
	start := time.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	item := t.bt.Get(&entry{key: key})
	t.recordLookup(time.Since(start))
	if item == nil {
		return 0, false
	}
	vals := item.(*entry).values
	if len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// GetAll returns every value stored under key.
func (t *Tree) GetAll(key Key) []uint64 {
	start := time.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	item := t.bt.Get(&entry{key: key})
	t.recordLookup(time.Since(start))
	if item == nil {
		return nil
	}
	return append([]uint64{}, item.(*entry).values...)
}

// GetRange returns all values whose key lies in [lo, hi] inclusive, in
// ascending key order. btree's AscendRange treats its upper bound as
// exclusive, so the walk stops manually once a key exceeds hi rather
// than relying on a synthetic successor key.
func (t *Tree) GetRange(lo, hi Key) []uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []uint64
	t.bt.AscendGreaterOrEqual(&entry{key: lo}, func(i btree.Item) bool {
		e := i.(*entry)
		if hi.Less(e.key) {
			return false
		}
		out = append(out, e.values...)
		return true
	})
	return out
}

// GreaterThan returns all values whose key is greater than k (or equal
// to k when inclusive is true), in ascending order.
func (t *Tree) GreaterThan(k Key, inclusive bool) []uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []uint64
	pivot := &entry{key: k}
	t.bt.AscendGreaterOrEqual(pivot, func(i btree.Item) bool {
		e := i.(*entry)
		if !inclusive && !k.Less(e.key) && !e.key.Less(k) {
			return true // skip the exact match, keep scanning
		}
		out = append(out, e.values...)
		return true
	})
	return out
}

// LessThan returns all values whose key is less than k (or equal to k
// when inclusive is true), in ascending order.
func (t *Tree) LessThan(k Key, inclusive bool) []uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []uint64
	pivot := &entry{key: k}
	t.bt.AscendLessThan(pivot, func(i btree.Item) bool {
		out = append(out, i.(*entry).values...)
		return true
	})
	if inclusive {
		if item := t.bt.Get(pivot); item != nil {
			out = append(out, item.(*entry).values...)
		}
	}
	return out
}

// MinKey returns the smallest key present, if any.
func (t *Tree) MinKey() (Key, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item := t.bt.Min()
	if item == nil {
		return nil, false
	}
	return item.(*entry).key, true
}

// MaxKey returns the largest key present, if any.
func (t *Tree) MaxKey() (Key, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item := t.bt.Max()
	if item == nil {
		return nil, false
	}
	return item.(*entry).key, true
}

// Remove deletes all values under key, or one specific value if value
// is non-nil (spec §4.6's remove(k) / remove(k,v) pair).
func (t *Tree) Remove(key Key, value *uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	probe := &entry{key: key}
	if value == nil {
		t.bt.Delete(probe)
		return
	}
	item := t.bt.Get(probe)
	if item == nil {
		return
	}
	e := item.(*entry)
	filtered := e.values[:0]
	for _, v := range e.values {
		if v != *value {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		t.bt.Delete(probe)
		return
	}
	e.values = filtered
}

// Len reports the number of distinct keys in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bt.Len()
}

func (t *Tree) recordLookup(d time.Duration) {
	if !t.trackStats {
		return
	}
	t.stats.lookups++
	t.stats.lookupMicros += d.Microseconds()
}

func (t *Tree) recordInsert(d time.Duration) {
	if !t.trackStats {
		return
	}
	t.stats.inserts++
	t.stats.insertMicros += d.Microseconds()
}

// RecordCacheLookup lets a caller-side cache report a hit/miss so
// Stats.CacheHitRatio reflects real cache behavior (the tree has no
// cache of its own).
func (t *Tree) RecordCacheLookup(hit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.trackStats {
		return
	}
	t.stats.cacheTotal++
	if hit {
		t.stats.cacheHits++
	}
}

// Stats returns a snapshot of the tree's collected statistics.
func (t *Tree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.stats
	s.Count = t.bt.Len()
	if s.lookups > 0 {
		s.AvgLookupMicros = float64(s.lookupMicros) / float64(s.lookups)
	}
	if s.inserts > 0 {
		s.AvgInsertMicros = float64(s.insertMicros) / float64(s.inserts)
	}
	if s.cacheTotal > 0 {
		s.CacheHitRatio = float64(s.cacheHits) / float64(s.cacheTotal)
	}
	return s
}
