package gigamap

import (
	"fmt"
	"sort"
	"strings"
)

// Predicate is a per-entity test used by the fluent query builder.
type Predicate[T any] func(id uint64, e T) bool

// And combines predicates with logical AND.
func And[T any](preds ...Predicate[T]) Predicate[T] {
	return func(id uint64, e T) bool {
		for _, p := range preds {
			if !p(id, e) {
				return false
			}
		}
		return true
	}
}

// Or combines predicates with logical OR.
func Or[T any](preds ...Predicate[T]) Predicate[T] {
	return func(id uint64, e T) bool {
		for _, p := range preds {
			if p(id, e) {
				return true
			}
		}
		return false
	}
}

// Query is a fluent builder over a Map's live entities, composing
// predicates via And/Or (spec §4.7). Nothing is evaluated until a
// terminal call (Execute, Count, First); Execute returns a fully
// materialised slice, not a lazy sequence.
type Query[T any] struct {
	m     *Map[T]
	pred  Predicate[T]
	skip  int
	limit int // 0 means unlimited
}

// Where starts a query filtered by pred. A nil pred matches everything.
func (m *Map[T]) Where(pred Predicate[T]) *Query[T] {
	if pred == nil {
		pred = func(uint64, T) bool { return true }
	}
	return &Query[T]{m: m, pred: pred}
}

// Skip sets the number of leading matches to discard.
func (q *Query[T]) Skip(n int) *Query[T] {
	q.skip = n
	return q
}

// Limit caps the number of matches returned; 0 means unlimited.
func (q *Query[T]) Limit(n int) *Query[T] {
	q.limit = n
	return q
}

// Result pairs an entity with its id for query output.
type Result[T any] struct {
	ID     uint64
	Entity T
}

// Execute evaluates the query over a consistent snapshot of live
// entities in ascending id order, applying skip/limit.
func (q *Query[T]) Execute() []Result[T] {
	q.m.mu.RLock()
	type idEntity struct {
		id uint64
		e  T
	}
	var all []idEntity
	for _, seg := range q.m.segments {
		for id, e := range seg.entries {
			all = append(all, idEntity{id: id, e: e})
		}
	}
	q.m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })

	var out []Result[T]
	skipped := 0
	for _, ie := range all {
		if !q.pred(ie.id, ie.e) {
			continue
		}
		if skipped < q.skip {
			skipped++
			continue
		}
		out = append(out, Result[T]{ID: ie.id, Entity: ie.e})
		if q.limit > 0 && len(out) >= q.limit {
			break
		}
	}
	return out
}

// Count is a terminal operation returning the number of matches
// (ignoring skip/limit, consistent with a count-of-filtered semantics).
func (q *Query[T]) Count() int {
	savedSkip, savedLimit := q.skip, q.limit
	q.skip, q.limit = 0, 0
	n := len(q.Execute())
	q.skip, q.limit = savedSkip, savedLimit
	return n
}

// First is a terminal operation returning the first match, if any.
func (q *Query[T]) First() (Result[T], bool) {
	saved := q.limit
	q.limit = 1
	res := q.Execute()
	q.limit = saved
	if len(res) == 0 {
		var zero Result[T]
		return zero, false
	}
	return res[0], true
}

// Iterate calls fn for every live entity in ascending id order,
// stopping early if fn returns false.
func (m *Map[T]) Iterate(fn func(id uint64, e T) bool) {
	for _, r := range m.Where(nil).Execute() {
		if !fn(r.ID, r.Entity) {
			return
		}
	}
}

// ToString formats a bounded preview of up to n live entities using
// stringify, starting from the beginning of id order.
func (m *Map[T]) ToString(n int, stringify func(T) string) string {
	return m.ToStringSkip(0, n, stringify)
}

// ToStringSkip formats a bounded preview of up to n live entities
// using stringify, after skipping the first skip matches in id order.
func (m *Map[T]) ToStringSkip(skip, n int, stringify func(T) string) string {
	results := m.Where(nil).Skip(skip).Limit(n).Execute()
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d=%s", r.ID, stringify(r.Entity))
	}
	return b.String()
}
