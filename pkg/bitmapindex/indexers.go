package bitmapindex

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Property indexes an entity by an arbitrary extractor's string value.
// Two entities bucket together when their extracted values are equal
// under the given equality function (spec §4.5).
type Property[T any] struct {
	name    string
	extract func(T) string
	equal   func(a, b string) bool
	unique  bool
}

// NewProperty constructs a Property indexer. equal may be nil, in
// which case exact string equality is used.
func NewProperty[T any](name string, extract func(T) string, equal func(a, b string) bool, unique bool) *Property[T] {
	if equal == nil {
		equal = func(a, b string) bool { return a == b }
	}
	return &Property[T]{name: name, extract: extract, equal: equal, unique: unique}
}

func (p *Property[T]) Name() string { return p.name }

// Key uses the extractor's raw output as the bucket identity. Callers
// whose equal function is not exact string equality should query via
// EqualsFunc rather than Equals, since bucket keys are not normalized.
func (p *Property[T]) Key(e T) string { return p.extract(e) }

func (p *Property[T]) IsSuitableAsUniqueConstraint() bool { return p.unique }

// EqualsFunc builds a Predicate against this indexer's equality
// function rather than exact key match, for indexers like
// StringIgnoreCase where bucket keys are pre-normalized but callers
// may still query with un-normalized input.
func (p *Property[T]) EqualsFunc(value string) Predicate {
	return func(k string) bool { return p.equal(k, value) }
}

// StringIgnoreCase indexes string-valued entities case-insensitively;
// bucket keys are stored lower-cased so Equals() composes directly.
type StringIgnoreCase[T any] struct {
	name    string
	extract func(T) string
	unique  bool
}

func NewStringIgnoreCase[T any](name string, extract func(T) string, unique bool) *StringIgnoreCase[T] {
	return &StringIgnoreCase[T]{name: name, extract: extract, unique: unique}
}

func (s *StringIgnoreCase[T]) Name() string { return s.name }
func (s *StringIgnoreCase[T]) Key(e T) string {
	return strings.ToLower(s.extract(e))
}
func (s *StringIgnoreCase[T]) IsSuitableAsUniqueConstraint() bool { return s.unique }

// Ordered constrains Numeric's type parameter to values with a total
// order expressible via Go's comparison operators.
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Numeric indexes an ordered numeric field. Bucket keys are formatted
// so that string Equals() composes, but range queries should use the
// companion rangeindex package instead of bitmap Predicate scans.
type Numeric[T any, N Ordered] struct {
	name    string
	extract func(T) N
	unique  bool
}

func NewNumeric[T any, N Ordered](name string, extract func(T) N, unique bool) *Numeric[T, N] {
	return &Numeric[T, N]{name: name, extract: extract, unique: unique}
}

func (n *Numeric[T, N]) Name() string { return n.name }
func (n *Numeric[T, N]) Key(e T) string {
	return fmt.Sprintf("%v", n.extract(e))
}
func (n *Numeric[T, N]) IsSuitableAsUniqueConstraint() bool { return n.unique }

// DateTime indexes a time.Time field, bucketed by its Unix tick value
// so equality is exact regardless of monotonic-clock readings or
// location (spec §4.9's DateTime-as-int64-ticks representation).
type DateTime[T any] struct {
	name    string
	extract func(T) time.Time
	unique  bool
}

func NewDateTime[T any](name string, extract func(T) time.Time, unique bool) *DateTime[T] {
	return &DateTime[T]{name: name, extract: extract, unique: unique}
}

func (d *DateTime[T]) Name() string { return d.name }
func (d *DateTime[T]) Key(e T) string {
	return strconv.FormatInt(d.extract(e).UnixNano(), 10)
}
func (d *DateTime[T]) IsSuitableAsUniqueConstraint() bool { return d.unique }

// GUID indexes a uuid.UUID field.
type GUID[T any] struct {
	name    string
	extract func(T) uuid.UUID
	unique  bool
}

func NewGUID[T any](name string, extract func(T) uuid.UUID, unique bool) *GUID[T] {
	return &GUID[T]{name: name, extract: extract, unique: unique}
}

func (g *GUID[T]) Name() string { return g.name }
func (g *GUID[T]) Key(e T) string { return g.extract(e).String() }
func (g *GUID[T]) IsSuitableAsUniqueConstraint() bool { return g.unique }

// Identity indexes the entity itself via a caller-supplied stable
// string representation. Spec §4.5 notes this is suitable as a unique
// key only when the entity implements stable equality — enforced here
// by requiring the caller to supply that representation function
// rather than falling back to %v, which is not guaranteed stable
// across struct field reordering.
type Identity[T any] struct {
	name      string
	stringify func(T) string
	unique    bool
}

func NewIdentity[T any](name string, stringify func(T) string, unique bool) *Identity[T] {
	return &Identity[T]{name: name, stringify: stringify, unique: unique}
}

func (i *Identity[T]) Name() string                       { return i.name }
func (i *Identity[T]) Key(e T) string                     { return i.stringify(e) }
func (i *Identity[T]) IsSuitableAsUniqueConstraint() bool { return i.unique }
