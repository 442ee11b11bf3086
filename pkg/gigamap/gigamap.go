// Package gigamap implements the segmented, indexed in-memory
// collection described in spec §4.7: dense id assignment, bitmap/range
// index consultation, unique and custom constraints, and a
// transactional update with deep-clone rollback. The segmented id
// space and reader-writer locking follow the teacher's FSM command
// dispatch style (pkg/manager/fsm.go's apply-then-validate shape),
// generalized from cluster log entries to arbitrary entity mutations.
package gigamap

import (
	"sync"

	"github.com/cuemby/nebulastore/pkg/log"
	"github.com/cuemby/nebulastore/pkg/metrics"
	"github.com/cuemby/nebulastore/pkg/nerrs"
)

// segmentBits controls the size of each lazily-loaded id segment: a
// flat, single-tier simplification of the exponentially-sized
// low/mid/high tiering described in spec §3. One exponent is enough to
// get the segment-floor addressing and "ids never reissued below a
// segment's floor" invariant right; see DESIGN.md for the tradeoff.
const segmentBits = 16
const segmentSize = 1 << segmentBits

// segment is a lazily-loaded contiguous block of entity slots.
type segment[T any] struct {
	floor   uint64
	entries map[uint64]T // key is the global entity id, not a local offset
}

// Constraint validates a candidate entity against the rest of the map
// before it is committed. replaced is the entity being overwritten (by
// set/update), or the zero value with hasReplaced=false on a plain add.
type Constraint[T any] interface {
	Name() string
	Check(candidate T, replaced T, hasReplaced bool, m *Map[T]) error
}

// UniqueIndexer is the key extractor a unique constraint runs over. It
// is kept decoupled from bitmapindex's generic Indexer type so gigamap
// does not need to import it; NewUniqueConstraint accepts any
// UniqueIndexer and does not consult an IsSuitableAsUniqueConstraint
// flag.
type UniqueIndexer[T any] interface {
	Name() string
	Key(e T) string
}

// uniqueConstraint enforces that no two live entities share a key
// under the wrapped indexer.
type uniqueConstraint[T any] struct {
	indexer UniqueIndexer[T]
}

// NewUniqueConstraint builds a Constraint rejecting adds/updates that
// would duplicate indexer's key across two live entities (spec §3's
// unique-constraint invariant).
func NewUniqueConstraint[T any](indexer UniqueIndexer[T]) Constraint[T] {
	return &uniqueConstraint[T]{indexer: indexer}
}

func (c *uniqueConstraint[T]) Name() string { return "unique:" + c.indexer.Name() }

func (c *uniqueConstraint[T]) Check(candidate T, replaced T, hasReplaced bool, m *Map[T]) error {
	key := c.indexer.Key(candidate)
	var replacedKey string
	if hasReplaced {
		replacedKey = c.indexer.Key(replaced)
	}
	for _, e := range m.segmentsSnapshotLocked() {
		if hasReplaced && c.indexer.Key(e) == replacedKey && replacedKey == key {
			continue // the entity being replaced does not conflict with itself
		}
		if c.indexer.Key(e) == key {
			return nerrs.WrapConstraintViolation(c.Name(), "duplicate key "+key)
		}
	}
	return nil
}

// CustomFunc adapts a predicate function into a Constraint (spec §3's
// "custom constraint: predicate (entityId, replacedEntity|⊥, newEntity)").
type CustomFunc[T any] struct {
	Label string
	Fn    func(candidate T, replaced T, hasReplaced bool) error
}

func (c CustomFunc[T]) Name() string { return c.Label }
func (c CustomFunc[T]) Check(candidate T, replaced T, hasReplaced bool, _ *Map[T]) error {
	return c.Fn(candidate, replaced, hasReplaced)
}

// Map is a GigaMap instance over entities of type T.
type Map[T any] struct {
	mu sync.RWMutex

	name          string
	segments      map[uint64]*segment[T]
	highestUsedID uint64
	freed         map[uint64]struct{} // ids removed by RemoveByID; Add never reissues them
	constraints   []Constraint[T]

	onIndex  func(id uint64, e T)
	onUnidex func(id uint64, e T)
}

// New constructs an empty Map. onIndex/onUnindex, when non-nil, are
// invoked under the map's write lock whenever an entity is added to or
// removed from the live set, so bitmap/range indices stay consistent
// with CRUD operations (spec §3's "index entry born with entity add,
// removed with entity remove").
func New[T any](name string, onIndex, onUnindex func(id uint64, e T)) *Map[T] {
	return &Map[T]{
		name:     name,
		segments: make(map[uint64]*segment[T]),
		freed:    make(map[uint64]struct{}),
		onIndex:  onIndex,
		onUnidex: onUnindex,
	}
}

// AddConstraint registers c to run on every future add/set/update.
func (m *Map[T]) AddConstraint(c Constraint[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = append(m.constraints, c)
}

func segmentFloor(id uint64) uint64 { return (id / segmentSize) * segmentSize }

func (m *Map[T]) segmentFor(id uint64, create bool) *segment[T] {
	floor := segmentFloor(id)
	seg, ok := m.segments[floor]
	if !ok {
		if !create {
			return nil
		}
		seg = &segment[T]{floor: floor, entries: make(map[uint64]T)}
		m.segments[floor] = seg
	}
	return seg
}

// checkConstraints runs every registered constraint; the first failure
// aborts with its error.
func (m *Map[T]) checkConstraints(candidate T, replaced T, hasReplaced bool) error {
	for _, c := range m.constraints {
		if err := c.Check(candidate, replaced, hasReplaced, m); err != nil {
			metrics.GigaMapConstraintViolationsTotal.WithLabelValues(m.name, c.Name()).Inc()
			return err
		}
	}
	return nil
}

// recordSizeLocked publishes the current live-entity count and
// highest-assigned id to the gigamap_entities_total/highest_used_id
// gauges. Must be called while m.mu is held.
func (m *Map[T]) recordSizeLocked() {
	n := 0
	for _, seg := range m.segments {
		n += len(seg.entries)
	}
	metrics.GigaMapEntitiesTotal.WithLabelValues(m.name).Set(float64(n))
	metrics.GigaMapHighestUsedID.WithLabelValues(m.name).Set(float64(m.highestUsedID))
}

// Add assigns a new id (highestUsedId + 1) to e after validating
// constraints, then indexes it.
func (m *Map[T]) Add(e T) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if err := m.checkConstraints(e, zero, false); err != nil {
		return 0, err
	}

	id := m.highestUsedID + 1
	m.highestUsedID = id
	seg := m.segmentFor(id, true)
	seg.entries[id] = e

	if m.onIndex != nil {
		m.onIndex(id, e)
	}
	m.recordSizeLocked()
	log.WithMap(m.name).Debug().Uint64("id", id).Msg("entity added")
	return id, nil
}

// Get retrieves the live entity at id.
func (m *Map[T]) Get(id uint64) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var zero T
	seg := m.segmentFor(id, false)
	if seg == nil {
		return zero, false
	}
	e, ok := seg.entries[id]
	return e, ok
}

// RemoveByID unregisters id from indices and records it in the freed
// set. The id is not reissued: Add always assigns highestUsedID + 1.
func (m *Map[T]) RemoveByID(id uint64) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	seg := m.segmentFor(id, false)
	if seg == nil {
		return zero, false
	}
	e, ok := seg.entries[id]
	if !ok {
		return zero, false
	}
	delete(seg.entries, id)
	m.freed[id] = struct{}{}

	if m.onUnidex != nil {
		m.onUnidex(id, e)
	}
	m.recordSizeLocked()
	log.WithMap(m.name).Debug().Uint64("id", id).Msg("entity removed")
	return e, true
}

// Remove locates id via identity equality over the live set and
// removes it. equal compares two entities for identity (e.g. pointer
// equality for reference types).
func (m *Map[T]) Remove(e T, equal func(a, b T) bool) (uint64, bool) {
	m.mu.Lock()
	id, ok := m.findIDLocked(e, equal)
	m.mu.Unlock()
	if !ok {
		return 0, false
	}
	_, removed := m.RemoveByID(id)
	return id, removed
}

func (m *Map[T]) findIDLocked(target T, equal func(a, b T) bool) (uint64, bool) {
	for _, seg := range m.segments {
		for id, e := range seg.entries {
			if equal(e, target) {
				return id, true
			}
		}
	}
	return 0, false
}

// Set requires id to already exist, runs constraints with the current
// entity as the replaced value, and replaces it in place (spec §4.7).
func (m *Map[T]) Set(id uint64, newEntity T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seg := m.segmentFor(id, false)
	if seg == nil {
		return nerrs.ConstraintViolation.New("set: id %d does not exist", id)
	}
	current, ok := seg.entries[id]
	if !ok {
		return nerrs.ConstraintViolation.New("set: id %d does not exist", id)
	}

	if err := m.checkConstraints(newEntity, current, true); err != nil {
		return err
	}

	if m.onUnidex != nil {
		m.onUnidex(id, current)
	}
	seg.entries[id] = newEntity
	if m.onIndex != nil {
		m.onIndex(id, newEntity)
	}
	return nil
}

// Replace forbids current ≡ new (pointer/identity equality, via equal)
// and otherwise behaves as Set(idOf(current), newEntity).
func (m *Map[T]) Replace(current, newEntity T, equal func(a, b T) bool) error {
	if equal(current, newEntity) {
		return nerrs.ConstraintViolation.New("replace: current and new are identical")
	}
	m.mu.Lock()
	id, ok := m.findIDLocked(current, equal)
	m.mu.Unlock()
	if !ok {
		return nerrs.ConstraintViolation.New("replace: current entity not found")
	}
	return m.Set(id, newEntity)
}

// CloneFunc deep-clones an entity's indexable state so Update can roll
// back a failed mutation. Callers register one per entity type; there
// is no reflection-based fallback, mirroring spec §4.7's requirement
// that rollback is exact ("deep clone of indexable fields").
type CloneFunc[T any] func(e T) T

// Update runs mutator against a deep clone of the entity at id,
// re-validates constraints, and on success re-indexes; on failure
// (mutator error or constraint violation) the live entity is left
// completely untouched — this is the transactional property spec §8
// tests ("failing mutators leave no trace in the indices").
func (m *Map[T]) Update(id uint64, clone CloneFunc[T], mutator func(e *T) error) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.GigaMapUpdateDuration, m.name)

	m.mu.Lock()
	defer m.mu.Unlock()

	seg := m.segmentFor(id, false)
	if seg == nil {
		return nerrs.ConstraintViolation.New("update: id %d does not exist", id)
	}
	current, ok := seg.entries[id]
	if !ok {
		return nerrs.ConstraintViolation.New("update: id %d does not exist", id)
	}

	working := clone(current)
	if err := mutator(&working); err != nil {
		metrics.GigaMapUpdateRollbacksTotal.WithLabelValues(m.name).Inc()
		return err // live state untouched; working was a private copy
	}

	if err := m.checkConstraints(working, current, true); err != nil {
		metrics.GigaMapUpdateRollbacksTotal.WithLabelValues(m.name).Inc()
		return err // rollback is implicit: current was never overwritten
	}

	if m.onUnidex != nil {
		m.onUnidex(id, current)
	}
	seg.entries[id] = working
	if m.onIndex != nil {
		m.onIndex(id, working)
	}
	return nil
}

// Apply is a read-only functional projection over the live entity at id.
func (m *Map[T]) Apply(id uint64, fn func(e T)) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seg := m.segmentFor(id, false)
	if seg == nil {
		return false
	}
	e, ok := seg.entries[id]
	if ok {
		fn(e)
	}
	return ok
}

// Len reports the number of live entities.
func (m *Map[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, seg := range m.segments {
		n += len(seg.entries)
	}
	return n
}

// HighestUsedID returns the highest id ever assigned.
func (m *Map[T]) HighestUsedID() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.highestUsedID
}

// segmentsSnapshotLocked returns every live entity, for use by
// constraints that already hold m.mu (via Check's m parameter). It
// must only be called while m.mu is held by the caller.
func (m *Map[T]) segmentsSnapshotLocked() []T {
	n := 0
	for _, seg := range m.segments {
		n += len(seg.entries)
	}
	out := make([]T, 0, n)
	for _, seg := range m.segments {
		for _, e := range seg.entries {
			out = append(out, e)
		}
	}
	return out
}

// Release drops a segment's materialized entries, preserving the fact
// that the segment exists (so subsequent lookups find it empty rather
// than reporting stale data). Spec §4.7's release operation is
// intended for lazily-loaded, backing-store-resident segments; this
// in-memory-only Map treats release as an explicit eviction hint a
// host can wire to an external loader, not a guarantee of memory
// reclamation within a single process.
func (m *Map[T]) Release(segmentFloorID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	floor := segmentFloor(segmentFloorID)
	if seg, ok := m.segments[floor]; ok {
		seg.entries = make(map[uint64]T)
	}
}
