package afs

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// metadataEntry is what the connector's optional cache remembers about
// a path, per spec §4.3: existence and size. Never a strong guarantee —
// an optimization only, consulted before the backend on reads and
// invalidated on every mutating op for the affected path and every
// ancestor directory entry.
type metadataEntry struct {
	exists bool
	size   int64
}

// MetadataCache is a single-lock-protected, bounded cache from a path's
// full qualified name to its last known existence/size, backed by
// hashicorp/golang-lru so bounded growth doesn't require its own
// eviction bookkeeping.
type MetadataCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, metadataEntry]
}

// NewMetadataCache builds a cache with the given entry capacity.
func NewMetadataCache(capacity int) *MetadataCache {
	if capacity <= 0 {
		capacity = 4096
	}
	c, _ := lru.New[string, metadataEntry](capacity)
	return &MetadataCache{cache: c}
}

func (m *MetadataCache) get(fqn string) (metadataEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Get(fqn)
}

func (m *MetadataCache) set(fqn string, e metadataEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(fqn, e)
}

// invalidate drops fqn and every ancestor directory entry cached under
// a prefix of fqn, per spec §4.3's "affected path and any ancestor
// directory entry" invalidation rule.
func (m *MetadataCache) invalidate(fqn string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(fqn)
	for _, key := range m.cache.Keys() {
		if key != fqn && strings.HasPrefix(fqn, key+"/") {
			m.cache.Remove(key)
		}
	}
}
