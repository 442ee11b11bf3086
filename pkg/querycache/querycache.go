// Package querycache implements the compressed query-result cache of
// spec §4.8: querySignature → CompressedResult, with TTL expiry,
// capacity-based oldest-eviction, and a periodic sweep. Compression
// uses klauspost/compress's zstd encoder, the same library dependency
// the teacher and the rest of the example pack already carry. The
// periodic sweep's Start/Stop goroutine-plus-ticker shape is adapted
// from the teacher's pkg/metrics.Collector.
package querycache

import (
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/cuemby/nebulastore/pkg/log"
	"github.com/cuemby/nebulastore/pkg/metrics"
)

// Level selects a compression/speed tradeoff (spec §4.8).
type Level int

const (
	None Level = iota
	Fastest
	Optimal
	SmallestSize
)

func (l Level) encoderLevel() zstd.EncoderLevel {
	switch l {
	case Fastest:
		return zstd.SpeedFastest
	case SmallestSize:
		return zstd.SpeedBestCompression
	case Optimal:
		return zstd.SpeedDefault
	default:
		return zstd.SpeedDefault
	}
}

// sweepInterval is the periodic-sweep period spec §4.8 fixes at 5 minutes.
const sweepInterval = 5 * time.Minute

// entry is one cached, compressed query result.
type entry struct {
	compressed   []byte
	originalSize int
	level        Level
	compressedAt time.Time
	expiry       time.Duration
}

func (e *entry) isExpired(now time.Time) bool {
	return now.Sub(e.compressedAt) > e.expiry
}

// Cache maps a query signature to its compressed result, bounded by
// maxCacheSize and swept for expired entries every 5 minutes.
type Cache struct {
	mu           sync.Mutex
	entries      map[string]*entry
	maxCacheSize int
	defaultTTL   time.Duration

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	stopCh chan struct{}
}

// New constructs a Cache. maxCacheSize bounds the number of entries;
// defaultTTL is used when Put is called without an explicit ttl.
func New(maxCacheSize int, defaultTTL time.Duration) (*Cache, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &Cache{
		entries:      make(map[string]*entry),
		maxCacheSize: maxCacheSize,
		defaultTTL:   defaultTTL,
		encoder:      enc,
		decoder:      dec,
	}, nil
}

// Put compresses payload at the given level and stores it under
// signature, evicting the oldest entry first if the cache is at
// capacity. ttl of 0 uses the cache's defaultTTL.
func (c *Cache) Put(signature string, payload []byte, level Level, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	compressed := c.compress(payload, level)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[signature]; !exists && len(c.entries) >= c.maxCacheSize {
		c.evictOldestLocked()
	}

	c.entries[signature] = &entry{
		compressed:   compressed,
		originalSize: len(payload),
		level:        level,
		compressedAt: time.Now(),
		expiry:       ttl,
	}
	metrics.QueryCacheEntriesTotal.Set(float64(len(c.entries)))
}

func (c *Cache) compress(payload []byte, level Level) []byte {
	if level == None {
		return append([]byte{}, payload...)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level.encoderLevel()))
	if err != nil {
		return c.encoder.EncodeAll(payload, nil)
	}
	defer enc.Close()
	return enc.EncodeAll(payload, nil)
}

// Get returns the decompressed payload for signature, or a miss if
// absent, expired, or corrupt. An expired or corrupt entry is removed
// as part of the lookup (spec §4.8: "decompression failures remove
// the corrupt entry and miss").
func (c *Cache) Get(signature string) ([]byte, bool) {
	c.mu.Lock()
	e, ok := c.entries[signature]
	if !ok {
		c.mu.Unlock()
		metrics.QueryCacheMissesTotal.Inc()
		return nil, false
	}
	if e.isExpired(time.Now()) {
		delete(c.entries, signature)
		metrics.QueryCacheEntriesTotal.Set(float64(len(c.entries)))
		c.mu.Unlock()
		metrics.QueryCacheMissesTotal.Inc()
		metrics.QueryCacheEvictionsTotal.WithLabelValues("expired").Inc()
		return nil, false
	}
	level := e.level
	compressed := e.compressed
	c.mu.Unlock()

	if level == None {
		metrics.QueryCacheHitsTotal.Inc()
		return compressed, true
	}

	data, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		c.mu.Lock()
		delete(c.entries, signature)
		metrics.QueryCacheEntriesTotal.Set(float64(len(c.entries)))
		c.mu.Unlock()
		metrics.QueryCacheMissesTotal.Inc()
		metrics.QueryCacheEvictionsTotal.WithLabelValues("corrupt").Inc()
		log.WithComponent("querycache").Warn().Err(err).Str("signature", signature).Msg("decompression failed, entry evicted")
		return nil, false
	}
	metrics.QueryCacheHitsTotal.Inc()
	return data, true
}

// evictOldestLocked removes the entry with the oldest compressedAt.
// Callers must hold c.mu.
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.compressedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.compressedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
		metrics.QueryCacheEvictionsTotal.WithLabelValues("capacity").Inc()
		metrics.QueryCacheEntriesTotal.Set(float64(len(c.entries)))
	}
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweep removes every expired entry.
func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, k)
			metrics.QueryCacheEvictionsTotal.WithLabelValues("expired").Inc()
		}
	}
	metrics.QueryCacheEntriesTotal.Set(float64(len(c.entries)))
}

// Start launches the periodic 5-minute expiry sweep (spec §4.8).
func (c *Cache) Start() {
	c.mu.Lock()
	if c.stopCh != nil {
		c.mu.Unlock()
		return
	}
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	ticker := time.NewTicker(sweepInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the periodic sweep started by Start.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopCh == nil {
		return
	}
	close(c.stopCh)
	c.stopCh = nil
}

// Close releases the cache's reusable encoder/decoder.
func (c *Cache) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
