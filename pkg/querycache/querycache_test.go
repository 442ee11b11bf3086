package querycache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, capacity int, ttl time.Duration) *Cache {
	c, err := New(capacity, ttl)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)
	payload := []byte("the quick brown fox jumps over the lazy dog")

	c.Put("sig1", payload, Optimal, 0)
	got, ok := c.Get("sig1")
	require.True(t, ok)
	require.Equal(t, payload, got)
}

func TestGetMissOnUnknownSignature(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)
	_, ok := c.Get("nope")
	require.False(t, ok)
}

func TestExpiryDiscardsEntry(t *testing.T) {
	c := newTestCache(t, 10, time.Millisecond)
	c.Put("sig1", []byte("data"), Fastest, time.Millisecond)

	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("sig1")
	require.False(t, ok)
}

func TestCapacityEvictsOldest(t *testing.T) {
	c := newTestCache(t, 2, time.Hour)
	c.Put("a", []byte("1"), None, 0)
	time.Sleep(time.Millisecond)
	c.Put("b", []byte("2"), None, 0)
	time.Sleep(time.Millisecond)
	c.Put("c", []byte("3"), None, 0)

	require.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	require.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	c := newTestCache(t, 10, time.Millisecond)
	c.Put("sig1", []byte("data"), None, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	c.sweep()
	require.Equal(t, 0, c.Len())
}

func TestNoneLevelStoresUncompressed(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)
	payload := []byte("raw bytes")
	c.Put("sig1", payload, None, 0)

	got, ok := c.Get("sig1")
	require.True(t, ok)
	require.Equal(t, payload, got)
}

func TestSignatureStableUnderClauseReordering(t *testing.T) {
	a := Signature("users", "email=a", "age=30")
	b := Signature("users", "age=30", "email=a")
	require.Equal(t, a, b)
}

func TestSignatureDiffersOnDifferentClauses(t *testing.T) {
	a := Signature("users", "email=a")
	b := Signature("users", "email=b")
	require.NotEqual(t, a, b)
}

func TestStartStopSweepLifecycle(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)
	c.Start()
	c.Start() // idempotent second call must not panic or leak a goroutine
	c.Stop()
	c.Stop() // idempotent second call must not panic
}
