package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nebulastore/pkg/afs"
	"github.com/cuemby/nebulastore/pkg/afs/localfs"
)

func newTestStore(t *testing.T) *Store {
	conn, err := localfs.Open(afs.ConnectorConfig{}, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return New(conn, "bkt")
}

func TestSaveAndLoadRoot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveRoot(ctx, "MyRootType", []byte{1, 2, 3, 4})
	require.NoError(t, err)

	typeName, data, found, err := s.LoadRoot(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "MyRootType", typeName)
	require.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestLoadRootNotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, found, err := s.LoadRoot(context.Background())
	require.NoError(t, err)
	require.False(t, found)
}

func TestSaveLoadDeleteObject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload := []byte("object payload bytes")
	require.NoError(t, s.SaveObject(ctx, 42, payload))

	got, err := s.LoadObject(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	require.NoError(t, s.DeleteObject(ctx, 42))

	_, err = s.LoadObject(ctx, 42)
	require.NoError(t, err) // soft not-found: empty read, no error
}

func TestStreamObject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveObject(ctx, 1, []byte("hello")))

	r, err := s.StreamObject(ctx, 1)
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
}
