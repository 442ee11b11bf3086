package afs_test

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nebulastore/pkg/afs"
	"github.com/cuemby/nebulastore/pkg/afs/localfs"
	"github.com/cuemby/nebulastore/pkg/path"
)

func newConnector(t *testing.T) afs.Connector {
	conn, err := localfs.Open(afs.ConnectorConfig{MaxBlobSize: 1_000_000}, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Scenario 1: fragmented write/read round-trip.
func TestFragmentedWriteReadRoundTrip(t *testing.T) {
	conn := newConnector(t)
	ctx := context.Background()
	p := path.New("bkt", "large.dat")

	data := make([]byte, 5_000_000)
	_, err := rand.New(rand.NewSource(1)).Read(data)
	require.NoError(t, err)

	require.NoError(t, conn.WriteAll(ctx, p, bytes.NewReader(data)))

	var files []string
	var dirs []string
	_ = conn.VisitChildren(ctx, path.New("bkt"), afs.VisitorFunc{
		File: func(name string) { files = append(files, name) },
		Dir:  func(name string) { dirs = append(dirs, name) },
	})
	require.Contains(t, files, "large.dat")

	got, err := conn.ReadRange(ctx, p, 0, afs.ReadToEnd)
	require.NoError(t, err)
	require.Equal(t, data, got)

	partial, err := conn.ReadRange(ctx, p, 7, 9)
	require.NoError(t, err)
	require.Equal(t, data[7:16], partial)
}

// Scenario 2: directory listing mixes dirs and files exactly once each.
func TestDirectoryListingMixesDirsAndFiles(t *testing.T) {
	conn := newConnector(t)
	ctx := context.Background()

	require.NoError(t, conn.WriteAll(ctx, path.New("bkt", "d1", "f1.txt"), bytes.NewReader([]byte("a"))))
	require.NoError(t, conn.WriteAll(ctx, path.New("bkt", "d1", "f2.txt"), bytes.NewReader([]byte("b"))))
	require.NoError(t, conn.WriteAll(ctx, path.New("bkt", "d1", "sub", "f3.txt"), bytes.NewReader([]byte("c"))))

	var files, dirs []string
	err := conn.VisitChildren(ctx, path.New("bkt", "d1"), afs.VisitorFunc{
		File: func(name string) { files = append(files, name) },
		Dir:  func(name string) { dirs = append(dirs, name) },
	})
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"f1.txt", "f2.txt"}, files)
	require.ElementsMatch(t, []string{"sub"}, dirs)
}

// Scenario 3: truncate round-trip.
func TestTruncateRoundTrip(t *testing.T) {
	conn := newConnector(t)
	ctx := context.Background()
	p := path.New("bkt", "greeting.txt")

	require.NoError(t, conn.WriteAll(ctx, p, bytes.NewReader([]byte("Hello, World!"))))
	require.NoError(t, conn.Truncate(ctx, p, 5))

	size, err := conn.FileSize(ctx, p)
	require.NoError(t, err)
	require.Equal(t, int64(5), size)

	got, err := conn.ReadRange(ctx, p, 0, afs.ReadToEnd)
	require.NoError(t, err)
	require.Equal(t, "Hello", string(got))
}

func TestCopyWholeFile(t *testing.T) {
	conn := newConnector(t)
	ctx := context.Background()
	src := path.New("bkt", "src.txt")
	dst := path.New("bkt", "dst.txt")

	require.NoError(t, conn.WriteAll(ctx, src, bytes.NewReader([]byte("copy me"))))
	require.NoError(t, conn.Copy(ctx, src, dst, 0, afs.ReadToEnd))

	srcData, err := conn.ReadRange(ctx, src, 0, afs.ReadToEnd)
	require.NoError(t, err)
	dstData, err := conn.ReadRange(ctx, dst, 0, afs.ReadToEnd)
	require.NoError(t, err)
	require.Equal(t, srcData, dstData)
}

func TestMoveRemovesSourcePreservesContent(t *testing.T) {
	conn := newConnector(t)
	ctx := context.Background()
	src := path.New("bkt", "old.txt")
	dst := path.New("bkt", "new.txt")

	require.NoError(t, conn.WriteAll(ctx, src, bytes.NewReader([]byte("moved content"))))
	require.NoError(t, conn.Move(ctx, src, dst))

	exists, err := conn.FileExists(ctx, src)
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = conn.FileExists(ctx, dst)
	require.NoError(t, err)
	require.True(t, exists)

	got, err := conn.ReadRange(ctx, dst, 0, afs.ReadToEnd)
	require.NoError(t, err)
	require.Equal(t, "moved content", string(got))
}

func TestReadMissingFileIsSoftEmpty(t *testing.T) {
	conn := newConnector(t)
	ctx := context.Background()
	p := path.New("bkt", "never-written.txt")

	got, err := conn.ReadRange(ctx, p, 0, afs.ReadToEnd)
	require.NoError(t, err)
	require.Empty(t, got)

	size, err := conn.FileSize(ctx, p)
	require.NoError(t, err)
	require.Zero(t, size)

	exists, err := conn.FileExists(ctx, p)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestWriteAllReclaimsStrayOrdinalsOnShrink(t *testing.T) {
	conn := newConnector(t)
	ctx := context.Background()
	p := path.New("bkt", "shrinking.dat")

	big := bytes.Repeat([]byte("x"), 3_000_000) // 3 blobs at 1MB chunks
	require.NoError(t, conn.WriteAll(ctx, p, bytes.NewReader(big)))

	small := []byte("tiny")
	require.NoError(t, conn.WriteAll(ctx, p, bytes.NewReader(small)))

	got, err := conn.ReadRange(ctx, p, 0, afs.ReadToEnd)
	require.NoError(t, err)
	require.Equal(t, small, got)
}
