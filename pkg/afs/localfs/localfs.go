// Package localfs implements an AFS connector over the local
// filesystem. It is the one backend package that talks to its medium
// through the standard library rather than a third-party SDK — there is
// no pack library that beats direct os/io syscalls for local files (see
// DESIGN.md).
//
// It additionally keeps a small BoltDB-backed ledger of directory
// markers, adapted from the teacher's pkg/storage bucket-per-kind
// pattern: rather than tracking cluster entities, the single bucket
// here tracks which synthetic ".directory" keys have been created, so
// DirectoryExists does not need to stat the filesystem for backends
// mounted over networked storage.
package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/nebulastore/pkg/afs"
	"github.com/cuemby/nebulastore/pkg/log"
	"github.com/cuemby/nebulastore/pkg/nerrs"
	npath "github.com/cuemby/nebulastore/pkg/path"
)

var ledgerBucket = []byte("directory_markers")

// backend is the afs.BlobBackend implementation storing each blob key
// as one file under rootDir, sanitized so "/" in the key reproduces the
// nested directory structure natively on disk.
type backend struct {
	rootDir string
	maxBlob int64

	mu     sync.Mutex
	ledger *bolt.DB
}

// Open constructs a connector rooted at rootDir.
func Open(cfg afs.ConnectorConfig, rootDir string) (afs.Connector, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, nerrs.WrapBackendUnavailable("local", err)
	}
	ledgerPath := filepath.Join(rootDir, ".nebulastore-ledger.db")
	db, err := bolt.Open(ledgerPath, 0o600, nil)
	if err != nil {
		return nil, nerrs.WrapBackendUnavailable("local", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ledgerBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, nerrs.WrapBackendUnavailable("local", err)
	}

	maxBlob := cfg.MaxBlobSize
	if maxBlob <= 0 {
		maxBlob = afs.DefaultMaxBlobSize(afs.BackendLocal)
	}

	b := &backend{rootDir: rootDir, maxBlob: maxBlob, ledger: db}
	conn := afs.NewFragmentedConnector(b, npath.LocalFSValidator{}, cfg, "local")
	log.WithConnector("local").Info().Str("root", rootDir).Msg("connector opened")
	return conn, nil
}

func (b *backend) diskPath(key string) string {
	clean := filepath.FromSlash(key)
	return filepath.Join(b.rootDir, clean)
}

func (b *backend) Put(_ context.Context, key string, data []byte) error {
	p := b.diskPath(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return err
	}
	if strings.HasSuffix(key, ".directory") {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.ledger.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(ledgerBucket).Put([]byte(key), []byte{1})
		})
	}
	return nil
}

func (b *backend) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	f, err := os.Open(b.diskPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, afs.ErrKeyNotFound
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if offset >= size {
		return []byte{}, nil
	}
	want := length
	if want == afs.ReadToEnd || offset+want > size {
		want = size - offset
	}
	buf := make([]byte, want)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *backend) Size(_ context.Context, key string) (int64, error) {
	info, err := os.Stat(b.diskPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, afs.ErrKeyNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

func (b *backend) Exists(_ context.Context, key string) (bool, error) {
	if strings.HasSuffix(key, ".directory") {
		b.mu.Lock()
		defer b.mu.Unlock()
		var found bool
		_ = b.ledger.View(func(tx *bolt.Tx) error {
			found = tx.Bucket(ledgerBucket).Get([]byte(key)) != nil
			return nil
		})
		if found {
			return true, nil
		}
	}
	_, err := os.Stat(b.diskPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *backend) Delete(_ context.Context, key string) error {
	err := os.Remove(b.diskPath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if strings.HasSuffix(key, ".directory") {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.ledger.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(ledgerBucket).Delete([]byte(key))
		})
	}
	return nil
}

func (b *backend) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	root := b.rootDir
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if key == ".nebulastore-ledger.db" {
			return nil
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (b *backend) NativeCopy(ctx context.Context, srcKey, dstKey string) (bool, error) {
	data, err := os.ReadFile(b.diskPath(srcKey))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := b.Put(ctx, dstKey, data); err != nil {
		return false, err
	}
	return true, nil
}

func (b *backend) MaxBlobSize() int64 { return b.maxBlob }

func (b *backend) Close() error {
	return b.ledger.Close()
}
