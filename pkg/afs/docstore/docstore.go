// Package docstore implements an AFS connector over an embedded
// document-store-shaped key/value engine (dgraph-io/badger, grounded on
// gloudx-ues's use of BadgerDB as its blockstore backend). It stands in
// for collection-oriented document stores (Azure Cosmos DB, Firestore)
// for naming-rule and size-limit purposes: MaxBlobSize defaults to
// 1 MiB (spec §3) and collection names reject "/", ".", "..", and
// "__…__" (spec §4.1). The same backend, with OCIValidator swapped in,
// also stands in for OCI Object Storage's document-store-shaped naming
// (dots allowed, no consecutive dots, 50 GiB blobs).
package docstore

import (
	"bytes"
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/cuemby/nebulastore/pkg/afs"
	"github.com/cuemby/nebulastore/pkg/log"
	"github.com/cuemby/nebulastore/pkg/nerrs"
	npath "github.com/cuemby/nebulastore/pkg/path"
)

type backend struct {
	db      *badger.DB
	maxBlob int64
}

// Open opens (creating if absent) a Badger database at dir, backing a
// single document-store collection connector.
func Open(cfg afs.ConnectorConfig, dir string) (afs.Connector, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nerrs.WrapBackendUnavailable("docstore", err)
	}

	maxBlob := cfg.MaxBlobSize
	if maxBlob <= 0 {
		maxBlob = afs.DefaultMaxBlobSize(afs.BackendDocStore)
	}

	b := &backend{db: db, maxBlob: maxBlob}
	conn := afs.NewFragmentedConnector(b, npath.DocStoreValidator{}, cfg, "docstore")
	log.WithConnector("docstore").Info().Str("dir", dir).Msg("connector opened")
	return conn, nil
}

// OpenOCI is the same embedded engine with OCI Object Storage's naming
// rules and 50 GiB blob ceiling instead of the document-store defaults.
func OpenOCI(cfg afs.ConnectorConfig, dir string) (afs.Connector, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nerrs.WrapBackendUnavailable("oci", err)
	}

	maxBlob := cfg.MaxBlobSize
	if maxBlob <= 0 {
		maxBlob = 50 << 30 // 50 GiB
	}

	b := &backend{db: db, maxBlob: maxBlob}
	conn := afs.NewFragmentedConnector(b, npath.OCIValidator{}, cfg, "oci")
	log.WithConnector("oci").Info().Str("dir", dir).Msg("connector opened")
	return conn, nil
}

func (b *backend) Put(_ context.Context, key string, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (b *backend) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if offset >= int64(len(val)) {
				out = []byte{}
				return nil
			}
			want := length
			if want == afs.ReadToEnd || offset+want > int64(len(val)) {
				want = int64(len(val)) - offset
			}
			out = append([]byte{}, val[offset:offset+want]...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, afs.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *backend) Size(_ context.Context, key string) (int64, error) {
	var size int64
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		size = item.ValueSize()
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, afs.ErrKeyNotFound
	}
	return size, err
}

func (b *backend) Exists(_ context.Context, key string) (bool, error) {
	var found bool
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (b *backend) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *backend) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		pfx := []byte(prefix)
		for it.Seek(pfx); it.ValidForPrefix(pfx); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

func (b *backend) NativeCopy(ctx context.Context, srcKey, dstKey string) (bool, error) {
	data, err := b.GetRange(ctx, srcKey, 0, afs.ReadToEnd)
	if err != nil {
		if err == afs.ErrKeyNotFound {
			return false, nil
		}
		return false, err
	}
	if err := b.Put(ctx, dstKey, bytes.Clone(data)); err != nil {
		return false, err
	}
	return true, nil
}

func (b *backend) MaxBlobSize() int64 { return b.maxBlob }

func (b *backend) Close() error { return b.db.Close() }
