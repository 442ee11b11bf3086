// Package streamlog implements an AFS connector over a NATS JetStream
// key/value bucket, grounded on storj-storj's go.mod lineage of the
// nats.go client. It stands in for append-log brokers (e.g. an event
// stream where a "path" addresses a replayable log segment) for
// naming-rule and size-limit purposes: MaxBlobSize defaults to 1 MiB
// (spec §3) and subject names follow StreamLogValidator (spec §4.1).
package streamlog

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/cuemby/nebulastore/pkg/afs"
	"github.com/cuemby/nebulastore/pkg/log"
	"github.com/cuemby/nebulastore/pkg/nerrs"
	npath "github.com/cuemby/nebulastore/pkg/path"
)

type backend struct {
	nc      *nats.Conn
	kv      jetstream.KeyValue
	maxBlob int64
}

// JetStream KV keys map directly onto NATS subjects: '.' is the
// hierarchy separator, not a reserved character, so blobkey's
// "sub/path.N" keys are valid KV keys as-is. Only '*', '>', whitespace
// and leading/trailing dots are disallowed, none of which blobkey ever
// produces, so no encoding round-trip is needed here — the key stored
// in JetStream KV is exactly the key pkg/blobkey hands back out.

// Open dials the NATS server at url and binds (creating if absent) a
// JetStream KV bucket named bucket, backing a single connector.
func Open(cfg afs.ConnectorConfig, url, bucket string) (afs.Connector, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nerrs.WrapBackendUnavailable("streamlog", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nerrs.WrapBackendUnavailable("streamlog", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	}
	if err != nil {
		nc.Close()
		return nil, nerrs.WrapBackendUnavailable("streamlog", err)
	}

	maxBlob := cfg.MaxBlobSize
	if maxBlob <= 0 {
		maxBlob = afs.DefaultMaxBlobSize(afs.BackendStreamLog)
	}

	b := &backend{nc: nc, kv: kv, maxBlob: maxBlob}
	conn := afs.NewFragmentedConnector(b, npath.StreamLogValidator{}, cfg, "streamlog")
	log.WithConnector("streamlog").Info().Str("bucket", bucket).Str("url", url).Msg("connector opened")
	return conn, nil
}

func (b *backend) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.kv.Put(ctx, key, data)
	return err
}

func (b *backend) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, afs.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	val := entry.Value()
	if offset >= int64(len(val)) {
		return []byte{}, nil
	}
	want := length
	if want == afs.ReadToEnd || offset+want > int64(len(val)) {
		want = int64(len(val)) - offset
	}
	return append([]byte{}, val[offset:offset+want]...), nil
}

func (b *backend) Size(ctx context.Context, key string) (int64, error) {
	entry, err := b.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return 0, afs.ErrKeyNotFound
	}
	if err != nil {
		return 0, err
	}
	return int64(len(entry.Value())), nil
}

func (b *backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *backend) Delete(ctx context.Context, key string) error {
	err := b.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return err
	}
	return nil
}

func (b *backend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	lister, err := b.kv.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	var keys []string
	for k := range lister.Keys() {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *backend) NativeCopy(ctx context.Context, srcKey, dstKey string) (bool, error) {
	data, err := b.GetRange(ctx, srcKey, 0, afs.ReadToEnd)
	if err != nil {
		if err == afs.ErrKeyNotFound {
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
	b.nc.Close()
	return nil
}
