// Package s3 implements an AFS connector over any S3-compatible object
// store (AWS S3, MinIO, Ceph RGW, …), grounded on the minio-go client
// storj-storj depends on for exactly this. MaxBlobSize defaults to
// 100 MiB (spec §3) and server-side copy is used whenever Connector.Copy
// requests the whole object from offset 0 (spec §4.4).
package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cuemby/nebulastore/pkg/afs"
	"github.com/cuemby/nebulastore/pkg/log"
	"github.com/cuemby/nebulastore/pkg/nerrs"
	npath "github.com/cuemby/nebulastore/pkg/path"
)

// backend adapts *minio.Client to afs.BlobBackend, scoped to one bucket.
type backend struct {
	client *minio.Client
	bucket string
	maxBlob int64
}

// Open dials endpoint and constructs a connector for a single bucket.
// Exactly one of cfg.CredentialKind's corresponding fields is consulted
// to build the minio-go credentials provider.
func Open(cfg afs.ConnectorConfig) (afs.Connector, error) {
	var creds *credentials.Credentials
	switch cfg.CredentialKind {
	case afs.CredentialAccountKeyPair:
		creds = credentials.NewStaticV4(cfg.AccountName, cfg.AccountKey, "")
	case afs.CredentialSASToken:
		creds = credentials.NewStaticV4(cfg.AccountName, "", cfg.SASToken)
	default:
		creds = credentials.NewStaticV4(cfg.AccountName, cfg.AccountKey, "")
	}

	useSSL := cfg.Endpoint == "" // default to secure unless a plain endpoint override is given
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, nerrs.WrapBackendUnavailable("s3", err)
	}

	maxBlob := cfg.MaxBlobSize
	if maxBlob <= 0 {
		maxBlob = afs.DefaultMaxBlobSize(afs.BackendS3)
	}

	b := &backend{client: client, bucket: cfg.BucketName, maxBlob: maxBlob}
	conn := afs.NewFragmentedConnector(b, npath.ObjectStoreValidator{}, cfg, "s3")
	log.WithConnector("s3").Info().Str("bucket", cfg.BucketName).Str("endpoint", cfg.Endpoint).Msg("connector opened")
	return conn, nil
}

func (b *backend) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}

func (b *backend) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	opts := minio.GetObjectOptions{}
	if length == afs.ReadToEnd {
		if offset > 0 {
			_ = opts.SetRange(offset, 0)
		}
	} else {
		_ = opts.SetRange(offset, offset+length-1)
	}
	obj, err := b.client.GetObject(ctx, b.bucket, key, opts)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, afs.ErrKeyNotFound
		}
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, afs.ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *backend) Size(ctx context.Context, key string) (int64, error) {
	info, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, afs.ErrKeyNotFound
		}
		return 0, err
	}
	return info.Size, nil
}

func (b *backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *backend) Delete(ctx context.Context, key string) error {
	err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return err
	}
	return nil
}

func (b *backend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (b *backend) NativeCopy(ctx context.Context, srcKey, dstKey string) (bool, error) {
	src := minio.CopySrcOptions{Bucket: b.bucket, Object: srcKey}
	dst := minio.CopyDestOptions{Bucket: b.bucket, Object: dstKey}
	_, err := b.client.CopyObject(ctx, dst, src)
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *backend) MaxBlobSize() int64 { return b.maxBlob }

func (b *backend) Close() error { return nil }
