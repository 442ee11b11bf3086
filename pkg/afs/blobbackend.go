package afs

import "context"

// BlobBackend is the opaque key/value primitive a concrete backend
// package implements. FragmentedConnector builds the full Connector contract
// on top of exactly this — the "primitives that lack [file] semantics"
// spec §1 describes.
//
// Backend "not found" conditions must be reported as (nil, ErrKeyNotFound)
// from GetRange and as (false, nil) from Exists, never as a generic
// error — FragmentedConnector relies on this to implement the soft-NotFound
// absorption spec §4.3/§7 require.
type BlobBackend interface {
	// Put writes data at key, overwriting any existing object
	// (idempotent-overwrite, required so retries are safe).
	Put(ctx context.Context, key string, data []byte) error

	// GetRange reads up to length bytes starting at offset. length == -1
	// means "to end". Returns ErrKeyNotFound if the key does not exist.
	GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error)

	// Size returns the object's byte length, or ErrKeyNotFound.
	Size(ctx context.Context, key string) (int64, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// ListKeys returns every key with the given prefix, in no
	// particular order — FragmentedConnector sorts by parsed ordinal itself.
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// NativeCopy performs a server-side copy when the backend offers
	// one. ok=false tells the caller to fall back to read+Put.
	NativeCopy(ctx context.Context, srcKey, dstKey string) (ok bool, err error)

	// MaxBlobSize returns this backend's fragment size ceiling.
	MaxBlobSize() int64

	// Close releases the backend client.
	Close() error
}

// ErrKeyNotFound is the sentinel BlobBackend implementations return for
// an absent key; FragmentedConnector converts it to the soft defaults spec
// §4.3 enumerates and never lets it escape to the Connector caller.
var ErrKeyNotFound = errKeyNotFound{}

type errKeyNotFound struct{}

func (errKeyNotFound) Error() string { return "afs: key not found" }
