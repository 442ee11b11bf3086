// Package objectstore implements the "object storer" collaborator's
// wire contract described in spec §6: root-object persistence under
// the logical path root.msgpack, and paged object storage under
// objects/<id>.N. It is a thin consumer of afs.Connector and serial,
// not the full embedded storage manager spec.md places out of scope.
package objectstore

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cuemby/nebulastore/pkg/afs"
	"github.com/cuemby/nebulastore/pkg/nerrs"
	"github.com/cuemby/nebulastore/pkg/path"
)

// rootEnvelope is the outer {TypeName, Data} shell spec §6 names;
// Data remains serial (C9)-encoded bytes produced by the caller.
type rootEnvelope struct {
	TypeName string
	Data     []byte
}

const rootObjectName = "root.msgpack"
const objectsContainerName = "objects"

// Store wraps a connector with root-object and paged-object persistence.
type Store struct {
	conn      afs.Connector
	container string
}

// New builds a Store over conn, rooted at container (the same
// container every path submitted to conn belongs to).
func New(conn afs.Connector, container string) *Store {
	return &Store{conn: conn, container: container}
}

func (s *Store) rootPath() path.Path {
	return path.New(s.container, rootObjectName)
}

// SaveRoot persists the root object envelope: typeName plus opaque,
// already-serial-encoded data.
func (s *Store) SaveRoot(ctx context.Context, typeName string, data []byte) error {
	envelope := rootEnvelope{TypeName: typeName, Data: data}
	encoded, err := msgpack.Marshal(&envelope)
	if err != nil {
		return nerrs.CorruptBlob.Wrap(err)
	}
	return s.conn.WriteAll(ctx, s.rootPath(), bytes.NewReader(encoded))
}

// LoadRoot reads back the root object envelope. It returns
// (false, ...) with no error when no root object has ever been saved.
func (s *Store) LoadRoot(ctx context.Context) (typeName string, data []byte, found bool, err error) {
	exists, err := s.conn.FileExists(ctx, s.rootPath())
	if err != nil {
		return "", nil, false, err
	}
	if !exists {
		return "", nil, false, nil
	}
	raw, err := s.conn.ReadRange(ctx, s.rootPath(), 0, afs.ReadToEnd)
	if err != nil {
		return "", nil, false, err
	}
	var envelope rootEnvelope
	if err := msgpack.Unmarshal(raw, &envelope); err != nil {
		return "", nil, false, nerrs.CorruptBlob.Wrap(err)
	}
	return envelope.TypeName, envelope.Data, true, nil
}

// objectPath maps an opaque object id to its logical storer path.
func (s *Store) objectPath(id uint64) path.Path {
	return path.New(s.container, objectsContainerName, strconv.FormatUint(id, 10))
}

// SaveObject writes an opaque payload under objects/<id>, fragmented
// across backend-limit-sized blobs by the underlying connector.
func (s *Store) SaveObject(ctx context.Context, id uint64, payload []byte) error {
	return s.conn.WriteAll(ctx, s.objectPath(id), bytes.NewReader(payload))
}

// LoadObject reads back the full payload stored under objects/<id>.
func (s *Store) LoadObject(ctx context.Context, id uint64) ([]byte, error) {
	return s.conn.ReadRange(ctx, s.objectPath(id), 0, afs.ReadToEnd)
}

// DeleteObject removes every fragment of objects/<id>.
func (s *Store) DeleteObject(ctx context.Context, id uint64) error {
	return s.conn.Delete(ctx, s.objectPath(id))
}

// StreamObject exposes an io.Reader over a stored object's full
// content. The whole object is read into memory (via LoadObject) before
// the reader is returned.
func (s *Store) StreamObject(ctx context.Context, id uint64) (io.Reader, error) {
	data, err := s.LoadObject(ctx, id)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

