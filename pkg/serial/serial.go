// Package serial implements NebulaStore's binary serialization format
// (spec §4.9): little-endian primitives, LEB128 unsigned var-ints,
// ZigZag signed var-ints, length-prefixed UTF-8 strings, 16-byte GUIDs,
// int64-tick DateTimes, and a fixed header (magic 0x4E454253 "NEBS",
// format version 1). There is no pack library that implements this
// exact wire shape, so it is hand-rolled against encoding/binary — see
// DESIGN.md for why no third-party codec could serve this role without
// deviating from the spec's bit layout.
package serial

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/nebulastore/pkg/nerrs"
)

// Magic identifies a NebulaStore-encoded payload ("NEBS").
const Magic uint32 = 0x4E454253

// FormatVersion is the current wire format version.
const FormatVersion uint16 = 1

// NullStringLen is the length sentinel denoting a null string.
const NullStringLen int64 = -1

// NullObjectRef is the reserved object-reference id denoting null.
const NullObjectRef uint64 = 0

// RootObjectRef is the fixed id of the root object.
const RootObjectRef uint64 = 1

// Header is the fixed preamble written at the start of every encoded
// payload.
type Header struct {
	Magic         uint32
	FormatVersion uint16
}

// Writer accumulates an encoded byte sequence.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated encoded sequence.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// WriteHeader writes the fixed magic + format version preamble.
func (w *Writer) WriteHeader() {
	var tmp [6]byte
	binary.LittleEndian.PutUint32(tmp[0:4], Magic)
	binary.LittleEndian.PutUint16(tmp[4:6], FormatVersion)
	w.buf.Write(tmp[:])
}

// WriteUint8/16/32/64 write fixed-width little-endian unsigned ints.
func (w *Writer) WriteUint8(v uint8)   { w.buf.WriteByte(v) }
func (w *Writer) WriteUint16(v uint16) { w.writeFixed(2, func(b []byte) { binary.LittleEndian.PutUint16(b, v) }) }
func (w *Writer) WriteUint32(v uint32) { w.writeFixed(4, func(b []byte) { binary.LittleEndian.PutUint32(b, v) }) }
func (w *Writer) WriteUint64(v uint64) { w.writeFixed(8, func(b []byte) { binary.LittleEndian.PutUint64(b, v) }) }

// WriteFloat64 writes an IEEE-754 little-endian double.
func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

func (w *Writer) writeFixed(n int, fill func([]byte)) {
	var tmp [8]byte
	fill(tmp[:n])
	w.buf.Write(tmp[:n])
}

// WriteVarUint writes v as an LEB128 unsigned variable-length integer.
func (w *Writer) WriteVarUint(v uint64) {
	for v >= 0x80 {
		w.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	w.buf.WriteByte(byte(v))
}

// WriteVarInt writes v as a ZigZag-encoded LEB128 signed variable
// integer, so small magnitudes (positive or negative) stay compact.
func (w *Writer) WriteVarInt(v int64) {
	w.WriteVarUint(zigzagEncode(v))
}

// WriteString writes a length-prefixed (var-int, via WriteVarInt to
// allow -1) UTF-8 string. A length of -1 denotes null and writes no
// body bytes.
func (w *Writer) WriteString(s *string) {
	if s == nil {
		w.WriteVarInt(NullStringLen)
		return
	}
	b := []byte(*s)
	w.WriteVarInt(int64(len(b)))
	w.buf.Write(b)
}

// WriteGUID writes a GUID as its 16 raw bytes.
func (w *Writer) WriteGUID(id uuid.UUID) {
	w.buf.Write(id[:])
}

// WriteDateTime writes t as int64 ticks (UnixNano).
func (w *Writer) WriteDateTime(t time.Time) {
	w.WriteVarInt(t.UnixNano())
}

// WriteObjectRef writes an object reference id (0 = null, 1 = root).
func (w *Writer) WriteObjectRef(id uint64) {
	w.WriteVarUint(id)
}

// WriteBytes writes a length-prefixed raw byte blob.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.buf.Write(b)
}

// Reader decodes a byte sequence written by Writer.
type Reader struct {
	r *bytes.Reader
}

// NewReader wraps data for decoding.
func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

// ReadHeader reads and validates the fixed preamble.
func (r *Reader) ReadHeader() (Header, error) {
	var tmp [6]byte
	if _, err := io.ReadFull(r.r, tmp[:]); err != nil {
		return Header{}, nerrs.CorruptBlob.Wrap(err)
	}
	h := Header{
		Magic:         binary.LittleEndian.Uint32(tmp[0:4]),
		FormatVersion: binary.LittleEndian.Uint16(tmp[4:6]),
	}
	if h.Magic != Magic {
		return h, nerrs.CorruptBlob.New("bad magic: %x", h.Magic)
	}
	if h.FormatVersion != FormatVersion {
		return h, nerrs.CorruptBlob.New("unsupported format version: %d", h.FormatVersion)
	}
	return h, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, nerrs.CorruptBlob.Wrap(err)
	}
	return b, nil
}

func (r *Reader) readFixed(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, nerrs.CorruptBlob.Wrap(err)
	}
	return buf, nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.readFixed(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.readFixed(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.readFixed(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	bits, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// ReadVarUint decodes an LEB128 unsigned variable-length integer.
func (r *Reader) ReadVarUint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return 0, nerrs.CorruptBlob.Wrap(err)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, nerrs.CorruptBlob.New("var-uint overflow")
		}
	}
	return result, nil
}

// ReadVarInt decodes a ZigZag-encoded LEB128 signed variable integer.
func (r *Reader) ReadVarInt() (int64, error) {
	u, err := r.ReadVarUint()
	if err != nil {
		return 0, err
	}
	return zigzagDecode(u), nil
}

// ReadString decodes a length-prefixed UTF-8 string; a length of -1
// yields (nil, nil).
func (r *Reader) ReadString() (*string, error) {
	n, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if n == NullStringLen {
		return nil, nil
	}
	if n < 0 {
		return nil, nerrs.CorruptBlob.New("negative string length: %d", n)
	}
	b, err := r.readFixed(int(n))
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// ReadGUID decodes a 16-byte GUID.
func (r *Reader) ReadGUID() (uuid.UUID, error) {
	b, err := r.readFixed(16)
	if err != nil {
		return uuid.UUID{}, err
	}
	var id uuid.UUID
	copy(id[:], b)
	return id, nil
}

// ReadDateTime decodes an int64-tick DateTime.
func (r *Reader) ReadDateTime() (time.Time, error) {
	ticks, err := r.ReadVarInt()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, ticks).UTC(), nil
}

// ReadObjectRef decodes an object reference id.
func (r *Reader) ReadObjectRef() (uint64, error) {
	return r.ReadVarUint()
}

// ReadBytes decodes a length-prefixed raw byte blob.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadVarUint()
	if err != nil {
		return nil, err
	}
	return r.readFixed(int(n))
}

// zigzagEncode maps signed integers to unsigned so small magnitudes of
// either sign stay compact under LEB128: 0,-1,1,-2,2 -> 0,1,2,3,4.
func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
