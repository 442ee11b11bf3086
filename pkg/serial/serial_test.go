package serial

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteHeader()

	r := NewReader(w.Bytes())
	h, err := r.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, Magic, h.Magic)
	require.Equal(t, FormatVersion, h.FormatVersion)
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	data := []byte{0, 0, 0, 0, 1, 0}
	r := NewReader(data)
	_, err := r.ReadHeader()
	require.Error(t, err)
}

func TestVarUintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 32, ^uint64(0)}
	for _, v := range values {
		w := NewWriter()
		w.WriteVarUint(v)
		r := NewReader(w.Bytes())
		got, err := r.ReadVarUint()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestVarIntRoundTripNegative(t *testing.T) {
	values := []int64{0, -1, 1, -2, 2, 1000000, -1000000}
	for _, v := range values {
		w := NewWriter()
		w.WriteVarInt(v)
		r := NewReader(w.Bytes())
		got, err := r.ReadVarInt()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestStringRoundTripIncludingNull(t *testing.T) {
	hello := "hello"
	w := NewWriter()
	w.WriteString(&hello)
	w.WriteString(nil)

	r := NewReader(w.Bytes())
	got, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, &hello, got)

	gotNull, err := r.ReadString()
	require.NoError(t, err)
	require.Nil(t, gotNull)
}

func TestGUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	w := NewWriter()
	w.WriteGUID(id)

	r := NewReader(w.Bytes())
	got, err := r.ReadGUID()
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestDateTimeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Round(time.Nanosecond)
	w := NewWriter()
	w.WriteDateTime(now)

	r := NewReader(w.Bytes())
	got, err := r.ReadDateTime()
	require.NoError(t, err)
	require.True(t, now.Equal(got))
}

func TestObjectRefNullAndRoot(t *testing.T) {
	w := NewWriter()
	w.WriteObjectRef(NullObjectRef)
	w.WriteObjectRef(RootObjectRef)

	r := NewReader(w.Bytes())
	n, err := r.ReadObjectRef()
	require.NoError(t, err)
	require.Equal(t, NullObjectRef, n)

	root, err := r.ReadObjectRef()
	require.NoError(t, err)
	require.Equal(t, RootObjectRef, root)
}

func TestBytesRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	w := NewWriter()
	w.WriteBytes(payload)

	r := NewReader(w.Bytes())
	got, err := r.ReadBytes()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFloat64RoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteFloat64(3.14159)

	r := NewReader(w.Bytes())
	got, err := r.ReadFloat64()
	require.NoError(t, err)
	require.InDelta(t, 3.14159, got, 1e-9)
}
