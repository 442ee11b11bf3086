package blobkey

import (
	"testing"

	"github.com/cuemby/nebulastore/pkg/path"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := path.New("bkt", "d1", "large.dat")
	for _, n := range []int64{0, 1, 4, 999} {
		key := EncodeKey(p, n)
		sub, ordinal, ok := DecodeKey(key)
		if !ok {
			t.Fatalf("DecodeKey(%q) not ok", key)
		}
		if sub != p.SubPath() {
			t.Errorf("sub-path = %q, want %q", sub, p.SubPath())
		}
		if ordinal != n {
			t.Errorf("ordinal = %d, want %d", ordinal, n)
		}
	}
}

func TestDecodeKeyRejectsNonNumericSuffix(t *testing.T) {
	if _, _, ok := DecodeKey("d1/large.dat.abc"); ok {
		t.Fatal("expected rejection of non-numeric suffix")
	}
	if _, _, ok := DecodeKey("d1/nonumber"); ok {
		t.Fatal("expected rejection of key with no ordinal suffix")
	}
}

func TestDirectoryMarker(t *testing.T) {
	p := path.New("bkt", "d1")
	key := EncodeDirectoryMarkerKey(p)
	if !IsDirectoryMarker(key) {
		t.Fatalf("expected %q to be a directory marker", key)
	}
	if _, _, ok := DecodeKey(key); ok {
		t.Fatal("directory marker key must not decode as a blob key")
	}
	if StripDirectoryMarker(key) != p.SubPath() {
		t.Fatalf("StripDirectoryMarker = %q, want %q", StripDirectoryMarker(key), p.SubPath())
	}
}
