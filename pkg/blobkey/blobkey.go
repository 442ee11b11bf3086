// Package blobkey maps between a logical (path, ordinal) pair and the
// opaque backend key a connector actually stores (spec §3, §4.2):
//
//	key(p, N) = join(p.Elements()[1:], "/") + "." + N
//
// and the zero-byte directory marker a backend without native
// directories uses:
//
//	key(p, -) = join(p.Elements()[1:], "/") + ".directory"
package blobkey

import (
	"strconv"
	"strings"

	"github.com/cuemby/nebulastore/pkg/path"
)

// numberSuffixSeparator is the separator between a blob's logical name
// and its ordinal, per spec §3.
const numberSuffixSeparator = "."

// DirectorySuffix is the reserved suffix for a zero-byte directory
// marker object, per spec §3.
const DirectorySuffix = ".directory"

// EncodeKey produces the backend key for blob ordinal n of path p.
func EncodeKey(p path.Path, n int64) string {
	return p.SubPath() + numberSuffixSeparator + strconv.FormatInt(n, 10)
}

// EncodeDirectoryMarkerKey produces the backend key for p's directory
// marker object.
func EncodeDirectoryMarkerKey(p path.Path) string {
	return p.SubPath() + DirectorySuffix
}

// DecodeKey is the inverse of EncodeKey: it reports the path's sub-path
// (element path under the container) and the parsed ordinal when key
// matches ^prefix\d+$. It returns ok=false for keys that are not
// ordinal-suffixed blob keys (including directory markers).
func DecodeKey(key string) (subPath string, n int64, ok bool) {
	if strings.HasSuffix(key, DirectorySuffix) {
		return "", 0, false
	}
	idx := strings.LastIndex(key, numberSuffixSeparator)
	if idx < 0 || idx == len(key)-1 {
		return "", 0, false
	}
	suffix := key[idx+1:]
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return "", 0, false
		}
	}
	ordinal, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return key[:idx], ordinal, true
}

// IsDirectoryMarker reports whether key is a directory marker key.
func IsDirectoryMarker(key string) bool {
	return strings.HasSuffix(key, DirectorySuffix)
}

// StripDirectoryMarker returns the logical sub-path a directory marker
// key names.
func StripDirectoryMarker(key string) string {
	return strings.TrimSuffix(key, DirectorySuffix)
}
