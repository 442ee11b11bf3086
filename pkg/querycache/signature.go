package querycache

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Signature resolves the query-signature Open Question (spec §9):
// a cache key must be stable across equivalent queries (same indexer
// predicates regardless of construction order) yet distinguish
// genuinely different ones. Signature takes the map name and a set of
// "indexer=value" clause strings, sorts the clauses so AND-composition
// order does not affect the key, and hashes the normalised bytes with
// blake2b, the same content-addressing approach used elsewhere in the
// pack for identity hashing.
func Signature(mapName string, clauses ...string) string {
	sorted := append([]string{}, clauses...)
	sort.Strings(sorted)

	normalised := mapName + "\x00" + strings.Join(sorted, "\x1f")
	sum := blake2b.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])
}
