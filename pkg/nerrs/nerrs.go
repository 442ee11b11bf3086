// Package nerrs defines NebulaStore's closed error taxonomy on top of
// github.com/zeebo/errs, the class-based wrapping library storj-storj
// depends on for exactly this shape of problem: a small fixed set of
// named error kinds that callers branch on with errors.Is / Class.Has,
// each carrying structured context (path, ordinal, constraint name).
//
// NotFound and CacheMiss are deliberately not exported here: per the
// connector contract and the query cache, both are absorbed internally
// and never surface to a caller.
package nerrs

import (
	"fmt"

	"github.com/zeebo/errs"
)

var (
	// InvalidPath reports a path validation failure (§4.1).
	InvalidPath = errs.Class("invalid path")

	// BackendUnavailable reports a connector that could not reach its
	// backend after exhausting retries (§4.3, §7).
	BackendUnavailable = errs.Class("backend unavailable")

	// ConstraintViolation reports a GigaMap unique or custom constraint
	// failure (§4.7, §7).
	ConstraintViolation = errs.Class("constraint violation")

	// DuplicateKey reports a range-index unique-key violation (§4.6, §7).
	DuplicateKey = errs.Class("duplicate key")

	// CorruptBlob reports an enumeration inconsistency: a gap in blob
	// ordinals or a non-numeric ordinal suffix (§4.4, §7).
	CorruptBlob = errs.Class("corrupt blob")

	// Cancelled reports a caller-cancelled long-running operation (§5, §7).
	Cancelled = errs.Class("cancelled")

	// InvalidConfig reports a malformed or unreadable host-facing
	// ConnectorConfig file (§6).
	InvalidConfig = errs.Class("invalid config")
)

// WrapInvalidPath attaches the offending path and reason.
func WrapInvalidPath(fqn, reason string) error {
	return InvalidPath.New("%s: %s", fqn, reason)
}

// WrapBackendUnavailable attaches the backend kind and the terminal cause.
func WrapBackendUnavailable(backend string, cause error) error {
	return BackendUnavailable.Wrap(fmt.Errorf("%s: %w", backend, cause))
}

// WrapConstraintViolation attaches the constraint's name and a message.
func WrapConstraintViolation(name, msg string) error {
	return ConstraintViolation.New("%s: %s", name, msg)
}

// WrapCorruptBlob attaches the path and ordinal at which enumeration broke.
func WrapCorruptBlob(fqn string, ordinal int64, reason string) error {
	return CorruptBlob.New("%s#%d: %s", fqn, ordinal, reason)
}
