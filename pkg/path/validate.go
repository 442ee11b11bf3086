package path

import (
	"strings"

	"github.com/cuemby/nebulastore/pkg/nerrs"
)

// Validator enforces a backend's naming rules against a Path (spec §4.1).
type Validator interface {
	Validate(p Path) error
}

// reservedContainers are names no backend's container namespace may use.
var reservedContainers = map[string]bool{
	"$root": true,
	"$web":  true,
	"$logs": true,
}

const maxBlobKeyLength = 1024

// hasControlOrReservedChars rejects NUL and the two C0/C1 control ranges, plus the
// Windows-reserved path characters.
func hasControlOrReservedChars(s string) bool {
	for _, r := range s {
		switch {
		case r == 0x00:
			return true
		case r >= 0x00 && r <= 0x1F:
			return true
		case r == 0x7F:
			return true
		case r >= 0x80 && r <= 0x9F:
			return true
		case strings.ContainsRune(`<>:"|?*`, r):
			return true
		}
	}
	return false
}

func validateBlobKeyElement(fqn, element string) error {
	if len([]rune(element)) == 0 {
		return nerrs.WrapInvalidPath(fqn, "empty path element")
	}
	if len(element) > maxBlobKeyLength {
		return nerrs.WrapInvalidPath(fqn, "element exceeds 1024 bytes")
	}
	if hasControlOrReservedChars(element) {
		return nerrs.WrapInvalidPath(fqn, "element contains a control or reserved character")
	}
	if strings.TrimSpace(element) != element {
		return nerrs.WrapInvalidPath(fqn, "element has leading or trailing whitespace")
	}
	if strings.HasSuffix(element, ".") {
		return nerrs.WrapInvalidPath(fqn, "element has a trailing dot")
	}
	if element == "." || element == ".." {
		return nerrs.WrapInvalidPath(fqn, "element is a bare . or ..")
	}
	return nil
}

// isAlphanumericDash reports whether s is lowercase-alphanumeric-and-dashes,
// within [lo, hi] length bounds.
func isAlphanumericDash(s string, lo, hi int) bool {
	if len(s) < lo || len(s) > hi {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			// numeric is fine anywhere for these backends
		case r == '-':
		default:
			return false
		}
	}
	return true
}

// ObjectStoreValidator implements the naming rules for S3-compatible
// object stores: alphanumeric-and-dash buckets (3-63 chars), reserved
// container names rejected, 1024-byte UTF-8 key length bound.
type ObjectStoreValidator struct{}

func (ObjectStoreValidator) Validate(p Path) error {
	fqn := p.FullQualifiedName()
	container := p.Container()
	if reservedContainers[container] {
		return nerrs.WrapInvalidPath(fqn, "reserved container name")
	}
	if !isAlphanumericDash(container, 3, 63) {
		return nerrs.WrapInvalidPath(fqn, "bucket must be 3-63 lowercase alphanumeric-or-dash characters")
	}
	if len(p.SubPath()) > maxBlobKeyLength {
		return nerrs.WrapInvalidPath(fqn, "key exceeds 1024 bytes")
	}
	for _, e := range p.Elements()[1:] {
		if err := validateBlobKeyElement(fqn, e); err != nil {
			return err
		}
	}
	return nil
}

// OCIValidator implements OCI Object Storage naming: dots are allowed in
// the container (bucket) name but never consecutive.
type OCIValidator struct{}

func (OCIValidator) Validate(p Path) error {
	fqn := p.FullQualifiedName()
	container := p.Container()
	if reservedContainers[container] {
		return nerrs.WrapInvalidPath(fqn, "reserved container name")
	}
	if len(container) < 1 || len(container) > 256 {
		return nerrs.WrapInvalidPath(fqn, "bucket must be 1-256 characters")
	}
	if strings.Contains(container, "..") {
		return nerrs.WrapInvalidPath(fqn, "bucket name has consecutive dots")
	}
	for _, e := range p.Elements()[1:] {
		if err := validateBlobKeyElement(fqn, e); err != nil {
			return err
		}
	}
	return nil
}

// DocStoreValidator implements document-store collection naming:
// collections reject "/", ".", "..", and names matching "__...__".
type DocStoreValidator struct{}

func isDunderWrapped(s string) bool {
	return strings.HasPrefix(s, "__") && strings.HasSuffix(s, "__") && len(s) > 4
}

func (DocStoreValidator) Validate(p Path) error {
	fqn := p.FullQualifiedName()
	container := p.Container()
	if reservedContainers[container] {
		return nerrs.WrapInvalidPath(fqn, "reserved container name")
	}
	if strings.Contains(container, "/") || container == "." || container == ".." {
		return nerrs.WrapInvalidPath(fqn, "collection name rejects '/', '.', '..'")
	}
	if isDunderWrapped(container) {
		return nerrs.WrapInvalidPath(fqn, "collection name matches reserved __...__ pattern")
	}
	for _, e := range p.Elements()[1:] {
		if err := validateBlobKeyElement(fqn, e); err != nil {
			return err
		}
	}
	return nil
}

// LocalFSValidator implements local-filesystem naming: no reserved
// device names, same control-character and trailing-dot bounds as the
// other backends so a fragmented file behaves identically everywhere.
type LocalFSValidator struct{}

func (LocalFSValidator) Validate(p Path) error {
	fqn := p.FullQualifiedName()
	if reservedContainers[p.Container()] {
		return nerrs.WrapInvalidPath(fqn, "reserved container name")
	}
	for _, e := range p.Elements()[1:] {
		if err := validateBlobKeyElement(fqn, e); err != nil {
			return err
		}
	}
	return nil
}

// StreamLogValidator implements append-log broker naming: the container
// maps to a topic/stream name and may not contain "*", ">" or a space,
// since NATS subjects treat "*" and ">" specially. No other character
// class is enforced on the container name.
type StreamLogValidator struct{}

func (StreamLogValidator) Validate(p Path) error {
	fqn := p.FullQualifiedName()
	container := p.Container()
	if reservedContainers[container] {
		return nerrs.WrapInvalidPath(fqn, "reserved container name")
	}
	if strings.ContainsAny(container, "*> ") {
		return nerrs.WrapInvalidPath(fqn, "stream name may not contain wildcard subject tokens")
	}
	for _, e := range p.Elements()[1:] {
		if err := validateBlobKeyElement(fqn, e); err != nil {
			return err
		}
	}
	return nil
}
