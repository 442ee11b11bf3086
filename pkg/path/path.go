// Package path implements NebulaStore's container-rooted hierarchical
// path model (spec §3, §4.1). A Path is immutable and ordered: the
// container is always its first element and is the unit that maps onto
// a backend namespace (bucket, container, collection, directory, topic).
package path

import "strings"

// Separator is the path element separator used in qualified names.
const Separator = "/"

// Path is an immutable, ordered sequence of elements rooted at a
// container. len(Elements) >= 1 always holds; Elements[0] is the
// container name.
type Path struct {
	elements []string
}

// New builds a Path from a container and zero or more child elements.
// It panics if container is empty — callers validate user-supplied
// containers with a Validator before constructing a Path from them.
func New(container string, elements ...string) Path {
	if container == "" {
		panic("path: empty container")
	}
	all := make([]string, 0, len(elements)+1)
	all = append(all, container)
	all = append(all, elements...)
	return Path{elements: all}
}

// FromQualifiedName splits a "/"-joined qualified name back into a Path.
func FromQualifiedName(qualified string) Path {
	parts := strings.Split(strings.Trim(qualified, Separator), Separator)
	return Path{elements: parts}
}

// Container returns the path's root namespace element.
func (p Path) Container() string {
	return p.elements[0]
}

// Elements returns a defensive copy of the full element sequence,
// including the container.
func (p Path) Elements() []string {
	out := make([]string, len(p.elements))
	copy(out, p.elements)
	return out
}

// Name returns the final path element (the file or directory's own name).
func (p Path) Name() string {
	return p.elements[len(p.elements)-1]
}

// Depth returns the number of elements after the container.
func (p Path) Depth() int {
	return len(p.elements) - 1
}

// Parent returns the path with its last element removed. It panics when
// called on a bare container path, which has no parent.
func (p Path) Parent() Path {
	if len(p.elements) <= 1 {
		panic("path: container has no parent")
	}
	return Path{elements: p.elements[:len(p.elements)-1]}
}

// IsDirectory reports whether this path is a bare container path (the
// container root). It is purely structural: any path with at least one
// element after the container reports false, even when it is used as a
// prefix for children.
func (p Path) IsDirectory() bool {
	return len(p.elements) == 1
}

// Child returns a new Path with an additional trailing element.
func (p Path) Child(name string) Path {
	all := make([]string, len(p.elements)+1)
	copy(all, p.elements)
	all[len(p.elements)] = name
	return Path{elements: all}
}

// FullQualifiedName renders the path as a "/"-joined string, the same
// representation backend key derivation builds on in package blobkey.
func (p Path) FullQualifiedName() string {
	return strings.Join(p.elements, Separator)
}

// SubPath renders just the elements after the container, "/"-joined —
// the portion of the name a backend key is derived from.
func (p Path) SubPath() string {
	if len(p.elements) == 1 {
		return ""
	}
	return strings.Join(p.elements[1:], Separator)
}

// Equal compares two paths by full qualified name. Backends that
// require lowercase-normalized comparison (object stores, document
// stores) should normalize before constructing the Path rather than
// overriding this method, keeping Path backend-agnostic.
func (p Path) Equal(other Path) bool {
	return p.FullQualifiedName() == other.FullQualifiedName()
}

// String implements fmt.Stringer for logging.
func (p Path) String() string {
	return p.FullQualifiedName()
}
