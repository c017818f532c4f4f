// Package action defines interaction phases, action descriptors and the
// registry that maps dot-separated action paths ("image.click.send") to
// descriptors.
//
// A Registry is assembled once through a Builder and is read-only after
// Build. Resolution is a plain walk down the segment tree: no wildcards, no
// inheritance, and a missing segment is reported as absent rather than as
// an error.
package action

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Registry errors.
var (
	// ErrInvalidPath indicates an empty path or an empty segment.
	ErrInvalidPath = errors.New("action: invalid path")

	// ErrDuplicatePath indicates a path was registered twice.
	ErrDuplicatePath = errors.New("action: path already registered")

	// ErrBuilderSealed indicates Register was called after Build.
	ErrBuilderSealed = errors.New("action: builder already built")
)

type node struct {
	children   map[string]*node
	descriptor *Descriptor
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Registry is an immutable tree of action descriptors.
type Registry struct {
	root  *node
	paths []string
}

// Builder collects descriptors before a Registry is built.
type Builder struct {
	root   *node
	paths  []string
	sealed bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{root: newNode()}
}

// Register adds d under path.
func (b *Builder) Register(path string, d Descriptor) error {
	if b.sealed {
		return ErrBuilderSealed
	}
	segments, ok := splitPath(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	n := b.root
	for _, seg := range segments {
		child := n.children[seg]
		if child == nil {
			child = newNode()
			n.children[seg] = child
		}
		n = child
	}
	if n.descriptor != nil {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, path)
	}

	d.path = path
	n.descriptor = &d
	b.paths = append(b.paths, path)
	return nil
}

// MustRegister registers d and panics on error.
// Useful for built-in actions declared at startup.
func (b *Builder) MustRegister(path string, d Descriptor) *Builder {
	if err := b.Register(path, d); err != nil {
		panic(err)
	}
	return b
}

// Build seals the builder and returns the registry.
func (b *Builder) Build() *Registry {
	b.sealed = true
	paths := make([]string, len(b.paths))
	copy(paths, b.paths)
	sort.Strings(paths)
	return &Registry{root: b.root, paths: paths}
}

// FromMap builds a registry from a flat path -> descriptor map.
func FromMap(actions map[string]Descriptor) (*Registry, error) {
	b := NewBuilder()
	for path, d := range actions {
		if err := b.Register(path, d); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Resolve returns the descriptor registered under path. Unknown paths,
// interior nodes without a descriptor, and malformed paths all resolve
// to absent.
func (r *Registry) Resolve(path string) (Descriptor, bool) {
	if r == nil || r.root == nil {
		return Descriptor{}, false
	}
	segments, ok := splitPath(path)
	if !ok {
		return Descriptor{}, false
	}

	n := r.root
	for _, seg := range segments {
		n = n.children[seg]
		if n == nil {
			return Descriptor{}, false
		}
	}
	if n.descriptor == nil {
		return Descriptor{}, false
	}
	return *n.descriptor, true
}

// Has reports whether path resolves to a descriptor.
func (r *Registry) Has(path string) bool {
	_, ok := r.Resolve(path)
	return ok
}

// Paths returns every registered path, sorted.
func (r *Registry) Paths() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.paths)
}

func splitPath(path string) ([]string, bool) {
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return nil, false
		}
	}
	return segments, true
}
