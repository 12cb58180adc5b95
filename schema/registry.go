package schema

import (
	"fmt"
	"sort"
)

// Definition is a named type stored in a Registry.
type Definition struct {
	Name string
	// QualifiedName identifies the declaring module; builtins use "near.<Name>".
	QualifiedName string
	Type          *Descriptor
}

// Registry holds the named definitions of one unit, or of a whole batch
// after merging.
type Registry struct {
	defs  map[string]*Definition
	order []string

	// qualified names whose definition is currently being derived, per
	// simple name
	pending map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:    make(map[string]*Definition),
		pending: make(map[string][]string),
	}
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Len returns the number of definitions.
func (r *Registry) Len() int { return len(r.order) }

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Definitions returns definitions sorted by name.
func (r *Registry) Definitions() []*Definition {
	names := r.Names()
	out := make([]*Definition, len(names))
	for i, n := range names {
		out[i] = r.defs[n]
	}
	return out
}

// Add registers def. Adding a definition structurally identical to the one
// already under that name is a no-op, whatever module declared it. A
// differing shape under an existing name is a collision.
func (r *Registry) Add(def *Definition) error {
	if existing, ok := r.defs[def.Name]; ok {
		if Equal(existing.Type, def.Type) {
			return nil
		}
		return &CollisionError{Name: def.Name, First: existing.QualifiedName, Second: def.QualifiedName}
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Merge adds every definition of other into r.
func (r *Registry) Merge(other *Registry) error {
	for _, name := range other.order {
		if err := r.Add(other.defs[name]); err != nil {
			return err
		}
	}
	return nil
}

// Mark returns a checkpoint for Rollback.
func (r *Registry) Mark() int { return len(r.order) }

// Rollback removes every definition added after mark.
func (r *Registry) Rollback(mark int) {
	for _, name := range r.order[mark:] {
		delete(r.defs, name)
	}
	r.order = r.order[:mark]
}

// Resolve follows a reference to its definition's descriptor. Non-reference
// descriptors are returned unchanged.
func (r *Registry) Resolve(d *Descriptor) (*Descriptor, error) {
	if d.Kind != KindReference {
		return d, nil
	}
	def, ok := r.defs[d.Name]
	if !ok {
		return nil, fmt.Errorf("unresolved reference %q", d.Name)
	}
	return def.Type, nil
}

// CheckReferences verifies that every reference reachable from d, directly
// or through definitions, resolves.
func (r *Registry) CheckReferences(d *Descriptor) error {
	visited := map[string]bool{}
	var check func(*Descriptor) error
	check = func(d *Descriptor) error {
		for _, name := range References(d) {
			if visited[name] {
				continue
			}
			visited[name] = true
			def, ok := r.defs[name]
			if !ok {
				return fmt.Errorf("unresolved reference %q", name)
			}
			if err := check(def.Type); err != nil {
				return err
			}
		}
		return nil
	}
	return check(d)
}

func (r *Registry) claim(name, qualified string) {
	r.pending[name] = append(r.pending[name], qualified)
}

func (r *Registry) release(name string) {
	stack := r.pending[name]
	if len(stack) <= 1 {
		delete(r.pending, name)
		return
	}
	r.pending[name] = stack[:len(stack)-1]
}

func (r *Registry) isPending(name, qualified string) bool {
	for _, q := range r.pending[name] {
		if q == qualified {
			return true
		}
	}
	return false
}
