// Package registry assigns stable identities to component definitions.
//
// Each distinct *Definition receives one ID from a monotonically increasing
// counter the first time it is registered. Registering the same definition
// under another local name reuses that ID, so cache keys derived from it stay
// reproducible across runs.
package registry

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

var (
	// ErrEmptyName is returned when registering under an empty local name.
	ErrEmptyName = errors.New("registry: empty local name")
	// ErrNilDefinition is returned when registering a nil definition.
	ErrNilDefinition = errors.New("registry: nil definition")
)

// ID identifies a registered definition. IDs start at 1.
type ID uint64

func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Definition describes a constructible component type.
type Definition struct {
	// Name is the declared display name. If empty at first registration it
	// is set to the local name it was registered under.
	Name string
}

// Type is a registered definition as seen under one local name.
type Type struct {
	ID    ID
	Local string
	Def   *Definition
}

// Name returns the definition's display name.
func (t *Type) Name() string {
	if t == nil || t.Def == nil {
		return ""
	}
	return t.Def.Name
}

// Registry maps local names to types. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	last  ID
	ids   map[*Definition]ID
	local map[string]*Type
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		ids:   make(map[*Definition]ID),
		local: make(map[string]*Type),
	}
}

// Register binds def under localName and returns its Type. Re-registering a
// local name replaces the previous binding.
func (r *Registry) Register(localName string, def *Definition) (*Type, error) {
	if localName == "" {
		return nil, ErrEmptyName
	}
	if def == nil {
		return nil, fmt.Errorf("register %q: %w", localName, ErrNilDefinition)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.ids[def]
	if !ok {
		r.last++
		id = r.last
		r.ids[def] = id
		if def.Name == "" {
			def.Name = localName
		}
	}
	t := &Type{ID: id, Local: localName, Def: def}
	r.local[localName] = t
	return t, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(localName string, def *Definition) *Type {
	t, err := r.Register(localName, def)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the type registered under localName.
func (r *Registry) Lookup(localName string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.local[localName]
	return t, ok
}

// Len returns the number of distinct definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// NameOf resolves a candidate's display name: the definition name, else the tag.
func NameOf(t *Type, tag string) string {
	if n := t.Name(); n != "" {
		return n
	}
	return tag
}
