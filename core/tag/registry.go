package tag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/meigma/cachefile/core/internal/errdefs"
)

// Registry maps classes to definitions.
type Registry struct {
	defs map[Class]*Definition
}

// NewRegistry returns a registry holding defs.
func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{defs: make(map[Class]*Definition, len(defs))}
	for _, d := range defs {
		r.defs[d.Class] = d
	}
	return r
}

// DefaultRegistry returns the shared registry of built-in classes.
var DefaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(
		scenarioDefinition,
		structureBSPDefinition,
		globalsDefinition,
		tagCollectionDefinition,
		bitmapDefinition,
		soundDefinition,
		unicodeStringListDefinition,
		fontDefinition,
		hudMessageTextDefinition,
	)
})

// Lookup returns the definition for c.
func (r *Registry) Lookup(c Class) (*Definition, error) {
	if d, ok := r.defs[c]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %s", errdefs.ErrUnknownClass, c)
}

// Classes returns every registered class in ascending order.
func (r *Registry) Classes() []Class {
	out := make([]Class, 0, len(r.defs))
	for c := range r.defs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// New returns an empty tag of class c.
func (r *Registry) New(c Class) (*Tag, error) {
	def, err := r.Lookup(c)
	if err != nil {
		return nil, err
	}
	return &Tag{Def: def, Root: NewElement(def.Root)}, nil
}
