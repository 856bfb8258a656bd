package mapfile

import (
	"fmt"

	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/core/tag"
)

// Resolver finds the data of tags stored in resource maps.
type Resolver struct {
	bitmaps, sounds, loc *resource.Map
}

// NewResolver returns a resolver over the given maps. Any map may be nil.
func NewResolver(bitmaps, sounds, loc *resource.Map) *Resolver {
	return &Resolver{bitmaps: bitmaps, sounds: sounds, loc: loc}
}

// External is a tag read from a resource map.
type External struct {
	Type resource.Type
	// Index is the slot holding the tag's structs.
	Index int
	// Data holds the tag's structs with the root at offset zero.
	Data []byte
	// Assets is the region raw asset file offsets are relative to. For
	// sounds it is the paired sample slot, otherwise it is Data.
	Assets []byte
}

// Map returns the resource map of type typ.
func (r *Resolver) Map(typ resource.Type) (*resource.Map, error) {
	var m *resource.Map
	switch typ {
	case resource.TypeBitmaps:
		m = r.bitmaps
	case resource.TypeSounds:
		m = r.sounds
	case resource.TypeLoc:
		m = r.loc
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrResourceMapRequired, typ)
	}
	return m, nil
}

// Resolve locates an indexed tag. Bitmap and loc tags are found by slot
// index; sounds are found by path because their slots are paired.
func (r *Resolver) Resolve(class tag.Class, path string, index uint64) (External, error) {
	typ, ok := resource.ClassType(class)
	if !ok {
		return External{}, fmt.Errorf("%w: %s tags are never external", errdefs.ErrInvalidMap, class)
	}
	m, err := r.Map(typ)
	if err != nil {
		return External{}, err
	}

	if typ == resource.TypeSounds {
		slot, err := soundSlot(m, path, index)
		if err != nil {
			return External{}, err
		}
		// Sound slots are odd, so slot-1 exists.
		samples, err := m.Entry(slot - 1)
		if err != nil {
			return External{}, err
		}
		structs, err := m.Entry(slot)
		if err != nil {
			return External{}, err
		}
		return External{Type: typ, Index: slot, Data: structs.Data, Assets: samples.Data}, nil
	}

	if index >= uint64(m.Len()) {
		return External{}, fmt.Errorf("%w: resource %d of %d in %s map", errdefs.ErrOutOfBounds, index, m.Len(), typ)
	}
	e, err := m.Entry(int(index)) //nolint:gosec // bounded above
	if err != nil {
		return External{}, err
	}
	return External{Type: typ, Index: int(index), Data: e.Data, Assets: e.Data}, nil //nolint:gosec // bounded above
}

// soundSlot finds a sound by path. A sound whose path was discarded falls
// back to the slot stored in its tag record.
func soundSlot(m *resource.Map, path string, index uint64) (int, error) {
	if path != "" {
		return m.FindSound(path)
	}
	if index >= uint64(m.Len()) || index%2 == 0 {
		return 0, fmt.Errorf("%w: sound slot %d of %d", errdefs.ErrOutOfBounds, index, m.Len())
	}
	return int(index), nil //nolint:gosec // bounded above
}
