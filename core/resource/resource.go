// Package resource reads and writes resource maps, the auxiliary files that
// hold bitmap, sound and localization payloads shared between cache files.
//
// A resource map is a 0x10-byte header followed by payloads, a blob of null
// terminated paths and a table of 0xC-byte entries.
package resource

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/internal/sizing"
	"github.com/meigma/cachefile/core/tag"
)

// Type identifies what a resource map holds.
type Type uint32

const (
	TypeBitmaps Type = 1
	TypeSounds  Type = 2
	TypeLoc     Type = 3
)

func (t Type) String() string {
	switch t {
	case TypeBitmaps:
		return "bitmaps"
	case TypeSounds:
		return "sounds"
	case TypeLoc:
		return "loc"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// ParseType parses the name returned by Type.String.
func ParseType(s string) (Type, error) {
	for _, t := range []Type{TypeBitmaps, TypeSounds, TypeLoc} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: resource map type %q", errdefs.ErrInvalidMap, s)
}

// ClassType returns the map that tags of class c are stored in, or false if
// c is never stored in a resource map.
func ClassType(c tag.Class) (Type, bool) {
	switch c {
	case tag.ClassBitmap:
		return TypeBitmaps, true
	case tag.ClassSound:
		return TypeSounds, true
	case tag.ClassUnicodeStringList, tag.ClassFont, tag.ClassHUDMessageText:
		return TypeLoc, true
	default:
		return 0, false
	}
}

const (
	headerSize = 0x10
	entrySize  = 0xC

	// SoundAssetSuffix names the sample slot paired with each sound tag slot.
	SoundAssetSuffix = "__permutations"
)

// Resource is one named payload.
type Resource struct {
	Path string
	Data []byte
}

// Map is a parsed resource map. Resource data aliases the parsed buffer.
type Map struct {
	Type      Type
	resources []Resource
}

// Parse reads a resource map. Every entry must lie inside data.
func Parse(data []byte) (*Map, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: resource map is %d bytes", errdefs.ErrInvalidMap, len(data))
	}
	le := binary.LittleEndian
	typ := Type(le.Uint32(data[0x0:]))
	pathsOffset := uint64(le.Uint32(data[0x4:]))
	entriesOffset := uint64(le.Uint32(data[0x8:]))
	count := uint64(le.Uint32(data[0xC:]))

	size := uint64(len(data))
	if typ < TypeBitmaps || typ > TypeLoc {
		return nil, fmt.Errorf("%w: resource map type %d", errdefs.ErrInvalidMap, uint32(typ))
	}
	if pathsOffset > size || entriesOffset > size || count > (size-entriesOffset)/entrySize {
		return nil, fmt.Errorf("%w: resource map tables overrun %d bytes", errdefs.ErrOutOfBounds, size)
	}

	m := &Map{Type: typ, resources: make([]Resource, count)}
	paths := data[pathsOffset:]
	for i := range m.resources {
		e := data[entriesOffset+uint64(i)*entrySize:]
		pathOff := uint64(le.Uint32(e[0x0:]))
		n := uint64(le.Uint32(e[0x4:]))
		off := uint64(le.Uint32(e[0x8:]))
		end, ok := sizing.AddUint64(off, n)
		if !ok || end > size {
			return nil, fmt.Errorf("%w: resource %d data at 0x%X+0x%X", errdefs.ErrOutOfBounds, i, off, n)
		}
		path, err := cstring(paths, pathOff)
		if err != nil {
			return nil, fmt.Errorf("resource %d: %w", i, err)
		}
		m.resources[i] = Resource{Path: path, Data: data[off:end]}
	}
	return m, nil
}

func cstring(b []byte, off uint64) (string, error) {
	if off >= uint64(len(b)) {
		return "", fmt.Errorf("%w: path offset 0x%X", errdefs.ErrOutOfBounds, off)
	}
	for i, c := range b[off:] {
		if c == 0 {
			return string(b[off : off+uint64(i)]), nil
		}
	}
	return "", fmt.Errorf("%w: path is not null terminated", errdefs.ErrInvalidMap)
}

// Len returns the number of resources.
func (m *Map) Len() int {
	return len(m.resources)
}

// Entry returns the resource in slot i.
func (m *Map) Entry(i int) (Resource, error) {
	if i < 0 || i >= len(m.resources) {
		return Resource{}, fmt.Errorf("%w: resource %d of %d in %s map", errdefs.ErrOutOfBounds, i, len(m.resources), m.Type)
	}
	return m.resources[i], nil
}

// Find returns the slot of the first resource named path.
func (m *Map) Find(path string) (int, error) {
	for i := range m.resources {
		if m.resources[i].Path == path {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in %s map", errdefs.ErrResourceNotFound, path, m.Type)
}

// FindSound returns the tag slot of the sound named path. Sound maps
// interleave sample slots with tag slots, so only odd slots are searched.
func (m *Map) FindSound(path string) (int, error) {
	for i := 1; i < len(m.resources); i += 2 {
		if m.resources[i].Path == path {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: sound %q", errdefs.ErrResourceNotFound, path)
}

// Resources returns every resource in slot order.
func (m *Map) Resources() []Resource {
	out := make([]Resource, len(m.resources))
	copy(out, m.resources)
	return out
}

// Encode writes a resource map. Payloads are laid out in order after the
// header, followed by the path blob and the entry table.
func Encode(typ Type, resources []Resource) ([]byte, error) {
	le := binary.LittleEndian
	out := make([]byte, headerSize)
	dataOffsets := make([]uint64, len(resources))
	for i, r := range resources {
		dataOffsets[i] = uint64(len(out))
		out = append(out, r.Data...)
	}

	pathsOffset := uint64(len(out))
	pathOffsets := make([]uint64, len(resources))
	for i, r := range resources {
		pathOffsets[i] = uint64(len(out)) - pathsOffset
		out = append(out, r.Path...)
		out = append(out, 0)
	}

	entriesOffset := uint64(len(out))
	for i, r := range resources {
		for _, v := range []uint64{pathOffsets[i], uint64(len(r.Data)), dataOffsets[i]} {
			n, err := sizing.ToUint32(v, &errdefs.CapacityError{Limit: "resource map", Size: v, Max: 0xFFFFFFFF})
			if err != nil {
				return nil, err
			}
			out = le.AppendUint32(out, n)
		}
	}

	le.PutUint32(out[0x0:], uint32(typ))
	for off, v := range map[int]uint64{0x4: pathsOffset, 0x8: entriesOffset, 0xC: uint64(len(resources))} {
		n, err := sizing.ToUint32(v, &errdefs.CapacityError{Limit: "resource map", Size: v, Max: 0xFFFFFFFF})
		if err != nil {
			return nil, err
		}
		le.PutUint32(out[off:], n)
	}
	return out, nil
}
