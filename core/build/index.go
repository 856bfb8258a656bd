package build

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/core/tag"
)

func (w *Workload) resourceMap(typ resource.Type) *resource.Map {
	switch typ {
	case resource.TypeBitmaps:
		return w.cfg.bitmaps
	case resource.TypeSounds:
		return w.cfg.sounds
	case resource.TypeLoc:
		return w.cfg.loc
	default:
		return nil
	}
}

// IndexResources marks tags whose data can be read from a resource map
// instead of the cache file. Only profiles with resource maps index tags, and
// only tags whose structs reference no other tag are eligible.
func (w *Workload) IndexResources() error {
	if !w.profile.ResourceMaps || w.cfg.resourcePolicy == ResourcesNone {
		return nil
	}
	indexed := 0
	for i, t := range w.tags {
		typ, ok := resource.ClassType(t.Class)
		if !ok {
			continue
		}
		m := w.resourceMap(typ)
		if m == nil || !w.selfContained(i) {
			continue
		}
		var (
			slot int
			err  error
		)
		if typ == resource.TypeSounds {
			slot, err = m.FindSound(t.Path)
		} else {
			slot, err = m.Find(t.Path)
		}
		if err != nil {
			continue
		}
		if w.cfg.resourcePolicy == ResourcesMatching {
			same, err := w.matchesResource(i, m, slot)
			if err != nil {
				return err
			}
			if !same {
				w.log().Debug("resource differs, keeping tag", "path", t.Path, "class", t.Class.String())
				continue
			}
		}
		t.Indexed = true
		t.ResourceIndex = slot
		indexed++
	}
	w.log().Info("indexed resources", "tags", indexed, "policy", w.cfg.resourcePolicy.String())
	return nil
}

// selfContained reports whether no struct reachable from the tag's root
// depends on another tag.
func (w *Workload) selfContained(index int) bool {
	for _, s := range w.reachableFrom(w.tags[index].Root) {
		if len(w.structs[s].Dependencies) > 0 {
			return false
		}
	}
	return true
}

func (w *Workload) matchesResource(index int, m *resource.Map, slot int) (bool, error) {
	blobs, err := w.TagResources(index)
	if err != nil {
		return false, err
	}
	first := slot - len(blobs) + 1
	for k, b := range blobs {
		r, err := m.Entry(first + k)
		if err != nil {
			return false, nil //nolint:nilerr // a short map just means no match
		}
		if !bytes.Equal(r.Data, b.Data) {
			return false, nil
		}
	}
	return true, nil
}

// reachableFrom returns root and every struct reachable through pointers,
// in ascending order with root first.
func (w *Workload) reachableFrom(root int) []int {
	seen := map[int]bool{root: true}
	stack := []int{root}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range w.structs[s].Pointers {
			if !seen[p.Struct] {
				seen[p.Struct] = true
				stack = append(stack, p.Struct)
			}
		}
	}
	rest := make([]int, 0, len(seen)-1)
	for s := range seen {
		if s != root {
			rest = append(rest, s)
		}
	}
	slices.Sort(rest)
	return append([]int{root}, rest...)
}

// TagResources serializes one self-contained tag into resource map slots.
// Structs are laid out from offset zero with the root first and pointers
// written as offsets. Bitmap and loc tags use one slot with assets after the
// structs. Sounds use two slots, samples then structs, and asset offsets are
// relative to the sample slot.
func (w *Workload) TagResources(index int) ([]resource.Resource, error) {
	t := w.tags[index]
	typ, ok := resource.ClassType(t.Class)
	if !ok {
		return nil, fmt.Errorf("%w: %s tags are not stored in resource maps", errdefs.ErrInvalidTag, t.Class)
	}
	if !w.selfContained(index) {
		return nil, fmt.Errorf("%w: %s.%s references other tags", errdefs.ErrInvalidDependency, t.Path, t.Class.Extension())
	}
	ps := uint64(w.profile.PointerSize) //nolint:gosec // 4 or 8

	var structs, assets []int
	for _, s := range w.reachableFrom(t.Root) {
		if w.structs[s].Region.Kind == RegionAsset {
			assets = append(assets, s)
		} else {
			structs = append(structs, s)
		}
	}

	offsets := make(map[int]uint64, len(structs)+len(assets))
	var blob []byte
	for _, s := range structs {
		blob = padTo(blob, ps)
		offsets[s] = uint64(len(blob))
		blob = append(blob, w.structs[s].Data...)
	}
	var samples []byte
	for _, s := range assets {
		if typ == resource.TypeSounds {
			offsets[s] = uint64(len(samples))
			samples = append(samples, w.structs[s].Data...)
			continue
		}
		blob = padTo(blob, ps)
		offsets[s] = uint64(len(blob))
		blob = append(blob, w.structs[s].Data...)
	}

	for _, s := range structs {
		base := offsets[s]
		for _, p := range w.structs[s].Pointers {
			at := base + uint64(p.Offset) //nolint:gosec // offsets are non-negative
			if err := putPointer(blob[at:], p, offsets[p.Struct], w.profile.PointerSize); err != nil {
				return nil, err
			}
		}
	}

	if typ == resource.TypeSounds {
		return []resource.Resource{
			{Path: t.Path + resource.SoundAssetSuffix, Data: samples},
			{Path: t.Path, Data: blob},
		}, nil
	}
	return []resource.Resource{{Path: t.Path, Data: blob}}, nil
}

// putPointer writes a resolved pointer. File offsets are always 32 bits.
func putPointer(b []byte, p Pointer, value uint64, pointerSize int) error {
	if p.Kind == PointerFileOffset || pointerSize == 4 {
		if value > 0xFFFFFFFF {
			return &errdefs.CapacityError{Limit: "32-bit pointer", Size: value, Max: 0xFFFFFFFF}
		}
		binary.LittleEndian.PutUint32(b, uint32(value))
		return nil
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}

func padTo(b []byte, alignment uint64) []byte {
	if r := uint64(len(b)) % alignment; r != 0 {
		b = append(b, make([]byte, alignment-r)...)
	}
	return b
}

// ResourceMap compiles refs for profile p and encodes them as a resource map
// of type typ. Sound maps hold two slots per tag.
func ResourceMap(ctx context.Context, p *engine.Profile, search *tag.SearchPath, typ resource.Type, refs []engine.TagRef, opts ...Option) ([]byte, error) {
	w := NewWorkload(p, search, opts...)
	w.log().Info("building resource map", "type", typ.String(), "tags", len(refs))

	var out []resource.Resource
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rt, ok := resource.ClassType(ref.Class); !ok || rt != typ {
			return nil, fmt.Errorf("%w: %s does not belong in a %s map", errdefs.ErrInvalidTag, ref, typ)
		}
		index, err := w.CompileTag(ref.Path, ref.Class)
		if err != nil {
			return nil, err
		}
		slots, err := w.TagResources(index)
		if err != nil {
			return nil, err
		}
		out = append(out, slots...)
	}
	return resource.Encode(typ, out)
}
