package mapfile

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/cachefile/core/format"
	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/internal/sizing"
	"github.com/meigma/cachefile/core/tag"
)

// maxDepth bounds block nesting so a malformed file cannot recurse forever.
const maxDepth = 32

// reader reads structs of one tag out of the region its root lives in.
type reader struct {
	m      *Map
	view   format.View
	assets func(off, size uint64) ([]byte, error)
}

// readBSPs locates each structure BSP through the scenario's structure_bsps
// table. Every BSP tag must be listed.
func (m *Map) readBSPs() error {
	ps := m.Profile.PointerSize
	scenario := m.tags[m.Scenario]
	if scenario.Class != tag.ClassScenario || scenario.Location.Kind != LocationInline {
		return fmt.Errorf("%w: scenario tag is a %s", errdefs.ErrInvalidMap, scenario.Class)
	}
	def, err := m.registry.Lookup(tag.ClassScenario)
	if err != nil {
		return err
	}
	blockOff := fieldOffset(def.Root, tag.ScenarioStructureBSPs, ps)
	if blockOff < 0 {
		return nil
	}
	bl := tag.BlockLayout(ps)
	at := scenario.Location.Address + format.Address(blockOff) //nolint:gosec // non-negative
	count, err := m.tagData.Uint32(at + format.Address(bl.Count))
	if err != nil {
		return err
	}
	table, err := m.tagData.Pointer(at+format.Address(bl.Address), ps)
	if err != nil {
		return err
	}

	elemSize := uint64(tag.ScenarioBSP.CacheSize(ps)) //nolint:gosec // small
	startOff := fieldOffset(tag.ScenarioBSP, tag.ScenarioBSPStart, ps)
	sizeOff := fieldOffset(tag.ScenarioBSP, tag.ScenarioBSPSize, ps)
	addrOff := fieldOffset(tag.ScenarioBSP, tag.ScenarioBSPAddress, ps)
	refOff := fieldOffset(tag.ScenarioBSP, tag.ScenarioBSPReference, ps)
	dl := tag.DependencyLayout(ps)
	le := binary.LittleEndian

	if count > 0 {
		if _, err := m.tagData.At(table, uint64(count)*elemSize); err != nil {
			return fmt.Errorf("structure_bsps: %w", err)
		}
	}
	for i := range uint64(count) {
		e, _ := m.tagData.At(table+format.Address(i*elemSize), elemSize)
		id := format.TagID(le.Uint32(e[refOff+dl.ID:]))
		if id.IsNull() {
			continue
		}
		if !id.Valid(len(m.tags)) || m.tags[id.Index()].Class != tag.ClassStructureBSP {
			return fmt.Errorf("%w: structure_bsps entry %d references 0x%08X", errdefs.ErrInvalidMap, i, uint32(id))
		}
		start := uint64(le.Uint32(e[startOff:]))
		size := uint64(le.Uint32(e[sizeOff:]))
		end, ok := sizing.AddUint64(start, size)
		if !ok || start < format.HeaderSize || end > uint64(len(m.file)) {
			return fmt.Errorf("%w: bsp region 0x%X+0x%X", errdefs.ErrOutOfBounds, start, size)
		}
		bh, err := format.DecodeBSPHeader(m.file[start:end])
		if err != nil {
			return err
		}
		t := &m.tags[id.Index()]
		t.Location = Location{
			Kind:        LocationBSP,
			Address:     format.Address(bh.Pointer),
			Offset:      start,
			Size:        size,
			BaseAddress: format.Address(le.Uint32(e[addrOff:])),
		}
		if err := m.checkRoot(t.Class, m.bspView(t.Location), t.Location.Address); err != nil {
			return fmt.Errorf("bsp %s: %w", t.Path, err)
		}
	}
	for i := range m.tags {
		if t := &m.tags[i]; t.Location.Kind == LocationBSP && t.Location.Size == 0 {
			return fmt.Errorf("%w: structure bsp %d (%s) is not in structure_bsps", errdefs.ErrInvalidMap, i, t.Path)
		}
	}
	return nil
}

func (m *Map) bspView(loc Location) format.View {
	return format.NewView(m.file[loc.Offset:loc.Offset+loc.Size], uint64(loc.BaseAddress))
}

// fieldOffset returns the cache offset of a named field, or -1.
func fieldOffset(s *tag.Struct, name string, pointerSize int) int {
	off := 0
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return off
		}
		off += s.Fields[i].CacheSize(pointerSize)
	}
	return -1
}

// Decode rebuilds tag i from the cache layout. Dependencies are resolved
// back to paths through the tag array.
func (m *Map) Decode(i int) (*tag.Tag, error) {
	t, err := m.Tag(i)
	if err != nil {
		return nil, err
	}
	def, err := m.registry.Lookup(t.Class)
	if err != nil {
		return nil, err
	}

	r := &reader{m: m}
	root := t.Location.Address
	switch t.Location.Kind {
	case LocationExternal:
		ext := t.Location.External
		r.view = format.NewView(ext.Data, 0)
		r.assets = sliceAssets(ext.Assets)
		root = 0
	case LocationBSP:
		r.view = m.bspView(t.Location)
		r.assets = sliceAssets(m.file)
	default:
		r.view = m.tagData
		r.assets = sliceAssets(m.file)
	}

	elems, err := r.readArray(def.Root, root, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("decode %s.%s: %w", t.Path, t.Class.Extension(), err)
	}
	return &tag.Tag{Def: def, Root: elems[0]}, nil
}

// sliceAssets reads raw assets addressed by offset into b.
func sliceAssets(b []byte) func(off, size uint64) ([]byte, error) {
	return func(off, size uint64) ([]byte, error) {
		end, ok := sizing.AddUint64(off, size)
		if !ok || end > uint64(len(b)) {
			return nil, fmt.Errorf("%w: asset 0x%X+0x%X", errdefs.ErrOutOfBounds, off, size)
		}
		return b[off:end], nil
	}
}

func (r *reader) readArray(s *tag.Struct, addr format.Address, count uint64, depth int) ([]*tag.Element, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: blocks nested deeper than %d", errdefs.ErrInvalidMap, maxDepth)
	}
	ps := r.m.Profile.PointerSize
	size := uint64(s.CacheSize(ps)) //nolint:gosec // small
	if size != 0 && count > uint64(r.view.Len())/size {
		return nil, fmt.Errorf("%w: %d %s elements", errdefs.ErrOutOfBounds, count, s.Name)
	}
	b, err := r.view.At(addr, count*size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	out := make([]*tag.Element, count)
	for i := range out {
		e, err := r.readElement(s, b[uint64(i)*size:], depth)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (r *reader) readElement(s *tag.Struct, b []byte, depth int) (*tag.Element, error) {
	le := binary.LittleEndian
	ps := r.m.Profile.PointerSize
	e := tag.NewElement(s)
	off := 0
	for i := range s.Fields {
		f := &s.Fields[i]
		v := &e.Values[i]
		fb := b[off:]
		switch f.Kind {
		case tag.KindPad:
		case tag.KindU8:
			v.Uint = uint64(fb[0])
		case tag.KindU16, tag.KindI16:
			v.Uint = uint64(le.Uint16(fb))
		case tag.KindU32, tag.KindI32, tag.KindF32:
			v.Uint = uint64(le.Uint32(fb))
		case tag.KindString32:
			v.String = cString(fb[:32])
		case tag.KindDependency:
			v.Ref = r.readRef(fb)
		case tag.KindBlock:
			l := tag.BlockLayout(ps)
			count := uint64(le.Uint32(fb[l.Count:]))
			if count == 0 {
				break
			}
			var err error
			if v.Block, err = r.readArray(f.Block, r.pointer(fb[l.Address:]), count, depth+1); err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
		case tag.KindData:
			data, err := r.readData(fb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			v.Data = data
		}
		off += f.CacheSize(ps)
	}
	return e, nil
}

func (r *reader) pointer(b []byte) format.Address {
	if r.m.Profile.PointerSize == 8 {
		return format.Address(binary.LittleEndian.Uint64(b))
	}
	return format.Address(binary.LittleEndian.Uint32(b))
}

func (r *reader) readRef(b []byte) tag.Ref {
	l := tag.DependencyLayout(r.m.Profile.PointerSize)
	le := binary.LittleEndian
	ref := tag.Ref{Class: tag.Class(le.Uint32(b[l.Class:]))}
	id := format.TagID(le.Uint32(b[l.ID:]))
	if id.Valid(len(r.m.tags)) {
		target := r.m.tags[id.Index()]
		ref.Path = target.Path
		if ref.Class == tag.ClassNone || ref.Class == 0 {
			ref.Class = target.Class
		}
	}
	return ref
}

func (r *reader) readData(b []byte) ([]byte, error) {
	l := tag.DataLayout(r.m.Profile.PointerSize)
	le := binary.LittleEndian
	size := uint64(le.Uint32(b[l.Size:]))
	if size == 0 {
		return nil, nil
	}
	if le.Uint32(b[l.Flags:])&tag.DataFlagExternal != 0 {
		data, err := r.assets(uint64(le.Uint32(b[l.FileOffset:])), size)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), data...), nil
	}
	data, err := r.view.At(r.pointer(b[l.Address:]), size)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
