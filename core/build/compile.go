package build

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/tag"
)

// CompileTag compiles path and everything it references, returning the tag
// index that dependencies are patched to.
//
// Calls are memoized by (path, class). A tag that is still compiling returns
// its index without recursing, so cycles terminate.
func (w *Workload) CompileTag(path string, class tag.Class) (int, error) {
	if path == "" || len(path) > tag.MaxPathLength {
		return Unset, fmt.Errorf("%w: %q", errdefs.ErrInvalidTagPath, path)
	}
	if _, err := w.registry.Lookup(class); err != nil {
		return Unset, fmt.Errorf("%s: %w", path, err)
	}
	ref := engine.TagRef{Path: path, Class: class}
	index, ok := w.seen[ref]
	if ok && !w.tags[index].pending {
		return index, nil
	}
	if !ok {
		var err error
		if index, err = w.reserve(ref); err != nil {
			return Unset, err
		}
	}
	w.tags[index].pending = false

	src, err := w.search.Load(path, class, w.registry)
	if err != nil {
		return Unset, err
	}
	w.log().Debug("compiling tag", "path", path, "class", class.String(), "index", index)

	if err := w.checkTag(src); err != nil {
		return Unset, fmt.Errorf("%s: %w", ref, err)
	}

	region := Region{Kind: RegionTagData}
	if class == tag.ClassStructureBSP {
		region = Region{Kind: RegionBSP, BSP: w.bspCount}
		w.tags[index].BSP = w.bspCount
		w.bspCount++
	}
	root, err := w.encodeArray(index, src.Def.Root, []*tag.Element{src.Root}, region)
	if err != nil {
		return Unset, fmt.Errorf("%s: %w", ref, err)
	}
	w.tags[index].Root = root
	return index, nil
}

// reserve appends an uncompiled placeholder for ref.
func (w *Workload) reserve(ref engine.TagRef) (int, error) {
	if len(w.tags) >= engine.MaxTagCount {
		return Unset, &errdefs.CapacityError{Limit: "tag count", Size: uint64(len(w.tags)) + 1, Max: engine.MaxTagCount}
	}
	index := len(w.tags)
	w.tags = append(w.tags, &Tag{Path: ref.Path, Class: ref.Class, Root: Unset, BSP: -1, pending: true})
	w.seen[ref] = index
	return index, nil
}

// CompileScenario compiles the scenario, then the tags the profile requires
// for its type. Tags reserved with WithIndex are compiled first.
func (w *Workload) CompileScenario(ctx context.Context, path string) error {
	for _, ref := range w.cfg.index {
		if _, ok := w.seen[ref]; ok {
			continue
		}
		if _, err := w.reserve(ref); err != nil {
			return err
		}
	}
	for _, ref := range w.cfg.index {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.CompileTag(ref.Path, ref.Class); err != nil {
			return err
		}
	}

	index, err := w.CompileTag(path, tag.ClassScenario)
	if err != nil {
		return err
	}
	w.scenario = index
	w.scenarioType = w.readScenarioType()
	w.log().Info("compiled scenario", "path", path, "type", w.scenarioType.String(), "tags", len(w.tags))

	for _, ref := range w.profile.RequiredTags(w.scenarioType) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.CompileTag(ref.Path, ref.Class); err != nil {
			return fmt.Errorf("required tag %s: %w", ref, err)
		}
	}
	return nil
}

func (w *Workload) readScenarioType() engine.ScenarioType {
	def, err := w.registry.Lookup(tag.ClassScenario)
	if err != nil {
		return engine.ScenarioSingleplayer
	}
	off := fieldOffset(def.Root, tag.ScenarioType, w.profile.PointerSize)
	root := w.structs[w.tags[w.scenario].Root]
	if off < 0 || off+2 > len(root.Data) {
		return engine.ScenarioSingleplayer
	}
	return engine.ScenarioType(binary.LittleEndian.Uint16(root.Data[off:]))
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

// encodeArray appends one struct holding elems laid out back to back.
func (w *Workload) encodeArray(tagIndex int, s *tag.Struct, elems []*tag.Element, region Region) (int, error) {
	size := s.CacheSize(w.profile.PointerSize)
	st := &Struct{Data: make([]byte, size*len(elems)), Region: region, NoDedupe: s.NoDedupe}
	index := w.addStruct(st)
	for i, e := range elems {
		if err := w.encodeElement(tagIndex, st, i*size, e, region); err != nil {
			return Unset, err
		}
	}
	return index, nil
}

func (w *Workload) encodeElement(tagIndex int, st *Struct, off int, e *tag.Element, region Region) error {
	le := binary.LittleEndian
	ps := w.profile.PointerSize
	for i := range e.Def.Fields {
		f := &e.Def.Fields[i]
		v := &e.Values[i]
		b := st.Data[off:]
		switch f.Kind {
		case tag.KindPad:
		case tag.KindU8:
			b[0] = byte(v.Uint)
		case tag.KindU16, tag.KindI16:
			le.PutUint16(b, uint16(v.Uint)) //nolint:gosec // field width
		case tag.KindU32, tag.KindI32, tag.KindF32:
			le.PutUint32(b, uint32(v.Uint)) //nolint:gosec // field width
		case tag.KindString32:
			if len(v.String) >= 32 {
				return fmt.Errorf("%w: %s is %d bytes", errdefs.ErrStringOverflow, f.Name, len(v.String))
			}
			copy(b[:32], v.String)
		case tag.KindDependency:
			if err := w.encodeDependency(st, off, f, v.Ref); err != nil {
				return err
			}
		case tag.KindBlock:
			if len(v.Block) == 0 {
				break
			}
			child, err := w.encodeArray(tagIndex, f.Block, v.Block, region)
			if err != nil {
				return err
			}
			l := tag.BlockLayout(ps)
			le.PutUint32(b[l.Count:], uint32(len(v.Block))) //nolint:gosec // bounded by source size
			st.Pointers = append(st.Pointers, Pointer{Offset: off + l.Address, Struct: child})
		case tag.KindData:
			if len(v.Data) == 0 {
				break
			}
			w.encodeData(tagIndex, st, off, f, v.Data, region)
		}
		off += f.CacheSize(ps)
	}
	return nil
}

func (w *Workload) encodeDependency(st *Struct, off int, f *tag.Field, ref tag.Ref) error {
	l := tag.DependencyLayout(w.profile.PointerSize)
	le := binary.LittleEndian
	le.PutUint32(st.Data[off+l.Class:], uint32(ref.Class))
	if ref.IsNull() {
		le.PutUint32(st.Data[off+l.ID:], 0xFFFFFFFF)
		return nil
	}
	if !f.Accepts(ref.Class) {
		return fmt.Errorf("%w: %s cannot reference %s.%s", errdefs.ErrInvalidDependency, f.Name, ref.Path, ref.Class.Extension())
	}
	target, err := w.CompileTag(ref.Path, ref.Class)
	if err != nil {
		return err
	}
	st.Dependencies = append(st.Dependencies, Dependency{Offset: off, Tag: target, IDOnly: f.IDOnly})
	return nil
}

func (w *Workload) encodeData(tagIndex int, st *Struct, off int, f *tag.Field, data []byte, region Region) {
	l := tag.DataLayout(w.profile.PointerSize)
	le := binary.LittleEndian
	le.PutUint32(st.Data[off+l.Size:], uint32(len(data))) //nolint:gosec // bounded by source size
	payload := &Struct{Data: append([]byte(nil), data...), Region: region}
	if f.Asset {
		payload.Region = Region{Kind: RegionAsset}
		child := w.addStruct(payload)
		w.tags[tagIndex].Assets = append(w.tags[tagIndex].Assets, child)
		le.PutUint32(st.Data[off+l.Flags:], tag.DataFlagExternal)
		st.Pointers = append(st.Pointers, Pointer{Offset: off + l.FileOffset, Struct: child, Kind: PointerFileOffset})
		return
	}
	child := w.addStruct(payload)
	st.Pointers = append(st.Pointers, Pointer{Offset: off + l.Address, Struct: child})
}
