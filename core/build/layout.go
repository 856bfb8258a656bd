package build

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/format"
	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/internal/sizing"
	"github.com/meigma/cachefile/core/tag"
)

// bspRegion is one laid out structure BSP.
type bspRegion struct {
	start   uint64
	size    uint64
	address uint64
	root    int
}

// image is a linked but not yet headed or compressed cache file.
type image struct {
	file          []byte
	tagDataOffset uint64
	tagDataSize   uint64
	bsps          []bspRegion
}

// layout holds the placement of every live struct during linking.
type layout struct {
	w       *Workload
	live    []bool
	offset  []uint64
	tagBase uint64
	tagData uint64
	bsps    []bspRegion
}

// fileOffset returns where struct s starts in the file.
func (l *layout) fileOffset(s int) uint64 {
	r := l.w.structs[s].Region
	switch r.Kind {
	case RegionBSP:
		return l.bsps[r.BSP].start + l.offset[s]
	case RegionAsset:
		return l.offset[s]
	default:
		return l.tagData + l.offset[s]
	}
}

// address returns the load address of struct s.
func (l *layout) address(s int) uint64 {
	r := l.w.structs[s].Region
	switch r.Kind {
	case RegionBSP:
		return l.bsps[r.BSP].address + l.offset[s]
	case RegionAsset:
		return l.offset[s]
	default:
		return l.tagBase + l.offset[s]
	}
}

// live marks structs reachable from the root of any tag kept in the file.
func (w *Workload) live() []bool {
	live := make([]bool, len(w.structs))
	for _, t := range w.tags {
		if t.Indexed || live[t.Root] {
			continue
		}
		for _, s := range w.reachableFrom(t.Root) {
			live[s] = true
		}
	}
	return live
}

// link assigns offsets and addresses, checks profile limits and writes the
// uncompressed file with a zeroed header.
//
// File layout: header, raw assets, BSP regions, tag data. Tag data holds the
// tag data header, tag array, paths, then structs aligned to pointer size.
func (w *Workload) link() (*image, error) {
	if w.scenario == Unset {
		return nil, fmt.Errorf("%w: no scenario compiled", errdefs.ErrInvalidTag)
	}
	p := w.profile
	ps := uint64(p.PointerSize) //nolint:gosec // 4 or 8
	l := &layout{w: w, live: w.live(), offset: make([]uint64, len(w.structs))}

	cursor := uint64(format.HeaderSize)
	for s, st := range w.structs {
		if l.live[s] && st.Region.Kind == RegionAsset {
			l.offset[s] = cursor
			cursor += uint64(len(st.Data))
		}
	}

	l.bsps = make([]bspRegion, w.bspCount)
	for i := range l.bsps {
		l.bsps[i].root = Unset
	}
	for _, t := range w.tags {
		if t.BSP >= 0 {
			l.bsps[t.BSP].root = t.Root
		}
	}
	var largestBSP uint64
	for b := range l.bsps {
		off := uint64(format.BSPHeaderSize)
		for s, st := range w.structs {
			if l.live[s] && st.Region == (Region{Kind: RegionBSP, BSP: b}) {
				off = sizing.Align(off, ps)
				l.offset[s] = off
				off += uint64(len(st.Data))
			}
		}
		off = sizing.Align(off, ps)
		l.bsps[b].start = cursor
		l.bsps[b].size = off
		cursor += off
		largestBSP = max(largestBSP, off)
	}

	l.tagData = cursor
	arrayOffset := uint64(format.TagDataHeaderLen(p.PointerSize))
	off := arrayOffset + uint64(format.TagRecordSize*len(w.tags))
	pathOffsets := make([]uint64, len(w.tags))
	for i, t := range w.tags {
		pathOffsets[i] = off
		off += uint64(len(t.Path)) + 1
	}
	for s, st := range w.structs {
		if l.live[s] && st.Region.Kind == RegionTagData {
			off = sizing.Align(off, ps)
			l.offset[s] = off
			off += uint64(len(st.Data))
		}
	}
	if w.cfg.forgeCRC != nil {
		off += 4
	}
	tagDataSize := off

	l.tagBase = p.Base()
	if w.cfg.tagDataAddress != nil {
		l.tagBase = *w.cfg.tagDataAddress
	}
	if err := w.checkCapacity(l, tagDataSize, largestBSP); err != nil {
		return nil, err
	}
	for b := range l.bsps {
		switch {
		case p.PositionIndependent():
			l.bsps[b].address = 0
		case p.BSPAddress != engine.NoBaseAddress:
			l.bsps[b].address = p.BSPAddress
		default:
			l.bsps[b].address = p.Base() + p.TagSpace - l.bsps[b].size
		}
	}

	file := make([]byte, l.tagData+tagDataSize)
	for s, st := range w.structs {
		if l.live[s] {
			copy(file[l.fileOffset(s):], st.Data)
		}
	}
	if err := w.relocate(file, l); err != nil {
		return nil, err
	}
	for b, r := range l.bsps {
		if r.root == Unset {
			return nil, fmt.Errorf("%w: bsp %d has no root", errdefs.ErrInvalidMap, b)
		}
		ptr, err := sizing.ToUint32(l.address(r.root), &errdefs.CapacityError{Limit: "bsp address", Size: l.address(r.root), Max: 0xFFFFFFFF})
		if err != nil {
			return nil, err
		}
		copy(file[r.start:], format.BSPHeader{Pointer: ptr, Literal: format.BSPLiteral}.Encode())
	}
	if err := w.writeTagArray(file, l, arrayOffset, pathOffsets); err != nil {
		return nil, err
	}
	if err := w.patchBSPTable(file, l); err != nil {
		return nil, err
	}

	w.log().Info("linked cache file",
		"tags", len(w.tags), "structs", len(w.structs), "tag_data_size", tagDataSize, "bsps", len(l.bsps))
	return &image{file: file, tagDataOffset: l.tagData, tagDataSize: tagDataSize, bsps: l.bsps}, nil
}

func (w *Workload) checkCapacity(l *layout, tagDataSize, largestBSP uint64) error {
	p := w.profile
	if !p.PositionIndependent() {
		if p.BSPAddress != engine.NoBaseAddress {
			var limit uint64
			if p.BSPAddress > l.tagBase {
				limit = p.BSPAddress - l.tagBase
			}
			if tagDataSize > limit {
				return &errdefs.CapacityError{Limit: "tag space", Size: tagDataSize, Max: limit}
			}
			if limit := p.Base() + p.TagSpace - p.BSPAddress; largestBSP > limit {
				return &errdefs.CapacityError{Limit: "bsp space", Size: largestBSP, Max: limit}
			}
		} else if used := tagDataSize + largestBSP; used > p.TagSpace {
			return &errdefs.CapacityError{Limit: "tag space", Size: used, Max: p.TagSpace}
		}
		if end := l.tagBase + tagDataSize; p.PointerSize == 4 && end > 0xFFFFFFFF {
			return &errdefs.CapacityError{Limit: "address space", Size: end, Max: 0xFFFFFFFF}
		}
	}
	size := l.tagData + tagDataSize
	if limit := p.MaxFileSize(w.scenarioType); size > limit {
		return &errdefs.CapacityError{Limit: "file size", Size: size, Max: limit}
	}
	return nil
}

// relocate resolves pointers and dependencies in every live struct.
func (w *Workload) relocate(file []byte, l *layout) error {
	le := binary.LittleEndian
	dl := tag.DependencyLayout(w.profile.PointerSize)
	for s, st := range w.structs {
		if !l.live[s] || st.Region.Kind == RegionAsset {
			continue
		}
		base := l.fileOffset(s)
		for _, p := range st.Pointers {
			value := l.address(p.Struct)
			if p.Kind == PointerFileOffset {
				value = l.fileOffset(p.Struct)
			}
			at := base + uint64(p.Offset) //nolint:gosec // offsets are non-negative
			if err := putPointer(file[at:], p, value, w.profile.PointerSize); err != nil {
				return err
			}
		}
		for _, d := range st.Dependencies {
			at := base + uint64(d.Offset) //nolint:gosec // offsets are non-negative
			le.PutUint32(file[at+uint64(dl.ID):], uint32(format.NewTagID(d.Tag)))
			target := w.tags[d.Tag]
			if d.IDOnly || target.Indexed || w.profile.Dependencies == engine.DependencyDeferred {
				continue
			}
			if err := putPointer(file[at+uint64(dl.Address):], Pointer{}, l.address(target.Root), w.profile.PointerSize); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Workload) writeTagArray(file []byte, l *layout, arrayOffset uint64, pathOffsets []uint64) error {
	ps := w.profile.PointerSize
	records := make([]byte, 0, format.TagRecordSize*len(w.tags))
	for i, t := range w.tags {
		rec := format.TagRecord{
			Primary:   t.Class,
			Secondary: tag.ClassNone,
			Tertiary:  tag.ClassNone,
			ID:        format.NewTagID(i),
			Path:      l.tagBase + pathOffsets[i],
			Data:      l.address(t.Root),
		}
		if t.Indexed {
			rec.Indexed = true
			rec.Data = uint64(t.ResourceIndex) //nolint:gosec // slot index
		}
		records = rec.Encode(records, ps)
		copy(file[l.tagData+pathOffsets[i]:], t.Path)
	}
	copy(file[l.tagData+arrayOffset:], records)

	arrayAddress := l.tagBase + arrayOffset
	if arrayAddress > 0xFFFFFFFF {
		return &errdefs.CapacityError{Limit: "tag array address", Size: arrayAddress, Max: 0xFFFFFFFF}
	}
	hdr := format.TagDataHeader{
		TagArrayAddress: uint32(arrayAddress),
		ScenarioID:      format.NewTagID(w.scenario),
		TagCount:        uint32(len(w.tags)), //nolint:gosec // capped at MaxTagCount
		Literal:         format.TagsLiteral,
	}
	copy(file[l.tagData:], hdr.Encode(ps))
	return nil
}

// patchBSPTable fills bsp_start, bsp_size and bsp_address of each entry in
// the scenario's structure_bsps block. Every BSP must be listed.
func (w *Workload) patchBSPTable(file []byte, l *layout) error {
	ps := w.profile.PointerSize
	def, err := w.registry.Lookup(tag.ClassScenario)
	if err != nil {
		return err
	}
	blockOff := fieldOffset(def.Root, tag.ScenarioStructureBSPs, ps)
	listed := make([]bool, len(l.bsps))
	table := Unset
	if blockOff >= 0 {
		at := blockOff + tag.BlockLayout(ps).Address
		for _, p := range w.structs[w.tags[w.scenario].Root].Pointers {
			if p.Offset == at {
				table = p.Struct
			}
		}
	}

	if table != Unset {
		elemSize := tag.ScenarioBSP.CacheSize(ps)
		refOff := fieldOffset(tag.ScenarioBSP, tag.ScenarioBSPReference, ps)
		startOff := fieldOffset(tag.ScenarioBSP, tag.ScenarioBSPStart, ps)
		sizeOff := fieldOffset(tag.ScenarioBSP, tag.ScenarioBSPSize, ps)
		addrOff := fieldOffset(tag.ScenarioBSP, tag.ScenarioBSPAddress, ps)
		base := l.fileOffset(table)
		le := binary.LittleEndian
		for _, d := range w.structs[table].Dependencies {
			if d.Offset%elemSize != refOff {
				continue
			}
			b := w.tags[d.Tag].BSP
			if b < 0 {
				return fmt.Errorf("%w: structure_bsps references %s", errdefs.ErrInvalidDependency, w.tags[d.Tag].Path)
			}
			r := l.bsps[b]
			elem := base + uint64(d.Offset-refOff) //nolint:gosec // offsets are non-negative
			for _, f := range []struct {
				off int
				v   uint64
			}{{startOff, r.start}, {sizeOff, r.size}, {addrOff, r.address}} {
				v, err := sizing.ToUint32(f.v, &errdefs.CapacityError{Limit: "bsp table", Size: f.v, Max: 0xFFFFFFFF})
				if err != nil {
					return err
				}
				le.PutUint32(file[elem+uint64(f.off):], v) //nolint:gosec // offsets are non-negative
			}
			listed[b] = true
		}
	}
	for b, ok := range listed {
		if !ok {
			return fmt.Errorf("%w: structure bsp %s is not in the scenario's structure_bsps", errdefs.ErrInvalidDependency, w.tags[w.bspTag(b)].Path)
		}
	}
	return nil
}

func (w *Workload) bspTag(b int) int {
	for i, t := range w.tags {
		if t.BSP == b {
			return i
		}
	}
	return Unset
}
