package build

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/meigma/cachefile/core/tag"
)

// Dedupe merges identical structs until no pair matches or maxSavings bytes
// have been saved. A limit of zero or less is unlimited. It returns the bytes
// saved.
//
// Two structs are identical when they share a region, neither is marked
// NoDedupe, and their bytes, pointers and dependencies are equal. Merging j
// into i rewrites every reference to j as i and shifts references above j
// down by one. Passes repeat because a merge can make further structs equal.
func (w *Workload) Dedupe(maxSavings int) int {
	saved := 0
	for {
		merged := false
		for i := 0; i < len(w.structs); i++ {
			for j := i + 1; j < len(w.structs); {
				if maxSavings > 0 && saved >= maxSavings {
					w.log().Info("dedupe stopped at savings limit", "saved", saved)
					return saved
				}
				if !identical(w.structs[i], w.structs[j]) {
					j++
					continue
				}
				saved += len(w.structs[j].Data)
				w.merge(i, j)
				merged = true
			}
		}
		if !merged {
			w.deduped = true
			w.log().Info("dedupe complete", "structs", len(w.structs), "saved", saved)
			return saved
		}
	}
}

func identical(a, b *Struct) bool {
	return !a.NoDedupe && !b.NoDedupe &&
		a.Region == b.Region &&
		bytes.Equal(a.Data, b.Data) &&
		slices.Equal(a.Pointers, b.Pointers) &&
		slices.Equal(a.Dependencies, b.Dependencies)
}

// merge redirects references from j to i and removes j.
func (w *Workload) merge(i, j int) {
	remap := func(idx int) int {
		switch {
		case idx == j:
			return i
		case idx > j:
			return idx - 1
		default:
			return idx
		}
	}
	for _, s := range w.structs {
		for k := range s.Pointers {
			s.Pointers[k].Struct = remap(s.Pointers[k].Struct)
		}
	}
	for _, t := range w.tags {
		if t.Root != Unset {
			t.Root = remap(t.Root)
		}
		for k := range t.Assets {
			t.Assets[k] = remap(t.Assets[k])
		}
	}
	w.structs = slices.Delete(w.structs, j, j+1)
}

// Validate checks that every reference indexes a live struct or tag and
// that every tag finished compiling. After a complete Dedupe it also checks
// that no two structs are identical.
func (w *Workload) Validate() error {
	n := len(w.structs)
	depSize := tag.DependencyLayout(w.profile.PointerSize).Size
	for i, s := range w.structs {
		for _, p := range s.Pointers {
			if p.Struct < 0 || p.Struct >= n {
				return fmt.Errorf("struct %d points at struct %d of %d", i, p.Struct, n)
			}
			if p.Offset < 0 || p.Offset+w.pointerWidth(p) > len(s.Data) {
				return fmt.Errorf("struct %d pointer offset %d outside %d bytes", i, p.Offset, len(s.Data))
			}
		}
		for _, d := range s.Dependencies {
			if d.Tag < 0 || d.Tag >= len(w.tags) {
				return fmt.Errorf("struct %d depends on tag %d of %d", i, d.Tag, len(w.tags))
			}
			if d.Offset < 0 || d.Offset+depSize > len(s.Data) {
				return fmt.Errorf("struct %d dependency offset %d outside %d bytes", i, d.Offset, len(s.Data))
			}
		}
	}
	for i, t := range w.tags {
		if !t.Compiled() {
			return fmt.Errorf("tag %d (%s.%s) was never compiled", i, t.Path, t.Class.Extension())
		}
		if t.Root >= n {
			return fmt.Errorf("tag %d root %d of %d", i, t.Root, n)
		}
		for _, a := range t.Assets {
			if a < 0 || a >= n {
				return fmt.Errorf("tag %d asset %d of %d", i, a, n)
			}
		}
	}
	if !w.deduped {
		return nil
	}
	for i := range w.structs {
		for j := i + 1; j < n; j++ {
			if identical(w.structs[i], w.structs[j]) {
				return fmt.Errorf("structs %d and %d are identical after dedupe", i, j)
			}
		}
	}
	return nil
}

// pointerWidth is the number of bytes putPointer writes for p.
func (w *Workload) pointerWidth(p Pointer) int {
	if p.Kind == PointerFileOffset {
		return 4
	}
	return w.profile.PointerSize
}
