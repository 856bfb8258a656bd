// Package testutil builds in-memory tags directories for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/tag"
)

// ScenarioPath is the scenario written by NewMap.
const ScenarioPath = `levels\test\test`

// BSPPath is the structure BSP written by NewMap.
const BSPPath = `levels\test\test_bsp`

// Tags is a tags directory held in memory.
type Tags struct {
	t   testing.TB
	reg *tag.Registry
	fs  fstest.MapFS
}

// NewTags returns an empty tags directory.
func NewTags(t testing.TB) *Tags {
	t.Helper()
	return &Tags{t: t, reg: tag.DefaultRegistry(), fs: fstest.MapFS{}}
}

// Add encodes tg and stores it at path.
func (s *Tags) Add(path string, tg *tag.Tag) {
	s.t.Helper()
	name, err := tag.FileName(path, tg.Class())
	require.NoError(s.t, err)
	data, err := tag.Encode(tg)
	require.NoError(s.t, err)
	s.fs[name] = &fstest.MapFile{Data: data}
}

// New creates a tag of class c at path, letting fill set its fields first.
// fill may be nil.
func (s *Tags) New(path string, c tag.Class, fill func(root *tag.Element)) *tag.Tag {
	s.t.Helper()
	tg, err := s.reg.New(c)
	require.NoError(s.t, err)
	if fill != nil {
		fill(tg.Root)
	}
	s.Add(path, tg)
	return tg
}

// Remove deletes the tag at path.
func (s *Tags) Remove(path string, c tag.Class) {
	s.t.Helper()
	name, err := tag.FileName(path, c)
	require.NoError(s.t, err)
	delete(s.fs, name)
}

// FS returns the backing file system.
func (s *Tags) FS() fstest.MapFS {
	return s.fs
}

// WriteDir copies the directory to dir on disk and returns dir.
func (s *Tags) WriteDir(dir string) string {
	s.t.Helper()
	for name, f := range s.fs {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(s.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(s.t, os.WriteFile(path, f.Data, 0o644))
	}
	return dir
}

// SearchPath returns a search path over this directory alone.
func (s *Tags) SearchPath() *tag.SearchPath {
	return tag.NewSearchPath(s.fs)
}

// AddRequired writes a minimal version of every tag p requires for typ.
func (s *Tags) AddRequired(p *engine.Profile, typ engine.ScenarioType) {
	s.t.Helper()
	for _, ref := range p.RequiredTags(typ) {
		s.New(ref.Path, ref.Class, nil)
	}
}

// NewMap writes a small but complete map: a scenario of type typ with one
// structure BSP, a bitmap with pixel data, a sound with samples, a string
// list and every tag p requires.
func NewMap(t testing.TB, p *engine.Profile, typ engine.ScenarioType) *Tags {
	t.Helper()
	s := NewTags(t)
	s.AddRequired(p, typ)

	s.New(`ui\test\bitmap`, tag.ClassBitmap, func(root *tag.Element) {
		root.SetUint("format", 3)
		root.SetData(tag.BitmapPixelData, []byte{1, 2, 3, 4, 5, 6, 7, 8})
		d := root.Append(tag.BitmapData)
		d.SetUint("width", 2)
		d.SetUint("height", 1)
		d.SetUint(tag.BitmapPixelSize, 8)
	})
	s.New(`sound\test\beep`, tag.ClassSound, func(root *tag.Element) {
		root.SetUint(tag.SoundSampleRate, 1)
		pr := root.Append(tag.SoundPitchRanges)
		pr.SetString("name", "default")
		perm := pr.Append(tag.SoundPermutations)
		perm.SetString("name", "beep")
		perm.SetData(tag.SoundSamples, []byte("samples"))
	})
	s.New(`ui\test\strings`, tag.ClassUnicodeStringList, func(root *tag.Element) {
		root.Append("strings").SetData("string", []byte("h\x00i\x00\x00\x00"))
	})
	s.New(BSPPath, tag.ClassStructureBSP, func(root *tag.Element) {
		root.SetRef("lightmaps_bitmap", tag.Ref{Class: tag.ClassBitmap, Path: `ui\test\bitmap`})
		root.SetUint("vertex_buffer_count", 7)
		root.SetData("collision_data", []byte("collision"))
		root.Append("surfaces").SetUint("vertex2", 2)
	})
	s.New(ScenarioPath, tag.ClassScenario, func(root *tag.Element) {
		root.SetUint(tag.ScenarioType, uint64(typ))
		root.SetRef("dont_use", tag.Ref{Class: tag.ClassSound, Path: `sound\test\beep`})
		root.SetRef("wont_use", tag.Ref{Class: tag.ClassUnicodeStringList, Path: `ui\test\strings`})
		pr := root.Append("predicted_resources")
		pr.SetRef("tag", tag.Ref{Class: tag.ClassBitmap, Path: `ui\test\bitmap`})
		bsp := root.Append(tag.ScenarioStructureBSPs)
		bsp.SetRef(tag.ScenarioBSPReference, tag.Ref{Class: tag.ClassStructureBSP, Path: BSPPath})
	})
	return s
}
