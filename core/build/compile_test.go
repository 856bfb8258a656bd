package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/tag"
	"github.com/meigma/cachefile/core/testutil"
)

func customProfile(t *testing.T) *engine.Profile {
	t.Helper()
	p, err := engine.Lookup(engine.IDCustom)
	require.NoError(t, err)
	return p
}

// threeTagScenario writes a scenario referencing a bitmap and two empty
// string lists.
func threeTagScenario(t *testing.T) *testutil.Tags {
	t.Helper()
	s := testutil.NewTags(t)
	s.New(`a`, tag.ClassBitmap, func(root *tag.Element) {
		root.SetUint("format", 3)
		root.SetUint("usage", 1)
	})
	s.New(`b`, tag.ClassUnicodeStringList, nil)
	s.New(`c`, tag.ClassUnicodeStringList, nil)
	s.New(`scenario`, tag.ClassScenario, func(root *tag.Element) {
		root.SetRef("dont_use", tag.Ref{Class: tag.ClassBitmap, Path: `a`})
		root.SetRef("wont_use", tag.Ref{Class: tag.ClassUnicodeStringList, Path: `b`})
		root.SetRef("cant_use", tag.Ref{Class: tag.ClassUnicodeStringList, Path: `c`})
	})
	return s
}

func TestCompileTagDedupe(t *testing.T) {
	t.Parallel()

	p, err := engine.Lookup(engine.IDRetail)
	require.NoError(t, err)
	require.Equal(t, uint64(0x40440000), p.BaseAddress)
	require.Equal(t, uint64(24_117_248), p.TagSpace)

	w := NewWorkload(p, threeTagScenario(t).SearchPath())
	index, err := w.CompileTag(`scenario`, tag.ClassScenario)
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	require.Len(t, w.Tags(), 4)
	assert.Len(t, w.Structs(), 4)
	for i, want := range []string{`scenario`, `a`, `b`, `c`} {
		assert.Equal(t, want, w.Tags()[i].Path)
	}
	root := w.Structs()[w.Tags()[0].Root]
	require.Len(t, root.Dependencies, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{root.Dependencies[0].Tag, root.Dependencies[1].Tag, root.Dependencies[2].Tag})

	saved := w.Dedupe(0)
	assert.Equal(t, 12, saved, "one empty string list root")
	assert.Len(t, w.Structs(), 3)
	assert.Equal(t, w.Tags()[2].Root, w.Tags()[3].Root)
	assert.NotEqual(t, w.Tags()[1].Root, w.Tags()[2].Root)
	require.NoError(t, w.Validate())
}

func TestCompileTagMemoized(t *testing.T) {
	t.Parallel()

	s := testutil.NewTags(t)
	s.New(`shared`, tag.ClassUnicodeStringList, func(root *tag.Element) {
		root.Append("strings").SetData("string", []byte("x"))
	})
	for _, name := range []string{`left`, `right`} {
		s.New(name, tag.ClassTagCollection, func(root *tag.Element) {
			root.Append("tags").SetRef("reference", tag.Ref{Class: tag.ClassUnicodeStringList, Path: `shared`})
		})
	}
	s.New(`scenario`, tag.ClassScenario, func(root *tag.Element) {
		root.SetRef("dont_use", tag.Ref{Class: tag.ClassTagCollection, Path: `left`})
		root.SetRef("wont_use", tag.Ref{Class: tag.ClassTagCollection, Path: `right`})
	})

	w := NewWorkload(customProfile(t), s.SearchPath())
	_, err := w.CompileTag(`scenario`, tag.ClassScenario)
	require.NoError(t, err)
	require.Len(t, w.Tags(), 4)

	again, err := w.CompileTag(`shared`, tag.ClassUnicodeStringList)
	require.NoError(t, err)
	assert.Equal(t, 2, again)
	assert.Len(t, w.Tags(), 4)
}

func TestCompileTagCycle(t *testing.T) {
	t.Parallel()

	s := testutil.NewTags(t)
	s.New(`x`, tag.ClassTagCollection, func(root *tag.Element) {
		root.Append("tags").SetRef("reference", tag.Ref{Class: tag.ClassTagCollection, Path: `y`})
	})
	s.New(`y`, tag.ClassTagCollection, func(root *tag.Element) {
		root.Append("tags").SetRef("reference", tag.Ref{Class: tag.ClassTagCollection, Path: `x`})
	})

	w := NewWorkload(customProfile(t), s.SearchPath())
	x, err := w.CompileTag(`x`, tag.ClassTagCollection)
	require.NoError(t, err)
	require.Len(t, w.Tags(), 2)
	for _, tg := range w.Tags() {
		assert.True(t, tg.Compiled(), tg.Path)
	}

	// y's element refers back to x.
	y := w.Tags()[1]
	elems := w.Structs()[w.Structs()[y.Root].Pointers[0].Struct]
	require.Len(t, elems.Dependencies, 1)
	assert.Equal(t, x, elems.Dependencies[0].Tag)
	require.NoError(t, w.Validate())
}

func TestCompileTagErrors(t *testing.T) {
	t.Parallel()

	s := testutil.NewTags(t)
	s.New(`bad_ref`, tag.ClassStructureBSP, func(root *tag.Element) {
		root.SetRef("lightmaps_bitmap", tag.Ref{Class: tag.ClassUnicodeStringList, Path: `strings`})
	})
	s.New(`strings`, tag.ClassUnicodeStringList, nil)
	s.New(`bad_type`, tag.ClassScenario, func(root *tag.Element) {
		root.SetUint(tag.ScenarioType, 9)
	})
	s.New(`bad_bitmap`, tag.ClassBitmap, func(root *tag.Element) {
		root.SetData(tag.BitmapPixelData, make([]byte, 4))
		root.Append(tag.BitmapData).SetUint(tag.BitmapPixelSize, 8)
	})
	s.New(`bad_sound`, tag.ClassSound, func(root *tag.Element) {
		root.SetUint(tag.SoundEncoding, 4)
	})
	s.New(`missing_dep`, tag.ClassTagCollection, func(root *tag.Element) {
		root.Append("tags").SetRef("reference", tag.Ref{Class: tag.ClassBitmap, Path: `nowhere`})
	})

	tests := []struct {
		name  string
		path  string
		class tag.Class
		want  error
	}{
		{"missing", `nowhere`, tag.ClassBitmap, ErrTagNotFound},
		{"missing dependency", `missing_dep`, tag.ClassTagCollection, ErrTagNotFound},
		{"unknown class", `strings`, tag.Class(0x7A7A7A7A), ErrUnknownClass},
		{"empty path", ``, tag.ClassBitmap, ErrInvalidTagPath},
		{"wrong dependency class", `bad_ref`, tag.ClassStructureBSP, ErrInvalidDependency},
		{"scenario type", `bad_type`, tag.ClassScenario, ErrInvalidTag},
		{"bitmap pixels", `bad_bitmap`, tag.ClassBitmap, ErrInvalidTag},
		{"sound encoding", `bad_sound`, tag.ClassSound, ErrInvalidTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := NewWorkload(customProfile(t), s.SearchPath())
			_, err := w.CompileTag(tt.path, tt.class)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompileScenarioRequiredTags(t *testing.T) {
	t.Parallel()

	p := customProfile(t)
	s := testutil.NewMap(t, p, engine.ScenarioMultiplayer)
	w := NewWorkload(p, s.SearchPath())
	require.NoError(t, w.CompileScenario(context.Background(), testutil.ScenarioPath))

	assert.Equal(t, 0, w.Scenario())
	assert.Equal(t, engine.ScenarioMultiplayer, w.ScenarioType())
	paths := make(map[engine.TagRef]bool)
	for _, tg := range w.Tags() {
		paths[engine.TagRef{Path: tg.Path, Class: tg.Class}] = true
	}
	for _, ref := range p.RequiredTags(engine.ScenarioMultiplayer) {
		assert.True(t, paths[ref], ref.String())
	}

	s.Remove(`globals\globals`, tag.ClassGlobals)
	w = NewWorkload(p, s.SearchPath())
	err := w.CompileScenario(context.Background(), testutil.ScenarioPath)
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestCompileScenarioIndexOrder(t *testing.T) {
	t.Parallel()

	index := []engine.TagRef{
		{Path: `c`, Class: tag.ClassUnicodeStringList},
		{Path: `a`, Class: tag.ClassBitmap},
	}
	w := NewWorkload(customProfile(t), threeTagScenario(t).SearchPath(), WithIndex(index))
	// Required tags are absent, so compilation stops after the scenario.
	_ = w.CompileScenario(context.Background(), `scenario`)

	require.GreaterOrEqual(t, len(w.Tags()), 4)
	assert.Equal(t, `c`, w.Tags()[0].Path)
	assert.Equal(t, `a`, w.Tags()[1].Path)
	assert.Equal(t, `scenario`, w.Tags()[2].Path)
	assert.Equal(t, `b`, w.Tags()[3].Path)
	assert.Equal(t, 2, w.Scenario())
}

func TestCompileScenarioCanceled(t *testing.T) {
	t.Parallel()

	p := customProfile(t)
	s := testutil.NewMap(t, p, engine.ScenarioSingleplayer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewWorkload(p, s.SearchPath())
	err := w.CompileScenario(ctx, testutil.ScenarioPath)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDedupeLimit(t *testing.T) {
	t.Parallel()

	w := NewWorkload(customProfile(t), threeTagScenario(t).SearchPath())
	_, err := w.CompileTag(`scenario`, tag.ClassScenario)
	require.NoError(t, err)

	w.structs = append(w.structs,
		&Struct{Data: []byte{1, 2, 3, 4}},
		&Struct{Data: []byte{1, 2, 3, 4}},
		&Struct{Data: []byte{1, 2, 3, 4}, NoDedupe: true},
	)
	saved := w.Dedupe(1)
	assert.Equal(t, 12, saved, "stops after the first merge")
	assert.Len(t, w.Structs(), 6)
	require.NoError(t, w.Validate())
}

func TestDedupeRegionsAndPointers(t *testing.T) {
	t.Parallel()

	w := NewWorkload(customProfile(t), testutil.NewTags(t).SearchPath())
	w.structs = []*Struct{
		{Data: []byte{0, 0, 0, 0}, Pointers: []Pointer{{Offset: 0, Struct: 2}}},
		{Data: []byte{0, 0, 0, 0}, Pointers: []Pointer{{Offset: 0, Struct: 3}}},
		{Data: []byte{9}},
		{Data: []byte{9}},
		{Data: []byte{9}, Region: Region{Kind: RegionBSP}},
	}
	w.tags = []*Tag{{Path: `t`, Root: 0, BSP: -1}, {Path: `u`, Root: 1, BSP: -1}}

	w.Dedupe(0)
	// Merging the children makes the parents equal on the next pass.
	require.Len(t, w.Structs(), 3)
	assert.Equal(t, w.tags[0].Root, w.tags[1].Root)
	assert.Equal(t, RegionBSP, w.Structs()[2].Region.Kind)
	require.NoError(t, w.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	w := NewWorkload(customProfile(t), testutil.NewTags(t).SearchPath())
	w.structs = []*Struct{{Data: make([]byte, 4), Pointers: []Pointer{{Offset: 0, Struct: 5}}}}
	w.tags = []*Tag{{Path: `t`, Root: 0, BSP: -1}}
	require.Error(t, w.Validate())

	w.structs[0].Pointers = nil
	w.tags = append(w.tags, &Tag{Path: `u`, Root: Unset, BSP: -1})
	require.Error(t, w.Validate())
}

func TestValidatePointerWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		st      *Struct
		wantErr bool
	}{
		{"pointer fits", &Struct{Data: make([]byte, 8), Pointers: []Pointer{{Offset: 4}}}, false},
		{"pointer at end", &Struct{Data: make([]byte, 8), Pointers: []Pointer{{Offset: 8}}}, true},
		{"pointer straddles end", &Struct{Data: make([]byte, 8), Pointers: []Pointer{{Offset: 5}}}, true},
		{"file offset fits", &Struct{Data: make([]byte, 8), Pointers: []Pointer{{Offset: 4, Kind: PointerFileOffset}}}, false},
		{"dependency fits", &Struct{Data: make([]byte, 16), Dependencies: []Dependency{{Offset: 0}}}, false},
		{"dependency straddles end", &Struct{Data: make([]byte, 16), Dependencies: []Dependency{{Offset: 4}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := NewWorkload(customProfile(t), testutil.NewTags(t).SearchPath())
			w.structs = []*Struct{tt.st}
			w.tags = []*Tag{{Path: `t`, Root: 0, BSP: -1}}
			err := w.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
