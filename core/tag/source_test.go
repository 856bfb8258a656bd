package tag

import (
	"encoding/binary"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBitmap(t *testing.T) *Tag {
	t.Helper()
	bm, err := DefaultRegistry().New(ClassBitmap)
	require.NoError(t, err)
	bm.Root.SetUint("format", 3)
	bm.Root.SetFloat("bump_height", 0.5)
	bm.Root.SetData(BitmapPixelData, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	d := bm.Root.Append(BitmapData)
	d.SetUint("width", 2)
	d.SetUint("height", 1)
	d.SetUint(BitmapPixelOffset, 0)
	d.SetUint(BitmapPixelSize, 8)
	return bm
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	tests := []struct {
		name  string
		build func(t *testing.T) *Tag
	}{
		{"bitmap", newBitmap},
		{"scenario", func(t *testing.T) *Tag {
			sc, err := reg.New(ClassScenario)
			require.NoError(t, err)
			sc.Root.SetRef("wont_use", Ref{Class: ClassBitmap, Path: `ui\bitmaps\a`})
			sc.Root.SetUint(ScenarioType, 1)
			pr := sc.Root.Append("predicted_resources")
			pr.SetRef("tag", Ref{Class: ClassBitmap, Path: `ui\bitmaps\a`})
			bsp := sc.Root.Append(ScenarioStructureBSPs)
			bsp.SetRef(ScenarioBSPReference, Ref{Class: ClassStructureBSP, Path: `levels\a\a`})
			return sc
		}},
		{"sound", func(t *testing.T) *Tag {
			snd, err := reg.New(ClassSound)
			require.NoError(t, err)
			pr := snd.Root.Append(SoundPitchRanges)
			pr.SetString("name", "default")
			for _, name := range []string{"one", "two"} {
				p := pr.Append(SoundPermutations)
				p.SetString("name", name)
				p.SetData(SoundSamples, []byte(name))
			}
			return snd
		}},
		{"font", func(t *testing.T) *Tag {
			f, err := reg.New(ClassFont)
			require.NoError(t, err)
			f.Root.SetUint("descending_height", uint64(uint16(0xFFFE)))
			c := f.Root.Append("characters")
			c.SetUint("character", 'A')
			return f
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := tt.build(t)
			data, err := Encode(src)
			require.NoError(t, err)

			got, err := Decode(data, reg)
			require.NoError(t, err)
			assert.Equal(t, src.Class(), got.Class())
			assert.True(t, src.Root.Equal(got.Root))
		})
	}
}

func TestDecodeValues(t *testing.T) {
	t.Parallel()

	data, err := Encode(newBitmap(t))
	require.NoError(t, err)
	got, err := Decode(data, DefaultRegistry())
	require.NoError(t, err)

	assert.Equal(t, uint64(3), got.Root.Uint("format"))
	assert.InDelta(t, 0.5, got.Root.Float("bump_height"), 0)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got.Root.Data(BitmapPixelData))
	require.Len(t, got.Root.Block(BitmapData), 1)
	assert.Equal(t, uint64(8), got.Root.Block(BitmapData)[0].Uint(BitmapPixelSize))
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	valid, err := Encode(newBitmap(t))
	require.NoError(t, err)

	corrupt := func(fn func(b []byte) []byte) []byte {
		b := append([]byte(nil), valid...)
		return fn(b)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", valid[:HeaderSize-1], ErrInvalidTag},
		{"bad blam", corrupt(func(b []byte) []byte { b[headerBlamOffset] = 'x'; return b }), ErrInvalidTag},
		{"bad crc", corrupt(func(b []byte) []byte { b[len(b)-1] ^= 0xFF; return b }), ErrInvalidTag},
		{"unknown class", corrupt(func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[headerClassOffset:], 0x61616161)
			return b
		}), ErrUnknownClass},
		{"truncated body", corrupt(func(b []byte) []byte {
			b = b[:len(b)-4]
			binary.BigEndian.PutUint32(b[headerCRCOffset:], noCRC)
			return b
		}), ErrInvalidTag},
		{"trailing bytes", corrupt(func(b []byte) []byte {
			b = append(b, 0)
			binary.BigEndian.PutUint32(b[headerCRCOffset:], noCRC)
			return b
		}), ErrInvalidTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.data, DefaultRegistry())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncodeStringOverflow(t *testing.T) {
	t.Parallel()

	snd, err := DefaultRegistry().New(ClassSound)
	require.NoError(t, err)
	pr := snd.Root.Append(SoundPitchRanges)
	pr.SetString("name", "0123456789abcdef0123456789abcdef")

	_, err = Encode(snd)
	assert.ErrorIs(t, err, ErrStringOverflow)
}

func TestSearchPath(t *testing.T) {
	t.Parallel()

	first := newBitmap(t)
	second := newBitmap(t)
	second.Root.SetUint("format", 9)
	a, err := Encode(first)
	require.NoError(t, err)
	b, err := Encode(second)
	require.NoError(t, err)

	sp := NewSearchPath(
		fstest.MapFS{"ui/a.bitmap": {Data: a}},
		fstest.MapFS{"ui/a.bitmap": {Data: b}, "ui/b.bitmap": {Data: b}},
	)
	assert.Equal(t, 2, sp.Len())

	got, err := sp.Load(`ui\a`, ClassBitmap, DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Root.Uint("format"), "first root wins")

	got, err = sp.Load(`ui\b`, ClassBitmap, DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got.Root.Uint("format"))

	_, err = sp.Load(`ui\c`, ClassBitmap, DefaultRegistry())
	assert.ErrorIs(t, err, ErrTagNotFound)

	_, err = sp.Load(`ui\a`, ClassSound, DefaultRegistry())
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	name, err := FileName(`levels\test\bloodgulch`, ClassScenario)
	require.NoError(t, err)
	assert.Equal(t, "levels/test/bloodgulch.scenario", name)

	for _, bad := range []string{"", `..\escape`, string(make([]byte, MaxPathLength+1))} {
		_, err := FileName(bad, ClassBitmap)
		assert.ErrorIs(t, err, ErrInvalidTagPath, "%q", bad)
	}
}

func TestClass(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "snd!", ClassSound.String())
	assert.Equal(t, "hmt ", ClassHUDMessageText.String())
	assert.Equal(t, "sound", ClassSound.Extension())

	c, err := ParseClass("bitmap")
	require.NoError(t, err)
	assert.Equal(t, ClassBitmap, c)
	c, err = ParseClass("scnr")
	require.NoError(t, err)
	assert.Equal(t, ClassScenario, c)
	_, err = ParseClass("nonsense")
	assert.Error(t, err)

	path, c, err := SplitPath("levels/test/a.scenario")
	require.NoError(t, err)
	assert.Equal(t, `levels\test\a`, path)
	assert.Equal(t, ClassScenario, c)
}

func TestElementAccessors(t *testing.T) {
	t.Parallel()

	f, err := DefaultRegistry().New(ClassFont)
	require.NoError(t, err)
	assert.True(t, f.Root.SetUint("descending_height", 0xFFFE))
	assert.Equal(t, int64(-2), f.Root.Int("descending_height"))
	assert.False(t, f.Root.SetUint("missing", 1))
	assert.Nil(t, f.Root.Append("pixels"), "data fields are not blocks")

	var seen int
	f.Root.Append("characters")
	f.Root.Append("characters")
	require.NoError(t, f.Root.Walk(func(*Element) error { seen++; return nil }))
	assert.Equal(t, 3, seen)
}

func TestStructSizes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 32, ScenarioBSP.SourceSize())
	assert.Equal(t, 32, ScenarioBSP.CacheSize(4))
	assert.Equal(t, 32, ScenarioBSP.CacheSize(8))

	ustr, err := DefaultRegistry().Lookup(ClassUnicodeStringList)
	require.NoError(t, err)
	assert.Equal(t, 12, ustr.Root.CacheSize(4))
	assert.Equal(t, 16, ustr.Root.CacheSize(8))
	assert.Equal(t, 20, ustr.Root.Fields[0].Block.CacheSize(4))
	assert.Equal(t, 24, ustr.Root.Fields[0].Block.CacheSize(8))
}
