package resource

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/cachefile/core/tag"
)

func TestEncodeParse(t *testing.T) {
	t.Parallel()

	in := []Resource{
		{Path: `ui\shell\bitmaps\background`, Data: []byte("pixels")},
		{Path: `ui\shell\bitmaps\cursor`, Data: []byte{}},
		{Path: `ui\shell\bitmaps\trouble_brewing`, Data: []byte{1, 2, 3}},
	}
	data, err := Encode(TypeBitmaps, in)
	require.NoError(t, err)

	m, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, TypeBitmaps, m.Type)
	require.Equal(t, 3, m.Len())
	for i, want := range in {
		got, err := m.Entry(i)
		require.NoError(t, err)
		assert.Equal(t, want.Path, got.Path)
		assert.Equal(t, want.Data, got.Data)
	}

	i, err := m.Find(`ui\shell\bitmaps\trouble_brewing`)
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = m.Find("missing")
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestEntryOutOfBounds(t *testing.T) {
	t.Parallel()

	data, err := Encode(TypeLoc, []Resource{{Path: "a", Data: []byte("x")}})
	require.NoError(t, err)
	m, err := Parse(data)
	require.NoError(t, err)

	_, err = m.Entry(1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Entry(-1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestFindSoundSkipsSampleSlots(t *testing.T) {
	t.Parallel()

	in := []Resource{
		{Path: `sound\a` + SoundAssetSuffix, Data: []byte("a samples")},
		{Path: `sound\a`, Data: []byte("a tag")},
		{Path: `sound\b`, Data: []byte("decoy in a sample slot")},
		{Path: `sound\b`, Data: []byte("b tag")},
	}
	data, err := Encode(TypeSounds, in)
	require.NoError(t, err)
	m, err := Parse(data)
	require.NoError(t, err)

	i, err := m.FindSound(`sound\b`)
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	i, err = m.FindSound(`sound\a`)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = m.FindSound(`sound\a` + SoundAssetSuffix)
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	valid, err := Encode(TypeSounds, []Resource{{Path: "a", Data: []byte("abcd")}})
	require.NoError(t, err)

	mutate := func(fn func(b []byte)) []byte {
		b := append([]byte(nil), valid...)
		fn(b)
		return b
	}
	le := binary.LittleEndian

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", valid[:8], ErrInvalidMap},
		{"bad type", mutate(func(b []byte) { le.PutUint32(b, 9) }), ErrInvalidMap},
		{"count overrun", mutate(func(b []byte) { le.PutUint32(b[0xC:], 1000) }), ErrOutOfBounds},
		{"data overrun", mutate(func(b []byte) {
			entries := le.Uint32(b[0x8:])
			le.PutUint32(b[entries+4:], 0xFFFF)
		}), ErrOutOfBounds},
		{"path overrun", mutate(func(b []byte) {
			entries := le.Uint32(b[0x8:])
			le.PutUint32(b[entries:], 0xFFFF)
		}), ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTypeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sounds", TypeSounds.String())
	assert.Equal(t, "unknown(7)", Type(7).String())
}

func TestClassType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		class tag.Class
		want  Type
		ok    bool
	}{
		{tag.ClassBitmap, TypeBitmaps, true},
		{tag.ClassSound, TypeSounds, true},
		{tag.ClassUnicodeStringList, TypeLoc, true},
		{tag.ClassFont, TypeLoc, true},
		{tag.ClassHUDMessageText, TypeLoc, true},
		{tag.ClassScenario, 0, false},
	}
	for _, tt := range tests {
		got, ok := ClassType(tt.class)
		assert.Equal(t, tt.ok, ok, tt.class.String())
		assert.Equal(t, tt.want, got, tt.class.String())
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()

	for _, want := range []Type{TypeBitmaps, TypeSounds, TypeLoc} {
		got, err := ParseType(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseType("music")
	assert.Error(t, err)
}
