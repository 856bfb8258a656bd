package codec

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/internal/errdefs"
)

func body(n int) []byte {
	rng := rand.New(rand.NewSource(int64(n)))
	b := make([]byte, n)
	// Half random, half repetitive so every codec has something to squeeze.
	for i := range b {
		if i%2 == 0 {
			b[i] = byte(rng.Intn(256))
		} else {
			b[i] = byte(i / 512)
		}
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	schemes := []engine.Compression{
		engine.CompressionNone,
		engine.CompressionZstd,
		engine.CompressionDeflate,
		engine.CompressionCeaflate,
	}
	sizes := []int{1, 4096, BlockSize, BlockSize*3 + 17}
	for _, kind := range schemes {
		for _, n := range sizes {
			in := body(n)
			res, err := Compress(kind, in, DefaultLevel)
			require.NoError(t, err, "%s %d", kind, n)

			out, err := Decompress(kind, res.Data, uint64(n))
			require.NoError(t, err, "%s %d", kind, n)
			assert.True(t, bytes.Equal(in, out), "%s %d", kind, n)
		}
	}
}

func TestDeflatePadding(t *testing.T) {
	t.Parallel()

	res, err := Compress(engine.CompressionDeflate, body(10_000), 9)
	require.NoError(t, err)
	assert.Zero(t, (len(res.Data)+HeaderSize)%SectorSize)
	assert.Less(t, res.Padding, uint32(SectorSize))
}

func TestCeaflateBlockTable(t *testing.T) {
	t.Parallel()

	res, err := Compress(engine.CompressionCeaflate, body(BlockSize*2+1), DefaultLevel)
	require.NoError(t, err)

	le := binary.LittleEndian
	require.Equal(t, uint32(3), le.Uint32(res.Data))
	first := le.Uint32(res.Data[4:])
	assert.Equal(t, uint32(0x40000), first, "blocks follow the fixed offset table")
	assert.Equal(t, uint32(TableSize), first)
	assert.Equal(t, uint32(BlockSize), le.Uint32(res.Data[first:]))
	last := le.Uint32(res.Data[12:])
	assert.Equal(t, uint32(1), le.Uint32(res.Data[last:]))
	assert.Zero(t, le.Uint32(res.Data[16:]), "unused offsets stay zero")

	assert.True(t, IsCeaflate(res.Data))
	size, err := CeaflateSize(res.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(BlockSize*2+1), size)
}

func TestIsCeaflate(t *testing.T) {
	t.Parallel()

	res, err := Compress(engine.CompressionCeaflate, body(100), DefaultLevel)
	require.NoError(t, err)

	header := make([]byte, TableSize+16)
	binary.LittleEndian.PutUint32(header, 0x68656164)

	zeroCount := append([]byte(nil), res.Data...)
	binary.LittleEndian.PutUint32(zeroCount, 0)

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"container", res.Data, true},
		{"head literal", header, false},
		{"short", res.Data[:TableSize-1], false},
		{"no blocks", zeroCount, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsCeaflate(tt.data))
		})
	}

	_, err = CeaflateSize(zeroCount)
	assert.Error(t, err)
}

func TestDecompressErrors(t *testing.T) {
	t.Parallel()

	in := body(5000)
	zst, err := Compress(engine.CompressionZstd, in, DefaultLevel)
	require.NoError(t, err)
	cea, err := Compress(engine.CompressionCeaflate, in, DefaultLevel)
	require.NoError(t, err)
	def, err := Compress(engine.CompressionDeflate, in, DefaultLevel)
	require.NoError(t, err)

	tests := []struct {
		name string
		kind engine.Compression
		data []byte
		size uint64
	}{
		{"zstd garbage", engine.CompressionZstd, []byte("not a zstd frame"), 10},
		{"zstd short size", engine.CompressionZstd, zst.Data, 4999},
		{"zstd long size", engine.CompressionZstd, zst.Data, 5001},
		{"deflate garbage", engine.CompressionDeflate, []byte{0, 1, 2, 3}, 4},
		{"deflate short size", engine.CompressionDeflate, def.Data, 100},
		{"ceaflate empty", engine.CompressionCeaflate, nil, 0},
		{"ceaflate size mismatch", engine.CompressionCeaflate, cea.Data, 5001},
		{"ceaflate truncated", engine.CompressionCeaflate, cea.Data[:len(cea.Data)/2], 5000},
		{"none size mismatch", engine.CompressionNone, in, 4},
		{"unknown", engine.Compression(99), in, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decompress(tt.kind, tt.data, tt.size)
			assert.ErrorIs(t, err, errdefs.ErrDecompression)
		})
	}
}

func TestDecompressPoolReuse(t *testing.T) {
	t.Parallel()

	in := body(20_000)
	res, err := Compress(engine.CompressionZstd, in, DefaultLevel)
	require.NoError(t, err)

	pool := NewDecompressPool(0)
	for range 3 {
		dec, release, err := pool.Get(bytes.NewReader(res.Data))
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(dec)
		release()
		require.NoError(t, err)
		assert.Equal(t, in, buf.Bytes())
	}
}
