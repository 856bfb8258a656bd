package codec

import (
	"fmt"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/internal/errdefs"
)

// DefaultLevel selects each codec's default compression level.
const DefaultLevel = -1

// Result is the output of Compress.
type Result struct {
	Data []byte
	// Padding is the number of zero bytes appended to reach a sector boundary.
	Padding uint32
}

// Compress encodes body with the given scheme. Zstd and deflate take the
// bytes after the header; ceaflate takes the whole file.
func Compress(kind engine.Compression, body []byte, level int) (Result, error) {
	var (
		out     []byte
		padding uint32
		err     error
	)
	switch kind {
	case engine.CompressionNone:
		return Result{Data: body}, nil
	case engine.CompressionZstd:
		out, err = compressZstd(body, level)
	case engine.CompressionDeflate:
		out, padding, err = compressDeflate(body, level)
	case engine.CompressionCeaflate:
		out, err = compressCeaflate(body, level)
	default:
		return Result{}, fmt.Errorf("%w: unknown scheme %d", errdefs.ErrCompression, kind)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", errdefs.ErrCompression, kind, err)
	}
	return Result{Data: out, Padding: padding}, nil
}

// Decompress decodes data produced by Compress. size is the expected
// decompressed length; any other length is an error.
func Decompress(kind engine.Compression, data []byte, size uint64) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch kind {
	case engine.CompressionNone:
		out = data
	case engine.CompressionZstd:
		out, err = decompressZstd(data, size)
	case engine.CompressionDeflate:
		out, err = decompressDeflate(data, size)
	case engine.CompressionCeaflate:
		out, err = decompressCeaflate(data, size)
	default:
		return nil, fmt.Errorf("%w: unknown scheme %d", errdefs.ErrDecompression, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errdefs.ErrDecompression, kind, err)
	}
	if uint64(len(out)) != size {
		return nil, fmt.Errorf("%w: %s: got %d bytes, header says %d", errdefs.ErrDecompression, kind, len(out), size)
	}
	return out, nil
}
