package codec

import (
	"bytes"
	"errors"

	"github.com/klauspost/compress/zlib"

	"github.com/meigma/cachefile/core/internal/sizing"
)

// SectorSize is the console read granularity. Deflate output is padded to it.
const SectorSize = 4096

var errOversized = errors.New("decompressed data exceeds declared size")

func compressDeflate(body []byte, level int) ([]byte, uint32, error) {
	if level == DefaultLevel {
		level = zlib.DefaultCompression
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, 0, err
	}
	if _, err := zw.Write(body); err != nil {
		return nil, 0, err
	}
	if err := zw.Close(); err != nil {
		return nil, 0, err
	}
	// The header precedes the stream, so the file is sector aligned when
	// header plus stream is.
	padding := sizing.Padding(uint64(buf.Len())+HeaderSize, SectorSize)
	buf.Write(make([]byte, padding))
	return buf.Bytes(), uint32(padding), nil //nolint:gosec // padding < SectorSize
}

func decompressDeflate(data []byte, size uint64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return sizing.ReadAllWithLimit(zr, size, errOversized)
}
