package cachefile

import (
	"fmt"

	"github.com/meigma/cachefile/core/codec"
	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/format"
)

// DefaultCompressionLevel selects each codec's default level.
const DefaultCompressionLevel = codec.DefaultLevel

// convertible reads the header of data and checks that its profile allows
// switching compression on and off.
func convertible(data []byte) (*format.Header, *engine.Profile, error) {
	if codec.IsCeaflate(data) {
		return nil, nil, fmt.Errorf("%w: %s", ErrMapNeedsCompressed, engine.IDAnniversary)
	}
	hdr, err := format.ReadHeader(data)
	if err != nil {
		return nil, nil, err
	}
	p, err := engine.Detect(hdr.Engine, hdr.Build)
	if err != nil {
		return nil, nil, err
	}
	if !p.CompressionOptional {
		if p.Compression == engine.CompressionNone {
			return nil, nil, fmt.Errorf("%w: %s", ErrMapNeedsUncompressed, p.ID)
		}
		return nil, nil, fmt.Errorf("%w: %s", ErrMapNeedsCompressed, p.ID)
	}
	if hdr.Kind != engine.HeaderNative {
		hdr.Compression = p.CompressionFor(hdr.Engine)
	}
	return hdr, p, nil
}

// Compress compresses an uncompressed cache file for an engine profile with
// optional compression. Compressed input is returned unchanged.
func Compress(data []byte, level int) ([]byte, error) {
	hdr, p, err := convertible(data)
	if err != nil {
		return nil, err
	}
	if hdr.Compression != engine.CompressionNone {
		return data, nil
	}
	if hdr.DecompressedSize < format.HeaderSize || hdr.DecompressedSize > uint64(len(data)) {
		return nil, fmt.Errorf("%w: header says 0x%X bytes, file is 0x%X", ErrInvalidMap, hdr.DecompressedSize, len(data))
	}

	res, err := codec.Compress(p.Compression, data[format.HeaderSize:hdr.DecompressedSize], level)
	if err != nil {
		return nil, err
	}
	hdr.Compression = p.Compression
	hdr.CompressedPadding = res.Padding
	hdr.Engine = p.EngineFor(true)
	return join(hdr, res.Data)
}

// Decompress reverses Compress. Uncompressed input is returned unchanged.
func Decompress(data []byte) ([]byte, error) {
	hdr, p, err := convertible(data)
	if err != nil {
		return nil, err
	}
	if hdr.Compression == engine.CompressionNone {
		return data, nil
	}
	if hdr.DecompressedSize < format.HeaderSize {
		return nil, fmt.Errorf("%w: decompressed size 0x%X", ErrInvalidMap, hdr.DecompressedSize)
	}

	body, err := codec.Decompress(hdr.Compression, data[format.HeaderSize:], hdr.DecompressedSize-format.HeaderSize)
	if err != nil {
		return nil, err
	}
	hdr.Compression = engine.CompressionNone
	hdr.CompressedPadding = 0
	hdr.Engine = p.EngineFor(false)
	return join(hdr, body)
}

func join(hdr *format.Header, body []byte) ([]byte, error) {
	head, err := hdr.Encode()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	return append(out, body...), nil
}
