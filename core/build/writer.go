package build

import (
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/meigma/cachefile/core/codec"
	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/format"
	"github.com/meigma/cachefile/core/internal/sizing"
)

// write fills in the header and compresses img when the profile calls for it.
func (w *Workload) write(img *image) ([]byte, *format.Header, error) {
	p := w.profile
	tagData := img.file[img.tagDataOffset:]
	if w.cfg.forgeCRC != nil {
		b := forgeCRC(tagData[:len(tagData)-4], *w.cfg.forgeCRC)
		copy(tagData[len(tagData)-4:], b[:])
	}

	file := img.file
	if p.Compression == engine.CompressionDeflate {
		// Console builds are read in whole sectors.
		pad := sizing.Padding(uint64(len(file)), codec.SectorSize)
		file = append(file, make([]byte, pad)...)
	}

	hdr := format.NewHeader(p.HeaderKind)
	hdr.DecompressedSize = uint64(len(file))
	hdr.TagDataOffset = img.tagDataOffset
	hdr.TagDataSize = img.tagDataSize
	hdr.Name = w.cfg.name
	if hdr.Name == "" {
		path := w.tags[w.scenario].Path
		hdr.Name = path[strings.LastIndexByte(path, '\\')+1:]
	}
	hdr.Build = w.cfg.buildString
	if hdr.Build == "" {
		hdr.Build = p.Build
	}
	hdr.Type = w.scenarioType
	hdr.CRC32 = crc32.ChecksumIEEE(tagData)

	compressed := p.Compression != engine.CompressionNone && (!p.CompressionOptional || w.cfg.compress)
	hdr.Engine = p.EngineFor(compressed)
	if compressed {
		hdr.Compression = p.Compression
	}

	body := file[format.HeaderSize:]
	if compressed && p.Compression != engine.CompressionCeaflate {
		res, err := codec.Compress(p.Compression, body, w.cfg.compressionLevel)
		if err != nil {
			return nil, nil, err
		}
		hdr.CompressedPadding = res.Padding
		body = res.Data
	}

	head, err := hdr.Encode()
	if err != nil {
		return nil, nil, fmt.Errorf("encode header: %w", err)
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	out = append(out, body...)

	if compressed && p.Compression == engine.CompressionCeaflate {
		// The block container wraps the whole file, header included.
		res, err := codec.Compress(p.Compression, out, w.cfg.compressionLevel)
		if err != nil {
			return nil, nil, err
		}
		out = res.Data
	}
	if compressed {
		w.log().Info("compressed cache file", "compression", p.Compression.String(),
			"uncompressed_size", len(file), "compressed_size", len(out))
	}
	return out, hdr, nil
}
