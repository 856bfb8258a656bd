package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/internal/sizing"
)

const (
	// HeaderSize is the size of the uncompressed header preceding a body.
	HeaderSize = engine.HeaderSize

	// BlockSize is the uncompressed size of every ceaflate block but the last.
	BlockSize = 0x20000

	maxBlocks = 0xFFFF

	// TableSize is the fixed block table: block_count then 0xFFFF offsets.
	// The first block starts right after it.
	TableSize = 4 + 4*maxBlocks
)

var errBadBlockTable = errors.New("bad block table")

// IsCeaflate reports whether data starts with a ceaflate block table. A
// ceaflate file wraps the whole cache file, so no header literal is visible.
func IsCeaflate(data []byte) bool {
	if len(data) < TableSize {
		return false
	}
	le := binary.LittleEndian
	count := le.Uint32(data)
	return count > 0 && count <= maxBlocks && le.Uint32(data[4:]) == TableSize
}

// CeaflateSize sums the uncompressed block sizes of a ceaflate file.
func CeaflateSize(data []byte) (uint64, error) {
	count, err := blockCount(data)
	if err != nil {
		return 0, err
	}
	le := binary.LittleEndian
	var total uint64
	for i := range count {
		off := uint64(le.Uint32(data[4+4*i:]))
		if off+4 > uint64(len(data)) {
			return 0, fmt.Errorf("%w: block %d at 0x%X", errBadBlockTable, i, off)
		}
		total += uint64(le.Uint32(data[off:]))
	}
	return total, nil
}

func blockCount(data []byte) (int, error) {
	if len(data) < TableSize {
		return 0, fmt.Errorf("%w: %d bytes", errBadBlockTable, len(data))
	}
	count := int(binary.LittleEndian.Uint32(data))
	if count == 0 || count > maxBlocks {
		return 0, fmt.Errorf("%w: %d blocks", errBadBlockTable, count)
	}
	return count, nil
}

// compressCeaflate writes block_count, the fixed offset table, then per block
// its uncompressed size and a zlib stream. Offsets are from the start of the
// output.
func compressCeaflate(data []byte, level int) ([]byte, error) {
	if level == DefaultLevel {
		level = zlib.BestCompression
	}
	count := max((len(data)+BlockSize-1)/BlockSize, 1)
	if count > maxBlocks {
		return nil, fmt.Errorf("%d blocks exceeds %d", count, maxBlocks)
	}

	blocks := make([][]byte, count)
	var g errgroup.Group
	for i := range blocks {
		g.Go(func() error {
			start := i * BlockSize
			end := min(start+BlockSize, len(data))
			var buf bytes.Buffer
			buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(end-start))) //nolint:gosec // <= BlockSize
			zw, err := zlib.NewWriterLevel(&buf, level)
			if err != nil {
				return err
			}
			if _, err := zw.Write(data[start:end]); err != nil {
				return err
			}
			if err := zw.Close(); err != nil {
				return err
			}
			blocks[i] = buf.Bytes()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]byte, TableSize, TableSize+len(data)/2)
	binary.LittleEndian.PutUint32(out, uint32(count)) //nolint:gosec // count <= maxBlocks
	for i, b := range blocks {
		off, err := sizing.ToUint32(uint64(len(out)), errBadBlockTable)
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint32(out[4+4*i:], off)
		out = append(out, b...)
	}
	return out, nil
}

type ceaflateBlock struct {
	in  []byte
	out []byte
}

func decompressCeaflate(data []byte, size uint64) ([]byte, error) {
	count, err := blockCount(data)
	if err != nil {
		return nil, err
	}
	le := binary.LittleEndian

	// Size every block up front so the output is allocated once.
	blocks := make([]ceaflateBlock, count)
	offsets := make([]int, count+1)
	var total uint64
	for i := range blocks {
		off := uint64(le.Uint32(data[4+4*i:]))
		if off+4 > uint64(len(data)) {
			return nil, fmt.Errorf("%w: block %d at 0x%X", errBadBlockTable, i, off)
		}
		n := uint64(le.Uint32(data[off:]))
		if n > BlockSize {
			return nil, fmt.Errorf("%w: block %d is %d bytes", errBadBlockTable, i, n)
		}
		blocks[i].in = data[off+4:]
		offsets[i] = int(total) //nolint:gosec // bounded by count*BlockSize
		total += n
	}
	if total != size {
		return nil, fmt.Errorf("%w: blocks hold %d bytes, header says %d", errBadBlockTable, total, size)
	}
	offsets[count] = int(total) //nolint:gosec // bounded by count*BlockSize

	out := make([]byte, total)
	var g errgroup.Group
	for i := range blocks {
		blocks[i].out = out[offsets[i]:offsets[i+1]]
		g.Go(func() error {
			return inflateBlock(blocks[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func inflateBlock(b ceaflateBlock) error {
	zr, err := zlib.NewReader(bytes.NewReader(b.in))
	if err != nil {
		return err
	}
	defer zr.Close()
	got, err := sizing.ReadAllWithLimit(zr, uint64(len(b.out)), errOversized)
	if err != nil {
		return err
	}
	if len(got) != len(b.out) {
		return fmt.Errorf("block inflated to %d bytes, want %d", len(got), len(b.out))
	}
	copy(b.out, got)
	return nil
}
