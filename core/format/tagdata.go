package format

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/tag"
)

// TagID identifies a tag in a cache file. The low half is the tag array
// index and the high half a salt derived from it.
type TagID uint32

// NullID marks an unset reference.
const NullID TagID = 0xFFFFFFFF

const tagIDSalt = 0xE741

// NewTagID returns the id of the tag at index.
func NewTagID(index int) TagID {
	i := uint32(index) & 0xFFFF //nolint:gosec // tag count is capped at 65535
	return TagID(i | (tagIDSalt+i)<<16)
}

// Index returns the tag array index encoded in id.
func (id TagID) Index() int {
	return int(id & 0xFFFF)
}

// IsNull reports whether id is NullID.
func (id TagID) IsNull() bool {
	return id == NullID
}

// Valid reports whether id is well formed and indexes a tag array of count entries.
func (id TagID) Valid(count int) bool {
	return !id.IsNull() && id.Index() < count && NewTagID(id.Index()) == id
}

// Sizes of the tag data header and one tag record.
const (
	TagDataHeaderSize       = 0x28
	TagDataHeaderSizeNative = 0x38
	TagRecordSize           = 0x20
)

// TagDataHeaderLen returns the tag data header size for a pointer width.
func TagDataHeaderLen(pointerSize int) int {
	if pointerSize == 8 {
		return TagDataHeaderSizeNative
	}
	return TagDataHeaderSize
}

// TagDataHeader starts the tag data region.
type TagDataHeader struct {
	TagArrayAddress uint32
	ScenarioID      TagID
	Checksum        uint32
	TagCount        uint32
	ModelPartCount  uint32
	ModelDataOffset uint64
	VertexSize      uint64
	ModelDataSize   uint64
	Literal         uint32
}

// Encode serializes h for the given pointer width.
func (h *TagDataHeader) Encode(pointerSize int) []byte {
	le := binary.LittleEndian
	b := make([]byte, TagDataHeaderLen(pointerSize))
	le.PutUint32(b[0x00:], h.TagArrayAddress)
	le.PutUint32(b[0x04:], uint32(h.ScenarioID))
	le.PutUint32(b[0x08:], h.Checksum)
	le.PutUint32(b[0x0C:], h.TagCount)
	le.PutUint32(b[0x10:], h.ModelPartCount)
	if pointerSize == 8 {
		le.PutUint64(b[0x14:], h.ModelDataOffset)
		le.PutUint64(b[0x1C:], h.VertexSize)
		le.PutUint64(b[0x24:], h.ModelDataSize)
		le.PutUint32(b[0x34:], h.Literal)
		return b
	}
	le.PutUint32(b[0x14:], uint32(h.ModelDataOffset)) //nolint:gosec // 32-bit layout
	le.PutUint32(b[0x18:], h.ModelPartCount)
	le.PutUint32(b[0x1C:], uint32(h.VertexSize))    //nolint:gosec // 32-bit layout
	le.PutUint32(b[0x20:], uint32(h.ModelDataSize)) //nolint:gosec // 32-bit layout
	le.PutUint32(b[0x24:], h.Literal)
	return b
}

// DecodeTagDataHeader reads a tag data header and checks its literal.
func DecodeTagDataHeader(b []byte, pointerSize int) (*TagDataHeader, error) {
	if len(b) < TagDataHeaderLen(pointerSize) {
		return nil, fmt.Errorf("%w: tag data header truncated", errdefs.ErrInvalidMap)
	}
	le := binary.LittleEndian
	h := &TagDataHeader{
		TagArrayAddress: le.Uint32(b[0x00:]),
		ScenarioID:      TagID(le.Uint32(b[0x04:])),
		Checksum:        le.Uint32(b[0x08:]),
		TagCount:        le.Uint32(b[0x0C:]),
		ModelPartCount:  le.Uint32(b[0x10:]),
	}
	if pointerSize == 8 {
		h.ModelDataOffset = le.Uint64(b[0x14:])
		h.VertexSize = le.Uint64(b[0x1C:])
		h.ModelDataSize = le.Uint64(b[0x24:])
		h.Literal = le.Uint32(b[0x34:])
	} else {
		h.ModelDataOffset = uint64(le.Uint32(b[0x14:]))
		h.VertexSize = uint64(le.Uint32(b[0x1C:]))
		h.ModelDataSize = uint64(le.Uint32(b[0x20:]))
		h.Literal = le.Uint32(b[0x24:])
	}
	if h.Literal != TagsLiteral {
		return nil, fmt.Errorf("%w: bad tags literal 0x%08X", errdefs.ErrInvalidMap, h.Literal)
	}
	return h, nil
}

// TagRecord is one entry of the tag array.
type TagRecord struct {
	Primary   tag.Class
	Secondary tag.Class
	Tertiary  tag.Class
	ID        TagID
	// Path is the address of the null terminated tag path.
	Path uint64
	// Data is the root struct address, or the resource index of an indexed tag.
	Data    uint64
	Indexed bool
}

// Encode appends the 0x20-byte record to dst.
func (r *TagRecord) Encode(dst []byte, pointerSize int) []byte {
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, uint32(r.Primary))
	dst = le.AppendUint32(dst, uint32(r.Secondary))
	dst = le.AppendUint32(dst, uint32(r.Tertiary))
	dst = le.AppendUint32(dst, uint32(r.ID))
	if pointerSize == 8 {
		dst = le.AppendUint64(dst, r.Path)
		return le.AppendUint64(dst, r.Data)
	}
	var indexed uint32
	if r.Indexed {
		indexed = 1
	}
	dst = le.AppendUint32(dst, uint32(r.Path)) //nolint:gosec // 32-bit layout
	dst = le.AppendUint32(dst, uint32(r.Data)) //nolint:gosec // 32-bit layout
	dst = le.AppendUint32(dst, indexed)
	return le.AppendUint32(dst, 0)
}

// DecodeTagRecord reads one record from b.
func DecodeTagRecord(b []byte, pointerSize int) (TagRecord, error) {
	if len(b) < TagRecordSize {
		return TagRecord{}, fmt.Errorf("%w: tag record truncated", errdefs.ErrInvalidMap)
	}
	le := binary.LittleEndian
	r := TagRecord{
		Primary:   tag.Class(le.Uint32(b[0x00:])),
		Secondary: tag.Class(le.Uint32(b[0x04:])),
		Tertiary:  tag.Class(le.Uint32(b[0x08:])),
		ID:        TagID(le.Uint32(b[0x0C:])),
	}
	if pointerSize == 8 {
		r.Path = le.Uint64(b[0x10:])
		r.Data = le.Uint64(b[0x18:])
		return r, nil
	}
	r.Path = uint64(le.Uint32(b[0x10:]))
	r.Data = uint64(le.Uint32(b[0x14:]))
	r.Indexed = le.Uint32(b[0x18:])&1 != 0
	return r, nil
}

// BSPHeaderSize is the size of the header at the start of each BSP region.
const BSPHeaderSize = 0x18

// BSPHeader points at the structure BSP root inside its region.
type BSPHeader struct {
	Pointer uint32
	Literal uint32
}

// BSPLiteral is the "sbsp" literal closing a BSP header.
const BSPLiteral = uint32(tag.ClassStructureBSP)

// Encode serializes h into a new BSPHeaderSize buffer.
func (h BSPHeader) Encode() []byte {
	b := make([]byte, BSPHeaderSize)
	binary.LittleEndian.PutUint32(b[0x00:], h.Pointer)
	binary.LittleEndian.PutUint32(b[0x14:], h.Literal)
	return b
}

// DecodeBSPHeader reads a BSP region header.
func DecodeBSPHeader(b []byte) (BSPHeader, error) {
	if len(b) < BSPHeaderSize {
		return BSPHeader{}, fmt.Errorf("%w: bsp header truncated", errdefs.ErrInvalidMap)
	}
	h := BSPHeader{
		Pointer: binary.LittleEndian.Uint32(b[0x00:]),
		Literal: binary.LittleEndian.Uint32(b[0x14:]),
	}
	if h.Literal != BSPLiteral {
		return BSPHeader{}, fmt.Errorf("%w: bad bsp literal 0x%08X", errdefs.ErrInvalidMap, h.Literal)
	}
	return h, nil
}
