package format

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/internal/errdefs"
)

// Header literals.
const (
	HeadLiteral     uint32 = 0x68656164
	FootLiteral     uint32 = 0x666F6F74
	HeadLiteralDemo uint32 = 0x45686564
	FootLiteralDemo uint32 = 0x47666F74
	TagsLiteral     uint32 = 0x74616773
)

// HeaderSize is the size of every header variant.
const HeaderSize = engine.HeaderSize

// StringSize is the width of the name and build fields including the terminator.
const StringSize = 32

// headerLayout holds field offsets. A negative offset means the variant
// has no such field.
type headerLayout struct {
	head          int
	foot          int
	engine        int
	decompressed  int
	padding       int
	tagDataOffset int
	tagDataSize   int
	compression   int
	name          int
	build         int
	scenarioType  int
	crc           int
	wide          bool
}

var layouts = map[engine.HeaderKind]headerLayout{
	engine.HeaderStandard: {
		head: 0x00, engine: 0x04, decompressed: 0x08, padding: 0x0C,
		tagDataOffset: 0x10, tagDataSize: 0x14, compression: -1,
		name: 0x20, build: 0x40, scenarioType: 0x60, crc: 0x64, foot: 0x7FC,
	},
	engine.HeaderNative: {
		head: 0x00, engine: 0x04, decompressed: 0x08, padding: -1,
		tagDataOffset: 0x10, tagDataSize: 0x18, compression: 0x62,
		name: 0x20, build: 0x40, scenarioType: 0x60, crc: 0x64, foot: 0x7FC,
		wide: true,
	},
	engine.HeaderDemo: {
		scenarioType: 0x002, head: 0x2C0, tagDataSize: 0x2C4, build: 0x2C8,
		engine: 0x588, name: 0x58C, crc: 0x5B0, decompressed: 0x5E8,
		tagDataOffset: 0x5EC, foot: 0x5F0, padding: -1, compression: -1,
	},
}

// Header is the decoded form of any header variant. Fields a variant does
// not store are zero after decoding and ignored when encoding.
//
// Only the native header stores its compression. For the other kinds the
// loader derives Compression from the engine id and the file contents.
type Header struct {
	Kind engine.HeaderKind

	Head uint32
	Foot uint32

	Engine            uint32
	DecompressedSize  uint64
	CompressedPadding uint32
	Compression       engine.Compression
	TagDataOffset     uint64
	TagDataSize       uint64
	Name              string
	Build             string
	Type              engine.ScenarioType
	CRC32             uint32
}

// NewHeader returns a header of kind with the correct literals.
func NewHeader(kind engine.HeaderKind) *Header {
	h := &Header{Kind: kind, Head: HeadLiteral, Foot: FootLiteral}
	if kind == engine.HeaderDemo {
		h.Head, h.Foot = HeadLiteralDemo, FootLiteralDemo
	}
	return h
}

// Valid reports whether both literals match the pair for h.Kind.
func (h *Header) Valid() bool {
	if h.Kind == engine.HeaderDemo {
		return h.Head == HeadLiteralDemo && h.Foot == FootLiteralDemo
	}
	return h.Head == HeadLiteral && h.Foot == FootLiteral
}

// Encode serializes h into a new 0x800-byte buffer.
func (h *Header) Encode() ([]byte, error) {
	l, ok := layouts[h.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: header kind %d", errdefs.ErrInvalidMap, h.Kind)
	}
	b := make([]byte, HeaderSize)
	le := binary.LittleEndian
	if err := putString(b[l.name:], "name", h.Name); err != nil {
		return nil, err
	}
	if err := putString(b[l.build:], "build", h.Build); err != nil {
		return nil, err
	}
	le.PutUint32(b[l.head:], h.Head)
	le.PutUint32(b[l.foot:], h.Foot)
	le.PutUint32(b[l.engine:], h.Engine)
	le.PutUint16(b[l.scenarioType:], uint16(h.Type))
	le.PutUint32(b[l.crc:], h.CRC32)
	if l.padding >= 0 {
		le.PutUint32(b[l.padding:], h.CompressedPadding)
	}

	if l.wide {
		le.PutUint64(b[l.decompressed:], h.DecompressedSize)
		le.PutUint64(b[l.tagDataOffset:], h.TagDataOffset)
		le.PutUint64(b[l.tagDataSize:], h.TagDataSize)
		le.PutUint16(b[l.compression:], uint16(h.Compression))
		return b, nil
	}

	for _, f := range []struct {
		name string
		off  int
		v    uint64
	}{
		{"decompressed size", l.decompressed, h.DecompressedSize},
		{"tag data offset", l.tagDataOffset, h.TagDataOffset},
		{"tag data size", l.tagDataSize, h.TagDataSize},
	} {
		if f.v > 0xFFFFFFFF {
			return nil, &errdefs.CapacityError{Limit: f.name, Size: f.v, Max: 0xFFFFFFFF}
		}
		le.PutUint32(b[f.off:], uint32(f.v))
	}
	if l.compression >= 0 {
		le.PutUint32(b[l.compression:], uint32(h.Compression))
	}
	return b, nil
}

// DecodeHeader reads a header of the given kind without validating it.
func DecodeHeader(data []byte, kind engine.HeaderKind) (*Header, error) {
	l, ok := layouts[kind]
	if !ok {
		return nil, fmt.Errorf("%w: header kind %d", errdefs.ErrInvalidMap, kind)
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the header", errdefs.ErrInvalidMap, len(data))
	}
	le := binary.LittleEndian
	h := &Header{
		Kind:   kind,
		Head:   le.Uint32(data[l.head:]),
		Foot:   le.Uint32(data[l.foot:]),
		Engine: le.Uint32(data[l.engine:]),
		Type:   engine.ScenarioType(le.Uint16(data[l.scenarioType:])),
		CRC32:  le.Uint32(data[l.crc:]),
	}
	var err error
	if h.Name, err = getString(data[l.name:], "name"); err != nil {
		return nil, err
	}
	if h.Build, err = getString(data[l.build:], "build"); err != nil {
		return nil, err
	}
	if l.padding >= 0 {
		h.CompressedPadding = le.Uint32(data[l.padding:])
	}
	if l.wide {
		h.DecompressedSize = le.Uint64(data[l.decompressed:])
		h.TagDataOffset = le.Uint64(data[l.tagDataOffset:])
		h.TagDataSize = le.Uint64(data[l.tagDataSize:])
		h.Compression = engine.Compression(le.Uint16(data[l.compression:]))
		return h, nil
	}
	h.DecompressedSize = uint64(le.Uint32(data[l.decompressed:]))
	h.TagDataOffset = uint64(le.Uint32(data[l.tagDataOffset:]))
	h.TagDataSize = uint64(le.Uint32(data[l.tagDataSize:]))
	if l.compression >= 0 {
		h.Compression = engine.Compression(le.Uint32(data[l.compression:]))
	}
	return h, nil
}

// ReadHeader detects the header kind from its literals and engine id, then
// decodes it. Unknown literals fail with ErrInvalidMap.
func ReadHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the header", errdefs.ErrInvalidMap, len(data))
	}
	le := binary.LittleEndian
	std := layouts[engine.HeaderStandard]
	demo := layouts[engine.HeaderDemo]
	switch {
	case le.Uint32(data[std.head:]) == HeadLiteral && le.Uint32(data[std.foot:]) == FootLiteral:
		if le.Uint32(data[std.engine:]) == engine.EngineNative {
			return DecodeHeader(data, engine.HeaderNative)
		}
		return DecodeHeader(data, engine.HeaderStandard)
	case le.Uint32(data[demo.head:]) == HeadLiteralDemo && le.Uint32(data[demo.foot:]) == FootLiteralDemo:
		return DecodeHeader(data, engine.HeaderDemo)
	default:
		return nil, fmt.Errorf("%w: bad header literals", errdefs.ErrInvalidMap)
	}
}

func putString(dst []byte, field, s string) error {
	if len(s) >= StringSize {
		return fmt.Errorf("%w: %s %q is %d bytes, limit %d", errdefs.ErrStringOverflow, field, s, len(s), StringSize-1)
	}
	copy(dst[:StringSize], s)
	return nil
}

// getString requires a terminator inside the fixed field.
func getString(src []byte, field string) (string, error) {
	for i, c := range src[:StringSize] {
		if c == 0 {
			return string(src[:i]), nil
		}
	}
	return "", fmt.Errorf("%w: %s is not null terminated", errdefs.ErrInvalidMap, field)
}
