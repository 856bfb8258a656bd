package tag

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/meigma/cachefile/core/internal/errdefs"
)

// Source tag header layout. Everything in a source tag is big-endian.
const (
	// HeaderSize is the size of the header preceding the root element.
	HeaderSize = 0x40

	headerClassOffset   = 0x24
	headerCRCOffset     = 0x28
	headerSizeOffset    = 0x2C
	headerVersionOffset = 0x38
	headerMarkerOffset  = 0x3A
	headerBlamOffset    = 0x3C

	headerMarker = 0x00FF
	blamLiteral  = 0x626C616D

	// noCRC disables checksum verification of a source tag.
	noCRC = 0xFFFFFFFF

	// noTagID is the id stored in source dependencies.
	noTagID = 0xFFFFFFFF
)

// Decode parses a source tag. Tags with a checksum other than 0xFFFFFFFF
// must match the CRC32 of everything after the header.
func Decode(data []byte, reg *Registry) (*Tag, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the tag header", errdefs.ErrInvalidTag, len(data))
	}
	be := binary.BigEndian
	if be.Uint32(data[headerBlamOffset:]) != blamLiteral || be.Uint32(data[headerSizeOffset:]) != HeaderSize {
		return nil, fmt.Errorf("%w: bad tag header", errdefs.ErrInvalidTag)
	}
	def, err := reg.Lookup(Class(be.Uint32(data[headerClassOffset:])))
	if err != nil {
		return nil, err
	}
	body := data[HeaderSize:]
	if crc := be.Uint32(data[headerCRCOffset:]); crc != noCRC && crc != crc32.ChecksumIEEE(body) {
		return nil, fmt.Errorf("%w: checksum mismatch", errdefs.ErrInvalidTag)
	}

	r := &sourceReader{buf: body}
	elems, err := r.readElements(def.Root, 1)
	if err != nil {
		return nil, err
	}
	if r.off != len(body) {
		return nil, fmt.Errorf("%w: %d trailing bytes", errdefs.ErrInvalidTag, len(body)-r.off)
	}
	return &Tag{Def: def, Root: elems[0]}, nil
}

type sourceReader struct {
	buf []byte
	off int
}

func (r *sourceReader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.buf)-r.off {
		return nil, fmt.Errorf("%w: read of %d bytes at 0x%X overruns tag", errdefs.ErrInvalidTag, n, r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// readElements reads count fixed parts, then the trailing data of each.
func (r *sourceReader) readElements(s *Struct, count int) ([]*Element, error) {
	size := s.SourceSize()
	if count < 0 || (count > 0 && (size == 0 || count > (len(r.buf)-r.off)/size)) {
		return nil, fmt.Errorf("%w: %d %s elements overrun tag", errdefs.ErrInvalidTag, count, s.Name)
	}
	elems := make([]*Element, count)
	for i := range elems {
		fixed, err := r.take(size)
		if err != nil {
			return nil, err
		}
		elems[i] = NewElement(s)
		readFixed(elems[i], fixed)
	}
	for _, e := range elems {
		if err := r.readTrailing(e); err != nil {
			return nil, err
		}
	}
	return elems, nil
}

// readFixed decodes the fixed part of e. Reference fields keep their
// trailing length in Uint until readTrailing consumes it.
func readFixed(e *Element, b []byte) {
	be := binary.BigEndian
	off := 0
	for i := range e.Def.Fields {
		f := &e.Def.Fields[i]
		v := &e.Values[i]
		switch f.Kind {
		case KindU8:
			v.Uint = uint64(b[off])
		case KindU16, KindI16:
			v.Uint = uint64(be.Uint16(b[off:]))
		case KindU32, KindI32, KindF32:
			v.Uint = uint64(be.Uint32(b[off:]))
		case KindString32:
			v.String = cString(b[off : off+stringSize])
		case KindDependency:
			v.Ref.Class = Class(be.Uint32(b[off:]))
			v.Uint = uint64(be.Uint32(b[off+8:]))
		case KindBlock:
			v.Uint = uint64(be.Uint32(b[off:]))
		case KindData:
			v.Uint = uint64(be.Uint32(b[off:]))
		case KindPad:
		}
		off += f.SourceSize()
	}
}

func (r *sourceReader) readTrailing(e *Element) error {
	for i := range e.Def.Fields {
		f := &e.Def.Fields[i]
		v := &e.Values[i]
		switch f.Kind {
		case KindDependency:
			n := int(v.Uint) //nolint:gosec // read from a u32
			v.Uint = 0
			if n == 0 {
				continue
			}
			b, err := r.take(n + 1)
			if err != nil {
				return err
			}
			if b[n] != 0 {
				return fmt.Errorf("%w: %s path is not null terminated", errdefs.ErrInvalidTag, f.Name)
			}
			v.Ref.Path = string(b[:n])
		case KindBlock:
			n := int(v.Uint) //nolint:gosec // read from a u32
			v.Uint = 0
			elems, err := r.readElements(f.Block, n)
			if err != nil {
				return err
			}
			if n > 0 {
				v.Block = elems
			}
		case KindData:
			n := int(v.Uint) //nolint:gosec // read from a u32
			v.Uint = 0
			b, err := r.take(n)
			if err != nil {
				return err
			}
			if n > 0 {
				v.Data = append([]byte(nil), b...)
			}
		default:
		}
	}
	return nil
}

// Encode serializes t as a source tag with a valid checksum.
func Encode(t *Tag) ([]byte, error) {
	body, err := appendElements(nil, t.Def.Root, []*Element{t.Root})
	if err != nil {
		return nil, err
	}
	be := binary.BigEndian
	out := make([]byte, HeaderSize, HeaderSize+len(body))
	be.PutUint32(out[headerClassOffset:], uint32(t.Def.Class))
	be.PutUint32(out[headerCRCOffset:], crc32.ChecksumIEEE(body))
	be.PutUint32(out[headerSizeOffset:], HeaderSize)
	be.PutUint16(out[headerVersionOffset:], t.Def.Version)
	be.PutUint16(out[headerMarkerOffset:], headerMarker)
	be.PutUint32(out[headerBlamOffset:], blamLiteral)
	return append(out, body...), nil
}

func appendElements(out []byte, s *Struct, elems []*Element) ([]byte, error) {
	var err error
	for _, e := range elems {
		if e.Def != s {
			return nil, fmt.Errorf("%w: element of %s in a %s block", errdefs.ErrInvalidTag, e.Def.Name, s.Name)
		}
		if out, err = appendFixed(out, e); err != nil {
			return nil, err
		}
	}
	for _, e := range elems {
		if out, err = appendTrailing(out, e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func appendFixed(out []byte, e *Element) ([]byte, error) {
	be := binary.BigEndian
	for i := range e.Def.Fields {
		f := &e.Def.Fields[i]
		v := &e.Values[i]
		switch f.Kind {
		case KindPad:
			out = append(out, make([]byte, f.Size)...)
		case KindU8:
			out = append(out, byte(v.Uint))
		case KindU16, KindI16:
			out = be.AppendUint16(out, uint16(v.Uint)) //nolint:gosec // field width
		case KindU32, KindI32, KindF32:
			out = be.AppendUint32(out, uint32(v.Uint)) //nolint:gosec // field width
		case KindString32:
			s, err := fixedString(f.Name, v.String)
			if err != nil {
				return nil, err
			}
			out = append(out, s...)
		case KindDependency:
			out = be.AppendUint32(out, uint32(v.Ref.Class))
			out = be.AppendUint32(out, 0)
			out = be.AppendUint32(out, uint32(len(v.Ref.Path))) //nolint:gosec // path length
			out = be.AppendUint32(out, noTagID)
		case KindBlock:
			out = be.AppendUint32(out, uint32(len(v.Block))) //nolint:gosec // element count
			out = append(out, make([]byte, 8)...)
		case KindData:
			out = be.AppendUint32(out, uint32(len(v.Data))) //nolint:gosec // payload size
			out = append(out, make([]byte, 16)...)
		}
	}
	return out, nil
}

func appendTrailing(out []byte, e *Element) ([]byte, error) {
	var err error
	for i := range e.Def.Fields {
		f := &e.Def.Fields[i]
		v := &e.Values[i]
		switch f.Kind {
		case KindDependency:
			if !v.Ref.IsNull() {
				out = append(out, v.Ref.Path...)
				out = append(out, 0)
			}
		case KindBlock:
			if out, err = appendElements(out, f.Block, v.Block); err != nil {
				return nil, err
			}
		case KindData:
			out = append(out, v.Data...)
		default:
		}
	}
	return out, nil
}

// fixedString pads s to 32 bytes. The last byte is always a terminator.
func fixedString(field, s string) ([]byte, error) {
	if len(s) >= stringSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", errdefs.ErrStringOverflow, field, len(s))
	}
	b := make([]byte, stringSize)
	copy(b, s)
	return b, nil
}

// cString returns b up to its first null byte.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
