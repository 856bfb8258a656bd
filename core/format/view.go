package format

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/meigma/cachefile/core/internal/errdefs"
)

// Address is a virtual address inside a loaded region.
type Address uint64

// View maps addresses onto a byte region that starts at base. Every access
// is range checked.
type View struct {
	data []byte
	base Address
}

// NewView returns a view of data loaded at base.
func NewView(data []byte, base uint64) View {
	return View{data: data, base: Address(base)}
}

// Base returns the address of the first byte.
func (v View) Base() Address {
	return v.base
}

// Len returns the size of the region.
func (v View) Len() int {
	return len(v.data)
}

// Contains reports whether [addr, addr+n) lies inside the region.
func (v View) Contains(addr Address, n uint64) bool {
	if addr < v.base {
		return false
	}
	off := uint64(addr - v.base)
	size := uint64(len(v.data))
	return off <= size && n <= size-off
}

// At returns n bytes at addr. The slice aliases the region.
func (v View) At(addr Address, n uint64) ([]byte, error) {
	if !v.Contains(addr, n) {
		return nil, fmt.Errorf("%w: 0x%X bytes at 0x%X (region 0x%X+0x%X)", errdefs.ErrOutOfBounds, n, uint64(addr), uint64(v.base), len(v.data))
	}
	off := uint64(addr - v.base)
	return v.data[off : off+n], nil
}

// Uint32 reads a little-endian u32 at addr.
func (v View) Uint32(addr Address) (uint32, error) {
	b, err := v.At(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Pointer reads a pointer of the given width at addr.
func (v View) Pointer(addr Address, pointerSize int) (Address, error) {
	b, err := v.At(addr, uint64(pointerSize)) //nolint:gosec // 4 or 8
	if err != nil {
		return 0, err
	}
	if pointerSize == 8 {
		return Address(binary.LittleEndian.Uint64(b)), nil
	}
	return Address(binary.LittleEndian.Uint32(b)), nil
}

// CString reads a null terminated string of at most maxLen bytes at addr.
// ok is false when no terminator is found inside the region or the limit.
func (v View) CString(addr Address, maxLen int) (string, bool) {
	if !v.Contains(addr, 0) {
		return "", false
	}
	rest := v.data[uint64(addr-v.base):]
	if len(rest) > maxLen+1 {
		rest = rest[:maxLen+1]
	}
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", false
	}
	return string(rest[:end]), true
}

// Sub returns the view of [addr, addr+n) with the same addressing.
func (v View) Sub(addr Address, n uint64) (View, error) {
	b, err := v.At(addr, n)
	if err != nil {
		return View{}, err
	}
	return View{data: b, base: addr}, nil
}
