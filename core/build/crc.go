package build

import (
	"encoding/binary"
	"hash/crc32"
)

// crcPoly is the reversed IEEE polynomial.
const crcPoly = 0xEDB88320

// forgeCRC returns four bytes that make crc32.ChecksumIEEE(data || b) equal
// target. The CRC is linear over GF(2), so the bytes are found by running the
// register backwards 32 steps from the target.
func forgeCRC(data []byte, target uint32) [4]byte {
	reg := target ^ 0xFFFFFFFF
	for range 32 {
		if reg&0x80000000 != 0 {
			reg = ((reg ^ crcPoly) << 1) | 1
		} else {
			reg <<= 1
		}
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], reg^crc32.ChecksumIEEE(data)^0xFFFFFFFF)
	return b
}
