// Package format encodes and decodes the fixed structures of a cache file:
// the 0x800-byte header in its standard, demo and native variants, the tag
// data header and the tag array.
//
// Cache files are little-endian. Addresses are resolved through a [View],
// which bounds-checks every access against the region it wraps.
package format
