// Package errdefs defines the sentinel errors shared by the cachefile packages.
// Public packages re-export the subset they return so callers never import
// this package directly.
package errdefs

import (
	"errors"
	"fmt"
)

// Structural errors.
var (
	// ErrInvalidMap is returned when a cache file header or tag data region is malformed.
	ErrInvalidMap = errors.New("cachefile: invalid cache file")

	// ErrUnsupportedEngine is returned when no engine profile matches a header.
	ErrUnsupportedEngine = errors.New("cachefile: unsupported engine")

	// ErrStringOverflow is returned when a fixed-width string does not fit its field.
	ErrStringOverflow = errors.New("cachefile: fixed-width string overflow")

	// ErrOutOfBounds is returned when an offset, address or index falls outside its region.
	ErrOutOfBounds = errors.New("cachefile: out of bounds")

	// ErrCRCMismatch is returned when the tag data CRC32 does not match the header.
	ErrCRCMismatch = errors.New("cachefile: crc32 mismatch")
)

// Compression errors.
var (
	// ErrDecompression is returned when a compressed region cannot be decoded.
	ErrDecompression = errors.New("cachefile: decompression failed")

	// ErrCompression is returned when a region cannot be encoded.
	ErrCompression = errors.New("cachefile: compression failed")

	// ErrMapNeedsCompressed is returned when an uncompressed file targets a profile that requires compression.
	ErrMapNeedsCompressed = errors.New("cachefile: cache file must be compressed for this engine")

	// ErrMapNeedsUncompressed is returned when a compressed file targets a profile that forbids compression.
	ErrMapNeedsUncompressed = errors.New("cachefile: cache file must not be compressed for this engine")
)

// Dependency errors.
var (
	// ErrTagNotFound is returned when no search root holds a source tag.
	ErrTagNotFound = errors.New("cachefile: tag not found")

	// ErrUnknownClass is returned for a tag class with no definition.
	ErrUnknownClass = errors.New("cachefile: unknown tag class")

	// ErrInvalidDependency is returned when a reference names a class its field does not accept.
	ErrInvalidDependency = errors.New("cachefile: invalid dependency")

	// ErrInvalidTag is returned when a source tag cannot be decoded or fails a class check.
	ErrInvalidTag = errors.New("cachefile: invalid tag")

	// ErrInvalidTagPath is returned for empty, oversized or malformed tag paths.
	ErrInvalidTagPath = errors.New("cachefile: invalid tag path")
)

// Resource errors.
var (
	// ErrResourceMapRequired is returned when an indexed tag needs a resource map that was not supplied.
	ErrResourceMapRequired = errors.New("cachefile: resource map required")

	// ErrResourceNotFound is returned when a path lookup in a resource map fails.
	ErrResourceNotFound = errors.New("cachefile: resource not found")
)

// Manifest errors.
var (
	// ErrInvalidManifest is returned when a build manifest cannot be parsed.
	ErrInvalidManifest = errors.New("cachefile: invalid manifest")

	// ErrDigestMismatch is returned when a cache file does not match its manifest digest.
	ErrDigestMismatch = errors.New("cachefile: digest mismatch")
)

// ErrCapacity is the sentinel wrapped by every CapacityError.
var ErrCapacity = errors.New("cachefile: capacity exceeded")

// CapacityError reports a size that exceeded a profile limit.
type CapacityError struct {
	Limit string
	Size  uint64
	Max   uint64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%v: %s is %d bytes, limit %d", ErrCapacity, e.Limit, e.Size, e.Max)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacity
}
