package cachefile

import (
	"errors"

	"github.com/meigma/cachefile/core/build"
	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/core/mapfile"
	"github.com/meigma/cachefile/registry"
)

// Errors re-exported from core.
var (
	// ErrInvalidMap is returned when a cache file is malformed.
	ErrInvalidMap = mapfile.ErrInvalidMap

	// ErrUnsupportedEngine is returned when no engine profile matches.
	ErrUnsupportedEngine = mapfile.ErrUnsupportedEngine

	// ErrOutOfBounds is returned when an offset or address leaves its region.
	ErrOutOfBounds = mapfile.ErrOutOfBounds

	// ErrCRCMismatch is returned when tag data does not match the header CRC32.
	ErrCRCMismatch = mapfile.ErrCRCMismatch

	// ErrDecompression is returned when a compressed cache file cannot be decoded.
	ErrDecompression = mapfile.ErrDecompression

	// ErrMapNeedsCompressed is returned when an engine requires compressed cache files.
	ErrMapNeedsCompressed = mapfile.ErrMapNeedsCompressed

	// ErrMapNeedsUncompressed is returned when an engine forbids compressed cache files.
	ErrMapNeedsUncompressed = mapfile.ErrMapNeedsUncompressed

	// ErrTagNotFound is returned when a tag is in no search directory.
	ErrTagNotFound = build.ErrTagNotFound

	// ErrUnknownClass is returned for a tag class with no definition.
	ErrUnknownClass = build.ErrUnknownClass

	// ErrInvalidDependency is returned when a reference names a class its field does not accept.
	ErrInvalidDependency = build.ErrInvalidDependency

	// ErrInvalidTag is returned when a source tag is malformed.
	ErrInvalidTag = build.ErrInvalidTag

	// ErrCapacity is returned when a cache file would exceed an engine limit.
	ErrCapacity = build.ErrCapacity

	// ErrResourceMapRequired is returned when an indexed tag needs a resource map that was not supplied.
	ErrResourceMapRequired = mapfile.ErrResourceMapRequired

	// ErrResourceNotFound is returned when a resource map lacks an entry.
	ErrResourceNotFound = mapfile.ErrResourceNotFound

	// ErrInvalidManifest is returned when a build manifest cannot be parsed.
	ErrInvalidManifest = manifest.ErrInvalidManifest

	// ErrDigestMismatch is returned when content does not match its digest.
	ErrDigestMismatch = manifest.ErrDigestMismatch
)

// ErrNoTagDirectories is returned when a build is given no tag directories.
var ErrNoTagDirectories = errors.New("cachefile: no tag directories")

// Errors re-exported from registry.
var (
	// ErrNotFound is returned when no cache file exists at a reference.
	ErrNotFound = registry.ErrNotFound

	// ErrInvalidReference is returned when a reference string is malformed.
	ErrInvalidReference = registry.ErrInvalidReference
)

// CapacityError reports which engine limit a build exceeded.
type CapacityError = build.CapacityError
