package mapfile

import "github.com/meigma/cachefile/core/internal/errdefs"

// Re-exported errors.
var (
	ErrInvalidMap           = errdefs.ErrInvalidMap
	ErrUnsupportedEngine    = errdefs.ErrUnsupportedEngine
	ErrOutOfBounds          = errdefs.ErrOutOfBounds
	ErrCRCMismatch          = errdefs.ErrCRCMismatch
	ErrDecompression        = errdefs.ErrDecompression
	ErrMapNeedsCompressed   = errdefs.ErrMapNeedsCompressed
	ErrMapNeedsUncompressed = errdefs.ErrMapNeedsUncompressed
	ErrResourceMapRequired  = errdefs.ErrResourceMapRequired
	ErrResourceNotFound     = errdefs.ErrResourceNotFound
	ErrUnknownClass         = errdefs.ErrUnknownClass
	ErrTagNotFound          = errdefs.ErrTagNotFound
)
