package tag

import "github.com/meigma/cachefile/core/internal/errdefs"

// Re-exported errors.
var (
	ErrTagNotFound    = errdefs.ErrTagNotFound
	ErrUnknownClass   = errdefs.ErrUnknownClass
	ErrInvalidTag     = errdefs.ErrInvalidTag
	ErrInvalidTagPath = errdefs.ErrInvalidTagPath
	ErrStringOverflow = errdefs.ErrStringOverflow
)
