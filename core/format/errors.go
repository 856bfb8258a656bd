package format

import "github.com/meigma/cachefile/core/internal/errdefs"

// Re-exported errors.
var (
	ErrInvalidMap     = errdefs.ErrInvalidMap
	ErrOutOfBounds    = errdefs.ErrOutOfBounds
	ErrStringOverflow = errdefs.ErrStringOverflow
)
