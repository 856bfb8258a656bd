package resource

import "github.com/meigma/cachefile/core/internal/errdefs"

// Re-exported errors.
var (
	ErrInvalidMap       = errdefs.ErrInvalidMap
	ErrOutOfBounds      = errdefs.ErrOutOfBounds
	ErrResourceNotFound = errdefs.ErrResourceNotFound
)
