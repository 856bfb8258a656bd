package build

import "github.com/meigma/cachefile/core/internal/errdefs"

// Re-exported errors.
var (
	ErrTagNotFound       = errdefs.ErrTagNotFound
	ErrUnknownClass      = errdefs.ErrUnknownClass
	ErrInvalidDependency = errdefs.ErrInvalidDependency
	ErrInvalidTag        = errdefs.ErrInvalidTag
	ErrInvalidTagPath    = errdefs.ErrInvalidTagPath
	ErrStringOverflow    = errdefs.ErrStringOverflow
	ErrCapacity          = errdefs.ErrCapacity
	ErrResourceNotFound  = errdefs.ErrResourceNotFound
)

// CapacityError reports a profile limit exceeded by a build.
type CapacityError = errdefs.CapacityError
