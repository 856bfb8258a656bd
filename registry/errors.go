package registry

import (
	"errors"
	"fmt"

	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/registry/oras"
)

// Sentinel errors for registry operations.
var (
	// ErrNotFound is returned when nothing exists at the reference.
	ErrNotFound = errors.New("cachefile: not found in registry")

	// ErrInvalidReference is returned when a reference string is malformed.
	ErrInvalidReference = errors.New("cachefile: invalid reference")

	// ErrInvalidArtifact is returned when a manifest is not a cache file artifact.
	ErrInvalidArtifact = errors.New("cachefile: invalid cache file artifact")

	// ErrMissingLayer is returned when a required layer is absent.
	ErrMissingLayer = errors.New("cachefile: missing layer")

	// ErrTooLarge is returned when a layer exceeds the configured size limit.
	ErrTooLarge = errors.New("cachefile: layer too large")

	// ErrDigestMismatch is returned when content does not match its digest.
	ErrDigestMismatch = manifest.ErrDigestMismatch
)

// mapOCIError translates ORAS errors to registry sentinels.
func mapOCIError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, oras.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, oras.ErrInvalidReference):
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	default:
		return err
	}
}
