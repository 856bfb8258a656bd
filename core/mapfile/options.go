package mapfile

import (
	"log/slog"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/core/tag"
)

// Option configures Load.
type Option func(*loadConfig)

type loadConfig struct {
	logger   *slog.Logger
	registry *tag.Registry
	profile  *engine.Profile

	bitmaps, sounds, loc *resource.Map
	verifyCRC            bool
}

// WithLogger sets the logger for load progress.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *loadConfig) {
		c.logger = logger
	}
}

// WithRegistry replaces the default tag definitions used by Decode and the
// BSP table lookup.
func WithRegistry(reg *tag.Registry) Option {
	return func(c *loadConfig) {
		c.registry = reg
	}
}

// WithProfile skips profile detection. The header must still belong to p.
func WithProfile(p *engine.Profile) Option {
	return func(c *loadConfig) {
		c.profile = p
	}
}

// WithBitmaps supplies the bitmaps resource map.
func WithBitmaps(m *resource.Map) Option {
	return func(c *loadConfig) {
		c.bitmaps = m
	}
}

// WithSounds supplies the sounds resource map.
func WithSounds(m *resource.Map) Option {
	return func(c *loadConfig) {
		c.sounds = m
	}
}

// WithLoc supplies the loc resource map.
func WithLoc(m *resource.Map) Option {
	return func(c *loadConfig) {
		c.loc = m
	}
}

// WithVerifyCRC checks the tag data CRC32 against the header.
func WithVerifyCRC(enabled bool) Option {
	return func(c *loadConfig) {
		c.verifyCRC = enabled
	}
}
