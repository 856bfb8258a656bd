package build

import (
	"log/slog"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/core/tag"
)

// ResourcePolicy controls which tags are indexed into resource maps.
type ResourcePolicy uint8

const (
	// ResourcesMatching indexes a tag when a resource map holds identical data.
	ResourcesMatching ResourcePolicy = iota
	// ResourcesAlways indexes a tag whenever a resource map holds its path.
	ResourcesAlways
	// ResourcesNone keeps every tag in the cache file.
	ResourcesNone
)

func (p ResourcePolicy) String() string {
	switch p {
	case ResourcesAlways:
		return "always"
	case ResourcesNone:
		return "none"
	default:
		return "matching"
	}
}

// Option configures a build.
type Option func(*buildConfig)

type buildConfig struct {
	logger   *slog.Logger
	registry *tag.Registry

	index []engine.TagRef

	name           string
	buildString    string
	tagDataAddress *uint64
	forgeCRC       *uint32

	dedupe     bool
	maxSavings int

	compress         bool
	compressionLevel int

	bitmaps, sounds, loc *resource.Map
	resourcePolicy       ResourcePolicy
}

// WithLogger sets the logger for build progress.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// WithRegistry replaces the default tag definitions.
func WithRegistry(reg *tag.Registry) Option {
	return func(c *buildConfig) {
		c.registry = reg
	}
}

// WithIndex reserves tag array slots in the given order so tag ids match
// another cache file. Every listed tag is compiled.
func WithIndex(refs []engine.TagRef) Option {
	return func(c *buildConfig) {
		c.index = refs
	}
}

// WithName overrides the scenario name written to the header.
func WithName(name string) Option {
	return func(c *buildConfig) {
		c.name = name
	}
}

// WithBuildString overrides the build string written to the header.
func WithBuildString(s string) Option {
	return func(c *buildConfig) {
		c.buildString = s
	}
}

// WithTagDataAddress loads tag data at addr instead of the profile base.
func WithTagDataAddress(addr uint64) Option {
	return func(c *buildConfig) {
		c.tagDataAddress = &addr
	}
}

// WithForgedCRC appends four bytes to the tag data so its CRC32 equals crc.
func WithForgedCRC(crc uint32) Option {
	return func(c *buildConfig) {
		c.forgeCRC = &crc
	}
}

// WithDedupe enables struct deduplication, stopping once maxSavings bytes
// have been saved. A limit of zero or less is unlimited. Dedupe is on by default.
func WithDedupe(maxSavings int) Option {
	return func(c *buildConfig) {
		c.dedupe = true
		c.maxSavings = maxSavings
	}
}

// WithoutDedupe disables struct deduplication.
func WithoutDedupe() Option {
	return func(c *buildConfig) {
		c.dedupe = false
	}
}

// WithCompression compresses profiles whose compression is optional.
// Profiles that require compression are always compressed.
func WithCompression(enabled bool) Option {
	return func(c *buildConfig) {
		c.compress = enabled
	}
}

// WithCompressionLevel sets the codec level. -1 selects the codec default.
func WithCompressionLevel(level int) Option {
	return func(c *buildConfig) {
		c.compressionLevel = level
	}
}

// WithResourceMaps supplies resource maps that bitmap, sound and loc tags may
// be indexed into. Any map may be nil.
func WithResourceMaps(bitmaps, sounds, loc *resource.Map) Option {
	return func(c *buildConfig) {
		c.bitmaps, c.sounds, c.loc = bitmaps, sounds, loc
	}
}

// WithResourcePolicy selects which tags are indexed.
func WithResourcePolicy(p ResourcePolicy) Option {
	return func(c *buildConfig) {
		c.resourcePolicy = p
	}
}
