package engine

import (
	"math"
	"strings"

	"github.com/meigma/cachefile/core/tag"
)

// Engine ids written to the header.
const (
	EngineXbox       uint32 = 0x5
	EngineDemo       uint32 = 0x6
	EngineRetail     uint32 = 0x7
	EngineCustom     uint32 = 0x261
	EngineNative     uint32 = 0x1A86
	EngineRetailZstd uint32 = 0x861A0007
	EngineCustomZstd uint32 = 0x861A0261
)

const (
	// NoBaseAddress marks a position independent profile. Addresses are file
	// offsets relative to the tag data region.
	NoBaseAddress uint64 = math.MaxUint64

	// MaxTagCount is the largest tag array any profile accepts.
	MaxTagCount = 65535

	// HeaderSize is the size of every header variant.
	HeaderSize = 0x800
)

// TagRef names a tag by path and class.
type TagRef struct {
	Path  string
	Class tag.Class
}

// String returns the path with its class extension.
func (r TagRef) String() string {
	return r.Path + "." + r.Class.Extension()
}

// Profile is an immutable description of one build target.
type Profile struct {
	// ID is the short identifier used on the command line.
	ID   string
	Name string

	// Engine is the header engine id of an uncompressed file.
	Engine uint32
	// CompressedEngine is written instead of Engine when an optionally
	// compressed profile is compressed. Zero when not applicable.
	CompressedEngine uint32

	Build      string
	BuildExact bool

	BaseAddress uint64
	// BSPAddress is the fixed load address of structure BSPs, or
	// NoBaseAddress when BSPs are placed at the end of tag space.
	BSPAddress uint64
	TagSpace   uint64

	Compression         Compression
	CompressionOptional bool
	HeaderKind          HeaderKind
	PointerSize         int
	Dependencies        DependencyPolicy

	// ResourceMaps is set when bitmap, sound and loc tags may be indexed
	// into external resource maps.
	ResourceMaps bool

	maxFileSize  func(ScenarioType) uint64
	requiredTags func(ScenarioType) []TagRef
}

// MaxFileSize returns the largest uncompressed cache file allowed for t.
func (p *Profile) MaxFileSize(t ScenarioType) uint64 {
	if p.maxFileSize == nil {
		return math.MaxUint32
	}
	return p.maxFileSize(t)
}

// RequiredTags returns the tags every cache file of type t must contain,
// in compile order.
func (p *Profile) RequiredTags(t ScenarioType) []TagRef {
	if p.requiredTags == nil {
		return nil
	}
	return p.requiredTags(t)
}

// PositionIndependent reports whether addresses are relative to the tag data.
func (p *Profile) PositionIndependent() bool {
	return p.BaseAddress == NoBaseAddress
}

// Base returns the address of the first byte of tag data.
func (p *Profile) Base() uint64 {
	if p.PositionIndependent() {
		return 0
	}
	return p.BaseAddress
}

// EngineFor returns the engine id to write for a file that is or is not compressed.
func (p *Profile) EngineFor(compressed bool) uint32 {
	if compressed && p.CompressedEngine != 0 {
		return p.CompressedEngine
	}
	return p.Engine
}

// Accepts reports whether the header engine id e belongs to p.
func (p *Profile) Accepts(e uint32) bool {
	return e == p.Engine || (p.CompressedEngine != 0 && e == p.CompressedEngine)
}

// CompressionFor returns the compression implied by header engine id e.
// Optionally compressed profiles switch engine ids when compressed; the
// others always use their fixed scheme.
func (p *Profile) CompressionFor(e uint32) Compression {
	if !p.CompressionOptional {
		return p.Compression
	}
	if p.CompressedEngine != 0 && e == p.CompressedEngine {
		return p.Compression
	}
	return CompressionNone
}

// MatchesBuild reports whether build identifies p. Advisory builds only need
// to be non-empty or equal.
func (p *Profile) MatchesBuild(build string) bool {
	build = strings.TrimRight(build, "\x00")
	if p.BuildExact {
		return build == p.Build
	}
	return true
}

func (p *Profile) String() string {
	return p.ID
}
