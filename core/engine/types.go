package engine

import "fmt"

// ScenarioType is the kind of cache file, taken from the scenario tag.
type ScenarioType uint16

const (
	ScenarioSingleplayer ScenarioType = iota
	ScenarioMultiplayer
	ScenarioUserInterface
)

// String returns the lower-case name used in logs and the CLI.
func (t ScenarioType) String() string {
	switch t {
	case ScenarioSingleplayer:
		return "singleplayer"
	case ScenarioMultiplayer:
		return "multiplayer"
	case ScenarioUserInterface:
		return "user_interface"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(t))
	}
}

// Valid reports whether t is one of the three known scenario types.
func (t ScenarioType) Valid() bool {
	return t <= ScenarioUserInterface
}

// Compression identifies the codec applied to everything after the header.
type Compression uint8

const (
	CompressionNone Compression = iota
	// CompressionDeflate is a single zlib stream padded to 4096 bytes.
	CompressionDeflate
	CompressionZstd
	// CompressionCeaflate is block-chunked deflate with an offset table.
	CompressionCeaflate
)

// String returns the human-readable name of the compression scheme.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionDeflate:
		return "deflate"
	case CompressionZstd:
		return "zstd"
	case CompressionCeaflate:
		return "ceaflate"
	default:
		return "unknown"
	}
}

// HeaderKind selects the 0x800-byte header layout.
type HeaderKind uint8

const (
	HeaderStandard HeaderKind = iota
	HeaderDemo
	HeaderNative
)

func (k HeaderKind) String() string {
	switch k {
	case HeaderStandard:
		return "standard"
	case HeaderDemo:
		return "demo"
	case HeaderNative:
		return "native"
	default:
		return "unknown"
	}
}

// DependencyPolicy controls how tag references are resolved at build time.
type DependencyPolicy uint8

const (
	// DependencyEager writes the target tag's root address next to its id.
	DependencyEager DependencyPolicy = iota
	// DependencyDeferred writes only the id; the engine patches addresses on load.
	DependencyDeferred
)

func (d DependencyPolicy) String() string {
	if d == DependencyDeferred {
		return "deferred"
	}
	return "eager"
}
