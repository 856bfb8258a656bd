package engine

import (
	"fmt"
	"math"

	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/tag"
)

// Profile identifiers.
const (
	IDXbox        = "xbox"
	IDDemo        = "demo"
	IDRetail      = "retail"
	IDCustom      = "custom"
	IDAnniversary = "anniversary"
	IDNative      = "native"
)

const (
	tagSpaceDefault     = 0x1700000
	tagSpaceAnniversary = 0x1F00000
	maxFileSizeConsole  = 0x8000000
)

var profiles = []*Profile{
	{
		ID:           IDXbox,
		Name:         "Halo: Combat Evolved (Xbox)",
		Engine:       EngineXbox,
		Build:        "01.10.12.2276",
		BuildExact:   true,
		BaseAddress:  0x803A6000,
		BSPAddress:   NoBaseAddress,
		TagSpace:     tagSpaceDefault,
		Compression:  CompressionDeflate,
		HeaderKind:   HeaderStandard,
		PointerSize:  4,
		Dependencies: DependencyEager,
		maxFileSize:  constantSize(maxFileSizeConsole),
		requiredTags: standardRequiredTags,
	},
	{
		ID:           IDDemo,
		Name:         "Halo Trial",
		Engine:       EngineDemo,
		Build:        "01.00.00.0576",
		BuildExact:   true,
		BaseAddress:  0x4BF10000,
		BSPAddress:   NoBaseAddress,
		TagSpace:     tagSpaceDefault,
		Compression:  CompressionNone,
		HeaderKind:   HeaderDemo,
		PointerSize:  4,
		Dependencies: DependencyEager,
		maxFileSize:  constantSize(maxFileSizeConsole),
		requiredTags: standardRequiredTags,
	},
	{
		ID:                  IDRetail,
		Name:                "Halo: Combat Evolved (PC)",
		Engine:              EngineRetail,
		CompressedEngine:    EngineRetailZstd,
		Build:               "01.00.00.0564",
		BaseAddress:         0x40440000,
		BSPAddress:          NoBaseAddress,
		TagSpace:            tagSpaceDefault,
		Compression:         CompressionZstd,
		CompressionOptional: true,
		HeaderKind:          HeaderStandard,
		PointerSize:         4,
		Dependencies:        DependencyEager,
		maxFileSize:         retailMaxFileSize,
		requiredTags:        standardRequiredTags,
	},
	{
		ID:                  IDCustom,
		Name:                "Halo Custom Edition",
		Engine:              EngineCustom,
		CompressedEngine:    EngineCustomZstd,
		Build:               "01.00.00.0609",
		BuildExact:          true,
		BaseAddress:         0x40440000,
		BSPAddress:          NoBaseAddress,
		TagSpace:            tagSpaceDefault,
		Compression:         CompressionZstd,
		CompressionOptional: true,
		HeaderKind:          HeaderStandard,
		PointerSize:         4,
		Dependencies:        DependencyEager,
		ResourceMaps:        true,
		maxFileSize:         constantSize(math.MaxUint32),
		requiredTags:        standardRequiredTags,
	},
	{
		ID:           IDAnniversary,
		Name:         "Halo: Combat Evolved Anniversary",
		Engine:       EngineRetail,
		Build:        "01.03.43.0000",
		BuildExact:   true,
		BaseAddress:  0x40448000,
		BSPAddress:   0x41448000,
		TagSpace:     tagSpaceAnniversary,
		Compression:  CompressionCeaflate,
		HeaderKind:   HeaderStandard,
		PointerSize:  4,
		Dependencies: DependencyEager,
		maxFileSize:  constantSize(math.MaxUint32),
		requiredTags: standardRequiredTags,
	},
	{
		ID:                  IDNative,
		Name:                "Native",
		Engine:              EngineNative,
		BaseAddress:         NoBaseAddress,
		BSPAddress:          NoBaseAddress,
		TagSpace:            math.MaxUint64,
		Compression:         CompressionZstd,
		CompressionOptional: true,
		HeaderKind:          HeaderNative,
		PointerSize:         8,
		Dependencies:        DependencyDeferred,
		maxFileSize:         constantSize(math.MaxUint64),
		requiredTags:        standardRequiredTags,
	},
}

// All returns every profile in table order.
func All() []*Profile {
	out := make([]*Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Lookup returns the profile with the given identifier.
func Lookup(id string) (*Profile, error) {
	for _, p := range profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", errdefs.ErrUnsupportedEngine, id)
}

// Detect finds the profile for a header's engine id and build string.
// Profiles with an exact build string are tried first so that two profiles
// sharing an engine id are told apart by build; advisory profiles then match
// on engine id alone.
func Detect(engineID uint32, build string) (*Profile, error) {
	for _, p := range profiles {
		if p.BuildExact && p.Accepts(engineID) && p.MatchesBuild(build) {
			return p, nil
		}
	}
	for _, p := range profiles {
		if !p.BuildExact && p.Accepts(engineID) {
			return p, nil
		}
	}
	// Builds written by older toolchains may carry a non-standard string.
	for _, p := range profiles {
		if p.Accepts(engineID) && !sharesEngine(p) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: engine 0x%X build %q", errdefs.ErrUnsupportedEngine, engineID, build)
}

// sharesEngine reports whether another profile uses p's engine id.
func sharesEngine(p *Profile) bool {
	for _, o := range profiles {
		if o != p && o.Accepts(p.Engine) {
			return true
		}
	}
	return false
}

func constantSize(n uint64) func(ScenarioType) uint64 {
	return func(ScenarioType) uint64 { return n }
}

func retailMaxFileSize(t ScenarioType) uint64 {
	switch t {
	case ScenarioMultiplayer:
		return 0x2F00000
	case ScenarioUserInterface:
		return 0x2300000
	default:
		return 0x8000000
	}
}

func standardRequiredTags(t ScenarioType) []TagRef {
	refs := []TagRef{
		{`globals\globals`, tag.ClassGlobals},
		{`ui\ui_tags_loaded_all_scenario_types`, tag.ClassTagCollection},
	}
	switch t {
	case ScenarioSingleplayer:
		refs = append(refs, TagRef{`ui\ui_tags_loaded_solo_scenario_type`, tag.ClassTagCollection})
	case ScenarioMultiplayer:
		refs = append(refs, TagRef{`ui\ui_tags_loaded_multiplayer_scenario_type`, tag.ClassTagCollection})
	case ScenarioUserInterface:
		refs = append(refs, TagRef{`ui\ui_tags_loaded_mainmenu_scenario_type`, tag.ClassTagCollection})
	}
	return append(refs,
		TagRef{`sound\sfx\ui\cursor`, tag.ClassSound},
		TagRef{`sound\sfx\ui\back`, tag.ClassSound},
		TagRef{`sound\sfx\ui\flag_failure`, tag.ClassSound},
		TagRef{`ui\shell\main_menu\mp_map_list`, tag.ClassUnicodeStringList},
		TagRef{`ui\shell\strings\loading`, tag.ClassUnicodeStringList},
		TagRef{`ui\shell\bitmaps\trouble_brewing`, tag.ClassBitmap},
		TagRef{`ui\shell\bitmaps\background`, tag.ClassBitmap},
	)
}
