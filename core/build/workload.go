package build

import (
	"log/slog"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/tag"
)

// Unset marks a tag whose root struct has not been assigned yet.
const Unset = -1

// PointerKind selects how a pointer is resolved during layout.
type PointerKind uint8

const (
	// PointerAddress resolves to the target's address.
	PointerAddress PointerKind = iota
	// PointerFileOffset resolves to the target's file offset. Used for assets.
	PointerFileOffset
)

// Pointer is a struct-to-struct reference stored at Offset.
type Pointer struct {
	Offset int
	Struct int
	Kind   PointerKind
}

// Dependency is a struct-to-tag reference stored at Offset.
type Dependency struct {
	Offset int
	Tag    int
	// IDOnly dependencies receive the tag id but never an address.
	IDOnly bool
}

// RegionKind is where a struct is placed in the file.
type RegionKind uint8

const (
	RegionTagData RegionKind = iota
	RegionAsset
	RegionBSP
)

// Region identifies a placement. BSP is the BSP number for RegionBSP.
type Region struct {
	Kind RegionKind
	BSP  int
}

// Struct is one relocatable block of bytes.
type Struct struct {
	Data         []byte
	Pointers     []Pointer
	Dependencies []Dependency
	Region       Region
	NoDedupe     bool
}

// Tag is one compiled tag.
type Tag struct {
	Path  string
	Class tag.Class
	// Root is the root struct index, or Unset while the tag is compiling.
	Root int
	// Assets lists raw payload structs in the order they were compiled.
	Assets []int
	// BSP is the BSP region of a structure BSP tag, or -1.
	BSP int

	Indexed       bool
	ResourceIndex int

	// pending is set on placeholders reserved by WithIndex that have not
	// started compiling.
	pending bool
}

// Compiled reports whether t has a root struct.
func (t *Tag) Compiled() bool {
	return t.Root != Unset
}

// Workload is the mutable state of one build.
type Workload struct {
	cfg      buildConfig
	profile  *engine.Profile
	search   *tag.SearchPath
	registry *tag.Registry

	structs []*Struct
	tags    []*Tag
	seen    map[engine.TagRef]int

	scenario     int
	scenarioType engine.ScenarioType
	bspCount     int
	deduped      bool
}

// NewWorkload returns an empty workload for profile p reading tags from search.
func NewWorkload(p *engine.Profile, search *tag.SearchPath, opts ...Option) *Workload {
	cfg := buildConfig{dedupe: true, compressionLevel: -1}
	for _, opt := range opts {
		opt(&cfg)
	}
	reg := cfg.registry
	if reg == nil {
		reg = tag.DefaultRegistry()
	}
	return &Workload{
		cfg:      cfg,
		profile:  p,
		search:   search,
		registry: reg,
		seen:     make(map[engine.TagRef]int),
		scenario: Unset,
	}
}

// log returns the logger, falling back to a discard logger if nil.
func (w *Workload) log() *slog.Logger {
	if w.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.cfg.logger
}

// Profile returns the target profile.
func (w *Workload) Profile() *engine.Profile {
	return w.profile
}

// Structs returns the struct table. The slice is shared with w.
func (w *Workload) Structs() []*Struct {
	return w.structs
}

// Tags returns the tag list. The slice is shared with w.
func (w *Workload) Tags() []*Tag {
	return w.tags
}

// Scenario returns the scenario tag index, or Unset before CompileScenario.
func (w *Workload) Scenario() int {
	return w.scenario
}

// ScenarioType returns the cache file type read from the scenario.
func (w *Workload) ScenarioType() engine.ScenarioType {
	return w.scenarioType
}

func (w *Workload) addStruct(s *Struct) int {
	w.structs = append(w.structs, s)
	return len(w.structs) - 1
}
