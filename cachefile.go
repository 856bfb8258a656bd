package cachefile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meigma/cachefile/core/build"
	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/core/mapfile"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/core/tag"
)

// Aliases for the core types callers handle most.
type (
	Profile  = engine.Profile
	Result   = build.Result
	Map      = mapfile.Map
	Manifest = manifest.Manifest
)

// Profiles returns every supported engine profile.
func Profiles() []*Profile {
	return engine.All()
}

// BuildDirs compiles the scenario for the engine profile named engineID.
// Tags are searched in dirs in order; the first match wins.
func BuildDirs(ctx context.Context, engineID, scenario string, dirs []string, opts ...build.Option) (*Result, error) {
	p, search, err := searchDirs(engineID, dirs)
	if err != nil {
		return nil, err
	}
	return build.Build(ctx, p, search, scenario, opts...)
}

// BuildResourceMapDirs compiles refs into a resource map of type typ for the
// engine profile named engineID.
func BuildResourceMapDirs(ctx context.Context, engineID string, typ resource.Type, dirs []string, refs []engine.TagRef, opts ...build.Option) ([]byte, error) {
	p, search, err := searchDirs(engineID, dirs)
	if err != nil {
		return nil, err
	}
	return build.ResourceMap(ctx, p, search, typ, refs, opts...)
}

func searchDirs(engineID string, dirs []string) (*engine.Profile, *tag.SearchPath, error) {
	p, err := engine.Lookup(engineID)
	if err != nil {
		return nil, nil, err
	}
	if len(dirs) == 0 {
		return nil, nil, ErrNoTagDirectories
	}
	roots := make([]fs.FS, 0, len(dirs))
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("tag directory: %w", err)
		}
		if !info.IsDir() {
			return nil, nil, fmt.Errorf("tag directory %s: not a directory", dir)
		}
		roots = append(roots, os.DirFS(dir))
	}
	return p, tag.NewSearchPath(roots...), nil
}

// LoadFile reads and loads the cache file at path.
func LoadFile(path string, opts ...mapfile.Option) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return mapfile.Load(data, opts...)
}

// Describe loads data and returns its build manifest.
func Describe(data []byte, opts ...mapfile.Option) (*Manifest, error) {
	m, err := mapfile.Load(data, opts...)
	if err != nil {
		return nil, err
	}
	return manifest.New(m, data), nil
}

// ManifestOf loads a freshly built cache file and describes it, keeping the
// build statistics. opts must resolve any indexed tags.
func ManifestOf(res *Result, opts ...mapfile.Option) (*Manifest, error) {
	man, err := Describe(res.Data, opts...)
	if err != nil {
		return nil, err
	}
	man.Structs = res.Structs
	man.DedupeSavings = res.DedupeSavings
	return man, nil
}

// ResourceMaps holds the resource maps found in a directory. Missing maps
// are nil.
type ResourceMaps struct {
	Bitmaps *resource.Map
	Sounds  *resource.Map
	Loc     *resource.Map

	// Raw holds the file bytes of each map that was found.
	Raw map[resource.Type][]byte
}

// resourceFiles are the file names resource maps are stored under.
var resourceFiles = map[resource.Type]string{
	resource.TypeBitmaps: "bitmaps.map",
	resource.TypeSounds:  "sounds.map",
	resource.TypeLoc:     "loc.map",
}

// ResourceFile returns the file name a resource map of type t is stored under.
func ResourceFile(t resource.Type) string {
	if name, ok := resourceFiles[t]; ok {
		return name
	}
	return t.String() + ".map"
}

// WriteResourceMaps writes each map in raw to dir under its standard name.
func WriteResourceMaps(dir string, raw map[resource.Type][]byte) error {
	for typ, data := range raw {
		if err := os.WriteFile(filepath.Join(dir, ResourceFile(typ)), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// ReadResourceMaps reads bitmaps.map, sounds.map and loc.map from dir.
// Absent files are skipped.
func ReadResourceMaps(dir string) (*ResourceMaps, error) {
	rm := &ResourceMaps{Raw: make(map[resource.Type][]byte)}
	for typ, name := range resourceFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m, err := resource.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if m.Type != typ {
			return nil, fmt.Errorf("%s: holds %s", name, m.Type)
		}
		rm.Raw[typ] = data
		switch typ {
		case resource.TypeBitmaps:
			rm.Bitmaps = m
		case resource.TypeSounds:
			rm.Sounds = m
		case resource.TypeLoc:
			rm.Loc = m
		}
	}
	return rm, nil
}

// BuildOption indexes tags against the maps.
func (rm *ResourceMaps) BuildOption() build.Option {
	return build.WithResourceMaps(rm.Bitmaps, rm.Sounds, rm.Loc)
}

// LoadOptions resolves indexed tags from the maps.
func (rm *ResourceMaps) LoadOptions() []mapfile.Option {
	return []mapfile.Option{
		mapfile.WithBitmaps(rm.Bitmaps),
		mapfile.WithSounds(rm.Sounds),
		mapfile.WithLoc(rm.Loc),
	}
}
