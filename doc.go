// Package cachefile builds and loads Halo cache files.
//
// A cache file is a single relocatable image of every tag a scenario needs,
// laid out for one engine build. This package wraps the core packages with
// file system helpers. For low-level control use the core subpackages
// directly:
//
//   - core/build compiles tags and writes cache files
//   - core/mapfile loads cache files and decodes tags
//   - core/resource reads and writes resource maps
//   - core/manifest describes cache files for publishing
//   - registry pushes and pulls cache files as OCI artifacts
//
// # Quick Start
//
// Build a multiplayer map for the custom edition engine:
//
//	res, err := cachefile.BuildDirs(ctx, "custom", `levels\test\bloodgulch\bloodgulch`,
//	    []string{"./tags"},
//	)
//	if err != nil {
//	    return err
//	}
//	err = os.WriteFile("bloodgulch.map", res.Data, 0o644)
//
// Load it back:
//
//	m, err := cachefile.LoadFile("bloodgulch.map")
//	if err != nil {
//	    return err
//	}
//	for _, t := range m.Tags() {
//	    fmt.Println(t.Path, t.Class)
//	}
//
// # Resource maps
//
// Retail and custom edition cache files may index bitmaps, sounds and
// strings into the shared resource maps. Pass the maps when building to
// index tags and when loading to resolve them:
//
//	maps, err := cachefile.ReadResourceMaps("./maps")
//	res, err := cachefile.BuildDirs(ctx, "custom", scenario, dirs, maps.BuildOption())
//	m, err := cachefile.LoadFile("bloodgulch.map", maps.LoadOptions()...)
package cachefile
