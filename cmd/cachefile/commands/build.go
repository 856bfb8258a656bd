package commands

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/cachefile"
	"github.com/meigma/cachefile/core/build"
	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/mapfile"
	"github.com/meigma/cachefile/core/tag"
	"github.com/meigma/cachefile/internal/config"
)

type buildFlags struct {
	engine         string
	tagDirs        []string
	resourceMaps   string
	resourcePolicy string
	noDedupe       bool
	maxSavings     string
	compress       bool
	level          int
	output         string
	name           string
	buildString    string
	tagDataAddress string
	forgeCRC       string
	index          string
	manifest       bool
}

func newBuildCmd(a *app) *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build <scenario>",
		Short: "Compile a scenario into a cache file",
		Long: `Compile a scenario and every tag it references into a cache file.

The scenario is a tag path without extension, for example
levels\test\bloodgulch\bloodgulch. Forward slashes are accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd, f, args[0])
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.engine, "engine", "g", "", "Engine target (see: cachefile engines)")
	fl.StringSliceVarP(&f.tagDirs, "tags", "t", nil, "Tag directory; repeat to search several in order")
	fl.StringVar(&f.resourceMaps, "resource-maps", "", "Directory holding bitmaps.map, sounds.map and loc.map")
	fl.StringVar(&f.resourcePolicy, "resource-policy", "", "Which tags to index into resource maps (matching|always|none)")
	fl.BoolVar(&f.noDedupe, "no-dedupe", false, "Keep identical structs separate")
	fl.StringVar(&f.maxSavings, "max-savings", "", "Stop deduplicating after saving this many bytes")
	fl.BoolVarP(&f.compress, "compress", "c", false, "Compress the output when the engine allows it")
	fl.IntVar(&f.level, "level", 0, "Compression level (-1 for the codec default)")
	fl.StringVarP(&f.output, "output", "o", "", "Output file (default: <output_dir>/<name>.map)")
	fl.StringVarP(&f.name, "name", "N", "", "Rename the scenario in the header")
	fl.StringVar(&f.buildString, "build-string", "", "Override the header build string")
	fl.StringVar(&f.tagDataAddress, "tag-data-address", "", "Override the tag data base address")
	fl.StringVar(&f.forgeCRC, "forge-crc", "", "Forge the tag data CRC32 to this value")
	fl.StringVar(&f.index, "with-index", "", "File listing tag paths (with extension) in tag array order")
	fl.BoolVar(&f.manifest, "manifest", false, "Also write a build manifest next to the cache file")
	return cmd
}

// resolve merges flags over the configured build defaults.
func (f *buildFlags) resolve(cmd *cobra.Command, cfg config.BuildConfig) (config.BuildConfig, error) {
	fl := cmd.Flags()
	if fl.Changed("engine") {
		cfg.Engine = strings.ToLower(f.engine)
	}
	if fl.Changed("tags") {
		cfg.TagDirs = f.tagDirs
	}
	if fl.Changed("resource-maps") {
		cfg.ResourceMapsDir = f.resourceMaps
	}
	if fl.Changed("resource-policy") {
		cfg.ResourcePolicy = strings.ToLower(f.resourcePolicy)
	}
	if fl.Changed("no-dedupe") {
		cfg.Dedupe = !f.noDedupe
	}
	if fl.Changed("max-savings") {
		n, err := config.ParseByteSize(f.maxSavings)
		if err != nil {
			return cfg, err
		}
		cfg.MaxSavings = n
	}
	if fl.Changed("compress") {
		cfg.Compress = f.compress
	}
	if fl.Changed("level") {
		cfg.CompressionLevel = f.level
	}
	if len(cfg.TagDirs) == 0 {
		return cfg, fmt.Errorf("no tag directories: pass --tags or set build.tag_dirs")
	}
	return cfg, nil
}

func parsePolicy(s string) (build.ResourcePolicy, error) {
	for _, p := range []build.ResourcePolicy{build.ResourcesMatching, build.ResourcesAlways, build.ResourcesNone} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown resource policy %q", s)
}

// scenarioPath turns a command line scenario into a tag path.
func scenarioPath(s string) string {
	s = strings.TrimSuffix(s, "."+tag.ClassScenario.Extension())
	return strings.ReplaceAll(s, "/", `\`)
}

// readIndex reads one tag path per line. Blank lines and lines starting
// with # are ignored.
func readIndex(path string) ([]engine.TagRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var refs []engine.TagRef
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, c, err := tag.SplitPath(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n, err)
		}
		refs = append(refs, engine.TagRef{Path: p, Class: c})
	}
	return refs, sc.Err()
}

func (a *app) buildOptions(cmd *cobra.Command, f *buildFlags, cfg config.BuildConfig) ([]build.Option, *cachefile.ResourceMaps, error) {
	policy, err := parsePolicy(cfg.ResourcePolicy)
	if err != nil {
		return nil, nil, err
	}
	opts := []build.Option{
		build.WithLogger(a.logger),
		build.WithResourcePolicy(policy),
	}
	if cfg.Dedupe {
		opts = append(opts, build.WithDedupe(int(cfg.MaxSavings)))
	} else {
		opts = append(opts, build.WithoutDedupe())
	}
	if cfg.Compress {
		opts = append(opts, build.WithCompression(true), build.WithCompressionLevel(cfg.CompressionLevel))
	}
	if f.name != "" {
		opts = append(opts, build.WithName(f.name))
	}
	if f.buildString != "" {
		opts = append(opts, build.WithBuildString(f.buildString))
	}
	if cmd.Flags().Changed("tag-data-address") {
		addr, err := strconv.ParseUint(f.tagDataAddress, 0, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("--tag-data-address: %w", err)
		}
		opts = append(opts, build.WithTagDataAddress(addr))
	}
	if cmd.Flags().Changed("forge-crc") {
		crc, err := strconv.ParseUint(f.forgeCRC, 0, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("--forge-crc: %w", err)
		}
		opts = append(opts, build.WithForgedCRC(uint32(crc)))
	}
	if f.index != "" {
		refs, err := readIndex(f.index)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, build.WithIndex(refs))
	}

	rm := &cachefile.ResourceMaps{}
	if cfg.ResourceMapsDir != "" {
		if rm, err = cachefile.ReadResourceMaps(cfg.ResourceMapsDir); err != nil {
			return nil, nil, err
		}
		opts = append(opts, rm.BuildOption())
	}
	return opts, rm, nil
}

func (a *app) runBuild(cmd *cobra.Command, f *buildFlags, scenario string) error {
	cfg, err := f.resolve(cmd, a.cfg.Build)
	if err != nil {
		return err
	}
	opts, rm, err := a.buildOptions(cmd, f, cfg)
	if err != nil {
		return err
	}

	res, err := cachefile.BuildDirs(cmd.Context(), cfg.Engine, scenarioPath(scenario), cfg.TagDirs, opts...)
	if err != nil {
		return err
	}

	out := f.output
	if out == "" {
		out = filepath.Join(cfg.OutputDir, res.Header.Name+".map")
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return err
	}
	a.logger.Info("wrote cache file", "path", out, "size", len(res.Data))

	if f.manifest {
		man, err := cachefile.ManifestOf(res, append(rm.LoadOptions(), mapfile.WithLogger(a.logger))...)
		if err != nil {
			return fmt.Errorf("describe %s: %w", out, err)
		}
		if err := os.WriteFile(out+".manifest", man.Marshal(), 0o644); err != nil {
			return err
		}
	}

	pr, err := a.printer(cmd)
	if err != nil {
		return err
	}
	return pr.Print(newBuildView(out, cfg.Engine, res))
}
