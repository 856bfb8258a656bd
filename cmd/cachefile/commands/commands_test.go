package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/cachefile"
	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/core/tag"
	"github.com/meigma/cachefile/core/testutil"
)

// execute runs the CLI with args against the config file at cfgPath.
func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// fixture writes a multiplayer tag tree and an empty config.
func fixture(t *testing.T, id string) (tagDir, cfgPath string) {
	t.Helper()
	p, err := engine.Lookup(id)
	require.NoError(t, err)
	tagDir = testutil.NewMap(t, p, engine.ScenarioMultiplayer).WriteDir(t.TempDir())
	return tagDir, filepath.Join(t.TempDir(), "config.yaml")
}

func decodeJSON(t *testing.T, s string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, filepath.Join(t.TempDir(), "none.yaml"), "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = execute(t, filepath.Join(t.TempDir(), "none.yaml"), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cachefile dev")
	assert.Contains(t, out, "Go version")
}

func TestEngines(t *testing.T) {
	t.Parallel()

	out, err := execute(t, filepath.Join(t.TempDir(), "none.yaml"), "engines", "-f", "json")
	require.NoError(t, err)
	var list []engineView
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	ids := make([]string, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, len(cachefile.Profiles()), len(list))
	assert.Contains(t, ids, engine.IDCustom)
	assert.Contains(t, ids, engine.IDXbox)

	out, err = execute(t, filepath.Join(t.TempDir(), "none.yaml"), "engines")
	require.NoError(t, err)
	assert.Contains(t, out, "anniversary")
	assert.Contains(t, out, "(optional)")
}

func TestBuildInfo(t *testing.T) {
	t.Parallel()

	tagDir, cfg := fixture(t, engine.IDCustom)
	out := filepath.Join(t.TempDir(), "test.map")

	stdout, err := execute(t, cfg, "build", "levels/test/test",
		"--engine", "custom", "--tags", tagDir, "-o", out, "--manifest", "-f", "json")
	require.NoError(t, err)
	built := decodeJSON(t, stdout)
	assert.Equal(t, out, built["file"])
	assert.Equal(t, "test", built["name"])
	assert.Equal(t, "multiplayer", built["scenario_type"])
	tags := built["tags"].(float64)
	assert.Positive(t, tags)

	stdout, err = execute(t, cfg, "info", out, "-f", "json", "--tags")
	require.NoError(t, err)
	info := decodeJSON(t, stdout)
	assert.Equal(t, "custom", info["profile"])
	assert.Equal(t, "none", info["compression"])
	assert.Equal(t, tags, info["tag_count"])
	assert.Len(t, info["tags"], int(tags))

	// The manifest keeps the build statistics.
	raw, err := os.ReadFile(out + ".manifest")
	require.NoError(t, err)
	man, err := manifest.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int(built["structs"].(float64)), man.Structs)

	stdout, err = execute(t, cfg, "info", out+".manifest", "-f", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "profile: custom")

	stdout, err = execute(t, cfg, "info", out, "--tags")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Digest:")
	assert.Contains(t, stdout, `levels\test\test`)
}

func TestBuildDefaultOutput(t *testing.T) {
	t.Parallel()

	tagDir, cfg := fixture(t, engine.IDRetail)
	outDir := t.TempDir()
	content := "build:\n  engine: retail\n  output_dir: " + filepath.ToSlash(outDir) + "\n  tag_dirs: [\"" + filepath.ToSlash(tagDir) + "\"]\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))

	_, err := execute(t, cfg, "build", testutil.ScenarioPath+".scenario", "--name", "renamed", "--no-dedupe")
	require.NoError(t, err)

	m, err := cachefile.LoadFile(filepath.Join(outDir, "renamed.map"))
	require.NoError(t, err)
	assert.Equal(t, engine.IDRetail, m.Profile.ID)
	assert.Equal(t, "renamed", m.Header.Name)
}

func TestBuildForgeCRC(t *testing.T) {
	t.Parallel()

	tagDir, cfg := fixture(t, engine.IDCustom)
	out := filepath.Join(t.TempDir(), "forged.map")
	_, err := execute(t, cfg, "build", testutil.ScenarioPath, "-g", "custom", "-t", tagDir, "-o", out, "--forge-crc", "0xDEADBEEF")
	require.NoError(t, err)

	m, err := cachefile.LoadFile(out)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), m.Header.CRC32)
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	tagDir, cfg := fixture(t, engine.IDCustom)
	out := filepath.Join(t.TempDir(), "x.map")
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no tag dirs", []string{"build", testutil.ScenarioPath, "-o", out}, nil},
		{"unknown engine", []string{"build", testutil.ScenarioPath, "-t", tagDir, "-g", "pc", "-o", out}, cachefile.ErrUnsupportedEngine},
		{"missing scenario", []string{"build", `levels\nowhere`, "-t", tagDir, "-o", out}, cachefile.ErrTagNotFound},
		{"bad policy", []string{"build", testutil.ScenarioPath, "-t", tagDir, "--resource-policy", "sometimes", "-o", out}, nil},
		{"bad crc", []string{"build", testutil.ScenarioPath, "-t", tagDir, "--forge-crc", "0x1FFFFFFFF", "-o", out}, nil},
		{"bad format", []string{"build", testutil.ScenarioPath, "-t", tagDir, "-f", "xml", "-o", out}, nil},
		{"no args", []string{"build"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := execute(t, cfg, tt.args...)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestBuildWithIndex(t *testing.T) {
	t.Parallel()

	tagDir, cfg := fixture(t, engine.IDCustom)
	index := filepath.Join(t.TempDir(), "index.txt")
	require.NoError(t, os.WriteFile(index, []byte("# tag order\nui/test/bitmap.bitmap\n\n"), 0o644))
	out := filepath.Join(t.TempDir(), "indexed.map")

	_, err := execute(t, cfg, "build", testutil.ScenarioPath, "-t", tagDir, "--with-index", index, "-o", out)
	require.NoError(t, err)

	m, err := cachefile.LoadFile(out)
	require.NoError(t, err)
	first, err := m.Tag(0)
	require.NoError(t, err)
	assert.Equal(t, `ui\test\bitmap`, first.Path)
	assert.Equal(t, tag.ClassBitmap, first.Class)
}

func TestResourceMapsEndToEnd(t *testing.T) {
	t.Parallel()

	tagDir, cfg := fixture(t, engine.IDCustom)
	maps := writeBitmaps(t, tagDir)

	out := filepath.Join(t.TempDir(), "test.map")
	stdout, err := execute(t, cfg, "build", testutil.ScenarioPath, "-t", tagDir, "--resource-maps", maps, "-o", out, "-f", "json")
	require.NoError(t, err)
	assert.InDelta(t, 1, decodeJSON(t, stdout)["indexed"], 0)

	_, err = execute(t, cfg, "info", out)
	assert.ErrorIs(t, err, cachefile.ErrResourceMapRequired)

	stdout, err = execute(t, cfg, "info", out, "--resource-maps", maps, "-f", "json")
	require.NoError(t, err)
	assert.InDelta(t, 1, decodeJSON(t, stdout)["indexed"], 0)

	stdout, err = execute(t, cfg, "build", testutil.ScenarioPath, "-t", tagDir, "--resource-maps", maps,
		"--resource-policy", "none", "-o", out, "-f", "json")
	require.NoError(t, err)
	assert.InDelta(t, 0, decodeJSON(t, stdout)["indexed"], 0)
}

// writeBitmaps builds a bitmaps.map holding the fixture bitmap and returns
// its directory.
func writeBitmaps(t *testing.T, tagDir string) string {
	t.Helper()
	refs := []engine.TagRef{{Path: `ui\test\bitmap`, Class: tag.ClassBitmap}}
	data, err := cachefile.BuildResourceMapDirs(context.Background(), engine.IDCustom, resource.TypeBitmaps, []string{tagDir}, refs)
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, cachefile.WriteResourceMaps(dir, map[resource.Type][]byte{resource.TypeBitmaps: data}))
	return dir
}

func TestCompressDecompress(t *testing.T) {
	t.Parallel()

	tagDir, cfg := fixture(t, engine.IDCustom)
	plain := filepath.Join(t.TempDir(), "test.map")
	_, err := execute(t, cfg, "build", testutil.ScenarioPath, "-t", tagDir, "-o", plain)
	require.NoError(t, err)
	original, err := os.ReadFile(plain)
	require.NoError(t, err)

	compressed := filepath.Join(t.TempDir(), "compressed.map")
	stdout, err := execute(t, cfg, "compress", plain, "-o", compressed, "--level", "3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, compressed))

	stdout, err = execute(t, cfg, "info", compressed, "-f", "json")
	require.NoError(t, err)
	assert.Equal(t, "zstd", decodeJSON(t, stdout)["compression"])

	// In place.
	_, err = execute(t, cfg, "decompress", compressed)
	require.NoError(t, err)
	back, err := os.ReadFile(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestCompressFixedEngine(t *testing.T) {
	t.Parallel()

	tagDir, cfg := fixture(t, engine.IDDemo)
	out := filepath.Join(t.TempDir(), "demo.map")
	_, err := execute(t, cfg, "build", testutil.ScenarioPath, "-g", "demo", "-t", tagDir, "-o", out)
	require.NoError(t, err)

	_, err = execute(t, cfg, "compress", out)
	assert.ErrorIs(t, err, cachefile.ErrMapNeedsUncompressed)
}

func TestConfigInitShow(t *testing.T) {
	t.Parallel()

	cfg := filepath.Join(t.TempDir(), "cachefile", "config.yaml")
	stdout, err := execute(t, cfg, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, cfg)

	_, err = execute(t, cfg, "config", "init")
	require.Error(t, err, "refuses to overwrite")
	_, err = execute(t, cfg, "config", "init", "--force")
	require.NoError(t, err)

	stdout, err = execute(t, cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "engine: custom")
	assert.Contains(t, stdout, "resource_policy: matching")
}

func TestScenarioPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `levels\test\test`, scenarioPath("levels/test/test"))
	assert.Equal(t, `levels\test\test`, scenarioPath(`levels\test\test.scenario`))
}

func TestReadIndex(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.txt")
	require.NoError(t, os.WriteFile(path, []byte("globals\\globals.globals\n# skip\n  ui/test/strings.unicode_string_list  \n"), 0o644))
	refs, err := readIndex(path)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, engine.TagRef{Path: `globals\globals`, Class: tag.ClassGlobals}, refs[0])
	assert.Equal(t, engine.TagRef{Path: `ui\test\strings`, Class: tag.ClassUnicodeStringList}, refs[1])

	require.NoError(t, os.WriteFile(path, []byte("no_extension\n"), 0o644))
	_, err = readIndex(path)
	assert.ErrorContains(t, err, "index.txt:1")
}

func TestRegistryRoundTrip(t *testing.T) {
	t.Parallel()

	tagDir, cfg := fixture(t, engine.IDCustom)
	layout := t.TempDir()
	require.NoError(t, os.WriteFile(cfg, []byte("registry:\n  oci_layout: "+filepath.ToSlash(layout)+"\n"), 0o644))

	maps := writeBitmaps(t, tagDir)
	out := filepath.Join(t.TempDir(), "test.map")
	_, err := execute(t, cfg, "build", testutil.ScenarioPath, "-t", tagDir, "--resource-maps", maps, "-o", out, "--manifest")
	require.NoError(t, err)

	const ref = "example.com/maps/test:v1"
	stdout, err := execute(t, cfg, "publish", out, ref,
		"--resource-maps", maps, "--build-manifest", out+".manifest", "--annotation", "org.example.author=tester")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Pushed "+ref)
	digest := strings.TrimSpace(stdout[strings.Index(stdout, "Digest: ")+len("Digest: "):])

	stdout, err = execute(t, cfg, "inspect", ref, "-f", "json")
	require.NoError(t, err)
	info := decodeJSON(t, stdout)
	assert.Equal(t, digest, info["digest"])
	assert.Equal(t, []any{"bitmaps"}, info["resources"])
	assert.Equal(t, "tester", info["annotations"].(map[string]any)["org.example.author"])
	assert.Equal(t, "custom", info["manifest"].(map[string]any)["profile"])

	stdout, err = execute(t, cfg, "inspect", ref)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Resource maps:")

	_, err = execute(t, cfg, "tag", "example.com/maps/test:latest", digest)
	require.NoError(t, err)

	dir := t.TempDir()
	stdout, err = execute(t, cfg, "pull", "example.com/maps/test:latest", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "(custom,")

	original, err := os.ReadFile(out)
	require.NoError(t, err)
	pulled, err := os.ReadFile(filepath.Join(dir, "test.map"))
	require.NoError(t, err)
	assert.Equal(t, original, pulled)
	assert.FileExists(t, filepath.Join(dir, "bitmaps.map"))

	// The pulled directory is enough to load the indexed map.
	_, err = execute(t, cfg, "info", filepath.Join(dir, "test.map"), "--resource-maps", dir)
	require.NoError(t, err)

	other := t.TempDir()
	_, err = execute(t, cfg, "pull", ref, "-o", other, "--without-resources")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(other, "bitmaps.map"))

	_, err = execute(t, cfg, "pull", ref, "-o", t.TempDir(), "--max-layer-size", "16")
	require.Error(t, err)

	_, err = execute(t, cfg, "inspect", "example.com/maps/test:missing")
	assert.ErrorIs(t, err, cachefile.ErrNotFound)

	_, err = execute(t, cfg, "tag", "example.com/maps/test", digest)
	assert.ErrorIs(t, err, cachefile.ErrInvalidReference)
}

func TestLayerCache(t *testing.T) {
	t.Parallel()

	tagDir, cfg := fixture(t, engine.IDCustom)
	layout, cacheDir := t.TempDir(), t.TempDir()
	content := "registry:\n  oci_layout: " + filepath.ToSlash(layout) + "\n  cache_dir: " + filepath.ToSlash(cacheDir) + "\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))

	out := filepath.Join(t.TempDir(), "test.map")
	_, err := execute(t, cfg, "build", testutil.ScenarioPath, "-t", tagDir, "-o", out)
	require.NoError(t, err)
	_, err = execute(t, cfg, "publish", out, "example.com/maps/test:v1")
	require.NoError(t, err)
	_, err = execute(t, cfg, "pull", "example.com/maps/test:v1", "-o", t.TempDir())
	require.NoError(t, err)

	stdout, err := execute(t, cfg, "cache", "info", "-f", "json")
	require.NoError(t, err)
	info := decodeJSON(t, stdout)
	assert.Equal(t, cacheDir, info["dir"])
	assert.Equal(t, "unlimited", info["limit"])
	assert.NotEqual(t, "0B", info["size"])

	stdout, err = execute(t, cfg, "cache", "prune")
	require.NoError(t, err)
	assert.Contains(t, stdout, "0B remaining")

	_, err = execute(t, filepath.Join(t.TempDir(), "none.yaml"), "cache", "info")
	assert.ErrorContains(t, err, "registry.cache_dir")
}
