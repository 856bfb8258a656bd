//go:build integration

package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/cachefile"
	"github.com/meigma/cachefile/cmd/cachefile/commands"
	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/registry"
)

// --- Push Operations ---

func TestPush_Basic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	client := newTestClient(t)
	f := buildFixture(t)

	ref := testRef(addr, "push-basic")
	desc, err := client.Push(ctx, ref, f.artifact())
	require.NoError(t, err, "Push")
	assert.NotEmpty(t, desc.Digest, "manifest digest")

	info, err := client.Inspect(ctx, ref)
	require.NoError(t, err, "Inspect")
	assert.Equal(t, desc.Digest, info.Descriptor.Digest)
	assert.Equal(t, engine.IDCustom, info.Profile.ID)
	assert.Equal(t, int64(len(f.Result.Data)), info.CacheSize)
	assert.Equal(t, []resource.Type{resource.TypeBitmaps}, info.Resources)
	assert.Equal(t, f.Manifest.Digest, info.Manifest.Digest)
}

func TestPush_AdditionalTags(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	client := newTestClient(t)
	f := buildFixture(t)

	ref := testRefWithTag(addr, "push-tags", "v1")
	desc, err := client.Push(ctx, ref, f.artifact(), registry.WithTags("v1.0", "stable"))
	require.NoError(t, err, "Push")

	for _, tag := range []string{"v1", "v1.0", "stable"} {
		info, err := client.Inspect(ctx, testRefWithTag(addr, "push-tags", tag))
		require.NoError(t, err, "Inspect %s", tag)
		assert.Equal(t, desc.Digest, info.Descriptor.Digest, tag)
	}
}

func TestPush_Annotations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	client := newTestClient(t)
	f := buildFixture(t)

	ref := testRef(addr, "push-annotations")
	_, err := client.Push(ctx, ref, f.artifact(), registry.WithAnnotations(map[string]string{
		"org.example.author": "integration",
	}))
	require.NoError(t, err, "Push")

	info, err := client.Inspect(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "integration", info.Annotations["org.example.author"])
	assert.False(t, info.Created.IsZero(), "created annotation")
}

// --- Pull Operations ---

func TestPull_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	client := newTestClient(t)
	f := buildFixture(t)

	ref := testRef(addr, "pull-roundtrip")
	_, err := client.Push(ctx, ref, f.artifact())
	require.NoError(t, err, "Push")

	art, err := client.Pull(ctx, ref)
	require.NoError(t, err, "Pull")
	assert.Equal(t, f.Result.Data, art.Cache)
	assert.Equal(t, f.Resources, art.Resources)
	assert.Equal(t, f.Manifest.Digest, art.Manifest.Digest)

	// The pulled artifact is self-contained.
	dir := t.TempDir()
	require.NoError(t, cachefile.WriteResourceMaps(dir, art.Resources))
	rm, err := cachefile.ReadResourceMaps(dir)
	require.NoError(t, err)
	m, err := cachefile.LoadFile(writeFile(t, art.Cache), rm.LoadOptions()...)
	require.NoError(t, err, "load pulled cache file")
	assert.Equal(t, 1, m.Indexed())
}

func TestPull_ByDigest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	client := newTestClient(t)
	f := buildFixture(t)

	ref := testRef(addr, "pull-digest")
	desc, err := client.Push(ctx, ref, f.artifact())
	require.NoError(t, err)

	byDigest := strings.TrimSuffix(ref, ":latest") + "@" + desc.Digest.String()
	art, err := client.Pull(ctx, byDigest, registry.WithoutResources())
	require.NoError(t, err, "Pull by digest")
	assert.Equal(t, f.Result.Data, art.Cache)
	assert.Empty(t, art.Resources)
}

func TestTag_Existing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	client := newTestClient(t)
	f := buildFixture(t)

	desc, err := client.Push(ctx, testRefWithTag(addr, "tag-existing", "rc1"), f.artifact())
	require.NoError(t, err)

	release := testRefWithTag(addr, "tag-existing", "release")
	require.NoError(t, client.Tag(ctx, release, desc.Digest.String()), "Tag")

	info, err := client.Inspect(ctx, release)
	require.NoError(t, err)
	assert.Equal(t, desc.Digest, info.Descriptor.Digest)
}

// --- Command Line ---

func TestCLI_PublishPull(t *testing.T) {
	t.Parallel()

	addr := getRegistry(t)
	f := buildFixture(t)
	cfg := writeConfig(t)

	mapsDir := t.TempDir()
	require.NoError(t, cachefile.WriteResourceMaps(mapsDir, f.Resources))
	file := writeFile(t, f.Result.Data)

	ref := testRef(addr, "cli-publish")
	out, err := run(t, cfg, "publish", file, ref, "--resource-maps", mapsDir)
	require.NoError(t, err, "publish")
	assert.Contains(t, out, "Digest: sha256:")

	out, err = run(t, cfg, "inspect", ref)
	require.NoError(t, err, "inspect")
	assert.Contains(t, out, "bitmaps")

	dir := t.TempDir()
	_, err = run(t, cfg, "pull", ref, "-o", dir)
	require.NoError(t, err, "pull")
	got, err := os.ReadFile(filepath.Join(dir, filepath.Base(file)))
	require.NoError(t, err)
	assert.Equal(t, f.Result.Data, got)
	assert.FileExists(t, filepath.Join(dir, cachefile.ResourceFile(resource.TypeBitmaps)))
}

func writeFile(tb testing.TB, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "test.map")
	require.NoError(tb, os.WriteFile(path, data, 0o644))
	return path
}

func run(tb testing.TB, cfg string, args ...string) (string, error) {
	tb.Helper()
	cmd := commands.NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
