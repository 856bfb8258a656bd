//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/cachefile"
	"github.com/meigma/cachefile/core/build"
	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/core/tag"
	"github.com/meigma/cachefile/core/testutil"
	"github.com/meigma/cachefile/registry"
	"github.com/meigma/cachefile/registry/oras"
)

// --- Registry Container Setup ---

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the shared registry address, starting the container if needed.
// The container is shared across all tests.
func getRegistry(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	registryOnce.Do(func() {
		registryAddr, registryErr = startRegistryContainer(context.Background())
	})
	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}
	return registryAddr
}

// startRegistryContainer starts a registry:2 container and returns the host:port address.
func startRegistryContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "registry:2",
		ExposedPorts: []string{"5000/tcp"},
		WaitingFor:   wait.ForHTTP("/v2/").WithPort("5000/tcp").WithStatusCodeMatcher(isOKStatus),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start registry container: %w", err)
	}

	// Cleanup is handled by the testcontainers Reaper.
	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve registry host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve registry port: %w", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

func isOKStatus(status int) bool {
	return status >= 200 && status < 300
}

// --- Test Client Factory ---

// newTestClient creates a client configured for the local test registry.
func newTestClient(tb testing.TB) *registry.Client {
	tb.Helper()
	return registry.New(registry.WithOrasOptions(
		oras.WithPlainHTTP(true),
		oras.WithAnonymous(),
	))
}

// --- Test Reference Helpers ---

// testRef generates a unique reference for a test to avoid collisions.
func testRef(registryAddr, testName string) string {
	return testRefWithTag(registryAddr, testName, "latest")
}

// testRefWithTag generates a reference with a specific tag.
func testRefWithTag(registryAddr, testName, tag string) string {
	return fmt.Sprintf("%s/test/%s:%s", registryAddr, testName, tag)
}

// --- Test Data Helpers ---

// fixture is a built cache file and the resource maps it was indexed against.
type fixture struct {
	TagDir    string
	Result    *cachefile.Result
	Manifest  *cachefile.Manifest
	Resources map[resource.Type][]byte
}

// buildFixture writes a multiplayer tag tree for the custom edition profile
// and builds it against a bitmaps resource map.
func buildFixture(tb testing.TB) *fixture {
	tb.Helper()
	ctx := context.Background()

	p, err := engine.Lookup(engine.IDCustom)
	require.NoError(tb, err)
	dir := testutil.NewMap(tb, p, engine.ScenarioMultiplayer).WriteDir(tb.TempDir())

	refs := []engine.TagRef{{Path: `ui\test\bitmap`, Class: tag.ClassBitmap}}
	bitmaps, err := cachefile.BuildResourceMapDirs(ctx, engine.IDCustom, resource.TypeBitmaps, []string{dir}, refs)
	require.NoError(tb, err, "build bitmaps.map")

	mapsDir := tb.TempDir()
	raw := map[resource.Type][]byte{resource.TypeBitmaps: bitmaps}
	require.NoError(tb, cachefile.WriteResourceMaps(mapsDir, raw))
	rm, err := cachefile.ReadResourceMaps(mapsDir)
	require.NoError(tb, err)

	res, err := cachefile.BuildDirs(ctx, engine.IDCustom, testutil.ScenarioPath, []string{dir}, rm.BuildOption(), build.WithCompression(true))
	require.NoError(tb, err, "build cache file")
	require.Equal(tb, 1, res.Indexed)

	man, err := cachefile.ManifestOf(res, rm.LoadOptions()...)
	require.NoError(tb, err, "describe cache file")

	return &fixture{TagDir: dir, Result: res, Manifest: man, Resources: raw}
}

// artifact packages the fixture for Push.
func (f *fixture) artifact() *registry.Artifact {
	return &registry.Artifact{
		Cache:     f.Result.Data,
		Manifest:  f.Manifest,
		Resources: f.Resources,
	}
}

// writeConfig writes a CLI configuration pointing at the local registry.
func writeConfig(tb testing.TB) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "config.yaml")
	require.NoError(tb, os.WriteFile(path, []byte("registry:\n  plain_http: true\n  docker_config: false\n"), 0o644))
	return path
}
