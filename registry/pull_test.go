package registry

import (
	"context"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/mapfile"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/registry/cache"
)

func pushed(t *testing.T) (*Client, *memOCI, *Artifact) {
	t.Helper()
	oci := newMemOCI()
	c := New(WithOCIClient(oci))
	a := testArtifact(t)
	_, err := c.Push(context.Background(), testRef, a)
	require.NoError(t, err)
	return c, oci, a
}

func TestPullWithoutResources(t *testing.T) {
	t.Parallel()

	c, _, a := pushed(t)
	got, err := c.Pull(context.Background(), testRef, WithoutResources())
	require.NoError(t, err)
	assert.Equal(t, a.Cache, got.Cache)
	assert.Nil(t, got.Resources)
}

func TestPullCorruptLayer(t *testing.T) {
	t.Parallel()

	for _, mediaType := range []string{MediaTypeCache, MediaTypeManifest, MediaTypeResourceMap} {
		t.Run(mediaType, func(t *testing.T) {
			t.Parallel()
			c, oci, _ := pushed(t)
			oci.corrupt(t, "v1", mediaType)
			_, err := c.Pull(context.Background(), testRef)
			assert.ErrorIs(t, err, ErrDigestMismatch)
		})
	}
}

func TestPullLayerCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	oci := newMemOCI()
	lc, err := cache.New(t.TempDir())
	require.NoError(t, err)
	c := New(WithOCIClient(oci), WithLayerCache(lc))
	a := testArtifact(t)
	_, err = c.Push(ctx, testRef, a)
	require.NoError(t, err)

	_, err = c.Pull(ctx, testRef)
	require.NoError(t, err)
	assert.Positive(t, lc.SizeBytes())

	// Layers now come from the cache; only the manifest is fetched.
	oci.mu.Lock()
	clear(oci.blobs)
	oci.mu.Unlock()
	got, err := c.Pull(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, a.Cache, got.Cache)
	assert.Equal(t, a.Resources, got.Resources)
}

func TestPullTooLarge(t *testing.T) {
	t.Parallel()

	c, _, _ := pushed(t)
	_, err := c.Pull(context.Background(), testRef, WithMaxLayerSize(16))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestPullNotFound(t *testing.T) {
	t.Parallel()

	c, _, _ := pushed(t)
	_, err := c.Pull(context.Background(), "registry.example.com/maps/test:v2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Pull(context.Background(), "registry.example.com/maps/test")
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestInspect(t *testing.T) {
	t.Parallel()

	c, _, a := pushed(t)
	info, err := c.Inspect(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, engine.IDCustom, info.Profile.ID)
	assert.Equal(t, a.Manifest, info.Manifest)
	assert.Equal(t, int64(len(a.Cache)), info.CacheSize)
	assert.Equal(t, []resource.Type{resource.TypeBitmaps}, info.Resources)
	assert.False(t, info.Created.IsZero())
	assert.Equal(t, "test", info.Annotations[ocispec.AnnotationTitle])
}

func TestTag(t *testing.T) {
	t.Parallel()

	c, oci, _ := pushed(t)
	desc := oci.tags["v1"]
	require.NoError(t, c.Tag(context.Background(), "registry.example.com/maps/test:stable", desc.Digest.String()))
	assert.Equal(t, desc, oci.tags["stable"])

	err := c.Tag(context.Background(), "registry.example.com/maps/test", desc.Digest.String())
	assert.ErrorIs(t, err, ErrInvalidReference)
	err = c.Tag(context.Background(), "registry.example.com/maps/test:x", digest.FromString("missing").String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseArtifactManifest(t *testing.T) {
	t.Parallel()

	layer := func(mediaType string, annotations map[string]string) ocispec.Descriptor {
		return ocispec.Descriptor{MediaType: mediaType, Digest: digest.FromString(mediaType), Size: 1, Annotations: annotations}
	}
	bitmaps := map[string]string{AnnotationResourceType: "bitmaps"}
	valid := func() ocispec.Manifest {
		return ocispec.Manifest{
			MediaType:    ocispec.MediaTypeImageManifest,
			ArtifactType: ArtifactType,
			Layers: []ocispec.Descriptor{
				layer(MediaTypeManifest, nil),
				layer(MediaTypeCache, nil),
				layer(MediaTypeResourceMap, bitmaps),
			},
		}
	}

	tests := []struct {
		name    string
		modify  func(*ocispec.Manifest)
		wantErr error
	}{
		{"valid", func(*ocispec.Manifest) {}, nil},
		{"media type", func(m *ocispec.Manifest) { m.MediaType = ocispec.MediaTypeImageIndex }, ErrInvalidArtifact},
		{"artifact type", func(m *ocispec.Manifest) { m.ArtifactType = "application/vnd.other" }, ErrInvalidArtifact},
		{"missing cache", func(m *ocispec.Manifest) { m.Layers = m.Layers[:1] }, ErrMissingLayer},
		{"missing manifest", func(m *ocispec.Manifest) { m.Layers = m.Layers[1:] }, ErrMissingLayer},
		{"duplicate cache", func(m *ocispec.Manifest) { m.Layers = append(m.Layers, layer(MediaTypeCache, nil)) }, ErrInvalidArtifact},
		{"duplicate resource", func(m *ocispec.Manifest) {
			m.Layers = append(m.Layers, layer(MediaTypeResourceMap, bitmaps))
		}, ErrInvalidArtifact},
		{"resource type", func(m *ocispec.Manifest) {
			m.Layers[2].Annotations = map[string]string{AnnotationResourceType: "music"}
		}, ErrInvalidArtifact},
		{"unknown layer", func(m *ocispec.Manifest) { m.Layers = append(m.Layers, layer("text/plain", nil)) }, ErrInvalidArtifact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := valid()
			tt.modify(&m)
			l, err := parseArtifactManifest(&m)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, l.resources, resource.TypeBitmaps)
		})
	}
}

func TestInspectUnknownEngine(t *testing.T) {
	t.Parallel()

	c, oci, a := pushed(t)
	man := *a.Manifest
	_, err := c.Push(context.Background(), "registry.example.com/maps/test:odd", &Artifact{Cache: a.Cache, Manifest: &man},
		WithAnnotations(map[string]string{AnnotationEngine: "dreamcast"}))
	require.NoError(t, err)
	require.Contains(t, oci.tags, "odd")

	_, err = c.Inspect(context.Background(), "registry.example.com/maps/test:odd")
	assert.ErrorIs(t, err, mapfile.ErrUnsupportedEngine)
}
