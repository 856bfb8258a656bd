package registry

import (
	"context"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPull(t *testing.T) {
	t.Parallel()

	oci := newMemOCI()
	c := New(WithOCIClient(oci))
	a := testArtifact(t)

	desc, err := c.Push(context.Background(), testRef, a,
		WithTags("latest"),
		WithAnnotations(map[string]string{"org.example.level": "test"}),
	)
	require.NoError(t, err)
	assert.Equal(t, ocispec.MediaTypeImageManifest, desc.MediaType)

	for _, ref := range []string{
		testRef,
		"registry.example.com/maps/test:latest",
		"registry.example.com/maps/test@" + desc.Digest.String(),
	} {
		got, err := c.Pull(context.Background(), ref)
		require.NoError(t, err, ref)
		assert.Equal(t, a.Cache, got.Cache)
		assert.Equal(t, a.Manifest, got.Manifest)
		assert.Equal(t, a.Resources, got.Resources)
		assert.Equal(t, "test.map", got.Name)
	}
}

func TestPushManifestLayout(t *testing.T) {
	t.Parallel()

	oci := newMemOCI()
	c := New(WithOCIClient(oci))
	a := testArtifact(t)
	a.Name = "custom.map"

	desc, err := c.Push(context.Background(), testRef, a, WithAnnotations(map[string]string{
		ocispec.AnnotationCreated: "2026-01-02T03:04:05Z",
	}))
	require.NoError(t, err)

	m, _, err := oci.FetchManifest(context.Background(), testRef, &desc)
	require.NoError(t, err)
	assert.Equal(t, ArtifactType, m.ArtifactType)
	assert.Equal(t, ocispec.MediaTypeEmptyJSON, m.Config.MediaType)
	require.Len(t, m.Layers, 3)
	assert.Equal(t, MediaTypeManifest, m.Layers[0].MediaType)
	assert.Equal(t, MediaTypeCache, m.Layers[1].MediaType)
	assert.Equal(t, "custom.map", m.Layers[1].Annotations[ocispec.AnnotationTitle])
	assert.Equal(t, MediaTypeResourceMap, m.Layers[2].MediaType)
	assert.Equal(t, "bitmaps", m.Layers[2].Annotations[AnnotationResourceType])

	assert.Equal(t, "custom", m.Annotations[AnnotationEngine])
	assert.Equal(t, "multiplayer", m.Annotations[AnnotationScenarioType])
	assert.Equal(t, "2026-01-02T03:04:05Z", m.Annotations[ocispec.AnnotationCreated])
}

func TestPushErrors(t *testing.T) {
	t.Parallel()

	a := testArtifact(t)
	changed := *a
	changed.Cache = append([]byte(nil), a.Cache...)
	changed.Cache[len(changed.Cache)-1] ^= 0xFF
	noManifest := *a
	noManifest.Manifest = nil

	tests := []struct {
		name    string
		ref     string
		a       *Artifact
		wantErr error
	}{
		{"no tag", "registry.example.com/maps/test", a, ErrInvalidReference},
		{"digest ref", "registry.example.com/maps/test@sha256:0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", a, ErrInvalidReference},
		{"malformed ref", "::", a, ErrInvalidReference},
		{"no manifest", testRef, &noManifest, ErrMissingLayer},
		{"cache does not match manifest", testRef, &changed, ErrDigestMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			oci := newMemOCI()
			_, err := New(WithOCIClient(oci)).Push(context.Background(), tt.ref, tt.a)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, oci.blobs, "nothing uploaded")
		})
	}
}

func TestPushWithoutResources(t *testing.T) {
	t.Parallel()

	c := New(WithOCIClient(newMemOCI()))
	a := testArtifact(t)
	a.Resources = nil
	_, err := c.Push(context.Background(), testRef, a)
	require.NoError(t, err)

	got, err := c.Pull(context.Background(), testRef)
	require.NoError(t, err)
	assert.Nil(t, got.Resources)

	info, err := c.Inspect(context.Background(), testRef)
	require.NoError(t, err)
	assert.Empty(t, info.Resources)
}
