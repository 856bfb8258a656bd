package registry

import (
	"context"
	"fmt"
	"io"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/core/resource"
)

// Pull downloads the artifact at ref. Every layer is checked against its
// digest and the cache file against its build manifest.
func (c *Client) Pull(ctx context.Context, ref string, opts ...PullOption) (*Artifact, error) {
	cfg := pullConfig{maxLayerSize: defaultMaxLayerSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	c.log().Info("pulling cache file", "ref", ref)

	_, l, err := c.fetchManifest(ctx, ref)
	if err != nil {
		return nil, err
	}

	man, err := c.fetchBuildManifest(ctx, ref, &l.manifest, cfg.maxLayerSize)
	if err != nil {
		return nil, err
	}
	cache, err := c.fetchLayer(ctx, ref, &l.cache, cfg.maxLayerSize)
	if err != nil {
		return nil, err
	}
	if err := man.Verify(cache); err != nil {
		return nil, err
	}

	a := &Artifact{
		Name:     l.cache.Annotations[ocispec.AnnotationTitle],
		Cache:    cache,
		Manifest: man,
	}
	if !cfg.skipResources && len(l.resources) > 0 {
		a.Resources = make(map[resource.Type][]byte, len(l.resources))
		for t, desc := range l.resources {
			data, err := c.fetchLayer(ctx, ref, &desc, cfg.maxLayerSize)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", t, err)
			}
			a.Resources[t] = data
		}
	}
	c.log().Info("pulled cache file", "ref", ref, "name", man.Name, "resources", len(a.Resources))
	return a, nil
}

// fetchManifest resolves ref and parses the artifact manifest.
func (c *Client) fetchManifest(ctx context.Context, ref string) (ocispec.Descriptor, *layers, error) {
	reference, err := parseRef(ref)
	if err != nil {
		return ocispec.Descriptor{}, nil, err
	}
	if reference == "" {
		return ocispec.Descriptor{}, nil, fmt.Errorf("%w: reference must include a tag or digest", ErrInvalidReference)
	}

	desc, err := c.oci.Resolve(ctx, ref, reference)
	if err != nil {
		return ocispec.Descriptor{}, nil, fmt.Errorf("resolve: %w", mapOCIError(err))
	}
	m, raw, err := c.oci.FetchManifest(ctx, ref, &desc)
	if err != nil {
		return ocispec.Descriptor{}, nil, fmt.Errorf("fetch manifest: %w", mapOCIError(err))
	}
	if raw != nil {
		if err := verifyDigest(&desc, raw); err != nil {
			return ocispec.Descriptor{}, nil, fmt.Errorf("manifest: %w", err)
		}
	}
	l, err := parseArtifactManifest(&m)
	if err != nil {
		return ocispec.Descriptor{}, nil, err
	}
	l.annotations = m.Annotations
	return desc, l, nil
}

func (c *Client) fetchBuildManifest(ctx context.Context, ref string, desc *ocispec.Descriptor, limit int64) (*manifest.Manifest, error) {
	data, err := c.fetchLayer(ctx, ref, desc, limit)
	if err != nil {
		return nil, err
	}
	return manifest.Parse(data)
}

// fetchLayer downloads one layer and checks its size and digest.
func (c *Client) fetchLayer(ctx context.Context, ref string, desc *ocispec.Descriptor, limit int64) ([]byte, error) {
	if limit > 0 && desc.Size > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, desc.MediaType, desc.Size, limit)
	}
	if c.cache != nil {
		if data, ok := c.cache.Get(desc.Digest); ok && int64(len(data)) == desc.Size {
			c.log().Debug("layer cache hit", "media_type", desc.MediaType, "digest", desc.Digest)
			return data, nil
		}
	}
	rc, err := c.oci.FetchBlob(ctx, ref, desc)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", desc.MediaType, mapOCIError(err))
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, desc.Size+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", desc.MediaType, err)
	}
	if err := verifyDigest(desc, data); err != nil {
		return nil, fmt.Errorf("%s: %w", desc.MediaType, err)
	}
	c.log().Debug("fetched layer", "media_type", desc.MediaType, "size", len(data))
	if c.cache != nil {
		if err := c.cache.Put(desc.Digest, data); err != nil {
			c.log().Warn("caching layer failed", "digest", desc.Digest, "error", err)
		}
	}
	return data, nil
}

func verifyDigest(desc *ocispec.Descriptor, data []byte) error {
	if int64(len(data)) != desc.Size {
		return fmt.Errorf("%w: size %d, expected %d", ErrDigestMismatch, len(data), desc.Size)
	}
	if err := desc.Digest.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if computed := desc.Digest.Algorithm().FromBytes(data); computed != desc.Digest {
		return fmt.Errorf("%w: expected %s, got %s", ErrDigestMismatch, desc.Digest, computed)
	}
	return nil
}
