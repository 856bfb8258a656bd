package registry

import (
	"context"
	"slices"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/core/resource"
)

// Info describes a published cache file without downloading it.
type Info struct {
	Descriptor  ocispec.Descriptor
	Created     time.Time
	Annotations map[string]string
	Profile     *engine.Profile
	Manifest    *manifest.Manifest
	CacheSize   int64
	Resources   []resource.Type
}

// Inspect fetches the artifact manifest and build manifest at ref.
func (c *Client) Inspect(ctx context.Context, ref string) (*Info, error) {
	desc, l, err := c.fetchManifest(ctx, ref)
	if err != nil {
		return nil, err
	}
	p, err := profileOf(l.annotations)
	if err != nil {
		return nil, err
	}
	man, err := c.fetchBuildManifest(ctx, ref, &l.manifest, defaultMaxLayerSize)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Descriptor:  desc,
		Created:     l.created,
		Annotations: l.annotations,
		Profile:     p,
		Manifest:    man,
		CacheSize:   l.cache.Size,
	}
	for t := range l.resources {
		info.Resources = append(info.Resources, t)
	}
	slices.Sort(info.Resources)
	return info, nil
}
