package registry

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/errgroup"
)

// maxParallelUploads bounds concurrent layer uploads.
const maxParallelUploads = 4

type upload struct {
	desc ocispec.Descriptor
	data []byte
}

// Push publishes a as one artifact. The ref must carry a tag. The cache file
// is checked against its build manifest before anything is uploaded.
func (c *Client) Push(ctx context.Context, ref string, a *Artifact, opts ...PushOption) (ocispec.Descriptor, error) {
	cfg := pushConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	tag, err := parseRef(ref)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if tag == "" || isDigest(tag) {
		return ocispec.Descriptor{}, fmt.Errorf("%w: reference must include a tag", ErrInvalidReference)
	}
	if a.Manifest == nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: build manifest", ErrMissingLayer)
	}
	if err := a.Manifest.Verify(a.Cache); err != nil {
		return ocispec.Descriptor{}, err
	}
	c.log().Info("pushing cache file", "ref", ref, "name", a.Manifest.Name, "size", len(a.Cache))

	config := []byte("{}")
	configUpload := blobUpload(ocispec.MediaTypeEmptyJSON, config, nil)
	uploads := []upload{
		configUpload,
		blobUpload(MediaTypeManifest, a.Manifest.Marshal(), map[string]string{
			ocispec.AnnotationTitle: a.fileName() + ".manifest",
		}),
		blobUpload(MediaTypeCache, a.Cache, map[string]string{
			ocispec.AnnotationTitle: a.fileName(),
		}),
	}
	for _, t := range a.resourceTypes() {
		uploads = append(uploads, blobUpload(MediaTypeResourceMap, a.Resources[t], map[string]string{
			ocispec.AnnotationTitle: t.String() + ".map",
			AnnotationResourceType:  t.String(),
		}))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for _, u := range uploads {
		g.Go(func() error {
			if err := c.oci.PushBlob(gctx, ref, &u.desc, bytes.NewReader(u.data)); err != nil {
				return fmt.Errorf("push %s: %w", u.desc.MediaType, mapOCIError(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ocispec.Descriptor{}, err
	}

	layers := make([]ocispec.Descriptor, 0, len(uploads)-1)
	for _, u := range uploads[1:] {
		layers = append(layers, u.desc)
	}
	manifest := buildManifest(&configUpload.desc, layers, a, cfg.annotations)
	desc, err := c.oci.PushManifest(ctx, ref, tag, &manifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push manifest: %w", mapOCIError(err))
	}

	for _, extra := range cfg.tags {
		if err := c.oci.Tag(ctx, ref, &desc, extra); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("tag %q: %w", extra, mapOCIError(err))
		}
	}
	c.log().Info("pushed cache file", "ref", ref, "digest", desc.Digest.String())
	return desc, nil
}

func blobUpload(mediaType string, data []byte, annotations map[string]string) upload {
	return upload{
		desc: ocispec.Descriptor{
			MediaType:   mediaType,
			Digest:      digest.FromBytes(data),
			Size:        int64(len(data)),
			Annotations: annotations,
		},
		data: data,
	}
}

// buildManifest creates the OCI manifest for a cache file artifact.
func buildManifest(config *ocispec.Descriptor, layers []ocispec.Descriptor, a *Artifact, custom map[string]string) ocispec.Manifest {
	annotations := manifestAnnotations(a.Manifest)
	maps.Copy(annotations, custom)
	if _, ok := annotations[ocispec.AnnotationCreated]; !ok {
		annotations[ocispec.AnnotationCreated] = time.Now().UTC().Format(time.RFC3339)
	}

	return ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactType,
		Config:       *config,
		Layers:       layers,
		Annotations:  annotations,
	}
}
