package oras

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/errdef"
)

// Layout stores artifacts in an OCI image layout directory instead of a
// remote registry. Repository references are ignored; only the tag or digest
// part of a reference is used.
type Layout struct {
	store *oci.Store
}

// NewLayout opens or creates the image layout rooted at dir.
func NewLayout(dir string) (*Layout, error) {
	store, err := oci.New(dir)
	if err != nil {
		return nil, fmt.Errorf("open oci layout %s: %w", dir, err)
	}
	return &Layout{store: store}, nil
}

// PushBlob stores exactly desc.Size bytes read from r.
func (l *Layout) PushBlob(ctx context.Context, _ string, desc *ocispec.Descriptor, r io.Reader) error {
	if err := validateDescriptor(desc); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w: content reader is nil", ErrInvalidDescriptor)
	}
	if exists, err := l.store.Exists(ctx, *desc); err == nil && exists {
		return nil
	}
	if err := l.store.Push(ctx, *desc, r); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return mapError(err)
	}
	return nil
}

// FetchBlob opens a blob. The caller closes the reader.
func (l *Layout) FetchBlob(ctx context.Context, _ string, desc *ocispec.Descriptor) (io.ReadCloser, error) {
	if err := validateDescriptor(desc); err != nil {
		return nil, err
	}
	rc, err := l.store.Fetch(ctx, *desc)
	if err != nil {
		return nil, mapError(err)
	}
	return rc, nil
}

// PushManifest stores an image manifest and tags it.
func (l *Layout) PushManifest(ctx context.Context, _, tag string, manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	if manifest == nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: manifest is nil", ErrManifestInvalid)
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("marshal manifest: %w", err)
	}
	desc := ocispec.Descriptor{
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: manifest.ArtifactType,
		Digest:       digest.FromBytes(manifestJSON),
		Size:         int64(len(manifestJSON)),
	}
	if err := l.store.Push(ctx, desc, bytes.NewReader(manifestJSON)); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return ocispec.Descriptor{}, mapError(err)
	}
	if err := l.store.Tag(ctx, desc, tag); err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	return desc, nil
}

// FetchManifest reads and decodes the image manifest for expected.
func (l *Layout) FetchManifest(ctx context.Context, _ string, expected *ocispec.Descriptor) (ocispec.Manifest, []byte, error) {
	if err := validateDescriptor(expected); err != nil {
		return ocispec.Manifest{}, nil, err
	}
	if expected.MediaType != "" && expected.MediaType != ocispec.MediaTypeImageManifest {
		return ocispec.Manifest{}, nil, fmt.Errorf("%w: unsupported media type %s", ErrManifestInvalid, expected.MediaType)
	}
	raw, err := content.FetchAll(ctx, l.store, *expected)
	if err != nil {
		return ocispec.Manifest{}, nil, mapError(err)
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return ocispec.Manifest{}, nil, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}
	return manifest, raw, nil
}

// Resolve resolves a tag or manifest digest to a descriptor.
func (l *Layout) Resolve(ctx context.Context, _, ref string) (ocispec.Descriptor, error) {
	desc, err := l.store.Resolve(ctx, ref)
	if err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	if desc.MediaType == ocispec.MediaTypeImageManifest {
		return desc, nil
	}

	// Untagged digests resolve as plain blobs; recover the media type from
	// the content.
	raw, err := content.FetchAll(ctx, l.store, desc)
	if err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	var probe struct {
		MediaType    string `json:"mediaType"`
		ArtifactType string `json:"artifactType"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && probe.MediaType != "" {
		desc.MediaType = probe.MediaType
		desc.ArtifactType = probe.ArtifactType
	}
	return desc, nil
}

// Tag points tag at desc.
func (l *Layout) Tag(ctx context.Context, _ string, desc *ocispec.Descriptor, tag string) error {
	if err := validateDescriptor(desc); err != nil {
		return err
	}
	return mapError(l.store.Tag(ctx, *desc, tag))
}
