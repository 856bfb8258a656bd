package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/require"

	"github.com/meigma/cachefile/core/build"
	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/mapfile"
	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/core/testutil"
	"github.com/meigma/cachefile/registry/oras"
)

const testRef = "registry.example.com/maps/test:v1"

// memOCI is an in-memory OCIClient holding a single repository.
type memOCI struct {
	mu        sync.Mutex
	blobs     map[digest.Digest][]byte
	manifests map[digest.Digest][]byte
	tags      map[string]ocispec.Descriptor
}

func newMemOCI() *memOCI {
	return &memOCI{
		blobs:     make(map[digest.Digest][]byte),
		manifests: make(map[digest.Digest][]byte),
		tags:      make(map[string]ocispec.Descriptor),
	}
}

func (m *memOCI) PushBlob(_ context.Context, _ string, desc *ocispec.Descriptor, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if digest.FromBytes(data) != desc.Digest || int64(len(data)) != desc.Size {
		return fmt.Errorf("blob does not match descriptor %s", desc.Digest)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[desc.Digest] = data
	return nil
}

func (m *memOCI) FetchBlob(_ context.Context, _ string, desc *ocispec.Descriptor) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[desc.Digest]
	if !ok {
		return nil, fmt.Errorf("%w: blob %s", oras.ErrNotFound, desc.Digest)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memOCI) PushManifest(_ context.Context, _, tag string, manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	raw, err := json.Marshal(manifest)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromBytes(raw),
		Size:      int64(len(raw)),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[desc.Digest] = raw
	m.tags[tag] = desc
	return desc, nil
}

func (m *memOCI) FetchManifest(_ context.Context, _ string, expected *ocispec.Descriptor) (ocispec.Manifest, []byte, error) {
	m.mu.Lock()
	raw, ok := m.manifests[expected.Digest]
	m.mu.Unlock()
	if !ok {
		return ocispec.Manifest{}, nil, fmt.Errorf("%w: manifest %s", oras.ErrNotFound, expected.Digest)
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return ocispec.Manifest{}, nil, err
	}
	return manifest, raw, nil
}

func (m *memOCI) Resolve(_ context.Context, _, ref string) (ocispec.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, err := digest.Parse(ref); err == nil {
		raw, ok := m.manifests[d]
		if !ok {
			return ocispec.Descriptor{}, fmt.Errorf("%w: %s", oras.ErrNotFound, ref)
		}
		return ocispec.Descriptor{MediaType: ocispec.MediaTypeImageManifest, Digest: d, Size: int64(len(raw))}, nil
	}
	desc, ok := m.tags[ref]
	if !ok {
		return ocispec.Descriptor{}, fmt.Errorf("%w: tag %s", oras.ErrNotFound, ref)
	}
	return desc, nil
}

func (m *memOCI) Tag(_ context.Context, _ string, desc *ocispec.Descriptor, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.manifests[desc.Digest]; !ok {
		return fmt.Errorf("%w: manifest %s", oras.ErrNotFound, desc.Digest)
	}
	m.tags[tag] = *desc
	return nil
}

// corrupt flips the last byte of every stored blob with the given media
// type found in the manifest at tag.
func (m *memOCI) corrupt(t *testing.T, tag, mediaType string) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var manifest ocispec.Manifest
	require.NoError(t, json.Unmarshal(m.manifests[m.tags[tag].Digest], &manifest))
	for _, l := range manifest.Layers {
		if l.MediaType == mediaType {
			data := append([]byte(nil), m.blobs[l.Digest]...)
			data[len(data)-1] ^= 0xFF
			m.blobs[l.Digest] = data
		}
	}
}

// testArtifact builds a small cache file with a bitmaps resource map.
func testArtifact(t *testing.T) *Artifact {
	t.Helper()
	p, err := engine.Lookup(engine.IDCustom)
	require.NoError(t, err)
	s := testutil.NewMap(t, p, engine.ScenarioMultiplayer)
	res, err := build.Build(context.Background(), p, s.SearchPath(), testutil.ScenarioPath)
	require.NoError(t, err)
	m, err := mapfile.Load(res.Data)
	require.NoError(t, err)

	bitmaps, err := resource.Encode(resource.TypeBitmaps, []resource.Resource{
		{Path: `ui\test\other`, Data: []byte("pixels")},
	})
	require.NoError(t, err)
	return &Artifact{
		Cache:     res.Data,
		Manifest:  manifest.New(m, res.Data),
		Resources: map[resource.Type][]byte{resource.TypeBitmaps: bitmaps},
	}
}
