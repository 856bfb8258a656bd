package registry

import (
	"fmt"
	"slices"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/manifest"
	"github.com/meigma/cachefile/core/resource"
)

// Artifact is a cache file with the files published next to it.
type Artifact struct {
	// Name is the file name recorded in the cache layer title. Defaults to
	// the manifest name with a ".map" extension.
	Name string

	Cache    []byte
	Manifest *manifest.Manifest

	// Resources holds the resource maps the cache file was built against.
	Resources map[resource.Type][]byte
}

func (a *Artifact) fileName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Manifest.Name + ".map"
}

// resourceTypes returns the resource map types in a stable order.
func (a *Artifact) resourceTypes() []resource.Type {
	types := make([]resource.Type, 0, len(a.Resources))
	for t := range a.Resources {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// layers locates the layers of a parsed artifact manifest.
type layers struct {
	cache     ocispec.Descriptor
	manifest  ocispec.Descriptor
	resources map[resource.Type]ocispec.Descriptor

	annotations map[string]string
	created     time.Time
}

// parseArtifactManifest checks that m describes a cache file artifact.
func parseArtifactManifest(m *ocispec.Manifest) (*layers, error) {
	if m.MediaType != ocispec.MediaTypeImageManifest {
		return nil, fmt.Errorf("%w: unexpected manifest media type %q", ErrInvalidArtifact, m.MediaType)
	}
	if m.ArtifactType != ArtifactType {
		return nil, fmt.Errorf("%w: unexpected artifact type %q", ErrInvalidArtifact, m.ArtifactType)
	}

	l := &layers{resources: make(map[resource.Type]ocispec.Descriptor)}
	var foundCache, foundManifest bool
	for _, layer := range m.Layers {
		switch layer.MediaType {
		case MediaTypeCache:
			if foundCache {
				return nil, fmt.Errorf("%w: multiple cache layers", ErrInvalidArtifact)
			}
			l.cache, foundCache = layer, true
		case MediaTypeManifest:
			if foundManifest {
				return nil, fmt.Errorf("%w: multiple manifest layers", ErrInvalidArtifact)
			}
			l.manifest, foundManifest = layer, true
		case MediaTypeResourceMap:
			t, err := resource.ParseType(layer.Annotations[AnnotationResourceType])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
			}
			if _, dup := l.resources[t]; dup {
				return nil, fmt.Errorf("%w: multiple %s layers", ErrInvalidArtifact, t)
			}
			l.resources[t] = layer
		default:
			return nil, fmt.Errorf("%w: unexpected layer media type %q", ErrInvalidArtifact, layer.MediaType)
		}
	}
	if !foundCache {
		return nil, fmt.Errorf("%w: cache file", ErrMissingLayer)
	}
	if !foundManifest {
		return nil, fmt.Errorf("%w: build manifest", ErrMissingLayer)
	}
	if ts, ok := m.Annotations[ocispec.AnnotationCreated]; ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			l.created = t
		}
	}
	return l, nil
}

// manifestAnnotations returns the annotations describing man.
func manifestAnnotations(man *manifest.Manifest) map[string]string {
	return map[string]string{
		AnnotationEngine:          man.Profile,
		AnnotationScenarioType:    man.Type.String(),
		ocispec.AnnotationTitle:   man.Name,
		ocispec.AnnotationVersion: man.Build,
		AnnotationCRC32:           fmt.Sprintf("%08x", man.CRC32),
	}
}

// profileOf returns the engine profile named in an artifact's annotations.
func profileOf(annotations map[string]string) (*engine.Profile, error) {
	id, ok := annotations[AnnotationEngine]
	if !ok {
		return nil, fmt.Errorf("%w: no %s annotation", ErrInvalidArtifact, AnnotationEngine)
	}
	return engine.Lookup(id)
}
