package registry

// Media types for cache file artifacts.
const (
	// ArtifactType identifies cache file artifacts (OCI 1.1 artifactType).
	ArtifactType = "application/vnd.meigma.cachefile.v1"

	// MediaTypeCache is the media type of the cache file layer.
	MediaTypeCache = "application/vnd.meigma.cachefile.map.v1"

	// MediaTypeManifest is the media type of the build manifest layer.
	MediaTypeManifest = "application/vnd.meigma.cachefile.manifest.v1+flatbuffers"

	// MediaTypeResourceMap is the media type of resource map layers.
	MediaTypeResourceMap = "application/vnd.meigma.cachefile.resources.v1"
)

// Annotations written on the image manifest and layers.
const (
	AnnotationEngine       = "io.meigma.cachefile.engine"
	AnnotationScenarioType = "io.meigma.cachefile.scenario-type"
	AnnotationResourceType = "io.meigma.cachefile.resource-type"
	AnnotationCRC32        = "io.meigma.cachefile.crc32"
)
