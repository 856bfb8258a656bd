package manifest

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/internal/fb"
	"github.com/meigma/cachefile/core/mapfile"
	"github.com/meigma/cachefile/core/tag"
)

// Version is the manifest format version written by Marshal.
const Version = 1

// Re-exported errors.
var (
	ErrInvalidManifest = errdefs.ErrInvalidManifest
	ErrDigestMismatch  = errdefs.ErrDigestMismatch
)

// Entry is one tag of the cache file, in tag array order.
type Entry struct {
	Path    string
	Class   tag.Class
	Indexed bool
}

// Manifest summarizes one cache file.
type Manifest struct {
	Version     uint32
	Name        string
	Profile     string
	Engine      uint32
	Build       string
	Type        engine.ScenarioType
	Compression engine.Compression
	CRC32       uint32
	TagDataSize uint64
	FileSize    uint64

	// Build statistics. Zero when the manifest was made from an existing file.
	Structs       int
	DedupeSavings int

	Tags []Entry

	// Digest is the sha256 digest of the file bytes as stored.
	Digest digest.Digest
}

// New describes m. file is the cache file as stored (compressed or not) and
// is only hashed.
func New(m *mapfile.Map, file []byte) *Manifest {
	h := m.Header
	man := &Manifest{
		Version:     Version,
		Name:        h.Name,
		Profile:     m.Profile.ID,
		Engine:      h.Engine,
		Build:       h.Build,
		Type:        m.Type,
		Compression: h.Compression,
		CRC32:       h.CRC32,
		TagDataSize: h.TagDataSize,
		FileSize:    uint64(len(file)),
		Digest:      digest.FromBytes(file),
	}
	man.Tags = make([]Entry, 0, m.Len())
	for _, t := range m.Tags() {
		man.Tags = append(man.Tags, Entry{
			Path:    t.Path,
			Class:   t.Class,
			Indexed: t.Location.Kind == mapfile.LocationExternal,
		})
	}
	return man
}

// Indexed returns the number of tags stored in resource maps.
func (m *Manifest) Indexed() int {
	n := 0
	for _, e := range m.Tags {
		if e.Indexed {
			n++
		}
	}
	return n
}

// Verify checks file against the recorded size and digest.
func (m *Manifest) Verify(file []byte) error {
	if uint64(len(file)) != m.FileSize {
		return fmt.Errorf("%w: size %d, manifest says %d", ErrDigestMismatch, len(file), m.FileSize)
	}
	if err := m.Digest.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	v := m.Digest.Verifier()
	_, _ = v.Write(file)
	if !v.Verified() {
		return fmt.Errorf("%w: %s", ErrDigestMismatch, m.Digest)
	}
	return nil
}

// Marshal serializes the manifest to FlatBuffers.
func (m *Manifest) Marshal() []byte {
	builder := flatbuffers.NewBuilder(1024)

	// Build entries in reverse order (FlatBuffers requirement)
	entryOffsets := make([]flatbuffers.UOffsetT, len(m.Tags))
	for i := len(m.Tags) - 1; i >= 0; i-- {
		e := m.Tags[i]
		pathOffset := builder.CreateString(e.Path)
		fb.TagEntryStart(builder)
		fb.TagEntryAddPath(builder, pathOffset)
		fb.TagEntryAddClass(builder, uint32(e.Class))
		fb.TagEntryAddIndexed(builder, e.Indexed)
		entryOffsets[i] = fb.TagEntryEnd(builder)
	}
	fb.ManifestStartTagsVector(builder, len(entryOffsets))
	for i := len(entryOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(entryOffsets[i])
	}
	tagsOffset := builder.EndVector(len(entryOffsets))

	nameOffset := builder.CreateString(m.Name)
	profileOffset := builder.CreateString(m.Profile)
	buildOffset := builder.CreateString(m.Build)
	digestOffset := builder.CreateString(m.Digest.String())

	fb.ManifestStart(builder)
	fb.ManifestAddVersion(builder, m.Version)
	fb.ManifestAddName(builder, nameOffset)
	fb.ManifestAddProfile(builder, profileOffset)
	fb.ManifestAddEngine(builder, m.Engine)
	fb.ManifestAddBuild(builder, buildOffset)
	fb.ManifestAddScenarioType(builder, uint16(m.Type))
	fb.ManifestAddCompression(builder, byte(m.Compression))
	fb.ManifestAddCrc32(builder, m.CRC32)
	fb.ManifestAddTagDataSize(builder, m.TagDataSize)
	fb.ManifestAddFileSize(builder, m.FileSize)
	fb.ManifestAddStructs(builder, uint32(m.Structs))            //nolint:gosec // struct counts are bounded by tag space
	fb.ManifestAddDedupeSavings(builder, uint64(m.DedupeSavings)) //nolint:gosec // non-negative
	fb.ManifestAddTags(builder, tagsOffset)
	fb.ManifestAddDigest(builder, digestOffset)
	root := fb.ManifestEnd(builder)

	fb.FinishManifestBuffer(builder, root)
	return builder.FinishedBytes()
}

// Parse decodes a manifest written by Marshal.
func Parse(data []byte) (man *Manifest, err error) {
	defer func() {
		if r := recover(); r != nil {
			man = nil
			err = fmt.Errorf("%w: %v", ErrInvalidManifest, r)
		}
	}()
	if len(data) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidManifest, len(data))
	}

	root := fb.GetRootAsManifest(data, 0)
	man = &Manifest{
		Version:       root.Version(),
		Name:          string(root.Name()),
		Profile:       string(root.Profile()),
		Engine:        root.Engine(),
		Build:         string(root.Build()),
		Type:          engine.ScenarioType(root.ScenarioType()),
		Compression:   engine.Compression(root.Compression()),
		CRC32:         root.Crc32(),
		TagDataSize:   root.TagDataSize(),
		FileSize:      root.FileSize(),
		Structs:       int(root.Structs()),
		DedupeSavings: int(root.DedupeSavings()), //nolint:gosec // written from an int
		Digest:        digest.Digest(root.Digest()),
	}
	if man.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidManifest, man.Version)
	}

	var e fb.TagEntry
	man.Tags = make([]Entry, root.TagsLength())
	for i := range man.Tags {
		if !root.Tags(&e, i) {
			return nil, fmt.Errorf("%w: tag %d", ErrInvalidManifest, i)
		}
		man.Tags[i] = Entry{Path: string(e.Path()), Class: tag.Class(e.Class()), Indexed: e.Indexed()}
	}
	if _, err := engine.Lookup(man.Profile); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return man, nil
}
