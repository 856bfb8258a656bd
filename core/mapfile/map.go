package mapfile

import (
	"fmt"
	"hash/crc32"
	"log/slog"
	"math"

	"github.com/meigma/cachefile/core/codec"
	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/format"
	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/internal/sizing"
	"github.com/meigma/cachefile/core/resource"
	"github.com/meigma/cachefile/core/tag"
)

// State is how far Load got. A Map returned without error is always Ready.
type State uint8

const (
	StateRawBytes State = iota
	StateHeaderValidated
	StateDecompressed
	StateTagArrayPopulated
	StateReady
)

func (s State) String() string {
	switch s {
	case StateRawBytes:
		return "raw_bytes"
	case StateHeaderValidated:
		return "header_validated"
	case StateDecompressed:
		return "decompressed"
	case StateTagArrayPopulated:
		return "tag_array_populated"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// LocationKind says where a tag's data lives.
type LocationKind uint8

const (
	LocationInline LocationKind = iota
	LocationExternal
	LocationBSP
)

func (k LocationKind) String() string {
	switch k {
	case LocationExternal:
		return "external"
	case LocationBSP:
		return "bsp"
	default:
		return "inline"
	}
}

// Location is where a tag's root struct can be read.
type Location struct {
	Kind LocationKind
	// Address is the root struct address for inline and BSP tags.
	Address format.Address

	// External tags.
	External External

	// BSP tags: the region's file offset, size and load address.
	Offset      uint64
	Size        uint64
	BaseAddress format.Address
}

// Tag is one entry of the tag array.
type Tag struct {
	Class tag.Class
	ID    format.TagID
	// Path is empty when the stored path was invalid.
	Path     string
	Location Location
}

// Map is a loaded cache file.
type Map struct {
	Header   *format.Header
	Profile  *engine.Profile
	Type     engine.ScenarioType
	Scenario int
	// Base is the address of the first byte of tag data.
	Base uint64

	file     []byte
	tagData  format.View
	tags     []Tag
	registry *tag.Registry
	state    State
}

// Load parses a cache file. data is borrowed unless it had to be
// decompressed.
func Load(data []byte, opts ...Option) (*Map, error) {
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	m := &Map{registry: cfg.registry, state: StateRawBytes}
	if m.registry == nil {
		m.registry = tag.DefaultRegistry()
	}

	// Ceaflate wraps the whole file, header included, so it is undone
	// before the header can be read.
	container := codec.IsCeaflate(data)
	if container {
		var err error
		if data, err = unwrapCeaflate(data); err != nil {
			return nil, err
		}
		log.Debug("unwrapped ceaflate file", "size", len(data))
	}

	if err := m.readHeader(data, cfg.profile, container); err != nil {
		return nil, err
	}
	m.state = StateHeaderValidated

	if err := m.decompress(data, container); err != nil {
		return nil, err
	}
	m.state = StateDecompressed

	if err := m.readTagData(cfg.verifyCRC); err != nil {
		return nil, err
	}
	if err := m.readTagArray(NewResolver(cfg.bitmaps, cfg.sounds, cfg.loc)); err != nil {
		return nil, err
	}
	m.state = StateTagArrayPopulated

	if err := m.readBSPs(); err != nil {
		return nil, err
	}
	m.state = StateReady
	log.Info("loaded cache file",
		"name", m.Header.Name, "engine", m.Profile.ID, "type", m.Type.String(), "tags", len(m.tags))
	return m, nil
}

func (m *Map) readHeader(data []byte, p *engine.Profile, container bool) error {
	hdr, err := format.ReadHeader(data)
	if err != nil {
		return err
	}
	if p == nil {
		if p, err = engine.Detect(hdr.Engine, hdr.Build); err != nil {
			return err
		}
	} else if !p.Accepts(hdr.Engine) {
		return fmt.Errorf("%w: engine 0x%X is not %s", errdefs.ErrUnsupportedEngine, hdr.Engine, p.ID)
	}
	hdr.Compression = compression(data, hdr, p, container)
	compressed := hdr.Compression != engine.CompressionNone
	switch {
	case compressed && p.Compression == engine.CompressionNone:
		return fmt.Errorf("%w: %s", errdefs.ErrMapNeedsUncompressed, p.ID)
	case !compressed && p.Compression != engine.CompressionNone && !p.CompressionOptional:
		return fmt.Errorf("%w: %s", errdefs.ErrMapNeedsCompressed, p.ID)
	case compressed && hdr.Compression != p.Compression:
		return fmt.Errorf("%w: %s compression for the %s profile", errdefs.ErrInvalidMap, hdr.Compression, p.ID)
	case hdr.Engine != p.EngineFor(compressed):
		return fmt.Errorf("%w: engine 0x%X does not match compression %s", errdefs.ErrInvalidMap, hdr.Engine, hdr.Compression)
	}
	if p.HeaderKind != hdr.Kind {
		return fmt.Errorf("%w: %s header for the %s profile", errdefs.ErrInvalidMap, hdr.Kind, p.ID)
	}
	if !hdr.Type.Valid() {
		return fmt.Errorf("%w: scenario type %s", errdefs.ErrInvalidMap, hdr.Type)
	}

	if hdr.DecompressedSize < format.HeaderSize {
		return fmt.Errorf("%w: decompressed size 0x%X", errdefs.ErrInvalidMap, hdr.DecompressedSize)
	}
	if limit := p.MaxFileSize(hdr.Type); hdr.DecompressedSize > limit {
		return fmt.Errorf("%w: decompressed size 0x%X exceeds 0x%X", errdefs.ErrInvalidMap, hdr.DecompressedSize, limit)
	}
	// Trailing bytes after the declared size are ignored.
	if (!compressed || container) && hdr.DecompressedSize > uint64(len(data)) {
		return fmt.Errorf("%w: header says 0x%X bytes, file is 0x%X", errdefs.ErrInvalidMap, hdr.DecompressedSize, len(data))
	}
	end, ok := sizing.AddUint64(hdr.TagDataOffset, hdr.TagDataSize)
	if hdr.TagDataOffset < format.HeaderSize || !ok || end > hdr.DecompressedSize {
		return fmt.Errorf("%w: tag data 0x%X+0x%X outside 0x%X bytes", errdefs.ErrInvalidMap, hdr.TagDataOffset, hdr.TagDataSize, hdr.DecompressedSize)
	}

	m.Header = hdr
	m.Profile = p
	m.Type = hdr.Type
	return nil
}

// compression works out how the file was stored. Only the native header
// records it. Elsewhere it follows from the engine id, except that a file of
// a fixed-compression profile whose tag data reads in place was never
// compressed.
func compression(data []byte, hdr *format.Header, p *engine.Profile, container bool) engine.Compression {
	switch {
	case container:
		return engine.CompressionCeaflate
	case hdr.Kind == engine.HeaderNative:
		return hdr.Compression
	case p.Compression == engine.CompressionCeaflate:
		return engine.CompressionNone
	case !p.CompressionOptional && p.Compression != engine.CompressionNone && plainTagData(data, hdr, p):
		return engine.CompressionNone
	default:
		return p.CompressionFor(hdr.Engine)
	}
}

// plainTagData reports whether an uncompressed tag data header sits where
// the header says.
func plainTagData(data []byte, hdr *format.Header, p *engine.Profile) bool {
	if hdr.DecompressedSize > uint64(len(data)) || hdr.TagDataOffset >= uint64(len(data)) {
		return false
	}
	_, err := format.DecodeTagDataHeader(data[hdr.TagDataOffset:], p.PointerSize)
	return err == nil
}

func unwrapCeaflate(data []byte) ([]byte, error) {
	size, err := codec.CeaflateSize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrDecompression, err)
	}
	if size < format.HeaderSize || size > math.MaxUint32 {
		return nil, fmt.Errorf("%w: ceaflate blocks hold 0x%X bytes", errdefs.ErrInvalidMap, size)
	}
	return codec.Decompress(engine.CompressionCeaflate, data, size)
}

func (m *Map) decompress(data []byte, container bool) error {
	if m.Header.Compression == engine.CompressionNone || container {
		m.file = data[:m.Header.DecompressedSize]
		return nil
	}
	body, err := codec.Decompress(m.Header.Compression, data[format.HeaderSize:], m.Header.DecompressedSize-format.HeaderSize)
	if err != nil {
		return err
	}
	m.file = make([]byte, 0, len(body)+format.HeaderSize)
	m.file = append(m.file, data[:format.HeaderSize]...)
	m.file = append(m.file, body...)
	return nil
}

func (m *Map) readTagData(verifyCRC bool) error {
	region := m.file[m.Header.TagDataOffset : m.Header.TagDataOffset+m.Header.TagDataSize]
	if verifyCRC {
		if sum := crc32.ChecksumIEEE(region); sum != m.Header.CRC32 {
			return fmt.Errorf("%w: tag data is 0x%08X, header says 0x%08X", errdefs.ErrCRCMismatch, sum, m.Header.CRC32)
		}
	}
	th, err := format.DecodeTagDataHeader(region, m.Profile.PointerSize)
	if err != nil {
		return err
	}
	if th.Literal != format.TagsLiteral {
		return fmt.Errorf("%w: bad tag data literal 0x%08X", errdefs.ErrInvalidMap, th.Literal)
	}
	// The tag array follows the tag data header, which fixes the load address.
	headerLen := uint64(format.TagDataHeaderLen(m.Profile.PointerSize)) //nolint:gosec // small constant
	if uint64(th.TagArrayAddress) < headerLen {
		return fmt.Errorf("%w: tag array address 0x%X", errdefs.ErrInvalidMap, th.TagArrayAddress)
	}
	m.Base = uint64(th.TagArrayAddress) - headerLen
	m.tagData = format.NewView(region, m.Base)

	if th.TagCount > engine.MaxTagCount {
		return fmt.Errorf("%w: %d tags", errdefs.ErrInvalidMap, th.TagCount)
	}
	m.tags = make([]Tag, th.TagCount)
	if !th.ScenarioID.Valid(len(m.tags)) {
		return fmt.Errorf("%w: scenario id 0x%08X", errdefs.ErrInvalidMap, uint32(th.ScenarioID))
	}
	m.Scenario = th.ScenarioID.Index()
	return nil
}

func (m *Map) readTagArray(r *Resolver) error {
	ps := m.Profile.PointerSize
	arrayAddress := format.Address(m.Base) + format.Address(format.TagDataHeaderLen(ps)) //nolint:gosec // small constant
	array, err := m.tagData.At(arrayAddress, uint64(len(m.tags))*format.TagRecordSize)
	if err != nil {
		return fmt.Errorf("tag array: %w", err)
	}
	for i := range m.tags {
		rec, err := format.DecodeTagRecord(array[i*format.TagRecordSize:], ps)
		if err != nil {
			return err
		}
		if rec.ID != format.NewTagID(i) {
			return fmt.Errorf("%w: tag %d has id 0x%08X", errdefs.ErrInvalidMap, i, uint32(rec.ID))
		}
		t := &m.tags[i]
		t.Class = rec.Primary
		t.ID = rec.ID
		t.Path = m.readPath(format.Address(rec.Path))

		switch {
		case rec.Indexed:
			ext, err := r.Resolve(t.Class, t.Path, rec.Data)
			if err != nil {
				return fmt.Errorf("tag %d (%s.%s): %w", i, t.Path, t.Class.Extension(), err)
			}
			t.Location = Location{Kind: LocationExternal, External: ext}
		case t.Class == tag.ClassStructureBSP:
			// Filled from the scenario by readBSPs.
			t.Location = Location{Kind: LocationBSP}
		default:
			t.Location = Location{Kind: LocationInline, Address: format.Address(rec.Data)}
			if err := m.checkRoot(t.Class, m.tagData, t.Location.Address); err != nil {
				return fmt.Errorf("tag %d (%s.%s): %w", i, t.Path, t.Class.Extension(), err)
			}
		}
	}
	return nil
}

// readPath returns the tag path at addr, or "" when it is not a null
// terminated run of printable characters without '/'.
func (m *Map) readPath(addr format.Address) string {
	path, ok := m.tagData.CString(addr, tag.MaxPathLength)
	if !ok || !validPath(path) {
		return ""
	}
	return path
}

func validPath(path string) bool {
	for i := range len(path) {
		c := path[i]
		if c < 0x20 || c > 0x7E || c == '/' {
			return false
		}
	}
	return true
}

// checkRoot requires the root struct of a known class to lie inside v.
func (m *Map) checkRoot(c tag.Class, v format.View, addr format.Address) error {
	def, err := m.registry.Lookup(c)
	if err != nil {
		return nil //nolint:nilerr // classes without a definition are opaque
	}
	size := uint64(def.Root.CacheSize(m.Profile.PointerSize)) //nolint:gosec // small
	if !v.Contains(addr, size) {
		return fmt.Errorf("%w: root at 0x%X", errdefs.ErrOutOfBounds, uint64(addr))
	}
	return nil
}

// File returns the uncompressed cache file.
func (m *Map) File() []byte {
	return m.file
}

// State returns how far Load got.
func (m *Map) State() State {
	return m.state
}

// Len returns the number of tags.
func (m *Map) Len() int {
	return len(m.tags)
}

// Tags returns a copy of the tag array.
func (m *Map) Tags() []Tag {
	out := make([]Tag, len(m.tags))
	copy(out, m.tags)
	return out
}

// Tag returns tag i.
func (m *Map) Tag(i int) (Tag, error) {
	if i < 0 || i >= len(m.tags) {
		return Tag{}, fmt.Errorf("%w: tag %d of %d", errdefs.ErrOutOfBounds, i, len(m.tags))
	}
	return m.tags[i], nil
}

// Find returns the index of the tag with the given path and class.
func (m *Map) Find(path string, c tag.Class) (int, error) {
	for i := range m.tags {
		if m.tags[i].Path == path && m.tags[i].Class == c {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s.%s", errdefs.ErrTagNotFound, path, c.Extension())
}

// Indexed returns the number of tags read from resource maps.
func (m *Map) Indexed() int {
	n := 0
	for i := range m.tags {
		if m.tags[i].Location.Kind == LocationExternal {
			n++
		}
	}
	return n
}

// ResourceType reports which resource map tag i was read from.
func (m *Map) ResourceType(i int) (resource.Type, bool) {
	if i < 0 || i >= len(m.tags) || m.tags[i].Location.Kind != LocationExternal {
		return 0, false
	}
	return m.tags[i].Location.External.Type, true
}
