package tag

// Kind is the storage kind of one field.
type Kind uint8

const (
	KindPad Kind = iota
	KindU8
	KindU16
	KindU32
	KindI16
	KindI32
	KindF32
	// KindString32 is a fixed 32-byte null padded string.
	KindString32
	// KindDependency references another tag by class and path.
	KindDependency
	// KindBlock is a counted array of child elements.
	KindBlock
	// KindData is a sized byte payload.
	KindData
)

// Serialized sizes of the reference kinds in source tags.
const (
	sourceDependencySize = 16
	sourceBlockSize      = 12
	sourceDataSize       = 20
	stringSize           = 32
)

// Field describes one member of a Struct.
type Field struct {
	Name string
	Kind Kind
	// Size is the width of a KindPad field.
	Size int
	// Block is the element layout of a KindBlock field.
	Block *Struct
	// Classes lists the classes a KindDependency accepts. Empty accepts any.
	Classes []Class
	// IDOnly dependencies carry only the tag id in a cache file.
	IDOnly bool
	// Asset marks a KindData payload stored outside tag data (pixels, samples).
	Asset bool
}

// Accepts reports whether a dependency field may reference class c.
func (f *Field) Accepts(c Class) bool {
	if len(f.Classes) == 0 {
		return true
	}
	for _, allowed := range f.Classes {
		if allowed == c {
			return true
		}
	}
	return false
}

// SourceSize is the width of f in a source tag.
func (f *Field) SourceSize() int {
	switch f.Kind {
	case KindPad:
		return f.Size
	case KindU8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32, KindF32:
		return 4
	case KindString32:
		return stringSize
	case KindDependency:
		return sourceDependencySize
	case KindBlock:
		return sourceBlockSize
	case KindData:
		return sourceDataSize
	default:
		return 0
	}
}

// CacheSize is the width of f in a cache file with the given pointer size.
func (f *Field) CacheSize(pointerSize int) int {
	switch f.Kind {
	case KindDependency:
		return DependencyLayout(pointerSize).Size
	case KindBlock:
		return BlockLayout(pointerSize).Size
	case KindData:
		return DataLayout(pointerSize).Width
	default:
		return f.SourceSize()
	}
}

// Struct is an ordered list of fields.
type Struct struct {
	Name   string
	Fields []Field
	// NoDedupe keeps every instance of this struct distinct in a cache file.
	NoDedupe bool
}

// SourceSize is the fixed width of one element in a source tag.
func (s *Struct) SourceSize() int {
	n := 0
	for i := range s.Fields {
		n += s.Fields[i].SourceSize()
	}
	return n
}

// CacheSize is the fixed width of one element in a cache file.
func (s *Struct) CacheSize(pointerSize int) int {
	n := 0
	for i := range s.Fields {
		n += s.Fields[i].CacheSize(pointerSize)
	}
	return n
}

// FieldIndex returns the position of the named field or -1.
func (s *Struct) FieldIndex(name string) int {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// Definition binds a class to its root struct.
type Definition struct {
	Class   Class
	Version uint16
	Root    *Struct
}

// Offsets of the reference fields inside one cache-layout field.
type (
	// DependencyCache: class u32, tag id u32, address (pointer size), padding.
	DependencyCache struct {
		Class, ID, Address, Size int
	}
	// BlockCache: count u32, address (pointer size), padding.
	BlockCache struct {
		Count, Address, Size int
	}
	// DataCache: size u32, flags u32, file offset u32, address (pointer size), padding.
	DataCache struct {
		Size, Flags, FileOffset, Address, Width int
	}
)

// DataFlagExternal is set on a cache data field whose bytes live at a file
// offset rather than an address.
const DataFlagExternal = 1

// DependencyLayout returns the cache layout of a dependency.
func DependencyLayout(_ int) DependencyCache {
	return DependencyCache{Class: 0, ID: 4, Address: 8, Size: 16}
}

// BlockLayout returns the cache layout of a block reference.
func BlockLayout(pointerSize int) BlockCache {
	if pointerSize == 8 {
		return BlockCache{Count: 0, Address: 8, Size: 16}
	}
	return BlockCache{Count: 0, Address: 4, Size: 12}
}

// DataLayout returns the cache layout of a data reference.
func DataLayout(pointerSize int) DataCache {
	if pointerSize == 8 {
		return DataCache{Size: 0, Flags: 4, FileOffset: 8, Address: 16, Width: 24}
	}
	return DataCache{Size: 0, Flags: 4, FileOffset: 8, Address: 12, Width: 20}
}
