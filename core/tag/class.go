package tag

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Class is a four character tag class code stored big-endian in source tags
// and little-endian in cache files.
type Class uint32

// Tag classes with a definition in the default registry.
const (
	ClassScenario          Class = 0x73636E72 // scnr
	ClassStructureBSP      Class = 0x73627370 // sbsp
	ClassGlobals           Class = 0x6D617467 // matg
	ClassTagCollection     Class = 0x74616763 // tagc
	ClassBitmap            Class = 0x6269746D // bitm
	ClassSound             Class = 0x736E6421 // snd!
	ClassUnicodeStringList Class = 0x75737472 // ustr
	ClassFont              Class = 0x666F6E74 // font
	ClassHUDMessageText    Class = 0x686D7420 // "hmt "

	// ClassNone fills unused class slots and accepts any class in a dependency.
	ClassNone Class = 0xFFFFFFFF
)

var extensions = map[Class]string{
	ClassScenario:          "scenario",
	ClassStructureBSP:      "scenario_structure_bsp",
	ClassGlobals:           "globals",
	ClassTagCollection:     "tag_collection",
	ClassBitmap:            "bitmap",
	ClassSound:             "sound",
	ClassUnicodeStringList: "unicode_string_list",
	ClassFont:              "font",
	ClassHUDMessageText:    "hud_message_text",
	ClassNone:              "none",
}

// Extension returns the file extension used for source tags of class c.
func (c Class) Extension() string {
	if ext, ok := extensions[c]; ok {
		return ext
	}
	return "unknown"
}

// String returns the four character code.
func (c Class) String() string {
	if c == ClassNone {
		return "none"
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(c))
	return string(b[:])
}

// ParseClass accepts either a four character code or a file extension.
func ParseClass(s string) (Class, error) {
	for c, ext := range extensions {
		if ext == s {
			return c, nil
		}
	}
	if len(s) == 4 {
		return Class(binary.BigEndian.Uint32([]byte(s))), nil
	}
	return ClassNone, fmt.Errorf("unknown tag class %q", s)
}

// SplitPath separates "path\to\tag.extension" into a path and class.
func SplitPath(s string) (string, Class, error) {
	dot := strings.LastIndexByte(s, '.')
	if dot <= 0 {
		return "", ClassNone, fmt.Errorf("tag path %q has no class extension", s)
	}
	c, err := ParseClass(s[dot+1:])
	if err != nil {
		return "", ClassNone, err
	}
	return strings.ReplaceAll(s[:dot], "/", `\`), c, nil
}
