package tag

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/meigma/cachefile/core/internal/errdefs"
)

// MaxPathLength is the longest tag path a cache file can store.
const MaxPathLength = 254

// SearchPath finds source tags across ordered roots. The first root holding a
// tag wins.
type SearchPath struct {
	roots []fs.FS
}

// NewSearchPath returns a SearchPath over roots, highest priority first.
func NewSearchPath(roots ...fs.FS) *SearchPath {
	return &SearchPath{roots: roots}
}

// Len returns the number of roots.
func (s *SearchPath) Len() int {
	return len(s.roots)
}

// FileName maps a backslash separated tag path to its slash separated file
// name in a tags directory.
func FileName(path string, c Class) (string, error) {
	if path == "" || len(path) > MaxPathLength {
		return "", fmt.Errorf("%w: %q", errdefs.ErrInvalidTagPath, path)
	}
	name := strings.ReplaceAll(path, `\`, "/") + "." + c.Extension()
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %q", errdefs.ErrInvalidTagPath, path)
	}
	return name, nil
}

// ReadFile returns the bytes of the first matching source tag.
func (s *SearchPath) ReadFile(path string, c Class) ([]byte, error) {
	name, err := FileName(path, c)
	if err != nil {
		return nil, err
	}
	for _, root := range s.roots {
		data, err := fs.ReadFile(root, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", errdefs.ErrTagNotFound, name)
}

// Load reads and decodes the first matching source tag.
func (s *SearchPath) Load(path string, c Class, reg *Registry) (*Tag, error) {
	data, err := s.ReadFile(path, c)
	if err != nil {
		return nil, err
	}
	t, err := Decode(data, reg)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", path, c.Extension(), err)
	}
	if t.Class() != c {
		return nil, fmt.Errorf("%w: %s.%s holds a %s tag", errdefs.ErrInvalidTag, path, c.Extension(), t.Class())
	}
	return t, nil
}
