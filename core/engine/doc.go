// Package engine describes the targets a cache file can be built for.
//
// Each [Profile] fixes the address space, size limits, header layout,
// compression scheme and pointer width of one engine build. The table is
// immutable and safe for concurrent use; look profiles up with [Lookup] by
// identifier or with [Detect] from the engine id and build string found in a
// cache file header.
package engine
