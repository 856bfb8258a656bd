// Package manifest describes a built cache file in a small FlatBuffers
// document: engine profile, header summary, tag list and the digest of the
// file bytes. Manifests travel next to cache files when they are published
// and let tools list a cache file without loading it.
package manifest
