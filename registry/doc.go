// Package registry pushes cache files to OCI registries and pulls them back.
//
// A published cache file is one OCI artifact holding the cache file, its
// FlatBuffers build manifest and any resource maps it was built against.
// Pulls verify every layer digest and check the cache file against the
// digest recorded in its build manifest.
package registry
