// Package mapfile loads cache files.
//
// [Load] validates the header, decompresses the body when the profile calls
// for it and reads the tag array. Each tag gets a [Location]: inline in the
// tag data region, external in a resource map, or in a structure BSP region
// described by the scenario. [Map.Decode] rebuilds a tag's fields from the
// cache layout.
//
// A Map is read-only after Load and safe for concurrent use. Loads share no
// state.
package mapfile
