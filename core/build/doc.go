// Package build compiles a scenario and everything it references into a
// cache file.
//
// A [Workload] holds the build state: an arena of relocatable structs and
// the list of tags they belong to. Structs refer to each other and to tags
// by integer index, so recursive and cyclic references are safe. The pipeline
// is compile, index resources, dedupe, lay out, then write the header and
// compress. Any error aborts the build and nothing is returned.
//
// A Workload is not safe for concurrent use.
package build
