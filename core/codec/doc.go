// Package codec compresses and decompresses the body of a cache file, which
// is everything after the 0x800-byte header.
//
// Three schemes are supported: a zstd frame, a single zlib stream padded to
// the console sector size, and ceaflate, which splits the body into 0x20000
// byte blocks that are deflated independently and in parallel.
package codec
