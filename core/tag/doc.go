// Package tag defines tag classes, their field layouts and the big-endian
// source tag format.
//
// A [Definition] describes the fields of one class. Source tags decode into
// an [Element] tree that the build package serializes into cache layout, and
// that the mapfile package reconstructs from a loaded cache file.
package tag
