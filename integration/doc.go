//go:build integration

// Package integration runs cache file publishing against a real OCI registry.
//
// These tests require Docker and spin up a registry:2 container using testcontainers.
// Run with: go test -tags=integration ./integration/...
package integration
