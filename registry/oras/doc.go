// Package oras implements registry.OCIClient on top of oras-go.
//
// Credentials come from a credentials.Store: the Docker config, a static
// username and password, or none at all for anonymous pulls.
package oras
