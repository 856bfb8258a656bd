package registry

import (
	"log/slog"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/cachefile/registry/oras"
)

// LayerCache keeps pulled layers by digest. registry/cache implements it on
// disk.
type LayerCache interface {
	Get(d digest.Digest) ([]byte, bool)
	Put(d digest.Digest, data []byte) error
}

// Client publishes and fetches cache file artifacts.
type Client struct {
	oci    OCIClient
	logger *slog.Logger
	cache  LayerCache

	// orasOpts configure the default ORAS client when no OCIClient is set.
	orasOpts []oras.Option
}

// Option configures a Client.
type Option func(*Client)

// WithOCIClient replaces the default ORAS client.
func WithOCIClient(oci OCIClient) Option {
	return func(c *Client) {
		c.oci = oci
	}
}

// WithOrasOptions passes options to the default ORAS client.
func WithOrasOptions(opts ...oras.Option) Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, opts...)
	}
}

// WithLayerCache serves repeated pulls of the same layer from c.
func WithLayerCache(c LayerCache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithLogger sets the logger. The default ORAS client inherits it.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client.
func New(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.oci == nil {
		orasOpts := c.orasOpts
		if c.logger != nil {
			orasOpts = append(orasOpts, oras.WithLogger(c.logger))
		}
		c.oci = oras.New(orasOpts...)
	}
	return c
}

func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
