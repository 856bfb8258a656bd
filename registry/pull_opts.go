package registry

// defaultMaxLayerSize bounds each pulled layer. Cache files top out well
// below this for every engine profile.
const defaultMaxLayerSize = 1 << 30

// PullOption configures a Pull operation.
type PullOption func(*pullConfig)

type pullConfig struct {
	maxLayerSize  int64
	skipResources bool
}

// WithMaxLayerSize limits the size of every layer read. Zero or negative
// disables the limit.
func WithMaxLayerSize(n int64) PullOption {
	return func(cfg *pullConfig) {
		cfg.maxLayerSize = n
	}
}

// WithoutResources skips downloading resource map layers.
func WithoutResources() PullOption {
	return func(cfg *pullConfig) {
		cfg.skipResources = true
	}
}
