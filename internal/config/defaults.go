package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// ApplyDefaults fills zero-valued fields and normalizes values. Explicit
// values are preserved. Booleans are defaulted through viper instead, since
// false is a meaningful setting.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyBuildDefaults(&cfg.Build)
	applyRegistryDefaults(&cfg.Registry)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyBuildDefaults(cfg *BuildConfig) {
	if cfg.Engine == "" {
		cfg.Engine = "custom"
	}
	cfg.Engine = strings.ToLower(cfg.Engine)

	if cfg.ResourcePolicy == "" {
		cfg.ResourcePolicy = "matching"
	}
	cfg.ResourcePolicy = strings.ToLower(cfg.ResourcePolicy)

	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
}

func applyRegistryDefaults(cfg *RegistryConfig) {
	if cfg.MaxLayerSize == 0 {
		cfg.MaxLayerSize = 1 << 30
	}
}

// GetDefaultConfig returns the configuration used when nothing is set.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Build: BuildConfig{
			Dedupe:           true,
			CompressionLevel: -1,
		},
		Load: LoadConfig{
			VerifyCRC: true,
		},
		Registry: RegistryConfig{
			DockerConfig: true,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(cfg)
}
