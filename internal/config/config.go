// Package config loads the cachefile CLI configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/docker/go-units"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the CLI reads.
// Example: CACHEFILE_BUILD_ENGINE=retail
const EnvPrefix = "CACHEFILE"

// Config represents the cachefile CLI configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (CACHEFILE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Build holds the defaults for `cachefile build`
	Build BuildConfig `mapstructure:"build" yaml:"build"`

	// Load holds the defaults for commands that read cache files
	Load LoadConfig `mapstructure:"load" yaml:"load"`

	// Registry configures OCI registry access for publish and pull
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level (DEBUG, INFO, WARN, ERROR)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// BuildConfig holds build defaults.
type BuildConfig struct {
	// Engine is the target engine profile id
	Engine string `mapstructure:"engine" validate:"required,oneof=xbox demo retail custom anniversary native" yaml:"engine"`

	// TagDirs are searched in order for source tags
	TagDirs []string `mapstructure:"tag_dirs" validate:"omitempty,dive,required" yaml:"tag_dirs"`

	// ResourceMapsDir holds bitmaps.map, sounds.map and loc.map
	ResourceMapsDir string `mapstructure:"resource_maps_dir" yaml:"resource_maps_dir"`

	// ResourcePolicy is matching, always or none
	ResourcePolicy string `mapstructure:"resource_policy" validate:"required,oneof=matching always none" yaml:"resource_policy"`

	// Dedupe merges identical structs
	Dedupe bool `mapstructure:"dedupe" yaml:"dedupe"`

	// MaxSavings caps dedupe savings in bytes; 0 means no cap
	MaxSavings ByteSize `mapstructure:"max_savings" validate:"gte=0" yaml:"max_savings"`

	// Compress compresses the output when the engine allows it
	Compress bool `mapstructure:"compress" yaml:"compress"`

	// CompressionLevel is the codec level; -1 selects the codec default
	CompressionLevel int `mapstructure:"compression_level" validate:"gte=-1,lte=22" yaml:"compression_level"`

	// OutputDir receives built cache files
	OutputDir string `mapstructure:"output_dir" validate:"required" yaml:"output_dir"`
}

// LoadConfig holds defaults for reading cache files.
type LoadConfig struct {
	// VerifyCRC checks tag data against the header checksum
	VerifyCRC bool `mapstructure:"verify_crc" yaml:"verify_crc"`
}

// RegistryConfig configures registry access.
type RegistryConfig struct {
	// PlainHTTP talks to the registry without TLS
	PlainHTTP bool `mapstructure:"plain_http" yaml:"plain_http"`

	// Username and Password authenticate against every registry when set
	Username string `mapstructure:"username" validate:"required_with=Password" yaml:"username,omitempty"`
	Password string `mapstructure:"password" validate:"required_with=Username" yaml:"password,omitempty"`

	// DockerConfig reads credentials from ~/.docker/config.json
	DockerConfig bool `mapstructure:"docker_config" yaml:"docker_config"`

	// OCILayout, when set, stores artifacts in this OCI image layout
	// directory instead of a remote registry
	OCILayout string `mapstructure:"oci_layout" yaml:"oci_layout,omitempty"`

	// MaxLayerSize bounds each downloaded layer
	MaxLayerSize ByteSize `mapstructure:"max_layer_size" validate:"gt=0" yaml:"max_layer_size"`

	// CacheDir keeps pulled layers by digest. Empty disables the cache.
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir,omitempty"`

	// CacheMaxSize bounds CacheDir (0 = unlimited)
	CacheMaxSize ByteSize `mapstructure:"cache_max_size" validate:"gte=0" yaml:"cache_max_size"`
}

// ByteSize is a size in bytes that decodes from strings like "512MiB".
type ByteSize int64

// String formats b with binary units.
func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

// MarshalYAML writes b in human-readable form.
func (b ByteSize) MarshalYAML() (any, error) {
	return b.String(), nil
}

// ParseByteSize parses a size such as "1GiB", "64MB" or "4096".
func ParseByteSize(s string) (ByteSize, error) {
	n, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath searches the default location. A missing file is not
// an error; environment variables and defaults still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	// The file may hold a registry password.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures environment variables, the config file search and
// defaults. Every key must be known to viper for AutomaticEnv to override it
// during Unmarshal.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	d := GetDefaultConfig()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("build.engine", d.Build.Engine)
	_ = v.BindEnv("build.tag_dirs")
	v.SetDefault("build.resource_maps_dir", d.Build.ResourceMapsDir)
	v.SetDefault("build.resource_policy", d.Build.ResourcePolicy)
	v.SetDefault("build.dedupe", d.Build.Dedupe)
	v.SetDefault("build.max_savings", int64(d.Build.MaxSavings))
	v.SetDefault("build.compress", d.Build.Compress)
	v.SetDefault("build.compression_level", d.Build.CompressionLevel)
	v.SetDefault("build.output_dir", d.Build.OutputDir)
	v.SetDefault("load.verify_crc", d.Load.VerifyCRC)
	v.SetDefault("registry.plain_http", d.Registry.PlainHTTP)
	v.SetDefault("registry.username", d.Registry.Username)
	v.SetDefault("registry.password", d.Registry.Password)
	v.SetDefault("registry.docker_config", d.Registry.DockerConfig)
	v.SetDefault("registry.oci_layout", d.Registry.OCILayout)
	v.SetDefault("registry.max_layer_size", int64(d.Registry.MaxLayerSize))
	v.SetDefault("registry.cache_dir", d.Registry.CacheDir)
	v.SetDefault("registry.cache_max_size", int64(d.Registry.CacheMaxSize))
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the decode hooks for custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		mapstructure.StringToSliceHookFunc(string(os.PathListSeparator)),
	)
}

// byteSizeDecodeHook converts strings and numbers to ByteSize.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return ParseByteSize(v)
		case int:
			return ByteSize(v), nil
		case int64:
			return ByteSize(v), nil
		case uint64:
			return ByteSize(v), nil //nolint:gosec // config sizes are small
		case float64:
			// YAML numbers may arrive as float64
			return ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/cachefile, falling back to
// ~/.config/cachefile, or "." when no home directory is known.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cachefile")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "cachefile")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
