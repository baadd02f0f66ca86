// Package config loads and validates sforg configuration from
// .sforg/config.json and exposes the persisted key-value settings store.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Bounds applied to every handler policy regardless of what the config
// file says. Values outside these ranges are clamped, not rejected.
const (
	MinConcurrency = 1
	MaxConcurrency = 10
	MinTimeoutMs   = 1000

	DefaultTimeoutMs   = 30000
	DefaultRetryCount  = 3
	DefaultParallelism = 5
)

// Config represents the complete sforg configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	// SfBinary is the name or path of the Salesforce CLI executable
	SfBinary string `json:"sfBinary" mapstructure:"sfBinary"`

	// APIVersion is the metadata API version written into manifests
	APIVersion string `json:"apiVersion" mapstructure:"apiVersion"`

	// CacheRoot is the directory holding per-org retrieval caches.
	// Empty means <os temp dir>/sforg-cache.
	CacheRoot string `json:"cacheRoot" mapstructure:"cacheRoot"`

	// DefaultConcurrency is the chunk size used by batch operations when
	// a handler policy does not override it
	DefaultConcurrency int `json:"defaultConcurrency" mapstructure:"defaultConcurrency"`

	// Handlers maps a metadata type name to its runtime policy. The
	// "default" key supplies the fallback policy.
	Handlers map[string]HandlerPolicy `json:"handlers" mapstructure:"handlers"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// HandlerPolicy contains per-type runtime policy for a handler
type HandlerPolicy struct {
	Enabled        bool `json:"enabled" mapstructure:"enabled"`
	Parallel       bool `json:"parallel" mapstructure:"parallel"`
	MaxConcurrency int  `json:"maxConcurrency" mapstructure:"maxConcurrency"`
	RetryCount     int  `json:"retryCount" mapstructure:"retryCount"`
	TimeoutMs      int  `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// Normalized returns a copy of the policy with all bounds applied:
// concurrency clamped to [1,10], timeout clamped to >= 1000ms and a
// non-negative retry count.
func (p HandlerPolicy) Normalized() HandlerPolicy {
	if p.MaxConcurrency < MinConcurrency {
		p.MaxConcurrency = MinConcurrency
	}
	if p.MaxConcurrency > MaxConcurrency {
		p.MaxConcurrency = MaxConcurrency
	}
	if p.TimeoutMs < MinTimeoutMs {
		p.TimeoutMs = MinTimeoutMs
	}
	if p.RetryCount < 0 {
		p.RetryCount = 0
	}
	return p
}

// DefaultPolicy returns the fallback handler policy
func DefaultPolicy() HandlerPolicy {
	return HandlerPolicy{
		Enabled:        true,
		Parallel:       true,
		MaxConcurrency: DefaultParallelism,
		RetryCount:     DefaultRetryCount,
		TimeoutMs:      DefaultTimeoutMs,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:            1,
		RepoRoot:           ".",
		SfBinary:           "sf",
		APIVersion:         "59.0",
		DefaultConcurrency: DefaultParallelism,
		Handlers: map[string]HandlerPolicy{
			"default": DefaultPolicy(),
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// PolicyFor returns the normalized policy for the given type name,
// falling back to the "default" entry and then to DefaultPolicy.
func (c *Config) PolicyFor(typeName string) HandlerPolicy {
	if p, ok := c.Handlers[typeName]; ok {
		return p.Normalized()
	}
	if p, ok := c.Handlers["default"]; ok {
		return p.Normalized()
	}
	return DefaultPolicy()
}

// EffectiveCacheRoot resolves the cache root directory
func (c *Config) EffectiveCacheRoot() string {
	if c.CacheRoot != "" {
		return c.CacheRoot
	}
	return filepath.Join(os.TempDir(), "sforg-cache")
}

// LoadConfig loads configuration from <root>/.sforg/config.json
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("repoRoot", ".")
	v.SetDefault("sfBinary", "sf")
	v.SetDefault("apiVersion", "59.0")
	v.SetDefault("defaultConcurrency", DefaultParallelism)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".sforg"))

	if err := v.ReadInConfig(); err != nil {
		// A missing file is not an error; run with defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Handlers == nil {
		cfg.Handlers = map[string]HandlerPolicy{"default": DefaultPolicy()}
	}

	return &cfg, nil
}

// Save writes the configuration to <root>/.sforg/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".sforg")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.SfBinary == "" {
		return &ConfigError{Field: "sfBinary", Message: "must not be empty"}
	}
	if c.DefaultConcurrency < MinConcurrency || c.DefaultConcurrency > MaxConcurrency {
		return &ConfigError{Field: "defaultConcurrency", Message: "must be between 1 and 10"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
