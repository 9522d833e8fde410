// Package config loads the tagvet configuration from YAML with TAGVET_*
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration. Values unmarshal over the defaults,
// so a partial file only overrides what it names.
type Config struct {
	MultiRegionEnabled    bool   `yaml:"multi_region_enabled"`
	MaxConcurrentRegions  int    `yaml:"max_concurrent_regions"`
	RegionTimeoutSeconds  int    `yaml:"region_timeout_seconds"`
	RegionCacheTTLSeconds int    `yaml:"region_cache_ttl_seconds"`
	DefaultEndpoint       string `yaml:"default_endpoint"`
	DataDir               string `yaml:"data_dir"`
	PolicyFile            string `yaml:"policy_file,omitempty"`
	LogLevel              string `yaml:"log_level"`
	OTELEndpoint          string `yaml:"otel_endpoint,omitempty"`
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() Config {
	return Config{
		MultiRegionEnabled:    true,
		MaxConcurrentRegions:  5,
		RegionTimeoutSeconds:  60,
		RegionCacheTTLSeconds: 3600,
		DefaultEndpoint:       "us-east-1",
		DataDir:               ".tagvet",
		LogLevel:              "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file if
// path is non-empty, then TAGVET_* environment variables, then validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate enforces the documented option ranges.
func (c Config) Validate() error {
	if c.MaxConcurrentRegions < 1 || c.MaxConcurrentRegions > 20 {
		return fmt.Errorf("max_concurrent_regions must be between 1 and 20, got %d", c.MaxConcurrentRegions)
	}
	if c.RegionTimeoutSeconds < 10 || c.RegionTimeoutSeconds > 300 {
		return fmt.Errorf("region_timeout_seconds must be between 10 and 300, got %d", c.RegionTimeoutSeconds)
	}
	if c.RegionCacheTTLSeconds < 60 {
		return fmt.Errorf("region_cache_ttl_seconds must be at least 60, got %d", c.RegionCacheTTLSeconds)
	}
	if c.DefaultEndpoint == "" {
		return fmt.Errorf("default_endpoint is required")
	}
	return nil
}

// RegionTimeout returns the per-call timeout as a duration.
func (c Config) RegionTimeout() time.Duration {
	return time.Duration(c.RegionTimeoutSeconds) * time.Second
}

// RegionCacheTTL returns the region-list cache TTL as a duration.
func (c Config) RegionCacheTTL() time.Duration {
	return time.Duration(c.RegionCacheTTLSeconds) * time.Second
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("TAGVET_MULTI_REGION_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TAGVET_MULTI_REGION_ENABLED: %w", err)
		}
		c.MultiRegionEnabled = b
	}
	for _, override := range []struct {
		env    string
		target *int
	}{
		{"TAGVET_MAX_CONCURRENT_REGIONS", &c.MaxConcurrentRegions},
		{"TAGVET_REGION_TIMEOUT_SECONDS", &c.RegionTimeoutSeconds},
		{"TAGVET_REGION_CACHE_TTL_SECONDS", &c.RegionCacheTTLSeconds},
	} {
		if v, ok := os.LookupEnv(override.env); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", override.env, err)
			}
			*override.target = n
		}
	}
	for _, override := range []struct {
		env    string
		target *string
	}{
		{"TAGVET_DEFAULT_ENDPOINT", &c.DefaultEndpoint},
		{"TAGVET_DATA_DIR", &c.DataDir},
		{"TAGVET_POLICY_FILE", &c.PolicyFile},
		{"TAGVET_LOG_LEVEL", &c.LogLevel},
		{"TAGVET_OTEL_ENDPOINT", &c.OTELEndpoint},
	} {
		if v, ok := os.LookupEnv(override.env); ok {
			*override.target = v
		}
	}
	return nil
}
