package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tagvet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.MultiRegionEnabled)
	assert.Equal(t, 5, cfg.MaxConcurrentRegions)
	assert.Equal(t, 60, cfg.RegionTimeoutSeconds)
	assert.Equal(t, 3600, cfg.RegionCacheTTLSeconds)
	assert.Equal(t, "us-east-1", cfg.DefaultEndpoint)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "max_concurrent_regions: 10\ndefault_endpoint: eu-west-1\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxConcurrentRegions)
	assert.Equal(t, "eu-west-1", cfg.DefaultEndpoint)
	assert.Equal(t, 60, cfg.RegionTimeoutSeconds, "unset option keeps its default")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "max_concurrent_regions: 10\n")
	t.Setenv("TAGVET_MAX_CONCURRENT_REGIONS", "3")
	t.Setenv("TAGVET_MULTI_REGION_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxConcurrentRegions)
	assert.False(t, cfg.MultiRegionEnabled)
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"too many concurrent regions", "max_concurrent_regions: 21\n"},
		{"zero concurrent regions", "max_concurrent_regions: 0\n"},
		{"timeout too short", "region_timeout_seconds: 5\n"},
		{"timeout too long", "region_timeout_seconds: 301\n"},
		{"ttl too short", "region_cache_ttl_seconds: 30\n"},
		{"missing default endpoint", "default_endpoint: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsBadEnvValues(t *testing.T) {
	t.Setenv("TAGVET_REGION_TIMEOUT_SECONDS", "soon")
	_, err := Load("")
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "1m0s", cfg.RegionTimeout().String())
	assert.Equal(t, "1h0m0s", cfg.RegionCacheTTL().String())
}
