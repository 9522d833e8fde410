package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ScanRequest
		wantErr bool
	}{
		{"valid", ScanRequest{Kinds: []string{KindEC2}, Severity: SeverityLow}, false},
		{"no kinds", ScanRequest{Severity: SeverityLow}, true},
		{"unknown kind", ScanRequest{Kinds: []string{"floppy"}, Severity: SeverityLow}, true},
		{"bad severity", ScanRequest{Kinds: []string{KindEC2}, Severity: "urgent"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCacheKeyDeterminism(t *testing.T) {
	a := ScanRequest{Kinds: []string{KindRDS, KindEC2}, EndpointFilter: []string{"us-west-2", "us-east-1"}, Severity: SeverityHigh}
	b := ScanRequest{Kinds: []string{KindEC2, KindRDS}, EndpointFilter: []string{"us-east-1", "us-west-2"}, Severity: SeverityHigh}

	// Order of kinds and filter entries must not matter.
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	// Any differing field produces a different key.
	c := a
	c.Severity = SeverityLow
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())

	d := a
	d.Kinds = []string{KindEC2}
	assert.NotEqual(t, a.CacheKey(), d.CacheKey())

	e := a
	e.EndpointFilter = nil
	assert.NotEqual(t, a.CacheKey(), e.CacheKey())
}

func TestCacheKeyIgnoresBypassFlag(t *testing.T) {
	a := ScanRequest{Kinds: []string{KindEC2}, Severity: SeverityLow}
	b := a
	b.BypassCache = true

	require.Equal(t, a.CacheKey(), b.CacheKey())
}

func TestSeverityAtLeast(t *testing.T) {
	assert.True(t, SeverityAtLeast(SeverityHigh, SeverityLow))
	assert.True(t, SeverityAtLeast(SeverityMedium, SeverityMedium))
	assert.False(t, SeverityAtLeast(SeverityLow, SeverityHigh))
	assert.False(t, SeverityAtLeast("unknown", SeverityLow))
}
