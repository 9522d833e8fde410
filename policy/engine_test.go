package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagvet/tagvet/types"
)

func newTestEngine(t *testing.T, p TagPolicy) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), p)
	require.NoError(t, err)
	return engine
}

func TestCheckCompliantResource(t *testing.T) {
	engine := newTestEngine(t, Default())

	violations, err := engine.Check(context.Background(), types.ResourceRecord{
		ID:       "i-123",
		Kind:     "ec2",
		Endpoint: "us-east-1",
		Tags:     map[string]string{"owner": "platform", "env": "prod"},
	})

	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCheckReportsMissingTags(t *testing.T) {
	engine := newTestEngine(t, Default())

	violations, err := engine.Check(context.Background(), types.ResourceRecord{
		ID:       "i-123",
		Kind:     "ec2",
		Endpoint: "us-east-1",
		Tags:     map[string]string{},
	})

	require.NoError(t, err)
	require.Len(t, violations, 2)

	// Ordered by tag key for deterministic output.
	assert.Equal(t, "env", violations[0].TagKey)
	assert.Equal(t, types.SeverityMedium, violations[0].Severity)
	assert.Equal(t, "owner", violations[1].TagKey)
	assert.Equal(t, types.SeverityHigh, violations[1].Severity)
	assert.Equal(t, "us-east-1", violations[0].Endpoint)
}

func TestCheckEmptyValueCountsAsMissing(t *testing.T) {
	engine := newTestEngine(t, Default())

	violations, err := engine.Check(context.Background(), types.ResourceRecord{
		ID:   "i-123",
		Kind: "ec2",
		Tags: map[string]string{"owner": "", "env": "prod"},
	})

	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "owner", violations[0].TagKey)
}

func TestCheckKindOverrideReplacesBaseSet(t *testing.T) {
	p := Default()
	p.KindOverrides = map[string]KindPolicy{
		"s3": {RequiredTags: []string{"data_class"}},
	}
	engine := newTestEngine(t, p)

	// The override replaces the base set: an s3 bucket without owner or env
	// but with data_class is compliant.
	violations, err := engine.Check(context.Background(), types.ResourceRecord{
		ID:   "audit-logs",
		Kind: "s3",
		Tags: map[string]string{"data_class": "internal"},
	})

	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCheckUnlistedTagDefaultsToMedium(t *testing.T) {
	p := TagPolicy{Version: 1, RequiredTags: []string{"cost_center"}}
	engine := newTestEngine(t, p)

	violations, err := engine.Check(context.Background(), types.ResourceRecord{
		ID:   "i-123",
		Kind: "ec2",
	})

	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, types.SeverityMedium, violations[0].Severity)
}

func TestNewEngineRejectsInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), TagPolicy{Version: 1})
	assert.Error(t, err)
}
