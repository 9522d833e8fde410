package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagvet/tagvet/types"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPolicyFile(t *testing.T) {
	path := writePolicyFile(t, `
version: 1
required_tags: [owner, env, cost_center]
severity:
  owner: high
  cost_center: low
kind_overrides:
  s3:
    required_tags: [owner, data_class]
`)

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"owner", "env", "cost_center"}, p.RequiredTags)
	assert.Equal(t, []string{"owner", "data_class"}, p.RequiredTagsFor("s3"))
	assert.Equal(t, []string{"owner", "env", "cost_center"}, p.RequiredTagsFor("ec2"))
	assert.Equal(t, types.SeverityHigh, p.SeverityFor("owner"))
	assert.Equal(t, types.SeverityLow, p.SeverityFor("cost_center"))
	assert.Equal(t, types.SeverityMedium, p.SeverityFor("env"))
}

func TestLoadRejectsBadPolicies(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unsupported version", "version: 2\nrequired_tags: [owner]\n"},
		{"no required tags", "version: 1\nrequired_tags: []\n"},
		{"bad severity", "version: 1\nrequired_tags: [owner]\nseverity:\n  owner: extreme\n"},
		{"unknown override kind", "version: 1\nrequired_tags: [owner]\nkind_overrides:\n  mainframe:\n    required_tags: [owner]\n"},
		{"empty override", "version: 1\nrequired_tags: [owner]\nkind_overrides:\n  s3:\n    required_tags: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writePolicyFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultPolicyIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
