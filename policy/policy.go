// Package policy defines the declarative tag policy and its OPA-backed
// evaluator.
package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tagvet/tagvet/types"
)

// KindPolicy overrides the required tag set for one resource kind.
type KindPolicy struct {
	RequiredTags []string `yaml:"required_tags"`
}

// TagPolicy is the declarative audit policy: which tag keys every resource
// must carry, per-kind overrides, and the severity reported when a key is
// missing.
type TagPolicy struct {
	Version       int                   `yaml:"version"`
	RequiredTags  []string              `yaml:"required_tags"`
	Severity      map[string]string     `yaml:"severity"`
	KindOverrides map[string]KindPolicy `yaml:"kind_overrides"`
}

// Default returns the policy used when no file is given: every resource
// needs an owner and an environment tag.
func Default() TagPolicy {
	return TagPolicy{
		Version:      1,
		RequiredTags: []string{"owner", "env"},
		Severity: map[string]string{
			"owner": types.SeverityHigh,
			"env":   types.SeverityMedium,
		},
	}
}

// Load reads and validates a policy file.
func Load(path string) (TagPolicy, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return TagPolicy{}, fmt.Errorf("read policy file: %w", err)
	}

	var p TagPolicy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return TagPolicy{}, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return TagPolicy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

// Validate checks structural soundness before the policy reaches the
// evaluator.
func (p TagPolicy) Validate() error {
	if p.Version != 1 {
		return fmt.Errorf("unsupported policy version %d", p.Version)
	}
	if len(p.RequiredTags) == 0 {
		return fmt.Errorf("required_tags must not be empty")
	}
	for key, sev := range p.Severity {
		if !types.ValidSeverity(sev) {
			return fmt.Errorf("invalid severity %q for tag %q", sev, key)
		}
	}
	for kind, override := range p.KindOverrides {
		if !types.IsKnownKind(kind) {
			return fmt.Errorf("kind_overrides: unknown resource kind %q", kind)
		}
		if len(override.RequiredTags) == 0 {
			return fmt.Errorf("kind_overrides[%s]: required_tags must not be empty", kind)
		}
	}
	return nil
}

// RequiredTagsFor returns the tag set a resource of kind must carry. An
// override replaces the base set wholesale rather than extending it.
func (p TagPolicy) RequiredTagsFor(kind string) []string {
	if override, ok := p.KindOverrides[kind]; ok {
		return override.RequiredTags
	}
	return p.RequiredTags
}

// SeverityFor returns the severity reported when tagKey is missing. Keys
// without an explicit entry default to medium.
func (p TagPolicy) SeverityFor(tagKey string) string {
	if sev, ok := p.Severity[tagKey]; ok {
		return sev
	}
	return types.SeverityMedium
}
