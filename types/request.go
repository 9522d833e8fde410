package types

import (
	"fmt"
	"sort"
	"strings"
)

// Severity levels for tag-policy violations, lowest first.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

var severityRank = map[string]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// ValidSeverity reports whether s is a recognized severity level.
func ValidSeverity(s string) bool {
	_, ok := severityRank[s]
	return ok
}

// SeverityAtLeast reports whether s ranks at or above the threshold min.
// Unknown severities never pass.
func SeverityAtLeast(s, min string) bool {
	return severityRank[s] >= severityRank[min] && severityRank[s] > 0
}

// ScanRequest is one logical scan: which resource kinds to audit, an
// optional explicit endpoint filter, the minimum violation severity to
// report, and whether to bypass the region-list cache.
type ScanRequest struct {
	Kinds          []string `json:"kinds"`
	EndpointFilter []string `json:"endpoint_filter,omitempty"` // nil means all usable endpoints
	Severity       string   `json:"severity"`
	BypassCache    bool     `json:"bypass_cache,omitempty"`
}

// Validate checks the request is well-formed before any scanning starts.
func (r ScanRequest) Validate() error {
	if len(r.Kinds) == 0 {
		return fmt.Errorf("scan request: at least one resource kind required")
	}
	for _, k := range r.Kinds {
		if !IsKnownKind(k) {
			return fmt.Errorf("scan request: unknown resource kind %q", k)
		}
	}
	if !ValidSeverity(r.Severity) {
		return fmt.Errorf("scan request: invalid severity %q", r.Severity)
	}
	return nil
}

// CacheKey returns a deterministic key for this request. Two requests with
// identical kinds, filter and severity produce identical keys; any differing
// field produces a different key. BypassCache is deliberately excluded: it
// controls cache behavior, it does not change what is scanned.
func (r ScanRequest) CacheKey() string {
	kinds := append([]string(nil), r.Kinds...)
	sort.Strings(kinds)

	var b strings.Builder
	b.WriteString("scan:v1|kinds=")
	b.WriteString(strings.Join(kinds, ","))
	b.WriteString("|endpoints=")
	if r.EndpointFilter != nil {
		filter := append([]string(nil), r.EndpointFilter...)
		sort.Strings(filter)
		b.WriteString(strings.Join(filter, ","))
	} else {
		b.WriteString("*")
	}
	b.WriteString("|severity=")
	b.WriteString(r.Severity)
	return b.String()
}
