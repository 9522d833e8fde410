package types

// RegionMetadata describes how the attempted endpoint set was classified.
// Succeeded, Failed and Skipped partition the attempted set exactly; a
// target excluded by filtering before dispatch is never listed in any of
// the three.
type RegionMetadata struct {
	Attempted         int      `json:"attempted"`
	Succeeded         []string `json:"succeeded"`
	Failed            []string `json:"failed"`
	Skipped           []string `json:"skipped"`
	DiscoveryDegraded bool     `json:"discovery_degraded,omitempty"`
}

// RegionalSummary condenses one endpoint's outcome for the per-region map.
type RegionalSummary struct {
	Success        bool    `json:"success"`
	TotalCount     int     `json:"total_count"`
	CompliantCount int     `json:"compliant_count"`
	ViolationCount int     `json:"violation_count"`
	CostGap        float64 `json:"cost_gap"`
	DurationMs     int64   `json:"duration_ms"`
	Error          string  `json:"error,omitempty"`
}

// AggregatedResult is the orchestrator's output: the deterministic reduction
// of per-endpoint outcomes into one system-wide report. Built once per scan
// call and not mutated after return.
type AggregatedResult struct {
	ComplianceScore    float64                    `json:"compliance_score"`
	TotalResources     int                        `json:"total_resources"`
	CompliantResources int                        `json:"compliant_resources"`
	Resources          []ResourceRecord           `json:"resources,omitempty"`
	Violations         []ViolationRecord          `json:"violations,omitempty"`
	CostGap            float64                    `json:"cost_gap"`
	RegionMetadata     RegionMetadata             `json:"region_metadata"`
	PerRegionSummary   map[string]RegionalSummary `json:"per_region_summary"`
}
