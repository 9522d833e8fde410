package orchestrator

import (
	"sort"

	"github.com/tagvet/tagvet/types"
)

// aggregate reduces the per-endpoint outcomes into one report. The reduction
// is deterministic: outcomes are ordered by endpoint id before merging, so
// two runs over the same outcomes produce byte-identical results regardless
// of completion order.
func aggregate(outcomes []types.RegionalScanOutcome, skipped []string, degraded bool) *types.AggregatedResult {
	sorted := append([]types.RegionalScanOutcome(nil), outcomes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Endpoint < sorted[j].Endpoint })

	skippedSorted := append([]string(nil), skipped...)
	sort.Strings(skippedSorted)

	result := &types.AggregatedResult{
		PerRegionSummary: make(map[string]types.RegionalSummary, len(sorted)),
		RegionMetadata: types.RegionMetadata{
			Attempted:         len(sorted) + len(skippedSorted),
			Skipped:           skippedSorted,
			DiscoveryDegraded: degraded,
		},
	}

	// Global-kind resources can surface from more than one call when the
	// provider mirrors them; the merged lists carry each global identity
	// once. Regional records are concatenated as-is: distinct regions may
	// reuse the same resource name.
	seenGlobalResources := make(map[string]bool)
	seenGlobalViolations := make(map[string]bool)

	for _, out := range sorted {
		result.PerRegionSummary[out.Endpoint] = types.RegionalSummary{
			Success:        out.Success,
			TotalCount:     out.TotalCount,
			CompliantCount: out.CompliantCount,
			ViolationCount: len(out.Violations),
			CostGap:        out.CostGap,
			DurationMs:     out.DurationMs,
			Error:          out.ErrorMessage,
		}

		if !out.Success {
			result.RegionMetadata.Failed = append(result.RegionMetadata.Failed, out.Endpoint)
			continue
		}
		result.RegionMetadata.Succeeded = append(result.RegionMetadata.Succeeded, out.Endpoint)

		result.TotalResources += out.TotalCount
		result.CompliantResources += out.CompliantCount
		result.CostGap += out.CostGap

		for _, r := range out.Resources {
			if types.IsGlobalKind(r.Kind) {
				if seenGlobalResources[r.Key()] {
					continue
				}
				seenGlobalResources[r.Key()] = true
			}
			result.Resources = append(result.Resources, r)
		}
		for _, v := range out.Violations {
			if types.IsGlobalKind(v.Kind) {
				if seenGlobalViolations[v.Key()] {
					continue
				}
				seenGlobalViolations[v.Key()] = true
			}
			result.Violations = append(result.Violations, v)
		}
	}

	// An empty estate is fully compliant, not a division by zero.
	if result.TotalResources > 0 {
		result.ComplianceScore = float64(result.CompliantResources) / float64(result.TotalResources)
	} else {
		result.ComplianceScore = 1.0
	}

	return result
}
