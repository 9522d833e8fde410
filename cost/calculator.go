// Package cost estimates the monthly spend attached to non-compliant
// resources.
package cost

import (
	"github.com/tagvet/tagvet/types"
)

// monthlyUSD is a static per-kind price table. Figures are rough on-demand
// monthly estimates for a typical small instance of each kind; the point is
// a comparable gap figure, not a bill.
var monthlyUSD = map[string]float64{
	types.KindEC2:            60,
	types.KindRDS:            120,
	types.KindELB:            20,
	types.KindLambda:         5,
	types.KindDynamoDB:       25,
	types.KindSQS:            1,
	types.KindEKS:            73,
	types.KindECS:            30,
	types.KindASG:            60,
	types.KindRedshift:       180,
	types.KindMemoryDB:       90,
	types.KindECR:            2,
	types.KindKMS:            1,
	types.KindCloudWatchLogs: 3,
	types.KindCloudTrail:     2,
	types.KindS3:             10,
	types.KindRoute53:        1,
	types.KindIAMRole:        0,
}

const defaultMonthlyUSD = 10

// MonthlyEstimate returns the estimated monthly spend for one resource of
// kind. Unknown kinds get a flat default rather than zero so they still
// register in the gap.
func MonthlyEstimate(kind string) float64 {
	if usd, ok := monthlyUSD[kind]; ok {
		return usd
	}
	return defaultMonthlyUSD
}

// Gap sums the monthly estimate of every resource that has at least one
// violation. A resource counts once no matter how many tags it is missing.
func Gap(resources []types.ResourceRecord, violations []types.ViolationRecord) float64 {
	flagged := make(map[string]bool, len(violations))
	for _, v := range violations {
		flagged[v.Kind+"/"+v.ResourceID] = true
	}

	var gap float64
	for _, r := range resources {
		if flagged[r.Key()] {
			gap += MonthlyEstimate(r.Kind)
		}
	}
	return gap
}
