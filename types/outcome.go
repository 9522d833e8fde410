package types

import "fmt"

// RegionalScanOutcome is the result of scanning exactly one endpoint for one
// logical request. Created by the per-endpoint scan collaborator, immutable,
// consumed exactly once by aggregation.
type RegionalScanOutcome struct {
	Endpoint       string            `json:"endpoint"`
	Success        bool              `json:"success"`
	Resources      []ResourceRecord  `json:"resources,omitempty"`
	Violations     []ViolationRecord `json:"violations,omitempty"`
	CompliantCount int               `json:"compliant_count"`
	TotalCount     int               `json:"total_count"`
	CostGap        float64           `json:"cost_gap"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	DurationMs     int64             `json:"duration_ms"`
}

// FailedOutcome builds the terminal-failure outcome for one endpoint.
// Failed outcomes carry no resources or violations.
func FailedOutcome(endpoint string, err error, durationMs int64) RegionalScanOutcome {
	return RegionalScanOutcome{
		Endpoint:     endpoint,
		Success:      false,
		ErrorMessage: err.Error(),
		DurationMs:   durationMs,
	}
}

// Validate checks the outcome invariants: success implies no error message,
// failure implies empty resource and violation lists.
func (o RegionalScanOutcome) Validate() error {
	if o.Success && o.ErrorMessage != "" {
		return fmt.Errorf("outcome for %s: success with error message %q", o.Endpoint, o.ErrorMessage)
	}
	if !o.Success && (len(o.Resources) > 0 || len(o.Violations) > 0) {
		return fmt.Errorf("outcome for %s: failure carrying %d resources and %d violations",
			o.Endpoint, len(o.Resources), len(o.Violations))
	}
	return nil
}
