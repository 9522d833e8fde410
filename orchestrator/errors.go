package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tagvet/tagvet/types"
)

// TransientError marks a per-endpoint failure as worth retrying: throttling,
// timeouts, transport resets. Anything not wrapped in it is terminal for the
// attempt loop.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err should be retried. Attempt deadline
// expiry counts as transient even when the scanner did not classify it.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// AllRegionsFailedError reports a scan in which every dispatched endpoint
// call failed terminally. Partial carries the aggregated result built from
// the failures so callers can still inspect per-endpoint errors.
type AllRegionsFailedError struct {
	Failed  []string
	Partial *types.AggregatedResult
}

func (e *AllRegionsFailedError) Error() string {
	return fmt.Sprintf("all %d attempted endpoints failed: %s",
		len(e.Failed), strings.Join(e.Failed, ", "))
}
