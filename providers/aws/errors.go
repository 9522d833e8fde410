package aws

import (
	"context"
	"errors"
	"net"

	"github.com/aws/smithy-go"

	"github.com/tagvet/tagvet/orchestrator"
)

// throttleCodes are the API error codes AWS uses for rate limiting across
// services.
var throttleCodes = map[string]bool{
	"Throttling":                true,
	"ThrottlingException":       true,
	"ThrottledException":        true,
	"RequestThrottled":          true,
	"RequestThrottledException": true,
	"RequestLimitExceeded":      true,
	"TooManyRequestsException":  true,
	"SlowDown":                  true,
}

// classify wraps retryable provider failures so the attempt loop upstream
// retries them: throttling, network timeouts, and attempt deadline expiry.
// Everything else passes through unchanged and fails the endpoint call
// terminally.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && throttleCodes[apiErr.ErrorCode()] {
		return orchestrator.Transient(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return orchestrator.Transient(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return orchestrator.Transient(err)
	}

	return err
}
