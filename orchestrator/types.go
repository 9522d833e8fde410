// Package orchestrator fans one logical scan out across endpoints and
// reduces the per-endpoint outcomes into a single deterministic report.
package orchestrator

import (
	"context"
	"time"

	"github.com/tagvet/tagvet/clientpool"
	"github.com/tagvet/tagvet/regions"
	"github.com/tagvet/tagvet/types"
)

// RegionScanner performs the scan work for one endpoint: enumerate the
// requested resource kinds, evaluate the tag policy, and build the outcome.
// Implementations must be safe for concurrent use across endpoints.
type RegionScanner interface {
	ScanRegion(ctx context.Context, handle *clientpool.Handle, kinds []string, severity string) (types.RegionalScanOutcome, error)
}

// TargetResolver resolves which endpoints a scan should cover. Satisfied by
// *regions.Directory.
type TargetResolver interface {
	ResolveTargets(ctx context.Context, explicitFilter []string) (regions.Resolution, error)
	Invalidate()
}

const (
	defaultMaxConcurrentRegions = 5
	defaultRegionTimeout        = 60 * time.Second
	defaultMaxAttempts          = 3
	defaultBackoffBase          = 500 * time.Millisecond
)

// Options tune the fan-out. Zero values fall back to the defaults above.
type Options struct {
	// MultiRegionEnabled selects the fan-out path. When false the scan is
	// one combined call against a single endpoint.
	MultiRegionEnabled bool

	// MaxConcurrentRegions bounds in-flight per-endpoint calls.
	MaxConcurrentRegions int

	// RegionTimeout bounds each individual call attempt.
	RegionTimeout time.Duration

	// DefaultEndpoint hosts global-kind calls and single-endpoint scans.
	DefaultEndpoint string

	// MaxAttempts and BackoffBase control retries on transient failures:
	// the wait doubles after every failed attempt.
	MaxAttempts int
	BackoffBase time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrentRegions <= 0 {
		o.MaxConcurrentRegions = defaultMaxConcurrentRegions
	}
	if o.RegionTimeout <= 0 {
		o.RegionTimeout = defaultRegionTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = defaultBackoffBase
	}
	return o
}
