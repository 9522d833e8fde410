package orchestrator

import (
	"context"
	"time"

	"github.com/tagvet/tagvet/clientpool"
	"github.com/tagvet/tagvet/telemetry"
	"github.com/tagvet/tagvet/types"
)

// Orchestrator coordinates one logical scan: resolve targets, fan out
// per-endpoint calls with bounded concurrency, and aggregate the outcomes.
// Safe for concurrent use; each Scan call is independent.
type Orchestrator struct {
	directory TargetResolver
	pool      *clientpool.Pool
	scanner   RegionScanner
	opts      Options
	logger    *telemetry.Logger
}

// New creates an orchestrator. Zero-valued option fields take their
// defaults.
func New(directory TargetResolver, pool *clientpool.Pool, scanner RegionScanner, opts Options) *Orchestrator {
	return &Orchestrator{
		directory: directory,
		pool:      pool,
		scanner:   scanner,
		opts:      opts.withDefaults(),
		logger:    telemetry.NewLogger("orchestrator"),
	}
}

// Scan runs one logical scan and returns the aggregated result. Partial
// endpoint failures are reported inside the result; the error return is
// reserved for request validation, target resolution, and the case where
// every dispatched call failed (AllRegionsFailedError, which still carries
// the partial result).
func (o *Orchestrator) Scan(ctx context.Context, req types.ScanRequest) (*types.AggregatedResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.BypassCache {
		o.directory.Invalidate()
	}

	if !o.opts.MultiRegionEnabled {
		return o.scanSingle(ctx, req, start)
	}

	resolution, err := o.directory.ResolveTargets(ctx, req.EndpointFilter)
	if err != nil {
		return nil, err
	}

	regional, global := types.PartitionKinds(req.Kinds)

	var tasks []scanTask
	if len(regional) > 0 {
		for _, endpoint := range resolution.Targets {
			tasks = append(tasks, scanTask{
				label:  endpoint,
				handle: o.pool.Get(endpoint),
				kinds:  regional,
			})
		}
	}
	if len(global) > 0 {
		// Global kinds are queried once system-wide, against the default
		// endpoint, under their own label.
		tasks = append(tasks, scanTask{
			label:  types.GlobalEndpoint,
			handle: o.pool.Get(o.opts.DefaultEndpoint),
			kinds:  global,
		})
	}

	o.logger.WithContext(ctx).Info().
		Int("tasks", len(tasks)).
		Int("targets", len(resolution.Targets)).
		Bool("discovery_degraded", resolution.Degraded).
		Str("discovery_source", resolution.Source).
		Msg("dispatching scan")

	outcomes, skipped := o.fanOut(ctx, tasks, req.Severity)
	result := aggregate(outcomes, skipped, resolution.Degraded)
	o.record(ctx, start, result)

	return o.finish(result)
}

// scanSingle is the multi-region-disabled path: one combined call covering
// every requested kind, pinned to the configured default endpoint. An
// explicit endpoint filter is ignored in this mode.
func (o *Orchestrator) scanSingle(ctx context.Context, req types.ScanRequest, start time.Time) (*types.AggregatedResult, error) {
	target := o.opts.DefaultEndpoint
	task := scanTask{label: target, handle: o.pool.Get(target), kinds: req.Kinds}
	outcomes, skipped := o.fanOut(ctx, []scanTask{task}, req.Severity)
	result := aggregate(outcomes, skipped, false)
	o.record(ctx, start, result)

	return o.finish(result)
}

func (o *Orchestrator) finish(result *types.AggregatedResult) (*types.AggregatedResult, error) {
	meta := result.RegionMetadata
	if len(meta.Succeeded) == 0 && len(meta.Failed) > 0 {
		return result, &AllRegionsFailedError{Failed: meta.Failed, Partial: result}
	}
	return result, nil
}

func (o *Orchestrator) record(ctx context.Context, start time.Time, result *types.AggregatedResult) {
	meta := result.RegionMetadata
	telemetry.RecordScan(ctx, time.Since(start).Seconds(),
		meta.Attempted, len(meta.Failed), result.TotalResources, len(result.Violations))

	o.logger.WithContext(ctx).Info().
		Int("attempted", meta.Attempted).
		Int("succeeded", len(meta.Succeeded)).
		Int("failed", len(meta.Failed)).
		Int("skipped", len(meta.Skipped)).
		Int("resources", result.TotalResources).
		Int("violations", len(result.Violations)).
		Float64("compliance_score", result.ComplianceScore).
		Dur("duration", time.Since(start)).
		Msg("scan complete")
}
