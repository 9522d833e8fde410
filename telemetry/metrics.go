package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Scan metrics, following OTEL naming conventions. Nil until InitOTEL runs;
// the record helpers below are no-ops in that case so library code never
// depends on telemetry being wired.
var (
	ScanDuration     metric.Float64Histogram
	RegionsAttempted metric.Int64Counter
	RegionsFailed    metric.Int64Counter
	RegionRetries    metric.Int64Counter
	ResourcesScanned metric.Int64Counter
	ViolationsFound  metric.Int64Counter
)

func initMetrics() error {
	var err error

	ScanDuration, err = Meter.Float64Histogram(
		"tagvet_scan_duration_seconds",
		metric.WithDescription("End-to-end duration of one logical scan"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create scan_duration histogram: %w", err)
	}

	RegionsAttempted, err = Meter.Int64Counter(
		"tagvet_regions_attempted_total",
		metric.WithDescription("Per-endpoint scan calls dispatched"),
	)
	if err != nil {
		return fmt.Errorf("create regions_attempted counter: %w", err)
	}

	RegionsFailed, err = Meter.Int64Counter(
		"tagvet_regions_failed_total",
		metric.WithDescription("Per-endpoint scan calls that failed terminally"),
	)
	if err != nil {
		return fmt.Errorf("create regions_failed counter: %w", err)
	}

	RegionRetries, err = Meter.Int64Counter(
		"tagvet_region_retries_total",
		metric.WithDescription("Transient per-endpoint failures that were retried"),
	)
	if err != nil {
		return fmt.Errorf("create region_retries counter: %w", err)
	}

	ResourcesScanned, err = Meter.Int64Counter(
		"tagvet_resources_scanned_total",
		metric.WithDescription("Resources audited across all endpoints"),
	)
	if err != nil {
		return fmt.Errorf("create resources_scanned counter: %w", err)
	}

	ViolationsFound, err = Meter.Int64Counter(
		"tagvet_violations_total",
		metric.WithDescription("Tag policy violations reported"),
	)
	if err != nil {
		return fmt.Errorf("create violations counter: %w", err)
	}

	return nil
}

// RecordScan records the aggregate metrics for one completed scan.
func RecordScan(ctx context.Context, seconds float64, attempted, failed, resources, violations int) {
	if ScanDuration == nil {
		return
	}
	ScanDuration.Record(ctx, seconds)
	RegionsAttempted.Add(ctx, int64(attempted))
	RegionsFailed.Add(ctx, int64(failed))
	ResourcesScanned.Add(ctx, int64(resources))
	ViolationsFound.Add(ctx, int64(violations))
}

// RecordRetry counts one retried transient failure for an endpoint.
func RecordRetry(ctx context.Context, endpoint string) {
	if RegionRetries == nil {
		return
	}
	RegionRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}
