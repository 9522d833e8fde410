package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagvet/tagvet/clientpool"
	"github.com/tagvet/tagvet/regions"
	"github.com/tagvet/tagvet/types"
)

type stubResolver struct {
	res         regions.Resolution
	err         error
	resolves    int
	invalidates int
}

func (s *stubResolver) ResolveTargets(ctx context.Context, explicitFilter []string) (regions.Resolution, error) {
	s.resolves++
	if s.err != nil {
		return regions.Resolution{}, s.err
	}
	return s.res, nil
}

func (s *stubResolver) Invalidate() {
	s.invalidates++
}

// stubScanner routes every call through fn, keyed by endpoint and kinds so
// tests can assert per-call attempt counts. It also tracks the peak number
// of concurrent calls.
type stubScanner struct {
	fn    func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error)
	delay time.Duration

	mu       sync.Mutex
	attempts map[string]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *stubScanner) ScanRegion(ctx context.Context, handle *clientpool.Handle, kinds []string, severity string) (types.RegionalScanOutcome, error) {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if cur <= seen || s.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	key := handle.Endpoint() + "|" + strings.Join(kinds, ",")
	s.mu.Lock()
	if s.attempts == nil {
		s.attempts = make(map[string]int)
	}
	s.attempts[key]++
	attempt := s.attempts[key]
	s.mu.Unlock()

	return s.fn(handle.Endpoint(), kinds, attempt)
}

func (s *stubScanner) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.attempts {
		total += n
	}
	return total
}

func newTestOrchestrator(resolver *stubResolver, scanner *stubScanner, opts Options) *Orchestrator {
	if opts.DefaultEndpoint == "" {
		opts.DefaultEndpoint = "us-east-1"
	}
	opts.BackoffBase = time.Millisecond
	return New(resolver, clientpool.NewPool(aws.Config{}), scanner, opts)
}

func resource(kind, id, endpoint string) types.ResourceRecord {
	return types.ResourceRecord{ID: id, Kind: kind, Endpoint: endpoint, Tags: map[string]string{}}
}

func TestScanAggregatesAcrossEndpoints(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{
		Targets: []string{"us-east-1", "eu-west-1", "ap-south-1"},
		Source:  "provider",
	}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{
			Success:        true,
			Resources:      []types.ResourceRecord{resource("ec2", "i-"+endpoint, endpoint)},
			TotalCount:     2,
			CompliantCount: 1,
			CostGap:        10,
		}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	result, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2"}, Severity: "low"})
	require.NoError(t, err)

	assert.Equal(t, 3, result.RegionMetadata.Attempted)
	assert.Equal(t, []string{"ap-south-1", "eu-west-1", "us-east-1"}, result.RegionMetadata.Succeeded)
	assert.Empty(t, result.RegionMetadata.Failed)
	assert.Equal(t, 6, result.TotalResources)
	assert.Equal(t, 3, result.CompliantResources)
	assert.InDelta(t, 0.5, result.ComplianceScore, 1e-9)
	assert.InDelta(t, 30.0, result.CostGap, 1e-9)
	assert.Len(t, result.Resources, 3)
	assert.Len(t, result.PerRegionSummary, 3)
}

func TestScanPartialFailureIsolated(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1", "eu-west-1"}}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		if endpoint == "eu-west-1" {
			return types.RegionalScanOutcome{}, errors.New("access denied")
		}
		return types.RegionalScanOutcome{Success: true, TotalCount: 4, CompliantCount: 4}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	result, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2"}, Severity: "low"})
	require.NoError(t, err)

	assert.Equal(t, []string{"us-east-1"}, result.RegionMetadata.Succeeded)
	assert.Equal(t, []string{"eu-west-1"}, result.RegionMetadata.Failed)
	assert.Equal(t, 4, result.TotalResources)
	assert.InDelta(t, 1.0, result.ComplianceScore, 1e-9)

	summary := result.PerRegionSummary["eu-west-1"]
	assert.False(t, summary.Success)
	assert.Contains(t, summary.Error, "access denied")
}

func TestScanAllRegionsFailed(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1", "eu-west-1"}}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{}, errors.New("credentials expired")
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	result, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2"}, Severity: "low"})
	require.Error(t, err)

	var allFailed *AllRegionsFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Equal(t, []string{"eu-west-1", "us-east-1"}, allFailed.Failed)

	// The partial result is still usable for per-endpoint diagnostics.
	require.NotNil(t, result)
	assert.Same(t, result, allFailed.Partial)
	assert.Equal(t, 2, result.RegionMetadata.Attempted)
	assert.Len(t, result.PerRegionSummary, 2)
}

func TestScanRetriesTransientThenSucceeds(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1"}}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		if attempt < 3 {
			return types.RegionalScanOutcome{}, Transient(errors.New("throttled"))
		}
		return types.RegionalScanOutcome{Success: true, TotalCount: 1, CompliantCount: 1}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	result, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2"}, Severity: "low"})
	require.NoError(t, err)

	assert.Equal(t, 3, scanner.totalCalls())
	assert.Equal(t, []string{"us-east-1"}, result.RegionMetadata.Succeeded)
}

func TestScanTransientExhaustsAttempts(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1"}}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{}, Transient(errors.New("throttled"))
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	_, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2"}, Severity: "low"})

	var allFailed *AllRegionsFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Equal(t, 3, scanner.totalCalls())
}

func TestScanTerminalErrorNotRetried(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1"}}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{}, errors.New("access denied")
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	_, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2"}, Severity: "low"})

	require.Error(t, err)
	assert.Equal(t, 1, scanner.totalCalls())
}

func TestScanGlobalKindsSingleCall(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1", "eu-west-1"}}}
	var globalCalls atomic.Int32
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		if kinds[0] == "s3" {
			globalCalls.Add(1)
			return types.RegionalScanOutcome{
				Success:    true,
				Resources:  []types.ResourceRecord{resource("s3", "audit-logs", types.GlobalEndpoint)},
				TotalCount: 1,
			}, nil
		}
		return types.RegionalScanOutcome{Success: true, TotalCount: 1, CompliantCount: 1}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	result, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2", "s3"}, Severity: "low"})
	require.NoError(t, err)

	// Two regional calls plus exactly one system-wide call for the global
	// kind, reported under its own label.
	assert.Equal(t, int32(1), globalCalls.Load())
	assert.Equal(t, 3, result.RegionMetadata.Attempted)
	assert.Contains(t, result.RegionMetadata.Succeeded, types.GlobalEndpoint)
	assert.Contains(t, result.PerRegionSummary, types.GlobalEndpoint)
}

func TestScanOnlyGlobalKinds(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1", "eu-west-1"}}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{Success: true, TotalCount: 2, CompliantCount: 2}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	result, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"s3", "iam_role"}, Severity: "low"})
	require.NoError(t, err)

	// No regional kinds, so no per-target tasks at all.
	assert.Equal(t, 1, result.RegionMetadata.Attempted)
	assert.Equal(t, []string{types.GlobalEndpoint}, result.RegionMetadata.Succeeded)
	assert.Equal(t, 1, scanner.totalCalls())
}

func TestScanDisabledModeSingleCombinedCall(t *testing.T) {
	resolver := &stubResolver{}
	var seenKinds []string
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		seenKinds = kinds
		return types.RegionalScanOutcome{Success: true, TotalCount: 1, CompliantCount: 1}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: false})

	result, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2", "s3"}, Severity: "low"})
	require.NoError(t, err)

	// Disabled mode never consults discovery and issues one combined call
	// covering regional and global kinds alike.
	assert.Equal(t, 0, resolver.resolves)
	assert.Equal(t, 1, result.RegionMetadata.Attempted)
	assert.Equal(t, []string{"us-east-1"}, result.RegionMetadata.Succeeded)
	assert.Equal(t, []string{"ec2", "s3"}, seenKinds)
}

func TestScanDisabledModeIgnoresEndpointFilter(t *testing.T) {
	resolver := &stubResolver{}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{Success: true, TotalCount: 1, CompliantCount: 1}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: false})

	// The filter names other endpoints entirely; the scan still pins to the
	// configured default.
	result, err := o.Scan(context.Background(), types.ScanRequest{
		Kinds:          []string{"ec2"},
		EndpointFilter: []string{"a", "b"},
		Severity:       "low",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, resolver.resolves)
	assert.Equal(t, 1, result.RegionMetadata.Attempted)
	assert.Equal(t, []string{"us-east-1"}, result.RegionMetadata.Succeeded)
}

func TestScanInvalidTargetFailsFast(t *testing.T) {
	resolver := &stubResolver{err: &regions.InvalidTargetError{Invalid: []string{"mars-1"}, Reason: "unknown or opted-out endpoints"}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{Success: true}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	result, err := o.Scan(context.Background(), types.ScanRequest{
		Kinds:          []string{"ec2"},
		EndpointFilter: []string{"mars-1"},
		Severity:       "low",
	})

	var invalid *regions.InvalidTargetError
	require.ErrorAs(t, err, &invalid)
	assert.Nil(t, result)
	assert.Equal(t, 0, scanner.totalCalls(), "no scanning before validation passes")
}

func TestScanInvalidRequestRejected(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1"}}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{Success: true}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	_, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"floppy_disk"}, Severity: "low"})
	require.Error(t, err)
	assert.Equal(t, 0, resolver.resolves)
}

func TestScanBypassCacheInvalidatesDirectory(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1"}}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{Success: true}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	_, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2"}, Severity: "low", BypassCache: true})
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.invalidates)
}

func TestScanEmptyEstateFullyCompliant(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1", "eu-west-1"}}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{Success: true}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	result, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2"}, Severity: "low"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalResources)
	assert.InDelta(t, 1.0, result.ComplianceScore, 1e-9)
	assert.Len(t, result.RegionMetadata.Succeeded, 2)
}

func TestScanConcurrencyBounded(t *testing.T) {
	targets := []string{"a-1", "b-1", "c-1", "d-1", "e-1", "f-1", "g-1", "h-1"}
	resolver := &stubResolver{res: regions.Resolution{Targets: targets}}
	scanner := &stubScanner{
		delay: 10 * time.Millisecond,
		fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
			return types.RegionalScanOutcome{Success: true}, nil
		},
	}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true, MaxConcurrentRegions: 2})

	_, err := o.Scan(context.Background(), types.ScanRequest{Kinds: []string{"ec2"}, Severity: "low"})
	require.NoError(t, err)

	assert.LessOrEqual(t, scanner.maxSeen.Load(), int32(2))
	assert.Equal(t, len(targets), scanner.totalCalls())
}

func TestScanCancelledContextSkipsTasks(t *testing.T) {
	resolver := &stubResolver{res: regions.Resolution{Targets: []string{"us-east-1", "eu-west-1", "ap-south-1"}}}
	scanner := &stubScanner{fn: func(endpoint string, kinds []string, attempt int) (types.RegionalScanOutcome, error) {
		return types.RegionalScanOutcome{Success: true}, nil
	}}
	o := newTestOrchestrator(resolver, scanner, Options{MultiRegionEnabled: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Scan(ctx, types.ScanRequest{Kinds: []string{"ec2"}, Severity: "low"})
	require.NoError(t, err)

	assert.Equal(t, 0, scanner.totalCalls())
	assert.Equal(t, 3, result.RegionMetadata.Attempted)
	assert.Len(t, result.RegionMetadata.Skipped, 3)
	assert.Empty(t, result.RegionMetadata.Succeeded)
	assert.Empty(t, result.RegionMetadata.Failed)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(Transient(errors.New("throttled"))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(errors.New("access denied")))
	assert.False(t, IsTransient(nil))
}
