// Package aws implements the per-endpoint scan against AWS service APIs.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tagvet/tagvet/clientpool"
	"github.com/tagvet/tagvet/cost"
	"github.com/tagvet/tagvet/policy"
	"github.com/tagvet/tagvet/telemetry"
	"github.com/tagvet/tagvet/types"
)

// listFunc enumerates one resource kind using a region-pinned configuration.
type listFunc func(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error)

// listers maps every supported kind to its enumeration function. Global
// kinds report types.GlobalEndpoint on their records regardless of which
// region hosted the call.
var listers = map[string]listFunc{
	types.KindEC2:            listEC2Instances,
	types.KindASG:            listAutoScalingGroups,
	types.KindLambda:         listLambdaFunctions,
	types.KindECS:            listECSClusters,
	types.KindEKS:            listEKSClusters,
	types.KindRDS:            listRDSInstances,
	types.KindDynamoDB:       listDynamoDBTables,
	types.KindRedshift:       listRedshiftClusters,
	types.KindMemoryDB:       listMemoryDBClusters,
	types.KindELB:            listLoadBalancers,
	types.KindSQS:            listSQSQueues,
	types.KindRoute53:        listRoute53HostedZones,
	types.KindECR:            listECRRepositories,
	types.KindS3:             listS3Buckets,
	types.KindKMS:            listKMSKeys,
	types.KindIAMRole:        listIAMRoles,
	types.KindCloudWatchLogs: listLogGroups,
	types.KindCloudTrail:     listTrails,
}

// Scanner performs the scan work for one endpoint: enumerate the requested
// kinds, evaluate the tag policy, and assemble the outcome. Safe for
// concurrent use across endpoints.
type Scanner struct {
	engine *policy.Engine
	logger *telemetry.Logger
	tracer trace.Tracer
}

// NewScanner creates a scanner that audits resources against engine's
// policy.
func NewScanner(engine *policy.Engine) *Scanner {
	return &Scanner{
		engine: engine,
		logger: telemetry.NewLogger("aws-scanner"),
		tracer: otel.Tracer("aws-scanner"),
	}
}

// ScanRegion enumerates kinds through the handle's configuration and checks
// every found resource against the tag policy. Violations below severity
// are dropped before counting, so a resource whose only findings are
// filtered out counts as compliant.
func (s *Scanner) ScanRegion(ctx context.Context, handle *clientpool.Handle, kinds []string, severity string) (types.RegionalScanOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "aws.scan_region",
		trace.WithAttributes(
			attribute.String("endpoint", handle.Endpoint()),
			attribute.StringSlice("kinds", kinds)))
	defer span.End()

	cfg := handle.Config()

	var resources []types.ResourceRecord
	for _, kind := range kinds {
		list, ok := listers[kind]
		if !ok {
			return types.RegionalScanOutcome{}, fmt.Errorf("no lister for resource kind %q", kind)
		}
		found, err := list(ctx, cfg)
		if err != nil {
			return types.RegionalScanOutcome{}, classify(fmt.Errorf("list %s in %s: %w", kind, handle.Endpoint(), err))
		}
		resources = append(resources, found...)
	}

	var violations []types.ViolationRecord
	flagged := make(map[string]bool)
	for _, r := range resources {
		found, err := s.engine.Check(ctx, r)
		if err != nil {
			return types.RegionalScanOutcome{}, fmt.Errorf("check %s: %w", r.Key(), err)
		}
		for _, v := range found {
			if !types.SeverityAtLeast(v.Severity, severity) {
				continue
			}
			violations = append(violations, v)
			flagged[r.Key()] = true
		}
	}

	s.logger.WithContext(ctx).Debug().
		Str("endpoint", handle.Endpoint()).
		Int("resources", len(resources)).
		Int("violations", len(violations)).
		Msg("endpoint scan finished")

	return types.RegionalScanOutcome{
		Endpoint:       handle.Endpoint(),
		Success:        true,
		Resources:      resources,
		Violations:     violations,
		TotalCount:     len(resources),
		CompliantCount: len(resources) - len(flagged),
		CostGap:        cost.Gap(resources, violations),
	}, nil
}
