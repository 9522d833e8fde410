package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tagvet/tagvet/telemetry"
	"github.com/tagvet/tagvet/types"
)

// tagAuditModule is the Rego rule the engine evaluates per resource. A tag
// key is missing when it is absent or carries an empty value.
const tagAuditModule = `package tagvet

import rego.v1

missing_tags contains key if {
	some key in input.required_tags
	not input.resource.tags[key]
}

missing_tags contains key if {
	some key in input.required_tags
	input.resource.tags[key] == ""
}
`

type evalResource struct {
	ID   string            `json:"id"`
	Kind string            `json:"kind"`
	Tags map[string]string `json:"tags"`
}

type evalInput struct {
	Resource     evalResource `json:"resource"`
	RequiredTags []string     `json:"required_tags"`
}

// Engine evaluates the tag policy against resources. The Rego query is
// compiled once at construction; Check is safe for concurrent use.
type Engine struct {
	policy TagPolicy
	query  rego.PreparedEvalQuery
	logger *telemetry.Logger
	tracer trace.Tracer
}

// NewEngine compiles the audit rule for the given policy.
func NewEngine(ctx context.Context, p TagPolicy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	prepared, err := rego.New(
		rego.Query("data.tagvet.missing_tags"),
		rego.Module("tag_audit.rego", tagAuditModule),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile tag audit rule: %w", err)
	}

	return &Engine{
		policy: p,
		query:  prepared,
		logger: telemetry.NewLogger("policy-engine"),
		tracer: otel.Tracer("policy-engine"),
	}, nil
}

// Policy returns the policy this engine was built with.
func (e *Engine) Policy() TagPolicy {
	return e.policy
}

// Check evaluates one resource and returns its violations, ordered by tag
// key so repeated evaluations are deterministic.
func (e *Engine) Check(ctx context.Context, r types.ResourceRecord) ([]types.ViolationRecord, error) {
	ctx, span := e.tracer.Start(ctx, "policy.check",
		trace.WithAttributes(
			attribute.String("resource.id", r.ID),
			attribute.String("resource.kind", r.Kind)))
	defer span.End()

	input := evalInput{
		Resource:     evalResource{ID: r.ID, Kind: r.Kind, Tags: r.Tags},
		RequiredTags: e.policy.RequiredTagsFor(r.Kind),
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluate tag policy for %s: %w", r.Key(), err)
	}

	missing := missingKeys(results)
	sort.Strings(missing)

	violations := make([]types.ViolationRecord, 0, len(missing))
	for _, key := range missing {
		violations = append(violations, types.ViolationRecord{
			ResourceID: r.ID,
			Kind:       r.Kind,
			Endpoint:   r.Endpoint,
			TagKey:     key,
			Severity:   e.policy.SeverityFor(key),
			Message:    fmt.Sprintf("required tag %q is missing", key),
		})
	}

	if len(violations) > 0 {
		e.logger.WithContext(ctx).Debug().
			Str("resource", r.Key()).
			Strs("missing_tags", missing).
			Msg("tag policy violations")
	}
	return violations, nil
}

// missingKeys flattens the OPA result set. The query yields a set of
// strings; OPA hands it back as []interface{}.
func missingKeys(results rego.ResultSet) []string {
	var keys []string
	for _, res := range results {
		for _, expr := range res.Expressions {
			values, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, v := range values {
				if s, ok := v.(string); ok {
					keys = append(keys, s)
				}
			}
		}
	}
	return keys
}
