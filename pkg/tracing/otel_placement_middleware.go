// Package tracing provides an OpenTelemetry middleware for the placement
// engine. Spans record which strategy ran and how many markers it placed,
// so cache behavior can be correlated with provider-reported cache hits.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowmatic/promptcache-go/pkg/promptcache"
)

const tracerName = "github.com/flowmatic/promptcache-go/pkg/tracing"

// Planner is the slice of the engine this middleware wraps.
type Planner interface {
	Plan(ctx context.Context, req promptcache.PlanRequest) (promptcache.CacheResult, error)
}

// TracedPlanner wraps a Planner with OpenTelemetry spans.
type TracedPlanner struct {
	planner Planner
	tracer  trace.Tracer
}

// NewTracedPlanner creates a traced wrapper around a placement engine,
// using the globally registered tracer provider.
func NewTracedPlanner(planner Planner) *TracedPlanner {
	return &TracedPlanner{
		planner: planner,
		tracer:  otel.Tracer(tracerName),
	}
}

// NewTracedPlannerWithProvider creates a traced wrapper using an explicit
// tracer provider.
func NewTracedPlannerWithProvider(planner Planner, provider trace.TracerProvider) *TracedPlanner {
	return &TracedPlanner{
		planner: planner,
		tracer:  provider.Tracer(tracerName),
	}
}

// Plan computes placements under a span. Tracing never fails the request:
// errors from the wrapped planner pass through unchanged, and span
// recording has no error path of its own.
func (t *TracedPlanner) Plan(ctx context.Context, req promptcache.PlanRequest) (promptcache.CacheResult, error) {
	ctx, span := t.tracer.Start(ctx, "promptcache.plan", trace.WithAttributes(
		attribute.Bool("cache.enabled", req.CacheEnabled),
		attribute.Int("cache.turn_count", len(req.Turns)),
		attribute.Int("cache.max_points", req.Capability.MaxCachePoints),
	))
	defer span.End()

	result, err := t.planner.Plan(ctx, req)

	span.SetAttributes(
		attribute.String("cache.strategy", result.Strategy.String()),
		attribute.Bool("cache.system_cached", result.SystemCached),
		attribute.Int("cache.turn_placements", len(result.UpdatedPlacements)),
	)
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}
