package tracing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/flowmatic/promptcache-go/pkg/logging"
	"github.com/flowmatic/promptcache-go/pkg/promptcache"
)

func TestTracedPlannerRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	engine := promptcache.NewEngine(promptcache.WithLogger(logging.NewNoOpLogger()))
	planner := NewTracedPlannerWithProvider(engine, provider)

	result, err := planner.Plan(context.Background(), promptcache.PlanRequest{
		SystemPrompt: strings.Repeat("abcd", 100),
		Turns: []promptcache.Turn{
			promptcache.UserTurn(strings.Repeat("abcd", 60)),
		},
		Capability: promptcache.ModelCapability{
			SupportsPromptCache:    true,
			MaxCachePoints:         4,
			MinTokensPerCachePoint: 50,
			CachableFields: []promptcache.CachableField{
				promptcache.CachableFieldSystem,
				promptcache.CachableFieldTurns,
			},
		},
		CacheEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, promptcache.StrategyMultiPoint, result.Strategy)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "promptcache.plan", span.Name())

	attributes := make(map[string]interface{})
	for _, attr := range span.Attributes() {
		attributes[string(attr.Key)] = attr.Value.AsInterface()
	}
	assert.Equal(t, true, attributes["cache.enabled"])
	assert.Equal(t, "multi_point", attributes["cache.strategy"])
	assert.Equal(t, true, attributes["cache.system_cached"])
	assert.Equal(t, int64(1), attributes["cache.turn_placements"])
}

func TestTracedPlannerPassesResultThrough(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	engine := promptcache.NewEngine(promptcache.WithLogger(logging.NewNoOpLogger()))
	planner := NewTracedPlannerWithProvider(engine, provider)

	req := promptcache.PlanRequest{
		Turns:        []promptcache.Turn{promptcache.UserTurn("hello")},
		CacheEnabled: false,
	}

	direct, err := engine.Plan(context.Background(), req)
	require.NoError(t, err)
	traced, err := planner.Plan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, direct, traced)
}
