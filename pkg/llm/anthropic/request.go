package anthropic

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowmatic/promptcache-go/pkg/logging"
	"github.com/flowmatic/promptcache-go/pkg/modelinfo"
	"github.com/flowmatic/promptcache-go/pkg/promptcache"
)

// DefaultMaxTokens is the completion budget used when none is supplied.
const DefaultMaxTokens = 4096

// RequestBuilder assembles cache-aware Bedrock request bodies: it resolves
// the model's cache capability, runs the placement engine over the
// conversation, and folds the resulting markers into the wire format. The
// engine's store carries placement state, so markers stay stable as the
// same conversation grows across calls.
type RequestBuilder struct {
	engine    *promptcache.Engine
	catalog   *modelinfo.Catalog
	overrides modelinfo.Overrides
	cacheTTL  string
	logger    logging.Logger
}

// BuilderOption configures a RequestBuilder.
type BuilderOption func(*RequestBuilder)

// WithCatalog sets the model capability catalog.
func WithCatalog(catalog *modelinfo.Catalog) BuilderOption {
	return func(b *RequestBuilder) {
		b.catalog = catalog
	}
}

// WithOverrides sets capability overrides applied after catalog lookup.
func WithOverrides(overrides modelinfo.Overrides) BuilderOption {
	return func(b *RequestBuilder) {
		b.overrides = overrides
	}
}

// WithCacheTTL sets the cache_control TTL ("5m" or "1h") for emitted markers.
func WithCacheTTL(ttl string) BuilderOption {
	return func(b *RequestBuilder) {
		b.cacheTTL = ttl
	}
}

// WithBuilderLogger sets the logger.
func WithBuilderLogger(logger logging.Logger) BuilderOption {
	return func(b *RequestBuilder) {
		b.logger = logger
	}
}

// NewRequestBuilder creates a RequestBuilder around a placement engine.
func NewRequestBuilder(engine *promptcache.Engine, opts ...BuilderOption) *RequestBuilder {
	builder := &RequestBuilder{
		engine:  engine,
		catalog: modelinfo.NewCatalog(),
		logger:  logging.New(),
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder
}

// BuildInput carries one request's worth of conversation and sampling
// parameters.
type BuildInput struct {
	// ModelID is the Bedrock model identifier.
	ModelID string

	// ConversationID keys placement state. When empty, a stable id is
	// derived from the first turn.
	ConversationID string

	// SystemPrompt is the system prompt text, empty when absent.
	SystemPrompt string

	// Turns is the ordered conversation.
	Turns []promptcache.Turn

	// Tools are the tool definitions, if any.
	Tools []CacheableTool

	// CacheEnabled is the caller's prompt-cache switch.
	CacheEnabled bool

	MaxTokens     int
	Temperature   float64
	TopP          float64
	TopK          int
	StopSequences []string
}

// Build produces a Bedrock request body with cache breakpoints placed, and
// returns the conversation id used to key the placement state (so the
// caller can reuse it for subsequent calls and for ForgetConversation).
// Unknown models degrade to an uncached request rather than failing.
func (b *RequestBuilder) Build(ctx context.Context, input BuildInput) (*BedrockRequest, string, error) {
	if input.ModelID == "" {
		return nil, "", fmt.Errorf("model ID is required")
	}

	conversationID := input.ConversationID
	if conversationID == "" {
		conversationID = promptcache.ConversationID(input.Turns)
	}

	capability, known := b.catalog.Lookup(input.ModelID)
	if !known && input.CacheEnabled {
		b.logger.Warn(ctx, "Model not in capability catalog, caching disabled for request", map[string]interface{}{
			"modelID":   input.ModelID,
			"requestID": uuid.New().String(),
		})
	}
	capability = b.overrides.Apply(capability)

	result, err := b.engine.Plan(ctx, promptcache.PlanRequest{
		ConversationID: conversationID,
		SystemPrompt:   input.SystemPrompt,
		Turns:          input.Turns,
		Capability:     capability,
		CacheEnabled:   input.CacheEnabled && known,
	})
	if err != nil {
		// The result is still valid; only state persistence failed. The
		// next call recomputes placements from scratch.
		b.logger.Warn(ctx, "Placement state not persisted", map[string]interface{}{
			"error":          err.Error(),
			"conversationID": conversationID,
		})
	}

	usedPoints := len(result.UpdatedPlacements)
	if result.SystemCached {
		usedPoints++
	}

	maxTokens := input.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	request := &BedrockRequest{
		MaxTokens:     maxTokens,
		Messages:      MessagesFromResult(result, b.cacheTTL),
		System:        SystemBlocksFromResult(result, b.cacheTTL),
		Tools:         input.Tools,
		Temperature:   input.Temperature,
		TopP:          input.TopP,
		TopK:          input.TopK,
		StopSequences: input.StopSequences,
	}
	if input.CacheEnabled && known {
		request.Tools = CacheTools(input.Tools, capability, usedPoints, b.cacheTTL)
	}

	b.logger.Debug(ctx, "Built Bedrock request", map[string]interface{}{
		"modelID":        input.ModelID,
		"conversationID": conversationID,
		"strategy":       result.Strategy.String(),
		"cachePoints":    countCachePoints(request),
	})

	return request, conversationID, nil
}

// ForgetConversation drops the placement state for a conversation,
// typically when the caller abandons it.
func (b *RequestBuilder) ForgetConversation(ctx context.Context, conversationID string) error {
	return b.engine.ForgetConversation(ctx, conversationID)
}
