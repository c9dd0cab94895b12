package promptcache

import (
	"context"
	"fmt"

	"github.com/flowmatic/promptcache-go/pkg/logging"
)

// Config holds the tunable constants of the placement engine. Both values
// encode provider-specific tuning and may need revisiting per model
// family, so they are configuration rather than hardcoded.
type Config struct {
	// CharsPerToken is the character-to-token ratio for estimation.
	CharsPerToken int

	// MergeMargin is the multi-point reallocation profitability margin.
	MergeMargin float64
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		CharsPerToken: DefaultCharsPerToken,
		MergeMargin:   DefaultMergeMargin,
	}
}

// Engine computes cache-point placements. It is stateless apart from the
// optional PlacementStore; one engine may serve many conversations, with
// distinct conversation ids processed concurrently. The caller must
// serialize calls for the same conversation id.
type Engine struct {
	config    Config
	estimator *TokenEstimator
	store     PlacementStore
	logger    logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the engine configuration.
func WithConfig(config Config) Option {
	return func(e *Engine) {
		e.config = config
	}
}

// WithStore sets the placement store used to carry per-conversation state
// between calls. Without a store, every call is an initial placement.
func WithStore(store PlacementStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a placement engine.
func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		config: DefaultConfig(),
		logger: logging.New(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	if engine.config.CharsPerToken < 1 {
		engine.config.CharsPerToken = DefaultCharsPerToken
	}
	if engine.config.MergeMargin <= 0 {
		engine.config.MergeMargin = DefaultMergeMargin
	}
	engine.estimator = NewTokenEstimator(engine.config.CharsPerToken)
	return engine
}

// Estimator returns the engine's token estimator, so callers comparing
// spans use the same arithmetic the engine does.
func (e *Engine) Estimator() *TokenEstimator {
	return e.estimator
}

// PlanRequest carries the inputs of one placement computation.
type PlanRequest struct {
	// ConversationID keys the placement state. Empty means stateless:
	// prior placements are neither read nor persisted.
	ConversationID string

	// SystemPrompt is the system prompt text, empty when absent.
	SystemPrompt string

	// Turns is the ordered conversation. Any cache markers present from a
	// previous assembly are stripped before placement.
	Turns []Turn

	// Capability describes the target model.
	Capability ModelCapability

	// CacheEnabled is the caller's cache on/off switch.
	CacheEnabled bool
}

// Plan computes cache-point placements for a request and assembles the
// resulting content blocks. It degrades to a marker-free passthrough
// rather than failing: the only error surface is persisting updated
// placements to the store, and even then the returned result is usable.
func (e *Engine) Plan(ctx context.Context, req PlanRequest) (CacheResult, error) {
	turns := StripCachePoints(req.Turns)
	strategy := SelectStrategy(req.Capability, req.CacheEnabled)

	var plan placementPlan
	switch strategy {
	case StrategySinglePoint:
		plan = placeSinglePoint(req.SystemPrompt, turns, req.Capability, e.estimator)
	case StrategyMultiPoint:
		plan = placeMultiPoint(req.SystemPrompt, turns, req.Capability, e.loadPrior(ctx, req.ConversationID, len(turns)), e.estimator, e.config.MergeMargin)
	default:
		result := assemble(req.SystemPrompt, turns, placementPlan{}, strategy)
		return result, nil
	}

	result := assemble(req.SystemPrompt, turns, plan, strategy)

	e.logger.Debug(ctx, "Computed cache-point placements", map[string]interface{}{
		"strategy":       strategy.String(),
		"conversationID": req.ConversationID,
		"systemCached":   result.SystemCached,
		"turnPlacements": len(result.UpdatedPlacements),
	})

	if req.ConversationID != "" && e.store != nil {
		if err := e.store.Put(ctx, req.ConversationID, result.UpdatedPlacements); err != nil {
			e.logger.Error(ctx, "Failed to persist cache placements", map[string]interface{}{
				"error":          err.Error(),
				"conversationID": req.ConversationID,
				"store":          e.store.Name(),
			})
			return result, fmt.Errorf("failed to persist cache placements: %w", err)
		}
	}
	return result, nil
}

// ForgetConversation drops the placement state for a conversation id.
// Callers should invoke it when a conversation is abandoned so the store
// does not accumulate dead entries.
func (e *Engine) ForgetConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" || e.store == nil {
		return nil
	}
	if err := e.store.Delete(ctx, conversationID); err != nil {
		return fmt.Errorf("failed to delete cache placements: %w", err)
	}
	return nil
}

// loadPrior reads prior placements for a conversation. Read failures are
// treated as "no prior state" so a flaky store degrades placement quality
// instead of failing the request.
func (e *Engine) loadPrior(ctx context.Context, conversationID string, turnCount int) []CachePointPlacement {
	if conversationID == "" || e.store == nil {
		return nil
	}
	prior, ok, err := e.store.Get(ctx, conversationID)
	if err != nil {
		e.logger.Warn(ctx, "Failed to load prior cache placements", map[string]interface{}{
			"error":          err.Error(),
			"conversationID": conversationID,
			"store":          e.store.Name(),
		})
		return nil
	}
	if !ok {
		return nil
	}
	return validPlacements(prior, turnCount)
}
