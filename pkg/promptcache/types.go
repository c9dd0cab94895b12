// Package promptcache decides where to insert prompt-cache boundary markers
// into a conversation so that a provider can reuse cached prefixes across
// turns. Placement is a pure computation over a system prompt and an ordered
// list of turns, constrained by the target model's cache capabilities; the
// per-conversation placement history is carried by a caller-injected
// PlacementStore so that markers stay stable as the conversation grows.
package promptcache

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CachableField names a part of a request that a model supports placing
// cache markers within.
type CachableField string

const (
	CachableFieldSystem CachableField = "system"
	CachableFieldTurns  CachableField = "turns"
	CachableFieldTools  CachableField = "tools"
)

// ModelCapability describes the prompt-cache constraints of a target model.
// It is immutable and supplied per request.
type ModelCapability struct {
	// MaxContextTokens is the model's context window size.
	MaxContextTokens int

	// SupportsPromptCache indicates whether the model supports prompt
	// caching at all.
	SupportsPromptCache bool

	// MaxCachePoints is the maximum number of cache markers one request
	// may carry, counting any marker spent on the system prompt.
	MaxCachePoints int

	// MinTokensPerCachePoint is the minimum token span a single marker
	// must cover to be worth placing.
	MinTokensPerCachePoint int

	// CachableFields lists the request parts markers may be placed in.
	CachableFields []CachableField
}

// SupportsField reports whether the capability lists the given field as
// cachable.
func (c ModelCapability) SupportsField(field CachableField) bool {
	for _, f := range c.CachableFields {
		if f == field {
			return true
		}
	}
	return false
}

// ContentBlock is one segment of turn or system content: either text or a
// cache-point marker.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

const (
	ContentTypeText       = "text"
	ContentTypeCachePoint = "cache_point"
)

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentTypeText, Text: text}
}

// CachePointBlock builds a cache-point marker block.
func CachePointBlock() ContentBlock {
	return ContentBlock{Type: ContentTypeCachePoint}
}

// Turn is one message in a conversation.
type Turn struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserTurn builds a single-text-block user turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantTurn builds a single-text-block assistant turn.
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}}
}

// CachePointPlacement records one decision to insert a cache marker
// immediately after the turn at TurnIndex. TokensCovered is the estimated
// token span since the previous placement (or the conversation start).
type CachePointPlacement struct {
	TurnIndex     int `json:"turn_index"`
	TokensCovered int `json:"tokens_covered"`
}

// CacheResult is the outcome of one placement computation: the assembled
// content blocks ready to populate a provider request, and the placement
// list to persist for the next call on the same conversation.
type CacheResult struct {
	// SystemBlocks is the system prompt as content blocks, with a trailing
	// cache marker when the system prompt was cached. Empty when there is
	// no system prompt.
	SystemBlocks []ContentBlock

	// TurnBlocks are the input turns with cache markers appended to the
	// content of each turn that received a placement.
	TurnBlocks []Turn

	// SystemCached reports whether one marker was spent on the system
	// prompt.
	SystemCached bool

	// Strategy is the strategy that produced this result.
	Strategy StrategyKind

	// UpdatedPlacements is the ordered turn-placement list to carry into
	// the next call for this conversation.
	UpdatedPlacements []CachePointPlacement
}

// PlacementStore persists per-conversation placement state between calls.
// Implementations must be safe for concurrent use across distinct
// conversation ids; the engine never issues concurrent operations for the
// same id (the caller serializes per-conversation calls).
type PlacementStore interface {
	// Get returns the placements recorded for a conversation. The second
	// return value is false when the conversation is unknown.
	Get(ctx context.Context, conversationID string) ([]CachePointPlacement, bool, error)

	// Put records the placements for a conversation, replacing any prior
	// entry.
	Put(ctx context.Context, conversationID string, placements []CachePointPlacement) error

	// Delete removes a conversation's placements.
	Delete(ctx context.Context, conversationID string) error

	// Name returns the store backend name.
	Name() string
}
