package anthropic

import (
	"github.com/flowmatic/promptcache-go/pkg/promptcache"
)

// CacheControl represents Anthropic's cache_control block for prompt caching.
// When added to a content block, it marks that block as a cache breakpoint,
// caching everything up to and including that block.
type CacheControl struct {
	Type string `json:"type"`          // "ephemeral" is the only supported value
	TTL  string `json:"ttl,omitempty"` // "5m" (default) or "1h"
}

// CacheableContent represents a content block that can have cache_control.
// Used for message content when caching is enabled.
type CacheableContent struct {
	Type         string        `json:"type"`                    // "text", "image", "tool_use", etc.
	Text         string        `json:"text,omitempty"`          // For text content
	CacheControl *CacheControl `json:"cache_control,omitempty"` // Optional cache control
}

// CacheableSystemContent represents a system message content block with
// cache_control. System messages use a slightly different structure than
// regular messages.
type CacheableSystemContent struct {
	Type         string        `json:"type"`                    // "text"
	Text         string        `json:"text"`                    // System message text
	CacheControl *CacheControl `json:"cache_control,omitempty"` // Optional cache control
}

// CacheableMessage represents a message with array-based content for caching.
// When caching is enabled, messages use content arrays instead of simple strings.
type CacheableMessage struct {
	Role    string             `json:"role"`    // "user" or "assistant"
	Content []CacheableContent `json:"content"` // Array of content blocks
}

// CacheableTool represents a tool definition with cache_control support.
// The cache_control is placed on the last tool to cache all tool definitions.
type CacheableTool struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	InputSchema  map[string]interface{} `json:"input_schema"`
	CacheControl *CacheControl          `json:"cache_control,omitempty"`
}

// NewCacheControl creates a new CacheControl with the default 5-minute TTL.
func NewCacheControl() *CacheControl {
	return &CacheControl{Type: "ephemeral"}
}

// NewCacheControlWithTTL creates a new CacheControl with a specific TTL.
// Valid TTL values are "5m" (default) or "1h".
func NewCacheControlWithTTL(ttl string) *CacheControl {
	if ttl == "" || ttl == "5m" {
		return &CacheControl{Type: "ephemeral"}
	}
	return &CacheControl{Type: "ephemeral", TTL: ttl}
}

// SystemBlocksFromResult converts the placement engine's system blocks into
// Anthropic system content. The engine emits a standalone cache-point
// marker after the cached text; the wire format instead attaches
// cache_control to the preceding text block.
func SystemBlocksFromResult(result promptcache.CacheResult, ttl string) []CacheableSystemContent {
	var blocks []CacheableSystemContent
	for _, block := range result.SystemBlocks {
		switch block.Type {
		case promptcache.ContentTypeText:
			blocks = append(blocks, CacheableSystemContent{Type: "text", Text: block.Text})
		case promptcache.ContentTypeCachePoint:
			if len(blocks) > 0 {
				blocks[len(blocks)-1].CacheControl = NewCacheControlWithTTL(ttl)
			}
		}
	}
	return blocks
}

// MessagesFromResult converts the placement engine's turn blocks into
// Anthropic messages, folding each cache-point marker into a cache_control
// on the preceding content block of the same turn.
func MessagesFromResult(result promptcache.CacheResult, ttl string) []CacheableMessage {
	messages := make([]CacheableMessage, 0, len(result.TurnBlocks))
	for _, turn := range result.TurnBlocks {
		message := CacheableMessage{Role: string(turn.Role)}
		for _, block := range turn.Content {
			switch block.Type {
			case promptcache.ContentTypeText:
				message.Content = append(message.Content, CacheableContent{Type: "text", Text: block.Text})
			case promptcache.ContentTypeCachePoint:
				if len(message.Content) > 0 {
					message.Content[len(message.Content)-1].CacheControl = NewCacheControlWithTTL(ttl)
				}
			}
		}
		messages = append(messages, message)
	}
	return messages
}

// CacheTools marks the last tool definition with cache_control, caching the
// whole tool list, when the capability lists tools as cachable and the
// conversation left a marker budget slot unused.
func CacheTools(tools []CacheableTool, capability promptcache.ModelCapability, usedPoints int, ttl string) []CacheableTool {
	if len(tools) == 0 || !capability.SupportsField(promptcache.CachableFieldTools) {
		return tools
	}
	if usedPoints >= capability.MaxCachePoints {
		return tools
	}
	cached := make([]CacheableTool, len(tools))
	copy(cached, tools)
	cached[len(cached)-1].CacheControl = NewCacheControlWithTTL(ttl)
	return cached
}
