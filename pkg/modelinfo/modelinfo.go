// Package modelinfo maps model identifiers to their prompt-cache
// capabilities. A built-in catalog covers the Anthropic model families
// available on Bedrock; deployments can extend or correct it with YAML
// profile files and environment overrides.
package modelinfo

import (
	"strings"

	"github.com/flowmatic/promptcache-go/pkg/promptcache"
)

// Profile describes one model family's capabilities, matched by model-id
// prefix. Longest prefix wins.
type Profile struct {
	Prefix                 string   `yaml:"prefix"`
	MaxContextTokens       int      `yaml:"max_context_tokens"`
	SupportsPromptCache    bool     `yaml:"supports_prompt_cache"`
	MaxCachePoints         int      `yaml:"max_cache_points"`
	MinTokensPerCachePoint int      `yaml:"min_tokens_per_cache_point"`
	CachableFields         []string `yaml:"cachable_fields"`
}

// Capability converts a profile to the engine's capability descriptor.
func (p Profile) Capability() promptcache.ModelCapability {
	fields := make([]promptcache.CachableField, 0, len(p.CachableFields))
	for _, f := range p.CachableFields {
		fields = append(fields, promptcache.CachableField(f))
	}
	return promptcache.ModelCapability{
		MaxContextTokens:       p.MaxContextTokens,
		SupportsPromptCache:    p.SupportsPromptCache,
		MaxCachePoints:         p.MaxCachePoints,
		MinTokensPerCachePoint: p.MinTokensPerCachePoint,
		CachableFields:         fields,
	}
}

// defaultProfiles is the built-in catalog for Anthropic models on Bedrock.
// Prompt caching on Bedrock allows up to 4 cache points; the minimum
// cachable span varies by family.
var defaultProfiles = []Profile{
	{
		Prefix:                 "anthropic.claude-3-5-sonnet",
		MaxContextTokens:       200000,
		SupportsPromptCache:    true,
		MaxCachePoints:         4,
		MinTokensPerCachePoint: 1024,
		CachableFields:         []string{"system", "turns", "tools"},
	},
	{
		Prefix:                 "anthropic.claude-3-5-haiku",
		MaxContextTokens:       200000,
		SupportsPromptCache:    true,
		MaxCachePoints:         4,
		MinTokensPerCachePoint: 2048,
		CachableFields:         []string{"system", "turns", "tools"},
	},
	{
		Prefix:                 "anthropic.claude-3-7-sonnet",
		MaxContextTokens:       200000,
		SupportsPromptCache:    true,
		MaxCachePoints:         4,
		MinTokensPerCachePoint: 1024,
		CachableFields:         []string{"system", "turns", "tools"},
	},
	{
		Prefix:                 "anthropic.claude-sonnet-4",
		MaxContextTokens:       200000,
		SupportsPromptCache:    true,
		MaxCachePoints:         4,
		MinTokensPerCachePoint: 1024,
		CachableFields:         []string{"system", "turns", "tools"},
	},
	{
		Prefix:                 "anthropic.claude-opus-4",
		MaxContextTokens:       200000,
		SupportsPromptCache:    true,
		MaxCachePoints:         4,
		MinTokensPerCachePoint: 1024,
		CachableFields:         []string{"system", "turns", "tools"},
	},
	{
		Prefix:                 "anthropic.claude-3-haiku",
		MaxContextTokens:       200000,
		SupportsPromptCache:    false,
		MaxCachePoints:         0,
		MinTokensPerCachePoint: 0,
		CachableFields:         nil,
	},
	{
		Prefix:                 "anthropic.claude-3-opus",
		MaxContextTokens:       200000,
		SupportsPromptCache:    false,
		MaxCachePoints:         0,
		MinTokensPerCachePoint: 0,
		CachableFields:         nil,
	},
}

// regionPrefixes are the Bedrock cross-region inference prefixes stripped
// before catalog matching, so "us.anthropic.claude-..." resolves the same
// as "anthropic.claude-...".
var regionPrefixes = []string{"us.", "eu.", "apac.", "ap.", "global."}

// Catalog resolves model ids to capabilities.
type Catalog struct {
	profiles []Profile
}

// NewCatalog creates a catalog seeded with the built-in profiles.
func NewCatalog() *Catalog {
	profiles := make([]Profile, len(defaultProfiles))
	copy(profiles, defaultProfiles)
	return &Catalog{profiles: profiles}
}

// Add registers profiles, overriding built-ins with the same prefix.
func (c *Catalog) Add(profiles ...Profile) {
	for _, p := range profiles {
		replaced := false
		for i := range c.profiles {
			if c.profiles[i].Prefix == p.Prefix {
				c.profiles[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			c.profiles = append(c.profiles, p)
		}
	}
}

// Lookup resolves a model id to its capability descriptor by longest
// matching prefix, after stripping any cross-region inference prefix.
// Unknown models report false; callers should treat that as caching
// unsupported rather than an error.
func (c *Catalog) Lookup(modelID string) (promptcache.ModelCapability, bool) {
	normalized := normalizeModelID(modelID)

	best := -1
	bestLen := 0
	for i, p := range c.profiles {
		if strings.HasPrefix(normalized, p.Prefix) && len(p.Prefix) > bestLen {
			best = i
			bestLen = len(p.Prefix)
		}
	}
	if best == -1 {
		return promptcache.ModelCapability{}, false
	}
	return c.profiles[best].Capability(), true
}

func normalizeModelID(modelID string) string {
	for _, prefix := range regionPrefixes {
		if strings.HasPrefix(modelID, prefix) {
			return strings.TrimPrefix(modelID, prefix)
		}
	}
	return modelID
}
