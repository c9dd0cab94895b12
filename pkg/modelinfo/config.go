package modelinfo

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/flowmatic/promptcache-go/pkg/promptcache"
)

// profileFile is the schema of a YAML capability profile file:
//
//	models:
//	  - prefix: anthropic.claude-3-5-sonnet
//	    max_context_tokens: 200000
//	    supports_prompt_cache: true
//	    max_cache_points: 4
//	    min_tokens_per_cache_point: 1024
//	    cachable_fields: [system, turns, tools]
type profileFile struct {
	Models []Profile `yaml:"models"`
}

// LoadProfiles merges profiles from a YAML file into the catalog. Entries
// with a prefix already in the catalog replace it.
func (c *Catalog) LoadProfiles(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profile file: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse profile file: %w", err)
	}
	for _, p := range file.Models {
		if p.Prefix == "" {
			return fmt.Errorf("profile file %s contains a model entry without a prefix", path)
		}
	}

	c.Add(file.Models...)
	return nil
}

// Overrides adjusts a resolved capability with caller- or user-supplied
// values. Zero values leave the resolved capability untouched.
type Overrides struct {
	// MaxContextTokens replaces the model's context window size, for
	// deployments that cap usable context below the model maximum.
	MaxContextTokens int

	// MinTokensPerCachePoint replaces the minimum cachable span.
	MinTokensPerCachePoint int

	// DisablePromptCache forces caching off regardless of capability.
	DisablePromptCache bool
}

// Apply returns the capability with overrides applied.
func (o Overrides) Apply(capability promptcache.ModelCapability) promptcache.ModelCapability {
	if o.MaxContextTokens > 0 {
		capability.MaxContextTokens = o.MaxContextTokens
	}
	if o.MinTokensPerCachePoint > 0 {
		capability.MinTokensPerCachePoint = o.MinTokensPerCachePoint
	}
	if o.DisablePromptCache {
		capability.SupportsPromptCache = false
	}
	return capability
}

// OverridesFromEnv reads overrides from PROMPTCACHE_* environment
// variables: PROMPTCACHE_MAX_CONTEXT_TOKENS,
// PROMPTCACHE_MIN_TOKENS_PER_CACHE_POINT, PROMPTCACHE_DISABLE.
func OverridesFromEnv() Overrides {
	v := viper.New()
	v.SetEnvPrefix("PROMPTCACHE")
	v.AutomaticEnv()

	return Overrides{
		MaxContextTokens:       v.GetInt("MAX_CONTEXT_TOKENS"),
		MinTokensPerCachePoint: v.GetInt("MIN_TOKENS_PER_CACHE_POINT"),
		DisablePromptCache:     v.GetBool("DISABLE"),
	}
}
