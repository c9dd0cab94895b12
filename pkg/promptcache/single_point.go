package promptcache

// placementPlan is the abstract outcome of a strategy before assembly.
type placementPlan struct {
	systemCached bool
	placements   []CachePointPlacement
}

// placeSystemPoint decides whether the system prompt earns a marker: it
// must be cachable, present, and meet the minimum token threshold. Shared
// by both strategies; the system prompt is typically the largest stable
// prefix, so it takes priority over turn placements.
func placeSystemPoint(systemPrompt string, capability ModelCapability, estimator *TokenEstimator) bool {
	if !capability.SupportsField(CachableFieldSystem) || systemPrompt == "" {
		return false
	}
	return estimator.EstimateText(systemPrompt) >= capability.MinTokensPerCachePoint
}

// placeSinglePoint computes an at-most-one-marker plan. The system prompt
// wins when eligible; otherwise the marker goes immediately after the first
// turn where the running token total meets the threshold, maximizing the
// cached prefix for subsequent calls. No beneficial placement is not an
// error: the plan is simply empty.
func placeSinglePoint(systemPrompt string, turns []Turn, capability ModelCapability, estimator *TokenEstimator) placementPlan {
	if placeSystemPoint(systemPrompt, capability, estimator) {
		return placementPlan{systemCached: true}
	}

	if !capability.SupportsField(CachableFieldTurns) {
		return placementPlan{}
	}
	if estimator.EstimateTurns(turns) < capability.MinTokensPerCachePoint {
		return placementPlan{}
	}

	running := 0
	for i, turn := range turns {
		running += estimator.EstimateTurn(turn)
		if running >= capability.MinTokensPerCachePoint {
			return placementPlan{
				placements: []CachePointPlacement{{TurnIndex: i, TokensCovered: running}},
			}
		}
	}
	return placementPlan{}
}
