package promptcache

// DefaultMergeMargin is the profitability margin the multi-point strategy
// requires before reallocating an existing marker to newly added turns.
// Invalidating a cached prefix has a cost, so a reallocation must be
// clearly justified: the new span has to exceed the smallest adjacent pair
// of existing spans by this factor.
const DefaultMergeMargin = 1.2

// placeMultiPoint computes a plan using up to capability.MaxCachePoints
// markers. With no prior placements it scans the whole conversation; with
// prior placements it keeps them stable and only appends or reallocates
// when the newly added turns justify it.
func placeMultiPoint(systemPrompt string, turns []Turn, capability ModelCapability, prior []CachePointPlacement, estimator *TokenEstimator, mergeMargin float64) placementPlan {
	plan := placementPlan{systemCached: placeSystemPoint(systemPrompt, capability, estimator)}

	if !capability.SupportsField(CachableFieldTurns) {
		return plan
	}

	budget := capability.MaxCachePoints
	if plan.systemCached {
		budget--
	}
	if budget <= 0 {
		return plan
	}

	prior = validPlacements(prior, len(turns))
	if len(prior) > budget {
		// The turn budget can shrink between calls: a system prompt that
		// becomes cache-eligible consumes a slot, or a model switch lowers
		// MaxCachePoints. Keep the earliest placements; the cached prefix
		// they cover survives.
		prior = prior[:budget]
	}
	if len(prior) == 0 {
		plan.placements = scanPlacements(turns, 0, budget, capability.MinTokensPerCachePoint, estimator)
		return plan
	}

	plan.placements = revisePlacements(turns, prior, budget, capability.MinTokensPerCachePoint, estimator, mergeMargin)
	return plan
}

// validPlacements filters a prior placement list down to entries that still
// refer to turns in range and keep strictly increasing indices. Anything
// after the first out-of-order entry is dropped.
func validPlacements(prior []CachePointPlacement, turnCount int) []CachePointPlacement {
	valid := make([]CachePointPlacement, 0, len(prior))
	lastIndex := -1
	for _, p := range prior {
		if p.TurnIndex <= lastIndex || p.TurnIndex >= turnCount {
			break
		}
		valid = append(valid, p)
		lastIndex = p.TurnIndex
	}
	return valid
}

// scanPlacements walks turns[start:] accumulating token estimates and
// places a marker at each user turn where the running span since the last
// marker first reaches the threshold, until the budget runs out or the
// remaining turns can no longer amount to a worthwhile span. Assistant
// turns are never boundary points: cache boundaries stay at natural
// request boundaries.
func scanPlacements(turns []Turn, start, budget, minTokens int, estimator *TokenEstimator) []CachePointPlacement {
	var placements []CachePointPlacement
	running := 0
	for i := start; i < len(turns) && budget > 0; i++ {
		running += estimator.EstimateTurn(turns[i])
		if running < minTokens || turns[i].Role != RoleUser {
			continue
		}
		placements = append(placements, CachePointPlacement{TurnIndex: i, TokensCovered: running})
		budget--
		running = 0
	}
	return placements
}

// revisePlacements applies the incremental re-placement rules once a
// conversation with prior placements has grown:
//
//  1. New turns below the threshold: keep the prior placements untouched,
//     so the cache is not thrashed on every small turn.
//  2. Budget slot free: keep the prior placements and append at most one
//     marker over the new range.
//  3. Budget exhausted: merge the adjacent pair of prior placements with
//     the smallest combined span, but only when the new span exceeds that
//     combined span by the profitability margin AND the new range yields
//     an eligible placement to spend the freed slot on. A merge destroys
//     a cached prefix, so it never happens without a replacement marker.
//     Otherwise the new turns stay uncached for now.
//
// When several adjacent pairs tie for the smallest combined span, the
// first (lowest-index) pair wins.
func revisePlacements(turns []Turn, prior []CachePointPlacement, budget, minTokens int, estimator *TokenEstimator, mergeMargin float64) []CachePointPlacement {
	lastIndex := prior[len(prior)-1].TurnIndex
	newTokens := estimator.EstimateTurns(turns[lastIndex+1:])
	if newTokens < minTokens {
		return prior
	}

	added := scanPlacements(turns, lastIndex+1, 1, minTokens, estimator)

	if len(prior) < budget {
		return append(prior, added...)
	}

	if len(prior) < 2 || len(added) == 0 {
		return prior
	}

	mergeAt := -1
	smallest := 0
	for i := 0; i+1 < len(prior); i++ {
		combined := prior[i].TokensCovered + prior[i+1].TokensCovered
		if mergeAt == -1 || combined < smallest {
			mergeAt = i
			smallest = combined
		}
	}
	if float64(newTokens) < mergeMargin*float64(smallest) {
		return prior
	}

	merged := make([]CachePointPlacement, 0, len(prior))
	merged = append(merged, prior[:mergeAt]...)
	merged = append(merged, CachePointPlacement{
		TurnIndex:     prior[mergeAt+1].TurnIndex,
		TokensCovered: smallest,
	})
	merged = append(merged, prior[mergeAt+2:]...)
	return append(merged, added...)
}
