package promptcache

// StripCachePoints returns a copy of turns with all cache-point marker
// blocks removed. The assembler strips before inserting, so re-running a
// placement over previously assembled output never duplicates markers.
func StripCachePoints(turns []Turn) []Turn {
	stripped := make([]Turn, len(turns))
	for i, turn := range turns {
		content := make([]ContentBlock, 0, len(turn.Content))
		for _, block := range turn.Content {
			if block.Type == ContentTypeCachePoint {
				continue
			}
			content = append(content, block)
		}
		stripped[i] = Turn{Role: turn.Role, Content: content}
	}
	return stripped
}

// assemble converts an abstract plan into the final content-block
// structure: system blocks with an optional trailing marker, and turns
// with a marker appended after the content of each placed turn. Pure
// transformation, no failure modes.
func assemble(systemPrompt string, turns []Turn, plan placementPlan, strategy StrategyKind) CacheResult {
	result := CacheResult{
		SystemCached:      plan.systemCached,
		Strategy:          strategy,
		UpdatedPlacements: plan.placements,
	}

	if systemPrompt != "" {
		result.SystemBlocks = []ContentBlock{TextBlock(systemPrompt)}
		if plan.systemCached {
			result.SystemBlocks = append(result.SystemBlocks, CachePointBlock())
		}
	}

	placed := make(map[int]bool, len(plan.placements))
	for _, p := range plan.placements {
		placed[p.TurnIndex] = true
	}

	result.TurnBlocks = make([]Turn, len(turns))
	for i, turn := range turns {
		content := make([]ContentBlock, 0, len(turn.Content)+1)
		content = append(content, turn.Content...)
		if placed[i] {
			content = append(content, CachePointBlock())
		}
		result.TurnBlocks[i] = Turn{Role: turn.Role, Content: content}
	}
	return result
}
