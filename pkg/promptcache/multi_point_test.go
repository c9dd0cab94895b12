package promptcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multiPointCapability(maxPoints int, fields ...CachableField) ModelCapability {
	return ModelCapability{
		SupportsPromptCache:    true,
		MaxCachePoints:         maxPoints,
		MinTokensPerCachePoint: 50,
		CachableFields:         fields,
	}
}

// alternatingTurns builds user/assistant pairs: user turns of userTokens
// tokens, assistant turns of assistantTokens tokens, starting with a user
// turn.
func alternatingTurns(count, userTokens, assistantTokens int) []Turn {
	turns := make([]Turn, 0, count)
	for i := 0; i < count; i++ {
		if i%2 == 0 {
			turns = append(turns, UserTurn(tokens(userTokens)))
		} else {
			turns = append(turns, AssistantTurn(tokens(assistantTokens)))
		}
	}
	return turns
}

func TestPlaceMultiPointInitial(t *testing.T) {
	estimator := NewTokenEstimator(4)

	t.Run("system plus turn markers", func(t *testing.T) {
		// System of 100 tokens, 5 turns alternating user(60)/assistant(10).
		plan := placeMultiPoint(tokens(100), alternatingTurns(5, 60, 10),
			multiPointCapability(4, CachableFieldSystem, CachableFieldTurns),
			nil, estimator, DefaultMergeMargin)

		assert.True(t, plan.systemCached)
		require.NotEmpty(t, plan.placements)
		assert.Equal(t, 0, plan.placements[0].TurnIndex)
		assert.GreaterOrEqual(t, plan.placements[0].TokensCovered, 50)
		assert.LessOrEqual(t, 1+len(plan.placements), 4)
	})

	t.Run("markers only after user turns", func(t *testing.T) {
		// Threshold crossings happen inside assistant turns; the marker
		// must slide forward to the next user turn.
		turns := []Turn{
			UserTurn(tokens(10)),
			AssistantTurn(tokens(60)),
			UserTurn(tokens(10)),
			AssistantTurn(tokens(60)),
			UserTurn(tokens(10)),
		}
		plan := placeMultiPoint("", turns,
			multiPointCapability(4, CachableFieldTurns), nil, estimator, DefaultMergeMargin)

		for _, p := range plan.placements {
			assert.Equal(t, RoleUser, turns[p.TurnIndex].Role)
		}
	})

	t.Run("budget consumed by system leaves fewer turn markers", func(t *testing.T) {
		plan := placeMultiPoint(tokens(100), alternatingTurns(9, 60, 10),
			multiPointCapability(2, CachableFieldSystem, CachableFieldTurns),
			nil, estimator, DefaultMergeMargin)

		assert.True(t, plan.systemCached)
		assert.Len(t, plan.placements, 1)
	})

	t.Run("turns not cachable stops after system", func(t *testing.T) {
		plan := placeMultiPoint(tokens(100), alternatingTurns(5, 60, 10),
			multiPointCapability(4, CachableFieldSystem), nil, estimator, DefaultMergeMargin)

		assert.True(t, plan.systemCached)
		assert.Empty(t, plan.placements)
	})

	t.Run("spans accumulate across markers", func(t *testing.T) {
		plan := placeMultiPoint("", alternatingTurns(6, 60, 10),
			multiPointCapability(4, CachableFieldTurns), nil, estimator, DefaultMergeMargin)

		// u60 a10 u60 a10 u60 a10: marker at 0 (60), then 10+60=70 at
		// index 2, then 10+60=70 at index 4.
		require.Len(t, plan.placements, 3)
		assert.Equal(t, CachePointPlacement{TurnIndex: 0, TokensCovered: 60}, plan.placements[0])
		assert.Equal(t, CachePointPlacement{TurnIndex: 2, TokensCovered: 70}, plan.placements[1])
		assert.Equal(t, CachePointPlacement{TurnIndex: 4, TokensCovered: 70}, plan.placements[2])
	})
}

func TestPlaceMultiPointIncremental(t *testing.T) {
	estimator := NewTokenEstimator(4)
	capability := multiPointCapability(4, CachableFieldTurns)

	base := alternatingTurns(4, 60, 10) // placements at 0 (60) and 2 (70)
	prior := []CachePointPlacement{
		{TurnIndex: 0, TokensCovered: 60},
		{TurnIndex: 2, TokensCovered: 70},
	}

	t.Run("small growth keeps prior placements", func(t *testing.T) {
		grown := append(append([]Turn{}, base...), UserTurn(tokens(20)))

		plan := placeMultiPoint("", grown, capability, prior, estimator, DefaultMergeMargin)
		assert.Equal(t, prior, plan.placements)
	})

	t.Run("no growth keeps prior placements", func(t *testing.T) {
		// The turns after the last placement total 10 tokens, below the
		// threshold; repeated calls must not churn.
		plan := placeMultiPoint("", base, capability, prior, estimator, DefaultMergeMargin)
		assert.Equal(t, prior, plan.placements)

		again := placeMultiPoint("", base, capability, plan.placements, estimator, DefaultMergeMargin)
		assert.Equal(t, plan.placements, again.placements)
	})

	t.Run("growth with free budget appends a placement", func(t *testing.T) {
		grown := append(append([]Turn{}, base...), UserTurn(tokens(80)))

		plan := placeMultiPoint("", grown, capability, prior, estimator, DefaultMergeMargin)
		require.Len(t, plan.placements, 3)
		assert.Equal(t, prior, plan.placements[:2])
		// New span covers the assistant turn after the last prior marker
		// plus the new user turn.
		assert.Equal(t, CachePointPlacement{TurnIndex: 4, TokensCovered: 90}, plan.placements[2])
	})

	t.Run("growth with exhausted budget merges cheapest pair when profitable", func(t *testing.T) {
		// Four prior placements, smallest adjacent combined span 120
		// (pair 0+1); 200 new tokens ≥ 1.2×120, so the pair merges and
		// the freed slot covers the new turns.
		turns := []Turn{
			UserTurn(tokens(60)), UserTurn(tokens(60)),
			UserTurn(tokens(100)), UserTurn(tokens(100)),
			UserTurn(tokens(200)),
		}
		full := []CachePointPlacement{
			{TurnIndex: 0, TokensCovered: 60},
			{TurnIndex: 1, TokensCovered: 60},
			{TurnIndex: 2, TokensCovered: 100},
			{TurnIndex: 3, TokensCovered: 100},
		}

		plan := placeMultiPoint("", turns, capability, full, estimator, DefaultMergeMargin)
		require.Len(t, plan.placements, 4)
		assert.Equal(t, CachePointPlacement{TurnIndex: 1, TokensCovered: 120}, plan.placements[0])
		assert.Equal(t, full[2], plan.placements[1])
		assert.Equal(t, full[3], plan.placements[2])
		assert.Equal(t, CachePointPlacement{TurnIndex: 4, TokensCovered: 200}, plan.placements[3])
	})

	t.Run("growth with exhausted budget keeps priors when merge unprofitable", func(t *testing.T) {
		// 130 new tokens < 1.2×120: reallocation is not clearly
		// beneficial, so the new turns stay uncached for now.
		turns := []Turn{
			UserTurn(tokens(60)), UserTurn(tokens(60)),
			UserTurn(tokens(100)), UserTurn(tokens(100)),
			UserTurn(tokens(130)),
		}
		full := []CachePointPlacement{
			{TurnIndex: 0, TokensCovered: 60},
			{TurnIndex: 1, TokensCovered: 60},
			{TurnIndex: 2, TokensCovered: 100},
			{TurnIndex: 3, TokensCovered: 100},
		}

		plan := placeMultiPoint("", turns, capability, full, estimator, DefaultMergeMargin)
		assert.Equal(t, full, plan.placements)
	})

	t.Run("assistant-only growth with exhausted budget keeps priors", func(t *testing.T) {
		// The growth is large enough to look profitable, but it ends in
		// an assistant turn, so the new range has no eligible boundary.
		// Merging would destroy a cached prefix with nothing to show for
		// it; the priors must survive intact.
		turns := []Turn{
			UserTurn(tokens(60)), UserTurn(tokens(60)),
			UserTurn(tokens(100)), UserTurn(tokens(100)),
			AssistantTurn(tokens(200)),
		}
		full := []CachePointPlacement{
			{TurnIndex: 0, TokensCovered: 60},
			{TurnIndex: 1, TokensCovered: 60},
			{TurnIndex: 2, TokensCovered: 100},
			{TurnIndex: 3, TokensCovered: 100},
		}

		plan := placeMultiPoint("", turns, capability, full, estimator, DefaultMergeMargin)
		assert.Equal(t, full, plan.placements)
	})

	t.Run("growth appends at most one placement per call", func(t *testing.T) {
		// Two threshold-worthy user turns arrive at once with two budget
		// slots free; only one marker is appended now, the next call
		// picks up the second.
		grown := append(append([]Turn{}, base...),
			UserTurn(tokens(80)),
			UserTurn(tokens(80)),
		)

		plan := placeMultiPoint("", grown, capability, prior, estimator, DefaultMergeMargin)
		require.Len(t, plan.placements, 3)
		assert.Equal(t, CachePointPlacement{TurnIndex: 4, TokensCovered: 90}, plan.placements[2])

		again := placeMultiPoint("", grown, capability, plan.placements, estimator, DefaultMergeMargin)
		require.Len(t, again.placements, 4)
		assert.Equal(t, CachePointPlacement{TurnIndex: 5, TokensCovered: 80}, again.placements[3])
	})

	t.Run("late system marker shrinks the turn budget", func(t *testing.T) {
		// Four turn placements already fill the budget; when the system
		// prompt becomes cache-eligible its marker consumes a slot, and
		// the stored placements must be clamped so the total stays within
		// MaxCachePoints.
		turns := alternatingTurns(7, 60, 10)
		full := []CachePointPlacement{
			{TurnIndex: 0, TokensCovered: 60},
			{TurnIndex: 2, TokensCovered: 70},
			{TurnIndex: 4, TokensCovered: 70},
			{TurnIndex: 6, TokensCovered: 70},
		}

		plan := placeMultiPoint(tokens(100), turns,
			multiPointCapability(4, CachableFieldSystem, CachableFieldTurns),
			full, estimator, DefaultMergeMargin)

		assert.True(t, plan.systemCached)
		assert.Equal(t, full[:3], plan.placements)
	})

	t.Run("equal smallest pairs merge the first", func(t *testing.T) {
		turns := []Turn{
			UserTurn(tokens(60)), UserTurn(tokens(60)),
			UserTurn(tokens(60)), UserTurn(tokens(60)),
			UserTurn(tokens(200)),
		}
		full := []CachePointPlacement{
			{TurnIndex: 0, TokensCovered: 60},
			{TurnIndex: 1, TokensCovered: 60},
			{TurnIndex: 2, TokensCovered: 60},
			{TurnIndex: 3, TokensCovered: 60},
		}

		plan := placeMultiPoint("", turns, capability, full, estimator, DefaultMergeMargin)
		require.Len(t, plan.placements, 4)
		assert.Equal(t, CachePointPlacement{TurnIndex: 1, TokensCovered: 120}, plan.placements[0])
		assert.Equal(t, full[2], plan.placements[1])
	})
}

func TestValidPlacements(t *testing.T) {
	tests := []struct {
		name      string
		prior     []CachePointPlacement
		turnCount int
		expected  int
	}{
		{
			name: "all valid",
			prior: []CachePointPlacement{
				{TurnIndex: 0}, {TurnIndex: 2},
			},
			turnCount: 5,
			expected:  2,
		},
		{
			name: "out of range dropped",
			prior: []CachePointPlacement{
				{TurnIndex: 0}, {TurnIndex: 7},
			},
			turnCount: 5,
			expected:  1,
		},
		{
			name: "non-increasing truncates",
			prior: []CachePointPlacement{
				{TurnIndex: 2}, {TurnIndex: 1}, {TurnIndex: 4},
			},
			turnCount: 5,
			expected:  1,
		},
		{
			name:      "empty",
			prior:     nil,
			turnCount: 5,
			expected:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, validPlacements(tt.prior, tt.turnCount), tt.expected)
		})
	}
}

// TestPlacementInvariants checks the structural guarantees over a range of
// shapes: strictly increasing indices, budget bound, threshold respected.
func TestPlacementInvariants(t *testing.T) {
	estimator := NewTokenEstimator(4)

	shapes := []struct {
		name      string
		system    string
		turns     []Turn
		maxPoints int
	}{
		{"short conversation", tokens(100), alternatingTurns(3, 60, 10), 4},
		{"long conversation", tokens(200), alternatingTurns(20, 40, 20), 4},
		{"tight budget", tokens(100), alternatingTurns(20, 60, 10), 2},
		{"no system", "", alternatingTurns(12, 55, 5), 3},
	}

	for _, shape := range shapes {
		t.Run(shape.name, func(t *testing.T) {
			capability := multiPointCapability(shape.maxPoints, CachableFieldSystem, CachableFieldTurns)
			plan := placeMultiPoint(shape.system, shape.turns, capability, nil, estimator, DefaultMergeMargin)

			markers := len(plan.placements)
			if plan.systemCached {
				markers++
			}
			assert.LessOrEqual(t, markers, shape.maxPoints)

			lastIndex := -1
			for _, p := range plan.placements {
				assert.Greater(t, p.TurnIndex, lastIndex)
				assert.GreaterOrEqual(t, p.TokensCovered, capability.MinTokensPerCachePoint)
				lastIndex = p.TurnIndex
			}
		})
	}
}
