package promptcache

// DefaultCharsPerToken is the character-to-token ratio used when none is
// configured. It matches the common ~4 characters per token heuristic.
const DefaultCharsPerToken = 4

// TokenEstimator approximates token counts from text length. The estimate
// is deliberately rough: placements are only ever compared against other
// estimates from the same estimator, so consistency matters more than
// absolute accuracy.
type TokenEstimator struct {
	charsPerToken int
}

// NewTokenEstimator creates an estimator with the given characters-per-token
// ratio. Values below 1 fall back to DefaultCharsPerToken.
func NewTokenEstimator(charsPerToken int) *TokenEstimator {
	if charsPerToken < 1 {
		charsPerToken = DefaultCharsPerToken
	}
	return &TokenEstimator{charsPerToken: charsPerToken}
}

// EstimateText returns the estimated token count for a piece of text,
// rounding up.
func (e *TokenEstimator) EstimateText(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + e.charsPerToken - 1) / e.charsPerToken
}

// EstimateTurn returns the estimated token count for a turn's text content.
// Non-text blocks (including cache markers) contribute zero.
func (e *TokenEstimator) EstimateTurn(turn Turn) int {
	total := 0
	for _, block := range turn.Content {
		if block.Type == ContentTypeText {
			total += e.EstimateText(block.Text)
		}
	}
	return total
}

// EstimateTurns returns the estimated token count across a slice of turns.
func (e *TokenEstimator) EstimateTurns(turns []Turn) int {
	total := 0
	for _, turn := range turns {
		total += e.EstimateTurn(turn)
	}
	return total
}
