package promptcache

// StrategyKind identifies which placement algorithm applies to a request.
// Strategies are a closed set dispatched by SelectStrategy; they share no
// state and differ only in algorithm, so an enum over pure functions is
// used instead of interface polymorphism.
type StrategyKind int

const (
	// StrategyNone places no markers and passes content through verbatim.
	StrategyNone StrategyKind = iota

	// StrategySinglePoint places at most one marker total.
	StrategySinglePoint

	// StrategyMultiPoint places up to MaxCachePoints markers and revises
	// them incrementally as the conversation grows.
	StrategyMultiPoint
)

// String returns the strategy name for logs and trace attributes.
func (k StrategyKind) String() string {
	switch k {
	case StrategySinglePoint:
		return "single_point"
	case StrategyMultiPoint:
		return "multi_point"
	default:
		return "none"
	}
}

// SelectStrategy chooses the placement strategy for a request. It is a pure
// function: invalid capability values select StrategyNone rather than
// producing an error.
func SelectStrategy(capability ModelCapability, cacheEnabled bool) StrategyKind {
	if !cacheEnabled || !capability.SupportsPromptCache {
		return StrategyNone
	}
	if capability.MaxCachePoints <= 0 || capability.MinTokensPerCachePoint <= 0 {
		return StrategyNone
	}
	if capability.MaxCachePoints == 1 {
		return StrategySinglePoint
	}
	return StrategyMultiPoint
}
