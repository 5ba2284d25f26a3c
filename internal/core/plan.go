package core

// MergeStrategy tags how multiple responses for the same DataType are
// combined. Tied to DataType, not to provider.
type MergeStrategy string

const (
	MergeWeightedAverage     MergeStrategy = "weighted_average"
	MergeAggregateCandles    MergeStrategy = "aggregate_candles"
	MergeTakeMostRecent      MergeStrategy = "take_most_recent"
	MergeDeduplicateAndMerge MergeStrategy = "deduplicate_and_merge"
)

// MergeStrategyFor returns the merge strategy tied to a data type.
// Everything not named falls back to take_most_recent.
func MergeStrategyFor(dt DataType) MergeStrategy {
	switch dt {
	case DataPrice:
		return MergeWeightedAverage
	case DataOHLCV:
		return MergeAggregateCandles
	case DataFundamentals:
		return MergeTakeMostRecent
	case DataNews:
		return MergeDeduplicateAndMerge
	case DataSentiment:
		return MergeWeightedAverage
	default:
		return MergeTakeMostRecent
	}
}

// Plan is the arbitration engine's execution plan: a primary provider,
// up to two fallbacks, an optional merge-strategy hint, and timing.
type Plan struct {
	PrimaryProvider    string
	FallbackProviders  []string
	MergeStrategy      *MergeStrategy
	EstimatedLatencyMs int
	TimeoutMs          int
}

// ProviderChain returns primary followed by fallbacks, the order
// execute_with_fallback must try adapters in.
func (p Plan) ProviderChain() []string {
	chain := make([]string, 0, 1+len(p.FallbackProviders))
	chain = append(chain, p.PrimaryProvider)
	chain = append(chain, p.FallbackProviders...)
	return chain
}
