package arbitration

import (
	"context"
	"sort"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
)

type scoredAdapter struct {
	adapter provider.Adapter
	score   core.Score
}

// Arbitrate scores every candidate adapter, ranks them descending,
// filters to the healthy cutoff (degrading to the single best candidate
// if the filter empties the list), and builds a plan with up to two
// fallbacks plus a merge-strategy hint when two or more candidates
// survive.
func Arbitrate(ctx context.Context, adapters []provider.Adapter, asset core.Asset, dataType core.DataType, region string, maxStalenessSeconds int) (core.Plan, error) {
	if len(adapters) == 0 {
		return core.Plan{}, core.ErrNoProviderAvailable
	}

	scored := make([]scoredAdapter, len(adapters))
	for i, a := range adapters {
		scored[i] = scoredAdapter{adapter: a, score: Score(ctx, a, asset, dataType, region, maxStalenessSeconds)}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score.Total > scored[j].score.Total })

	filtered := make([]scoredAdapter, 0, len(scored))
	for _, s := range scored {
		if s.score.Total >= core.HealthyCutoff {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		filtered = scored[:1]
	}

	primary := filtered[0].adapter
	fallbackCount := len(filtered) - 1
	if fallbackCount > 2 {
		fallbackCount = 2
	}
	fallbacks := make([]string, 0, fallbackCount)
	for i := 1; i <= fallbackCount; i++ {
		fallbacks = append(fallbacks, filtered[i].adapter.Name())
	}

	var mergeStrategy *core.MergeStrategy
	if len(filtered) >= 2 {
		strategy := core.MergeStrategyFor(dataType)
		mergeStrategy = &strategy
	}

	latencyP95, err := primary.GetLatencyP95(ctx, region)
	estimatedLatency := 0
	if err == nil {
		estimatedLatency = int(latencyP95)
	}

	return core.Plan{
		PrimaryProvider:    primary.Name(),
		FallbackProviders:  fallbacks,
		MergeStrategy:      mergeStrategy,
		EstimatedLatencyMs: estimatedLatency,
		TimeoutMs:          int(primary.Config().Timeout().Milliseconds()),
	}, nil
}
