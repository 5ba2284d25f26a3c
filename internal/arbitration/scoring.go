// Package arbitration is the federation engine's decision layer: scoring
// adapters, building an execution plan, running it with fallback, and
// merging multi-source responses.
package arbitration

import (
	"context"
	"time"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
	"github.com/sawpanic/fedmkt/internal/telemetry"
)

const (
	weightFreshness    = 0.30
	weightLatency      = 0.25
	weightUptime       = 0.20
	weightCompleteness = 0.15
	weightReliability  = 0.10

	maxLatencyMs   = 5000.0
	domainBonus    = 1.20
	domainProvider = "newsapi"
)

// Score combines five weighted sub-scores, applies the newsapi domain
// bonus, and short-circuits to zero while an adapter is in cooldown.
func Score(ctx context.Context, adapter provider.Adapter, asset core.Asset, dataType core.DataType, region string, maxStalenessSeconds int) core.Score {
	if adapter.IsInCooldown() {
		telemetry.Default.RecordScore(adapter.Name(), string(dataType), 0)
		return core.ZeroScore()
	}
	telemetry.Default.RecordCooldownCleared(adapter.Name())

	now := time.Now()

	lastUpdate, err := adapter.GetLastUpdate(ctx, asset, dataType)
	var freshness float64
	if err == nil && maxStalenessSeconds > 0 {
		ageSeconds := now.Sub(lastUpdate).Seconds()
		freshness = core.Clamp(100*(1-ageSeconds/float64(maxStalenessSeconds)), 0, 100)
	}

	p95, err := adapter.GetLatencyP95(ctx, region)
	var latency float64
	if err == nil {
		latency = core.Clamp(100*(1-p95/maxLatencyMs), 0, 100)
	}

	uptime, err := adapter.GetUptime24h(ctx)
	var uptimeScore float64
	if err == nil {
		uptimeScore = core.Clamp(uptime*100, 0, 100)
	}

	completeness, err := adapter.GetCompleteness(ctx, dataType)
	var completenessScore float64
	if err == nil {
		completenessScore = core.Clamp(completeness*100, 0, 100)
	}

	successRate, err := adapter.GetSuccessRate(ctx)
	var reliability float64
	if err == nil {
		reliability = core.Clamp(successRate*100, 0, 100)
	}

	total := weightFreshness*freshness +
		weightLatency*latency +
		weightUptime*uptimeScore +
		weightCompleteness*completenessScore +
		weightReliability*reliability

	if adapter.Name() == domainProvider && (dataType == core.DataNews || dataType == core.DataSentiment) {
		total *= domainBonus
	}

	total = core.Clamp(total, 0, 100)
	telemetry.Default.RecordScore(adapter.Name(), string(dataType), total)

	return core.Score{
		Total:        total,
		Freshness:    freshness,
		Latency:      latency,
		Uptime:       uptimeScore,
		Completeness: completenessScore,
		Reliability:  reliability,
	}
}
