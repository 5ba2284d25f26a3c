package arbitration

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider/schema"
	"github.com/sawpanic/fedmkt/internal/telemetry"
)

// Merge treats zero inputs as a programmer error, passes a single input
// through unchanged, and otherwise dispatches on dataType.
func Merge(responses []core.Response, dataType core.DataType) (core.Response, error) {
	if len(responses) == 0 {
		return core.Response{}, core.ErrEmptyMergeInput
	}
	if len(responses) == 1 {
		return responses[0], nil
	}

	strategy := core.MergeStrategyFor(dataType)
	telemetry.Default.RecordMerge(string(strategy))

	switch dataType {
	case core.DataPrice, core.DataSentiment:
		return mergeWeightedAverage(responses, dataType)
	case core.DataOHLCV:
		return mergeAggregateCandles(responses)
	case core.DataFundamentals:
		return mergeTakeMostRecent(responses)
	case core.DataNews:
		return mergeDeduplicateNews(responses)
	default:
		return mergeTakeMostRecent(responses)
	}
}

func stamp(resp *core.Response, dataType core.DataType, asset core.Asset) {
	resp.Provider = core.ArbitrationProvider
	resp.DataType = dataType
	resp.Asset = asset
	resp.Timestamp = time.Now()
	resp.IsValid = true
	resp.IsFresh = true
}

// mergeWeightedAverage handles price (field "price") and sentiment
// (field "score") with the same weighted_average recipe applied to
// different scalar fields.
func mergeWeightedAverage(responses []core.Response, dataType core.DataType) (core.Response, error) {
	field := "price"
	if dataType == core.DataSentiment {
		field = "score"
	}

	values := make([]float64, 0, len(responses))
	sources := make([]string, 0, len(responses))

	var weightedSum, weightSum float64
	for _, r := range responses {
		v, ok := asFloat(r.Data[field])
		if !ok {
			continue
		}
		confidence := r.Confidence
		if confidence <= 0 {
			confidence = 1.0
		}
		values = append(values, v)
		sources = append(sources, r.Provider)
		weightedSum += v * confidence
		weightSum += confidence
	}

	var mean float64
	if weightSum > 0 {
		mean = weightedSum / weightSum
	}
	// Identical inputs merge to that exact value; the weighted division
	// above can otherwise land one ulp away from it.
	agree := len(values) > 0
	for _, v := range values {
		if v != values[0] {
			agree = false
			break
		}
	}
	if agree {
		mean = values[0]
	}

	confidence := 1.0
	if len(values) > 1 && mean != 0 {
		confidence = 1.0 / (1.0 + stddev(values, mean)/math.Abs(mean))
	}

	data := map[string]any{
		field:          mean,
		"sources":      sources,
		"source_count": len(values),
	}
	if len(values) > 0 {
		min, max := values[0], values[0]
		for _, v := range values {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		data[field+"_range"] = map[string]float64{"min": min, "max": max}
	}

	out := core.Response{
		Data:       data,
		Confidence: confidence,
		Metadata:   map[string]any{"merge_strategy": string(core.MergeWeightedAverage)},
	}
	stamp(&out, dataType, responses[0].Asset)
	return out, nil
}

func stddev(values []float64, mean float64) float64 {
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// mergeAggregateCandles dedupes by (timestamp, exchange) and combines
// overlapping candles using standard OHLCV aggregation (open=earliest,
// high=max, low=min, close=latest, volume=sum) — see DESIGN.md.
func mergeAggregateCandles(responses []core.Response) (core.Response, error) {
	type key struct {
		ts       int64
		exchange string
	}
	combined := make(map[key]schema.Candle)
	order := make([]key, 0)
	sources := make([]string, 0, len(responses))

	// Open comes from whichever response reports this (timestamp,
	// exchange) pair first, since responses arrive in caller-supplied
	// (and therefore chronological-enough) order; close comes from
	// whichever reports it last.
	for _, r := range responses {
		sources = append(sources, r.Provider)
		raw, ok := r.Data["candles"]
		if !ok {
			continue
		}
		candles, ok := raw.([]schema.Candle)
		if !ok {
			continue
		}
		for _, c := range candles {
			k := key{ts: c.Timestamp, exchange: c.Exchange}
			existing, found := combined[k]
			if !found {
				combined[k] = c
				order = append(order, k)
				continue
			}
			if c.High > existing.High {
				existing.High = c.High
			}
			if c.Low < existing.Low {
				existing.Low = c.Low
			}
			existing.Volume += c.Volume
			existing.Close = c.Close
			combined[k] = existing
		}
	}

	candles := make([]schema.Candle, 0, len(order))
	for _, k := range order {
		candles = append(candles, combined[k])
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })

	out := core.Response{
		Data:       map[string]any{"candles": candles, "sources": sources},
		Confidence: 1.0,
		Metadata:   map[string]any{"merge_strategy": string(core.MergeAggregateCandles)},
	}
	stamp(&out, core.DataOHLCV, responses[0].Asset)
	return out, nil
}

// mergeTakeMostRecent sorts by timestamp descending and, for each key
// across the union of data maps, adopts the first non-nil value
// encountered — order-sensitive.
func mergeTakeMostRecent(responses []core.Response) (core.Response, error) {
	sorted := make([]core.Response, len(responses))
	copy(sorted, responses)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })

	data := make(map[string]any)
	for _, r := range sorted {
		for k, v := range r.Data {
			if v == nil {
				continue
			}
			if _, already := data[k]; !already {
				data[k] = v
			}
		}
	}

	out := core.Response{
		Data:       data,
		Confidence: 0.90,
		Metadata:   map[string]any{"merge_strategy": string(core.MergeTakeMostRecent)},
	}
	stamp(&out, responses[0].DataType, responses[0].Asset)
	return out, nil
}

// mergeDeduplicateNews unions articles across responses, de-duping by
// canonical URL, preserving first-occurrence order.
func mergeDeduplicateNews(responses []core.Response) (core.Response, error) {
	seen := make(map[string]bool)
	merged := make([]schema.Article, 0)

	for _, r := range responses {
		raw, ok := r.Data["articles"]
		if !ok {
			continue
		}
		articles, ok := raw.([]schema.Article)
		if !ok {
			continue
		}
		for _, a := range articles {
			if seen[a.URL] {
				continue
			}
			seen[a.URL] = true
			merged = append(merged, a)
		}
	}

	out := core.Response{
		Data:       map[string]any{"articles": merged},
		Confidence: 1.0,
		Metadata:   map[string]any{"merge_strategy": string(core.MergeDeduplicateAndMerge)},
	}
	stamp(&out, core.DataNews, responses[0].Asset)
	return out, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
