// Package schema documents the per-data-type field expectations for
// core.Response.Data and validates responses against them at the adapter
// boundary: rather than encode every provider's schema in the Go type
// system, adapters call these validators before returning a response so
// IsValid reflects a real structural check instead of a hardcoded true.
package schema

import (
	"math"

	"github.com/sawpanic/fedmkt/internal/core"
)

// Candle is the documented shape of one entry in an OHLCV response's
// "candles" field.
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	IsClosed  bool
	Exchange  string
}

// ValidatePrice checks the fields a price response must carry: price is
// required and finite-positive; change/change_percent/volume are
// optional but, if present, must be numeric.
func ValidatePrice(data map[string]any) bool {
	price, ok := asFloat(data["price"])
	if !ok || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	for _, key := range []string{"change", "change_percent", "volume"} {
		if v, present := data[key]; present {
			if _, numeric := asFloat(v); !numeric {
				return false
			}
		}
	}
	return true
}

// ValidateOHLCV checks that "candles" is present and every entry has the
// five OHLCV numeric fields.
func ValidateOHLCV(data map[string]any) bool {
	raw, ok := data["candles"]
	if !ok {
		return false
	}
	candles, ok := raw.([]Candle)
	if !ok || len(candles) == 0 {
		return false
	}
	for _, c := range candles {
		if c.High < c.Low {
			return false
		}
	}
	return true
}

// ValidateFundamentals requires at least one non-empty field — the set
// of fundamentals fields varies enough across equities/crypto/commodities
// that no fixed required field makes sense.
func ValidateFundamentals(data map[string]any) bool {
	return len(data) > 0
}

// ValidateNews requires an "articles" field that is a non-nil slice.
func ValidateNews(data map[string]any) bool {
	raw, ok := data["articles"]
	if !ok {
		return false
	}
	articles, ok := raw.([]Article)
	return ok && articles != nil
}

// Article is the documented shape of one entry in a news response's
// "articles" field.
type Article struct {
	Title     string
	URL       string
	Source    string
	Summary   string
	Sentiment float64
	Published int64
}

// ValidateSentiment requires a numeric "score" field in [-1, 1].
func ValidateSentiment(data map[string]any) bool {
	score, ok := asFloat(data["score"])
	if !ok {
		return false
	}
	return score >= -1 && score <= 1
}

// Validate dispatches to the validator for dataType. Data types with no
// documented schema (technical, macro, correlation, risk) are considered
// structurally valid whenever the map is non-empty.
func Validate(dataType core.DataType, data map[string]any) bool {
	switch dataType {
	case core.DataPrice:
		return ValidatePrice(data)
	case core.DataOHLCV:
		return ValidateOHLCV(data)
	case core.DataFundamentals:
		return ValidateFundamentals(data)
	case core.DataNews:
		return ValidateNews(data)
	case core.DataSentiment:
		return ValidateSentiment(data)
	default:
		return len(data) > 0
	}
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
