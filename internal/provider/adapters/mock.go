package adapters

import (
	"context"
	"time"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
	"github.com/sawpanic/fedmkt/internal/provider/schema"
)

// Mock is a deterministic in-memory adapter used by tests and by
// `fedmktd providers probe` when no credentials are configured:
// synthetic data, no network calls, every Fetch* implemented except
// FetchMacro (macro series are FRED-specific and have no mock analogue).
type Mock struct{ *base }

// NewMock builds a Mock adapter. cfg.Name defaults to "mock" if empty.
func NewMock(cfg provider.Config) (provider.Adapter, error) {
	if cfg.Name == "" {
		cfg.Name = "mock"
	}
	return &Mock{base: newBase(cfg, 1.0, 0.99)}, nil
}

func (m *Mock) Name() string { return m.cfg.Name }

func (m *Mock) Initialize(ctx context.Context) error {
	m.state.MarkInitialized()
	return nil
}

func (m *Mock) Shutdown(ctx context.Context) error {
	m.state.MarkShutdown()
	return nil
}

func (m *Mock) SupportsAsset(asset core.Asset) bool { return true }

func (m *Mock) FetchPrice(ctx context.Context, asset core.Asset) (core.Response, error) {
	m.state.RecordRequest()
	price := 100.0
	if asset.Kind == core.AssetCrypto {
		price = 40000.0
	}
	data := map[string]any{
		"price":          price,
		"change":         -1.5,
		"change_percent": -1.48,
		"volume":         1_000_000.0,
	}
	return core.Response{
		Provider: m.cfg.Name, Asset: asset, DataType: core.DataPrice,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataPrice, data), IsFresh: true, Confidence: 1.0,
		Metadata: map[string]any{"source": "mock"},
	}, nil
}

func (m *Mock) FetchOHLCV(ctx context.Context, asset core.Asset, timeframe string, limit int) (core.Response, error) {
	m.state.RecordRequest()
	if limit <= 0 {
		limit = 100
	}
	now := time.Now().Unix()
	candles := make([]schema.Candle, 0, limit)
	for i := 0; i < limit; i++ {
		candles = append(candles, schema.Candle{
			Timestamp: now - int64(i*86400),
			Open:      100.0, High: 105.0, Low: 98.0, Close: 102.0, Volume: 1_000_000.0,
			IsClosed: true, Exchange: "mock",
		})
	}
	data := map[string]any{"candles": candles, "timeframe": timeframe}
	return core.Response{
		Provider: m.cfg.Name, Asset: asset, DataType: core.DataOHLCV,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataOHLCV, data), IsFresh: true, Confidence: 1.0,
	}, nil
}

func (m *Mock) FetchFundamentals(ctx context.Context, asset core.Asset) (core.Response, error) {
	m.state.RecordRequest()
	data := map[string]any{
		"market_cap": 100_000_000_000.0,
		"pe_ratio":   25.5,
		"eps":        4.5,
		"beta":       1.2,
		"sector":     "Technology",
	}
	return core.Response{
		Provider: m.cfg.Name, Asset: asset, DataType: core.DataFundamentals,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataFundamentals, data), IsFresh: true, Confidence: 1.0,
	}, nil
}

func (m *Mock) FetchNews(ctx context.Context, asset core.Asset, limit int) (core.Response, error) {
	m.state.RecordRequest()
	if limit <= 0 {
		limit = 10
	}
	articles := make([]schema.Article, 0, limit)
	for i := 0; i < limit; i++ {
		articles = append(articles, schema.Article{
			Title:     "Mock news article",
			URL:       "https://example.com/news/mock",
			Source:    "mock",
			Sentiment: 0.5,
			Published: time.Now().Unix(),
		})
	}
	data := map[string]any{"articles": articles}
	return core.Response{
		Provider: m.cfg.Name, Asset: asset, DataType: core.DataNews,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataNews, data), IsFresh: true, Confidence: 0.8,
	}, nil
}

func (m *Mock) FetchTechnical(ctx context.Context, asset core.Asset) (core.Response, error) {
	m.state.RecordRequest()
	data := map[string]any{
		"rsi_14":     55.0,
		"macd":       0.8,
		"macd_signal": 0.6,
		"sma_50":     101.0,
		"sma_200":    98.0,
	}
	return core.Response{
		Provider: m.cfg.Name, Asset: asset, DataType: core.DataTechnical,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataTechnical, data), IsFresh: true, Confidence: 0.9,
	}, nil
}

func (m *Mock) FetchSentiment(ctx context.Context, asset core.Asset) (core.Response, error) {
	m.state.RecordRequest()
	data := map[string]any{"score": 0.5}
	return core.Response{
		Provider: m.cfg.Name, Asset: asset, DataType: core.DataSentiment,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataSentiment, data), IsFresh: true, Confidence: 0.7,
	}, nil
}

func (m *Mock) FetchMacro(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
