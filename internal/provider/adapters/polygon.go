package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
	"github.com/sawpanic/fedmkt/internal/provider/httpbase"
	"github.com/sawpanic/fedmkt/internal/provider/schema"
)

const polygonBaseURL = "https://api.polygon.io"

// Polygon covers price/OHLCV/fundamentals and, with its own distinct
// rate-limit profile, gives the engine's fallback chain a genuine second
// full-stack provider to fail over to beyond Mock, via the
// `/v2/aggs/ticker/.../prev`, `/v2/aggs/ticker/.../range/...`, and
// `/v3/reference/tickers/...` endpoints.
type Polygon struct {
	*base
	http *httpbase.Client
}

func NewPolygon(cfg provider.Config) (provider.Adapter, error) {
	if !cfg.HasCredentials() {
		return nil, core.NewProviderError("polygon", core.KindConfig, 0, fmt.Errorf("polygon requires an API key"))
	}
	cfg.Name = "polygon"
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 5
	}
	return &Polygon{
		base: newBase(cfg, 0.97, 0.995),
		http: httpbase.New(cfg.Name, polygonBaseURL, cfg.Timeout(), cfg.RateLimitPerMinute),
	}, nil
}

func (p *Polygon) Name() string { return p.cfg.Name }

func (p *Polygon) Initialize(ctx context.Context) error { p.state.MarkInitialized(); return nil }
func (p *Polygon) Shutdown(ctx context.Context) error   { p.state.MarkShutdown(); return nil }

func (p *Polygon) SupportsAsset(asset core.Asset) bool {
	return asset.Kind == core.AssetEquity || asset.Kind == core.AssetETF
}

type polygonBar struct {
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
	T int64   `json:"t"`
}

type polygonAggsEnvelope struct {
	Ticker  string       `json:"ticker"`
	Results []polygonBar `json:"results"`
}

func (p *Polygon) FetchPrice(ctx context.Context, asset core.Asset) (core.Response, error) {
	p.state.RecordRequest()
	path := fmt.Sprintf("/v2/aggs/ticker/%s/prev?apiKey=%s", asset.Symbol, p.cfg.APIKey)

	var env polygonAggsEnvelope
	if err := p.http.Get(ctx, path, &env); err != nil {
		p.state.RecordError()
		return core.Response{}, err
	}
	if len(env.Results) == 0 {
		p.state.RecordError()
		return core.Response{}, core.NewProviderError(p.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no price data available for %s", asset.Symbol))
	}

	bar := env.Results[0]
	data := map[string]any{
		"price": bar.C, "open": bar.O, "high": bar.H, "low": bar.L, "volume": bar.V,
	}
	return core.Response{
		Provider: p.cfg.Name, Asset: asset, DataType: core.DataPrice,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataPrice, data), IsFresh: true, Confidence: 0.98,
		Metadata: map[string]any{"source": "polygon", "ticker": env.Ticker},
	}, nil
}

func (p *Polygon) FetchOHLCV(ctx context.Context, asset core.Asset, timeframe string, limit int) (core.Response, error) {
	p.state.RecordRequest()
	if limit <= 0 {
		limit = 100
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -limit)
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s?limit=%d&sort=desc&apiKey=%s",
		asset.Symbol, from.Format("2006-01-02"), to.Format("2006-01-02"), limit, p.cfg.APIKey)

	var env polygonAggsEnvelope
	if err := p.http.Get(ctx, path, &env); err != nil {
		p.state.RecordError()
		return core.Response{}, err
	}
	if len(env.Results) == 0 {
		p.state.RecordError()
		return core.Response{}, core.NewProviderError(p.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no OHLCV data available for %s", asset.Symbol))
	}

	bars := env.Results
	if len(bars) > limit {
		bars = bars[:limit]
	}
	candles := make([]schema.Candle, 0, len(bars))
	for _, bar := range bars {
		candles = append(candles, schema.Candle{
			Timestamp: bar.T / 1000, Open: bar.O, High: bar.H, Low: bar.L, Close: bar.C, Volume: bar.V,
			IsClosed: true, Exchange: "polygon",
		})
	}

	data := map[string]any{"candles": candles, "timeframe": timeframe}
	return core.Response{
		Provider: p.cfg.Name, Asset: asset, DataType: core.DataOHLCV,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataOHLCV, data), IsFresh: true, Confidence: 0.98,
		Metadata: map[string]any{"source": "polygon", "ticker": env.Ticker},
	}, nil
}

type polygonTickerResult struct {
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	Market          string `json:"market"`
	PrimaryExchange string `json:"primary_exchange"`
	CurrencyName    string `json:"currency_name"`
}

type polygonTickerEnvelope struct {
	Results polygonTickerResult `json:"results"`
}

func (p *Polygon) FetchFundamentals(ctx context.Context, asset core.Asset) (core.Response, error) {
	p.state.RecordRequest()
	path := fmt.Sprintf("/v3/reference/tickers/%s?apiKey=%s", asset.Symbol, p.cfg.APIKey)

	var env polygonTickerEnvelope
	if err := p.http.Get(ctx, path, &env); err != nil {
		p.state.RecordError()
		return core.Response{}, err
	}
	if env.Results.Ticker == "" {
		p.state.RecordError()
		return core.Response{}, core.NewProviderError(p.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no fundamental data available for %s", asset.Symbol))
	}

	data := map[string]any{
		"symbol":           env.Results.Ticker,
		"name":             env.Results.Name,
		"market":           env.Results.Market,
		"primary_exchange": env.Results.PrimaryExchange,
		"currency_name":    env.Results.CurrencyName,
	}
	return core.Response{
		Provider: p.cfg.Name, Asset: asset, DataType: core.DataFundamentals,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataFundamentals, data), IsFresh: true, Confidence: 0.95,
		Metadata: map[string]any{"source": "polygon"},
	}, nil
}

type polygonNewsArticle struct {
	Title        string                              `json:"title"`
	ArticleURL   string                              `json:"article_url"`
	Publisher    struct{ Name string `json:"name"` } `json:"publisher"`
	PublishedUTC string                              `json:"published_utc"`
	Description  string                              `json:"description"`
}

type polygonNewsEnvelope struct {
	Results []polygonNewsArticle `json:"results"`
}

func (p *Polygon) FetchNews(ctx context.Context, asset core.Asset, limit int) (core.Response, error) {
	p.state.RecordRequest()
	if limit <= 0 {
		limit = 10
	}
	path := fmt.Sprintf("/v2/reference/news?ticker=%s&limit=%d&apiKey=%s", asset.Symbol, limit, p.cfg.APIKey)

	var env polygonNewsEnvelope
	if err := p.http.Get(ctx, path, &env); err != nil {
		p.state.RecordError()
		return core.Response{}, err
	}

	results := env.Results
	if len(results) > limit {
		results = results[:limit]
	}
	articles := make([]schema.Article, 0, len(results))
	for _, item := range results {
		publishedAt, _ := time.Parse(time.RFC3339, item.PublishedUTC)
		articles = append(articles, schema.Article{
			Title:     item.Title,
			URL:       item.ArticleURL,
			Source:    item.Publisher.Name,
			Summary:   item.Description,
			Published: publishedAt.Unix(),
		})
	}

	data := map[string]any{"articles": articles}
	return core.Response{
		Provider: p.cfg.Name, Asset: asset, DataType: core.DataNews,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataNews, data), IsFresh: true, Confidence: 0.92,
		Metadata: map[string]any{"source": "polygon"},
	}, nil
}
func (p *Polygon) FetchTechnical(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (p *Polygon) FetchSentiment(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (p *Polygon) FetchMacro(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
