package adapters

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
	"github.com/sawpanic/fedmkt/internal/provider/httpbase"
	"github.com/sawpanic/fedmkt/internal/provider/schema"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantage covers price/OHLCV/fundamentals/news for equities via the
// GLOBAL_QUOTE, TIME_SERIES_DAILY, OVERVIEW, and NEWS_SENTIMENT endpoints.
// Technical indicators, sentiment, and macro data are not supported.
type AlphaVantage struct {
	*base
	http *httpbase.Client
}

func NewAlphaVantage(cfg provider.Config) (provider.Adapter, error) {
	if !cfg.HasCredentials() {
		return nil, core.NewProviderError("alphavantage", core.KindConfig, 0, fmt.Errorf("alphavantage requires an API key"))
	}
	cfg.Name = "alphavantage"
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 5
	}
	return &AlphaVantage{
		base: newBase(cfg, 0.95, 0.97),
		http: httpbase.New(cfg.Name, alphaVantageBaseURL, cfg.Timeout(), cfg.RateLimitPerMinute),
	}, nil
}

func (a *AlphaVantage) Name() string { return a.cfg.Name }

func (a *AlphaVantage) Initialize(ctx context.Context) error { a.state.MarkInitialized(); return nil }
func (a *AlphaVantage) Shutdown(ctx context.Context) error   { a.state.MarkShutdown(); return nil }

func (a *AlphaVantage) SupportsAsset(asset core.Asset) bool {
	return asset.Kind == core.AssetEquity || asset.Kind == core.AssetETF
}

type avGlobalQuoteEnvelope struct {
	Quote map[string]string `json:"Global Quote"`
}

func avFloat(m map[string]string, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	v = strings.TrimSuffix(v, "%")
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

func (a *AlphaVantage) FetchPrice(ctx context.Context, asset core.Asset) (core.Response, error) {
	a.state.RecordRequest()
	path := fmt.Sprintf("/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s", asset.Symbol, a.cfg.APIKey)

	var env avGlobalQuoteEnvelope
	if err := a.http.Get(ctx, path, &env); err != nil {
		a.state.RecordError()
		return core.Response{}, err
	}
	if len(env.Quote) == 0 {
		a.state.RecordError()
		return core.Response{}, core.NewProviderError(a.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no quote data available for %s", asset.Symbol))
	}

	data := map[string]any{
		"price":               avFloat(env.Quote, "05. price"),
		"change":              avFloat(env.Quote, "09. change"),
		"change_percent":      avFloat(env.Quote, "10. change percent"),
		"volume":              avFloat(env.Quote, "06. volume"),
		"previous_close":      avFloat(env.Quote, "08. previous close"),
		"open":                avFloat(env.Quote, "02. open"),
		"high":                avFloat(env.Quote, "03. high"),
		"low":                 avFloat(env.Quote, "04. low"),
		"latest_trading_day":  env.Quote["07. latest trading day"],
	}
	return core.Response{
		Provider: a.cfg.Name, Asset: asset, DataType: core.DataPrice,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataPrice, data), IsFresh: true, Confidence: 0.98,
		Metadata: map[string]any{"source": "alpha_vantage", "function": "GLOBAL_QUOTE"},
	}, nil
}

type avDailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type avDailyEnvelope struct {
	TimeSeries map[string]avDailyBar `json:"Time Series (Daily)"`
}

func (a *AlphaVantage) FetchOHLCV(ctx context.Context, asset core.Asset, timeframe string, limit int) (core.Response, error) {
	a.state.RecordRequest()
	if limit <= 0 {
		limit = 100
	}
	outputSize := "compact"
	if limit > 100 {
		outputSize = "full"
	}
	path := fmt.Sprintf("/query?function=TIME_SERIES_DAILY&symbol=%s&outputsize=%s&apikey=%s",
		asset.Symbol, outputSize, a.cfg.APIKey)

	var env avDailyEnvelope
	if err := a.http.Get(ctx, path, &env); err != nil {
		a.state.RecordError()
		return core.Response{}, err
	}
	if len(env.TimeSeries) == 0 {
		a.state.RecordError()
		return core.Response{}, core.NewProviderError(a.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no time series data available for %s", asset.Symbol))
	}

	candles := make([]schema.Candle, 0, len(env.TimeSeries))
	for ts, bar := range env.TimeSeries {
		parsed, err := time.Parse("2006-01-02", ts)
		if err != nil {
			continue
		}
		open, _ := strconv.ParseFloat(bar.Open, 64)
		high, _ := strconv.ParseFloat(bar.High, 64)
		low, _ := strconv.ParseFloat(bar.Low, 64)
		closeV, _ := strconv.ParseFloat(bar.Close, 64)
		volume, _ := strconv.ParseFloat(bar.Volume, 64)
		candles = append(candles, schema.Candle{
			Timestamp: parsed.Unix(), Open: open, High: high, Low: low, Close: closeV, Volume: volume,
			IsClosed: true, Exchange: "alpha_vantage",
		})
	}
	if len(candles) > limit {
		candles = candles[:limit]
	}

	data := map[string]any{"candles": candles, "timeframe": timeframe}
	return core.Response{
		Provider: a.cfg.Name, Asset: asset, DataType: core.DataOHLCV,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataOHLCV, data), IsFresh: true, Confidence: 0.98,
		Metadata: map[string]any{"source": "alpha_vantage", "function": "TIME_SERIES_DAILY"},
	}, nil
}

type avOverview map[string]string

func (a *AlphaVantage) FetchFundamentals(ctx context.Context, asset core.Asset) (core.Response, error) {
	a.state.RecordRequest()
	path := fmt.Sprintf("/query?function=OVERVIEW&symbol=%s&apikey=%s", asset.Symbol, a.cfg.APIKey)

	var overview avOverview
	if err := a.http.Get(ctx, path, &overview); err != nil {
		a.state.RecordError()
		return core.Response{}, err
	}
	if overview["Symbol"] == "" {
		a.state.RecordError()
		return core.Response{}, core.NewProviderError(a.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no fundamental data available for %s", asset.Symbol))
	}

	data := map[string]any{
		"symbol":     overview["Symbol"],
		"name":       overview["Name"],
		"exchange":   overview["Exchange"],
		"sector":     overview["Sector"],
		"industry":   overview["Industry"],
		"market_cap": avFloat(overview, "MarketCapitalization"),
		"pe_ratio":   avFloat(overview, "PERatio"),
		"eps":        avFloat(overview, "EPS"),
		"beta":       avFloat(overview, "Beta"),
	}
	return core.Response{
		Provider: a.cfg.Name, Asset: asset, DataType: core.DataFundamentals,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataFundamentals, data), IsFresh: true, Confidence: 0.95,
		Metadata: map[string]any{"source": "alpha_vantage", "function": "OVERVIEW"},
	}, nil
}

type avNewsArticle struct {
	Title                 string `json:"title"`
	URL                   string `json:"url"`
	TimePublished         string `json:"time_published"`
	Source                string `json:"source"`
	Summary               string `json:"summary"`
	OverallSentimentScore string `json:"overall_sentiment_score"`
}

type avNewsEnvelope struct {
	Feed []avNewsArticle `json:"feed"`
}

func (a *AlphaVantage) FetchNews(ctx context.Context, asset core.Asset, limit int) (core.Response, error) {
	a.state.RecordRequest()
	if limit <= 0 {
		limit = 10
	}
	path := fmt.Sprintf("/query?function=NEWS_SENTIMENT&tickers=%s&limit=%d&apikey=%s",
		asset.Symbol, limit, a.cfg.APIKey)

	var env avNewsEnvelope
	if err := a.http.Get(ctx, path, &env); err != nil {
		a.state.RecordError()
		return core.Response{}, err
	}

	feed := env.Feed
	if len(feed) > limit {
		feed = feed[:limit]
	}
	articles := make([]schema.Article, 0, len(feed))
	for _, item := range feed {
		publishedAt, _ := time.Parse("20060102T150405", item.TimePublished)
		sentiment, _ := strconv.ParseFloat(item.OverallSentimentScore, 64)
		articles = append(articles, schema.Article{
			Title:     item.Title,
			URL:       item.URL,
			Source:    item.Source,
			Summary:   item.Summary,
			Sentiment: sentiment,
			Published: publishedAt.Unix(),
		})
	}

	data := map[string]any{"articles": articles}
	return core.Response{
		Provider: a.cfg.Name, Asset: asset, DataType: core.DataNews,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataNews, data), IsFresh: true, Confidence: 0.90,
		Metadata: map[string]any{"source": "alpha_vantage", "function": "NEWS_SENTIMENT"},
	}, nil
}
func (a *AlphaVantage) FetchTechnical(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (a *AlphaVantage) FetchSentiment(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (a *AlphaVantage) FetchMacro(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
