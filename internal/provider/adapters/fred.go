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

const fredBaseURL = "https://api.stlouisfed.org/fred"

// fredSeriesMapping mirrors a slice of the original's SERIES_MAPPING —
// common macro symbols to FRED series IDs.
var fredSeriesMapping = map[string]string{
	"GDP":          "GDP",
	"CPI":          "CPIAUCSL",
	"UNEMPLOYMENT": "UNRATE",
	"FEDFUNDS":     "FEDFUNDS",
	"10Y":          "DGS10",
}

// Fred is the one concrete adapter exercising core.DataMacro, via the
// `/series/observations` endpoint.
type Fred struct {
	*base
	http *httpbase.Client
}

func NewFred(cfg provider.Config) (provider.Adapter, error) {
	if !cfg.HasCredentials() {
		return nil, core.NewProviderError("fred", core.KindConfig, 0, fmt.Errorf("fred requires an API key"))
	}
	cfg.Name = "fred"
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 120
	}
	return &Fred{
		base: newBase(cfg, 0.90, 0.99),
		http: httpbase.New(cfg.Name, fredBaseURL, cfg.Timeout(), cfg.RateLimitPerMinute),
	}, nil
}

func (f *Fred) Name() string { return f.cfg.Name }

func (f *Fred) Initialize(ctx context.Context) error { f.state.MarkInitialized(); return nil }
func (f *Fred) Shutdown(ctx context.Context) error   { f.state.MarkShutdown(); return nil }

func (f *Fred) SupportsAsset(asset core.Asset) bool { return true }

func (f *Fred) seriesID(symbol string) string {
	if id, ok := fredSeriesMapping[strings.ToUpper(symbol)]; ok {
		return id
	}
	return symbol
}

type fredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type fredObservationsEnvelope struct {
	Observations []fredObservation `json:"observations"`
}

func (f *Fred) FetchMacro(ctx context.Context, asset core.Asset) (core.Response, error) {
	f.state.RecordRequest()
	seriesID := f.seriesID(asset.Symbol)
	path := fmt.Sprintf("/series/observations?series_id=%s&sort_order=desc&limit=1&file_type=json&api_key=%s",
		seriesID, f.cfg.APIKey)

	var env fredObservationsEnvelope
	if err := f.http.Get(ctx, path, &env); err != nil {
		f.state.RecordError()
		return core.Response{}, err
	}
	if len(env.Observations) == 0 {
		f.state.RecordError()
		return core.Response{}, core.NewProviderError(f.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no macro data available for %s", asset.Symbol))
	}

	latest := env.Observations[0]
	value, err := strconv.ParseFloat(latest.Value, 64)
	if err != nil {
		value = 0.0 // FRED uses "." for missing observations
	}

	data := map[string]any{
		"value":     value,
		"date":      latest.Date,
		"series_id": seriesID,
	}
	return core.Response{
		Provider: f.cfg.Name, Asset: asset, DataType: core.DataMacro,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataMacro, data), IsFresh: true, Confidence: 0.95,
		Metadata: map[string]any{"source": "fred", "series_id": seriesID},
	}, nil
}

// FetchPrice treats the macro series' latest value as a price, for
// FRED-backed pseudo-assets (e.g. "10Y" representing the 10-year yield).
func (f *Fred) FetchPrice(ctx context.Context, asset core.Asset) (core.Response, error) {
	macro, err := f.FetchMacro(ctx, asset)
	if err != nil {
		return core.Response{}, err
	}
	data := map[string]any{"price": macro.Data["value"], "date": macro.Data["date"]}
	return core.Response{
		Provider: f.cfg.Name, Asset: asset, DataType: core.DataPrice,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataPrice, data), IsFresh: true, Confidence: 0.95,
		Metadata: map[string]any{"source": "fred"},
	}, nil
}

// FetchOHLCV reports a series' observations as degenerate candles
// (open=high=low=close=value, volume=0), since FRED series have no
// intra-period range or trading volume of their own.
func (f *Fred) FetchOHLCV(ctx context.Context, asset core.Asset, timeframe string, limit int) (core.Response, error) {
	f.state.RecordRequest()
	if limit <= 0 {
		limit = 100
	}
	seriesID := f.seriesID(asset.Symbol)
	path := fmt.Sprintf("/series/observations?series_id=%s&sort_order=desc&limit=%d&file_type=json&api_key=%s",
		seriesID, limit, f.cfg.APIKey)

	var env fredObservationsEnvelope
	if err := f.http.Get(ctx, path, &env); err != nil {
		f.state.RecordError()
		return core.Response{}, err
	}
	if len(env.Observations) == 0 {
		f.state.RecordError()
		return core.Response{}, core.NewProviderError(f.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no historical data available for %s", asset.Symbol))
	}

	candles := make([]schema.Candle, 0, len(env.Observations))
	for _, obs := range env.Observations {
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue // "." marks a missing FRED observation
		}
		parsed, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			continue
		}
		candles = append(candles, schema.Candle{
			Timestamp: parsed.Unix(), Open: value, High: value, Low: value, Close: value, Volume: 0,
			IsClosed: true, Exchange: "fred",
		})
	}

	data := map[string]any{"candles": candles, "timeframe": timeframe}
	return core.Response{
		Provider: f.cfg.Name, Asset: asset, DataType: core.DataOHLCV,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataOHLCV, data), IsFresh: true, Confidence: 0.95,
		Metadata: map[string]any{"source": "fred", "series_id": seriesID},
	}, nil
}
func (f *Fred) FetchFundamentals(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (f *Fred) FetchNews(ctx context.Context, asset core.Asset, limit int) (core.Response, error) {
	return unsupported()
}
func (f *Fred) FetchTechnical(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (f *Fred) FetchSentiment(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
