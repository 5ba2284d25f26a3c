package arbitration

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
	"github.com/sawpanic/fedmkt/internal/provider/schema"
	"github.com/sawpanic/fedmkt/internal/registry"
)

// testAdapter is a fully scriptable provider.Adapter for arbitration
// tests: hand-built fixtures rather than live network calls.
type testAdapter struct {
	name         string
	lastUpdate   time.Time
	latencyP95   float64
	uptime       float64
	completeness float64
	successRate  float64
	cooldown     time.Time
	errorCount   int

	fetchPriceFn func(ctx context.Context, asset core.Asset) (core.Response, error)
}

func (a *testAdapter) Name() string                         { return a.name }
func (a *testAdapter) Initialize(ctx context.Context) error { return nil }
func (a *testAdapter) Shutdown(ctx context.Context) error   { return nil }
func (a *testAdapter) SupportsAsset(asset core.Asset) bool  { return true }

func (a *testAdapter) FetchPrice(ctx context.Context, asset core.Asset) (core.Response, error) {
	if a.fetchPriceFn != nil {
		resp, err := a.fetchPriceFn(ctx, asset)
		if err != nil {
			a.errorCount++
		}
		return resp, err
	}
	return core.Response{}, core.ErrUnsupportedOperation
}
func (a *testAdapter) FetchOHLCV(ctx context.Context, asset core.Asset, timeframe string, limit int) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (a *testAdapter) FetchFundamentals(ctx context.Context, asset core.Asset) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (a *testAdapter) FetchNews(ctx context.Context, asset core.Asset, limit int) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (a *testAdapter) FetchTechnical(ctx context.Context, asset core.Asset) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (a *testAdapter) FetchSentiment(ctx context.Context, asset core.Asset) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (a *testAdapter) FetchMacro(ctx context.Context, asset core.Asset) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}

func (a *testAdapter) GetHealth(ctx context.Context) (core.Health, error) {
	return core.Health{Name: a.name, Healthy: true}, nil
}
func (a *testAdapter) GetLatencyP95(ctx context.Context, region string) (float64, error) {
	return a.latencyP95, nil
}
func (a *testAdapter) GetLastUpdate(ctx context.Context, asset core.Asset, dataType core.DataType) (time.Time, error) {
	return a.lastUpdate, nil
}
func (a *testAdapter) GetCompleteness(ctx context.Context, dataType core.DataType) (float64, error) {
	return a.completeness, nil
}
func (a *testAdapter) GetSuccessRate(ctx context.Context) (float64, error) { return a.successRate, nil }
func (a *testAdapter) GetUptime24h(ctx context.Context) (float64, error)   { return a.uptime, nil }

func (a *testAdapter) IsInCooldown() bool          { return time.Now().Before(a.cooldown) }
func (a *testAdapter) SetCooldown(d time.Duration) { a.cooldown = time.Now().Add(d) }
func (a *testAdapter) Config() provider.Config {
	return provider.Config{Name: a.name, Enabled: true, TimeoutSeconds: 5}
}

func healthyAdapter(name string) *testAdapter {
	return &testAdapter{
		name:         name,
		lastUpdate:   time.Now(),
		latencyP95:   100,
		uptime:       1.0,
		completeness: 1.0,
		successRate:  1.0,
	}
}

// S1 — single provider success.
func TestScenario_SingleProviderSuccess(t *testing.T) {
	asset := core.NewAsset("aapl", core.AssetEquity, core.MarketUS)
	m := healthyAdapter("M")
	m.fetchPriceFn = func(ctx context.Context, asset core.Asset) (core.Response, error) {
		return core.Response{
			Provider: "M", Asset: asset, DataType: core.DataPrice,
			Data:       map[string]any{"price": 150.0, "change": -1.5, "change_percent": -1.48, "volume": 1_000_000.0},
			IsValid:    true,
			IsFresh:    true,
			Confidence: 1.0,
		}, nil
	}

	plan, err := Arbitrate(context.Background(), []provider.Adapter{m}, asset, core.DataPrice, "US", 300)
	if err != nil {
		t.Fatalf("Arbitrate: %v", err)
	}
	if plan.PrimaryProvider != "M" {
		t.Fatalf("expected primary M, got %s", plan.PrimaryProvider)
	}
	if len(plan.FallbackProviders) != 0 {
		t.Fatalf("expected no fallbacks, got %v", plan.FallbackProviders)
	}
	if plan.MergeStrategy != nil {
		t.Fatal("expected no merge strategy with a single candidate")
	}

	lookup := func(name string) (provider.Adapter, bool) {
		if name == "M" {
			return m, true
		}
		return nil, false
	}
	resp, err := ExecuteWithFallback(context.Background(), plan, asset, core.DataPrice, lookup)
	if err != nil {
		t.Fatalf("ExecuteWithFallback: %v", err)
	}
	if resp.Data["price"] != 150.0 {
		t.Fatalf("expected unchanged response, got %v", resp.Data)
	}
}

// S2 — primary fails, fallback wins.
func TestScenario_PrimaryFailsFallbackWins(t *testing.T) {
	asset := core.NewAsset("aapl", core.AssetEquity, core.MarketUS)

	a := healthyAdapter("A")
	a.latencyP95 = 50 // push A's score above B's
	a.fetchPriceFn = func(ctx context.Context, asset core.Asset) (core.Response, error) {
		return core.Response{}, core.NewProviderError("A", core.KindTransport, 0, errors.New("connection reset"))
	}

	b := healthyAdapter("B")
	b.latencyP95 = 1000
	b.fetchPriceFn = func(ctx context.Context, asset core.Asset) (core.Response, error) {
		return core.Response{Provider: "B", Data: map[string]any{"price": 100.0}, IsValid: true, IsFresh: true, Confidence: 1.0}, nil
	}

	plan, err := Arbitrate(context.Background(), []provider.Adapter{a, b}, asset, core.DataPrice, "US", 300)
	if err != nil {
		t.Fatalf("Arbitrate: %v", err)
	}
	if plan.PrimaryProvider != "A" {
		t.Fatalf("expected A to score higher and be primary, got %s", plan.PrimaryProvider)
	}

	lookup := func(name string) (provider.Adapter, bool) {
		switch name {
		case "A":
			return a, true
		case "B":
			return b, true
		}
		return nil, false
	}
	resp, err := ExecuteWithFallback(context.Background(), plan, asset, core.DataPrice, lookup)
	if err != nil {
		t.Fatalf("ExecuteWithFallback: %v", err)
	}
	if resp.Provider != "B" {
		t.Fatalf("expected fallback to B, got %s", resp.Provider)
	}
	if a.errorCount != 1 {
		t.Fatalf("expected A.errorCount == 1, got %d", a.errorCount)
	}
}

// S3 — rate-limit triggers cooldown.
func TestScenario_RateLimitTriggersCooldown(t *testing.T) {
	asset := core.NewAsset("x", core.AssetCrypto, core.MarketCrypto)
	r := healthyAdapter("R")
	r.fetchPriceFn = func(ctx context.Context, asset core.Asset) (core.Response, error) {
		return core.Response{}, errors.New("Rate limit exceeded. Wait 10s")
	}

	lookup := func(name string) (provider.Adapter, bool) { return r, name == "R" }
	plan := core.Plan{PrimaryProvider: "R"}

	_, err := ExecuteWithFallback(context.Background(), plan, asset, core.DataPrice, lookup)
	if err != core.ErrNoProviderAvailable {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
	if !r.IsInCooldown() {
		t.Fatal("expected R to be in cooldown")
	}
	remaining := time.Until(r.cooldown)
	if remaining < 10*time.Second || remaining > 12*time.Second {
		t.Fatalf("expected cooldown ~11s, got %v", remaining)
	}

	score := Score(context.Background(), r, asset, core.DataPrice, "US", 300)
	if score.Total != 0 {
		t.Fatalf("expected zero score while in cooldown, got %v", score.Total)
	}
}

// Invariant 1 — score bounds, cooldown all-zero.
func TestInvariant_ScoreBoundsAndCooldownZero(t *testing.T) {
	asset := core.NewAsset("x", core.AssetEquity, core.MarketUS)
	a := healthyAdapter("A")
	a.SetCooldown(time.Minute)

	score := Score(context.Background(), a, asset, core.DataPrice, "US", 300)
	if score != core.ZeroScore() {
		t.Fatalf("expected all-zero score in cooldown, got %+v", score)
	}

	fresh := healthyAdapter("B")
	s2 := Score(context.Background(), fresh, asset, core.DataPrice, "US", 300)
	for _, v := range []float64{s2.Total, s2.Freshness, s2.Latency, s2.Uptime, s2.Completeness, s2.Reliability} {
		if v < 0 || v > 100 {
			t.Fatalf("score field out of bounds: %v", v)
		}
	}
}

// Invariant 7 — symbol normalization.
func TestInvariant_SymbolNormalization(t *testing.T) {
	a := core.NewAsset("aapl", core.AssetEquity, core.MarketUS)
	if a.Symbol != "AAPL" {
		t.Fatalf("expected upper-cased symbol, got %q", a.Symbol)
	}
}

// Invariant 8 — newsapi domain bonus.
func TestInvariant_NewsAPIDomainBonus(t *testing.T) {
	asset := core.NewAsset("x", core.AssetEquity, core.MarketUS)
	newsapi := healthyAdapter("newsapi")
	other := healthyAdapter("other")

	newsScore := Score(context.Background(), newsapi, asset, core.DataNews, "US", 300)
	otherScore := Score(context.Background(), other, asset, core.DataNews, "US", 300)
	if newsScore.Total < otherScore.Total {
		t.Fatalf("expected newsapi score >= unbiased score, got %v < %v", newsScore.Total, otherScore.Total)
	}
	if newsScore.Total > 100 {
		t.Fatalf("expected cap at 100, got %v", newsScore.Total)
	}
}

// Invariant 4 — merge identity.
func TestInvariant_MergeIdentity(t *testing.T) {
	r := core.Response{Provider: "M", Data: map[string]any{"price": 10.0}, IsValid: true, IsFresh: true}
	merged, err := Merge([]core.Response{r}, core.DataPrice)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Data["price"] != r.Data["price"] {
		t.Fatalf("expected identity merge, got %v", merged)
	}
}

// Invariant 6 — price merge agreement.
func TestInvariant_PriceMergeAgreement(t *testing.T) {
	responses := []core.Response{
		{Provider: "A", Data: map[string]any{"price": 100.0}, Confidence: 0.9},
		{Provider: "B", Data: map[string]any{"price": 100.0}, Confidence: 0.8},
	}
	merged, err := Merge(responses, core.DataPrice)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Data["price"] != 100.0 {
		t.Fatalf("expected merged price 100.0, got %v", merged.Data["price"])
	}
	if merged.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0 on agreement, got %v", merged.Confidence)
	}
}

func TestMerge_EmptyInputIsError(t *testing.T) {
	if _, err := Merge(nil, core.DataPrice); err != core.ErrEmptyMergeInput {
		t.Fatalf("expected ErrEmptyMergeInput, got %v", err)
	}
}

func TestMerge_AggregateCandlesDedupesByTimestampAndExchange(t *testing.T) {
	asset := core.NewAsset("btc", core.AssetCrypto, core.MarketCrypto)
	responses := []core.Response{
		{
			Provider: "A", Asset: asset,
			Data: map[string]any{"candles": []schema.Candle{
				{Timestamp: 1000, Open: 10, High: 12, Low: 9, Close: 11, Volume: 5, Exchange: "kraken"},
			}},
		},
		{
			Provider: "B", Asset: asset,
			Data: map[string]any{"candles": []schema.Candle{
				{Timestamp: 1000, Open: 10.5, High: 13, Low: 8, Close: 11.5, Volume: 3, Exchange: "kraken"},
			}},
		},
	}

	merged, err := Merge(responses, core.DataOHLCV)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	candles := merged.Data["candles"].([]schema.Candle)
	if len(candles) != 1 {
		t.Fatalf("expected candles deduped to 1, got %d", len(candles))
	}
	c := candles[0]
	if c.High != 13 || c.Low != 8 || c.Volume != 8 || c.Close != 11.5 {
		t.Fatalf("unexpected aggregation: %+v", c)
	}
}

func TestMerge_TakeMostRecentOrderSensitive(t *testing.T) {
	now := time.Now()
	responses := []core.Response{
		{Provider: "old", Timestamp: now.Add(-time.Hour), Data: map[string]any{"pe_ratio": 20.0, "shared": "old-value"}},
		{Provider: "new", Timestamp: now, Data: map[string]any{"market_cap": 1e9, "shared": "new-value"}},
	}
	merged, err := Merge(responses, core.DataFundamentals)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Data["shared"] != "new-value" {
		t.Fatalf("expected most-recent response to win on shared key, got %v", merged.Data["shared"])
	}
	if merged.Data["pe_ratio"] != 20.0 {
		t.Fatal("expected older-only key still present")
	}
	if merged.Confidence != 0.90 {
		t.Fatalf("expected confidence 0.90, got %v", merged.Confidence)
	}
}

func TestMerge_DeduplicateNewsByURL(t *testing.T) {
	responses := []core.Response{
		{Provider: "A", Data: map[string]any{"articles": []schema.Article{
			{Title: "first", URL: "https://x/1"},
			{Title: "dup", URL: "https://x/2"},
		}}},
		{Provider: "B", Data: map[string]any{"articles": []schema.Article{
			{Title: "dup-again", URL: "https://x/2"},
			{Title: "third", URL: "https://x/3"},
		}}},
	}
	merged, err := Merge(responses, core.DataNews)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	articles := merged.Data["articles"].([]schema.Article)
	if len(articles) != 3 {
		t.Fatalf("expected 3 deduped articles, got %d", len(articles))
	}
	if articles[1].Title != "dup" {
		t.Fatalf("expected first-occurrence ordering preserved, got %q", articles[1].Title)
	}
}

// Invariant 2 — fallback monotonicity: plan construction never lists the
// same adapter as both primary and a fallback.
func TestInvariant_PlanNeverDuplicatesAnAdapter(t *testing.T) {
	asset := core.NewAsset("x", core.AssetEquity, core.MarketUS)
	a, b, c := healthyAdapter("A"), healthyAdapter("B"), healthyAdapter("C")
	a.latencyP95, b.latencyP95, c.latencyP95 = 10, 20, 30

	plan, err := Arbitrate(context.Background(), []provider.Adapter{a, b, c}, asset, core.DataPrice, "US", 300)
	if err != nil {
		t.Fatalf("Arbitrate: %v", err)
	}
	seen := map[string]bool{plan.PrimaryProvider: true}
	for _, f := range plan.FallbackProviders {
		if seen[f] {
			t.Fatalf("fallback %q duplicates an earlier entry in the chain", f)
		}
		seen[f] = true
	}
}

// S4 — price merge across three sources.
func TestScenario_PriceMergeWeightedMean(t *testing.T) {
	responses := []core.Response{
		{Provider: "A", Data: map[string]any{"price": 100.0}, Confidence: 0.9},
		{Provider: "B", Data: map[string]any{"price": 100.5}, Confidence: 0.8},
		{Provider: "C", Data: map[string]any{"price": 101.0}, Confidence: 0.7},
	}
	merged, err := Merge(responses, core.DataPrice)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	want := (100.0*0.9 + 100.5*0.8 + 101.0*0.7) / (0.9 + 0.8 + 0.7)
	got := merged.Data["price"].(float64)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("merged price = %v, want %v", got, want)
	}
	if merged.Data["source_count"] != 3 {
		t.Fatalf("source_count = %v, want 3", merged.Data["source_count"])
	}
	priceRange := merged.Data["price_range"].(map[string]float64)
	if priceRange["min"] != 100.0 || priceRange["max"] != 101.0 {
		t.Fatalf("price_range = %v, want {min: 100, max: 101}", priceRange)
	}
	if merged.Provider != core.ArbitrationProvider {
		t.Fatalf("provider = %q, want %q", merged.Provider, core.ArbitrationProvider)
	}
	if !merged.IsValid || !merged.IsFresh {
		t.Fatal("merged response must be valid and fresh")
	}
}

// Invariant 5 — merge determinism: for fixed inputs in fixed order, the
// merged data and confidence are a pure function of them.
func TestInvariant_MergeDeterminism(t *testing.T) {
	now := time.Now()
	responses := []core.Response{
		{Provider: "A", Timestamp: now.Add(-time.Minute), Data: map[string]any{"price": 99.5, "eps": 4.5}, Confidence: 0.9},
		{Provider: "B", Timestamp: now, Data: map[string]any{"price": 100.5, "market_cap": 1e9}, Confidence: 0.8},
	}

	for _, dt := range []core.DataType{core.DataPrice, core.DataFundamentals} {
		first, err := Merge(responses, dt)
		if err != nil {
			t.Fatalf("Merge(%s) first: %v", dt, err)
		}
		second, err := Merge(responses, dt)
		if err != nil {
			t.Fatalf("Merge(%s) second: %v", dt, err)
		}
		if !reflect.DeepEqual(first.Data, second.Data) {
			t.Fatalf("Merge(%s) data not deterministic:\n%v\n%v", dt, first.Data, second.Data)
		}
		if first.Confidence != second.Confidence {
			t.Fatalf("Merge(%s) confidence not deterministic: %v vs %v", dt, first.Confidence, second.Confidence)
		}
	}
}

// S5 — no providers: an empty registry fails arbitration before any
// adapter is called.
func TestScenario_NoProvidersAvailable(t *testing.T) {
	engine := New(registry.New())
	asset := core.NewAsset("clf26", core.AssetFuture, core.MarketCN)

	_, err := engine.ArbitrateRequest(context.Background(), asset, core.DataPrice, "CN", 300)
	if !errors.Is(err, core.ErrNoProviderAvailable) {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
}
