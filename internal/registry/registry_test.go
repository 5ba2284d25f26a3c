package registry

import (
	"context"
	"testing"
	"time"

	"github.com/sawpanic/fedmkt/internal/config"
	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
)

// fakeAdapter is a minimal provider.Adapter used only in this package's
// tests.
type fakeAdapter struct {
	name       string
	supports   bool
	cooldown   bool
	shutdownFn func() error
}

func (f *fakeAdapter) Name() string                         { return f.name }
func (f *fakeAdapter) Initialize(ctx context.Context) error { return nil }
func (f *fakeAdapter) Shutdown(ctx context.Context) error {
	if f.shutdownFn != nil {
		return f.shutdownFn()
	}
	return nil
}
func (f *fakeAdapter) SupportsAsset(asset core.Asset) bool { return f.supports }

func (f *fakeAdapter) FetchPrice(ctx context.Context, asset core.Asset) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (f *fakeAdapter) FetchOHLCV(ctx context.Context, asset core.Asset, timeframe string, limit int) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (f *fakeAdapter) FetchFundamentals(ctx context.Context, asset core.Asset) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (f *fakeAdapter) FetchNews(ctx context.Context, asset core.Asset, limit int) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (f *fakeAdapter) FetchTechnical(ctx context.Context, asset core.Asset) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (f *fakeAdapter) FetchSentiment(ctx context.Context, asset core.Asset) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
func (f *fakeAdapter) FetchMacro(ctx context.Context, asset core.Asset) (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}

func (f *fakeAdapter) GetHealth(ctx context.Context) (core.Health, error) {
	return core.Health{Name: f.name, Healthy: true}, nil
}
func (f *fakeAdapter) GetLatencyP95(ctx context.Context, region string) (float64, error) { return 100, nil }
func (f *fakeAdapter) GetLastUpdate(ctx context.Context, asset core.Asset, dataType core.DataType) (time.Time, error) {
	return time.Now(), nil
}
func (f *fakeAdapter) GetCompleteness(ctx context.Context, dataType core.DataType) (float64, error) {
	return 1.0, nil
}
func (f *fakeAdapter) GetSuccessRate(ctx context.Context) (float64, error) { return 1.0, nil }
func (f *fakeAdapter) GetUptime24h(ctx context.Context) (float64, error)   { return 1.0, nil }

func (f *fakeAdapter) IsInCooldown() bool          { return f.cooldown }
func (f *fakeAdapter) SetCooldown(d time.Duration) {}
func (f *fakeAdapter) Config() provider.Config     { return provider.Config{Name: f.name, Enabled: true} }

func factoryFor(a *fakeAdapter) Factory {
	return func(cfg provider.Config) (provider.Adapter, error) { return a, nil }
}

func TestInitialize_SkipsDisabledAndMissingCredentials(t *testing.T) {
	resolved := map[string]config.ResolvedConfig{
		"disabled":   {Config: provider.Config{Name: "disabled", Enabled: false}},
		"missing":    {Config: provider.Config{Name: "missing", Enabled: true}, Missing: true},
		"noFactory":  {Config: provider.Config{Name: "noFactory", Enabled: true}},
		"good":       {Config: provider.Config{Name: "good", Enabled: true}},
	}
	good := &fakeAdapter{name: "good", supports: true}
	factories := map[string]Factory{"good": factoryFor(good)}

	r := New()
	if err := r.Initialize(context.Background(), resolved, factories); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	providers := r.Providers()
	if len(providers) != 1 {
		t.Fatalf("expected exactly 1 registered provider, got %d", len(providers))
	}
	if _, ok := providers["good"]; !ok {
		t.Fatal("expected 'good' to be registered")
	}
}

func TestGetProvidersForAsset_FiltersCooldownAndSupport(t *testing.T) {
	asset := core.NewAsset("aapl", core.AssetEquity, core.MarketUS)

	ready := &fakeAdapter{name: "ready", supports: true}
	cooling := &fakeAdapter{name: "cooling", supports: true, cooldown: true}
	unsupported := &fakeAdapter{name: "unsupported", supports: false}

	resolved := map[string]config.ResolvedConfig{
		"ready":       {Config: provider.Config{Name: "ready", Enabled: true}},
		"cooling":     {Config: provider.Config{Name: "cooling", Enabled: true}},
		"unsupported": {Config: provider.Config{Name: "unsupported", Enabled: true}},
	}
	factories := map[string]Factory{
		"ready":       factoryFor(ready),
		"cooling":     factoryFor(cooling),
		"unsupported": factoryFor(unsupported),
	}

	r := New()
	if err := r.Initialize(context.Background(), resolved, factories); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	out, err := r.GetProvidersForAsset(context.Background(), asset, core.DataPrice)
	if err != nil {
		t.Fatalf("GetProvidersForAsset: %v", err)
	}
	if len(out) != 1 || out[0].Name() != "ready" {
		t.Fatalf("expected only 'ready', got %v", out)
	}
}

func TestGetProvidersForAsset_NoneAvailable(t *testing.T) {
	r := New()
	_, err := r.GetProvidersForAsset(context.Background(), core.NewAsset("x", core.AssetEquity, core.MarketUS), core.DataPrice)
	if err != core.ErrNoProviderAvailable {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
}

func TestShutdown_ReverseOrderCollectsErrors(t *testing.T) {
	var shutdownOrder []string
	makeAdapter := func(name string, fail bool) *fakeAdapter {
		return &fakeAdapter{name: name, supports: true, shutdownFn: func() error {
			shutdownOrder = append(shutdownOrder, name)
			if fail {
				return context.DeadlineExceeded
			}
			return nil
		}}
	}

	a, b, c := makeAdapter("a", false), makeAdapter("b", true), makeAdapter("c", false)
	resolved := map[string]config.ResolvedConfig{
		"a": {Config: provider.Config{Name: "a", Enabled: true}},
		"b": {Config: provider.Config{Name: "b", Enabled: true}},
		"c": {Config: provider.Config{Name: "c", Enabled: true}},
	}
	factories := map[string]Factory{"a": factoryFor(a), "b": factoryFor(b), "c": factoryFor(c)}

	r := New()
	if err := r.Initialize(context.Background(), resolved, factories); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	err := r.Shutdown(context.Background())
	if err == nil {
		t.Fatal("expected collected shutdown error from adapter b")
	}
	if len(shutdownOrder) != 3 {
		t.Fatalf("expected all 3 adapters to shut down, got %v", shutdownOrder)
	}
	// Registration order follows map iteration during Initialize; r.order
	// records it, and Shutdown must walk it backwards.
	for i, name := range shutdownOrder {
		if want := r.order[len(r.order)-1-i]; name != want {
			t.Fatalf("shutdown order %v is not the reverse of registration order %v", shutdownOrder, r.order)
		}
	}
}
