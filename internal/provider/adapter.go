// Package provider defines the uniform contract every backend adapter
// satisfies and the static configuration record the registry builds
// adapters from.
package provider

import (
	"context"
	"time"

	"github.com/sawpanic/fedmkt/internal/core"
)

// Adapter is the uniform capability surface over one backend. Every
// method is asynchronous in the sense that it takes a context and may
// block on network I/O; implementations must respect ctx cancellation.
type Adapter interface {
	Name() string

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error

	SupportsAsset(asset core.Asset) bool

	FetchPrice(ctx context.Context, asset core.Asset) (core.Response, error)
	FetchOHLCV(ctx context.Context, asset core.Asset, timeframe string, limit int) (core.Response, error)
	FetchFundamentals(ctx context.Context, asset core.Asset) (core.Response, error)
	FetchNews(ctx context.Context, asset core.Asset, limit int) (core.Response, error)
	FetchTechnical(ctx context.Context, asset core.Asset) (core.Response, error)
	FetchSentiment(ctx context.Context, asset core.Asset) (core.Response, error)
	FetchMacro(ctx context.Context, asset core.Asset) (core.Response, error)

	GetHealth(ctx context.Context) (core.Health, error)

	// Reporting hooks feed the scoring function; implementations may
	// return a sensible default when they have not accumulated enough
	// data to answer precisely.
	GetLatencyP95(ctx context.Context, region string) (float64, error)
	GetLastUpdate(ctx context.Context, asset core.Asset, dataType core.DataType) (time.Time, error)
	GetCompleteness(ctx context.Context, dataType core.DataType) (float64, error)
	GetSuccessRate(ctx context.Context) (float64, error)
	GetUptime24h(ctx context.Context) (float64, error)

	IsInCooldown() bool
	SetCooldown(d time.Duration)

	// Config exposes the adapter's static configuration (timeout,
	// priority, etc.) that the arbitration engine reads directly (e.g.
	// to compute a plan's timeout_ms from the primary provider).
	Config() Config
}

// Fetch dispatches to the Adapter method matching dataType. Unsupported
// data types are a programmer error, reported via
// core.ErrUnsupportedDataType rather than falling back.
func Fetch(ctx context.Context, a Adapter, asset core.Asset, dataType core.DataType, timeframe string, limit int) (core.Response, error) {
	switch dataType {
	case core.DataPrice:
		return a.FetchPrice(ctx, asset)
	case core.DataOHLCV:
		return a.FetchOHLCV(ctx, asset, timeframe, limit)
	case core.DataFundamentals:
		return a.FetchFundamentals(ctx, asset)
	case core.DataNews:
		return a.FetchNews(ctx, asset, limit)
	case core.DataTechnical:
		return a.FetchTechnical(ctx, asset)
	case core.DataSentiment:
		return a.FetchSentiment(ctx, asset)
	case core.DataMacro:
		return a.FetchMacro(ctx, asset)
	default:
		return core.Response{}, core.ErrUnsupportedDataType
	}
}
