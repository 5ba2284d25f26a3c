// Package adapters holds the concrete provider.Adapter implementations.
// Each composes internal/provider/httpbase for transport and embeds
// base, the common bookkeeping every adapter carries (request/error
// counters, cooldown, default reporting-hook values).
package adapters

import (
	"context"
	"time"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
	"github.com/sawpanic/fedmkt/internal/provider/state"
)

// base provides the default GetLatencyP95/GetLastUpdate/GetCompleteness/
// GetSuccessRate/GetUptime24h/IsInCooldown/SetCooldown/Config methods
// BaseProvider supplies for free in the original, plus the shared
// provider.State object. Concrete adapters embed *base and override only
// the Fetch* methods they implement.
type base struct {
	cfg   provider.Config
	state *state.State

	// completeness and uptime are adapter-specific constants rather
	// than live-tracked metrics, matching the original's
	// "# TODO: Implement actual X tracking; return constant" pattern in
	// BaseProvider's default hook bodies.
	completeness float64
	uptime24h    float64
}

func newBase(cfg provider.Config, completeness, uptime24h float64) *base {
	return &base{cfg: cfg, state: state.New(), completeness: completeness, uptime24h: uptime24h}
}

func (b *base) Config() provider.Config { return b.cfg }

func (b *base) GetLatencyP95(ctx context.Context, region string) (float64, error) {
	return 100.0, nil
}

func (b *base) GetLastUpdate(ctx context.Context, asset core.Asset, dataType core.DataType) (time.Time, error) {
	return time.Now(), nil
}

func (b *base) GetCompleteness(ctx context.Context, dataType core.DataType) (float64, error) {
	return b.completeness, nil
}

func (b *base) GetSuccessRate(ctx context.Context) (float64, error) {
	return b.state.SuccessRate(), nil
}

func (b *base) GetUptime24h(ctx context.Context) (float64, error) {
	return b.uptime24h, nil
}

func (b *base) IsInCooldown() bool { return b.state.IsInCooldown(time.Now()) }

func (b *base) SetCooldown(d time.Duration) { b.state.SetCooldown(time.Now(), d) }

func (b *base) GetHealth(ctx context.Context) (core.Health, error) {
	return core.Health{
		Name:        b.cfg.Name,
		Healthy:     !b.IsInCooldown(),
		Uptime24h:   b.uptime24h,
		SuccessRate: b.state.SuccessRate(),
		LastCheck:   time.Now(),
	}, nil
}

// unsupported is a short helper for the Fetch* methods a capability-
// narrow adapter does not implement: it signals unsupported-operation
// rather than returning a fabricated empty success.
func unsupported() (core.Response, error) {
	return core.Response{}, core.ErrUnsupportedOperation
}
