package arbitration

import (
	"context"
	"sync"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
	"github.com/sawpanic/fedmkt/internal/registry"
)

// Engine is the upward-facing surface: arbitrate a request into a plan,
// execute that plan with fallback, and merge multi-source responses. It
// owns no state of its own beyond a registry reference — all adapter
// state lives on the adapters themselves.
type Engine struct {
	registry *registry.Registry
}

// New wires an Engine to a populated Registry.
func New(reg *registry.Registry) *Engine {
	return &Engine{registry: reg}
}

// ArbitrateRequest implements the upward `arbitrate_request` operation.
func (e *Engine) ArbitrateRequest(ctx context.Context, asset core.Asset, dataType core.DataType, region string, maxStalenessSeconds int) (core.Plan, error) {
	adapters, err := e.registry.GetProvidersForAsset(ctx, asset, dataType)
	if err != nil {
		return core.Plan{}, err
	}
	return Arbitrate(ctx, adapters, asset, dataType, region, maxStalenessSeconds)
}

// ExecuteWithFallback implements the upward `execute_with_fallback`
// operation, resolving plan provider names against the registry.
func (e *Engine) ExecuteWithFallback(ctx context.Context, plan core.Plan, asset core.Asset, dataType core.DataType) (core.Response, error) {
	providers := e.registry.Providers()
	lookup := func(name string) (provider.Adapter, bool) {
		a, ok := providers[name]
		return a, ok
	}
	return ExecuteWithFallback(ctx, plan, asset, dataType, lookup)
}

// MergeMultiProvider implements the upward `merge_multi_provider`
// operation.
func (e *Engine) MergeMultiProvider(responses []core.Response, dataType core.DataType) (core.Response, error) {
	return Merge(responses, dataType)
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns a package-level convenience Engine backed by an empty
// Registry, for callers that don't need multiple engines and would
// otherwise wire one explicitly via New. Callers that need a non-empty
// registry should use New directly instead.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = New(registry.New())
	})
	return defaultEngine
}
