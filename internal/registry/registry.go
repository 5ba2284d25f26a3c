// Package registry builds and holds the set of live provider adapters: a
// mutex-guarded map built once at Initialize and read-only afterward,
// with asset and cooldown filtering done on read rather than precomputed
// per-capability slices. The requested data type is not used to filter.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/fedmkt/internal/config"
	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
)

// Factory constructs an adapter instance from its resolved configuration.
// One entry is registered per adapter name the caller wants available;
// Initialize looks up cfg.Config.Name in this map.
type Factory func(cfg provider.Config) (provider.Adapter, error)

// Registry holds every successfully initialized adapter, keyed by name.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]provider.Adapter
	order    []string // registration order, for deterministic Shutdown
}

// New returns an empty Registry. Call Initialize to populate it.
func New() *Registry {
	return &Registry{adapters: make(map[string]provider.Adapter)}
}

// Initialize builds one adapter per resolved config entry whose Factory
// is known, skipping disabled entries and entries with missing
// credentials (logged at Warn, never an error). Adapters that fail
// Initialize are likewise skipped with a warning rather than aborting
// the whole registry.
func (r *Registry) Initialize(ctx context.Context, resolved map[string]config.ResolvedConfig, factories map[string]Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, rc := range resolved {
		if !rc.Config.Enabled {
			continue
		}
		if rc.Missing {
			log.Warn().Str("provider", name).Msg("skipping provider: required credential env var unset")
			continue
		}
		factory, ok := factories[name]
		if !ok {
			log.Warn().Str("provider", name).Msg("skipping provider: no factory registered")
			continue
		}

		adapter, err := factory(rc.Config)
		if err != nil {
			log.Warn().Str("provider", name).Err(err).Msg("skipping provider: factory failed")
			continue
		}
		if err := adapter.Initialize(ctx); err != nil {
			log.Warn().Str("provider", name).Err(err).Msg("skipping provider: initialize failed")
			continue
		}

		r.adapters[name] = adapter
		r.order = append(r.order, name)
	}

	if len(r.adapters) == 0 {
		log.Warn().Msg("registry initialized with zero active providers")
	}
	return nil
}

// Shutdown shuts every adapter down in reverse registration order,
// collecting rather than aborting on individual errors.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if err := r.adapters[name].Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("registry shutdown errors: %v", errs)
	}
	return nil
}

// GetProvidersForAsset returns every registered adapter that is
// initialized, not in cooldown, and reports SupportsAsset(asset) for the
// given asset, sorted by name. dataType is not consulted: an adapter is
// returned whether or not it implements that data type's fetch method,
// and one that does not signals core.ErrUnsupportedOperation when called
// (never a fabricated empty success).
func (r *Registry) GetProvidersForAsset(ctx context.Context, asset core.Asset, dataType core.DataType) ([]provider.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []provider.Adapter
	for _, name := range r.order {
		a := r.adapters[name]
		if a.IsInCooldown() {
			continue
		}
		if !a.SupportsAsset(asset) {
			continue
		}
		out = append(out, a)
	}

	if len(out) == 0 {
		return nil, core.ErrNoProviderAvailable
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Providers returns a snapshot copy of the registered adapters keyed by
// name.
func (r *Registry) Providers() map[string]provider.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]provider.Adapter, len(r.adapters))
	for k, v := range r.adapters {
		out[k] = v
	}
	return out
}
