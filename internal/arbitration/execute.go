package arbitration

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
	"github.com/sawpanic/fedmkt/internal/telemetry"
)

const (
	defaultCooldown  = 60 * time.Second
	defaultTimeframe = "1d"
	defaultLimit     = 100
)

var waitSecondsPattern = regexp.MustCompile(`(?i)wait\s+(\d+)\s*s`)

// Lookup resolves a provider name to its live adapter, used by
// ExecuteWithFallback to walk a Plan's provider chain. The registry
// satisfies this via a thin closure over Registry.Providers().
type Lookup func(name string) (provider.Adapter, bool)

// ExecuteWithFallback tries the plan's providers strictly in order,
// never retrying the same adapter, short-circuiting on the first
// response that is both valid and fresh, detecting rate limits to set a
// cooldown, and failing terminally with core.ErrNoProviderAvailable
// once the chain is exhausted.
func ExecuteWithFallback(ctx context.Context, plan core.Plan, asset core.Asset, dataType core.DataType, lookup Lookup) (core.Response, error) {
	for _, name := range plan.ProviderChain() {
		adapter, ok := lookup(name)
		if !ok {
			log.Warn().Str("provider", name).Msg("plan references unknown provider, skipping")
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, adapter.Config().Timeout())
		resp, err := provider.Fetch(callCtx, adapter, asset, dataType, defaultTimeframe, defaultLimit)
		cancel()
		if err != nil {
			handleFetchError(adapter, err)
			continue
		}

		if resp.IsValid && resp.IsFresh {
			return resp, nil
		}

		log.Info().Str("provider", name).Bool("is_valid", resp.IsValid).Bool("is_fresh", resp.IsFresh).
			Msg("provider response rejected, advancing plan")
	}

	return core.Response{}, core.ErrNoProviderAvailable
}

func handleFetchError(adapter provider.Adapter, err error) {
	if pe, ok := core.AsProviderError(err); ok {
		telemetry.Default.RecordFetchError(adapter.Name(), pe.Kind.String())
		if pe.Kind == core.KindRateLimit {
			cooldown := pe.RetryAfter + time.Second
			if pe.RetryAfter <= 0 {
				cooldown = defaultCooldown
			}
			adapter.SetCooldown(cooldown)
			telemetry.Default.RecordCooldownEntered(adapter.Name(), "rate_limit")
		}
		log.Warn().Str("provider", adapter.Name()).Str("kind", pe.Kind.String()).Err(pe.Err).
			Msg("provider call failed")
		return
	}

	// Legacy fallback for adapters that return a bare error instead of a
	// *core.ProviderError — sniff the message for a rate-limit hint.
	msg := err.Error()
	telemetry.Default.RecordFetchError(adapter.Name(), "unclassified")
	if strings.Contains(strings.ToLower(msg), "rate limit") {
		cooldown := defaultCooldown
		if m := waitSecondsPattern.FindStringSubmatch(msg); m != nil {
			if n, convErr := strconv.Atoi(m[1]); convErr == nil {
				cooldown = time.Duration(n+1) * time.Second
			}
		}
		adapter.SetCooldown(cooldown)
		telemetry.Default.RecordCooldownEntered(adapter.Name(), "rate_limit")
	}
	log.Warn().Str("provider", adapter.Name()).Err(err).Msg("provider call failed")
}
