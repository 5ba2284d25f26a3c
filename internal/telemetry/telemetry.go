// Package telemetry holds the Prometheus metrics exported by the
// federation engine: provider scores, cooldown transitions, active
// subscriptions, and merge counts. One struct holds every metric,
// constructed and MustRegister'd once, with small Record*/Set* methods
// the rest of the engine calls.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every Prometheus collector the federation engine
// exports.
type Registry struct {
	ProviderScore       *prometheus.GaugeVec
	ProviderCooldown    *prometheus.GaugeVec
	CooldownTransitions *prometheus.CounterVec
	ActiveSubscriptions prometheus.Gauge
	MergeOperations     *prometheus.CounterVec
	FetchErrors         *prometheus.CounterVec
}

// NewRegistry builds and registers the metrics. Call once per process;
// a second call against the default prometheus.Registerer panics.
func NewRegistry() *Registry {
	r := &Registry{
		ProviderScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fedmkt_provider_score",
				Help: "Most recent arbitration score for a provider on a data type (0-100, 0 while cooling down).",
			},
			[]string{"provider", "data_type"},
		),
		ProviderCooldown: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fedmkt_provider_cooldown_active",
				Help: "1 if the provider is currently in cooldown, 0 otherwise.",
			},
			[]string{"provider"},
		),
		CooldownTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fedmkt_provider_cooldown_transitions_total",
				Help: "Total number of times a provider entered cooldown, by cause.",
			},
			[]string{"provider", "reason"},
		),
		ActiveSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fedmkt_active_subscriptions",
				Help: "Current number of live subscriptions across all connections.",
			},
		),
		MergeOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fedmkt_merge_operations_total",
				Help: "Total number of multi-provider merges performed, by strategy.",
			},
			[]string{"strategy"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fedmkt_fetch_errors_total",
				Help: "Total number of adapter fetch errors, by provider and error kind.",
			},
			[]string{"provider", "kind"},
		),
	}

	prometheus.MustRegister(
		r.ProviderScore,
		r.ProviderCooldown,
		r.CooldownTransitions,
		r.ActiveSubscriptions,
		r.MergeOperations,
		r.FetchErrors,
	)
	return r
}

// RecordScore updates the live score gauge for a provider/data_type pair.
// A nil Registry is a no-op, so callers that never initialized telemetry
// (tests, the Default() arbitration engine) can call it unconditionally.
func (r *Registry) RecordScore(provider, dataType string, score float64) {
	if r == nil {
		return
	}
	r.ProviderScore.WithLabelValues(provider, dataType).Set(score)
}

// RecordCooldownEntered marks a provider as cooling down and counts the
// transition by its triggering reason (e.g. "rate_limit").
func (r *Registry) RecordCooldownEntered(provider, reason string) {
	if r == nil {
		return
	}
	r.ProviderCooldown.WithLabelValues(provider).Set(1)
	r.CooldownTransitions.WithLabelValues(provider, reason).Inc()
}

// RecordCooldownCleared marks a provider as no longer cooling down.
func (r *Registry) RecordCooldownCleared(provider string) {
	if r == nil {
		return
	}
	r.ProviderCooldown.WithLabelValues(provider).Set(0)
}

// SetActiveSubscriptions sets the live subscription-count gauge.
func (r *Registry) SetActiveSubscriptions(count int) {
	if r == nil {
		return
	}
	r.ActiveSubscriptions.Set(float64(count))
}

// RecordMerge counts one multi-provider merge by strategy.
func (r *Registry) RecordMerge(strategy string) {
	if r == nil {
		return
	}
	r.MergeOperations.WithLabelValues(strategy).Inc()
}

// RecordFetchError counts one adapter fetch failure by provider and
// error kind.
func (r *Registry) RecordFetchError(provider, kind string) {
	if r == nil {
		return
	}
	r.FetchErrors.WithLabelValues(provider, kind).Inc()
}

// Handler returns the standard Prometheus scrape handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}

// Default is the process-wide telemetry registry, following the
// teacher's DefaultMetrics global pattern. It is nil until Init is
// called (normally by cmd/fedmktd); every Record*/Set* method on a nil
// *Registry is a no-op, so arbitration/subscription code can call
// telemetry.Default.RecordX(...) unconditionally without a nil check at
// every call site.
var Default *Registry

// Init constructs and installs the process-wide Default registry. Call
// once at process start; calling it twice panics (prometheus.MustRegister
// rejects re-registering the same collector names).
func Init() {
	Default = NewRegistry()
}
