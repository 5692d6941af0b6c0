// Package metrics provides Prometheus metrics for the campaign watcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for one watcher instance.
type Metrics struct {
	registry *prometheus.Registry

	// Data access metrics
	FetchesTotal  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Refresh controller metrics
	LoadsTotal          *prometheus.CounterVec
	StaleResults        *prometheus.CounterVec
	PollTicks           prometheus.Counter
	ContributionRefresh *prometheus.CounterVec
	ActiveTimers        prometheus.Gauge

	// Display state
	PercentFunded  prometheus.Gauge
	CurrentBalance prometheus.Gauge
	PriceUSD       prometheus.Gauge
	LastSuccessful prometheus.Gauge
}

// NewMetrics creates a Metrics instance on its own registry so several
// watchers can coexist in one process.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "campwatch"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "fetches_total",
			Help:      "Total number of backend fetches by resource and outcome",
		}, []string{"resource", "outcome"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "fetch_duration_seconds",
			Help:      "Backend fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),

		LoadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "loads_total",
			Help:      "Full load sequences by result",
		}, []string{"result"}),
		StaleResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "stale_results_total",
			Help:      "Completions discarded because a newer sequence started",
		}, []string{"path"}),
		PollTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "poll_ticks_total",
			Help:      "Balance refresh ticks handled",
		}),
		ContributionRefresh: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "contribution_refreshes_total",
			Help:      "Manual contribution refreshes by result",
		}, []string{"result"}),
		ActiveTimers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "active_timers",
			Help:      "Number of armed balance refresh timers",
		}),

		PercentFunded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "percent_funded",
			Help:      "Clamped funding percentage of the displayed campaign",
		}),
		CurrentBalance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "current_balance",
			Help:      "Current balance of the displayed campaign",
		}),
		PriceUSD: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "price_usd",
			Help:      "Price used for native-token conversions",
		}),
		LastSuccessful: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_load_timestamp",
			Help:      "Unix timestamp of the last successful full load",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFetch records one data access call. Safe on a nil receiver.
func (m *Metrics) RecordFetch(resource string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.FetchesTotal.WithLabelValues(resource, outcome).Inc()
	m.FetchDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
}

// RecordLoad records a full load result.
func (m *Metrics) RecordLoad(result string) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		m.LastSuccessful.SetToCurrentTime()
	}
}

// RecordStale records a discarded completion for the given refresh path.
func (m *Metrics) RecordStale(path string) {
	if m == nil {
		return
	}
	m.StaleResults.WithLabelValues(path).Inc()
}

// RecordTick records one balance refresh tick.
func (m *Metrics) RecordTick() {
	if m == nil {
		return
	}
	m.PollTicks.Inc()
}

// RecordContributionRefresh records a manual contribution refresh.
func (m *Metrics) RecordContributionRefresh(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ContributionRefresh.WithLabelValues(result).Inc()
}

// SetTimers updates the armed timer gauge.
func (m *Metrics) SetTimers(n int) {
	if m == nil {
		return
	}
	m.ActiveTimers.Set(float64(n))
}

// SetProgress updates the displayed campaign gauges.
func (m *Metrics) SetProgress(percent, balance, price float64) {
	if m == nil {
		return
	}
	m.PercentFunded.Set(percent)
	m.CurrentBalance.Set(balance)
	m.PriceUSD.Set(price)
}
