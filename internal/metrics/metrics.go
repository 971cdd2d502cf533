package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ProviderSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetcharr",
			Name:      "provider_searches_total",
			Help:      "Search calls issued per provider.",
		},
		[]string{"provider"},
	)

	ProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetcharr",
			Name:      "provider_errors_total",
			Help:      "Provider searches that errored or timed out.",
		},
		[]string{"provider"},
	)

	DownloadEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetcharr",
			Name:      "download_events_total",
			Help:      "Download lifecycle events published by the manager.",
		},
		[]string{"type"},
	)

	ReconcileTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fetcharr",
			Name:      "reconcile_ticks_total",
			Help:      "Completed reconciliation ticks.",
		},
	)

	ReconcileErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fetcharr",
			Name:      "reconcile_errors_total",
			Help:      "Reconciliation ticks skipped because the download client was unreachable.",
		},
	)

	ActiveDownloads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fetcharr",
			Name:      "active_downloads",
			Help:      "Downloads currently in a non-terminal state.",
		},
	)

	ClientCallLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fetcharr",
			Name:      "client_call_latency_seconds",
			Help:      "Latency of download client WebUI calls.",
		},
		[]string{"method"},
	)
)

// Register registers the fetcharr metrics into the default registry.
func Register() {
	prometheus.MustRegister(ProviderSearches, ProviderErrors, DownloadEvents,
		ReconcileTicks, ReconcileErrors, ActiveDownloads, ClientCallLatency)
}
