package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for orchestrated fetches.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dota_fetch_requests_total",
		Help: "Total fetches answered, by data kind and source (cache, primary, secondary)",
	}, []string{"kind", "source"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dota_fetch_duration_seconds",
		Help:    "End-to-end fetch duration in seconds by data kind",
		Buckets: []float64{0.005, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"kind"})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dota_fetch_errors_total",
		Help: "Total fetches that failed after both providers, by kind and error class",
	}, []string{"kind", "class"})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dota_provider_fallbacks_total",
		Help: "Total cascades to the secondary provider by reason",
	}, []string{"reason"})
)
