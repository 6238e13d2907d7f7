// Package metrics declares the Prometheus collectors updated by the providers, the catchment cache,
// storage and the ensemble.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riverforecast_provider_requests_total",
			Help: "Total weather and level provider HTTP requests",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riverforecast_provider_latency_seconds",
			Help:    "Provider request latency in seconds including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	CatchmentFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riverforecast_catchment_fetches_total",
			Help: "Total bundle fetches through the catchment cache",
		},
		[]string{"catchment", "bundle"},
	)

	ModelFitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riverforecast_model_fits_total",
			Help: "Total model fits by ensemble stage and outcome",
		},
		[]string{"stage", "status"},
	)

	ModelFitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riverforecast_model_fit_duration_seconds",
			Help:    "Model fit duration in seconds by ensemble stage",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	ForecastOriginsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "riverforecast_forecast_origins_total",
			Help: "Total forecast origins evaluated by ensemble walk-forward backtests",
		},
	)

	StorageOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riverforecast_storage_ops_total",
			Help: "Total artifact storage operations",
		},
		[]string{"backend", "op", "status"},
	)
)

// Status maps an error to the status label value
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
