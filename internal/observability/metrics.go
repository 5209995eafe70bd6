package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the forecast client.
type Metrics struct {
	// Live stream metrics.
	ForecastsReceived prometheus.Counter
	MissingCells      prometheus.Counter
	LiveStreams       prometheus.Gauge

	// Historical query metrics.
	HistoricalPages           *prometheus.CounterVec // labels: source={remote,cache}
	HistoricalRequestDuration prometheus.Histogram
	BreakerState              prometheus.Gauge       // 0 closed, 1 half-open, 2 open
	CacheLookups              *prometheus.CounterVec // labels: result={hit,miss,error}

	// Export metrics.
	RecordsProduced  prometheus.Counter
	ProcessingErrors *prometheus.CounterVec // labels: stage={live,fetch,flatten,load}
	ExportRunning    prometheus.Gauge
	ExportDuration   prometheus.Histogram
}

const namespace = "weather_forecast"

func newMetrics() *Metrics {
	return &Metrics{
		ForecastsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_forecasts_received_total",
			Help:      "Total live forecast payloads received.",
		}),
		MissingCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_cells_total",
			Help:      "Total NaN cells in materialized live forecast arrays.",
		}),
		LiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_streams",
			Help:      "Number of open upstream live forecast streams.",
		}),
		HistoricalPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "historical_pages_total",
			Help:      "Historical forecast pages by source.",
		}, []string{"source"}),
		HistoricalRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "historical_request_duration_seconds",
			Help:      "Duration of historical forecast RPCs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "historical_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_cache_lookups_total",
			Help:      "Historical page cache lookups by result.",
		}, []string{"result"}),
		RecordsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_produced_total",
			Help:      "Total flattened forecast records written to the sink topic.",
		}),
		ProcessingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processing_errors_total",
			Help:      "Forecast processing failures by stage.",
		}, []string{"stage"}),
		ExportRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "export_running",
			Help:      "1 while a historical export is in progress.",
		}),
		ExportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Duration of a complete historical export run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// NewMetrics creates all client metrics and registers them with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.ForecastsReceived,
		m.MissingCells,
		m.LiveStreams,
		m.HistoricalPages,
		m.HistoricalRequestDuration,
		m.BreakerState,
		m.CacheLookups,
		m.RecordsProduced,
		m.ProcessingErrors,
		m.ExportRunning,
		m.ExportDuration,
	)

	return m
}

// NewUnregisteredMetrics creates Metrics without registering them. Tests and
// one-shot tools use it to avoid "already registered" panics.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}
