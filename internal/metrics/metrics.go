package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for dataset loads and forecast calls.
// Each instance owns its registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	loadDuration prometheus.Histogram
	loadFailures prometheus.Counter
	tableRows    *prometheus.GaugeVec
	forecasts    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salesdash",
			Name:      "load_duration_seconds",
			Help:      "Time taken to fetch and parse the six tables.",
			Buckets:   prometheus.DefBuckets,
		}),
		loadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salesdash",
			Name:      "load_failures_total",
			Help:      "Dataset loads that failed.",
		}),
		tableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "salesdash",
			Name:      "table_rows",
			Help:      "Rows in the currently served snapshot, per table.",
		}, []string{"table"}),
		forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesdash",
			Name:      "forecast_requests_total",
			Help:      "Forecast calls by outcome.",
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(m.loadDuration, m.loadFailures, m.tableRows, m.forecasts)
	return m
}

// ObserveLoad records one load attempt. rows is nil when the load failed.
func (m *Metrics) ObserveLoad(elapsed time.Duration, rows map[string]int) {
	m.loadDuration.Observe(elapsed.Seconds())
	if rows == nil {
		m.loadFailures.Inc()
		return
	}
	for table, n := range rows {
		m.tableRows.WithLabelValues(table).Set(float64(n))
	}
}

// ObserveForecast counts a forecast call: "ok", "busy", "invalid" or "error".
func (m *Metrics) ObserveForecast(outcome string) {
	m.forecasts.WithLabelValues(outcome).Inc()
}
