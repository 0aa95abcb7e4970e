package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SyncMetrics collects Prometheus metrics for platform requests, sync passes
// and the activity log.
type SyncMetrics struct {
	platformRequests *prometheus.CounterVec
	platformLatency  *prometheus.HistogramVec
	syncRuns         *prometheus.CounterVec
	syncDuration     *prometheus.HistogramVec
	productsSynced   *prometheus.CounterVec
	activityFailures *prometheus.CounterVec
	syncsInFlight    prometheus.Gauge
}

// NewSyncMetrics creates the collectors and registers them with reg
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		platformRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platform_requests_total",
			Help: "Outbound platform API requests by operation and outcome (HTTP status or error).",
		}, []string{"platform", "operation", "outcome"}),
		platformLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "platform_request_duration_seconds",
			Help:    "Outbound platform API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform", "operation"}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Catalog sync passes by terminal status.",
		}, []string{"platform", "status"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Catalog sync pass duration.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"platform"}),
		productsSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "products_synced_total",
			Help: "Products written by successful sync passes.",
		}, []string{"platform"}),
		activityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_log_write_failures_total",
			Help: "Activity log entries that could not be written.",
		}, []string{"action"}),
		syncsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "syncs_in_flight",
			Help: "Sync passes currently running in this process.",
		}),
	}

	reg.MustRegister(
		m.platformRequests,
		m.platformLatency,
		m.syncRuns,
		m.syncDuration,
		m.productsSynced,
		m.activityFailures,
		m.syncsInFlight,
	)
	return m
}

// ObservePlatformRequest records one outbound request
func (m *SyncMetrics) ObservePlatformRequest(platform, operation, outcome string, duration time.Duration) {
	m.platformRequests.WithLabelValues(platform, operation, outcome).Inc()
	m.platformLatency.WithLabelValues(platform, operation).Observe(duration.Seconds())
}

// SyncStarted marks a pass as running. The returned func records the outcome.
func (m *SyncMetrics) SyncStarted(platform string) func(status string, products int) {
	start := time.Now()
	m.syncsInFlight.Inc()
	return func(status string, products int) {
		m.syncsInFlight.Dec()
		m.syncRuns.WithLabelValues(platform, status).Inc()
		m.syncDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())
		if products > 0 {
			m.productsSynced.WithLabelValues(platform).Add(float64(products))
		}
	}
}

// ActivityWriteFailed counts a dropped activity log entry
func (m *SyncMetrics) ActivityWriteFailed(action string) {
	m.activityFailures.WithLabelValues(action).Inc()
}

// Handler returns the Prometheus scrape handler
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
