// Package metrics holds the Prometheus collectors for upstream geo-service
// traffic and panel bookkeeping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoexplorer_upstream_requests_total",
		Help: "Total requests issued to external geo services",
	}, []string{"service", "op"})
	UpstreamFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoexplorer_upstream_failures_total",
		Help: "Total failed requests to external geo services by error kind",
	}, []string{"service", "op", "kind"})
	UpstreamDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoexplorer_upstream_duration_ms",
		Help:    "External geo service call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000},
	}, []string{"service", "op"})
	StaleResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoexplorer_stale_results_total",
		Help: "Results discarded because the selection changed while in flight",
	}, []string{"op"})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoexplorer_active_sessions",
		Help: "Number of open explorer sessions",
	})
)

func init() {
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamFailuresTotal)
	prometheus.MustRegister(UpstreamDurationMs)
	prometheus.MustRegister(StaleResultsTotal)
	prometheus.MustRegister(ActiveSessions)
}

// ObserveUpstream records one finished upstream call. kind is empty on success.
func ObserveUpstream(service, op string, start time.Time, kind string) {
	UpstreamRequestsTotal.WithLabelValues(service, op).Inc()
	UpstreamDurationMs.WithLabelValues(service, op).Observe(float64(time.Since(start).Milliseconds()))
	if kind != "" {
		UpstreamFailuresTotal.WithLabelValues(service, op, kind).Inc()
	}
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
