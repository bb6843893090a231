// Package metrics registers the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecoleta_upstream_requests_total",
		Help: "Requests to external collaborators by target and outcome",
	}, []string{"target", "outcome"})
	UpstreamDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ecoleta_upstream_duration_ms",
		Help:    "External request duration in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"target"})
	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecoleta_cache_lookups_total",
		Help: "Reference data cache lookups by result",
	}, []string{"result"})
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecoleta_submissions_total",
		Help: "Point submissions by outcome",
	}, []string{"outcome"})
	FormsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ecoleta_forms_active",
		Help: "Forms held in the session store",
	})
)

func init() {
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamDurationMs)
	prometheus.MustRegister(CacheLookupsTotal)
	prometheus.MustRegister(SubmissionsTotal)
	prometheus.MustRegister(FormsActive)
}

// Handler exposes the registered collectors.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveUpstream records one external call.
func ObserveUpstream(target string, ms float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(target, outcome).Inc()
	UpstreamDurationMs.WithLabelValues(target).Observe(ms)
}
