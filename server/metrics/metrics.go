// Package metrics exposes the server's Prometheus collectors.
//
// All recording methods are safe to call on a nil *Metrics, which lets stores
// and clients run without metrics in tests.
package metrics

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ANALYSIS_OK       = "ok"
	ANALYSIS_DEGRADED = "degraded"
)

type Metrics struct {
	registry *prometheus.Registry

	AlertsRecorded   *prometheus.CounterVec
	Deliveries       *prometheus.CounterVec
	Analyses         *prometheus.CounterVec
	RequestDurations *prometheus.HistogramVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.AlertsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_alerts_recorded_total",
			Help: "Alerts written to the alert log by status",
		},
		[]string{"status"},
	)

	m.Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_notification_deliveries_total",
			Help: "Emergency notification attempts by method and result",
		},
		[]string{"method", "result"}, // result: success, failed
	)

	m.Analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_vision_analyses_total",
			Help: "Frame analyses by outcome",
		},
		[]string{"outcome"}, // outcome: ok, degraded
	)

	m.RequestDurations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guardian_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status code",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "code"},
	)

	m.registry.MustRegister(m.AlertsRecorded, m.Deliveries, m.Analyses, m.RequestDurations)

	return m
}

func (m *Metrics) AlertRecorded(status string) {
	if m == nil {
		return
	}
	m.AlertsRecorded.WithLabelValues(status).Inc()
}

func (m *Metrics) Delivery(method string, ok bool) {
	if m == nil {
		return
	}

	result := "success"
	if !ok {
		result = "failed"
	}
	m.Deliveries.WithLabelValues(method, result).Inc()
}

func (m *Metrics) Analysis(outcome string) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(route, method string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestDurations.WithLabelValues(route, method, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
