// Package metrics holds the Prometheus collectors of one running platform.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Denial reasons for LicenseDenials.
const (
	ReasonNoLicense     = "no_license"
	ReasonUserCeiling   = "max_users"
	ReasonConversations = "max_conversations"
)

// Metrics is a registry plus the collectors registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	LicenseDenials      *prometheus.CounterVec
	RateLimited         prometheus.Counter
	LicensesExpired     prometheus.Counter
}

// New creates a fresh registry with process and Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LicenseDenials: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "license_denials_total",
				Help: "Requests refused because of the tenant license",
			},
			[]string{"reason"},
		),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests rejected by the per-tenant rate limit",
		}),
		LicensesExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "licenses_expired_total",
			Help: "Licenses moved to expired by the sweeper",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
