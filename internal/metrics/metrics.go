// Package metrics exposes process-wide Prometheus collectors for the
// proxy: session counts and DCC relay activity. It follows the teacher's
// echoprom package (a dedicated registry plus promauto constructors)
// rather than registering on the global default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles the proxy's Prometheus collectors behind one
// *prometheus.Registry, so the admin HTTP surface has a single handler to
// mount regardless of how many collectors this package grows.
type Registry struct {
	reg *prometheus.Registry

	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter
	ClassMatches   *prometheus.CounterVec

	DCCRelaysActive prometheus.Gauge
	DCCBytesTotal   *prometheus.CounterVec

	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
}

// NewRegistry constructs a Registry with every collector registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	return &Registry{
		reg: reg,
		SessionsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "dircproxy_sessions_active",
			Help: "Proxy sessions currently bound to a connection class.",
		}),
		SessionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dircproxy_sessions_total",
			Help: "Proxy sessions created since process start.",
		}),
		ClassMatches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dircproxy_class_matches_total",
			Help: "Successful connection-class matches, by class name.",
		}, []string{"class"}),
		DCCRelaysActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "dircproxy_dcc_relays_active",
			Help: "DCC relays currently listening or coupled.",
		}),
		DCCBytesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dircproxy_dcc_bytes_total",
			Help: "Bytes relayed over DCC connections, by direction.",
		}, []string{"direction"}),
		HTTPRequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dircproxy_admin_http_request_duration_seconds",
			Help:    "Admin HTTP surface request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		HTTPRequestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dircproxy_admin_http_requests_total",
			Help: "Admin HTTP surface requests, by status code.",
		}, []string{"path", "method", "code"}),
	}
}

// Gatherer exposes the underlying registry for promhttp.HandlerFor.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
