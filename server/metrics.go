package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/andygonzalez6/Bandaid/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service collectors and their registry.
type Metrics struct {
	registry *prometheus.Registry

	wsConnections       prometheus.Gauge
	messagesRelayed     prometheus.Counter
	messagesDelivered   prometheus.Counter
	messagesDropped     *prometheus.CounterVec
	authFailures        *prometheus.CounterVec
	rateLimited         *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var _ relay.Metrics = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bandaid_ws_connections",
			Help: "Current number of users bound to a relay connection",
		}),
		messagesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bandaid_messages_relayed_total",
			Help: "Total number of direct messages accepted and stored",
		}),
		messagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bandaid_messages_delivered_total",
			Help: "Total number of direct messages pushed to an online receiver",
		}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bandaid_messages_dropped_total",
			Help: "Total number of stored messages not pushed live",
		}, []string{"reason"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bandaid_auth_failures_total",
			Help: "Total number of rejected credentials",
		}, []string{"provider"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bandaid_rate_limited_total",
			Help: "Total number of requests refused by the credential rate limit",
		}, []string{"path"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.wsConnections,
		m.messagesRelayed,
		m.messagesDelivered,
		m.messagesDropped,
		m.authFailures,
		m.rateLimited,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SetOnline(n int) {
	m.wsConnections.Set(float64(n))
}

func (m *Metrics) MessageRelayed() {
	m.messagesRelayed.Inc()
}

func (m *Metrics) MessageDelivered() {
	m.messagesDelivered.Inc()
}

func (m *Metrics) MessageDropped(reason string) {
	m.messagesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) AuthFailed(provider string) {
	m.authFailures.WithLabelValues(provider).Inc()
}

func (m *Metrics) RateLimited(path string) {
	m.rateLimited.WithLabelValues(path).Inc()
}

func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	m.httpRequestsTotal.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(elapsed.Seconds())
}
