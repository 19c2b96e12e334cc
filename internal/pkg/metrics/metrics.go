package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported on /metrics.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	signatureFailures *prometheus.CounterVec
	ledgerOps         *prometheus.CounterVec
	creditsExpired    prometheus.Counter
	panics            *prometheus.CounterVec
}

// New registers all collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	f := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "The total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		signatureFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partner_signature_failures_total",
				Help: "Rejected partner requests by reason",
			},
			[]string{"reason"},
		),
		ledgerOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Ledger operations by kind and outcome",
			},
			[]string{"op", "outcome"},
		),
		creditsExpired: f.NewCounter(
			prometheus.CounterOpts{
				Name: "credits_expired_total",
				Help: "Credits removed by the expiry sweep",
			},
		),
		panics: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_panics_total",
				Help: "Handler panics recovered by the server",
			},
			[]string{"method"},
		),
	}
}

// NewDefault creates metrics on a fresh registry.
func NewDefault() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) IncSignatureFailure(reason string) {
	if m == nil {
		return
	}
	m.signatureFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncLedgerOp(op, outcome string) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) AddCreditsExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.creditsExpired.Add(float64(n))
}

func (m *Metrics) IncPanic(method string) {
	if m == nil {
		return
	}
	m.panics.WithLabelValues(method).Inc()
}
