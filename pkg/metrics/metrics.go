package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Conflict prompt outcomes.
const (
	ConflictAccepted    = "accepted"
	ConflictCancelled   = "cancelled"
	ConflictOverlapping = "overlapping"
	ConflictAbandoned   = "abandoned"
)

// ClientMetrics is safe to use through a nil pointer; every method is then a no-op.
type ClientMetrics struct {
	Registry        *prometheus.Registry
	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec
	ConflictPrompts *prometheus.CounterVec
	CartOperations  *prometheus.CounterVec
}

func NewClientMetrics() *ClientMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "requests_total",
		Help:      "Total number of backend HTTP requests.",
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "request_duration_ms",
		Help:      "Backend HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"route"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart",
		Name:      "store_conflicts_total",
		Help:      "Store change prompts by outcome.",
	}, []string{"outcome"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart",
		Name:      "operations_total",
		Help:      "Cart operations by result.",
	}, []string{"op", "result"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(requests, latency, conflicts, operations)

	return &ClientMetrics{
		Registry:        reg,
		Requests:        requests,
		LatencyMS:       latency,
		ConflictPrompts: conflicts,
		CartOperations:  operations,
	}
}

// ObserveRequest records one backend round trip. A zero status means the
// request never got a response.
func (m *ClientMetrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(route, method, label).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(d.Milliseconds()))
}

func (m *ClientMetrics) ObserveConflict(outcome string) {
	if m == nil {
		return
	}
	m.ConflictPrompts.WithLabelValues(outcome).Inc()
}

func (m *ClientMetrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CartOperations.WithLabelValues(op, result).Inc()
}

func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
