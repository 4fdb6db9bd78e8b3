package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the ledger's Prometheus metrics on a private registry.
type Collector struct {
	registry             *prometheus.Registry
	operations           *prometheus.CounterVec
	operationDuration    *prometheus.HistogramVec
	activeContracts      prometheus.Gauge
	outstandingPrincipal prometheus.Gauge
	overdueContracts     prometheus.Gauge
	advisoryRequests     *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pawn_lifecycle_operations_total",
			Help: "Contract lifecycle operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pawn_lifecycle_operation_duration_seconds",
			Help:    "Time taken to apply and persist a lifecycle operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		activeContracts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pawn_active_contracts",
			Help: "Active contracts at the last summary",
		}),
		outstandingPrincipal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pawn_outstanding_principal",
			Help: "Outstanding principal of active contracts at the last summary",
		}),
		overdueContracts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pawn_overdue_contracts",
			Help: "Overdue contracts at the last summary",
		}),
		advisoryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pawn_advisory_requests_total",
			Help: "Advisory requests by kind and outcome",
		}, []string{"kind", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pawn_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "code"}),
	}
}

// RecordOperation counts a lifecycle operation; outcome is "success" or an
// error code.
func (m *Collector) RecordOperation(operation, outcome string, duration time.Duration) {
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Collector) SetPortfolio(active int, outstandingPrincipal float64, overdue int) {
	m.activeContracts.Set(float64(active))
	m.outstandingPrincipal.Set(outstandingPrincipal)
	m.overdueContracts.Set(float64(overdue))
}

func (m *Collector) RecordAdvisory(kind string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "empty"
	}
	m.advisoryRequests.WithLabelValues(kind, outcome).Inc()
}

func (m *Collector) RecordHTTPRequest(method string, code int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// Registry exposes the registry for tests and extra collectors.
func (m *Collector) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Collector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
