package prometheus

import (
	"strconv"
	"time"

	"github.com/turtacn/chemlite/pkg/errors"
)

// ChemMetrics holds the service metric families. It satisfies the pathway
// service's Metrics port and backs the HTTP middleware.
type ChemMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	OperationsTotal   CounterVec
	OperationDuration HistogramVec
	CacheRequests     CounterVec
	PathwayReactions  HistogramVec
	PathwayCompounds  HistogramVec

	EventsConsumed CounterVec
}

var sizeBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}

// NewChemMetrics registers every family on c.
func NewChemMetrics(c MetricsCollector) *ChemMetrics {
	return &ChemMetrics{
		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "HTTP requests by method, route and status.", "method", "path", "status"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request latency.", nil, "method", "path"),
		HTTPActiveRequests:  c.RegisterGauge("http_active_requests", "In-flight HTTP requests.", "method"),

		OperationsTotal:   c.RegisterCounter("pathway_operations_total", "Pathway service operations by result code.", "operation", "result"),
		OperationDuration: c.RegisterHistogram("pathway_operation_duration_seconds", "Pathway service operation latency.", nil, "operation"),
		CacheRequests:     c.RegisterCounter("pathway_cache_requests_total", "Pathway cache lookups.", "result"),
		PathwayReactions:  c.RegisterHistogram("pathway_reactions", "Reactions per saved pathway.", sizeBuckets),
		PathwayCompounds:  c.RegisterHistogram("pathway_compounds", "Compounds per saved pathway.", sizeBuckets),

		EventsConsumed: c.RegisterCounter("projection_events_total", "Events applied by the projection worker.", "event_type", "result"),
	}
}

// ObserveOperation counts op under its error code, "OK" on success.
func (m *ChemMetrics) ObserveOperation(op string, err error, elapsed time.Duration) {
	m.OperationsTotal.WithLabelValues(op, string(errors.GetCode(err))).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *ChemMetrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

func (m *ChemMetrics) ObservePathwaySize(reactions, compounds int) {
	m.PathwayReactions.WithLabelValues().Observe(float64(reactions))
	m.PathwayCompounds.WithLabelValues().Observe(float64(compounds))
}

// ObserveHTTP records one finished request.
func (m *ChemMetrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// InFlight counts a request as active until the returned func runs.
func (m *ChemMetrics) InFlight(method string) func() {
	g := m.HTTPActiveRequests.WithLabelValues(method)
	g.Inc()
	return g.Dec
}

// ObserveEvent records one event handled by the projection worker.
func (m *ChemMetrics) ObserveEvent(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsConsumed.WithLabelValues(eventType, result).Inc()
}
