package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/chemlite/pkg/errors"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, c MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestNewMetricsCollector_RuntimeCollectors(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "rt", EnableGoMetrics: true}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "go_goroutines")
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("jobs_total", "Jobs.", "kind").WithLabelValues("a").Add(2)
	assert.Contains(t, scrapeMetrics(t, c), `test_unit_jobs_total{kind="a"} 2`)
}

func TestRegister_Idempotent(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("jobs_total", "Jobs.", "kind").WithLabelValues("a").Inc()
	c.RegisterCounter("jobs_total", "Jobs.", "kind").WithLabelValues("a").Inc()

	n, err := testutil.GatherAndCount(c.Gatherer(), "test_unit_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, scrapeMetrics(t, c), `test_unit_jobs_total{kind="a"} 2`)
}

func TestRegister_TypeMismatchIsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("thing", "Thing.")
	g := c.RegisterGauge("thing", "Thing.")
	assert.IsType(t, noopGaugeVec{}, g)
	g.WithLabelValues().Set(3)
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("inflight", "In flight.", "method").WithLabelValues("GET")
	g.Inc()
	g.Inc()
	g.Dec()
	h := c.RegisterHistogram("latency_seconds", "Latency.", []float64{1}, "op")
	h.WithLabelValues("x").Observe(0.5)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_inflight{method="GET"} 1`)
	assert.Contains(t, out, `test_unit_latency_seconds_bucket{op="x",le="1"} 1`)
}
