// v0
// internal/metrics/metrics_test.go
package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/x", http.MethodGet, 200, time.Millisecond)
		m.IncCalculation()
		m.IncExport("json")
		m.SetSessionsActive(3)
		m.IncExportPublish("ok")
		m.SetBreakerState("kafka", 2)
	})
	assert.Nil(t, m.Registry())
}

func TestCollectorsRecord(t *testing.T) {
	m := New()
	m.IncCalculation()
	m.IncCalculation()
	m.IncExport("xlsx")
	m.SetSessionsActive(4)
	m.IncExportPublish("fail")
	m.ObserveRequest("/api/v1/calculate", http.MethodPost, 200, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calculations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("xlsx")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.sessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportPublish.WithLabelValues("fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/calculate", "POST", "200")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.IncCalculation()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "recovery_calculations_total 1")
}
