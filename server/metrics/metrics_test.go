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

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AlertRecorded("danger")
		m.Delivery("sms", true)
		m.Analysis(ANALYSIS_DEGRADED)
		m.ObserveRequest("/api/health", "GET", 200, time.Millisecond)
	})
}

func TestCountersAndHandler(t *testing.T) {
	m := New()

	m.AlertRecorded("danger")
	m.AlertRecorded("danger")
	m.Delivery("sms", true)
	m.Delivery("sms", false)
	m.Analysis(ANALYSIS_DEGRADED)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.AlertsRecorded.WithLabelValues("danger")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Deliveries.WithLabelValues("sms", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Analyses.WithLabelValues(ANALYSIS_DEGRADED)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `guardian_alerts_recorded_total{status="danger"} 2`)
}
