package metrics

import (
	"errors"
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
		m.BidAccepted()
		m.OrderTransition("shipped")
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
		m.JobRun("close_expired_quotes", nil)
		m.SSESubscribed()
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()

	m.BidAccepted()
	m.BidAccepted()
	m.OrderTransition("confirmed")
	m.NotificationDispatched("bid_received", true)
	m.NotificationDispatched("bid_received", false)
	m.JobRun("purge", errors.New("boom"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.bidsAccepted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.orderStatus.WithLabelValues("confirmed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.notifications.WithLabelValues("bid_received", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobRuns.WithLabelValues("purge", "error")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/v1/quotes", 200, 20*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "marketplace_http_requests_total")
	assert.Contains(t, rr.Body.String(), `route="/api/v1/quotes"`)
}
