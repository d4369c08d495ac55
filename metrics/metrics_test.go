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

func TestObserveExecution(t *testing.T) {
	m := New()

	m.ObserveExecution("success", 120*time.Millisecond)
	m.ObserveExecution("success", 80*time.Millisecond)
	m.ObserveExecution("timeout", 10*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("timeout")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ExecutionDuration))
}

func TestObserveCleanupFailure(t *testing.T) {
	m := New()
	m.ObserveCleanupFailure()
	m.ObserveCleanupFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CleanupFailures))
}

func TestObserveTutorAndHTTP(t *testing.T) {
	m := New()
	m.ObserveTutorRequest("ok", time.Second)
	m.ObserveHTTPRequest("POST", "/api/run", http.StatusOK)
	m.ObserveHTTPRequest("POST", "/api/run", http.StatusBadRequest)
	m.ObserveHTTPRequest("POST", "/api/run", http.StatusBadGateway)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TutorRequests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/run", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/run", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/run", "5xx")))
}

func TestSeparateInstancesDoNotCollide(t *testing.T) {
	require.NotPanics(t, func() {
		New()
		New()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveExecution("failure", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tutorbox_executions_total{outcome="failure"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "3xx", statusClass(302))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(503))
}
