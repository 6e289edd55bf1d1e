package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	m := New()
	m.ObserveOperation("start", nil)
	m.ObserveOperation("start", nil)
	m.ObserveOperation("stop", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("start", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("stop", ResultError)))
}

func TestGauges(t *testing.T) {
	m := New()
	m.SetActiveBundles(3)
	m.LogStreamsActive.Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveBundles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LogStreamsActive))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("start", nil)
	m.SetActiveBundles(1)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveOperation("start", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `kubemcp_operations_total{operation="start",result="success"} 1`), body)
	assert.Contains(t, body, "kubemcp_active_bundles")
	assert.Contains(t, body, "go_goroutines")
}
