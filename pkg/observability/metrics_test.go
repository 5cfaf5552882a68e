package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	require.NotNil(t, metrics)

	metrics.RecordAuthzDecision("allowed", 3*time.Millisecond)
	metrics.RecordGateResponse(http.StatusNotFound)
	metrics.RecordStoreOperation("get_organization", nil)
	metrics.RecordStoreOperation("get_organization", errors.New("boom"))
	metrics.RecordInviteRedemption("LinkInvalid")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AuthzDecisionsTotal.WithLabelValues("allowed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GateResponsesTotal.WithLabelValues("404")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StoreOperationsTotal.WithLabelValues("get_organization", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StoreOperationsTotal.WithLabelValues("get_organization", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.InviteRedemptionsTotal.WithLabelValues("LinkInvalid")))
}

func TestMetrics_ReconcilerScan(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordReconcilerScan(3, nil)
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.ReconcilerStuckOrgs))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ReconcilerScansTotal.WithLabelValues("ok")))

	metrics.RecordReconcilerScan(0, errors.New("db down"))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.ReconcilerStuckOrgs), "failed scan keeps last value")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ReconcilerScansTotal.WithLabelValues("error")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.RecordAuthzDecision("denied", time.Millisecond)
		metrics.RecordGateResponse(http.StatusUnauthorized)
		metrics.RecordStoreOperation("x", nil)
		metrics.RecordInviteRedemption("x")
		metrics.RecordReconcilerScan(1, nil)
	})
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/tenants/{tenant_id}/aircraft", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	RegisterMetricsEndpoint(router, registry)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tenants/abc/aircraft", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/tenants/{tenant_id}/aircraft", "418")))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "tenantcore_http_requests_total"))
}
