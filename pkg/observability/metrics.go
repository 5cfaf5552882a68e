package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec
	AuthzDuration       prometheus.Histogram
	GateResponsesTotal  *prometheus.CounterVec

	// Store metrics
	StoreOperationsTotal *prometheus.CounterVec

	// Lifecycle metrics
	InviteRedemptionsTotal *prometheus.CounterVec

	// Reconciler metrics
	ReconcilerScansTotal      *prometheus.CounterVec
	ReconcilerStuckOrgs       prometheus.Gauge
	ReconcilerLastScanSeconds prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantcore_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tenantcore_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantcore_authz_decisions_total",
				Help: "Authorization decisions by outcome",
			},
			[]string{"outcome"},
		),
		AuthzDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tenantcore_authz_duration_seconds",
				Help:    "Time spent obtaining an authorization decision",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		GateResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantcore_gate_responses_total",
				Help: "Responses produced by the authorization gate",
			},
			[]string{"status"},
		),
		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantcore_store_operations_total",
				Help: "RBAC store operations by result",
			},
			[]string{"operation", "result"},
		),
		InviteRedemptionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantcore_invite_redemptions_total",
				Help: "Invite link redemptions by outcome",
			},
			[]string{"outcome"},
		),
		ReconcilerScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantcore_reconciler_scans_total",
				Help: "Provisioning reconciler scans by result",
			},
			[]string{"result"},
		),
		ReconcilerStuckOrgs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tenantcore_reconciler_stuck_organizations",
				Help: "Organizations found stuck in provisioning by the last scan",
			},
		),
		ReconcilerLastScanSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tenantcore_reconciler_last_scan_timestamp_seconds",
				Help: "Unix time of the last completed reconciler scan",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.AuthzDuration,
		m.GateResponsesTotal,
		m.StoreOperationsTotal,
		m.InviteRedemptionsTotal,
		m.ReconcilerScansTotal,
		m.ReconcilerStuckOrgs,
		m.ReconcilerLastScanSeconds,
	)

	return m
}

// RecordAuthzDecision counts a decision and how long it took
func (m *Metrics) RecordAuthzDecision(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AuthzDecisionsTotal.WithLabelValues(outcome).Inc()
	m.AuthzDuration.Observe(elapsed.Seconds())
}

// RecordGateResponse counts the status code the gate answered with
func (m *Metrics) RecordGateResponse(status int) {
	if m == nil {
		return
	}
	m.GateResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordStoreOperation counts a store call; err decides the result label
func (m *Metrics) RecordStoreOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordInviteRedemption counts a redemption outcome
func (m *Metrics) RecordInviteRedemption(outcome string) {
	if m == nil {
		return
	}
	m.InviteRedemptionsTotal.WithLabelValues(outcome).Inc()
}

// RecordReconcilerScan records the result of one reconciler pass
func (m *Metrics) RecordReconcilerScan(stuck int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ReconcilerScansTotal.WithLabelValues("error").Inc()
		return
	}
	m.ReconcilerScansTotal.WithLabelValues("ok").Inc()
	m.ReconcilerStuckOrgs.Set(float64(stuck))
	m.ReconcilerLastScanSeconds.SetToCurrentTime()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests. Routes are labelled by their
// mux path template so tenant ids never become label values.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, gatherer prometheus.Gatherer) {
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
