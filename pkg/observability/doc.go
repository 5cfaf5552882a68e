// Package observability provides structured logging, Prometheus metrics, health checks and
// OpenTelemetry tracing for tenantcore processes.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("tenant_id", tenantID).Info("membership approved")
//
// Critical is reserved for configuration bugs, such as a guarded route declaring a permission
// name the catalog does not know.
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	metrics.RecordAuthzDecision("allowed", elapsed)
//
// All Record methods accept a nil receiver so components can run without metrics in tests.
//
// # Health Checks
//
// /health/live never touches dependencies. /health/ready pings Postgres (required) and Redis
// (optional; failure reports degraded).
//
// # Tracing
//
// InitOTel installs OTLP gRPC trace and metric exporters. Without it, Tracer returns no-op spans.
package observability
