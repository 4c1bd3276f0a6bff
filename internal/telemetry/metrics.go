// Package telemetry provides application-level observability for the LMS admin backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<LMS_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format (Content-Type: text/plain; version=0.0.4) and is intended to be scraped by
// a Prometheus server every 15–60 seconds.  It is NOT served by the Gin router and
// is therefore absent from the OpenAPI/Swagger spec.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Forum moderation decision counters
//   - Audit trail write and shipping failure counters
//   - Admin login attempt counters
//   - Certificate issuance counters
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/admin/cms/moderation/forums/:id)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as post or user identifiers.
//
// # Usage
//
// Import the package for side effects so metrics are registered before the HTTP server
// starts listening:
//
//	import _ "github.com/edustack/edustack/internal/telemetry"
//
// Or import it directly and use an exported var:
//
//	telemetry.ModerationDecisionsTotal.WithLabelValues("approved").Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /api/admin/cms/moderation/forums/:id),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - Requests by route:                 sum by (path) (rate(http_requests_total[5m]))
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
//
// Example PromQL queries:
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
//   - Average latency:                   rate(http_request_duration_seconds_sum[5m]) / rate(http_request_duration_seconds_count[5m])
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Moderation metrics — recorded by the forum moderation handler.
//
// ModerationDecisionsTotal is a CounterVec with label {status} ("approved" or
// "rejected") incremented once per successful moderation decision.  Repeated
// re-moderation of the same post increments the counter again: it counts
// decisions, not posts.
//
// Example PromQL queries:
//   - Decision rate:          sum by (status) (rate(moderation_decisions_total[1h]))
//   - Rejection ratio (%):    rate(moderation_decisions_total{status="rejected"}[1d]) / sum(rate(moderation_decisions_total[1d])) * 100
var ModerationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moderation_decisions_total",
		Help: "Total number of forum moderation decisions applied, by resulting status.",
	},
	[]string{"status"},
)

// Audit metrics — recorded by the audit recorder.
//
// AuditRecordsTotal is a CounterVec with label {action} incremented once per audit
// record successfully persisted to the database.
//
// AuditWriteFailuresTotal is a plain Counter incremented whenever an audit record
// could not be persisted.  Audit writes are best-effort and never fail the
// triggering request, so this counter is the only hard signal that records are
// being dropped.  Alert on any sustained increase.
//
// AuditShipFailuresTotal counts failures delivering records to external
// destinations (file, webhook).  Shipping is fire-and-forget; the database copy
// is unaffected.
//
// Example PromQL queries:
//   - Records by action:      sum by (action) (rate(audit_records_total[1h]))
//   - Dropped records alert:  increase(audit_write_failures_total[15m]) > 0
var (
	AuditRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_total",
			Help: "Total number of audit records persisted, by action.",
		},
		[]string{"action"},
	)

	AuditWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Total number of audit records that could not be written to the database.",
		},
	)

	AuditShipFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_ship_failures_total",
			Help: "Total number of audit records that could not be delivered to an external destination.",
		},
	)
)

// LoginAttemptsTotal is a CounterVec with label {result} ("success", "failure",
// or "forbidden" for non-admin accounts) incremented once per admin login
// attempt.  A spike in failures against a flat success rate is a credential
// stuffing signal.
//
// Example PromQL queries:
//   - Failure rate:  rate(admin_login_attempts_total{result="failure"}[5m])
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_login_attempts_total",
		Help: "Total number of admin login attempts, by result.",
	},
	[]string{"result"},
)

// CertificatesIssuedTotal is a plain Counter (no labels) incremented once per
// certificate successfully issued.
//
// Example PromQL queries:
//   - Issuance rate:  rate(certificates_issued_total[24h])
var CertificatesIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "certificates_issued_total",
		Help: "Total number of course completion certificates issued.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
//
// Example PromQL queries:
//   - Pool utilisation (%): db_open_connections / <LMS_DATABASE_MAX_CONNECTIONS> * 100
//   - Alert on near-exhaustion: db_open_connections > 20  (for max_connections=25)
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
