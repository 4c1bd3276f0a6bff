package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/db/repositories"
	"github.com/edustack/edustack/internal/safego"
	"github.com/edustack/edustack/internal/telemetry"
)

// writeTimeout bounds the database write so a slow audit insert can never hold
// the triggering request hostage.
const writeTimeout = 5 * time.Second

// Recorder persists audit records and optionally forwards them to external
// destinations. Recording is best-effort: a failure to write an audit record
// must never fail the administrative action that triggered it, so Record
// returns nothing and swallows all errors after logging them. Dropped records
// are visible through the audit_write_failures_total metric.
type Recorder struct {
	repo    *repositories.AuditRepository
	shipper Shipper
}

// NewRecorder creates a Recorder. shipper may be nil when no external
// destinations are configured.
func NewRecorder(repo *repositories.AuditRepository, shipper Shipper) *Recorder {
	return &Recorder{
		repo:    repo,
		shipper: shipper,
	}
}

// Record writes an audit record to the database synchronously and ships it to
// external destinations in the background. The entry's ID and CreatedAt are
// populated by the repository.
func (r *Recorder) Record(ctx context.Context, entry *models.AuditLog) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic while recording audit entry", "panic", rec, "action", entry.Action)
			telemetry.AuditWriteFailuresTotal.Inc()
		}
	}()

	// Detach from the request's cancellation: an aborted client connection
	// should not abort the audit trail of an action that already happened.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := r.repo.CreateAuditLog(writeCtx, entry); err != nil {
		slog.Error("failed to write audit record",
			"error", err,
			"action", entry.Action,
			"resource_type", derefStr(entry.ResourceType),
			"resource_id", derefStr(entry.ResourceID))
		telemetry.AuditWriteFailuresTotal.Inc()
		return
	}

	telemetry.AuditRecordsTotal.WithLabelValues(entry.Action).Inc()

	if r.shipper != nil {
		wire := toLogEntry(entry)
		safego.Go(func() {
			shipCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := r.shipper.Ship(shipCtx, wire); err != nil {
				slog.Warn("failed to ship audit record", "error", err, "action", wire.Action)
				telemetry.AuditShipFailuresTotal.Inc()
			}
		})
	}
}

// Close flushes and closes the external destinations, if any.
func (r *Recorder) Close() error {
	if r.shipper == nil {
		return nil
	}
	return r.shipper.Close()
}

func toLogEntry(entry *models.AuditLog) *LogEntry {
	le := &LogEntry{
		Timestamp: entry.CreatedAt,
		Action:    entry.Action,
		Metadata:  entry.Metadata,
	}
	if le.Timestamp.IsZero() {
		le.Timestamp = time.Now()
	}
	le.UserID = derefStr(entry.UserID)
	le.ResourceType = derefStr(entry.ResourceType)
	le.ResourceID = derefStr(entry.ResourceID)
	le.Details = derefStr(entry.Details)
	le.IPAddress = derefStr(entry.IPAddress)
	return le
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
