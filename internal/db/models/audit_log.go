// Package models - audit_log.go defines the AuditLog model for recording
// administrative actions, capturing actor, action, affected resource, client IP,
// free-text details, and arbitrary metadata.
package models

import "time"

// Audit action tags written by the admin handlers.
const (
	AuditActionCreate   = "create"
	AuditActionUpdate   = "update"
	AuditActionDelete   = "delete"
	AuditActionModerate = "moderate"
	AuditActionLogin    = "login"
)

// Audit resource type tags.
const (
	AuditResourceForum       = "Forum"
	AuditResourceUser        = "User"
	AuditResourceCourse      = "Course"
	AuditResourceEnrollment  = "Enrollment"
	AuditResourceCertificate = "Certificate"
)

// AuditLog represents an append-only audit trail entry for tracking admin actions.
// Entries are created exactly once per audited action and never updated or
// deleted; no mutation path exists anywhere in the codebase.
type AuditLog struct {
	ID           string                 `json:"id"`
	UserID       *string                `json:"user_id,omitempty"` // Nullable for system actions
	Action       string                 `json:"action"`            // "moderate", "create", "delete", ...
	ResourceType *string                `json:"resource_type,omitempty"`
	ResourceID   *string                `json:"resource_id,omitempty"`
	Details      *string                `json:"details,omitempty"`  // Human-readable summary
	Metadata     map[string]interface{} `json:"metadata,omitempty"` // JSONB: additional context
	IPAddress    *string                `json:"ip_address,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}
