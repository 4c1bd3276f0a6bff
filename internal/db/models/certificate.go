// Package models - certificate.go defines the Certificate model for completion
// certificates issued against finished enrollments.
package models

import "time"

// Certificate represents a completion certificate. IssuedTo and CourseTitle are
// denormalized at issue time so the certificate remains verifiable even if the
// user or course record is later renamed or deleted.
type Certificate struct {
	ID           string     `json:"id" db:"id"`
	EnrollmentID string     `json:"enrollment_id" db:"enrollment_id"`
	Serial       string     `json:"serial" db:"serial"`
	IssuedTo     string     `json:"issued_to" db:"issued_to"`
	CourseTitle  string     `json:"course_title" db:"course_title"`
	IssuedAt     time.Time  `json:"issued_at" db:"issued_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// Revoked returns true if the certificate has been revoked
func (c *Certificate) Revoked() bool {
	return c.RevokedAt != nil
}
