// Package models - enrollment.go defines the Enrollment model linking users to
// courses with progress tracking.
package models

import "time"

// Enrollment represents a user's enrollment in a course. Progress runs 0-100;
// CompletedAt is set when progress first reaches 100 and is never cleared.
type Enrollment struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	CourseID    string     `json:"course_id" db:"course_id"`
	Progress    int        `json:"progress" db:"progress"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	EnrolledAt  time.Time  `json:"enrolled_at" db:"enrolled_at"`
	// Joined fields (not stored in enrollments table)
	UserName    *string `json:"user_name,omitempty" db:"user_name"`
	CourseTitle *string `json:"course_title,omitempty" db:"course_title"`
}

// Completed returns true once the enrollment has been marked complete
func (e *Enrollment) Completed() bool {
	return e.CompletedAt != nil
}
