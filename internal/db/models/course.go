// Package models - course.go defines the Course model for catalog entries
// administered through the dashboard.
package models

import "time"

// Course represents a course in the catalog
type Course struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Slug         string    `json:"slug" db:"slug"`
	Description  *string   `json:"description,omitempty" db:"description"`
	InstructorID *string   `json:"instructor_id,omitempty" db:"instructor_id"`
	Published    bool      `json:"published" db:"published"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
	// Joined fields (not stored in courses table)
	InstructorName *string `json:"instructor_name,omitempty" db:"instructor_name"`
	EnrolledCount  int64   `json:"enrolled_count,omitempty" db:"enrolled_count"`
}
