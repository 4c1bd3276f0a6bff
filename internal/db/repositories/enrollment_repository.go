// enrollment_repository.go implements EnrollmentRepository, providing database queries
// for enrollment records and progress updates.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/edustack/edustack/internal/db/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EnrollmentRepository handles database operations for enrollments
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create enrolls a user in a course. The unique (user_id, course_id) constraint
// rejects duplicate enrollments at the database level.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.ID = uuid.New().String()
	enrollment.EnrolledAt = time.Now()

	query := `
		INSERT INTO enrollments (id, user_id, course_id, progress, enrolled_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		enrollment.ID,
		enrollment.UserID,
		enrollment.CourseID,
		enrollment.Progress,
		enrollment.EnrolledAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

// GetByID retrieves an enrollment by ID with joined user and course names
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `
		SELECT e.id, e.user_id, e.course_id, e.progress, e.completed_at, e.enrolled_at,
		       u.name AS user_name, c.title AS course_title
		FROM enrollments e
		LEFT JOIN users u ON u.id = e.user_id
		LEFT JOIN courses c ON c.id = e.course_id
		WHERE e.id = $1
	`

	var enrollment models.Enrollment
	err := r.db.GetContext(ctx, &enrollment, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	return &enrollment, nil
}

// GetByUserAndCourse retrieves an enrollment by the (user, course) pair
func (r *EnrollmentRepository) GetByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := `
		SELECT id, user_id, course_id, progress, completed_at, enrolled_at
		FROM enrollments
		WHERE user_id = $1 AND course_id = $2
	`

	var enrollment models.Enrollment
	err := r.db.GetContext(ctx, &enrollment, query, userID, courseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	return &enrollment, nil
}

// ListByCourse retrieves enrollments for a course with pagination
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string, limit, offset int) ([]models.Enrollment, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, courseID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count enrollments: %w", err)
	}

	query := `
		SELECT e.id, e.user_id, e.course_id, e.progress, e.completed_at, e.enrolled_at,
		       u.name AS user_name, c.title AS course_title
		FROM enrollments e
		LEFT JOIN users u ON u.id = e.user_id
		LEFT JOIN courses c ON c.id = e.course_id
		WHERE e.course_id = $1
		ORDER BY e.enrolled_at DESC
		LIMIT $2 OFFSET $3
	`

	var enrollments []models.Enrollment
	err := r.db.SelectContext(ctx, &enrollments, query, courseID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return enrollments, total, nil
}

// ListByUser retrieves all enrollments for a user
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	query := `
		SELECT e.id, e.user_id, e.course_id, e.progress, e.completed_at, e.enrolled_at,
		       u.name AS user_name, c.title AS course_title
		FROM enrollments e
		LEFT JOIN users u ON u.id = e.user_id
		LEFT JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1
		ORDER BY e.enrolled_at DESC
	`

	var enrollments []models.Enrollment
	err := r.db.SelectContext(ctx, &enrollments, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return enrollments, nil
}

// UpdateProgress sets an enrollment's progress percentage. Reaching 100 stamps
// completed_at once; later updates never clear it.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	query := `
		UPDATE enrollments
		SET progress = $2,
		    completed_at = CASE WHEN $2 >= 100 AND completed_at IS NULL THEN now() ELSE completed_at END
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, progress)
	if err != nil {
		return fmt.Errorf("failed to update enrollment progress: %w", err)
	}

	return nil
}

// Delete unenrolls a user; any issued certificate cascades
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	return nil
}
