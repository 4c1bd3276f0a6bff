// course_repository.go implements CourseRepository, providing database queries for
// course catalog records.
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

// CourseRepository handles database operations for courses
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create creates a new course
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	course.ID = uuid.New().String()
	course.CreatedAt = time.Now()
	course.UpdatedAt = time.Now()

	query := `
		INSERT INTO courses (id, title, slug, description, instructor_id, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		course.ID,
		course.Title,
		course.Slug,
		course.Description,
		course.InstructorID,
		course.Published,
		course.CreatedAt,
		course.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}

	return nil
}

// GetByID retrieves a course by ID with instructor name and enrollment count
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	query := `
		SELECT c.id, c.title, c.slug, c.description, c.instructor_id, c.published,
		       c.created_at, c.updated_at, u.name AS instructor_name,
		       (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrolled_count
		FROM courses c
		LEFT JOIN users u ON u.id = c.instructor_id
		WHERE c.id = $1
	`

	var course models.Course
	err := r.db.GetContext(ctx, &course, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return &course, nil
}

// GetBySlug retrieves a course by its URL slug
func (r *CourseRepository) GetBySlug(ctx context.Context, slug string) (*models.Course, error) {
	query := `
		SELECT id, title, slug, description, instructor_id, published, created_at, updated_at
		FROM courses
		WHERE slug = $1
	`

	var course models.Course
	err := r.db.GetContext(ctx, &course, query, slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course by slug: %w", err)
	}

	return &course, nil
}

// List retrieves courses with pagination, newest first
func (r *CourseRepository) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]models.Course, int, error) {
	countQuery := `SELECT COUNT(*) FROM courses`
	query := `
		SELECT c.id, c.title, c.slug, c.description, c.instructor_id, c.published,
		       c.created_at, c.updated_at, u.name AS instructor_name,
		       (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrolled_count
		FROM courses c
		LEFT JOIN users u ON u.id = c.instructor_id
	`

	if publishedOnly {
		countQuery += " WHERE published = true"
		query += " WHERE c.published = true"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	query += " ORDER BY c.created_at DESC LIMIT $1 OFFSET $2"

	var courses []models.Course
	err := r.db.SelectContext(ctx, &courses, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}

	return courses, total, nil
}

// Update updates a course
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now()

	query := `
		UPDATE courses
		SET title = $2, slug = $3, description = $4, instructor_id = $5, published = $6, updated_at = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		course.ID,
		course.Title,
		course.Slug,
		course.Description,
		course.InstructorID,
		course.Published,
		course.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}

	return nil
}

// Delete removes a course; enrollments cascade
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}
