// certificate_repository.go implements CertificateRepository, providing database queries
// for issuing, verifying, and revoking completion certificates.
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

// CertificateRepository handles database operations for certificates
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository creates a new certificate repository
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Create issues a new certificate. The unique enrollment_id constraint rejects
// double issuance for the same enrollment at the database level.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	cert.ID = uuid.New().String()
	cert.IssuedAt = time.Now()

	query := `
		INSERT INTO certificates (id, enrollment_id, serial, issued_to, course_title, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		cert.ID,
		cert.EnrollmentID,
		cert.Serial,
		cert.IssuedTo,
		cert.CourseTitle,
		cert.IssuedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	return nil
}

// GetByID retrieves a certificate by ID
func (r *CertificateRepository) GetByID(ctx context.Context, id string) (*models.Certificate, error) {
	query := `
		SELECT id, enrollment_id, serial, issued_to, course_title, issued_at, revoked_at
		FROM certificates
		WHERE id = $1
	`

	var cert models.Certificate
	err := r.db.GetContext(ctx, &cert, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}

	return &cert, nil
}

// GetBySerial retrieves a certificate by its serial, the public verification key
func (r *CertificateRepository) GetBySerial(ctx context.Context, serial string) (*models.Certificate, error) {
	query := `
		SELECT id, enrollment_id, serial, issued_to, course_title, issued_at, revoked_at
		FROM certificates
		WHERE serial = $1
	`

	var cert models.Certificate
	err := r.db.GetContext(ctx, &cert, query, serial)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate by serial: %w", err)
	}

	return &cert, nil
}

// GetByEnrollment retrieves the certificate issued for an enrollment, if any
func (r *CertificateRepository) GetByEnrollment(ctx context.Context, enrollmentID string) (*models.Certificate, error) {
	query := `
		SELECT id, enrollment_id, serial, issued_to, course_title, issued_at, revoked_at
		FROM certificates
		WHERE enrollment_id = $1
	`

	var cert models.Certificate
	err := r.db.GetContext(ctx, &cert, query, enrollmentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate by enrollment: %w", err)
	}

	return &cert, nil
}

// List retrieves certificates with pagination, newest first
func (r *CertificateRepository) List(ctx context.Context, limit, offset int) ([]models.Certificate, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM certificates`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count certificates: %w", err)
	}

	query := `
		SELECT id, enrollment_id, serial, issued_to, course_title, issued_at, revoked_at
		FROM certificates
		ORDER BY issued_at DESC
		LIMIT $1 OFFSET $2
	`

	var certs []models.Certificate
	err := r.db.SelectContext(ctx, &certs, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list certificates: %w", err)
	}

	return certs, total, nil
}

// Revoke marks a certificate revoked. Revocation is a one-way flag; the row is
// kept so the serial remains resolvable during verification.
func (r *CertificateRepository) Revoke(ctx context.Context, id string) error {
	query := `UPDATE certificates SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke certificate: %w", err)
	}

	return nil
}
