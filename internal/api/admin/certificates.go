// certificates.go implements handlers for issuing, verifying, and revoking
// completion certificates.
package admin

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/db/repositories"
	"github.com/edustack/edustack/internal/telemetry"
)

// CertificateHandlers handles certificate management endpoints
type CertificateHandlers struct {
	cfg            *config.Config
	certRepo       *repositories.CertificateRepository
	enrollmentRepo *repositories.EnrollmentRepository
	recorder       *audit.Recorder
}

// NewCertificateHandlers creates a new CertificateHandlers instance
func NewCertificateHandlers(cfg *config.Config, db *sqlx.DB, recorder *audit.Recorder) *CertificateHandlers {
	return &CertificateHandlers{
		cfg:            cfg,
		certRepo:       repositories.NewCertificateRepository(db),
		enrollmentRepo: repositories.NewEnrollmentRepository(db),
		recorder:       recorder,
	}
}

// generateSerial produces a certificate serial of the form EDU-XXXXXXXXXXXXXXXX.
// The serial is the public identifier printed on the certificate; uniqueness is
// enforced by the database constraint.
func generateSerial() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "EDU-" + strings.ToUpper(hex.EncodeToString(b)), nil
}

// IssueCertificateRequest represents the request to issue a certificate
type IssueCertificateRequest struct {
	EnrollmentID string `json:"enrollment_id" binding:"required"`
}

// @Summary      Issue certificate
// @Description  Issue a completion certificate for a finished enrollment. The recipient name and course title are denormalized at issue time. Requires certificates:manage scope.
// @Tags         Certificates
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  IssueCertificateRequest  true  "Issue request"
// @Success      201  {object}  map[string]interface{}  "certificate: models.Certificate"
// @Failure      400  {object}  map[string]interface{}  "Enrollment not completed"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Enrollment not found"
// @Failure      409  {object}  map[string]interface{}  "Certificate already issued for this enrollment"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/certificates [post]
// IssueCertificateHandler issues a certificate for a completed enrollment
// POST /api/admin/certificates
func (h *CertificateHandlers) IssueCertificateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IssueCertificateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		enrollment, err := h.enrollmentRepo.GetByID(c.Request.Context(), req.EnrollmentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve enrollment",
			})
			return
		}
		if enrollment == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Enrollment not found",
			})
			return
		}
		if !enrollment.Completed() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cannot issue a certificate for an incomplete enrollment",
			})
			return
		}

		existing, err := h.certRepo.GetByEnrollment(c.Request.Context(), req.EnrollmentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check existing certificate",
			})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Certificate already issued for this enrollment",
			})
			return
		}

		serial, err := generateSerial()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate serial",
			})
			return
		}

		cert := &models.Certificate{
			EnrollmentID: req.EnrollmentID,
			Serial:       serial,
		}
		if enrollment.UserName != nil {
			cert.IssuedTo = *enrollment.UserName
		}
		if enrollment.CourseTitle != nil {
			cert.CourseTitle = *enrollment.CourseTitle
		}

		if err := h.certRepo.Create(c.Request.Context(), cert); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to issue certificate",
			})
			return
		}

		telemetry.CertificatesIssuedTotal.Inc()

		recordAudit(c, h.recorder,
			models.AuditActionCreate,
			models.AuditResourceCertificate,
			cert.ID,
			"Certificate "+cert.Serial+" issued",
			map[string]interface{}{"enrollment_id": cert.EnrollmentID},
		)

		c.JSON(http.StatusCreated, gin.H{
			"certificate": cert,
		})
	}
}

// @Summary      List certificates
// @Description  Get a paginated list of issued certificates, newest first. Requires certificates:manage scope.
// @Tags         Certificates
// @Security     Bearer
// @Produce      json
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "certificates: []models.Certificate, pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/certificates [get]
// ListCertificatesHandler lists issued certificates
// GET /api/admin/certificates?page=1&limit=20
func (h *CertificateHandlers) ListCertificatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := parsePagination(c)

		certs, total, err := h.certRepo.List(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list certificates",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"certificates": certs,
			"pagination": gin.H{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		})
	}
}

// @Summary      Verify certificate
// @Description  Look up a certificate by its public serial. Requires certificates:manage scope.
// @Tags         Certificates
// @Security     Bearer
// @Produce      json
// @Param        serial  path  string  true  "Certificate serial"
// @Success      200  {object}  map[string]interface{}  "certificate: models.Certificate"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Certificate not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/certificates/serial/{serial} [get]
// GetCertificateBySerialHandler looks up a certificate by serial
// GET /api/admin/certificates/serial/:serial
func (h *CertificateHandlers) GetCertificateBySerialHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cert, err := h.certRepo.GetBySerial(c.Request.Context(), c.Param("serial"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve certificate",
			})
			return
		}
		if cert == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Certificate not found",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"certificate": cert,
		})
	}
}

// @Summary      Revoke certificate
// @Description  Revoke an issued certificate. Revocation stamps revoked_at; the record itself is retained for verification history. Requires certificates:manage scope.
// @Tags         Certificates
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Certificate ID"
// @Success      200  {object}  map[string]interface{}  "certificate: models.Certificate"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Certificate not found"
// @Failure      409  {object}  map[string]interface{}  "Certificate already revoked"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/certificates/{id}/revoke [put]
// RevokeCertificateHandler revokes a certificate
// PUT /api/admin/certificates/:id/revoke
func (h *CertificateHandlers) RevokeCertificateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		certID := c.Param("id")

		cert, err := h.certRepo.GetByID(c.Request.Context(), certID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve certificate",
			})
			return
		}
		if cert == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Certificate not found",
			})
			return
		}
		if cert.Revoked() {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Certificate already revoked",
			})
			return
		}

		if err := h.certRepo.Revoke(c.Request.Context(), certID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to revoke certificate",
			})
			return
		}

		cert, err = h.certRepo.GetByID(c.Request.Context(), certID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve certificate",
			})
			return
		}

		recordAudit(c, h.recorder,
			models.AuditActionUpdate,
			models.AuditResourceCertificate,
			certID,
			"Certificate revoked",
			nil,
		)

		c.JSON(http.StatusOK, gin.H{
			"certificate": cert,
		})
	}
}
