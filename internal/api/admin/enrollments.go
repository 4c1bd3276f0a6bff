// enrollments.go implements handlers for enrolling users in courses, tracking
// progress, and unenrolling.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/db/repositories"
)

// EnrollmentHandlers handles enrollment management endpoints
type EnrollmentHandlers struct {
	cfg            *config.Config
	enrollmentRepo *repositories.EnrollmentRepository
	courseRepo     *repositories.CourseRepository
	userRepo       *repositories.UserRepository
	recorder       *audit.Recorder
}

// NewEnrollmentHandlers creates a new EnrollmentHandlers instance
func NewEnrollmentHandlers(cfg *config.Config, db *sqlx.DB, recorder *audit.Recorder) *EnrollmentHandlers {
	return &EnrollmentHandlers{
		cfg:            cfg,
		enrollmentRepo: repositories.NewEnrollmentRepository(db),
		courseRepo:     repositories.NewCourseRepository(db),
		userRepo:       repositories.NewUserRepository(db.DB),
		recorder:       recorder,
	}
}

// CreateEnrollmentRequest represents the request to enroll a user in a course
type CreateEnrollmentRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	CourseID string `json:"course_id" binding:"required"`
}

// @Summary      Enroll user
// @Description  Enroll a user in a course. A user can hold at most one enrollment per course. Requires enrollments:manage scope.
// @Tags         Enrollments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateEnrollmentRequest  true  "Enrollment request"
// @Success      201  {object}  map[string]interface{}  "enrollment: models.Enrollment"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User or course not found"
// @Failure      409  {object}  map[string]interface{}  "User already enrolled in this course"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/enrollments [post]
// CreateEnrollmentHandler enrolls a user in a course
// POST /api/admin/enrollments
func (h *EnrollmentHandlers) CreateEnrollmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEnrollmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		user, err := h.userRepo.GetUserByID(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to verify user",
			})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		course, err := h.courseRepo.GetByID(c.Request.Context(), req.CourseID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to verify course",
			})
			return
		}
		if course == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Course not found",
			})
			return
		}

		existing, err := h.enrollmentRepo.GetByUserAndCourse(c.Request.Context(), req.UserID, req.CourseID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check existing enrollment",
			})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "User already enrolled in this course",
			})
			return
		}

		enrollment := &models.Enrollment{
			UserID:   req.UserID,
			CourseID: req.CourseID,
		}
		if err := h.enrollmentRepo.Create(c.Request.Context(), enrollment); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create enrollment",
			})
			return
		}

		recordAudit(c, h.recorder,
			models.AuditActionCreate,
			models.AuditResourceEnrollment,
			enrollment.ID,
			"User "+user.Email+" enrolled in "+course.Slug,
			nil,
		)

		c.JSON(http.StatusCreated, gin.H{
			"enrollment": enrollment,
		})
	}
}

// @Summary      List enrollments
// @Description  List enrollments for a course (paginated) or for a user. Exactly one of course_id or user_id is required. Requires enrollments:manage scope.
// @Tags         Enrollments
// @Security     Bearer
// @Produce      json
// @Param        course_id  query  string  false  "List enrollments in this course"
// @Param        user_id    query  string  false  "List enrollments held by this user"
// @Param        page       query  int     false  "Page number (default 1, course listing only)"
// @Param        limit      query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "enrollments: []models.Enrollment"
// @Failure      400  {object}  map[string]interface{}  "Missing course_id or user_id"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/enrollments [get]
// ListEnrollmentsHandler lists enrollments by course or by user
// GET /api/admin/enrollments?course_id=...  or  ?user_id=...
func (h *EnrollmentHandlers) ListEnrollmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID := c.Query("course_id")
		userID := c.Query("user_id")

		switch {
		case courseID != "":
			page, limit, offset := parsePagination(c)
			enrollments, total, err := h.enrollmentRepo.ListByCourse(c.Request.Context(), courseID, limit, offset)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to list enrollments",
				})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"enrollments": enrollments,
				"pagination": gin.H{
					"page":  page,
					"limit": limit,
					"total": total,
				},
			})

		case userID != "":
			enrollments, err := h.enrollmentRepo.ListByUser(c.Request.Context(), userID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to list enrollments",
				})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"enrollments": enrollments,
			})

		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Either course_id or user_id query parameter is required",
			})
		}
	}
}

// UpdateProgressRequest represents the request to update enrollment progress
type UpdateProgressRequest struct {
	Progress *int `json:"progress" binding:"required"`
}

// @Summary      Update progress
// @Description  Set an enrollment's progress percentage (0-100). Reaching 100 stamps the completion time; it is never cleared by later updates. Requires enrollments:manage scope.
// @Tags         Enrollments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "Enrollment ID"
// @Param        body  body  UpdateProgressRequest  true  "Progress update"
// @Success      200  {object}  map[string]interface{}  "enrollment: models.Enrollment"
// @Failure      400  {object}  map[string]interface{}  "Progress out of range"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Enrollment not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/enrollments/{id}/progress [put]
// UpdateProgressHandler updates an enrollment's progress
// PUT /api/admin/enrollments/:id/progress
func (h *EnrollmentHandlers) UpdateProgressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		enrollmentID := c.Param("id")

		var req UpdateProgressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if *req.Progress < 0 || *req.Progress > 100 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Progress must be between 0 and 100",
			})
			return
		}

		enrollment, err := h.enrollmentRepo.GetByID(c.Request.Context(), enrollmentID)
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

		if err := h.enrollmentRepo.UpdateProgress(c.Request.Context(), enrollmentID, *req.Progress); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update progress",
			})
			return
		}

		// Re-read so the response reflects any completion stamp set by the update
		enrollment, err = h.enrollmentRepo.GetByID(c.Request.Context(), enrollmentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve enrollment",
			})
			return
		}

		recordAudit(c, h.recorder,
			models.AuditActionUpdate,
			models.AuditResourceEnrollment,
			enrollmentID,
			"Enrollment progress updated",
			map[string]interface{}{"progress": *req.Progress},
		)

		c.JSON(http.StatusOK, gin.H{
			"enrollment": enrollment,
		})
	}
}

// @Summary      Unenroll user
// @Description  Delete an enrollment; any issued certificate cascades at the database level. Requires enrollments:manage scope.
// @Tags         Enrollments
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Enrollment ID"
// @Success      200  {object}  map[string]interface{}  "message: Enrollment deleted successfully"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Enrollment not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/enrollments/{id} [delete]
// DeleteEnrollmentHandler unenrolls a user from a course
// DELETE /api/admin/enrollments/:id
func (h *EnrollmentHandlers) DeleteEnrollmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		enrollmentID := c.Param("id")

		enrollment, err := h.enrollmentRepo.GetByID(c.Request.Context(), enrollmentID)
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

		if err := h.enrollmentRepo.Delete(c.Request.Context(), enrollmentID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete enrollment",
			})
			return
		}

		recordAudit(c, h.recorder,
			models.AuditActionDelete,
			models.AuditResourceEnrollment,
			enrollmentID,
			"Enrollment deleted",
			nil,
		)

		c.JSON(http.StatusOK, gin.H{
			"message": "Enrollment deleted successfully",
		})
	}
}
