// courses.go implements handlers for course catalog CRUD and publish state.
package admin

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/db/repositories"
)

// CourseHandlers handles course management endpoints
type CourseHandlers struct {
	cfg        *config.Config
	courseRepo *repositories.CourseRepository
	userRepo   *repositories.UserRepository
	recorder   *audit.Recorder
}

// NewCourseHandlers creates a new CourseHandlers instance
func NewCourseHandlers(cfg *config.Config, db *sqlx.DB, recorder *audit.Recorder) *CourseHandlers {
	return &CourseHandlers{
		cfg:        cfg,
		courseRepo: repositories.NewCourseRepository(db),
		userRepo:   repositories.NewUserRepository(db.DB),
		recorder:   recorder,
	}
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a URL-safe slug from a course title
func slugify(title string) string {
	s := slugCleaner.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// @Summary      List courses
// @Description  Get a paginated list of courses with instructor names and enrollment counts. Requires courses:read scope.
// @Tags         Courses
// @Security     Bearer
// @Produce      json
// @Param        published  query  bool  false  "Only published courses"
// @Param        page       query  int   false  "Page number (default 1)"
// @Param        limit      query  int   false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "courses: []models.Course, pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/courses [get]
// ListCoursesHandler lists courses with pagination
// GET /api/admin/courses?published=true&page=1&limit=20
func (h *CourseHandlers) ListCoursesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := parsePagination(c)
		publishedOnly := c.Query("published") == "true"

		courses, total, err := h.courseRepo.List(c.Request.Context(), publishedOnly, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list courses",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"courses": courses,
			"pagination": gin.H{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		})
	}
}

// @Summary      Get course
// @Description  Get a course by ID. Requires courses:read scope.
// @Tags         Courses
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Course ID"
// @Success      200  {object}  map[string]interface{}  "course: models.Course"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Course not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/courses/{id} [get]
// GetCourseHandler retrieves a specific course by ID
// GET /api/admin/courses/:id
func (h *CourseHandlers) GetCourseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		course, err := h.courseRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve course",
			})
			return
		}

		if course == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Course not found",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"course": course,
		})
	}
}

// CreateCourseRequest represents the request to create a course. Slug is
// derived from the title when omitted.
type CreateCourseRequest struct {
	Title        string  `json:"title" binding:"required"`
	Slug         string  `json:"slug"`
	Description  *string `json:"description"`
	InstructorID *string `json:"instructor_id"`
	Published    bool    `json:"published"`
}

// @Summary      Create course
// @Description  Create a new course. The slug must be unique; it is derived from the title when omitted. Requires courses:write scope.
// @Tags         Courses
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateCourseRequest  true  "Course creation request"
// @Success      201  {object}  map[string]interface{}  "course: models.Course"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      409  {object}  map[string]interface{}  "Course with this slug already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/courses [post]
// CreateCourseHandler creates a new course
// POST /api/admin/courses
func (h *CourseHandlers) CreateCourseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCourseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		slug := req.Slug
		if slug == "" {
			slug = slugify(req.Title)
		}
		if slug == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Could not derive a slug from the title; provide one explicitly",
			})
			return
		}

		// Check slug uniqueness
		existing, err := h.courseRepo.GetBySlug(c.Request.Context(), slug)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check slug availability",
			})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Course with this slug already exists",
			})
			return
		}

		// Verify the instructor exists and can teach
		if req.InstructorID != nil {
			instructor, err := h.userRepo.GetUserByID(c.Request.Context(), *req.InstructorID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to verify instructor",
				})
				return
			}
			if instructor == nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Instructor not found",
				})
				return
			}
			if instructor.Role == models.RoleStudent {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Instructor must hold the instructor or admin role",
				})
				return
			}
		}

		course := &models.Course{
			Title:        req.Title,
			Slug:         slug,
			Description:  req.Description,
			InstructorID: req.InstructorID,
			Published:    req.Published,
		}

		if err := h.courseRepo.Create(c.Request.Context(), course); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create course",
			})
			return
		}

		recordAudit(c, h.recorder,
			models.AuditActionCreate,
			models.AuditResourceCourse,
			course.ID,
			"Course "+course.Slug+" created",
			nil,
		)

		c.JSON(http.StatusCreated, gin.H{
			"course": course,
		})
	}
}

// UpdateCourseRequest represents the request to update a course. Nil fields
// are left unchanged.
type UpdateCourseRequest struct {
	Title        *string `json:"title"`
	Slug         *string `json:"slug"`
	Description  *string `json:"description"`
	InstructorID *string `json:"instructor_id"`
	Published    *bool   `json:"published"`
}

// @Summary      Update course
// @Description  Update a course's title, slug, description, instructor, or publish state. Requires courses:write scope.
// @Tags         Courses
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "Course ID"
// @Param        body  body  UpdateCourseRequest  true  "Course update request"
// @Success      200  {object}  map[string]interface{}  "course: models.Course"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Course not found"
// @Failure      409  {object}  map[string]interface{}  "Slug already in use"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/courses/{id} [put]
// UpdateCourseHandler updates a course
// PUT /api/admin/courses/:id
func (h *CourseHandlers) UpdateCourseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID := c.Param("id")

		var req UpdateCourseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		course, err := h.courseRepo.GetByID(c.Request.Context(), courseID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve course",
			})
			return
		}
		if course == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Course not found",
			})
			return
		}

		if req.Title != nil {
			course.Title = *req.Title
		}
		if req.Slug != nil && *req.Slug != course.Slug {
			existing, err := h.courseRepo.GetBySlug(c.Request.Context(), *req.Slug)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to check slug availability",
				})
				return
			}
			if existing != nil {
				c.JSON(http.StatusConflict, gin.H{
					"error": "Slug already in use by another course",
				})
				return
			}
			course.Slug = *req.Slug
		}
		if req.Description != nil {
			course.Description = req.Description
		}
		if req.InstructorID != nil {
			course.InstructorID = req.InstructorID
		}
		if req.Published != nil {
			course.Published = *req.Published
		}

		if err := h.courseRepo.Update(c.Request.Context(), course); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update course",
			})
			return
		}

		recordAudit(c, h.recorder,
			models.AuditActionUpdate,
			models.AuditResourceCourse,
			course.ID,
			"Course "+course.Slug+" updated",
			nil,
		)

		c.JSON(http.StatusOK, gin.H{
			"course": course,
		})
	}
}

// @Summary      Set course publish state
// @Description  Publish or unpublish a course. Requires courses:write scope.
// @Tags         Courses
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Course ID"
// @Success      200  {object}  map[string]interface{}  "course: models.Course"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Course not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/courses/{id}/publish [put]
// SetPublishedHandler publishes or unpublishes a course
// PUT /api/admin/courses/:id/publish and /api/admin/courses/:id/unpublish
func (h *CourseHandlers) SetPublishedHandler(published bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID := c.Param("id")

		course, err := h.courseRepo.GetByID(c.Request.Context(), courseID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve course",
			})
			return
		}
		if course == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Course not found",
			})
			return
		}

		course.Published = published
		if err := h.courseRepo.Update(c.Request.Context(), course); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update course",
			})
			return
		}

		detail := "Course " + course.Slug + " unpublished"
		if published {
			detail = "Course " + course.Slug + " published"
		}
		recordAudit(c, h.recorder,
			models.AuditActionUpdate,
			models.AuditResourceCourse,
			course.ID,
			detail,
			nil,
		)

		c.JSON(http.StatusOK, gin.H{
			"course": course,
		})
	}
}

// @Summary      Delete course
// @Description  Delete a course; enrollments and certificates cascade at the database level. Requires courses:write scope.
// @Tags         Courses
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Course ID"
// @Success      200  {object}  map[string]interface{}  "message: Course deleted successfully"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Course not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/courses/{id} [delete]
// DeleteCourseHandler deletes a course
// DELETE /api/admin/courses/:id
func (h *CourseHandlers) DeleteCourseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID := c.Param("id")

		course, err := h.courseRepo.GetByID(c.Request.Context(), courseID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve course",
			})
			return
		}
		if course == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Course not found",
			})
			return
		}

		if err := h.courseRepo.Delete(c.Request.Context(), courseID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete course",
			})
			return
		}

		recordAudit(c, h.recorder,
			models.AuditActionDelete,
			models.AuditResourceCourse,
			courseID,
			"Course "+course.Slug+" deleted",
			nil,
		)

		c.JSON(http.StatusOK, gin.H{
			"message": "Course deleted successfully",
		})
	}
}
