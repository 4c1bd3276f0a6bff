// audit.go implements read-only handlers over the audit trail: the filtered
// trail listing and per-resource history. There is intentionally no write
// handler here — entries are appended only by the recorder.
package admin

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/repositories"
)

// AuditHandlers handles audit trail retrieval endpoints
type AuditHandlers struct {
	cfg       *config.Config
	auditRepo *repositories.AuditRepository
}

// NewAuditHandlers creates a new AuditHandlers instance
func NewAuditHandlers(cfg *config.Config, db *sql.DB) *AuditHandlers {
	return &AuditHandlers{
		cfg:       cfg,
		auditRepo: repositories.NewAuditRepository(db),
	}
}

// parseAuditDate accepts RFC3339 timestamps and bare dates
func parseAuditDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// @Summary      List audit trail
// @Description  Get audit trail entries, newest first, filtered by actor, action, resource type, and date range. Requires audit:read scope.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        user          query  string  false  "Filter by acting user ID"
// @Param        action        query  string  false  "Filter by action (create, update, delete, moderate, login)"
// @Param        resourceType  query  string  false  "Filter by resource type"
// @Param        startDate     query  string  false  "Entries at or after this time (RFC3339 or YYYY-MM-DD)"
// @Param        endDate       query  string  false  "Entries at or before this time (RFC3339 or YYYY-MM-DD)"
// @Param        page          query  int     false  "Page number (default 1)"
// @Param        limit         query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "success: true, data: []models.AuditLog, total, page"
// @Failure      400  {object}  map[string]interface{}  "Invalid date filter"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/cms/audit-trail [get]
// ListAuditTrailHandler lists audit trail entries with optional filters
// GET /api/admin/cms/audit-trail?user=&action=&resourceType=&startDate=&endDate=&page=&limit=
func (h *AuditHandlers) ListAuditTrailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters repositories.AuditFilters

		if v := c.Query("user"); v != "" {
			filters.UserID = &v
		}
		if v := c.Query("action"); v != "" {
			filters.Action = &v
		}
		if v := c.Query("resourceType"); v != "" {
			filters.ResourceType = &v
		}
		if v := c.Query("startDate"); v != "" {
			t, err := parseAuditDate(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Invalid startDate: expected RFC3339 or YYYY-MM-DD",
				})
				return
			}
			filters.StartDate = &t
		}
		if v := c.Query("endDate"); v != "" {
			t, err := parseAuditDate(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Invalid endDate: expected RFC3339 or YYYY-MM-DD",
				})
				return
			}
			filters.EndDate = &t
		}

		page, limit, offset := parsePagination(c)

		logs, total, err := h.auditRepo.ListAuditLogs(c.Request.Context(), filters, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to retrieve audit trail",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    logs,
			"total":   total,
			"page":    page,
		})
	}
}

// @Summary      Get resource audit history
// @Description  Get the audit trail entries for a single resource, newest first. Requires audit:read scope.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        resourceType  path   string  true   "Resource type (Forum, User, Course, Enrollment, Certificate)"
// @Param        resourceId    path   string  true   "Resource ID"
// @Param        page          query  int     false  "Page number (default 1)"
// @Param        limit         query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "success: true, data: []models.AuditLog, total, page"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/cms/audit-trail/resource/{resourceType}/{resourceId} [get]
// GetResourceAuditTrailHandler lists audit entries for a single resource
// GET /api/admin/cms/audit-trail/resource/:resourceType/:resourceId
func (h *AuditHandlers) GetResourceAuditTrailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		resourceType := c.Param("resourceType")
		resourceID := c.Param("resourceId")

		page, limit, offset := parsePagination(c)

		logs, total, err := h.auditRepo.ListByResource(c.Request.Context(), resourceType, resourceID, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to retrieve audit trail",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    logs,
			"total":   total,
			"page":    page,
		})
	}
}
