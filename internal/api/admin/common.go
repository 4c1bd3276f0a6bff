// common.go provides helpers shared across the admin handlers: pagination
// parsing and audit entry recording.
package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/middleware"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// parsePagination reads page and limit query parameters, clamping limit to
// maxPageSize. It returns the page number, the limit, and the derived offset.
func parsePagination(c *gin.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	return page, limit, (page - 1) * limit
}

// recordAudit appends an audit entry for the current request, attributing it to
// the authenticated user and client IP, and marks the request so the audit
// middleware does not write a second coarser entry. The write is best-effort;
// the recorder swallows its own failures.
func recordAudit(c *gin.Context, recorder *audit.Recorder, action, resourceType, resourceID, details string, metadata map[string]interface{}) {
	if recorder == nil {
		return
	}

	entry := &models.AuditLog{
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &resourceID,
		Metadata:     metadata,
	}
	if details != "" {
		entry.Details = &details
	}
	if userID := c.GetString("user_id"); userID != "" {
		entry.UserID = &userID
	}
	if ip := c.ClientIP(); ip != "" {
		entry.IPAddress = &ip
	}

	recorder.Record(c.Request.Context(), entry)
	middleware.MarkAudited(c)
}
