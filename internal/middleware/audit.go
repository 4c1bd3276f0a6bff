// audit.go provides Gin middleware that records authenticated write requests to
// the audit trail. Handlers record their own domain-specific entries ("moderate",
// "create", ...) with full resource detail; this middleware is a coarser
// supplementary net that catches authenticated mutations on routes without a
// handler-level record, plus read and failed requests when configured.
package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/models"
)

// routeResourceTypes maps URL path fragments to audit resource type tags.
// Ordered: first match wins, and moderation must precede the generic forum match.
var routeResourceTypes = []struct {
	fragment     string
	resourceType string
}{
	{"/moderation/forums", models.AuditResourceForum},
	{"/audit-trail", "AuditTrail"},
	{"/users", models.AuditResourceUser},
	{"/courses", models.AuditResourceCourse},
	{"/enrollments", models.AuditResourceEnrollment},
	{"/certificates", models.AuditResourceCertificate},
}

// AuditMiddleware records request-level audit entries through the recorder.
// With a nil config only successful authenticated write requests are recorded;
// the config can additionally enable read operations and failed requests, or
// disable the middleware entirely via Enabled.
func AuditMiddleware(recorder *audit.Recorder, auditCfg *config.AuditConfig) gin.HandlerFunc {
	if auditCfg != nil && !auditCfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Process request first
		c.Next()

		// Skip OPTIONS always
		if c.Request.Method == "OPTIONS" {
			return
		}

		logReadOps := auditCfg != nil && auditCfg.LogReadOperations
		logFailedReqs := auditCfg != nil && auditCfg.LogFailedRequests

		isReadOp := c.Request.Method == "GET"
		isFailed := c.Writer.Status() >= 400

		if isReadOp && !logReadOps {
			return
		}
		if isFailed && !logFailedReqs {
			return
		}

		// Anonymous requests carry no actor to attribute; 401s are already
		// visible in metrics and access logs.
		userIDVal, exists := c.Get("user_id")
		if !exists {
			return
		}
		userID, ok := userIDVal.(string)
		if !ok {
			return
		}

		// Handler-level records carry the precise action and resource; skip
		// routes a handler already audits to avoid double entries.
		if skip, _ := c.Get("audit_recorded"); skip == true {
			return
		}

		action := fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())
		ipAddress := c.ClientIP()

		entry := &models.AuditLog{
			UserID:    &userID,
			Action:    action,
			IPAddress: &ipAddress,
			Metadata: map[string]interface{}{
				"status_code": c.Writer.Status(),
			},
		}

		for _, rt := range routeResourceTypes {
			if strings.Contains(c.Request.URL.Path, rt.fragment) {
				resourceType := rt.resourceType
				entry.ResourceType = &resourceType
				break
			}
		}

		recorder.Record(c.Request.Context(), entry)
	}
}

// MarkAudited flags the request as already audited by its handler so the
// middleware layer does not write a second entry for it.
func MarkAudited(c *gin.Context) {
	c.Set("audit_recorded", true)
}
