// moderation.go implements handlers for the forum moderation queue: listing
// posts by status and applying approve/reject decisions.
package admin

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/db/repositories"
	"github.com/edustack/edustack/internal/telemetry"
	"github.com/edustack/edustack/internal/validation"
)

// ModerationHandlers handles forum moderation endpoints
type ModerationHandlers struct {
	cfg       *config.Config
	forumRepo *repositories.ForumRepository
	recorder  *audit.Recorder
}

// NewModerationHandlers creates a new ModerationHandlers instance
func NewModerationHandlers(cfg *config.Config, db *sql.DB, recorder *audit.Recorder) *ModerationHandlers {
	return &ModerationHandlers{
		cfg:       cfg,
		forumRepo: repositories.NewForumRepository(db),
		recorder:  recorder,
	}
}

// ModeratePostRequest is the body for a moderation decision. Reason is typed
// as interface{} so a non-string value is coerced to its string representation
// instead of failing the bind.
type ModeratePostRequest struct {
	Status string      `json:"status"`
	Reason interface{} `json:"reason"`
}

// @Summary      Moderate forum post
// @Description  Approve or reject a forum post, recording the moderator, decision time, and optional reason. Re-moderating an already-decided post is allowed. Requires forums:moderate scope.
// @Tags         Moderation
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "Forum post ID"
// @Param        body  body  ModeratePostRequest  true  "Moderation decision"
// @Success      200  {object}  map[string]interface{}  "success: true, data: models.ForumPost"
// @Failure      400  {object}  map[string]interface{}  "Invalid status"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Forum post not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/cms/moderation/forums/{id} [put]
// ModeratePostHandler applies a moderation decision to a forum post
// PUT /api/admin/cms/moderation/forums/:id
func (h *ModerationHandlers) ModeratePostHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		postID := c.Param("id")

		var req ModeratePostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request: " + err.Error(),
			})
			return
		}

		// Validate the target status before touching the database. Pending is
		// not a valid target: a post cannot be moderated back into the
		// unmoderated state.
		if !models.ValidModerationTarget(req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid status. Must be 'approved' or 'rejected'",
			})
			return
		}

		// Coerce the reason to a bounded plain string regardless of the JSON
		// type the caller sent.
		var reason *string
		if s := validation.SanitizeFreeText(req.Reason, validation.MaxReasonLength); s != "" {
			reason = &s
		}

		moderatorID := c.GetString("user_id")

		post, err := h.forumRepo.Moderate(c.Request.Context(), postID, req.Status, moderatorID, reason)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to moderate forum post",
			})
			return
		}

		if post == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Forum post not found",
			})
			return
		}

		telemetry.ModerationDecisionsTotal.WithLabelValues(req.Status).Inc()

		var metadata map[string]interface{}
		if reason != nil {
			metadata = map[string]interface{}{"reason": *reason}
		}
		recordAudit(c, h.recorder,
			models.AuditActionModerate,
			models.AuditResourceForum,
			postID,
			fmt.Sprintf("Forum post %s", req.Status),
			metadata,
		)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    post,
		})
	}
}

// @Summary      List moderation queue
// @Description  List forum posts filtered by moderation status, oldest first. Requires forums:read scope.
// @Tags         Moderation
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "Post status: pending (default), approved, or rejected"
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "success: true, data: []models.ForumPost, total, page"
// @Failure      400  {object}  map[string]interface{}  "Invalid status"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/cms/moderation/forums [get]
// ListModerationQueueHandler lists forum posts pending or past moderation
// GET /api/admin/cms/moderation/forums?status=pending&page=1&limit=20
func (h *ModerationHandlers) ListModerationQueueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.DefaultQuery("status", models.ForumStatusPending)
		if !models.ValidForumStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid status. Must be 'pending', 'approved', or 'rejected'",
			})
			return
		}

		page, limit, offset := parsePagination(c)

		posts, total, err := h.forumRepo.ListPostsByStatus(c.Request.Context(), status, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to list forum posts",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    posts,
			"total":   total,
			"page":    page,
		})
	}
}
