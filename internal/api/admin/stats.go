// stats.go implements handlers for aggregating and serving dashboard statistics.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// StatsHandler handles stats-related API requests
type StatsHandler struct {
	db *sqlx.DB
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(database *sqlx.DB) *StatsHandler {
	return &StatsHandler{
		db: database,
	}
}

// DashboardStats represents the response for dashboard statistics
type DashboardStats struct {
	Users        UserStats        `json:"users"`
	Courses      CourseStats      `json:"courses"`
	Enrollments  EnrollmentStats  `json:"enrollments"`
	Certificates CertificateStats `json:"certificates"`
	Moderation   ModerationStats  `json:"moderation"`
}

// UserStats represents user counts broken down by role
type UserStats struct {
	Total       int64 `json:"total"`
	Admins      int64 `json:"admins"`
	Instructors int64 `json:"instructors"`
	Students    int64 `json:"students"`
}

// CourseEnrollmentCount is the enrollment count for a single course.
type CourseEnrollmentCount struct {
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Enrolled int64  `json:"enrolled"`
}

// CourseStats represents course catalog statistics
type CourseStats struct {
	Total      int64                   `json:"total"`
	Published  int64                   `json:"published"`
	TopCourses []CourseEnrollmentCount `json:"top_courses"`
}

// EnrollmentStats represents enrollment and completion statistics
type EnrollmentStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
}

// CertificateStats represents certificate issuance statistics
type CertificateStats struct {
	Issued  int64 `json:"issued"`
	Revoked int64 `json:"revoked"`
}

// ModerationStats summarises the forum moderation queue
type ModerationStats struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// RecentDecisionEntry is a single recent moderation decision for the dashboard feed.
type RecentDecisionEntry struct {
	PostID      string    `json:"post_id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	ModeratedBy *string   `json:"moderated_by"`
	ModeratedAt time.Time `json:"moderated_at"`
}

// @Summary      Get dashboard statistics
// @Description  Returns aggregated statistics for the admin dashboard including user, course, enrollment, certificate, and moderation queue counts.
// @Tags         Stats
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  DashboardStats
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/stats/dashboard [get]
// GetDashboardStats returns dashboard statistics using a single database round-trip
// for the core counts.
func (h *StatsHandler) GetDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()

	// Core counts — single round-trip.
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS user_count,
			(SELECT COUNT(*) FROM users WHERE role = 'admin') AS admin_count,
			(SELECT COUNT(*) FROM users WHERE role = 'instructor') AS instructor_count,
			(SELECT COUNT(*) FROM users WHERE role = 'student') AS student_count,
			(SELECT COUNT(*) FROM courses) AS course_count,
			(SELECT COUNT(*) FROM courses WHERE published) AS published_count,
			(SELECT COUNT(*) FROM enrollments) AS enrollment_count,
			(SELECT COUNT(*) FROM enrollments WHERE completed_at IS NOT NULL) AS completed_count,
			(SELECT COUNT(*) FROM certificates) AS certificate_count,
			(SELECT COUNT(*) FROM certificates WHERE revoked_at IS NOT NULL) AS revoked_count,
			(SELECT COUNT(*) FROM forum_posts WHERE status = 'pending') AS pending_count,
			(SELECT COUNT(*) FROM forum_posts WHERE status = 'approved') AS approved_count,
			(SELECT COUNT(*) FROM forum_posts WHERE status = 'rejected') AS rejected_count
	`

	var stats DashboardStats

	err := h.db.QueryRowContext(ctx, query).Scan(
		&stats.Users.Total,
		&stats.Users.Admins,
		&stats.Users.Instructors,
		&stats.Users.Students,
		&stats.Courses.Total,
		&stats.Courses.Published,
		&stats.Enrollments.Total,
		&stats.Enrollments.Completed,
		&stats.Certificates.Issued,
		&stats.Certificates.Revoked,
		&stats.Moderation.Pending,
		&stats.Moderation.Approved,
		&stats.Moderation.Rejected,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard statistics"})
		return
	}

	// Top courses by enrollment — top 8, optional.
	stats.Courses.TopCourses = []CourseEnrollmentCount{}
	if rows, topErr := h.db.QueryContext(ctx, `
		SELECT c.title, c.slug, COUNT(e.id) AS enrolled
		FROM courses c
		LEFT JOIN enrollments e ON e.course_id = c.id
		GROUP BY c.id, c.title, c.slug
		ORDER BY enrolled DESC
		LIMIT 8
	`); topErr == nil {
		defer rows.Close()
		for rows.Next() {
			var entry CourseEnrollmentCount
			if scanErr := rows.Scan(&entry.Title, &entry.Slug, &entry.Enrolled); scanErr == nil {
				stats.Courses.TopCourses = append(stats.Courses.TopCourses, entry)
			}
		}
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary      Get recent moderation decisions
// @Description  Returns the most recent forum moderation decisions for the dashboard activity feed.
// @Tags         Stats
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "decisions: []RecentDecisionEntry"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/stats/recent-decisions [get]
// GetRecentDecisions returns the last 8 moderation decisions.
func (h *StatsHandler) GetRecentDecisions(c *gin.Context) {
	rows, err := h.db.QueryContext(c.Request.Context(), `
		SELECT id, title, status, moderated_by, moderated_at
		FROM forum_posts
		WHERE moderated_at IS NOT NULL
		ORDER BY moderated_at DESC
		LIMIT 8
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load recent decisions"})
		return
	}
	defer rows.Close()

	decisions := []RecentDecisionEntry{}
	for rows.Next() {
		var entry RecentDecisionEntry
		if scanErr := rows.Scan(&entry.PostID, &entry.Title, &entry.Status, &entry.ModeratedBy, &entry.ModeratedAt); scanErr == nil {
			decisions = append(decisions, entry)
		}
	}

	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}
