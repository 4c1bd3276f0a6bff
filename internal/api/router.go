// Package api wires together all HTTP routes for the EduStack admin backend.
//
// Route grouping philosophy:
//   - /api/admin/auth/login and the setup endpoints are the only routes that do
//     not require a JWT; login is rate limited separately and the setup flow is
//     gated by a one-time token printed to the server log at boot.
//   - Everything else under /api/admin requires authentication plus the RBAC
//     scope for the resource. The admin role holds the wildcard scope; the
//     instructor role holds read scopes for forums and courses.
//   - Mutating handlers record their own rich audit entries; AuditMiddleware is
//     the coarse net that catches anything a handler did not record itself.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/edustack/internal/api/admin"
	"github.com/edustack/edustack/internal/api/setup"
	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/auth"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/repositories"
	"github.com/edustack/edustack/internal/jobs"
	"github.com/edustack/edustack/internal/middleware"
)

// BackgroundServices holds references to background resources that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	recorder        *audit.Recorder
	rateLimiters    []*middleware.RateLimiter
	backlogNotifier *jobs.ModerationBacklogNotifier
}

// Shutdown stops all background goroutines and flushes the audit shipper
// pipeline. It should be called after the HTTP server has been shut down so
// that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.backlogNotifier != nil {
		bg.backlogNotifier.Stop()
	}
	if bg.recorder != nil {
		if err := bg.recorder.Close(); err != nil {
			slog.Error("failed to close audit recorder", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router.
//
// setupTokenHash is the bcrypt hash of the one-time setup token generated at
// boot when no admin account exists yet; an empty hash disables the setup
// endpoints entirely.
func NewRouter(cfg *config.Config, db *sql.DB, setupTokenHash string) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Repositories. Most use database/sql directly; the course, enrollment,
	// and certificate repositories use sqlx over the same pool.
	userRepo := repositories.NewUserRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	forumRepo := repositories.NewForumRepository(db)
	sqlxDB := sqlx.NewDb(db, "postgres")

	// Audit recorder with optional shipping destinations (file, webhook).
	shipper, err := audit.NewMultiShipper(shipperConfigs(cfg))
	if err != nil {
		log.Fatalf("Failed to initialize audit shippers: %v", err)
	}
	recorder := audit.NewRecorder(auditRepo, shipper)

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health and readiness probes
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db))

	// API version
	router.GET("/version", versionHandler())

	// Handlers
	authHandlers := admin.NewAuthHandlers(cfg, db, recorder)
	userHandlers := admin.NewUserHandlers(cfg, db, recorder)
	moderationHandlers := admin.NewModerationHandlers(cfg, db, recorder)
	auditHandlers := admin.NewAuditHandlers(cfg, db)
	courseHandlers := admin.NewCourseHandlers(cfg, sqlxDB, recorder)
	enrollmentHandlers := admin.NewEnrollmentHandlers(cfg, sqlxDB, recorder)
	certificateHandlers := admin.NewCertificateHandlers(cfg, sqlxDB, recorder)
	statsHandlers := admin.NewStatsHandler(sqlxDB)
	setupHandlers := setup.NewHandlers(userRepo, recorder)

	// Rate limiters
	authRateLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	generalRateLimiter := middleware.NewRateLimiter(generalRateLimitConfig(cfg))

	// Public certificate verification. Third parties check a serial from a
	// printed certificate; no account required. Optional auth populates the
	// user context so the frontend can show management actions to admins.
	verifyGroup := router.Group("/api/certificates")
	verifyGroup.Use(middleware.RateLimitMiddleware(generalRateLimiter))
	verifyGroup.Use(middleware.OptionalAuthMiddleware(userRepo))
	{
		verifyGroup.GET("/verify/:serial", certificateHandlers.GetCertificateBySerialHandler())
	}

	apiAdmin := router.Group("/api/admin")
	{
		// First-run bootstrap endpoints (setup token auth, internally rate
		// limited; permanently disabled once an admin account exists).
		setupGroup := apiAdmin.Group("/setup")
		setupGroup.Use(middleware.SetupTokenMiddleware(userRepo, setupTokenHash))
		{
			setupGroup.GET("/status", setupHandlers.GetSetupStatus)
			setupGroup.POST("/admin", setupHandlers.CreateAdmin)
		}

		// Public authentication endpoints (no auth required, but rate limited)
		authGroup := apiAdmin.Group("/auth")
		authGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
		{
			authGroup.POST("/login", authHandlers.LoginHandler())
		}

		// Everything below requires a valid bearer token.
		authenticated := apiAdmin.Group("")
		authenticated.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		authenticated.Use(middleware.AuthMiddleware(userRepo))
		authenticated.Use(middleware.AuditMiddleware(recorder, &cfg.Audit))
		{
			authenticated.GET("/auth/me", authHandlers.MeHandler())

			// Stats endpoints
			authenticated.GET("/stats/dashboard",
				middleware.RequireAdmin(),
				statsHandlers.GetDashboardStats)
			authenticated.GET("/stats/recent-decisions",
				middleware.RequireAdmin(),
				statsHandlers.GetRecentDecisions)

			// CMS: forum moderation and the audit trail
			cmsGroup := authenticated.Group("/cms")
			{
				cmsGroup.GET("/moderation/forums",
					middleware.RequireScope(auth.ScopeForumsRead),
					moderationHandlers.ListModerationQueueHandler())
				cmsGroup.PUT("/moderation/forums/:id",
					middleware.RequireScope(auth.ScopeForumsModerate),
					moderationHandlers.ModeratePostHandler())

				auditGroup := cmsGroup.Group("/audit-trail")
				auditGroup.Use(middleware.RequireScope(auth.ScopeAuditRead))
				{
					auditGroup.GET("", auditHandlers.ListAuditTrailHandler())
					auditGroup.GET("/resource/:resourceType/:resourceId",
						auditHandlers.GetResourceAuditTrailHandler())
				}
			}

			// Users management
			usersGroup := authenticated.Group("/users")
			{
				usersGroup.GET("", middleware.RequireScope(auth.ScopeUsersRead), userHandlers.ListUsersHandler())
				usersGroup.GET("/:id", middleware.RequireScope(auth.ScopeUsersRead), userHandlers.GetUserHandler())
				usersGroup.POST("", middleware.RequireScope(auth.ScopeUsersWrite), userHandlers.CreateUserHandler())
				usersGroup.PUT("/:id", middleware.RequireScope(auth.ScopeUsersWrite), userHandlers.UpdateUserHandler())
				usersGroup.DELETE("/:id", middleware.RequireScope(auth.ScopeUsersWrite), userHandlers.DeleteUserHandler())
			}

			// Course catalog management
			coursesGroup := authenticated.Group("/courses")
			{
				coursesGroup.GET("", middleware.RequireScope(auth.ScopeCoursesRead), courseHandlers.ListCoursesHandler())
				coursesGroup.GET("/:id", middleware.RequireScope(auth.ScopeCoursesRead), courseHandlers.GetCourseHandler())
				coursesGroup.POST("", middleware.RequireScope(auth.ScopeCoursesWrite), courseHandlers.CreateCourseHandler())
				coursesGroup.PUT("/:id", middleware.RequireScope(auth.ScopeCoursesWrite), courseHandlers.UpdateCourseHandler())
				coursesGroup.PUT("/:id/publish", middleware.RequireScope(auth.ScopeCoursesWrite), courseHandlers.SetPublishedHandler(true))
				coursesGroup.PUT("/:id/unpublish", middleware.RequireScope(auth.ScopeCoursesWrite), courseHandlers.SetPublishedHandler(false))
				coursesGroup.DELETE("/:id", middleware.RequireScope(auth.ScopeCoursesWrite), courseHandlers.DeleteCourseHandler())
			}

			// Enrollment management
			enrollmentsGroup := authenticated.Group("/enrollments")
			enrollmentsGroup.Use(middleware.RequireScope(auth.ScopeEnrollmentsManage))
			{
				enrollmentsGroup.GET("", enrollmentHandlers.ListEnrollmentsHandler())
				enrollmentsGroup.POST("", enrollmentHandlers.CreateEnrollmentHandler())
				enrollmentsGroup.PUT("/:id/progress", enrollmentHandlers.UpdateProgressHandler())
				enrollmentsGroup.DELETE("/:id", enrollmentHandlers.DeleteEnrollmentHandler())
			}

			// Certificate management
			certificatesGroup := authenticated.Group("/certificates")
			certificatesGroup.Use(middleware.RequireScope(auth.ScopeCertificatesManage))
			{
				certificatesGroup.GET("", certificateHandlers.ListCertificatesHandler())
				certificatesGroup.GET("/serial/:serial", certificateHandlers.GetCertificateBySerialHandler())
				certificatesGroup.POST("", certificateHandlers.IssueCertificateHandler())
				certificatesGroup.PUT("/:id/revoke", certificateHandlers.RevokeCertificateHandler())
			}
		}
	}

	// Background jobs
	backlogNotifier := jobs.NewModerationBacklogNotifier(forumRepo, userRepo, &cfg.Notifications)
	go backlogNotifier.Start(context.Background())

	bg := &BackgroundServices{
		recorder:        recorder,
		rateLimiters:    []*middleware.RateLimiter{authRateLimiter, generalRateLimiter},
		backlogNotifier: backlogNotifier,
	}

	return router, bg
}

// shipperConfigs converts the config file's audit shipper entries to the audit
// package's configuration types.
func shipperConfigs(cfg *config.Config) []audit.ShipperConfig {
	out := make([]audit.ShipperConfig, 0, len(cfg.Audit.Shippers))
	for _, sc := range cfg.Audit.Shippers {
		converted := audit.ShipperConfig{
			Enabled: sc.Enabled,
			Type:    sc.Type,
		}
		if sc.Webhook != nil {
			converted.Webhook = &audit.WebhookConfig{
				URL:           sc.Webhook.URL,
				Headers:       sc.Webhook.Headers,
				Timeout:       time.Duration(sc.Webhook.TimeoutSecs) * time.Second,
				BatchSize:     sc.Webhook.BatchSize,
				FlushInterval: time.Duration(sc.Webhook.FlushInterval) * time.Second,
			}
		}
		if sc.File != nil {
			converted.File = &audit.FileConfig{
				Path:       sc.File.Path,
				MaxSizeMB:  sc.File.MaxSizeMB,
				MaxBackups: sc.File.MaxBackups,
			}
		}
		out = append(out, converted)
	}
	return out
}

// generalRateLimitConfig builds the shared API rate limiter from config,
// falling back to the package defaults when rate limiting is not configured.
func generalRateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	limitCfg := middleware.DefaultRateLimitConfig()
	if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
		limitCfg.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
	}
	if cfg.Security.RateLimiting.Burst > 0 {
		limitCfg.BurstSize = cfg.Security.RateLimiting.Burst
	}
	return limitCfg
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging via slog.
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
