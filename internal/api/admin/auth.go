// auth.go implements HTTP handlers for admin login and the current-user endpoint.
package admin

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/auth"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/db/repositories"
	"github.com/edustack/edustack/internal/telemetry"
)

// AuthHandlers handles authentication-related endpoints
type AuthHandlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
	recorder *audit.Recorder
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cfg *config.Config, db *sql.DB, recorder *audit.Recorder) *AuthHandlers {
	return &AuthHandlers{
		cfg:      cfg,
		userRepo: repositories.NewUserRepository(db),
		recorder: recorder,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Login
// @Description  Authenticate with email and password and receive a bearer token for the admin API.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body  LoginRequest  true  "Login credentials"
// @Success      200  {object}  map[string]interface{}  "token: string, user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Invalid email or password"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/auth/login [post]
// LoginHandler authenticates a user and issues a JWT
// POST /api/admin/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to authenticate",
			})
			return
		}

		// Run the bcrypt comparison even for unknown emails so the response
		// time does not reveal whether an account exists.
		hash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
		if user != nil {
			hash = user.PasswordHash
		}
		compareErr := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password))

		if user == nil || compareErr != nil {
			telemetry.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			slog.Info("Login failed", "email", req.Email, "ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid email or password",
			})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, user.Role, h.cfg.Auth.TokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate token",
			})
			return
		}

		telemetry.LoginAttemptsTotal.WithLabelValues("success").Inc()

		if h.recorder != nil {
			ip := c.ClientIP()
			resourceType := models.AuditResourceUser
			h.recorder.Record(c.Request.Context(), &models.AuditLog{
				UserID:       &user.ID,
				Action:       models.AuditActionLogin,
				ResourceType: &resourceType,
				ResourceID:   &user.ID,
				IPAddress:    &ip,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

// @Summary      Current user
// @Description  Get the authenticated user's account and effective scopes.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user: models.User, scopes: []string"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/admin/auth/me [get]
// MeHandler returns the authenticated user
// GET /api/admin/auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userVal, exists := c.Get("user")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		user, ok := userVal.(*models.User)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user":   user,
			"scopes": auth.ScopesForRole(user.Role),
		})
	}
}
