// Package setup implements HTTP handlers for the first-run bootstrap flow.
// These endpoints are authenticated via a one-time setup token printed to the
// server log at boot (not JWT) and are permanently disabled once an admin
// account exists. They allow creating the initial admin through the frontend
// wizard or via curl.
package setup

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/db/repositories"
)

// Handlers holds all dependencies for setup endpoints.
type Handlers struct {
	userRepo *repositories.UserRepository
	recorder *audit.Recorder
}

// NewHandlers creates a new setup Handlers instance.
func NewHandlers(userRepo *repositories.UserRepository, recorder *audit.Recorder) *Handlers {
	return &Handlers{
		userRepo: userRepo,
		recorder: recorder,
	}
}

// @Summary      Get setup status
// @Description  Reports whether the instance still needs its initial admin account. Requires a valid setup token.
// @Tags         Setup
// @Security     SetupToken
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "setup_required: bool"
// @Failure      401  {object}  map[string]interface{}  "Invalid setup token"
// @Failure      403  {object}  map[string]interface{}  "Setup already completed"
// @Router       /api/admin/setup/status [get]
// GetSetupStatus reports whether an admin account still needs to be created.
// Reaching this handler at all means the setup token middleware accepted the
// request, which implies no admin exists yet.
func (h *Handlers) GetSetupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"setup_required": true,
	})
}

// CreateAdminInput is the body for initial admin creation
type CreateAdminInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// @Summary      Create initial admin
// @Description  Creates the first admin account. The setup token is invalidated by the act of creating the admin: once one exists, all setup endpoints return 403.
// @Tags         Setup
// @Security     SetupToken
// @Accept       json
// @Produce      json
// @Param        body  body  CreateAdminInput  true  "Initial admin account"
// @Success      201  {object}  map[string]interface{}  "user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid input"
// @Failure      401  {object}  map[string]interface{}  "Invalid setup token"
// @Failure      403  {object}  map[string]interface{}  "Setup already completed"
// @Failure      409  {object}  map[string]interface{}  "Email already registered"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/setup/admin [post]
// CreateAdmin creates the initial admin account.
func (h *Handlers) CreateAdmin(c *gin.Context) {
	var input CreateAdminInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	email := strings.TrimSpace(strings.ToLower(input.Email))

	existing, err := h.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing user"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := &models.User{
		Email:        email,
		Name:         input.Name,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}

	if err := h.userRepo.CreateUser(ctx, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create admin user"})
		return
	}

	if h.recorder != nil {
		resourceType := models.AuditResourceUser
		ip := c.ClientIP()
		details := "Initial admin account created"
		h.recorder.Record(ctx, &models.AuditLog{
			UserID:       &user.ID,
			Action:       models.AuditActionCreate,
			ResourceType: &resourceType,
			ResourceID:   &user.ID,
			Details:      &details,
			IPAddress:    &ip,
		})
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": user,
	})
}
