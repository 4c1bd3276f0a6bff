// users.go implements handlers for user account CRUD operations including listing, creating, updating, and deleting users.
package admin

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/db/repositories"
)

// UserHandlers handles user management endpoints
type UserHandlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
	recorder *audit.Recorder
}

// NewUserHandlers creates a new UserHandlers instance
func NewUserHandlers(cfg *config.Config, db *sql.DB, recorder *audit.Recorder) *UserHandlers {
	return &UserHandlers{
		cfg:      cfg,
		userRepo: repositories.NewUserRepository(db),
		recorder: recorder,
	}
}

// @Summary      List users
// @Description  Get a paginated list of users, optionally filtered by a name/email search term. Requires users:read scope.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        search  query  string  false  "Substring match on name or email"
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "users: []models.User, pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/users [get]
// ListUsersHandler lists users with pagination and optional search
// GET /api/admin/users?search=&page=1&limit=20
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := parsePagination(c)

		if search := c.Query("search"); search != "" {
			users, err := h.userRepo.SearchUsers(c.Request.Context(), search, limit, offset)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to search users",
				})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"users": users,
				"pagination": gin.H{
					"page":  page,
					"limit": limit,
				},
			})
			return
		}

		users, total, err := h.userRepo.ListUsers(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list users",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"users": users,
			"pagination": gin.H{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		})
	}
}

// @Summary      Get user
// @Description  Get a user by ID. Requires users:read scope.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "user: models.User"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/users/{id} [get]
// GetUserHandler retrieves a specific user by ID
// GET /api/admin/users/:id
func (h *UserHandlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve user",
			})
			return
		}

		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user": user,
		})
	}
}

// CreateUserRequest represents the request to create a new user
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// @Summary      Create user
// @Description  Create a new user account with a role and initial password. Requires users:write scope.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateUserRequest  true  "User creation request"
// @Success      201  {object}  map[string]interface{}  "user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      409  {object}  map[string]interface{}  "User with this email already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/users [post]
// CreateUserHandler creates a new user
// POST /api/admin/users
func (h *UserHandlers) CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if !models.ValidRole(req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid role. Must be 'admin', 'instructor', or 'student'",
			})
			return
		}

		// Check if user already exists
		existingUser, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check existing user",
			})
			return
		}

		if existingUser != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "User with this email already exists",
			})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to hash password",
			})
			return
		}

		user := &models.User{
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: string(hash),
			Role:         req.Role,
		}

		if err := h.userRepo.CreateUser(c.Request.Context(), user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create user",
			})
			return
		}

		recordAudit(c, h.recorder,
			models.AuditActionCreate,
			models.AuditResourceUser,
			user.ID,
			"User created with role "+user.Role,
			nil,
		)

		c.JSON(http.StatusCreated, gin.H{
			"user": user,
		})
	}
}

// UpdateUserRequest represents the request to update a user. Nil fields are
// left unchanged.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
}

// @Summary      Update user
// @Description  Update a user's name, email, role, or password. Requires users:write scope.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "User ID"
// @Param        body  body  UpdateUserRequest  true  "User update request"
// @Success      200  {object}  map[string]interface{}  "user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      409  {object}  map[string]interface{}  "Email already in use by another user"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/users/{id} [put]
// UpdateUserHandler updates a user
// PUT /api/admin/users/:id
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if req.Role != nil && !models.ValidRole(*req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid role. Must be 'admin', 'instructor', or 'student'",
			})
			return
		}

		// Get existing user
		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve user",
			})
			return
		}

		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		// Update fields
		if req.Name != nil {
			user.Name = *req.Name
		}

		if req.Email != nil {
			// Check if email is already taken
			existingUser, err := h.userRepo.GetUserByEmail(c.Request.Context(), *req.Email)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to check email availability",
				})
				return
			}

			if existingUser != nil && existingUser.ID != userID {
				c.JSON(http.StatusConflict, gin.H{
					"error": "Email already in use by another user",
				})
				return
			}

			user.Email = *req.Email
		}

		if req.Role != nil {
			user.Role = *req.Role
		}

		if req.Password != nil {
			if len(*req.Password) < 8 {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Password must be at least 8 characters",
				})
				return
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to hash password",
				})
				return
			}
			user.PasswordHash = string(hash)
		}

		// Update in database
		if err := h.userRepo.UpdateUser(c.Request.Context(), user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update user",
			})
			return
		}

		recordAudit(c, h.recorder,
			models.AuditActionUpdate,
			models.AuditResourceUser,
			user.ID,
			"User updated",
			nil,
		)

		c.JSON(http.StatusOK, gin.H{
			"user": user,
		})
	}
}

// @Summary      Delete user
// @Description  Delete a user by ID. Cascading deletes will handle related records. An admin cannot delete their own account. Requires users:write scope.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message: User deleted successfully"
// @Failure      400  {object}  map[string]interface{}  "Cannot delete own account"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/admin/users/{id} [delete]
// DeleteUserHandler deletes a user
// DELETE /api/admin/users/:id
func (h *UserHandlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		if userID == c.GetString("user_id") {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cannot delete your own account",
			})
			return
		}

		// Check if user exists
		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve user",
			})
			return
		}

		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		if err := h.userRepo.DeleteUser(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete user",
			})
			return
		}

		recordAudit(c, h.recorder,
			models.AuditActionDelete,
			models.AuditResourceUser,
			userID,
			"User "+user.Email+" deleted",
			nil,
		)

		c.JSON(http.StatusOK, gin.H{
			"message": "User deleted successfully",
		})
	}
}
