// Package middleware (rbac.go) implements scope-based authorization middleware.
//
// Scopes (e.g., "forums:moderate", "audit:read") are derived from the user's
// role at request time rather than being embedded in the JWT. This is a
// deliberate design choice: when a user is promoted or demoted, the change
// takes effect immediately on their next request without needing to invalidate
// or reissue their token. Embedding scopes in the JWT would require token
// rotation on every role change, which is operationally expensive and
// error-prone.

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edustack/edustack/internal/auth"
	"github.com/edustack/edustack/internal/db/models"
)

// RequireScope checks if authenticated user has the required scope
func RequireScope(scope auth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get scopes from context (set by AuthMiddleware)
		scopesVal, exists := c.Get("scopes")
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		userScopes, ok := scopesVal.([]string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Invalid scopes format",
			})
			return
		}

		if !auth.HasScope(userScopes, scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Missing required scope",
				"details": "Required scope: " + string(scope),
			})
			return
		}

		c.Next()
	}
}

// RequireAnyScope checks if authenticated user has at least one of the required scopes
func RequireAnyScope(scopes ...auth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		scopesVal, exists := c.Get("scopes")
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		userScopes, ok := scopesVal.([]string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Invalid scopes format",
			})
			return
		}

		if !auth.HasAnyScope(userScopes, scopes...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Missing required scope",
			})
			return
		}

		c.Next()
	}
}

// RequireAdmin rejects any request whose authenticated user does not hold the
// admin role. It is a coarser gate than RequireScope and exists for routes
// where no finer-grained scope applies (e.g. the audit trail of another admin).
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("user_role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		role, ok := roleVal.(string)
		if !ok || role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			return
		}

		c.Next()
	}
}
