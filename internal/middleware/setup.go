// setup.go provides middleware for authenticating first-run bootstrap requests.
// Bootstrap endpoints use a separate authentication scheme ("Authorization:
// SetupToken <token>") that is independent of the normal JWT auth chain: they
// exist only to create the first admin account on a fresh deployment, before
// any account that could log in exists. Once at least one admin account exists
// the endpoints are permanently disabled.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/db/repositories"
)

// SetupTokenContextKey is the context key set when a request is authenticated via setup token.
const SetupTokenContextKey = "is_setup_request"

// setupRateLimiter tracks per-IP attempt counts to prevent brute-force attacks
// on the setup token. Allows maxAttempts per window per IP.
type setupRateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newSetupRateLimiter() *setupRateLimiter {
	return &setupRateLimiter{
		attempts: make(map[string][]time.Time),
	}
}

const (
	setupMaxAttempts = 5
	setupRateWindow  = time.Minute
)

// allow returns true if the IP has not exceeded the rate limit.
func (rl *setupRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-setupRateWindow)

	// Prune old entries
	recent := make([]time.Time, 0, len(rl.attempts[ip]))
	for _, t := range rl.attempts[ip] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= setupMaxAttempts {
		rl.attempts[ip] = recent
		return false
	}

	rl.attempts[ip] = append(recent, now)
	return true
}

// SetupTokenMiddleware validates setup token authentication. It checks that:
//  1. No admin account exists yet (returns 403 once one does).
//  2. The Authorization header contains a valid "SetupToken <token>" value.
//  3. The token matches the bcrypt hash generated at boot.
//  4. The IP is not rate-limited (max 5 attempts per minute).
//
// tokenHash is the bcrypt hash of the setup token printed to the server log at
// first boot; an empty hash disables the endpoints entirely.
//
// On success, sets SetupTokenContextKey=true in the gin context and calls c.Next().
func SetupTokenMiddleware(userRepo *repositories.UserRepository, tokenHash string) gin.HandlerFunc {
	rateLimiter := newSetupRateLimiter()

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		// 1. Once an admin exists, setup is complete — permanently block all setup endpoints
		adminCount, err := userRepo.CountByRole(ctx, models.RoleAdmin)
		if err != nil {
			slog.Error("setup middleware: failed to check setup status", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check setup status",
			})
			return
		}
		if adminCount > 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Setup has already been completed. These endpoints are permanently disabled.",
			})
			return
		}

		// 2. Rate limit check before doing any bcrypt work
		clientIP := c.ClientIP()
		if !rateLimiter.allow(clientIP) {
			slog.Warn("setup middleware: rate limit exceeded", "ip", clientIP)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many setup token attempts. Try again in one minute.",
			})
			return
		}

		// 3. Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required. Use: Authorization: SetupToken <token>",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "SetupToken") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization scheme. Use: Authorization: SetupToken <token>",
			})
			return
		}
		rawToken := strings.TrimSpace(parts[1])

		if tokenHash == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "No setup token has been generated. Restart the server to generate one.",
			})
			return
		}

		// 4. Verify token against bcrypt hash
		if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(rawToken)); err != nil {
			slog.Warn("setup middleware: invalid setup token", "ip", clientIP)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid setup token",
			})
			return
		}

		// Token is valid — set context flag and continue
		c.Set(SetupTokenContextKey, true)
		c.Next()
	}
}
