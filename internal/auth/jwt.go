// Package auth - jwt.go mints and verifies the HS256 bearer tokens issued at
// login. The signing secret comes from LMS_JWT_SECRET, resolved once at
// startup; development mode falls back to a random per-process secret.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "edustack"

var (
	jwtSecret     string
	jwtSecretOnce sync.Once
	jwtSecretErr  error
)

// Claims is the token payload: identity plus the role the RBAC layer derives
// scopes from.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func isDevMode() bool {
	switch {
	case os.Getenv("DEV_MODE") == "true", os.Getenv("DEV_MODE") == "1":
		return true
	case os.Getenv("GIN_MODE") == "debug":
		return true
	}
	return false
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// ValidateJWTSecret resolves the signing secret exactly once. Missing
// LMS_JWT_SECRET is fatal outside development; in dev mode a random secret is
// generated so logins work but do not survive a restart. Call at startup
// before serving traffic.
func ValidateJWTSecret() error {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("LMS_JWT_SECRET")
		switch {
		case secret == "" && isDevMode():
			jwtSecret = randomSecret()
			log.Printf("WARNING: LMS_JWT_SECRET not set. Using auto-generated secret for development.")
			log.Printf("WARNING: Sessions will not persist across restarts. Set LMS_JWT_SECRET for persistent sessions.")
		case secret == "":
			jwtSecretErr = errors.New("SECURITY ERROR: LMS_JWT_SECRET environment variable is required in production. " +
				"Generate a secure secret with: openssl rand -hex 32")
		default:
			if len(secret) < 32 {
				log.Printf("WARNING: LMS_JWT_SECRET is shorter than recommended 32 characters. Consider using a longer secret.")
			}
			jwtSecret = secret
		}
	})
	return jwtSecretErr
}

// GetJWTSecret returns the resolved secret, panicking if resolution failed.
// The panic only fires if ValidateJWTSecret's startup error was ignored.
func GetJWTSecret() string {
	if jwtSecret == "" {
		if err := ValidateJWTSecret(); err != nil {
			panic(err)
		}
	}
	return jwtSecret
}

// GenerateJWT signs a token for an authenticated user. A zero expiresIn
// defaults to one hour.
func GenerateJWT(userID, email, role string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID,
		},
	})
	return token.SignedString([]byte(GetJWTSecret()))
}

// ValidateJWT parses tokenString, rejecting anything not signed HS256 with
// the configured secret, and returns its claims.
func ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(GetJWTSecret()), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
