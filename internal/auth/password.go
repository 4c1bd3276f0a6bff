// Package auth - password.go wraps bcrypt hashing and comparison for user
// credentials.
package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is the work factor for password hashes. The default (10) keeps
// login latency in the tens of milliseconds on current hardware.
const bcryptCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of a plaintext password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored bcrypt hash.
// Returns true only on an exact match.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
