// Package auth - scopes.go defines permission scope constants for all admin
// resources and provides HasScope and role-to-scope mapping helpers.
package auth

import "github.com/edustack/edustack/internal/db/models"

// Scope represents a permission/scope type
type Scope string

const (
	// Forum moderation scopes
	ScopeForumsRead     Scope = "forums:read"
	ScopeForumsModerate Scope = "forums:moderate"

	// Audit trail scopes
	ScopeAuditRead Scope = "audit:read"

	// User management scopes
	ScopeUsersRead  Scope = "users:read"
	ScopeUsersWrite Scope = "users:write"

	// Course management scopes
	ScopeCoursesRead  Scope = "courses:read"
	ScopeCoursesWrite Scope = "courses:write"

	// Enrollment management scopes
	ScopeEnrollmentsManage Scope = "enrollments:manage"

	// Certificate management scopes
	ScopeCertificatesManage Scope = "certificates:manage"

	// Admin scope (wildcard - all permissions)
	ScopeAdmin Scope = "admin"
)

// AllScopes returns all valid scopes
func AllScopes() []Scope {
	return []Scope{
		ScopeForumsRead,
		ScopeForumsModerate,
		ScopeAuditRead,
		ScopeUsersRead,
		ScopeUsersWrite,
		ScopeCoursesRead,
		ScopeCoursesWrite,
		ScopeEnrollmentsManage,
		ScopeCertificatesManage,
		ScopeAdmin,
	}
}

// ScopesForRole maps a platform role to the scopes it grants. The admin role
// carries the wildcard; instructors can read their course and forum surfaces
// but cannot moderate, manage users, or read the audit trail.
func ScopesForRole(role string) []string {
	switch role {
	case models.RoleAdmin:
		return []string{string(ScopeAdmin)}
	case models.RoleInstructor:
		return []string{
			string(ScopeForumsRead),
			string(ScopeCoursesRead),
			string(ScopeCoursesWrite),
		}
	default:
		return []string{}
	}
}

// HasScope checks if the user's scopes include the required scope.
// The admin scope acts as a wildcard matching everything.
func HasScope(userScopes []string, required Scope) bool {
	for _, s := range userScopes {
		if s == string(ScopeAdmin) || s == string(required) {
			return true
		}
	}
	return false
}

// HasAnyScope checks if the user has at least one of the required scopes
func HasAnyScope(userScopes []string, required ...Scope) bool {
	for _, r := range required {
		if HasScope(userScopes, r) {
			return true
		}
	}
	return false
}
