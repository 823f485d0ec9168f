package auth

import (
	"fmt"
	"time"
)

// Role is one of the fixed authorization levels assigned to a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// ValidRoles is the closed set of roles the platform recognizes.
// Role assignments and comparisons outside this set are rejected.
var ValidRoles = []Role{RoleAdmin, RoleDoctor, RolePatient}

// ParseRole validates a raw role string against the closed role set.
func ParseRole(s string) (Role, error) {
	for _, r := range ValidRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", ValidationError(fmt.Sprintf("invalid role %q, must be one of %s", s, RoleNames()))
}

// RoleNames returns the valid role names as strings.
func RoleNames() []string {
	names := make([]string, len(ValidRoles))
	for i, r := range ValidRoles {
		names[i] = string(r)
	}
	return names
}

// Claims is the decoded identity assertion produced by a TokenVerifier.
// It is immutable for the lifetime of a request and never persisted.
type Claims struct {
	// UID is the unique subject identifier. Always present.
	UID string

	// Role is the custom role claim, empty when the user has no role yet.
	Role string

	// Email is the account email, if the provider supplied one.
	Email string

	// EmailVerified reports whether the provider verified the email.
	EmailVerified bool

	// Name is the display name, if any.
	Name string

	// Picture is the avatar URL, if any.
	Picture string

	// AuthTime is when the user last authenticated with the provider.
	AuthTime time.Time

	// Raw holds provider claims not mapped to a typed field.
	Raw map[string]any
}

// HasRole reports whether the claims carry the given role.
func (c *Claims) HasRole(role Role) bool {
	return c.Role == string(role)
}
