package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinsys/authgate/auth"
)

// Sentinel errors for directory operations.
var (
	ErrUserNotFound = errors.New("directory: user not found")
	ErrEmailInUse   = errors.New("directory: email already in use")
)

// User is a provider-owned user record.
type User struct {
	UID           string
	Email         string
	DisplayName   string
	Role          string
	EmailVerified bool
	Disabled      bool
	CreatedAt     time.Time
}

// UserSummary is the listing projection of a user record.
type UserSummary struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Provider is the identity-provider capability consumed by the
// authorization layer.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: every method may block on provider I/O and must honor
//     cancellation/deadlines. No internal retry; timeout and backoff are
//     the provider client's responsibility.
//   - Errors: lookup misses return ErrUserNotFound; other failures are
//     provider errors surfaced verbatim for logging, never for callers.
type Provider interface {
	// VerifyToken validates an identity token and returns its claims.
	VerifyToken(ctx context.Context, token string) (*auth.Claims, error)

	// GetUser fetches a user record by uid.
	GetUser(ctx context.Context, uid string) (*User, error)

	// CreateUser provisions a user and returns the new uid.
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)

	// DeleteUser removes a user record.
	DeleteUser(ctx context.Context, uid string) error

	// SetRole sets the custom role claim on a user.
	SetRole(ctx context.Context, uid string, role auth.Role) error

	// ClearRole removes the custom role claim from a user.
	ClearRole(ctx context.Context, uid string) error

	// ListUsersByRole pages through the provider's full user listing and
	// filters by role. O(total users); acceptable only for small user
	// bases. A real deployment at scale should maintain a role index.
	ListUsersByRole(ctx context.Context, role auth.Role) ([]UserSummary, error)
}

// Verifier adapts a Provider to the auth.TokenVerifier interface.
func Verifier(p Provider) auth.TokenVerifier {
	return auth.TokenVerifierFunc(p.VerifyToken)
}

// CreateUserWithRole provisions a user and assigns it a role. When the role
// assignment fails the freshly created user is deleted again so a retry
// does not collide on the email.
func CreateUserWithRole(ctx context.Context, p Provider, email, password, displayName string, role auth.Role) (string, error) {
	if _, err := auth.ParseRole(string(role)); err != nil {
		return "", err
	}

	uid, err := p.CreateUser(ctx, email, password, displayName)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	if err := p.SetRole(ctx, uid, role); err != nil {
		if delErr := p.DeleteUser(ctx, uid); delErr != nil {
			return "", fmt.Errorf("set role: %w (cleanup failed: %v)", err, delErr)
		}
		return "", fmt.Errorf("set role: %w", err)
	}

	return uid, nil
}
