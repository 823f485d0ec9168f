package auth

import "context"

// Context keys for auth-related values.
type contextKey int

const claimsKey contextKey = iota

// WithClaims returns a new context with the given claims attached.
// The attachment is request-scoped and must not be mutated once set.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext retrieves the claims from the context.
// Returns nil if no claims are present.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// UIDFromContext retrieves the authenticated subject identifier.
// Returns empty string if no claims are present.
func UIDFromContext(ctx context.Context) string {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return ""
	}
	return claims.UID
}

// RoleFromContext retrieves the authenticated subject's role.
// Returns empty string if no claims are present or no role is set.
func RoleFromContext(ctx context.Context) string {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return ""
	}
	return claims.Role
}
