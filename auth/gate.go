package auth

import (
	"context"
	"fmt"
	"strings"
)

const bearerPrefix = "Bearer "

// Gate is the request-scoped guard that requires a verified identity and,
// optionally, membership in an allowed role set. Per request the states are
// unverified, authenticated, authorized; nothing survives past the request.
type Gate struct {
	verifier TokenVerifier
}

// NewGate creates a gate backed by the given verifier.
func NewGate(verifier TokenVerifier) *Gate {
	return &Gate{verifier: verifier}
}

// Authenticate extracts the credential from the authorization header value
// and verifies it. The header may carry a bare token or a "Bearer <token>"
// value; any other scheme is rejected without calling the verifier.
func (g *Gate) Authenticate(ctx context.Context, header string) (*Claims, error) {
	token, err := extractToken(header)
	if err != nil {
		return nil, err
	}

	claims, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return nil, &Error{
			Kind:   KindUnauthorized,
			Detail: fmt.Sprintf("invalid token: %v", err),
			Err:    err,
		}
	}

	return claims, nil
}

// Authorize requires Authenticate to have succeeded and checks the claims'
// role against the allowed set. A missing role and a role outside the set
// are both Forbidden, never Unauthorized.
func (g *Gate) Authorize(claims *Claims, policy Policy) error {
	if claims == nil {
		return Unauthorized("no authenticated identity")
	}

	if claims.Role == "" {
		return Forbidden("user role not found")
	}

	if !policy.Allows(claims.Role) {
		return Forbidden(fmt.Sprintf(
			"access denied, required one of %s, got %s",
			strings.Join(policy.RoleNames(), ", "), claims.Role,
		))
	}

	return nil
}

// extractToken parses the authorization header value.
func extractToken(header string) (string, error) {
	if header == "" {
		return "", Unauthorized("no authorization header")
	}

	if strings.HasPrefix(header, bearerPrefix) || header == strings.TrimSpace(bearerPrefix) {
		token := strings.TrimSpace(strings.TrimPrefix(header, strings.TrimSpace(bearerPrefix)))
		if token == "" {
			return "", Unauthorized("invalid authorization header format")
		}
		return token, nil
	}

	// A bare token carries no scheme. Anything else ("Basic xyz", ...) is
	// not a credential this gate accepts.
	if strings.ContainsRune(header, ' ') {
		return "", Unauthorized("no authorization header")
	}

	return header, nil
}
