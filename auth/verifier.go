package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates an identity token and returns its claims.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: Verify should honor cancellation/deadlines; it may perform
//     one blocking call to the identity provider with no internal retry.
//   - Errors: a malformed, expired, or forged token yields an error whose
//     message is a provider-supplied reason. Callers must not interpret
//     that reason beyond logging or forwarding it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// TokenVerifierFunc is an adapter to allow use of ordinary functions as
// token verifiers.
type TokenVerifierFunc func(ctx context.Context, token string) (*Claims, error)

// Verify calls the function.
func (f TokenVerifierFunc) Verify(ctx context.Context, token string) (*Claims, error) {
	return f(ctx, token)
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a static signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// JWTVerifierConfig configures the JWT token verifier.
type JWTVerifierConfig struct {
	// Issuer is the expected token issuer (iss claim). Empty skips the check.
	Issuer string

	// Audience is the expected token audience (aud claim). Empty skips the check.
	Audience string

	// SubjectClaim is the claim carrying the subject identifier.
	// Default: "sub"
	SubjectClaim string

	// RoleClaim is the claim carrying the custom role.
	// Default: "role"
	RoleClaim string
}

// JWTVerifier validates provider-issued JWTs and maps them to Claims.
type JWTVerifier struct {
	config      JWTVerifierConfig
	keyProvider KeyProvider
}

// NewJWTVerifier creates a JWT verifier.
func NewJWTVerifier(config JWTVerifierConfig, keyProvider KeyProvider) *JWTVerifier {
	if config.SubjectClaim == "" {
		config.SubjectClaim = "sub"
	}
	if config.RoleClaim == "" {
		config.RoleClaim = "role"
	}
	return &JWTVerifier{config: config, keyProvider: keyProvider}
}

// Verify parses and validates the token, returning typed claims.
func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		kid := ""
		if kidVal, ok := token.Header["kid"].(string); ok {
			kid = kidVal
		}
		return v.keyProvider.GetKey(ctx, kid)
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenMalformed
	}

	return v.buildClaims(mapClaims), nil
}

func (v *JWTVerifier) buildClaims(mapClaims jwt.MapClaims) *Claims {
	claims := &Claims{Raw: make(map[string]any, len(mapClaims))}
	for k, val := range mapClaims {
		claims.Raw[k] = val
	}

	if sub, ok := mapClaims[v.config.SubjectClaim].(string); ok {
		claims.UID = sub
	}
	if role, ok := mapClaims[v.config.RoleClaim].(string); ok {
		claims.Role = role
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if verified, ok := mapClaims["email_verified"].(bool); ok {
		claims.EmailVerified = verified
	}
	if name, ok := mapClaims["name"].(string); ok {
		claims.Name = name
	}
	if picture, ok := mapClaims["picture"].(string); ok {
		claims.Picture = picture
	}
	if authTime, ok := mapClaims["auth_time"].(float64); ok {
		claims.AuthTime = time.Unix(int64(authTime), 0)
	}

	return claims
}

// Ensure JWTVerifier implements TokenVerifier
var _ TokenVerifier = (*JWTVerifier)(nil)

// Ensure StaticKeyProvider implements KeyProvider
var _ KeyProvider = (*StaticKeyProvider)(nil)
