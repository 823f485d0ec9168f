package bootstrap

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// DefaultTTL is the fixed lifetime of a bootstrap token.
const DefaultTTL = 24 * time.Hour

// Token is the stored record of an admin-registration token. The raw
// secret never appears here; records are keyed and matched by digest.
type Token struct {
	// Digest is the SHA-256 hex of the secret, used as the storage key.
	Digest string

	// CreatedAt is when the token was issued.
	CreatedAt time.Time

	// ExpiresAt is CreatedAt plus the store TTL.
	ExpiresAt time.Time

	// Used becomes true exactly once, at consumption.
	Used bool

	// UsedAt is set when the token is consumed.
	UsedAt time.Time

	// ProvisionedUID is the admin account created through this token,
	// set only when provisioning succeeded.
	ProvisionedUID string
}

// Digest computes the one-way storage key for a secret.
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeCompare performs constant-time comparison of two strings.
// Used for the setup secret, which guards a sensitive bootstrap capability.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
