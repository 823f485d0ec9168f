package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/clinsys/authgate/auth"
)

// secretBytes is the entropy of a generated secret (256 bits).
const secretBytes = 32

// ProvisionFunc creates the admin account once a token is consumed. It
// returns the new account's uid.
type ProvisionFunc func(ctx context.Context) (string, error)

// TokenStore manages creation, validation, and single-use consumption of
// admin-registration tokens.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use. At most
//     one Consume per digest may succeed; all concurrent losers observe
//     "already used" or "expired", never silently overwritten state.
//   - Errors: Peek and Consume classify failures as *auth.Error with kinds
//     not_found, already_used, expired (checked in that order, so a token
//     that is both used and expired reports already_used), and Consume adds
//     provision_failed.
//   - Backing: the interface is a keyed store with TTL semantics; memory,
//     cache, or database backings must all preserve the invariants above.
type TokenStore interface {
	// Issue generates a fresh secret, stores its record, and returns the
	// secret with the stored metadata. The secret is never stored.
	Issue(ctx context.Context) (secret string, tok Token, err error)

	// Peek classifies the token state without mutating it.
	Peek(ctx context.Context, secret string) (Token, error)

	// Consume re-validates like Peek, atomically marks the record used,
	// then invokes provision. The token stays burned even when provision
	// fails; the caller must request a fresh token.
	Consume(ctx context.Context, secret string, provision ProvisionFunc) (uid string, err error)

	// Sweep removes all records expired at now and reports how many.
	// Idempotent; removing an already-removed record is a no-op.
	Sweep(ctx context.Context, now time.Time) (int, error)

	// CountValid reports the number of unused, unexpired records at now.
	CountValid(ctx context.Context, now time.Time) (int, error)

	// Clear drops all records unconditionally. Environment gating is the
	// caller's concern; the store has no notion of dev or production.
	Clear(ctx context.Context) error
}

// MemoryTokenStore is the in-memory TokenStore. The consumption invariant
// is enforced by marking the record used under the store mutex before the
// provision call runs, so a concurrent consumer of the same digest can
// never pass validation once a winner has been chosen.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*Token
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryTokenStore creates an empty store with the default 24h TTL.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		tokens: make(map[string]*Token),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
}

// Issue generates a cryptographically random secret and stores its record.
func (s *MemoryTokenStore) Issue(_ context.Context) (string, Token, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", Token{}, fmt.Errorf("bootstrap: generate secret: %w", err)
	}
	secret := hex.EncodeToString(b)

	now := s.now()
	tok := Token{
		Digest:    Digest(secret),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.tokens[tok.Digest] = &tok
	s.mu.Unlock()

	return secret, tok, nil
}

// Peek classifies the token state without mutating it.
func (s *MemoryTokenStore) Peek(_ context.Context, secret string) (Token, error) {
	digest := Digest(secret)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.validateLocked(digest, now)
	if err != nil {
		return Token{}, err
	}
	return *rec, nil
}

// Consume atomically transitions the record to used before provisioning.
func (s *MemoryTokenStore) Consume(ctx context.Context, secret string, provision ProvisionFunc) (string, error) {
	digest := Digest(secret)
	now := s.now()

	s.mu.Lock()
	rec, err := s.validateLocked(digest, now)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	rec.Used = true
	rec.UsedAt = now
	s.mu.Unlock()

	uid, err := provision(ctx)
	if err != nil {
		// Burn-on-attempt: the token stays consumed so a leaked secret
		// cannot be replayed against a flaky provider.
		return "", &auth.Error{
			Kind:   auth.KindProvisionFailed,
			Detail: "failed to create admin user; the token is consumed, request a new one",
			Err:    err,
		}
	}

	s.mu.Lock()
	if rec, ok := s.tokens[digest]; ok {
		rec.ProvisionedUID = uid
	}
	s.mu.Unlock()

	return uid, nil
}

// validateLocked looks up and classifies a record. Check order is
// not-found, used, expired: a used-but-now-expired token must report the
// more specific "already used".
func (s *MemoryTokenStore) validateLocked(digest string, now time.Time) (*Token, error) {
	rec, ok := s.tokens[digest]
	if !ok {
		return nil, &auth.Error{Kind: auth.KindNotFound, Detail: "invalid token"}
	}
	if rec.Used {
		return nil, &auth.Error{Kind: auth.KindAlreadyUsed, Detail: "token has already been used"}
	}
	if now.After(rec.ExpiresAt) {
		return nil, &auth.Error{Kind: auth.KindExpired, Detail: "token has expired"}
	}
	return rec, nil
}

// Sweep removes all records expired at now.
func (s *MemoryTokenStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for digest, rec := range s.tokens {
		if now.After(rec.ExpiresAt) {
			delete(s.tokens, digest)
			removed++
		}
	}
	return removed, nil
}

// CountValid reports the number of unused, unexpired records at now.
func (s *MemoryTokenStore) CountValid(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, rec := range s.tokens {
		if !rec.Used && rec.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

// Clear drops all records unconditionally.
func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.tokens = make(map[string]*Token)
	s.mu.Unlock()
	return nil
}

// Ensure MemoryTokenStore implements TokenStore
var _ TokenStore = (*MemoryTokenStore)(nil)
