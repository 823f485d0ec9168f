package directory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinsys/authgate/auth"
)

// listPageSize mirrors the provider SDK's listing page size.
const listPageSize = 1000

// Memory is an in-memory Provider for tests and local development against
// the provider emulator. Tokens are opaque values issued by IssueToken and
// resolved back to the owning user at verification time.
type Memory struct {
	mu     sync.RWMutex
	users  map[string]*User
	order  []string
	tokens map[string]string // token -> uid
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]*User),
		tokens: make(map[string]string),
	}
}

// IssueToken mints an opaque identity token for an existing user.
func (m *Memory) IssueToken(uid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[uid]; !ok {
		return "", ErrUserNotFound
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	m.tokens[token] = uid
	return token, nil
}

// RevokeToken drops a previously issued token. Idempotent.
func (m *Memory) RevokeToken(token string) {
	m.mu.Lock()
	delete(m.tokens, token)
	m.mu.Unlock()
}

// VerifyToken resolves an opaque token to the owning user's claims.
func (m *Memory) VerifyToken(_ context.Context, token string) (*auth.Claims, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uid, ok := m.tokens[token]
	if !ok {
		return nil, errors.New("token is not recognized")
	}
	user, ok := m.users[uid]
	if !ok {
		return nil, errors.New("token subject no longer exists")
	}

	return &auth.Claims{
		UID:           user.UID,
		Role:          user.Role,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Name:          user.DisplayName,
	}, nil
}

// GetUser fetches a user record by uid.
func (m *Memory) GetUser(_ context.Context, uid string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

// CreateUser provisions a user and returns the new uid.
func (m *Memory) CreateUser(_ context.Context, email, password, displayName string) (string, error) {
	if email == "" {
		return "", errors.New("directory: email is required")
	}
	if password == "" {
		return "", errors.New("directory: password is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return "", ErrEmailInUse
		}
	}

	uid := uuid.New().String()
	m.users[uid] = &User{
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
	m.order = append(m.order, uid)
	return uid, nil
}

// DeleteUser removes a user record and any tokens issued for it.
func (m *Memory) DeleteUser(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[uid]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, uid)
	for i, id := range m.order {
		if id == uid {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for token, owner := range m.tokens {
		if owner == uid {
			delete(m.tokens, token)
		}
	}
	return nil
}

// SetRole sets the custom role claim on a user.
func (m *Memory) SetRole(_ context.Context, uid string, role auth.Role) error {
	if _, err := auth.ParseRole(string(role)); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[uid]
	if !ok {
		return ErrUserNotFound
	}
	user.Role = string(role)
	return nil
}

// ClearRole removes the custom role claim from a user.
func (m *Memory) ClearRole(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[uid]
	if !ok {
		return ErrUserNotFound
	}
	user.Role = ""
	return nil
}

// ListUsersByRole pages through the full user listing and filters by role.
func (m *Memory) ListUsersByRole(ctx context.Context, role auth.Role) ([]UserSummary, error) {
	if _, err := auth.ParseRole(string(role)); err != nil {
		return nil, err
	}

	var matches []UserSummary
	for offset := 0; ; offset += listPageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := m.listPage(offset, listPageSize)
		if len(page) == 0 {
			break
		}
		for _, user := range page {
			if user.Role != string(role) {
				continue
			}
			matches = append(matches, UserSummary{
				UID:           user.UID,
				Email:         user.Email,
				DisplayName:   user.DisplayName,
				Role:          user.Role,
				EmailVerified: user.EmailVerified,
				CreatedAt:     user.CreatedAt,
			})
		}
		if len(page) < listPageSize {
			break
		}
	}
	return matches, nil
}

// listPage returns a snapshot of one listing page in creation order.
func (m *Memory) listPage(offset, limit int) []User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset >= len(m.order) {
		return nil
	}
	end := offset + limit
	if end > len(m.order) {
		end = len(m.order)
	}

	page := make([]User, 0, end-offset)
	for _, uid := range m.order[offset:end] {
		if user, ok := m.users[uid]; ok {
			page = append(page, *user)
		}
	}
	return page
}

// Ensure Memory implements Provider
var _ Provider = (*Memory)(nil)
