package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinsys/authgate/bootstrap"
	"github.com/clinsys/authgate/directory"
)

// TokenStoreChecker verifies the bootstrap token store responds.
type TokenStoreChecker struct {
	store bootstrap.TokenStore
}

// NewTokenStoreChecker creates a checker for the bootstrap token store.
func NewTokenStoreChecker(store bootstrap.TokenStore) *TokenStoreChecker {
	return &TokenStoreChecker{store: store}
}

// Name returns "token_store".
func (c *TokenStoreChecker) Name() string { return "token_store" }

// Check counts valid tokens as a cheap round trip through the store.
func (c *TokenStoreChecker) Check(ctx context.Context) Result {
	count, err := c.store.CountValid(ctx, time.Now())
	if err != nil {
		return Unhealthy("token store unavailable", err)
	}
	return Healthy(fmt.Sprintf("%d valid tokens", count))
}

// DirectoryChecker verifies the identity provider responds. A not-found on
// the probe uid is a healthy outcome; it proves the provider answered.
type DirectoryChecker struct {
	provider directory.Provider
	probeUID string
}

// NewDirectoryChecker creates a checker for the identity provider.
func NewDirectoryChecker(provider directory.Provider) *DirectoryChecker {
	return &DirectoryChecker{provider: provider, probeUID: "health-probe"}
}

// Name returns "directory".
func (c *DirectoryChecker) Name() string { return "directory" }

// Check issues a lookup for a uid that is not expected to exist.
func (c *DirectoryChecker) Check(ctx context.Context) Result {
	_, err := c.provider.GetUser(ctx, c.probeUID)
	if err != nil && !errors.Is(err, directory.ErrUserNotFound) {
		return Unhealthy("identity provider unavailable", err)
	}
	return Healthy("identity provider reachable")
}

var (
	_ Checker = (*TokenStoreChecker)(nil)
	_ Checker = (*DirectoryChecker)(nil)
)
