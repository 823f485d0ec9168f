package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clinsys/authgate/auth"
)

func newTestStore(t *testing.T) (*MemoryTokenStore, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryTokenStore()
	store.now = func() time.Time { return now }
	return store, &now
}

func wantKind(t *testing.T, err error, kind auth.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("got nil error, want kind %v", kind)
	}
	if got := auth.AsError(err).Kind; got != kind {
		t.Errorf("Kind = %v, want %v", got, kind)
	}
}

func TestMemoryTokenStore_IssueAndPeek(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	secret, tok, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(secret) != secretBytes*2 {
		t.Errorf("secret length = %d, want %d hex chars", len(secret), secretBytes*2)
	}
	if tok.Digest == secret {
		t.Error("stored digest equals the raw secret")
	}
	if got := tok.ExpiresAt.Sub(tok.CreatedAt); got != DefaultTTL {
		t.Errorf("TTL = %v, want %v", got, DefaultTTL)
	}

	peeked, err := store.Peek(ctx, secret)
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if peeked.Used {
		t.Error("freshly issued token reports used")
	}
	if !peeked.ExpiresAt.Equal(tok.ExpiresAt) {
		t.Errorf("Peek ExpiresAt = %v, want %v", peeked.ExpiresAt, tok.ExpiresAt)
	}
}

func TestMemoryTokenStore_PeekClassification(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Peek(ctx, "never-issued"); err == nil {
		t.Fatal("Peek(unknown) = nil error")
	} else {
		wantKind(t, err, auth.KindNotFound)
	}

	secret, _, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	*now = now.Add(DefaultTTL + time.Second)
	_, err = store.Peek(ctx, secret)
	wantKind(t, err, auth.KindExpired)
}

func TestMemoryTokenStore_Consume(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	secret, _, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	uid, err := store.Consume(ctx, secret, func(context.Context) (string, error) {
		return "admin-1", nil
	})
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if uid != "admin-1" {
		t.Errorf("uid = %q, want admin-1", uid)
	}

	// The winner's record keeps the provisioned uid.
	store.mu.Lock()
	rec := store.tokens[Digest(secret)]
	store.mu.Unlock()
	if rec.ProvisionedUID != "admin-1" {
		t.Errorf("ProvisionedUID = %q, want admin-1", rec.ProvisionedUID)
	}

	_, err = store.Consume(ctx, secret, func(context.Context) (string, error) {
		t.Error("provision ran for an already used token")
		return "", nil
	})
	wantKind(t, err, auth.KindAlreadyUsed)

	_, err = store.Peek(ctx, secret)
	wantKind(t, err, auth.KindAlreadyUsed)
}

func TestMemoryTokenStore_UsedBeatsExpired(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	secret, _, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := store.Consume(ctx, secret, func(context.Context) (string, error) {
		return "admin-1", nil
	}); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	*now = now.Add(DefaultTTL + time.Hour)

	// A token that is both used and expired reports the more specific state.
	_, err = store.Peek(ctx, secret)
	wantKind(t, err, auth.KindAlreadyUsed)
}

func TestMemoryTokenStore_ProvisionFailureBurnsToken(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	secret, _, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	cause := errors.New("provider unavailable")
	_, err = store.Consume(ctx, secret, func(context.Context) (string, error) {
		return "", cause
	})
	wantKind(t, err, auth.KindProvisionFailed)
	if !errors.Is(err, cause) {
		t.Error("consume error does not wrap the provision cause")
	}

	// The token stays burned; a retry must request a fresh one.
	_, err = store.Consume(ctx, secret, func(context.Context) (string, error) {
		return "admin-1", nil
	})
	wantKind(t, err, auth.KindAlreadyUsed)
}

func TestMemoryTokenStore_ConcurrentConsume(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	secret, _, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	var provisions int

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := store.Consume(ctx, secret, func(context.Context) (string, error) {
				mu.Lock()
				provisions++
				mu.Unlock()
				return "admin-1", nil
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if auth.AsError(err).Kind != auth.KindAlreadyUsed {
				t.Errorf("loser error kind = %v, want %v", auth.AsError(err).Kind, auth.KindAlreadyUsed)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Errorf("successful consumes = %d, want 1", successes)
	}
	if provisions != 1 {
		t.Errorf("provision calls = %d, want 1", provisions)
	}
}

func TestMemoryTokenStore_SweepAndCount(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.Issue(ctx); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	*now = now.Add(DefaultTTL + time.Minute)
	fresh, _, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	count, err := store.CountValid(ctx, *now)
	if err != nil {
		t.Fatalf("CountValid() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountValid() = %d, want 1", count)
	}

	swept, err := store.Sweep(ctx, *now)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if swept != 1 {
		t.Errorf("Sweep() = %d, want 1", swept)
	}

	// Idempotent: nothing left to remove.
	swept, err = store.Sweep(ctx, *now)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if swept != 0 {
		t.Errorf("second Sweep() = %d, want 0", swept)
	}

	if _, err := store.Peek(ctx, fresh); err != nil {
		t.Errorf("Peek(fresh) error = %v, sweep removed a live token", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	count, err = store.CountValid(ctx, *now)
	if err != nil {
		t.Fatalf("CountValid() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountValid() after Clear = %d, want 0", count)
	}
}

func TestDigest(t *testing.T) {
	if Digest("a") == Digest("b") {
		t.Error("distinct secrets share a digest")
	}
	if len(Digest("a")) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(Digest("a")))
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !ConstantTimeCompare("secret", "secret") {
		t.Error("equal values compare unequal")
	}
	if ConstantTimeCompare("secret", "Secret") {
		t.Error("unequal values compare equal")
	}
	if ConstantTimeCompare("secret", "secret2") {
		t.Error("different lengths compare equal")
	}
}
