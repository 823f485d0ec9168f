package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("Get(missing) = hit, want miss")
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("Get() = miss, want hit")
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want v", got)
	}
}

func TestMemory_Expiry(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get() = hit after expiry, want miss")
	}
}

func TestMemory_ZeroTTLNotStored(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get() = hit for zero-TTL value, want miss")
	}
}

func TestMemory_Delete(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get() = hit after delete, want miss")
	}

	// Idempotent on miss.
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}
