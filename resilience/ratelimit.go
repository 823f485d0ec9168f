// Package resilience provides the rate limiting used to shield the admin
// bootstrap endpoints from brute-force attempts on the setup secret.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimitExceeded is returned when a client has exhausted its bucket.
var ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Rate is the number of operations allowed per second.
	// Default: 1
	Rate float64

	// Burst is the maximum burst size.
	// Default: 5
	Burst int
}

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	config RateLimiterConfig

	mu          sync.Mutex
	tokens      float64
	lastRefresh time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	// Apply defaults
	if config.Rate <= 0 {
		config.Rate = 1
	}
	if config.Burst <= 0 {
		config.Burst = 5
	}

	return &RateLimiter{
		config:      config,
		tokens:      float64(config.Burst),
		lastRefresh: time.Now(),
	}
}

// Allow checks if a request is allowed under the rate limit.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN checks if n requests are allowed.
func (rl *RateLimiter) AllowN(n int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()

	if rl.tokens >= float64(n) {
		rl.tokens -= float64(n)
		return true
	}

	return false
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

func (rl *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefresh)
	rl.lastRefresh = now

	rl.tokens += elapsed.Seconds() * rl.config.Rate

	// Cap at burst size
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}

// KeyedRateLimiter maintains an independent bucket per key, typically a
// client IP. Idle buckets are dropped after idleTTL to bound memory.
type KeyedRateLimiter struct {
	config  RateLimiterConfig
	idleTTL time.Duration

	mu       sync.Mutex
	limiters map[string]*keyedEntry
	lastScan time.Time
}

type keyedEntry struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// NewKeyedRateLimiter creates a per-key rate limiter. Buckets unused for
// idleTTL are removed; zero or negative means 10 minutes.
func NewKeyedRateLimiter(config RateLimiterConfig, idleTTL time.Duration) *KeyedRateLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyedRateLimiter{
		config:   config,
		idleTTL:  idleTTL,
		limiters: make(map[string]*keyedEntry),
		lastScan: time.Now(),
	}
}

// Allow checks whether the key's bucket permits a request.
func (k *KeyedRateLimiter) Allow(key string) bool {
	now := time.Now()

	k.mu.Lock()
	entry, ok := k.limiters[key]
	if !ok {
		entry = &keyedEntry{limiter: NewRateLimiter(k.config)}
		k.limiters[key] = entry
	}
	entry.lastSeen = now

	if now.Sub(k.lastScan) > k.idleTTL {
		k.evictIdleLocked(now)
		k.lastScan = now
	}
	k.mu.Unlock()

	return entry.limiter.Allow()
}

// Len reports the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

func (k *KeyedRateLimiter) evictIdleLocked(now time.Time) {
	for key, entry := range k.limiters {
		if now.Sub(entry.lastSeen) > k.idleTTL {
			delete(k.limiters, key)
		}
	}
}
