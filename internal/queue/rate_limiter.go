package queue

import (
	"sync"
	"time"
)

// Default rate limit: a burst of 5 messages, then 1 message every 3 seconds.
const (
	defaultBurstSize    = 5
	defaultRefillRate   = 1
	defaultRefillPeriod = 3 * time.Second
)

// TokenBucket is a single identity's allowance.
type TokenBucket struct {
	lastRefill   time.Time
	lastUsed     time.Time
	now          func() time.Time
	refillPeriod time.Duration
	capacity     int
	tokens       int
	refillRate   int
	mu           sync.Mutex
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity, refillRate int, refillPeriod time.Duration) *TokenBucket {
	return newTokenBucket(capacity, refillRate, refillPeriod, time.Now)
}

func newTokenBucket(capacity, refillRate int, refillPeriod time.Duration, now func() time.Time) *TokenBucket {
	t := now()
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
		lastRefill:   t,
		lastUsed:     t,
		now:          now,
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	tb.lastUsed = tb.now()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// refill adds tokens for every whole period elapsed. Callers hold mu.
func (tb *TokenBucket) refill() {
	if tb.refillPeriod <= 0 {
		tb.tokens = tb.capacity
		return
	}
	periods := int(tb.now().Sub(tb.lastRefill) / tb.refillPeriod)
	if periods <= 0 {
		return
	}
	tb.tokens = min(tb.tokens+periods*tb.refillRate, tb.capacity)
	tb.lastRefill = tb.lastRefill.Add(time.Duration(periods) * tb.refillPeriod)
}

// RateLimiter keeps one token bucket per identity.
type RateLimiter struct {
	buckets      map[string]*TokenBucket
	now          func() time.Time
	capacity     int
	refillRate   int
	refillPeriod time.Duration
	mu           sync.Mutex
}

// NewRateLimiter creates a per-identity limiter.
func NewRateLimiter(capacity, refillRate int, refillPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:      make(map[string]*TokenBucket),
		now:          time.Now,
		capacity:     capacity,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
	}
}

// DefaultRateLimiter allows a burst of 5, then one message every 3 seconds.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(defaultBurstSize, defaultRefillRate, defaultRefillPeriod)
}

// Allow reports whether identity may send a message now.
func (rl *RateLimiter) Allow(identity string) bool {
	rl.mu.Lock()
	bucket, ok := rl.buckets[identity]
	if !ok {
		bucket = newTokenBucket(rl.capacity, rl.refillRate, rl.refillPeriod, rl.now)
		rl.buckets[identity] = bucket
	}
	rl.mu.Unlock()

	return bucket.Allow()
}

// CleanupStale forgets identities idle for longer than maxAge.
func (rl *RateLimiter) CleanupStale(maxAge time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxAge)
	removed := 0
	for id, bucket := range rl.buckets {
		bucket.mu.Lock()
		stale := bucket.lastUsed.Before(cutoff)
		bucket.mu.Unlock()
		if stale {
			delete(rl.buckets, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identities.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
