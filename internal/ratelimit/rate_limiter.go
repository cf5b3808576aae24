// rate_limiter.go - Token bucket shared by every outbound model request

package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// pollInterval is how often a blocked Wait re-checks the bucket.
const pollInterval = 100 * time.Millisecond

// ErrInvalidConfig is returned by New for a non-positive size or refill interval.
var ErrInvalidConfig = errors.New("rate limiter needs positive tokens and refill interval")

// RateLimiter implements a simple token bucket rate limiter.
// The free tier of gemini-1.5-flash allows 15 RPM; the defaults (12 tokens, one per 5s)
// leave about 20% headroom for latency and bursts.
type RateLimiter struct {
	tokens         int
	maxTokens      int
	refillRate     time.Duration
	lastRefillTime time.Time
	now            func() time.Time
	mu             sync.Mutex
}

// New creates a rate limiter.
// maxTokens: bucket size, also the burst allowance
// refillRate: time between token refills
func New(maxTokens int, refillRate time.Duration) (*RateLimiter, error) {
	if maxTokens <= 0 || refillRate <= 0 {
		return nil, ErrInvalidConfig
	}
	return newWithClock(maxTokens, refillRate, time.Now), nil
}

func newWithClock(maxTokens int, refillRate time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillRate:     refillRate,
		lastRefillTime: now(),
		now:            now,
	}
}

// refill adds the tokens earned since the last refill. Caller holds mu.
func (rl *RateLimiter) refill() {
	now := rl.now()
	tokensToAdd := int(now.Sub(rl.lastRefillTime) / rl.refillRate)
	if tokensToAdd > 0 {
		rl.tokens += tokensToAdd
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		// Keep the fractional remainder so slow polling does not lose credit.
		rl.lastRefillTime = rl.lastRefillTime.Add(time.Duration(tokensToAdd) * rl.refillRate)
	}
}

// TryAcquire consumes a token if one is available.
func (rl *RateLimiter) TryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens <= 0 {
		return false
	}
	rl.tokens--
	return true
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.TryAcquire() {
			return nil
		}

		timer := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available reports the tokens currently in the bucket.
func (rl *RateLimiter) Available() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return rl.tokens
}
