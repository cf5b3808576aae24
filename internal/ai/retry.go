// retry.go - Backoff policy between candidate attempts

package ai

import (
	"context"
	"math"
	"time"
)

// BackoffPolicy defines the wait inserted after a failed attempt before the next candidate.
type BackoffPolicy struct {
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
	NetworkDelay    time.Duration
}

// DefaultBackoff: 1s, 2s, 4s, 4s... for throttling; 500ms for network errors.
var DefaultBackoff = BackoffPolicy{
	InitialDelay:    1 * time.Second,
	MaxDelay:        4 * time.Second,
	BackoffMultiple: 2.0,
	NetworkDelay:    500 * time.Millisecond,
}

// Delay computes the exponential delay after the given 1-based attempt, capped at MaxDelay.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiple := p.BackoffMultiple
	if multiple < 1 {
		multiple = 1
	}
	delay := float64(p.InitialDelay) * math.Pow(multiple, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// For returns how long to wait after an attempt failed with kind.
func (p BackoffPolicy) For(kind FailureKind, attempt int) time.Duration {
	switch kind {
	case FailureRateLimited, FailureServerOverloaded:
		return p.Delay(attempt)
	case FailureNetworkUnreachable:
		return p.NetworkDelay
	default:
		return 0
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
