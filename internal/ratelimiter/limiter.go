package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket placed in front of outbound publishes.
// It only ever delays a caller; nothing is dropped.
type Limiter struct {
	l *rate.Limiter
}

// New creates a Limiter allowing perSec events per second with the given
// burst. perSec <= 0 disables limiting.
func New(perSec float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	r := rate.Limit(perSec)
	if perSec <= 0 {
		r = rate.Inf
	}
	return &Limiter{l: rate.NewLimiter(r, burst)}
}

// Wait blocks until a token is available. Returns a non-nil error only if
// ctx is cancelled while waiting. A nil Limiter never waits.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.l.Wait(ctx)
}
