// Package ratelimit provides a token-bucket rate limiter for pacing
// requests against Microsoft Graph and SharePoint REST endpoints, which
// throttle aggressively when hit with unpaced enumeration traffic.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate with a disabled state.
// A zero or negative rps disables limiting entirely (all operations pass
// through immediately).
type Limiter struct {
	limiter *rate.Limiter
	rps     float64
}

// New creates a Limiter allowing rps requests per second.
// Burst is fixed at 1 so requests are spread evenly rather than clumped.
// Zero or negative rps returns a disabled limiter.
func New(rps float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		rps:     rps,
	}
}

// Enabled reports whether rate limiting is active.
func (l *Limiter) Enabled() bool {
	return l.limiter != nil
}

// RPS returns the configured requests-per-second rate (0 when disabled).
func (l *Limiter) RPS() float64 {
	return l.rps
}

// Wait blocks until a token is available or the context is cancelled.
// Returns immediately when the limiter is disabled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed right now without waiting.
// Always true when the limiter is disabled.
func (l *Limiter) Allow() bool {
	if l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

// Reserve reserves a token and returns the reservation, whose Delay()
// indicates how long the caller should wait. Returns nil when the limiter
// is disabled (unlimited rate).
func (l *Limiter) Reserve() *rate.Reservation {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Reserve()
}

// String describes the limiter configuration for logging.
func (l *Limiter) String() string {
	if l.limiter == nil {
		return "rate limiting disabled"
	}
	if l.rps < 1 {
		return fmt.Sprintf("1 request per %.1fs", 1/l.rps)
	}
	return fmt.Sprintf("%.2f rps", l.rps)
}
