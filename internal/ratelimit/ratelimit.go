// Package ratelimit provides a wrapper around golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
)

// Limiter is a token bucket shared by every caller of one upstream API.
type Limiter struct {
	name    string
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerMinute requests per minute.
// A non-positive rate disables limiting.
func New(name string, requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{name: name, limiter: rate.NewLimiter(rate.Inf, 0)}
	}

	// Convert requests per minute to rate per second
	rps := float64(requestsPerMinute) / 60.0
	burst := requestsPerMinute / 10 // Allow burst of 10% of rate limit
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wait blocks until a token is available. It fails with RATE_LIMIT_EXCEEDED
// when ctx ends first or its deadline cannot accommodate the wait.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext(l.name))
	}
	return nil
}

// Allow reports whether a request may happen now, consuming a token if so.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Tokens returns the current number of available tokens.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}
