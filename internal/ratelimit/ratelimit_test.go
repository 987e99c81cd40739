package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
)

func TestLimiter_BurstThenThrottle(t *testing.T) {
	l := New("router", 60) // 1/s, burst 6

	for i := 0; i < 6; i++ {
		if !l.Allow() {
			t.Fatalf("request %d should fit in the burst", i)
		}
	}
	if l.Allow() {
		t.Error("request beyond burst should be throttled")
	}
}

func TestLimiter_WaitHonoursDeadline(t *testing.T) {
	l := New("router", 1) // one per minute, burst 1
	_ = l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if !apperror.IsCode(err, apperror.CodeRateLimitExceeded) {
		t.Fatalf("Wait() error = %v, want RATE_LIMIT_EXCEEDED", err)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := New("router", 0)
	for i := 0; i < 1000; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
}
