package domain

import (
	"sync"
	"time"
)

// Cooldown is a per-direction timer armed after every dispatch.
type Cooldown struct {
	period time.Duration

	mu    sync.Mutex
	until map[Direction]time.Time
}

// NewCooldown creates a cooldown with the given period for every direction.
func NewCooldown(period time.Duration) *Cooldown {
	return &Cooldown{
		period: period,
		until:  make(map[Direction]time.Time),
	}
}

// Arm starts d's cooldown at now.
func (c *Cooldown) Arm(d Direction, now time.Time) {
	c.mu.Lock()
	c.until[d] = now.Add(c.period)
	c.mu.Unlock()
}

// Ready reports whether d's cooldown has expired at now.
func (c *Cooldown) Ready(d Direction, now time.Time) bool {
	return c.Remaining(d, now) == 0
}

// Remaining returns how long d stays cooling down; zero when ready.
func (c *Cooldown) Remaining(d Direction, now time.Time) time.Duration {
	c.mu.Lock()
	until := c.until[d]
	c.mu.Unlock()

	if !now.Before(until) {
		return 0
	}
	return until.Sub(now)
}
