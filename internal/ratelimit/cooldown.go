// Package ratelimit throttles how often one client identity may place a
// pixel.
package ratelimit

import (
	"sync"
	"time"
)

// Cooldown remembers when each identity last had a write admitted. Entries
// are never evicted.
type Cooldown struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func NewCooldown() *Cooldown {
	return &Cooldown{lastSeen: make(map[string]time.Time)}
}

// Allow reports whether identity may write at now given the minimum
// interval cooldown, and records now when it may. An identity whose stored
// time lies in the future is admitted so a clock step cannot lock it out.
func (c *Cooldown) Allow(identity string, now time.Time, cooldown time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.lastSeen[identity]
	if ok {
		elapsed := now.Sub(last)
		if elapsed >= 0 && elapsed < cooldown {
			return false
		}
	}
	c.lastSeen[identity] = now
	return true
}

// Remaining returns how long identity must still wait, or zero.
func (c *Cooldown) Remaining(identity string, now time.Time, cooldown time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.lastSeen[identity]
	if !ok {
		return 0
	}
	elapsed := now.Sub(last)
	if elapsed < 0 || elapsed >= cooldown {
		return 0
	}
	return cooldown - elapsed
}

// Len returns the number of identities tracked.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lastSeen)
}
