package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/tuxx/shroudlock/internal/logger"
)

const maxCooldown = 10 * time.Minute

// Cooldown rejects attempts for a while after repeated failures. A nil
// *Cooldown never throttles.
type Cooldown struct {
	mu          sync.Mutex
	threshold   int           // Consecutive failures before a cooldown starts
	base        time.Duration // Length of the first cooldown
	consecutive int           // Failures since the last cooldown or success
	rounds      int           // Cooldowns started since the last success
	until       time.Time     // End of the active cooldown
	now         func() time.Time
}

// NewCooldown returns nil when threshold is not positive
func NewCooldown(threshold int, base time.Duration) *Cooldown {
	if threshold <= 0 || base <= 0 {
		return nil
	}
	return &Cooldown{
		threshold: threshold,
		base:      base,
		now:       time.Now,
	}
}

// Remaining returns how long submissions are still rejected
func (c *Cooldown) Remaining() time.Duration {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.until.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordFailure counts a failed attempt and starts a cooldown once the
// threshold is reached. Every further cooldown lasts one base period longer,
// capped at ten minutes.
func (c *Cooldown) RecordFailure() (started bool, length time.Duration) {
	if c == nil {
		return false, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutive++
	if c.consecutive < c.threshold {
		return false, 0
	}

	c.consecutive = 0
	c.rounds++
	length = c.base * time.Duration(c.rounds)
	if length > maxCooldown {
		length = maxCooldown
	}
	c.until = c.now().Add(length)
	logger.Info("Failed %d attempts in a row, rejecting input for %v", c.threshold, length)
	return true, length
}

// Reset forgets past failures, e.g. after a successful attempt
func (c *Cooldown) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutive = 0
	c.rounds = 0
	c.until = time.Time{}
}

// FormatRemaining renders a duration as mm:ss
func FormatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
