// Package auth validates submitted secrets and keeps the retry policy.
package auth

import (
	"fmt"
	"os"
	"os/user"
	"sync"

	"github.com/tuxx/shroudlock/internal/input"
	"github.com/tuxx/shroudlock/internal/logger"
)

// Backend checks a secret for a user against a service
type Backend interface {
	Authenticate(service, user, secret string) error
}

// Outcome of an attempt
type Outcome int

const (
	Failed Outcome = iota
	Unlocked
)

func (o Outcome) String() string {
	if o == Unlocked {
		return "unlocked"
	}
	return "failed"
}

// Result is returned by Gate.Attempt
type Result struct {
	Outcome Outcome
	Reason  string

	// Set when the attempt was rejected because a cooldown is running
	Throttled bool
}

// Gate owns the secret buffer and the retry counter of one lock session
type Gate struct {
	backend  Backend
	service  string
	user     string
	buf      *input.SecretBuffer
	cooldown *Cooldown

	mu      sync.Mutex
	retries int
}

// NewGate creates a gate. cooldown may be nil.
func NewGate(backend Backend, service, username string, cooldown *Cooldown) *Gate {
	return &Gate{
		backend:  backend,
		service:  service,
		user:     username,
		buf:      input.NewSecretBuffer(),
		cooldown: cooldown,
	}
}

// Buffer returns the secret buffer the input accumulator writes into
func (g *Gate) Buffer() *input.SecretBuffer {
	return g.buf
}

// Retries returns the number of failed attempts so far
func (g *Gate) Retries() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.retries
}

// CooldownLeft returns the remaining cooldown as mm:ss, or "" when attempts
// are allowed
func (g *Gate) CooldownLeft() string {
	if remaining := g.cooldown.Remaining(); remaining > 0 {
		return FormatRemaining(remaining)
	}
	return ""
}

// Attempt authenticates secret. The secret buffer is cleared on every
// outcome; a failure increments the retry counter by one.
func (g *Gate) Attempt(secret string) Result {
	defer g.buf.Clear()

	if remaining := g.cooldown.Remaining(); remaining > 0 {
		logger.Debug("Attempt rejected, cooldown active for %s", FormatRemaining(remaining))
		return Result{
			Outcome:   Failed,
			Reason:    fmt.Sprintf("too many failed attempts, try again in %s", FormatRemaining(remaining)),
			Throttled: true,
		}
	}

	logger.Debug("Authenticating %s via %s (secret length %d)", g.user, g.service, len(secret))
	if err := g.backend.Authenticate(g.service, g.user, secret); err != nil {
		g.mu.Lock()
		g.retries++
		retries := g.retries
		g.mu.Unlock()

		g.cooldown.RecordFailure()
		logger.Info("Authentication failed (attempt %d): %v", retries, err)
		return Result{Outcome: Failed, Reason: err.Error()}
	}

	g.cooldown.Reset()
	logger.Info("Authentication successful")
	return Result{Outcome: Unlocked}
}

// CurrentUser returns the name of the invoking user
func CurrentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "nobody"
}
