// Package hooks runs side effects around a lock session: user commands,
// media players and the logind locked hint.
package hooks

import (
	"io"

	"github.com/tuxx/shroudlock/internal/config"
	"github.com/tuxx/shroudlock/internal/logger"
)

// Hook is notified about lock session transitions. Failures are logged by
// the hook itself and never affect the lock.
type Hook interface {
	BeforeLock()
	Locked()
	Unlocked()
}

// Base implements Hook with no-ops, for embedding
type Base struct{}

func (Base) BeforeLock() {}
func (Base) Locked()     {}
func (Base) Unlocked()   {}

// Multi fans a notification out to several hooks in order
type Multi []Hook

func (m Multi) BeforeLock() {
	for _, h := range m {
		h.BeforeLock()
	}
}

func (m Multi) Locked() {
	for _, h := range m {
		h.Locked()
	}
}

func (m Multi) Unlocked() {
	for _, h := range m {
		h.Unlocked()
	}
}

// Build creates the hooks enabled by cfg. The returned closer releases
// D-Bus connections.
func Build(cfg config.LockSection) (Multi, io.Closer) {
	var (
		hooks   Multi
		closers multiCloser
	)

	if cfg.PreLockCommand != "" || cfg.PostLockCommand != "" {
		hooks = append(hooks, NewCommands(cfg.PreLockCommand, cfg.PostLockCommand))
	}

	if cfg.LockPauseMedia || cfg.UnlockUnpauseMedia {
		mc, err := NewMediaController()
		if err != nil {
			logger.Error("Failed to initialize media controller: %v", err)
		} else {
			hooks = append(hooks, &MediaHook{Controller: mc, Pause: cfg.LockPauseMedia, Resume: cfg.UnlockUnpauseMedia})
			closers = append(closers, mc)
		}
	} else {
		logger.Debug("Media control is disabled")
	}

	if cfg.LogindHint {
		hint, err := NewLogindHint()
		if err != nil {
			logger.Warn("logind locked hint unavailable: %v", err)
		} else {
			hooks = append(hooks, hint)
			closers = append(closers, hint)
		}
	}

	return hooks, closers
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
