package hooks

import (
	"errors"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/tuxx/shroudlock/internal/logger"
)

const (
	login1Dest    = "org.freedesktop.login1"
	login1Path    = dbus.ObjectPath("/org/freedesktop/login1")
	login1Manager = "org.freedesktop.login1.Manager"
)

// LogindHint reports the lock state to systemd-logind through the session's
// LockedHint property.
type LogindHint struct {
	Base
	set   func(locked bool) error
	close func() error
}

// NewLogindHint finds the current logind session on the system bus. The
// session is taken from XDG_SESSION_ID, or looked up by process id.
func NewLogindHint() (*LogindHint, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	path, err := findSession(conn, os.Getenv("XDG_SESSION_ID"))
	if err != nil {
		conn.Close()
		return nil, err
	}
	logger.Debug("Using logind session %s", path)

	session := conn.Object(login1Dest, path)
	return &LogindHint{
		set: func(locked bool) error {
			return session.Call("org.freedesktop.login1.Session.SetLockedHint", 0, locked).Err
		},
		close: conn.Close,
	}, nil
}

func findSession(conn *dbus.Conn, sessionID string) (dbus.ObjectPath, error) {
	manager := conn.Object(login1Dest, login1Path)

	if sessionID != "" {
		var sessions [][]interface{}
		if err := manager.Call(login1Manager+".ListSessions", 0).Store(&sessions); err != nil {
			return "", fmt.Errorf("failed to list sessions: %w", err)
		}
		for _, session := range sessions {
			if len(session) < 5 {
				continue
			}
			if id, ok := session[0].(string); ok && id == sessionID {
				if path, ok := session[4].(dbus.ObjectPath); ok {
					return path, nil
				}
			}
		}
	}

	var path dbus.ObjectPath
	if err := manager.Call(login1Manager+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path); err != nil {
		return "", fmt.Errorf("failed to find logind session: %w", err)
	}
	if path == "" {
		return "", errors.New("failed to find logind session")
	}
	return path, nil
}

// Locked sets LockedHint
func (h *LogindHint) Locked() {
	if err := h.set(true); err != nil {
		logger.Warn("Could not set locked hint: %v", err)
	}
}

// Unlocked clears LockedHint
func (h *LogindHint) Unlocked() {
	if err := h.set(false); err != nil {
		logger.Warn("Could not clear locked hint: %v", err)
	}
}

// Close releases the system bus connection
func (h *LogindHint) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}
