package hooks

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/tuxx/shroudlock/internal/logger"
)

const (
	mprisPrefix = "org.mpris.MediaPlayer2."
	mprisPath   = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	mprisPlayer = "org.mpris.MediaPlayer2.Player"
)

// playerBus is the part of the session bus the controller needs
type playerBus interface {
	Names() ([]string, error)
	PlaybackStatus(name string) (string, error)
	Invoke(name, method string) error
	Close() error
}

// MediaController pauses MPRIS players and resumes the ones it paused
type MediaController struct {
	bus    playerBus
	paused []string
}

// NewMediaController connects to the session bus
func NewMediaController() (*MediaController, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &MediaController{bus: &sessionPlayers{conn: conn}}, nil
}

// Close closes the D-Bus connection
func (mc *MediaController) Close() error {
	return mc.bus.Close()
}

func (mc *MediaController) players() ([]string, error) {
	names, err := mc.bus.Names()
	if err != nil {
		return nil, fmt.Errorf("failed to list D-Bus names: %w", err)
	}
	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	return players, nil
}

// PauseAll pauses every playing player and remembers it
func (mc *MediaController) PauseAll() error {
	players, err := mc.players()
	if err != nil {
		return err
	}

	mc.paused = mc.paused[:0]
	for _, name := range players {
		status, err := mc.bus.PlaybackStatus(name)
		if err != nil {
			logger.Debug("Failed to get playback status for %s: %v", name, err)
			continue
		}
		if status != "Playing" {
			logger.Debug("Player %s is not playing (status: %s), skipping pause", name, status)
			continue
		}
		if err := mc.bus.Invoke(name, "Pause"); err != nil {
			logger.Error("Failed to pause %s: %v", name, err)
			continue
		}
		mc.paused = append(mc.paused, name)
	}

	logger.Debug("Paused %d media players", len(mc.paused))
	return nil
}

// ResumePaused resumes the players paused by PauseAll that are still paused
func (mc *MediaController) ResumePaused() error {
	resumed := 0
	for _, name := range mc.paused {
		status, err := mc.bus.PlaybackStatus(name)
		if err != nil || status != "Paused" {
			continue
		}
		if err := mc.bus.Invoke(name, "Play"); err != nil {
			logger.Error("Failed to resume %s: %v", name, err)
			continue
		}
		resumed++
	}
	mc.paused = mc.paused[:0]

	logger.Debug("Resumed %d media players", resumed)
	return nil
}

// MediaHook pauses players before locking and resumes them after unlocking
type MediaHook struct {
	Base
	Controller *MediaController
	Pause      bool
	Resume     bool
}

func (h *MediaHook) BeforeLock() {
	if !h.Pause {
		return
	}
	if err := h.Controller.PauseAll(); err != nil {
		logger.Error("Failed to pause media: %v", err)
	}
}

func (h *MediaHook) Unlocked() {
	if !h.Resume {
		return
	}
	if err := h.Controller.ResumePaused(); err != nil {
		logger.Error("Failed to resume media: %v", err)
	}
}

type sessionPlayers struct {
	conn *dbus.Conn
}

func (s *sessionPlayers) Names() ([]string, error) {
	var names []string
	err := s.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	return names, err
}

func (s *sessionPlayers) PlaybackStatus(name string) (string, error) {
	variant, err := s.conn.Object(name, mprisPath).GetProperty(mprisPlayer + ".PlaybackStatus")
	if err != nil {
		return "", err
	}
	status, ok := variant.Value().(string)
	if !ok {
		return "", fmt.Errorf("PlaybackStatus of %s is not a string", name)
	}
	return status, nil
}

func (s *sessionPlayers) Invoke(name, method string) error {
	return s.conn.Object(name, mprisPath).Call(mprisPlayer+"."+method, 0).Err
}

func (s *sessionPlayers) Close() error {
	return s.conn.Close()
}
