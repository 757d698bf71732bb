package hooks

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/tuxx/shroudlock/internal/config"
)

func TestCommandsRunPreAndPost(t *testing.T) {
	var ran []string
	c := NewCommands("echo pre", "echo post")
	c.run = func(cmd string) error {
		ran = append(ran, cmd)
		return nil
	}

	c.BeforeLock()
	c.Locked()
	c.Unlocked()

	if len(ran) != 2 || ran[0] != "echo pre" || ran[1] != "echo post" {
		t.Fatalf("unexpected commands %v", ran)
	}
}

func TestCommandsSkipEmpty(t *testing.T) {
	c := NewCommands("", "")
	c.run = func(string) error {
		t.Fatalf("empty command executed")
		return nil
	}
	c.BeforeLock()
	c.Unlocked()
}

func TestRunShellCommand(t *testing.T) {
	if err := runShellCommand("true"); err != nil {
		t.Fatalf("true failed: %v", err)
	}
	if err := runShellCommand("echo oops >&2; false"); err == nil {
		t.Fatalf("expected failure from false")
	}
}

type countingHook struct {
	Base
	locked, unlocked int
}

func (h *countingHook) Locked()   { h.locked++ }
func (h *countingHook) Unlocked() { h.unlocked++ }

func TestMultiFansOut(t *testing.T) {
	a, b := &countingHook{}, &countingHook{}
	m := Multi{a, b}
	m.BeforeLock()
	m.Locked()
	m.Unlocked()
	if a.locked != 1 || b.locked != 1 || a.unlocked != 1 || b.unlocked != 1 {
		t.Fatalf("a=%+v b=%+v", a, b)
	}
}

func TestBuildWithoutOptionalHooks(t *testing.T) {
	cfg := config.DefaultConfig().Lock
	cfg.LogindHint = false

	hooks, closer := Build(cfg)
	if len(hooks) != 0 {
		t.Fatalf("expected no hooks, got %d", len(hooks))
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cfg.PostLockCommand = "true"
	hooks, _ = Build(cfg)
	if len(hooks) != 1 {
		t.Fatalf("expected command hook, got %d hooks", len(hooks))
	}
}

type fakeBus struct {
	status  map[string]string
	invoked []string
	closed  bool
}

func (b *fakeBus) Names() ([]string, error) {
	return []string{"org.freedesktop.DBus", ":1.42", "org.mpris.MediaPlayer2.mpv", "org.mpris.MediaPlayer2.spotify", "org.mpris.MediaPlayer2.vlc"}, nil
}

func (b *fakeBus) PlaybackStatus(name string) (string, error) {
	s, ok := b.status[name]
	if !ok {
		return "", errors.New("no such player")
	}
	return s, nil
}

func (b *fakeBus) Invoke(name, method string) error {
	b.invoked = append(b.invoked, name+"."+method)
	switch method {
	case "Pause":
		b.status[name] = "Paused"
	case "Play":
		b.status[name] = "Playing"
	}
	return nil
}

func (b *fakeBus) Close() error { b.closed = true; return nil }

func TestMediaHookResumesOnlyWhatItPaused(t *testing.T) {
	bus := &fakeBus{status: map[string]string{
		"org.mpris.MediaPlayer2.mpv":     "Playing",
		"org.mpris.MediaPlayer2.spotify": "Paused",
		"org.mpris.MediaPlayer2.vlc":     "Stopped",
	}}
	h := &MediaHook{Controller: &MediaController{bus: bus}, Pause: true, Resume: true}

	h.BeforeLock()
	if len(bus.invoked) != 1 || bus.invoked[0] != "org.mpris.MediaPlayer2.mpv.Pause" {
		t.Fatalf("unexpected pause calls %v", bus.invoked)
	}

	h.Unlocked()
	if len(bus.invoked) != 2 || bus.invoked[1] != "org.mpris.MediaPlayer2.mpv.Play" {
		t.Fatalf("unexpected resume calls %v", bus.invoked)
	}
	if bus.status["org.mpris.MediaPlayer2.spotify"] != "Paused" {
		t.Fatalf("resumed a player the lock did not pause")
	}

	if err := h.Controller.Close(); err != nil || !bus.closed {
		t.Fatalf("Close did not close the bus")
	}
}

func TestLogindHintSetsAndClears(t *testing.T) {
	var states []bool
	h := &LogindHint{set: func(locked bool) error {
		states = append(states, locked)
		return nil
	}}
	h.BeforeLock()
	h.Locked()
	h.Unlocked()
	if len(states) != 2 || !states[0] || states[1] {
		t.Fatalf("unexpected hint sequence %v", states)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEnsureSingleInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "shroudlock.lock")

	release, err := EnsureSingleInstance(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := EnsureSingleInstance(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	release()
	again, err := EnsureSingleInstance(path)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}
