package lock

import (
	"github.com/tuxx/shroudlock/internal/auth"
	"github.com/tuxx/shroudlock/internal/input"
	"github.com/tuxx/shroudlock/internal/output"
)

// Event is delivered to the orchestrator loop through Post
type Event interface {
	isEvent()
}

// Locked is sent when the compositor confirms the session is locked
type Locked struct{}

// Finished is sent when the compositor ends the lock on its own, or as the
// acknowledgment of an unlock request.
type Finished struct{}

// UnlockConfirmed is sent once the compositor has processed the unlock request
type UnlockConfirmed struct{}

// OutputAdded announces a new output
type OutputAdded struct {
	Output output.Output
}

// OutputChanged carries refreshed metadata of a known output
type OutputChanged struct {
	Output output.Output
}

// OutputRemoved announces that an output went away
type OutputRemoved struct {
	ID output.ID
}

// Configure carries the size negotiated for an output's lock surface
type Configure struct {
	Output output.ID
	Size   output.Size
	Serial uint32
}

// Key is a resolved key press
type Key struct {
	Event input.KeyEvent
}

// AuthDone carries the result of an authentication attempt
type AuthDone struct {
	Result  auth.Result
	attempt uint64
}

func (Locked) isEvent()          {}
func (Finished) isEvent()        {}
func (UnlockConfirmed) isEvent() {}
func (OutputAdded) isEvent()     {}
func (OutputChanged) isEvent()   {}
func (OutputRemoved) isEvent()   {}
func (Configure) isEvent()       {}
func (Key) isEvent()             {}
func (AuthDone) isEvent()        {}
