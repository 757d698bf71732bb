package lock

// State of a lock session. Transitions only move forward:
// Idle -> Locking -> Locked -> Unlocking -> Finished, with Finished
// reachable from every state.
type State int

const (
	StateIdle State = iota
	StateLocking
	StateLocked
	StateUnlocking
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocking:
		return "locking"
	case StateLocked:
		return "locked"
	case StateUnlocking:
		return "unlocking"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}
