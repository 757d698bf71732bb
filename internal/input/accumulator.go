// Package input turns resolved key events into edits on the secret buffer.
package input

import "unicode"

// Keysyms the accumulator reacts to (xkbcommon-keysyms.h)
const (
	KeyBackSpace uint32 = 0xff08
	KeyReturn    uint32 = 0xff0d
	KeyEscape    uint32 = 0xff1b
	KeyKPEnter   uint32 = 0xff8d
)

// KeyEvent is a key press already resolved through the keymap.
// Rune is zero when the keysym has no printable character.
type KeyEvent struct {
	Sym  uint32
	Rune rune
}

// Action tells the caller what a key event did
type Action int

const (
	// ActionIgnore means the buffer was not touched
	ActionIgnore Action = iota
	// ActionContinue means the buffer was edited
	ActionContinue
	// ActionSubmit asks for the buffer to be authenticated
	ActionSubmit
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionSubmit:
		return "submit"
	default:
		return "ignore"
	}
}

// Accumulator edits a SecretBuffer from key events. It never talks to the
// authentication backend; Submit leaves the buffer as it is.
type Accumulator struct {
	buf *SecretBuffer
}

// NewAccumulator creates an accumulator writing into buf
func NewAccumulator(buf *SecretBuffer) *Accumulator {
	return &Accumulator{buf: buf}
}

// OnKey applies one key press
func (a *Accumulator) OnKey(ev KeyEvent) Action {
	switch ev.Sym {
	case KeyReturn, KeyKPEnter:
		return ActionSubmit
	case KeyBackSpace:
		a.buf.RemoveLast()
		return ActionContinue
	}

	if ev.Rune != 0 && unicode.IsPrint(ev.Rune) {
		a.buf.Append(ev.Rune)
		return ActionContinue
	}
	return ActionIgnore
}
