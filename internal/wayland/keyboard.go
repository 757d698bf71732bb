package wayland

import (
	"bytes"
	"fmt"

	"github.com/neurlang/wayland/wl"
	"golang.org/x/sys/unix"

	"github.com/tuxx/shroudlock/internal/input"
	"github.com/tuxx/shroudlock/internal/lock"
	"github.com/tuxx/shroudlock/internal/logger"
	"github.com/tuxx/shroudlock/internal/xkb"
)

const (
	keymapFormatXKBv1 = 1
	keyStatePressed   = 1
	modShift          = 1 << 0
)

var _ wl.KeyboardKeyHandler = (*keyboard)(nil)
var _ wl.KeyboardEnterHandler = (*keyboard)(nil)
var _ wl.KeyboardLeaveHandler = (*keyboard)(nil)
var _ wl.KeyboardKeymapHandler = (*keyboard)(nil)
var _ wl.KeyboardModifiersHandler = (*keyboard)(nil)

// keyboard turns wl_keyboard events into resolved key presses. Without a
// usable xkb keymap it falls back to a fixed US layout.
type keyboard struct {
	proxy  *wl.Keyboard
	keymap *xkb.Keymap
	shift  bool
	emit   func(lock.Event)
}

func newKeyboard(proxy *wl.Keyboard, emit func(lock.Event)) *keyboard {
	k := &keyboard{proxy: proxy, emit: emit}
	proxy.AddKeyHandler(k)
	proxy.AddEnterHandler(k)
	proxy.AddLeaveHandler(k)
	proxy.AddKeymapHandler(k)
	proxy.AddModifiersHandler(k)
	return k
}

func (k *keyboard) HandleKeyboardEnter(ev wl.KeyboardEnterEvent) {
	logger.Debug("Keyboard focus entered")
}

func (k *keyboard) HandleKeyboardLeave(ev wl.KeyboardLeaveEvent) {
	logger.Debug("Keyboard focus left")
}

func (k *keyboard) HandleKeyboardKeymap(ev wl.KeyboardKeymapEvent) {
	fd := int(ev.Fd)
	defer unix.Close(fd)

	if ev.Format != keymapFormatXKBv1 {
		logger.Warn("Unsupported keymap format %d, using fallback layout", ev.Format)
		return
	}

	text, err := readKeymap(fd, int(ev.Size))
	if err != nil {
		logger.Warn("Could not read keymap: %v", err)
		return
	}

	keymap, err := xkb.NewKeymap(text)
	if err != nil {
		logger.Warn("Using fallback layout: %v", err)
		return
	}

	k.keymap.Close()
	k.keymap = keymap
	logger.Debug("Loaded %d byte keymap", len(text))
}

func (k *keyboard) HandleKeyboardModifiers(ev wl.KeyboardModifiersEvent) {
	k.shift = ev.ModsDepressed&modShift != 0
	if k.keymap != nil {
		k.keymap.UpdateMask(ev.ModsDepressed, ev.ModsLatched, ev.ModsLocked, ev.Group)
	}
}

func (k *keyboard) HandleKeyboardKey(ev wl.KeyboardKeyEvent) {
	if ev.State != keyStatePressed {
		return
	}

	var sym uint32
	var r rune
	if k.keymap != nil {
		sym, r = k.keymap.Resolve(ev.Key)
	} else {
		sym, r = fallbackResolve(ev.Key, k.shift)
	}
	if sym == 0 {
		return
	}
	k.emit(lock.Key{Event: input.KeyEvent{Sym: sym, Rune: r}})
}

func (k *keyboard) release() {
	k.keymap.Close()
	k.keymap = nil
}

// readKeymap copies the keymap text out of the compositor's file
func readKeymap(fd, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid keymap size %d", size)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap keymap: %w", err)
	}
	defer unix.Munmap(data)

	return bytes.Clone(bytes.TrimRight(data, "\x00")), nil
}

type fallbackKey struct {
	lower, upper rune
}

// US layout by evdev scancode
var fallbackKeys = map[uint32]fallbackKey{
	2: {'1', '!'}, 3: {'2', '@'}, 4: {'3', '#'}, 5: {'4', '$'}, 6: {'5', '%'},
	7: {'6', '^'}, 8: {'7', '&'}, 9: {'8', '*'}, 10: {'9', '('}, 11: {'0', ')'},
	12: {'-', '_'}, 13: {'=', '+'},
	16: {'q', 'Q'}, 17: {'w', 'W'}, 18: {'e', 'E'}, 19: {'r', 'R'}, 20: {'t', 'T'},
	21: {'y', 'Y'}, 22: {'u', 'U'}, 23: {'i', 'I'}, 24: {'o', 'O'}, 25: {'p', 'P'},
	26: {'[', '{'}, 27: {']', '}'},
	30: {'a', 'A'}, 31: {'s', 'S'}, 32: {'d', 'D'}, 33: {'f', 'F'}, 34: {'g', 'G'},
	35: {'h', 'H'}, 36: {'j', 'J'}, 37: {'k', 'K'}, 38: {'l', 'L'},
	39: {';', ':'}, 40: {'\'', '"'}, 41: {'`', '~'}, 43: {'\\', '|'},
	44: {'z', 'Z'}, 45: {'x', 'X'}, 46: {'c', 'C'}, 47: {'v', 'V'}, 48: {'b', 'B'},
	49: {'n', 'N'}, 50: {'m', 'M'},
	51: {',', '<'}, 52: {'.', '>'}, 53: {'/', '?'},
	57: {' ', ' '},
}

// fallbackResolve maps an evdev scancode to a keysym and character
func fallbackResolve(key uint32, shift bool) (sym uint32, r rune) {
	switch key {
	case 1:
		return input.KeyEscape, 0
	case 14:
		return input.KeyBackSpace, 0
	case 28:
		return input.KeyReturn, 0
	case 96:
		return input.KeyKPEnter, 0
	}

	fk, ok := fallbackKeys[key]
	if !ok {
		return 0, 0
	}
	r = fk.lower
	if shift {
		r = fk.upper
	}
	// Latin-1 keysyms equal their code point
	return uint32(r), r
}
