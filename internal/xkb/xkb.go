// Package xkb resolves evdev key codes to keysyms through libxkbcommon,
// loaded at runtime with purego.
package xkb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

// XKB constants
const (
	KeymapFormatTextV1 = 1
	ContextNoFlags     = 0
	KeymapCompileFlags = 0

	// wl_keyboard reports evdev codes; xkb key codes are offset by 8
	evdevOffset = 8
)

// ErrUnavailable is returned when libxkbcommon cannot be loaded
var ErrUnavailable = errors.New("libxkbcommon is not available")

var (
	loadOnce sync.Once
	loadErr  error

	xkbContextNew          func(uint32) uintptr
	xkbKeymapNewFromString func(uintptr, []byte, uint32, uint32) uintptr
	xkbStateNew            func(uintptr) uintptr
	xkbStateKeyGetOneSym   func(uintptr, uint32) uint32
	xkbStateUpdateMask     func(uintptr, uint32, uint32, uint32, uint32, uint32, uint32) uint32
	xkbKeysymToUtf32       func(uint32) uint32
	xkbKeymapUnref         func(uintptr)
	xkbStateUnref          func(uintptr)
	xkbContextUnref        func(uintptr)
)

// Load opens libxkbcommon. It is safe to call repeatedly.
func Load() error {
	loadOnce.Do(func() {
		lib, err := purego.Dlopen("libxkbcommon.so.0", purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lib, err = purego.Dlopen("libxkbcommon.so", purego.RTLD_NOW|purego.RTLD_GLOBAL)
		}
		if err != nil {
			loadErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			return
		}

		purego.RegisterLibFunc(&xkbContextNew, lib, "xkb_context_new")
		purego.RegisterLibFunc(&xkbKeymapNewFromString, lib, "xkb_keymap_new_from_string")
		purego.RegisterLibFunc(&xkbStateNew, lib, "xkb_state_new")
		purego.RegisterLibFunc(&xkbStateKeyGetOneSym, lib, "xkb_state_key_get_one_sym")
		purego.RegisterLibFunc(&xkbStateUpdateMask, lib, "xkb_state_update_mask")
		purego.RegisterLibFunc(&xkbKeysymToUtf32, lib, "xkb_keysym_to_utf32")
		purego.RegisterLibFunc(&xkbKeymapUnref, lib, "xkb_keymap_unref")
		purego.RegisterLibFunc(&xkbStateUnref, lib, "xkb_state_unref")
		purego.RegisterLibFunc(&xkbContextUnref, lib, "xkb_context_unref")
	})
	return loadErr
}

// Keymap is a compiled keymap plus its modifier state
type Keymap struct {
	context uintptr
	keymap  uintptr
	state   uintptr
}

// NewKeymap compiles a text v1 keymap as sent by the compositor
func NewKeymap(text []byte) (*Keymap, error) {
	if err := Load(); err != nil {
		return nil, err
	}

	// xkbcommon expects a NUL terminated string
	if len(text) == 0 || text[len(text)-1] != 0 {
		text = append(text[:len(text):len(text)], 0)
	}

	ctx := xkbContextNew(ContextNoFlags)
	if ctx == 0 {
		return nil, errors.New("failed to create xkb context")
	}
	keymap := xkbKeymapNewFromString(ctx, text, KeymapFormatTextV1, KeymapCompileFlags)
	if keymap == 0 {
		xkbContextUnref(ctx)
		return nil, errors.New("failed to compile keymap")
	}
	state := xkbStateNew(keymap)
	if state == 0 {
		xkbKeymapUnref(keymap)
		xkbContextUnref(ctx)
		return nil, errors.New("failed to create xkb state")
	}

	return &Keymap{context: ctx, keymap: keymap, state: state}, nil
}

// Resolve returns the keysym of an evdev key and its character, 0 if none
func (k *Keymap) Resolve(key uint32) (sym uint32, r rune) {
	sym = xkbStateKeyGetOneSym(k.state, key+evdevOffset)
	return sym, rune(xkbKeysymToUtf32(sym))
}

// UpdateMask applies a wl_keyboard modifiers event
func (k *Keymap) UpdateMask(depressed, latched, locked, group uint32) {
	xkbStateUpdateMask(k.state, depressed, latched, locked, 0, 0, group)
}

// Close frees the keymap
func (k *Keymap) Close() {
	if k == nil {
		return
	}
	xkbStateUnref(k.state)
	xkbKeymapUnref(k.keymap)
	xkbContextUnref(k.context)
}
