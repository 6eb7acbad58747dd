// Package platform defines the external-collaborator boundary spec.md §6
// calls the "Platform driver interface": grabbing/ungrabbing local input,
// warping the pointer, reading/writing the clipboard, setting gamma, and
// binding hotkeys. spec.md treats the concrete driver as out of scope (a
// real implementation needs a platform-specific input backend this module
// does not provide); this package defines the interface the rest of the
// control plane programs against, a fake for tests, and a best-effort
// stub (stub.go) that wires the one or two pieces an ecosystem library in
// the retrieved pack actually reaches (local clipboard, process signals).
package platform

import "errors"

// ErrHotkeyCollision is returned by BindHotkey when combo is already bound.
// Spec §4.6/§7(g): "hotkey collision at bind" is a fatal startup error.
var ErrHotkeyCollision = errors.New("platform: hotkey combination already bound")

// EdgeCallback is invoked by the driver whenever the master's own cursor
// crosses a screen edge: (old_mask, new_mask, x, y), per spec §6.
type EdgeCallback func(oldMask, newMask uint8, x, y float32)

// HotkeyFunc is invoked when a bound combination fires.
type HotkeyFunc func()

// Driver is the platform input/output collaborator spec.md §6 describes.
// All methods are expected to be non-blocking except where documented
// (GetClipboardText may use the bounded ~100ms wait spec §5 allows).
type Driver interface {
	// Init wires the edge callback and returns a file descriptor the event
	// loop can poll for readability alongside remotes' recv fds. A driver
	// with no native fd (e.g. a fake) may return a closed-at-Close pipe fd
	// or -1 if ProcessEvents is cheap enough to call unconditionally.
	Init(cb EdgeCallback) (eventFD int, err error)

	// ProcessEvents drains whatever the platform has buffered, invoking
	// the edge callback and any fired hotkeys as a side effect.
	ProcessEvents() error

	GrabInputs() error
	UngrabInputs() error

	GetMousePos() (x, y float32)
	SetMousePos(x, y float32)
	SetMousePosScreenRel(x, y float32)

	GetClipboardText() (string, error)
	SetClipboardFromBuf(buf []byte) error

	GetDisplayBrightness() float32
	SetDisplayBrightness(level float32) error

	// BindHotkey registers combo (a platform-specific key-combination
	// string) to fire cb when pressed. Spec §4.6: "Binding failures are
	// fatal."
	BindHotkey(combo string, cb HotkeyFunc) error

	// GetCurrentModifiers returns the keycodes of every modifier key
	// currently held, for the stuck-modifier-prevention transfer (§4.5
	// step 7).
	GetCurrentModifiers() []uint32

	Close() error
}
