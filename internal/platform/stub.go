package platform

import (
	"errors"
	"sync"

	"github.com/atotto/clipboard"
	"golang.org/x/sys/unix"
)

// ErrNoNativeInputBackend is returned by the Stub methods that would grab
// devices or bind hotkeys (GrabInputs, UngrabInputs, BindHotkey). Pointer
// warps are silent no-ops, GetMousePos reports (0, 0), GetCurrentModifiers
// reports no modifiers, and SetDisplayBrightness only records the level in
// memory. None of these has a portable Go library in
// the retrieved pack (the real backend is explicitly out of scope per
// spec.md §1: "the platform input/output driver ... treated as external
// collaborator"). Stub wires only the pieces an ecosystem library actually
// reaches: local clipboard access and the SIGKILL-style process teardown
// semantics spec §9 calls for elsewhere (internal/remote). Its purpose is
// to let `cmd/enthrall` link and run end-to-end against a real clipboard
// while making the unimplemented surface explicit and loud rather than
// silently no-op.
var ErrNoNativeInputBackend = errors.New("platform: no native input backend wired (grabs/warp/brightness/hotkeys are out of scope stubs)")

// Stub is a best-effort Driver: real local clipboard access via
// github.com/atotto/clipboard, an explicit ErrNoNativeInputBackend from
// grabs and hotkey binding, and inert or in-memory stand-ins for the rest
// (see ErrNoNativeInputBackend). It exists so the binary links and the clipboard
// leg of the Focus Controller (§4.5 step 6) can be exercised on a real
// desktop session; grabs/warp/brightness/hotkeys need a platform-specific
// backend this module does not provide.
type Stub struct {
	mu         sync.Mutex
	brightness float32
	modifiers  []uint32
}

// NewStub constructs a Stub with brightness initialized to full.
func NewStub() *Stub {
	return &Stub{brightness: 1.0}
}

func (s *Stub) Init(EdgeCallback) (int, error) {
	// No native event fd is available without a platform input backend;
	// -1 tells the event loop there is nothing to poll here.
	return -1, nil
}

func (s *Stub) ProcessEvents() error { return nil }

func (s *Stub) GrabInputs() error   { return ErrNoNativeInputBackend }
func (s *Stub) UngrabInputs() error { return ErrNoNativeInputBackend }

func (s *Stub) GetMousePos() (float32, float32)  { return 0, 0 }
func (s *Stub) SetMousePos(x, y float32)         {}
func (s *Stub) SetMousePosScreenRel(x, y float32) {}

func (s *Stub) GetClipboardText() (string, error) {
	return clipboard.ReadAll()
}

func (s *Stub) SetClipboardFromBuf(buf []byte) error {
	return clipboard.WriteAll(string(buf))
}

func (s *Stub) GetDisplayBrightness() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brightness
}

func (s *Stub) SetDisplayBrightness(level float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brightness = level
	return nil
}

func (s *Stub) BindHotkey(combo string, cb HotkeyFunc) error {
	return ErrNoNativeInputBackend
}

func (s *Stub) GetCurrentModifiers() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint32, len(s.modifiers))
	copy(out, s.modifiers)
	return out
}

// killPid forcibly terminates a native helper process with an
// unconditional SIGKILL, the same "do not rely on polite termination"
// discipline spec §9 mandates for the transport subprocess -- kept here,
// using golang.org/x/sys/unix directly, should a future native input
// backend spawn a helper process that needs the identical teardown.
func killPid(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}

func (s *Stub) Close() error { return nil }
