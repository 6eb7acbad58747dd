package platform

import "sync"

// Fake is an in-memory Driver for tests: no real devices, every call
// records its effect on exported/inspectable fields so a test can assert
// on grab state, pointer position, clipboard contents, and brightness
// without a display.
type Fake struct {
	mu sync.Mutex

	edgeCB EdgeCallback
	combos map[string]HotkeyFunc

	Grabbed      bool
	MouseX       float32
	MouseY       float32
	Clipboard    string
	ClipboardErr error
	Brightness   float32
	Modifiers    []uint32

	GrabCalls, UngrabCalls int
}

// NewFake constructs a Fake with brightness at full and pointer at
// top-left.
func NewFake() *Fake {
	return &Fake{combos: make(map[string]HotkeyFunc), Brightness: 1.0}
}

func (f *Fake) Init(cb EdgeCallback) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edgeCB = cb
	return -1, nil
}

func (f *Fake) ProcessEvents() error { return nil }

func (f *Fake) GrabInputs() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Grabbed = true
	f.GrabCalls++
	return nil
}

func (f *Fake) UngrabInputs() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Grabbed = false
	f.UngrabCalls++
	return nil
}

func (f *Fake) GetMousePos() (float32, float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.MouseX, f.MouseY
}

func (f *Fake) SetMousePos(x, y float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MouseX, f.MouseY = x, y
}

func (f *Fake) SetMousePosScreenRel(x, y float32) {
	f.SetMousePos(x, y)
}

func (f *Fake) GetClipboardText() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Clipboard, f.ClipboardErr
}

func (f *Fake) SetClipboardFromBuf(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clipboard = string(buf)
	return nil
}

func (f *Fake) GetDisplayBrightness() float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Brightness
}

func (f *Fake) SetDisplayBrightness(level float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Brightness = level
	return nil
}

func (f *Fake) BindHotkey(combo string, cb HotkeyFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.combos[combo]; exists {
		return ErrHotkeyCollision
	}
	f.combos[combo] = cb
	return nil
}

// Fire invokes the callback bound to combo, for test driving.
func (f *Fake) Fire(combo string) bool {
	f.mu.Lock()
	cb, ok := f.combos[combo]
	f.mu.Unlock()
	if !ok {
		return false
	}
	cb()
	return true
}

// InjectEdge invokes the edge callback, simulating the master's own
// cursor crossing a screen edge.
func (f *Fake) InjectEdge(oldMask, newMask uint8, x, y float32) {
	f.mu.Lock()
	cb := f.edgeCB
	f.mu.Unlock()
	if cb != nil {
		cb(oldMask, newMask, x, y)
	}
}

func (f *Fake) GetCurrentModifiers() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint32, len(f.Modifiers))
	copy(out, f.Modifiers)
	return out
}

func (f *Fake) Close() error { return nil }
