// Package hotkey implements spec.md §4.6's Hotkey Dispatcher: binding
// key-combination strings to one of SWITCH(direction)/SWITCHTO(node)/
// RECONNECT/QUIT, and invoking the bound action with a snapshot of
// currently-held modifiers once a combination fires.
package hotkey

import (
	"fmt"

	"github.com/edceza/enthrall/internal/platform"
	"github.com/edceza/enthrall/internal/remote"
	"github.com/edceza/enthrall/internal/wireproto"
)

// ActionKind tags which of the four bound action shapes a Binding carries.
type ActionKind uint8

const (
	ActionSwitch ActionKind = iota
	ActionSwitchTo
	ActionReconnect
	ActionQuit
)

// Binding is one bound key-combination's action.
type Binding struct {
	Kind   ActionKind
	Dir    wireproto.Direction // meaningful iff Kind == ActionSwitch
	Target remote.NodeRef      // meaningful iff Kind == ActionSwitchTo
}

// Handler receives dispatched actions. The event loop implements this by
// delegating SWITCH/SWITCHTO to the Focus Controller and RECONNECT/QUIT to
// its own registry-wide/shutdown logic.
type Handler interface {
	HandleSwitch(dir wireproto.Direction, modifiers []uint32, fromHotkey bool)
	HandleSwitchTo(target remote.NodeRef, modifiers []uint32, fromHotkey bool)
	HandleReconnect()
	HandleQuit()
}

// Dispatcher binds combinations on a platform.Driver and routes fired
// combinations to a Handler.
type Dispatcher struct {
	driver  platform.Driver
	handler Handler
}

// New constructs a Dispatcher. Call Bind for every configured combination
// before the event loop starts; per spec §4.6, "binding failures are
// fatal," so Bind returns the raw error for the caller to treat as a
// startup failure (spec §7(g)).
func New(driver platform.Driver, handler Handler) *Dispatcher {
	return &Dispatcher{driver: driver, handler: handler}
}

// Bind registers combo with the given action. Returns an error
// (platform.ErrHotkeyCollision or a driver-specific failure) if binding
// fails; the caller must treat that as fatal.
func (d *Dispatcher) Bind(combo string, action Binding) error {
	cb := func() {
		mods := d.driver.GetCurrentModifiers()
		switch action.Kind {
		case ActionSwitch:
			d.handler.HandleSwitch(action.Dir, mods, true)
		case ActionSwitchTo:
			d.handler.HandleSwitchTo(action.Target, mods, true)
		case ActionReconnect:
			d.handler.HandleReconnect()
		case ActionQuit:
			d.handler.HandleQuit()
		}
	}
	if err := d.driver.BindHotkey(combo, cb); err != nil {
		return fmt.Errorf("hotkey: bind %q: %w", combo, err)
	}
	return nil
}
