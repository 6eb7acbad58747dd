// Package focus implements spec.md §4.5's Focus Controller: the
// process-wide focused-node pointer, the boundary-crossing grab/pointer
// choreography, clipboard transfer, modifier transfer, and (brightness.go)
// the brightness-hint fade scheduling of §4.5's visual-hint variants.
package focus

import (
	"github.com/rs/zerolog"

	"github.com/edceza/enthrall/internal/platform"
	"github.com/edceza/enthrall/internal/remote"
	"github.com/edceza/enthrall/internal/sched"
	"github.com/edceza/enthrall/internal/wireproto"
)

// ShowNullSwitch controls whether a hint is shown for a switch that
// resolves to the already-focused node, spec §6's "show-nullswitch
// policy."
type ShowNullSwitch uint8

const (
	ShowNullSwitchNever ShowNullSwitch = iota
	ShowNullSwitchAlways
	ShowNullSwitchHotkeyOnly
)

// Config is the Focus Controller's static configuration.
type Config struct {
	ShowNullSwitch ShowNullSwitch
	Hint           HintConfig
}

// Controller holds the single process-wide focus pointer and drives every
// transition through it (spec §3's Focus state invariants).
type Controller struct {
	cfg       Config
	driver    platform.Driver
	registry  *remote.Registry
	scheduler *sched.Scheduler
	log       zerolog.Logger

	focused              remote.NodeRef
	savedMasterX, savedMasterY float32
}

// New constructs a Controller with focus initialized to MASTER, per spec
// §3: "initial focus = master."
func New(cfg Config, driver platform.Driver, registry *remote.Registry, scheduler *sched.Scheduler, log zerolog.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		driver:    driver,
		registry:  registry,
		scheduler: scheduler,
		log:       log,
		focused:   remote.Master(),
	}
}

// Focused returns the currently focused node.
func (c *Controller) Focused() remote.NodeRef { return c.focused }

// ForceMaster implements the forced-focus-return spec §3/§4.3 require
// whenever the focused remote leaves CONNECTED (fail, or any non-live
// transition): "any transition of R out of CONNECTED while focused forces
// focus → master." It performs the same boundary choreography as a normal
// remote→master switch but never fails (there is nothing to validate) and
// never emits a hint -- the remote that was focused is in no state to
// receive one.
func (c *Controller) ForceMaster() {
	if c.focused.Kind != remote.KindRemote {
		return
	}
	c.focused = remote.Master()
	_ = c.driver.UngrabInputs()
	c.driver.SetMousePos(c.savedMasterX, c.savedMasterY)
}

// FocusNode implements spec §4.5's focus_node(target, current_modifiers,
// from_hotkey) → did_switch.
func (c *Controller) FocusNode(target remote.NodeRef, modifiers []uint32, fromHotkey bool) bool {
	resolved := target
	if target.Kind == remote.KindNone {
		resolved = c.focused
	}

	var arrivingRemote *remote.Remote
	if resolved.Kind == remote.KindRemote {
		r, err := c.registry.Resolve(resolved)
		if err != nil || r == nil || r.State() != remote.Connected {
			c.log.Warn().Str("target", resolved.String()).Msg("focus switch aborted: target remote not connected")
			return false
		}
		arrivingRemote = r
	}

	showHint := resolved != c.focused ||
		c.cfg.ShowNullSwitch == ShowNullSwitchAlways ||
		(c.cfg.ShowNullSwitch == ShowNullSwitchHotkeyOnly && fromHotkey)

	departingRemote, _ := c.registry.Resolve(c.focused)

	if showHint {
		c.indicateHint(departingRemote, arrivingRemote)
	}

	if resolved == c.focused {
		return false
	}

	// Boundary transitions.
	switch {
	case c.focused.Kind == remote.KindRemote && resolved.Kind == remote.KindMaster:
		_ = c.driver.UngrabInputs()
		c.driver.SetMousePos(c.savedMasterX, c.savedMasterY)
	case c.focused.Kind == remote.KindMaster && resolved.Kind == remote.KindRemote:
		c.savedMasterX, c.savedMasterY = c.driver.GetMousePos()
		_ = c.driver.GrabInputs()
	}

	if resolved.Kind == remote.KindRemote {
		c.driver.SetMousePosScreenRel(0.5, 0.5)
	}

	c.transferClipboard(departingRemote, arrivingRemote)
	c.transferModifiers(departingRemote, arrivingRemote, modifiers)

	c.focused = resolved
	return true
}

// transferClipboard implements spec §4.5 step 6.
func (c *Controller) transferClipboard(departing, arriving *remote.Remote) {
	if departing != nil {
		now := c.scheduler.Clock().NowMicros()
		departing.ScheduleMessage(&wireproto.Message{Kind: wireproto.KindGetClipboard}, now)
	}
	if arriving != nil {
		text, err := c.driver.GetClipboardText()
		if err != nil {
			c.log.Warn().Err(err).Msg("focus: failed to read local clipboard for transfer")
			return
		}
		now := c.scheduler.Clock().NowMicros()
		arriving.ScheduleMessage(&wireproto.Message{Kind: wireproto.KindSetClipboard, Clipboard: []byte(text)}, now)
	}
}

// transferModifiers implements spec §4.5 step 7: release on the departing
// node, press on the arriving node, for every currently-held modifier.
func (c *Controller) transferModifiers(departing, arriving *remote.Remote, modifiers []uint32) {
	now := c.scheduler.Clock().NowMicros()
	for _, keycode := range modifiers {
		if departing != nil {
			departing.ScheduleMessage(&wireproto.Message{Kind: wireproto.KindKeyEvent, KeyCode: keycode, KeyAct: wireproto.ActionRelease}, now)
		}
		if arriving != nil {
			arriving.ScheduleMessage(&wireproto.Message{Kind: wireproto.KindKeyEvent, KeyCode: keycode, KeyAct: wireproto.ActionPress}, now)
		}
	}
}

// OnClipboardReceived handles a SETCLIPBOARD frame from any remote,
// resolving spec §9's open question on clipboard timing: the local
// clipboard is updated unconditionally, regardless of current focus, and
// if a remote currently holds focus the new contents are forwarded to it
// (spec scenario 4 -- including forwarding back to the very remote that
// sent it, when that remote is the one focused).
func (c *Controller) OnClipboardReceived(buf []byte) {
	if err := c.driver.SetClipboardFromBuf(buf); err != nil {
		c.log.Warn().Err(err).Msg("focus: failed to apply remote clipboard locally")
	}
	if c.focused.Kind != remote.KindRemote {
		return
	}
	r, err := c.registry.Resolve(c.focused)
	if err != nil || r == nil {
		return
	}
	now := c.scheduler.Clock().NowMicros()
	r.ScheduleMessage(&wireproto.Message{Kind: wireproto.KindSetClipboard, Clipboard: buf}, now)
}

// PlaceOpposingPointer sends SETMOUSEPOSSCREENREL to r, the newly focused
// remote after a real edge-triggered switch, for the visual continuity
// spec §4.4 describes.
func (c *Controller) PlaceOpposingPointer(r *remote.Remote, x, y float32) {
	now := c.scheduler.Clock().NowMicros()
	r.ScheduleMessage(&wireproto.Message{Kind: wireproto.KindSetMousePosScreenRel, X: x, Y: y}, now)
}
