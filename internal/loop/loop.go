// Package loop implements spec.md §4.7's Event Loop: the single-threaded
// cooperative loop that fires due scheduled calls, spawns/reconnects
// remotes, drains scheduled messages into outbound queues, polls every
// live remote's Message Channel, and drains the platform driver.
//
// spec.md's loop blocks in a native multiplexing wait (select/poll) over
// subprocess fds and a platform event fd. This module's transport
// (internal/remote's SSH dial) and Message Channel (internal/msgchan)
// already turn that blocking I/O into goroutine-fed, non-blocking
// Try{Send,Recv}/PollSetup polls -- there are no raw fds for a Go select
// to multiplex over. The idiomatic Go translation kept here is a bounded
// sleep between poll passes, sized to spec §4.1's next_deadline() the same
// way the blocking wait's timeout would have been, so the loop still does
// no busy-spinning and still wakes exactly when a scheduled call, message,
// or reconnect falls due.
package loop

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/edceza/enthrall/internal/config"
	"github.com/edceza/enthrall/internal/edgedet"
	"github.com/edceza/enthrall/internal/focus"
	"github.com/edceza/enthrall/internal/hotkey"
	"github.com/edceza/enthrall/internal/platform"
	"github.com/edceza/enthrall/internal/remote"
	"github.com/edceza/enthrall/internal/sched"
	"github.com/edceza/enthrall/internal/topo"
	"github.com/edceza/enthrall/internal/wireproto"
)

// minPoll/maxPoll bound the sleep between loop passes: never busier than
// minPoll even with an imminent deadline, never idler than maxPoll so the
// platform driver and shutdown context are still checked regularly when
// nothing is scheduled.
const (
	minPoll = time.Millisecond
	maxPoll = 50 * time.Millisecond
)

// Loop wires every control-plane component together and drives them
// through spec §4.7's iteration.
type Loop struct {
	scheduler *sched.Scheduler
	registry  *remote.Registry
	focus     *focus.Controller
	dispatch  *hotkey.Dispatcher
	detector  *edgedet.Detector
	driver    platform.Driver
	dialer    remote.Dialer
	log       zerolog.Logger

	masterNeighbors [4]remote.NodeRef
	masterHistory   *edgedet.History

	cancel context.CancelFunc
}

// New constructs a Loop from a resolved Topology and the driver/dialer
// collaborators. Call BindHotkeys before Run to install the configured
// combinations (spec §4.6: binding failures are fatal, so the caller
// should exit 1 on error per spec §7(g)).
func New(top *topo.Topology, driver platform.Driver, dialer remote.Dialer, detectorCfg edgedet.Config, focusCfg focus.Config, log zerolog.Logger) *Loop {
	clock := sched.NewRealClock()
	scheduler := sched.New(clock)
	l := &Loop{
		scheduler:       scheduler,
		registry:        top.Registry,
		focus:           focus.New(focusCfg, driver, top.Registry, scheduler, log),
		detector:        edgedet.New(detectorCfg),
		driver:          driver,
		dialer:          dialer,
		log:             log,
		masterNeighbors: top.MasterNeighbors,
		masterHistory:   edgedet.NewHistory(edgedet.MinRingLen),
	}
	l.dispatch = hotkey.New(driver, l)
	return l
}

// BindHotkeys resolves and binds every configured combination. A SWITCHTO
// target is either the literal "master" or an alias looked up in the
// registry topo.Resolve built; hostnames and "none" are not accepted here.
func (l *Loop) BindHotkeys(entries []config.HotkeyEntry) error {
	for _, e := range entries {
		binding, err := l.bindingFor(e)
		if err != nil {
			return err
		}
		if err := l.dispatch.Bind(e.Combo, binding); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) bindingFor(e config.HotkeyEntry) (hotkey.Binding, error) {
	switch e.Action {
	case "switch":
		dir, err := parseDirection(e.Direction)
		if err != nil {
			return hotkey.Binding{}, err
		}
		return hotkey.Binding{Kind: hotkey.ActionSwitch, Dir: dir}, nil
	case "switchto":
		target, err := l.resolveTargetName(e.Target)
		if err != nil {
			return hotkey.Binding{}, err
		}
		return hotkey.Binding{Kind: hotkey.ActionSwitchTo, Target: target}, nil
	case "reconnect":
		return hotkey.Binding{Kind: hotkey.ActionReconnect}, nil
	case "quit":
		return hotkey.Binding{Kind: hotkey.ActionQuit}, nil
	default:
		return hotkey.Binding{}, wireproto.ErrProtocolViolation
	}
}

func parseDirection(s string) (wireproto.Direction, error) {
	switch s {
	case "left":
		return wireproto.DirLeft, nil
	case "right":
		return wireproto.DirRight, nil
	case "up":
		return wireproto.DirUp, nil
	case "down":
		return wireproto.DirDown, nil
	default:
		return 0, wireproto.ErrProtocolViolation
	}
}

func (l *Loop) resolveTargetName(name string) (remote.NodeRef, error) {
	if name == "master" {
		return remote.Master(), nil
	}
	if _, ok := l.registry.Lookup(name); ok {
		return remote.RemoteRef(name), nil
	}
	return remote.NodeRef{}, wireproto.ErrProtocolViolation
}

// Run drives the loop until ctx is cancelled (e.g. by the QUIT hotkey
// action, see HandleQuit) or ctx.Err() otherwise fires.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	defer cancel()

	eventFD, err := l.driver.Init(l.onMasterEdge)
	_ = eventFD // no native fd to register with a Go-side select; see package doc
	if err != nil {
		return err
	}
	defer l.driver.Close()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return nil
		default:
		}

		now := l.scheduler.Clock().NowMicros()
		l.scheduler.RunDue(now)

		for _, r := range l.registry.DueForSetup(now) {
			l.log.Info().Str("remote", r.Alias).Msg("setup: dialing")
			r.BeginSetup(l.dialer)
		}

		for _, r := range l.registry.All() {
			if r.State() == remote.SettingUp && r.Channel() == nil {
				r.PollSetup(now)
			}
			if r.Live() {
				if _, err := r.DrainDueMessages(now); err != nil {
					l.failRemote(r, err)
				}
			}
		}

		l.pollOnce(now)

		sleep := l.nextSleep(now)
		select {
		case <-ctx.Done():
			l.shutdown()
			return nil
		case <-time.After(sleep):
		}

		if err := l.driver.ProcessEvents(); err != nil {
			l.log.Warn().Err(err).Msg("platform: process_events failed")
		}
	}
}

// nextSleep computes the bounded poll interval described in the package
// doc comment, aggregating the scheduler's and every remote's deadlines.
func (l *Loop) nextSleep(now int64) time.Duration {
	best, found := l.scheduler.NextCallDeadline()
	if d, ok := l.registry.NextDeadline(); ok && (!found || d < best) {
		best, found = d, true
	}
	if !found {
		return maxPoll
	}
	delta := sched.MicrosToDuration(best - now)
	if delta < minPoll {
		delta = minPoll
	}
	if delta > maxPoll {
		delta = maxPoll
	}
	return delta
}

// pollOnce implements spec §4.7 steps 5–6: drain every live remote's
// recv side and flush its send side.
func (l *Loop) pollOnce(now int64) {
	for _, r := range l.registry.All() {
		ch := r.Channel()
		if ch == nil {
			continue
		}
		for {
			msg, status := ch.TryRecv()
			if status == 0 {
				break
			}
			if status < 0 {
				l.failRemote(r, ch.RecvError())
				break
			}
			l.dispatchMessage(r, msg, now)
		}
	}

	for _, r := range l.registry.All() {
		ch := r.Channel()
		if ch == nil || !ch.HasOutbound() {
			continue
		}
		if ch.TrySend() < 0 {
			l.failRemote(r, ch.SendError())
		}
	}
}

// dispatchMessage handles one decoded message from remote r, per spec
// §2's data-flow note that only READY, LOGMSG, EDGEMASKCHANGE, and
// SETCLIPBOARD are expected inbound to the master.
func (l *Loop) dispatchMessage(r *remote.Remote, msg *wireproto.Message, now int64) {
	switch msg.Kind {
	case wireproto.KindReady:
		r.OnReady()
		l.focus.DimNewlyReadyRemote(r)
	case wireproto.KindLogMsg:
		l.log.Info().Str("remote", r.Alias).Str("source", "remote").Msg(msg.Log)
	case wireproto.KindEdgeMaskChange:
		if err := wireproto.ValidateMask(msg.OldMask); err != nil {
			l.failRemote(r, err)
			return
		}
		if err := wireproto.ValidateMask(msg.NewMask); err != nil {
			l.failRemote(r, err)
			return
		}
		l.handleEdgeMaskChange(r.History, r.Neighbors, msg.OldMask, msg.NewMask, msg.X, msg.Y)
	case wireproto.KindSetClipboard:
		l.focus.OnClipboardReceived(msg.Clipboard)
	default:
		l.failRemote(r, wireproto.ErrProtocolViolation)
	}
}

// onMasterEdge is the platform.EdgeCallback fired when the master's own
// cursor crosses a screen edge.
func (l *Loop) onMasterEdge(oldMask, newMask uint8, x, y float32) {
	l.handleEdgeMaskChange(l.masterHistory, l.masterNeighbors, oldMask, newMask, x, y)
}

// handleEdgeMaskChange implements spec §4.4's trigger handling, shared
// between a remote's reported edge events and the master's own.
func (l *Loop) handleEdgeMaskChange(history *edgedet.History, neighbors [4]remote.NodeRef, oldMask, newMask uint8, x, y float32) {
	now := l.scheduler.Clock().NowMicros()
	_, triggers, outOfSync := l.detector.HandleMaskChange(history, oldMask, newMask, x, y, now)
	for _, dir := range outOfSync {
		l.log.Warn().Str("direction", dir.String()).Msg("edge event out of sync, skipped")
	}
	for _, trig := range triggers {
		target := neighbors[trig.Dir]
		mods := l.driver.GetCurrentModifiers()
		if !l.focus.FocusNode(target, mods, false) {
			continue
		}
		if r, err := l.registry.Resolve(target); err == nil && r != nil {
			ox, oy := edgedet.OppositeEdgeTarget(trig.Dir, x, y)
			l.focus.PlaceOpposingPointer(r, ox, oy)
		}
	}
}

// failRemote runs the remote's fail() and, if it was focused, forces
// focus back to master (spec §3: "any transition of R out of CONNECTED
// while focused forces focus → master").
func (l *Loop) failRemote(r *remote.Remote, reason error) {
	l.log.Warn().Str("remote", r.Alias).Err(reason).Msg("remote failed")
	now := l.scheduler.Clock().NowMicros()
	wasFocused := l.focus.Focused() == remote.RemoteRef(r.Alias)
	r.Fail(now, reason)
	if wasFocused {
		l.focus.ForceMaster()
	}
}

// shutdown implements the supplemented "Graceful QUIT" feature: drain
// live remotes without attempting any further sends, closing their
// channels cleanly rather than routing them through fail()/backoff.
func (l *Loop) shutdown() {
	for _, r := range l.registry.All() {
		if ch := r.Channel(); ch != nil {
			_ = ch.Close()
		}
	}
}

// HandleSwitch implements hotkey.Handler: resolve the currently focused
// node's neighbor in dir and switch to it.
func (l *Loop) HandleSwitch(dir wireproto.Direction, modifiers []uint32, fromHotkey bool) {
	current := l.focus.Focused()
	var neighbors [4]remote.NodeRef
	if current.Kind == remote.KindMaster {
		neighbors = l.masterNeighbors
	} else if r, err := l.registry.Resolve(current); err == nil && r != nil {
		neighbors = r.Neighbors
	}
	l.focus.FocusNode(neighbors[dir], modifiers, fromHotkey)
}

// HandleSwitchTo implements hotkey.Handler.
func (l *Loop) HandleSwitchTo(target remote.NodeRef, modifiers []uint32, fromHotkey bool) {
	l.focus.FocusNode(target, modifiers, fromHotkey)
}

// HandleReconnect implements hotkey.Handler per spec §4.3's RECONNECT
// action: clear PERMFAILED and the failure counter of every remote and
// make every failed remote due for an immediate retry; live remotes keep
// their state and transport.
func (l *Loop) HandleReconnect() {
	now := l.scheduler.Clock().NowMicros()
	for _, r := range l.registry.All() {
		r.Reconnect(now)
	}
}

// HandleQuit implements hotkey.Handler, cancelling Run's context.
func (l *Loop) HandleQuit() {
	if l.cancel != nil {
		l.cancel()
	}
}
