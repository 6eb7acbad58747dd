package edgedet

import "github.com/edceza/enthrall/internal/wireproto"

// Event is one ARRIVE/DEPART conversion from an edge-mask transition, with
// the pointer-relative coordinates reported alongside it.
type Event struct {
	Dir  wireproto.Direction
	Type EventType
	X, Y float32
}

// Trigger is a multi-tap focus-neighbor trigger recognized on an ARRIVE
// event.
type Trigger struct {
	Dir wireproto.Direction
}

// Config is the mouseswitch configuration from spec §6: MULTITAP type with
// N >= 1 taps required within WindowMicros.
type Config struct {
	N            int
	WindowMicros int64
}

// allDirections enumerates the four defined directions in a stable order.
var allDirections = [4]wireproto.Direction{
	wireproto.DirLeft, wireproto.DirRight, wireproto.DirUp, wireproto.DirDown,
}

// Detector converts edge-mask transitions into events against a supplied
// per-remote History, and recognizes multi-tap triggers per spec §4.4.
// It is stateless with respect to any one remote/display; callers pass the
// History belonging to the node whose mask just changed.
type Detector struct {
	cfg Config
}

// New constructs a Detector with the given multi-tap configuration. N <= 0
// is treated as 1 (a single ARRIVE triggers, provided WindowMicros > 0).
func New(cfg Config) *Detector {
	if cfg.N <= 0 {
		cfg.N = 1
	}
	return &Detector{cfg: cfg}
}

// HandleMaskChange processes one (oldMask, newMask, x, y) transition at
// time now (microseconds). It returns every ARRIVE/DEPART event produced
// for bits that changed, any multi-tap triggers recognized among the
// ARRIVE events, and the set of directions where an out-of-sync event was
// detected and skipped (logged by the caller, not treated as a hard
// failure of the remote -- spec §4.4).
func (d *Detector) HandleMaskChange(hist *History, oldMask, newMask uint8, x, y float32, now int64) (events []Event, triggers []Trigger, outOfSync []wireproto.Direction) {
	for _, dir := range allDirections {
		bit := uint8(1) << dir
		wasSet := oldMask&bit != 0
		isSet := newMask&bit != 0
		if wasSet == isSet {
			continue
		}
		evType := Depart
		if isSet {
			evType = Arrive
		}
		if err := hist.Record(dir, Entry{TimestampMicros: now, Type: evType}); err != nil {
			outOfSync = append(outOfSync, dir)
			continue
		}
		events = append(events, Event{Dir: dir, Type: evType, X: x, Y: y})
		if evType == Arrive {
			if d.checkMultitap(hist, dir, now) {
				triggers = append(triggers, Trigger{Dir: dir})
			}
		}
	}
	return events, triggers, outOfSync
}

// checkMultitap implements the spec's lookup: inspect the history entry at
// relative index (N-1)*2 back from the current ARRIVE; if now minus that
// timestamp is within the window, the multi-tap trigger fires.
func (d *Detector) checkMultitap(hist *History, dir wireproto.Direction, now int64) bool {
	backIndex := (d.cfg.N - 1) * 2
	entry, ok := hist.AtRelativeIndexBack(dir, backIndex)
	if !ok {
		return false
	}
	return now-entry.TimestampMicros < d.cfg.WindowMicros
}

// OppositeEdgeTarget computes where the spec says the newly focused node's
// pointer should land for visual continuity after a real switch triggered
// in direction dir from source coordinates (srcX, srcY): "if direction was
// LEFT, x=1.0, y=src_y; RIGHT -> x=0.0; UP -> y=1.0; DOWN -> y=0.0."
func OppositeEdgeTarget(dir wireproto.Direction, srcX, srcY float32) (x, y float32) {
	switch dir {
	case wireproto.DirLeft:
		return 1.0, srcY
	case wireproto.DirRight:
		return 0.0, srcY
	case wireproto.DirUp:
		return srcX, 1.0
	case wireproto.DirDown:
		return srcX, 0.0
	default:
		return srcX, srcY
	}
}
