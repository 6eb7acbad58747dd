// Package edgedet implements spec.md §4.4's Edge-Event Detector: converting
// edge-mask transitions into ARRIVE/DEPART events, keeping a per-direction
// ring history of them, and recognizing N-tap multi-tap triggers.
package edgedet

import (
	"errors"

	"github.com/edceza/enthrall/internal/wireproto"
)

// EventType is ARRIVE (edge bit set) or DEPART (edge bit cleared).
type EventType uint8

const (
	Depart EventType = iota
	Arrive
)

func (t EventType) String() string {
	if t == Arrive {
		return "ARRIVE"
	}
	return "DEPART"
}

// Entry is one recorded edge event.
type Entry struct {
	TimestampMicros int64
	Type            EventType
}

// MinRingLen is the minimum per-direction history length spec §9 mandates
// ("the spec mandates ≥ 6, corresponding to N ≤ 3").
const MinRingLen = 6

// ErrOutOfSync is returned when a new event's type equals the last
// recorded event's type for that direction: spec §4.4 treats this as a
// protocol error to be logged and skipped without updating history.
var ErrOutOfSync = errors.New("edgedet: successive same-type edge event (out of sync)")

// History is the fixed-length, per-direction ring of (timestamp, type)
// pairs spec §3 assigns to each Remote ("per-direction edge-event history
// (ring buffer)"). Zero value is not usable; construct with NewHistory.
type History struct {
	ringLen int
	rings   [4][]Entry // one ring per wireproto.Direction, newest at tail logically via count/head bookkeeping
	heads   [4]int
	counts  [4]int
}

// NewHistory constructs a History with the given per-direction ring
// length, clamped up to MinRingLen. A caller supporting N-tap with N > 3
// must pass a larger ringLen (spec §9 open question on the index
// formula's assumption that ringLen >= 2N-1).
func NewHistory(ringLen int) *History {
	if ringLen < MinRingLen {
		ringLen = MinRingLen
	}
	h := &History{ringLen: ringLen}
	for d := 0; d < 4; d++ {
		h.rings[d] = make([]Entry, ringLen)
	}
	return h
}

// Record appends a new event for dir, rejecting (without mutating state) a
// successive event of the same type as the last recorded one.
func (h *History) Record(dir wireproto.Direction, e Entry) error {
	if last, ok := h.Last(dir); ok && last.Type == e.Type {
		return ErrOutOfSync
	}
	ring := h.rings[dir]
	idx := (h.heads[dir] + h.counts[dir]) % h.ringLen
	if h.counts[dir] == h.ringLen {
		// ring full: overwrite oldest, advance head
		ring[h.heads[dir]] = e
		h.heads[dir] = (h.heads[dir] + 1) % h.ringLen
	} else {
		ring[idx] = e
		h.counts[dir]++
	}
	return nil
}

// Last returns the most recently recorded event for dir, if any.
func (h *History) Last(dir wireproto.Direction) (Entry, bool) {
	return h.AtRelativeIndexBack(dir, 0)
}

// AtRelativeIndexBack returns the event n entries back from the most
// recent one (n=0 is the most recent), or (zero, false) if there aren't
// that many entries recorded yet. This implements the lookup spec §4.4's
// multi-tap formula needs: "the history entry at relative index (N−1)×2
// back from the current."
func (h *History) AtRelativeIndexBack(dir wireproto.Direction, n int) (Entry, bool) {
	count := h.counts[dir]
	if n < 0 || n >= count {
		return Entry{}, false
	}
	idx := (h.heads[dir] + count - 1 - n) % h.ringLen
	return h.rings[dir][idx], true
}

// Count reports how many entries are currently recorded for dir.
func (h *History) Count(dir wireproto.Direction) int {
	return h.counts[dir]
}
