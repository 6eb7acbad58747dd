package remote

import (
	"sync"

	"github.com/edceza/enthrall/internal/edgedet"
	"github.com/edceza/enthrall/internal/msgchan"
	"github.com/edceza/enthrall/internal/sched"
	"github.com/edceza/enthrall/internal/wireproto"
)

// TransportConfig overlays per-remote shell-transport settings on the
// global defaults (spec §3: "per-remote transport config (shell command,
// port, bind address, identity file, username, remote command) overlaid
// on global defaults").
type TransportConfig struct {
	Host           string
	Port           int
	BindAddress    string
	IdentityFiles  []string
	Username       string
	RemoteCommand  string
	KnownHostsFile string
	InsecureIgnore bool // explicit, documented non-default host-key bypass
}

// Overlay returns a copy of defaults with any non-zero field of override
// applied on top, realizing "overlaid on global defaults."
func (defaults TransportConfig) Overlay(override TransportConfig) TransportConfig {
	out := defaults
	if override.Host != "" {
		out.Host = override.Host
	}
	if override.Port != 0 {
		out.Port = override.Port
	}
	if override.BindAddress != "" {
		out.BindAddress = override.BindAddress
	}
	if len(override.IdentityFiles) > 0 {
		out.IdentityFiles = override.IdentityFiles
	}
	if override.Username != "" {
		out.Username = override.Username
	}
	if override.RemoteCommand != "" {
		out.RemoteCommand = override.RemoteCommand
	}
	if override.KnownHostsFile != "" {
		out.KnownHostsFile = override.KnownHostsFile
	}
	if override.InsecureIgnore {
		out.InsecureIgnore = true
	}
	return out
}

// Remote is an addressable peer, spec.md §3.
type Remote struct {
	mu sync.Mutex

	Alias    string
	Hostname string
	Params   map[string]string
	Transport TransportConfig

	Neighbors [4]NodeRef // indexed by wireproto.Direction

	state      ConnState
	backoff    *cappedDoublingBackOff
	nextReconn int64 // microseconds, valid only while Failed
	lastFail   error

	channel *msgchan.Channel
	conn    transportHandle

	dialResult chan dialOutcome

	scheduledMsgs *sched.Queue[*wireproto.Message]

	History *edgedet.History
}

// transportHandle abstracts the live SSH client/session so lifecycle code
// is independently testable without a real network dial.
type transportHandle interface {
	Close() error
}

// NewRemote constructs a Remote in its initial, never-yet-connected form.
func NewRemote(alias, hostname string, params map[string]string, transport TransportConfig) *Remote {
	return &Remote{
		Alias:         alias,
		Hostname:      hostname,
		Params:        params,
		Transport:     transport,
		state:         Failed, // not yet set up; treated as failed-with-zero-deadline so the loop dials it immediately
		backoff:       &cappedDoublingBackOff{},
		scheduledMsgs: sched.NewQueue[*wireproto.Message](),
		History:       edgedet.NewHistory(edgedet.MinRingLen),
	}
}

// State returns the remote's current connection state.
func (r *Remote) State() ConnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Live reports whether the remote is currently live (SETTINGUP or
// CONNECTED).
func (r *Remote) Live() bool {
	return r.State().Live()
}

// NextReconnectMicros returns the scheduled reconnect deadline, valid only
// while State() == Failed.
func (r *Remote) NextReconnectMicros() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextReconn
}

// LastFailReason returns the error passed to the most recent Fail call, if
// any, for the loop's logging.
func (r *Remote) LastFailReason() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFail
}

// FailCount reports the current failure counter.
func (r *Remote) FailCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backoff.FailCount()
}

// Channel returns the remote's current Message Channel, or nil if not
// live.
func (r *Remote) Channel() *msgchan.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel
}

// ScheduleMessage enqueues msg to be moved into the outbound queue once
// sendAtMicros is reached (spec §3: "queue of scheduled (future-dated)
// outbound messages ordered by send-time").
func (r *Remote) ScheduleMessage(msg *wireproto.Message, sendAtMicros int64) {
	r.scheduledMsgs.Insert(sendAtMicros, msg)
}

// DrainDueMessages moves every scheduled message whose send time has
// arrived into the live channel's outbound queue (spec §4.7 step 2).
// Returns every message taken off the schedule, in order, for
// logging/testing; when the remote has no channel those messages are
// discarded rather than enqueued, and on an Enqueue error the returned
// slice still holds all of them.
func (r *Remote) DrainDueMessages(now int64) ([]*wireproto.Message, error) {
	due := r.scheduledMsgs.DrainDue(now)
	ch := r.Channel()
	for _, m := range due {
		if ch == nil {
			continue
		}
		if err := ch.Enqueue(m); err != nil {
			return due, err
		}
	}
	return due, nil
}

// NextScheduledMessageMicros reports the earliest pending scheduled
// message's send time.
func (r *Remote) NextScheduledMessageMicros() (int64, bool) {
	return r.scheduledMsgs.PeekDeadline()
}
