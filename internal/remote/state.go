package remote

// ConnState is the connection-state machine from spec.md §3.
type ConnState uint8

const (
	SettingUp ConnState = iota
	Connected
	Failed
	PermFailed
)

func (s ConnState) String() string {
	switch s {
	case SettingUp:
		return "SETTINGUP"
	case Connected:
		return "CONNECTED"
	case Failed:
		return "FAILED"
	case PermFailed:
		return "PERMFAILED"
	default:
		return "?"
	}
}

// Live reports whether a remote in this state counts as "live": its recv
// fd should be polled and its scheduled messages drained into the
// outbound queue (spec §3: "A remote is live iff state ∈ {SETTINGUP,
// CONNECTED}").
func (s ConnState) Live() bool {
	return s == SettingUp || s == Connected
}

// MaxFailCount is the failure-counter threshold spec §4.3 cites: once
// failcount exceeds this, the remote moves to PermFailed.
const MaxFailCount = 10

// maxBackoffShift is how many doublings the backoff formula allows before
// saturating (2^(10-1) = 512 half-seconds, clamped to 60 half-seconds = 30s
// well before failcount reaches MaxFailCount anyway, but this bounds the
// shift so failcount can't overflow a wide exponent).
const maxBackoffShift = 6 // min(2^(failcount-1), 60) saturates by failcount=7
