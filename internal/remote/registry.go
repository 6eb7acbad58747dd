package remote

import (
	"fmt"
	"sort"

	"github.com/edceza/enthrall/internal/wireproto"
)

// Registry owns every configured Remote, keyed by its stable alias. It is
// the lookup surface the event loop (internal/loop) and the topology
// resolver (internal/topo) use to turn a NodeRef's alias into a live
// *Remote and to walk the neighbor graph.
type Registry struct {
	byAlias map[string]*Remote
	order   []string // alias insertion order, for deterministic iteration
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byAlias: make(map[string]*Remote)}
}

// Add registers r under its Alias. It is an error to register the same
// alias twice (config validation, spec §4.8, must catch this before the
// event loop starts).
func (reg *Registry) Add(r *Remote) error {
	if _, exists := reg.byAlias[r.Alias]; exists {
		return fmt.Errorf("remote registry: duplicate alias %q", r.Alias)
	}
	reg.byAlias[r.Alias] = r
	reg.order = append(reg.order, r.Alias)
	return nil
}

// Lookup resolves an alias to its Remote.
func (reg *Registry) Lookup(alias string) (*Remote, bool) {
	r, ok := reg.byAlias[alias]
	return r, ok
}

// Resolve turns a NodeRef into a concrete *Remote, or nil for MASTER/NONE.
// It returns an error only for a KindRemote ref naming an alias not present
// in the registry, or a KindUnresolved ref (which must never reach here --
// internal/topo eliminates these before the event loop starts).
func (reg *Registry) Resolve(ref NodeRef) (*Remote, error) {
	switch ref.Kind {
	case KindMaster, KindNone:
		return nil, nil
	case KindRemote:
		r, ok := reg.byAlias[ref.Alias]
		if !ok {
			return nil, fmt.Errorf("remote registry: unknown alias %q", ref.Alias)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("remote registry: unresolved NodeRef %s reached the registry", ref)
	}
}

// All returns every registered Remote in registration order.
func (reg *Registry) All() []*Remote {
	out := make([]*Remote, 0, len(reg.order))
	for _, alias := range reg.order {
		out = append(out, reg.byAlias[alias])
	}
	return out
}

// Aliases returns every registered alias, sorted, for deterministic
// logging and CLI listing.
func (reg *Registry) Aliases() []string {
	out := make([]string, 0, len(reg.byAlias))
	for alias := range reg.byAlias {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Neighbor resolves the Remote (or MASTER/NONE) adjacent to from in dir,
// per spec §3's per-remote Neighbors table. from == nil means MASTER.
func (reg *Registry) Neighbor(from *Remote, dir wireproto.Direction) (NodeRef, error) {
	if from == nil {
		return NodeRef{}, fmt.Errorf("remote registry: Neighbor called with nil (master) -- master's neighbor table lives in internal/topo")
	}
	return from.Neighbors[dir], nil
}

// DueForSetup returns every Remote currently eligible for setup(remote):
// never-yet-connected or Failed with an elapsed backoff deadline.
func (reg *Registry) DueForSetup(now int64) []*Remote {
	var due []*Remote
	for _, alias := range reg.order {
		r := reg.byAlias[alias]
		if r.ReadyToSetup(now) {
			due = append(due, r)
		}
	}
	return due
}

// NextDeadline reports the earliest of every remote's pending
// scheduled-message deadline and every failed remote's reconnect deadline,
// feeding spec §4.1's next_deadline() aggregation.
func (reg *Registry) NextDeadline() (int64, bool) {
	var (
		best  int64
		found bool
	)
	consider := func(v int64, ok bool) {
		if !ok {
			return
		}
		if !found || v < best {
			best, found = v, true
		}
	}
	for _, alias := range reg.order {
		r := reg.byAlias[alias]
		consider(r.NextScheduledMessageMicros())
		if r.State() == Failed {
			consider(r.NextReconnectMicros(), true)
		}
	}
	return best, found
}
