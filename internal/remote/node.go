package remote

import "fmt"

// NodeKind tags the variant of a NodeRef. This stands in for the closed sum
// type spec.md's Design Notes ask for ("NoderefT should be a closed sum
// type so exhaustive matching catches unresolved references at compile
// time"); Go has no closed sum types, so the enum + explicit Unresolved
// elimination pass (topo.Resolve, see internal/topo) carries that
// invariant at runtime instead, rejecting any NodeRef still Unresolved
// before the event loop starts.
type NodeKind uint8

const (
	// KindUnresolved appears only transiently during config resolution: a
	// reference by name that has not yet been matched to a Master/Remote/
	// None. Must not reach the event loop.
	KindUnresolved NodeKind = iota
	KindMaster
	KindRemote
	KindNone
)

// NodeRef is the tagged variant from spec.md §3: {MASTER, REMOTE(handle),
// NONE, UNRESOLVED(name)}.
type NodeRef struct {
	Kind NodeKind
	// Alias identifies the remote when Kind == KindRemote, or the raw name
	// still awaiting resolution when Kind == KindUnresolved.
	Alias string
}

// Master is the NodeRef denoting the master host itself.
func Master() NodeRef { return NodeRef{Kind: KindMaster} }

// None is the NodeRef denoting "no node" / "stay where focus already is".
func None() NodeRef { return NodeRef{Kind: KindNone} }

// Unresolved is a NodeRef awaiting resolution by alias or hostname.
func Unresolved(name string) NodeRef { return NodeRef{Kind: KindUnresolved, Alias: name} }

// RemoteRef is a NodeRef naming a specific remote by its stable alias.
func RemoteRef(alias string) NodeRef { return NodeRef{Kind: KindRemote, Alias: alias} }

func (n NodeRef) String() string {
	switch n.Kind {
	case KindMaster:
		return "MASTER"
	case KindNone:
		return "NONE"
	case KindRemote:
		return fmt.Sprintf("REMOTE(%s)", n.Alias)
	case KindUnresolved:
		return fmt.Sprintf("UNRESOLVED(%s)", n.Alias)
	default:
		return "?"
	}
}

// IsResolved reports whether n is safe to carry into the event loop (i.e.
// not KindUnresolved).
func (n NodeRef) IsResolved() bool { return n.Kind != KindUnresolved }
