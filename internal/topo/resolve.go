// Package topo resolves a parsed config.Document into the immutable,
// in-memory topology spec.md §4.8 requires before the event loop starts:
// a remote.Registry with every NodeRef reference resolved by alias then
// by hostname, plus BFS reachability and no-neighbor diagnostics.
package topo

import (
	"fmt"

	"github.com/edceza/enthrall/internal/config"
	"github.com/edceza/enthrall/internal/remote"
)

// Topology is the resolved, immutable result of Resolve.
type Topology struct {
	Registry        *remote.Registry
	MasterNeighbors [4]remote.NodeRef
	// Warnings are non-fatal diagnostics from the BFS/no-neighbor pass
	// (spec §4.8: "warn for unreachable remotes ... and for remotes with
	// no neighbors"), for the caller to log.
	Warnings []string
}

func toTransportConfig(o config.TransportOverride) remote.TransportConfig {
	return remote.TransportConfig{
		Host:           o.Host,
		Port:           o.Port,
		BindAddress:    o.BindAddress,
		IdentityFiles:  o.IdentityFiles,
		Username:       o.Username,
		RemoteCommand:  o.RemoteCommand,
		KnownHostsFile: o.KnownHostsFile,
		InsecureIgnore: o.InsecureIgnore,
	}
}

// Resolve builds a Topology from doc. It is fatal-on-error per spec
// §7(e): an unresolvable neighbor name, or a duplicate alias, is a config
// parse failure.
func Resolve(doc *config.Document) (*Topology, error) {
	registry := remote.NewRegistry()
	defaults := toTransportConfig(doc.SSHDefaults)

	aliasOf := make(map[string]remote.NodeRef) // alias/hostname -> NodeRef, built incrementally
	aliasOf["master"] = remote.Master()
	aliasOf[""] = remote.None()
	aliasOf["none"] = remote.None()
	if doc.Master.Hostname != "" {
		aliasOf[doc.Master.Hostname] = remote.Master()
	}

	for _, entry := range doc.Remotes {
		if entry.Alias == "" {
			return nil, fmt.Errorf("topo: remote with hostname %q has no alias", entry.Hostname)
		}
		overlay := toTransportConfig(entry.Transport)
		r := remote.NewRemote(entry.Alias, entry.Hostname, entry.Params, defaults.Overlay(overlay))
		if err := registry.Add(r); err != nil {
			return nil, err
		}
		aliasOf[entry.Alias] = remote.RemoteRef(entry.Alias)
		if entry.Hostname != "" {
			if _, exists := aliasOf[entry.Hostname]; !exists {
				aliasOf[entry.Hostname] = remote.RemoteRef(entry.Alias)
			}
		}
	}

	resolveName := func(name string) (remote.NodeRef, error) {
		if ref, ok := aliasOf[name]; ok {
			return ref, nil
		}
		return remote.NodeRef{}, fmt.Errorf("topo: unresolved node reference %q", name)
	}

	masterNeighbors, err := resolveNeighborSet(doc.Master.Neighbors, resolveName)
	if err != nil {
		return nil, err
	}

	for _, entry := range doc.Remotes {
		r, _ := registry.Lookup(entry.Alias)
		neighbors, err := resolveNeighborSet(entry.Neighbors, resolveName)
		if err != nil {
			return nil, err
		}
		r.Neighbors = neighbors
	}

	top := &Topology{Registry: registry, MasterNeighbors: masterNeighbors}
	top.Warnings = diagnose(registry, masterNeighbors)
	return top, nil
}

func resolveNeighborSet(n config.NeighborNames, resolveName func(string) (remote.NodeRef, error)) ([4]remote.NodeRef, error) {
	var out [4]remote.NodeRef
	names := [4]string{n.Left, n.Right, n.Up, n.Down}
	for dir, name := range names {
		ref, err := resolveName(name)
		if err != nil {
			return out, err
		}
		out[dir] = ref
	}
	return out, nil
}

// diagnose runs a BFS from master over the neighbor graph and reports,
// per spec §4.8: every remote unreachable from master, and every remote
// (including master) with no neighbors defined at all.
func diagnose(registry *remote.Registry, masterNeighbors [4]remote.NodeRef) []string {
	var warnings []string

	visited := map[string]bool{"": true} // "" keys master
	queue := []remote.NodeRef{remote.Master()}
	neighborsOf := func(ref remote.NodeRef) [4]remote.NodeRef {
		if ref.Kind == remote.KindMaster {
			return masterNeighbors
		}
		r, ok := registry.Lookup(ref.Alias)
		if !ok {
			return [4]remote.NodeRef{}
		}
		return r.Neighbors
	}
	key := func(ref remote.NodeRef) string {
		if ref.Kind == remote.KindMaster {
			return ""
		}
		return ref.Alias
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range neighborsOf(cur) {
			if n.Kind != remote.KindRemote {
				continue
			}
			k := key(n)
			if visited[k] {
				continue
			}
			visited[k] = true
			queue = append(queue, n)
		}
	}

	hasAnyNeighbor := func(neighbors [4]remote.NodeRef) bool {
		for _, n := range neighbors {
			if n.Kind == remote.KindRemote || n.Kind == remote.KindMaster {
				return true
			}
		}
		return false
	}

	if !hasAnyNeighbor(masterNeighbors) {
		warnings = append(warnings, "master has no neighbors configured")
	}
	for _, alias := range registry.Aliases() {
		r, _ := registry.Lookup(alias)
		if !visited[alias] {
			warnings = append(warnings, fmt.Sprintf("remote %q is unreachable from master", alias))
		}
		if !hasAnyNeighbor(r.Neighbors) {
			warnings = append(warnings, fmt.Sprintf("remote %q has no neighbors configured", alias))
		}
	}
	return warnings
}
