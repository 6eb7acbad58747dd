package topo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edceza/enthrall/internal/config"
	"github.com/edceza/enthrall/internal/remote"
)

func TestResolveBuildsRegistryAndNeighbors(t *testing.T) {
	doc := &config.Document{
		Master: config.NodeEntry{
			Hostname:  "mymachine",
			Neighbors: config.NeighborNames{Right: "alpha"},
		},
		Remotes: []config.NodeEntry{
			{
				Alias:     "alpha",
				Hostname:  "alpha.example",
				Transport: config.TransportOverride{Port: 2222},
				Neighbors: config.NeighborNames{Left: "master"},
			},
		},
	}

	top, err := Resolve(doc)
	require.NoError(t, err)

	assert.Equal(t, remote.RemoteRef("alpha"), top.MasterNeighbors[1]) // DirRight
	r, ok := top.Registry.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, remote.Master(), r.Neighbors[0]) // DirLeft
	assert.Equal(t, 2222, r.Transport.Port)
}

func TestResolveFailsOnUnresolvedNeighborName(t *testing.T) {
	doc := &config.Document{
		Master: config.NodeEntry{
			Neighbors: config.NeighborNames{Right: "ghost"},
		},
	}
	_, err := Resolve(doc)
	require.Error(t, err)
}

func TestResolveFailsOnDuplicateAlias(t *testing.T) {
	doc := &config.Document{
		Remotes: []config.NodeEntry{
			{Alias: "alpha", Hostname: "a1.example"},
			{Alias: "alpha", Hostname: "a2.example"},
		},
	}
	_, err := Resolve(doc)
	require.Error(t, err)
}

func TestResolveWarnsOnUnreachableAndNoNeighbor(t *testing.T) {
	doc := &config.Document{
		Remotes: []config.NodeEntry{
			{Alias: "orphan", Hostname: "orphan.example"},
		},
	}
	top, err := Resolve(doc)
	require.NoError(t, err)

	assert.Contains(t, top.Warnings, "master has no neighbors configured")
	assert.Contains(t, top.Warnings, `remote "orphan" is unreachable from master`)
	assert.Contains(t, top.Warnings, `remote "orphan" has no neighbors configured`)
}

func TestResolveNoWarningsWhenFullyConnected(t *testing.T) {
	doc := &config.Document{
		Master: config.NodeEntry{
			Neighbors: config.NeighborNames{Right: "alpha"},
		},
		Remotes: []config.NodeEntry{
			{Alias: "alpha", Hostname: "alpha.example", Neighbors: config.NeighborNames{Left: "master"}},
		},
	}
	top, err := Resolve(doc)
	require.NoError(t, err)
	assert.Empty(t, top.Warnings)
}
