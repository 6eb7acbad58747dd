// Package config parses the enthrall config file (spec.md §6 "Config
// file") with gopkg.in/yaml.v3 into an in-memory document, and enforces
// the ownership/permission gate spec §4.8 requires before any of it is
// trusted. internal/topo turns a parsed Document into the resolved,
// immutable topology the event loop runs against.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TransportOverride mirrors remote.TransportConfig's fields as parsed from
// YAML; internal/topo overlays it on Document.SSHDefaults via
// remote.TransportConfig.Overlay.
type TransportOverride struct {
	Host           string   `yaml:"host,omitempty"`
	Port           int      `yaml:"port,omitempty"`
	BindAddress    string   `yaml:"bind_address,omitempty"`
	IdentityFiles  []string `yaml:"identity_files,omitempty"`
	Username       string   `yaml:"username,omitempty"`
	RemoteCommand  string   `yaml:"remote_command,omitempty"`
	KnownHostsFile string   `yaml:"known_hosts_file,omitempty"`
	InsecureIgnore bool     `yaml:"insecure_ignore_host_key,omitempty"`
}

// NodeEntry is a node's config entry: alias/hostname, handshake params,
// per-node transport overrides, and its four neighbor references by name
// (resolved against aliases/hostnames by internal/topo).
type NodeEntry struct {
	Alias     string            `yaml:"alias,omitempty"`
	Hostname  string            `yaml:"hostname,omitempty"`
	Params    map[string]string `yaml:"params,omitempty"`
	Transport TransportOverride `yaml:"transport,omitempty"`
	Neighbors NeighborNames     `yaml:"neighbors,omitempty"`
}

// NeighborNames names each direction's neighbor: an alias, a hostname,
// the literal "master", or "" / "none" for no neighbor.
type NeighborNames struct {
	Left  string `yaml:"left,omitempty"`
	Right string `yaml:"right,omitempty"`
	Up    string `yaml:"up,omitempty"`
	Down  string `yaml:"down,omitempty"`
}

// HotkeyEntry binds one combination to an action, spec §4.6.
type HotkeyEntry struct {
	Combo     string `yaml:"combo"`
	Action    string `yaml:"action"` // switch | switchto | reconnect | quit
	Direction string `yaml:"direction,omitempty"`
	Target    string `yaml:"target,omitempty"`
}

// FocusHintEntry is the focus-hint config, spec §6.
type FocusHintEntry struct {
	Type           string  `yaml:"type"` // none | dim_inactive | flash_active
	Brightness     float32 `yaml:"brightness"`
	DurationMicros int64   `yaml:"duration_micros"`
	FadeSteps      int     `yaml:"fade_steps"`
}

// MouseSwitchEntry is the mouseswitch config, spec §6.
type MouseSwitchEntry struct {
	Type         string `yaml:"type"` // multitap
	N            int    `yaml:"n"`
	WindowMicros int64  `yaml:"window_micros"`
}

// Document is the whole parsed config file.
type Document struct {
	Master         NodeEntry          `yaml:"master"`
	Remotes        []NodeEntry        `yaml:"remotes"`
	SSHDefaults    TransportOverride  `yaml:"ssh_defaults"`
	Hotkeys        []HotkeyEntry      `yaml:"hotkeys"`
	FocusHint      FocusHintEntry     `yaml:"focus_hint"`
	MouseSwitch    MouseSwitchEntry   `yaml:"mouseswitch"`
	ShowNullSwitch string             `yaml:"show_nullswitch"` // never | always | hotkeyonly
}

// Load enforces the ownership/permission gate (CheckOwnership) and then
// parses path as YAML into a Document.
func Load(path string) (*Document, error) {
	if err := CheckOwnership(path); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &doc, nil
}
