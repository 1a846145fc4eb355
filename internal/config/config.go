// Package config parses the lobby server's command line, environment
// overrides and the optional map/champion catalog file.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// DefaultListenPort is the fixed UDP port clients connect to.
const DefaultListenPort = 54765

// LaunchMode selects how the per-match game-server child is started.
type LaunchMode string

const (
	// LaunchExecutable runs the configured binary directly.
	LaunchExecutable LaunchMode = "executable"
	// LaunchCargo builds and runs the game server through cargo; the
	// configured path is the crate directory.
	LaunchCargo LaunchMode = "cargo"
)

// PortRange is the inclusive range game servers are spawned on.
type PortRange struct {
	Lo uint16
	Hi uint16
}

// Config is the fully resolved server configuration.
type Config struct {
	Mode           LaunchMode
	GameServerPath string
	GamePorts      PortRange
	ListenPort     int
	LogLevel       string
	Catalog        Catalog
}

var portRangeRe = regexp.MustCompile(`^(\d+)(?:-(\d+))?$`)

// Usage is printed when the positional arguments are wrong.
const Usage = "usage: lobbyserver <executable|cargo> <game_server_path> <port|port-port>"

// FromArgs resolves the configuration from the positional arguments
// <launch_mode> <game_server_path> <port_range> plus the environment
// (LOBBY_LISTEN_PORT, LOBBY_LOG_LEVEL, LOBBY_CATALOG_FILE).
func FromArgs(args []string) (*Config, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("expected 3 arguments, got %d", len(args))
	}

	mode := LaunchMode(args[0])
	switch mode {
	case LaunchExecutable, LaunchCargo:
	default:
		return nil, fmt.Errorf("unknown launch mode %q", args[0])
	}

	ports, err := ParsePortRange(args[2])
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Mode:           mode,
		GameServerPath: args[1],
		GamePorts:      ports,
		ListenPort:     DefaultListenPort,
		LogLevel:       "info",
		Catalog:        DefaultCatalog(),
	}

	if v := os.Getenv("LOBBY_LISTEN_PORT"); v != "" {
		p, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("LOBBY_LISTEN_PORT: %w", err)
		}
		cfg.ListenPort = int(p)
	}
	if v := os.Getenv("LOBBY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOBBY_CATALOG_FILE"); v != "" {
		catalog, err := LoadCatalog(v)
		if err != nil {
			return nil, err
		}
		cfg.Catalog = catalog
	}

	return cfg, nil
}

// ParsePortRange parses "N" or "N-M" (inclusive).
func ParsePortRange(s string) (PortRange, error) {
	m := portRangeRe.FindStringSubmatch(s)
	if m == nil {
		return PortRange{}, fmt.Errorf("invalid port range %q", s)
	}
	lo, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return PortRange{}, fmt.Errorf("invalid port range %q: %w", s, err)
	}
	hi := lo
	if m[2] != "" {
		hi, err = strconv.ParseUint(m[2], 10, 16)
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port range %q: %w", s, err)
		}
	}
	if hi < lo {
		return PortRange{}, fmt.Errorf("invalid port range %q: end before start", s)
	}
	return PortRange{Lo: uint16(lo), Hi: uint16(hi)}, nil
}
