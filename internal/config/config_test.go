package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePortRange(t *testing.T) {
	r, err := ParsePortRange("4000")
	require.NoError(t, err)
	assert.Equal(t, PortRange{Lo: 4000, Hi: 4000}, r)

	r, err = ParsePortRange("4000-4010")
	require.NoError(t, err)
	assert.Equal(t, PortRange{Lo: 4000, Hi: 4010}, r)

	for _, bad := range []string{"", "abc", "4000-", "-4000", "4000-4010-4020", "4010-4000", "70000"} {
		_, err := ParsePortRange(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestFromArgs(t *testing.T) {
	cfg, err := FromArgs([]string{"executable", "/opt/game/server", "4000-4004"})
	require.NoError(t, err)
	assert.Equal(t, LaunchExecutable, cfg.Mode)
	assert.Equal(t, "/opt/game/server", cfg.GameServerPath)
	assert.Equal(t, PortRange{Lo: 4000, Hi: 4004}, cfg.GamePorts)
	assert.Equal(t, DefaultListenPort, cfg.ListenPort)
	assert.True(t, cfg.Catalog.HasMap("Default"))

	_, err = FromArgs([]string{"podman", "/opt/game/server", "4000"})
	assert.Error(t, err)
	_, err = FromArgs([]string{"executable", "/opt/game/server"})
	assert.Error(t, err)
}

func TestFromArgsEnvOverrides(t *testing.T) {
	t.Setenv("LOBBY_LISTEN_PORT", "6000")
	t.Setenv("LOBBY_LOG_LEVEL", "debug")

	cfg, err := FromArgs([]string{"cargo", "./server", "4000"})
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.ListenPort)
	assert.Equal(t, "debug", cfg.LogLevel)

	t.Setenv("LOBBY_LISTEN_PORT", "not-a-port")
	_, err = FromArgs([]string{"cargo", "./server", "4000"})
	assert.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.Len(t, c.Champions, 100)
	assert.Equal(t, "Champ 1", c.Champions[0])
	assert.Equal(t, "Champ 100", c.Champions[99])
	assert.True(t, c.HasMap("Default"))
	assert.False(t, c.HasMap("Summoner's Rift"))
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := `
maps:
  - name: Default
    min_teams: 2
    max_teams: 2
  - name: Arena
    min_teams: 2
    max_teams: 4
champions:
  - Warrior
  - Mage
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.True(t, c.HasMap("Arena"))
	assert.Equal(t, []string{"Warrior", "Mage"}, c.Champions)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadCatalogPartialFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps-only.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maps:\n  - name: Arena\n"), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.True(t, c.HasMap("Arena"))
	assert.Len(t, c.Champions, 100)
}
