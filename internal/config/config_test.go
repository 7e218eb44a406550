package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadYamlThenFlagsWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 30000\nmotd: From YAML\n"), 0644))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	require.EqualValues(t, 30000, cfg.Port)
	require.Equal(t, "From YAML", cfg.MOTD)

	cfg, err = Load([]string{"--config", path, "--port", "40000"})
	require.NoError(t, err)
	require.EqualValues(t, 40000, cfg.Port)
	require.Equal(t, "From YAML", cfg.MOTD)
}

func TestLoadMissingYamlIsNotAnError(t *testing.T) {
	cfg, err := Load([]string{"--config", "/nonexistent/server.yaml"})
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
