package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vkbgraph.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config is written on first run")

	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.GetDataDir())
	assert.Equal(t, filepath.Join(dir, "data", "vkb.ttl"), cfg.Storage.GraphSource)
	assert.Empty(t, cfg.Storage.OrganisationsCSV, "empty paths stay empty")
}

func TestLoadConfig_ReadsFileAndKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vkbgraph.config")
	content := `<?xml version="1.0" encoding="UTF-8"?>
<VKBGraph>
  <Server><Port>9000</Port><BindAddress>127.0.0.1</BindAddress></Server>
  <Storage><GraphSource>/srv/graph.nt</GraphSource><OwnerRulesFile>rules.yaml</OwnerRulesFile></Storage>
  <Processing><Workers>8</Workers><GuardCycles>true</GuardCycles></Processing>
</VKBGraph>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.GetServerAddr())
	assert.Equal(t, "/srv/graph.nt", cfg.Storage.GraphSource)
	assert.Equal(t, filepath.Join(dir, "rules.yaml"), cfg.Storage.OwnerRulesFile)
	assert.Equal(t, 8, cfg.Processing.Workers)
	assert.True(t, cfg.Processing.GuardCycles)
	assert.Equal(t, "info", cfg.Advanced.LogLevel, "missing sections keep their defaults")
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "7777")
	t.Setenv("GRAPH_SOURCE", "/tmp/other.ttl")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATA_DIR", "/var/lib/vkb")

	cfg, err := LoadConfig(filepath.Join(dir, "vkbgraph.config"))
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "/tmp/other.ttl", cfg.Storage.GraphSource)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
	assert.Equal(t, "/var/lib/vkb", cfg.GetDataDir())
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.config")
	require.NoError(t, os.WriteFile(path, []byte("<VKBGraph><Server>"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(t.TempDir(), "nested", "data")
	require.NoError(t, cfg.EnsureDirectories())

	info, err := os.Stat(cfg.Storage.DataDirectory)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
