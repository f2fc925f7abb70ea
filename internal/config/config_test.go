package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SourceScryfall, cfg.Catalog.Source)
	assert.Equal(t, 4, cfg.Resolve.Concurrency)
	assert.Equal(t, filepath.Join("game", "front"), cfg.Output.FrontDir)
	assert.Equal(t, filepath.Join("game", "double_sided"), cfg.Output.DoubleSidedDir)
	assert.True(t, cfg.Output.Download)
}

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[catalog]
source = "local"
db_path = "/tmp/cards.db"

[resolve]
prefer_older_sets = true
prefer_sets = ["LEA", " m10 ", ""]
tokens = true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SourceLocal, cfg.Catalog.Source)
	assert.Equal(t, "/tmp/cards.db", cfg.Catalog.DBPath)
	assert.Equal(t, "100ms", cfg.Catalog.RateLimit, "unset keys keep defaults")
	assert.Equal(t, 4, cfg.Resolve.Concurrency)

	prefs := cfg.Preferences()
	assert.True(t, prefs.PreferOlderSets)
	assert.True(t, prefs.IncludeTokens)
	assert.Equal(t, []string{"lea", "m10"}, prefs.PreferredSets)
}

func TestLoadFrom_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[catalog\nsource = "), 0o644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.Resolve.PreferShowcase = true
	cfg.Log.Verbosity = 2
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveTo_RoundTripPreferSets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Resolve.PreferSets = []string{"lea", "m10"}
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFrom_EmptyPreferSets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[resolve]\nconcurrency = 4\nprefer_sets = []\n"), 0o644))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Nil(t, loaded.Resolve.PreferSets)
	assert.Equal(t, DefaultConfig().Resolve, loaded.Resolve)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Catalog.Source = "mtgjson" }},
		{"local without db", func(c *Config) { c.Catalog.Source = SourceLocal; c.Catalog.DBPath = "" }},
		{"bad rate limit", func(c *Config) { c.Catalog.RateLimit = "fast" }},
		{"bad timeout", func(c *Config) { c.Catalog.Timeout = "" }},
		{"negative retries", func(c *Config) { c.Catalog.MaxRetries = -1 }},
		{"zero concurrency", func(c *Config) { c.Resolve.Concurrency = 0 }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }},
		{"empty front dir", func(c *Config) { c.Output.FrontDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := DefaultConfig()

	rate, err := cfg.GetRateLimit()
	require.NoError(t, err)
	assert.Equal(t, "100ms", rate.String())

	timeout, err := cfg.GetTimeout()
	require.NoError(t, err)
	assert.Equal(t, "30s", timeout.String())

	debounce, err := cfg.GetDebounce()
	require.NoError(t, err)
	assert.Equal(t, "500ms", debounce.String())
}
