// Package config loads the cardfetch TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/cardfetch/internal/mtg/cards/scryfall"
	"github.com/ramonehamilton/cardfetch/internal/mtg/printing"
)

// Catalog sources.
const (
	SourceScryfall = "scryfall"
	SourceLocal    = "local"
)

// Config represents the application configuration.
type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	Output  OutputConfig  `toml:"output"`
	Resolve ResolveConfig `toml:"resolve"`
	Watch   WatchConfig   `toml:"watch"`
	Log     LogConfig     `toml:"log"`
}

// CatalogConfig selects and tunes the card catalog.
type CatalogConfig struct {
	Source     string `toml:"source"`      // "scryfall" or "local"
	DBPath     string `toml:"db_path"`     // Offline catalog database
	BaseURL    string `toml:"base_url"`    // Scryfall API root
	UserAgent  string `toml:"user_agent"`  // Sent with every request
	RateLimit  string `toml:"rate_limit"`  // Delay between requests (e.g., "100ms")
	Timeout    string `toml:"timeout"`     // Per-request timeout (e.g., "30s")
	MaxRetries int    `toml:"max_retries"` // Retries for 429 and 5xx responses
}

// OutputConfig controls where artwork is written.
type OutputConfig struct {
	FrontDir       string `toml:"front_dir"`
	DoubleSidedDir string `toml:"double_sided_dir"`
	Download       bool   `toml:"download"`
}

// ResolveConfig holds printing preferences and lookup concurrency.
type ResolveConfig struct {
	Concurrency           int      `toml:"concurrency"`
	IgnoreSetAndCollector bool     `toml:"ignore_set_and_collector_number"`
	PreferOlderSets       bool     `toml:"prefer_older_sets"`
	PreferSets            []string `toml:"prefer_sets,omitempty"`
	PreferShowcase        bool     `toml:"prefer_showcase"`
	PreferExtraArt        bool     `toml:"prefer_extra_art"`
	Tokens                bool     `toml:"tokens"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce string `toml:"debounce"` // Quiet period before re-running (e.g., "500ms")
}

// LogConfig contains logging settings.
type LogConfig struct {
	Verbosity int `toml:"verbosity"` // 0 warn, 1 info, 2 debug, 3 trace
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Source:     SourceScryfall,
			DBPath:     filepath.Join(xdg.DataHome, "cardfetch", "catalog.db"),
			BaseURL:    scryfall.DefaultBaseURL,
			UserAgent:  "cardfetch/1.0",
			RateLimit:  "100ms",
			Timeout:    "30s",
			MaxRetries: 3,
		},
		Output: OutputConfig{
			FrontDir:       filepath.Join("game", "front"),
			DoubleSidedDir: filepath.Join("game", "double_sided"),
			Download:       true,
		},
		Resolve: ResolveConfig{
			Concurrency: 4,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/cardfetch/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "cardfetch", "config.toml")
}

// Load loads the configuration from the default location.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom loads the configuration at path. Returns default config if the
// file doesn't exist. Keys missing from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if len(config.Resolve.PreferSets) == 0 {
		config.Resolve.PreferSets = nil
	}

	return config, nil
}

// Save saves the configuration to the default location.
func (c *Config) Save() error {
	return c.SaveTo(DefaultPath())
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case SourceScryfall, SourceLocal:
	default:
		return fmt.Errorf("invalid catalog source %q: want %q or %q", c.Catalog.Source, SourceScryfall, SourceLocal)
	}

	if c.Catalog.Source == SourceLocal && c.Catalog.DBPath == "" {
		return fmt.Errorf("catalog db_path is required for the local catalog")
	}

	if _, err := time.ParseDuration(c.Catalog.RateLimit); err != nil {
		return fmt.Errorf("invalid rate limit %q: %w", c.Catalog.RateLimit, err)
	}

	if _, err := time.ParseDuration(c.Catalog.Timeout); err != nil {
		return fmt.Errorf("invalid timeout %q: %w", c.Catalog.Timeout, err)
	}

	if c.Catalog.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %d", c.Catalog.MaxRetries)
	}

	if c.Resolve.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1: %d", c.Resolve.Concurrency)
	}

	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid watch debounce %q: %w", c.Watch.Debounce, err)
	}

	if c.Output.FrontDir == "" || c.Output.DoubleSidedDir == "" {
		return fmt.Errorf("output directories cannot be empty")
	}

	return nil
}

// GetRateLimit returns the catalog rate limit as a duration.
func (c *Config) GetRateLimit() (time.Duration, error) {
	return time.ParseDuration(c.Catalog.RateLimit)
}

// GetTimeout returns the catalog request timeout as a duration.
func (c *Config) GetTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Catalog.Timeout)
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() (time.Duration, error) {
	return time.ParseDuration(c.Watch.Debounce)
}

// Preferences builds the resolver preferences from the [resolve] section.
func (c *Config) Preferences() printing.Preferences {
	var sets []string
	for _, s := range c.Resolve.PreferSets {
		if s = strings.TrimSpace(s); s != "" {
			sets = append(sets, strings.ToLower(s))
		}
	}

	return printing.Preferences{
		IgnoreSetAndCollector: c.Resolve.IgnoreSetAndCollector,
		PreferOlderSets:       c.Resolve.PreferOlderSets,
		PreferredSets:         sets,
		PreferShowcase:        c.Resolve.PreferShowcase,
		PreferExtraArt:        c.Resolve.PreferExtraArt,
		IncludeTokens:         c.Resolve.Tokens,
	}
}
