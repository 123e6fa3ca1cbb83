// Package config provides configuration loading for infiniscroll using TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Scroll trigger settings
type Scroll struct {
	ThresholdPx int `toml:"thresholdPx"` // distance to bottom that starts a load
	DebounceMs  int `toml:"debounceMs"`
}

// Native "more results" control settings
type Affordance struct {
	Enabled    bool `toml:"enabled"`
	CooldownMs int  `toml:"cooldownMs"`
}

// HTTP fetching settings
type Fetcher struct {
	UserAgent      string `toml:"userAgent"`
	TimeoutSeconds int    `toml:"timeoutSeconds"`
	ChromePath     string `toml:"chromePath"`
	UseBrowser     bool   `toml:"useBrowser"`
}

// Crawl settings for the command line runner
type Crawl struct {
	MaxPages int `toml:"maxPages"`
}

// Log settings
type Log struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Config is the main configuration struct
type Config struct {
	Scroll     Scroll     `toml:"scroll"`
	Affordance Affordance `toml:"affordance"`
	Fetcher    Fetcher    `toml:"fetcher"`
	Crawl      Crawl      `toml:"crawl"`
	Log        Log        `toml:"log"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Scroll: Scroll{
			ThresholdPx: 800,
			DebounceMs:  100,
		},
		Affordance: Affordance{
			Enabled:    true,
			CooldownMs: 2000,
		},
		Fetcher: Fetcher{
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			TimeoutSeconds: 30,
		},
		Crawl: Crawl{
			MaxPages: 5,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Debounce returns the scroll quiet period.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Scroll.DebounceMs) * time.Millisecond
}

// Cooldown returns how long a native control click holds the fetch gate.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Affordance.CooldownMs) * time.Millisecond
}

// configDir returns the configuration directory path.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "infiniscroll"), nil
}

// ConfigPath returns the path to the user's config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the user's config file layered on top of defaults.
// Returns the default config if no user config exists.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return Default(), nil // Return defaults if we can't determine path
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads the config at path layered on top of defaults.
func LoadFile(path string) (*Config, error) {
	var user Config
	md, err := toml.DecodeFile(path, &user)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("loading config from %s: unknown key %q", path, undecoded[0].String())
	}
	return merge(Default(), &user, md), nil
}

// merge layers user config on top of defaults. Numbers and strings
// override when non-zero; booleans override when the key is present.
func merge(defaults, user *Config, md toml.MetaData) *Config {
	result := *defaults

	// Scroll
	if user.Scroll.ThresholdPx != 0 {
		result.Scroll.ThresholdPx = user.Scroll.ThresholdPx
	}
	if user.Scroll.DebounceMs != 0 {
		result.Scroll.DebounceMs = user.Scroll.DebounceMs
	}

	// Affordance
	if md.IsDefined("affordance", "enabled") {
		result.Affordance.Enabled = user.Affordance.Enabled
	}
	if user.Affordance.CooldownMs != 0 {
		result.Affordance.CooldownMs = user.Affordance.CooldownMs
	}

	// Fetcher
	if user.Fetcher.UserAgent != "" {
		result.Fetcher.UserAgent = user.Fetcher.UserAgent
	}
	if user.Fetcher.TimeoutSeconds != 0 {
		result.Fetcher.TimeoutSeconds = user.Fetcher.TimeoutSeconds
	}
	if user.Fetcher.ChromePath != "" {
		result.Fetcher.ChromePath = user.Fetcher.ChromePath
	}
	if md.IsDefined("fetcher", "useBrowser") {
		result.Fetcher.UseBrowser = user.Fetcher.UseBrowser
	}

	// Crawl
	if user.Crawl.MaxPages != 0 {
		result.Crawl.MaxPages = user.Crawl.MaxPages
	}

	// Log
	if user.Log.Level != "" {
		result.Log.Level = user.Log.Level
	}

	return &result
}

// DefaultTOML returns the default configuration as a TOML string.
// Used for --init-config to generate a user config file.
func DefaultTOML() string {
	return `# infiniscroll configuration
# Save to ~/.config/infiniscroll/config.toml and customize
# Only include settings you want to change from defaults

# Scroll trigger
[scroll]
thresholdPx = 800             # Start loading this many pixels before the bottom
debounceMs = 100              # Quiet period applied to scroll bursts

# Native "More results" control
[affordance]
enabled = true                # Click the page's own control when it is visible
cooldownMs = 2000             # Wait before another attempt after a click

# HTTP fetching settings
[fetcher]
userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
timeoutSeconds = 30
chromePath = ""               # Path to Chrome/Chromium (empty = auto-detect)
useBrowser = false            # Render pages in headless Chrome

# Command line runner
[crawl]
maxPages = 5                  # Load cycles to run before writing output

[log]
level = "info"                # debug, info, warn, error
`
}
