package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 800, cfg.Scroll.ThresholdPx)
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 2*time.Second, cfg.Cooldown())
	assert.True(t, cfg.Affordance.Enabled)
	assert.False(t, cfg.Fetcher.UseBrowser)
}

func TestLoadFileLayersOnDefaults(t *testing.T) {
	path := writeConfig(t, `
[scroll]
thresholdPx = 400

[affordance]
enabled = false

[fetcher]
useBrowser = true
timeoutSeconds = 5

[log]
level = "debug"
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 400, cfg.Scroll.ThresholdPx)
	assert.Equal(t, 100, cfg.Scroll.DebounceMs, "unset keys keep defaults")
	assert.False(t, cfg.Affordance.Enabled, "explicit false overrides")
	assert.Equal(t, 2000, cfg.Affordance.CooldownMs)
	assert.True(t, cfg.Fetcher.UseBrowser)
	assert.Equal(t, 5, cfg.Fetcher.TimeoutSeconds)
	assert.NotEmpty(t, cfg.Fetcher.UserAgent)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(writeConfig(t, `[scroll`))
	assert.Error(t, err)

	_, err = LoadFile(writeConfig(t, "[scroll]\nthreshold = 3\n"))
	assert.ErrorContains(t, err, "unknown key")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDefaultTOMLMatchesDefault(t *testing.T) {
	var parsed Config
	_, err := toml.Decode(DefaultTOML(), &parsed)
	require.NoError(t, err)
	assert.Equal(t, *Default(), parsed)
}
