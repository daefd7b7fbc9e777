package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Removal.AllowedIDs = []int{101, 102}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://store.steampowered.com", cfg.Store.BaseURL)
	assert.NotEmpty(t, cfg.Store.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.Store.Timeout)

	assert.False(t, cfg.Removal.AllowSkipping)
	assert.Equal(t, time.Second, cfg.Removal.MinSpacing)
	assert.Equal(t, 3*time.Minute, cfg.Removal.FailureCooldown)
	assert.Equal(t, time.Minute, cfg.Removal.MinCooldown)
	assert.Equal(t, 30*time.Minute, cfg.Removal.MaxCooldown)
	assert.Equal(t, 1.5, cfg.Removal.GrowthFactor)
	assert.Equal(t, 1.2, cfg.Removal.ShrinkFactor)

	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)

	// Defaults alone are invalid: the allow-list must be configured.
	assert.Error(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LICENSEPURGE_SESSION_ID", "env-session")
	t.Setenv("LICENSEPURGE_LOGIN_SECURE", "env-secure")
	t.Setenv("LICENSEPURGE_ALLOWED_IDS", "101, 102 103")
	t.Setenv("LICENSEPURGE_ALLOW_SKIPPING", "TRUE")
	t.Setenv("LICENSEPURGE_MIN_SPACING", "250ms")
	t.Setenv("LICENSEPURGE_STATE_PATH", "/tmp/state.json")
	t.Setenv("LICENSEPURGE_NOTIFICATIONS_ENABLED", "false")
	t.Setenv("LICENSEPURGE_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-session", cfg.Store.SessionID)
	assert.Equal(t, "env-secure", cfg.Store.LoginSecure)
	assert.Equal(t, []int{101, 102, 103}, cfg.Removal.AllowedIDs)
	assert.True(t, cfg.Removal.AllowSkipping)
	assert.Equal(t, 250*time.Millisecond, cfg.Removal.MinSpacing)
	assert.Equal(t, "/tmp/state.json", cfg.State.Path)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidIDs(t *testing.T) {
	t.Setenv("LICENSEPURGE_ALLOWED_IDS", "101,abc")

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
store:
  session_id: file-session
  timeout: 10s
removal:
  allowed_ids: [1324901, 1324453]
  allow_skipping: true
  max_cooldown: 45m
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "file-session", cfg.Store.SessionID)
	assert.Equal(t, 10*time.Second, cfg.Store.Timeout)
	assert.Equal(t, []int{1324901, 1324453}, cfg.Removal.AllowedIDs)
	assert.True(t, cfg.Removal.AllowSkipping)
	assert.Equal(t, 45*time.Minute, cfg.Removal.MaxCooldown)
	// Untouched values keep their defaults
	assert.Equal(t, time.Minute, cfg.Removal.MinCooldown)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("removal: [unclosed"), 0644))
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"empty allow-list", func(c *Config) { c.Removal.AllowedIDs = nil }, false},
		{"allow-list from file only", func(c *Config) {
			c.Removal.AllowedIDs = nil
			c.Removal.AllowedIDsFile = "ids.txt"
		}, true},
		{"non-positive id", func(c *Config) { c.Removal.AllowedIDs = []int{0} }, false},
		{"bad base url", func(c *Config) { c.Store.BaseURL = "not a url" }, false},
		{"zero timeout", func(c *Config) { c.Store.Timeout = 0 }, false},
		{"negative spacing", func(c *Config) { c.Removal.MinSpacing = -time.Second }, false},
		{"zero spacing", func(c *Config) { c.Removal.MinSpacing = 0 }, true},
		{"max below min", func(c *Config) { c.Removal.MaxCooldown = time.Second }, false},
		{"growth factor 1", func(c *Config) { c.Removal.GrowthFactor = 1 }, false},
		{"shrink factor below 1", func(c *Config) { c.Removal.ShrinkFactor = 0.5 }, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := validConfig()
	cfg.Removal.MaxCooldown = 20 * time.Minute

	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Config
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, cfg.Removal, loaded.Removal)
	assert.Equal(t, cfg.Store.Timeout, loaded.Store.Timeout)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := validConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"session-id":            "flag-session",
		"allow-skipping":        true,
		"state":                 "/tmp/flag-state.json",
		"notifications-enabled": false,
		"log-level":             "error",
	})

	assert.Equal(t, "flag-session", cfg.Store.SessionID)
	assert.True(t, cfg.Removal.AllowSkipping)
	assert.Equal(t, "/tmp/flag-state.json", cfg.StatePath())
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, "error", cfg.Logging.Level)

	// nil map is a no-op
	cfg.MergeCommandLineFlags(nil)
	assert.Equal(t, "flag-session", cfg.Store.SessionID)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("removal:\n  allowed_ids: [5]\nlogging:\n  level: warn\n"), 0644))

	t.Setenv("LICENSEPURGE_LOG_LEVEL", "debug")

	cfg, err := Load(path, map[string]interface{}{"log-level": "error"})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, cfg.Removal.AllowedIDs)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644))

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestAllowListWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	content := "# main list\n1318820\n1318844, 1319382\n\n1319400 # trailing comment\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := validConfig()
	cfg.Removal.AllowedIDsFile = path

	ids, err := cfg.AllowList()
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 1318820, 1318844, 1319382, 1319400}, ids)
}

func TestLoadIDFileErrors(t *testing.T) {
	_, err := LoadIDFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("101\nnope\n"), 0644))
	_, err = LoadIDFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":2:")
}

func TestParseIDList(t *testing.T) {
	ids, err := ParseIDList("  ")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = ParseIDList("1,2\t3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)

	_, err = ParseIDList("-4")
	assert.Error(t, err)
}

func TestStatePathDefault(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, filepath.Join(DataDir(), "license_removal_state.json"), cfg.StatePath())
}

func TestLoadUnvalidatedSkipsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644))

	cfg, err := LoadUnvalidated(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Error(t, cfg.Validate())
}
