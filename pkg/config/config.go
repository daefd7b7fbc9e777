package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for config, data and keyring locations.
const AppName = "licensepurge"

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "LICENSEPURGE_"

// Config holds all configuration options for the license removal tool
type Config struct {
	// Storefront connection and session
	Store StoreConfig `yaml:"store" json:"store"`

	// Removal loop tuning and allow-list
	Removal RemovalConfig `yaml:"removal" json:"removal"`

	// Persisted run state location
	State StateConfig `yaml:"state" json:"state"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StoreConfig holds storefront-specific configuration
type StoreConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	SessionID   string        `yaml:"session_id" json:"session_id"`
	LoginSecure string        `yaml:"login_secure" json:"login_secure"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	CookiesFile string        `yaml:"cookies_file" json:"cookies_file"`
	PageRetries int           `yaml:"page_retries" json:"page_retries"`
}

// RemovalConfig holds the allow-list and the pacing of removal requests
type RemovalConfig struct {
	AllowedIDs      []int         `yaml:"allowed_ids" json:"allowed_ids"`
	AllowedIDsFile  string        `yaml:"allowed_ids_file" json:"allowed_ids_file"`
	AllowSkipping   bool          `yaml:"allow_skipping" json:"allow_skipping"`
	MinSpacing      time.Duration `yaml:"min_spacing" json:"min_spacing"`
	FailureCooldown time.Duration `yaml:"failure_cooldown" json:"failure_cooldown"`
	MinCooldown     time.Duration `yaml:"min_cooldown" json:"min_cooldown"`
	MaxCooldown     time.Duration `yaml:"max_cooldown" json:"max_cooldown"`
	GrowthFactor    float64       `yaml:"growth_factor" json:"growth_factor"`
	ShrinkFactor    float64       `yaml:"shrink_factor" json:"shrink_factor"`
}

// StateConfig holds the location of the persisted run state
type StateConfig struct {
	// Path of the state file. Empty means the XDG data directory.
	Path string `yaml:"path" json:"path"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			BaseURL:     "https://store.steampowered.com",
			UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Timeout:     30 * time.Second,
			PageRetries: 3,
		},
		Removal: RemovalConfig{
			AllowSkipping:   false,
			MinSpacing:      1 * time.Second,
			FailureCooldown: 3 * time.Minute,
			MinCooldown:     1 * time.Minute,
			MaxCooldown:     30 * time.Minute,
			GrowthFactor:    1.5,
			ShrinkFactor:    1.2,
		},
		Notifications: NotificationConfig{
			Enabled:    true,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if sessionID := os.Getenv(EnvPrefix + "SESSION_ID"); sessionID != "" {
		c.Store.SessionID = sessionID
	}
	if loginSecure := os.Getenv(EnvPrefix + "LOGIN_SECURE"); loginSecure != "" {
		c.Store.LoginSecure = loginSecure
	}
	if userAgent := os.Getenv(EnvPrefix + "USER_AGENT"); userAgent != "" {
		c.Store.UserAgent = userAgent
	}
	if baseURL := os.Getenv(EnvPrefix + "BASE_URL"); baseURL != "" {
		c.Store.BaseURL = baseURL
	}
	if cookies := os.Getenv(EnvPrefix + "COOKIES_FILE"); cookies != "" {
		c.Store.CookiesFile = cookies
	}

	if ids := os.Getenv(EnvPrefix + "ALLOWED_IDS"); ids != "" {
		parsed, err := ParseIDList(ids)
		if err != nil {
			return fmt.Errorf("invalid %sALLOWED_IDS: %w", EnvPrefix, err)
		}
		c.Removal.AllowedIDs = parsed
	}
	if skip := os.Getenv(EnvPrefix + "ALLOW_SKIPPING"); skip != "" {
		c.Removal.AllowSkipping = strings.ToLower(skip) == "true"
	}
	if spacing := os.Getenv(EnvPrefix + "MIN_SPACING"); spacing != "" {
		d, err := time.ParseDuration(spacing)
		if err != nil {
			return fmt.Errorf("invalid %sMIN_SPACING: %w", EnvPrefix, err)
		}
		c.Removal.MinSpacing = d
	}

	if statePath := os.Getenv(EnvPrefix + "STATE_PATH"); statePath != "" {
		c.State.Path = statePath
	}

	if notifEnabled := os.Getenv(EnvPrefix + "NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	if logLevel := os.Getenv(EnvPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	for _, loc := range ConfigLocations() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// ConfigLocations lists the config file paths searched, in order of precedence.
func ConfigLocations() []string {
	return []string{
		"." + AppName + ".yaml",
		"." + AppName + ".yml",
		AppName + ".yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
		filepath.Join(ConfigDir(), "config.yml"),
	}
}

// ConfigDir returns the XDG config directory for the tool.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir returns the XDG data directory for the tool.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Storefront
	if u, err := url.Parse(c.Store.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid store base URL %q", c.Store.BaseURL))
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("store timeout must be positive"))
	}
	if c.Store.PageRetries < 0 {
		errs = append(errs, errors.New("page retries cannot be negative"))
	}

	// Allow-list
	if len(c.Removal.AllowedIDs) == 0 && c.Removal.AllowedIDsFile == "" {
		errs = append(errs, errors.New("allow-list is empty: set removal.allowed_ids or removal.allowed_ids_file"))
	}
	for _, id := range c.Removal.AllowedIDs {
		if id <= 0 {
			errs = append(errs, fmt.Errorf("allowed id %d must be positive", id))
		}
	}

	// Pacing
	if c.Removal.MinSpacing < 0 {
		errs = append(errs, errors.New("min spacing cannot be negative"))
	}
	if c.Removal.FailureCooldown <= 0 {
		errs = append(errs, errors.New("failure cooldown must be positive"))
	}
	if c.Removal.MinCooldown <= 0 {
		errs = append(errs, errors.New("min cooldown must be positive"))
	}
	if c.Removal.MaxCooldown < c.Removal.MinCooldown {
		errs = append(errs, errors.New("max cooldown must not be below min cooldown"))
	}
	if c.Removal.GrowthFactor <= 1 {
		errs = append(errs, errors.New("growth factor must be greater than 1"))
	}
	if c.Removal.ShrinkFactor <= 1 {
		errs = append(errs, errors.New("shrink factor must be greater than 1"))
	}

	// Logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if sessionID, ok := flags["session-id"].(string); ok && sessionID != "" {
		c.Store.SessionID = sessionID
	}
	if cookies, ok := flags["cookies-file"].(string); ok && cookies != "" {
		c.Store.CookiesFile = cookies
	}
	if skip, ok := flags["allow-skipping"].(bool); ok {
		c.Removal.AllowSkipping = skip
	}
	if statePath, ok := flags["state"].(string); ok && statePath != "" {
		c.State.Path = statePath
	}
	if enabled, ok := flags["notifications-enabled"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// AllowList returns every allowed ID from the config list and the optional IDs file.
func (c *Config) AllowList() ([]int, error) {
	ids := append([]int(nil), c.Removal.AllowedIDs...)
	if c.Removal.AllowedIDsFile == "" {
		return ids, nil
	}

	fromFile, err := LoadIDFile(c.Removal.AllowedIDsFile)
	if err != nil {
		return nil, err
	}
	return append(ids, fromFile...), nil
}

// StatePath returns the configured state file or the default under DataDir.
func (c *Config) StatePath() string {
	if c.State.Path != "" {
		return c.State.Path
	}
	return filepath.Join(DataDir(), "license_removal_state.json")
}

// LoadIDFile reads package IDs, one per line. Blank lines and # comments are ignored.
func LoadIDFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open id file: %w", err)
	}
	defer f.Close()

	var ids []int
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		parsed, err := ParseIDList(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		ids = append(ids, parsed...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read id file: %w", err)
	}
	return ids, nil
}

// ParseIDList parses IDs separated by commas or whitespace.
func ParseIDList(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid package id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Load loads configuration from all sources with proper precedence and validates it.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	config, err := LoadUnvalidated(configPath, flags)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadUnvalidated layers every source like Load but skips validation, for
// commands that only inspect the configuration.
func LoadUnvalidated(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(ConfigDir(), ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	return config, nil
}
