// Package config loads and watches newsbell's YAML configuration
// (~/.newsbell/config.yaml). Every field has a default, so a missing file is
// a valid configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/newsbell/internal/catalog"
	"github.com/abelbrown/newsbell/internal/model"
)

// Config is the persistent application configuration
type Config struct {
	RefreshIntervalMinutes int    `yaml:"refresh_interval_minutes"`
	NotificationCount      int    `yaml:"notification_count"`
	NotificationsEnabled   bool   `yaml:"notifications_enabled"`
	NotificationDelay      string `yaml:"notification_delay"`

	// Timezone is the reference zone for day-granularity sources.
	// "Local" or empty means the system zone.
	Timezone    string `yaml:"timezone"`
	DefaultIcon string `yaml:"default_icon"`

	// CacheRetention bounds how long cached articles are kept. Accepts Go
	// durations or "Nd".
	CacheRetention string `yaml:"cache_retention"`

	Sources map[string]SourceConfig `yaml:"sources,omitempty"`

	Store StoreConfig `yaml:"store"`
	API   APIConfig   `yaml:"api"`
	Log   LogConfig   `yaml:"log"`
}

// SourceConfig adjusts one built-in source. Omitted fields keep the
// source's defaults.
type SourceConfig struct {
	Enabled     *bool  `yaml:"enabled,omitempty"`
	Granularity string `yaml:"granularity,omitempty"` // "exact" or "day"
	URL         string `yaml:"url,omitempty"`
}

// StoreConfig selects the durable backend.
type StoreConfig struct {
	Driver    string `yaml:"driver"` // "sqlite" or "redis"
	Path      string `yaml:"path,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
}

// APIConfig holds the HTTP API settings. An empty Addr disables it.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  bool   `yaml:"file"`
}

const (
	defaultInterval  = 10
	defaultCount     = 3
	defaultDelay     = 3 * time.Second
	defaultRetention = 30 * 24 * time.Hour
)

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		RefreshIntervalMinutes: defaultInterval,
		NotificationCount:      defaultCount,
		NotificationsEnabled:   true,
		NotificationDelay:      defaultDelay.String(),
		Timezone:               "Local",
		DefaultIcon:            "icons/newsbell-128.png",
		CacheRetention:         "30d",
		Store:                  StoreConfig{Driver: "sqlite"},
		API:                    APIConfig{Addr: "127.0.0.1:8787"},
		Log:                    LogConfig{Level: "info", File: true},
	}
}

// Dir returns the newsbell data directory.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".newsbell")
}

// ConfigPath returns the path to the config file. NEWSBELL_CONFIG wins.
func ConfigPath() string {
	if p := os.Getenv("NEWSBELL_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// LoadEnvFiles loads .env.local then .env from the working directory.
// Variables already set in the environment are never overwritten, and
// missing files are ignored.
func LoadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load reads config from path, or returns defaults when the file does not
// exist. A file that fails to parse yields the defaults together with the
// parse error. Invalid individual values fall back to their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		def := DefaultConfig()
		def.AutoPopulateFromEnv()
		return def, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.normalize()
	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// Save writes config to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// AutoPopulateFromEnv applies NEWSBELL_* environment overrides.
func (c *Config) AutoPopulateFromEnv() {
	if v := os.Getenv("NEWSBELL_STORE_DRIVER"); v != "" {
		c.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("NEWSBELL_REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
		if os.Getenv("NEWSBELL_STORE_DRIVER") == "" {
			c.Store.Driver = "redis"
		}
	}
	if v := os.Getenv("NEWSBELL_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("NEWSBELL_API_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("NEWSBELL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.RefreshIntervalMinutes <= 0 {
		c.RefreshIntervalMinutes = def.RefreshIntervalMinutes
	}
	if c.NotificationCount < 0 {
		c.NotificationCount = def.NotificationCount
	}
	if d, err := time.ParseDuration(c.NotificationDelay); err != nil || d < 0 {
		c.NotificationDelay = def.NotificationDelay
	}
	if _, err := time.LoadLocation(c.timezone()); err != nil {
		c.Timezone = def.Timezone
	}
	if _, ok := parseRetention(c.CacheRetention); !ok {
		c.CacheRetention = def.CacheRetention
	}
	switch c.Store.Driver {
	case "sqlite", "redis":
	default:
		c.Store.Driver = def.Store.Driver
	}
	for name, sc := range c.Sources {
		if _, err := model.ParseGranularity(sc.Granularity); err != nil {
			sc.Granularity = ""
			c.Sources[name] = sc
		}
	}
}

// Interval returns the refresh interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// Delay returns the pause between consecutive notifications.
func (c *Config) Delay() time.Duration {
	d, err := time.ParseDuration(c.NotificationDelay)
	if err != nil || d < 0 {
		return defaultDelay
	}
	return d
}

// Location returns the reference zone. Unknown names yield time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.timezone())
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) timezone() string {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return "Local"
	}
	return c.Timezone
}

// Retention returns the cache retention window.
func (c *Config) Retention() time.Duration {
	if d, ok := parseRetention(c.CacheRetention); ok {
		return d
	}
	return defaultRetention
}

// parseRetention accepts Go durations and the "Nd" day syntax. "0" disables
// pruning.
func parseRetention(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.HasSuffix(s, "d") {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil && days >= 0 {
			return time.Duration(days) * 24 * time.Hour, true
		}
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// StorePath returns the SQLite database path.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(Dir(), "newsbell.db")
}

// SourceEnabled reports whether name is enabled. Unlisted sources are.
func (c *Config) SourceEnabled(name string) bool {
	sc, ok := c.Sources[name]
	return !ok || sc.Enabled == nil || *sc.Enabled
}

// EnabledSources returns the enabled flag for every built-in source.
func (c *Config) EnabledSources() map[string]bool {
	out := make(map[string]bool)
	for _, name := range catalog.Names() {
		out[name] = c.SourceEnabled(name)
	}
	return out
}

// Overrides converts the sources section for catalog.Select.
func (c *Config) Overrides() map[string]catalog.Override {
	out := make(map[string]catalog.Override, len(c.Sources))
	for name, sc := range c.Sources {
		o := catalog.Override{Enabled: c.SourceEnabled(name)}
		if sc.Granularity != "" {
			if g, err := model.ParseGranularity(sc.Granularity); err == nil {
				o.Granularity = &g
			}
		}
		out[name] = o
	}
	return out
}

// URLs returns per-source URL overrides.
func (c *Config) URLs() map[string]string {
	out := make(map[string]string)
	for name, sc := range c.Sources {
		if sc.URL != "" {
			out[name] = sc.URL
		}
	}
	return out
}

// SetSourceEnabled toggles one source.
func (c *Config) SetSourceEnabled(name string, enabled bool) {
	if c.Sources == nil {
		c.Sources = make(map[string]SourceConfig)
	}
	sc := c.Sources[name]
	sc.Enabled = &enabled
	c.Sources[name] = sc
}

// SetSourceGranularity sets one source's comparison granularity.
func (c *Config) SetSourceGranularity(name string, g model.Granularity) {
	if c.Sources == nil {
		c.Sources = make(map[string]SourceConfig)
	}
	sc := c.Sources[name]
	sc.Granularity = g.String()
	c.Sources[name] = sc
}
