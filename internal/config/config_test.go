package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/abelbrown/newsbell/internal/catalog"
	"github.com/abelbrown/newsbell/internal/model"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Interval() != 10*time.Minute || cfg.NotificationCount != 3 || !cfg.NotificationsEnabled {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Delay() != 3*time.Second {
		t.Errorf("Delay = %v", cfg.Delay())
	}
	if cfg.Location() != time.Local {
		t.Errorf("Location = %v", cfg.Location())
	}
	for name, on := range cfg.EnabledSources() {
		if !on {
			t.Errorf("%s disabled by default", name)
		}
	}
}

func TestLoadPartialFileKeepsOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
refresh_interval_minutes: 5
notifications_enabled: false
timezone: Europe/Paris
sources:
  CBR:
    enabled: false
  Adala News:
    granularity: day
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Interval() != 5*time.Minute {
		t.Errorf("Interval = %v", cfg.Interval())
	}
	if cfg.NotificationsEnabled {
		t.Error("notifications_enabled not read")
	}
	if cfg.NotificationCount != 3 {
		t.Errorf("NotificationCount = %d, want default", cfg.NotificationCount)
	}
	if cfg.Location().String() != "Europe/Paris" {
		t.Errorf("Location = %v", cfg.Location())
	}
	if cfg.SourceEnabled(catalog.CBR) {
		t.Error("CBR should be disabled")
	}
	if !cfg.SourceEnabled(catalog.AdalaNews) {
		t.Error("granularity-only entry must not disable the source")
	}

	o := cfg.Overrides()
	if o[catalog.CBR].Enabled {
		t.Error("override for CBR enabled")
	}
	if g := o[catalog.AdalaNews].Granularity; g == nil || *g != model.Day {
		t.Errorf("Adala granularity override = %v", g)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
refresh_interval_minutes: -4
notification_count: -1
notification_delay: soon
timezone: Mars/Olympus
cache_retention: forever
store:
  driver: postgres
sources:
  CBR:
    granularity: weekly
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RefreshIntervalMinutes != 10 || cfg.NotificationCount != 3 {
		t.Errorf("numbers not reset: %+v", cfg)
	}
	if cfg.Delay() != 3*time.Second || cfg.Timezone != "Local" {
		t.Errorf("delay/timezone not reset: %q %q", cfg.NotificationDelay, cfg.Timezone)
	}
	if cfg.Retention() != 30*24*time.Hour {
		t.Errorf("Retention = %v", cfg.Retention())
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("driver = %q", cfg.Store.Driver)
	}
	if cfg.Overrides()[catalog.CBR].Granularity != nil {
		t.Error("invalid granularity kept")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "notification_count: [")

	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg == nil || cfg.NotificationCount != 3 {
		t.Errorf("expected defaults alongside the error, got %+v", cfg)
	}
}

func TestRetentionSyntax(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"7d", 7 * 24 * time.Hour, true},
		{"36h", 36 * time.Hour, true},
		{"0", 0, true},
		{"", 0, false},
		{"xd", 0, false},
		{"-1h", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseRetention(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseRetention(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEWSBELL_REDIS_ADDR", "localhost:6390")
	t.Setenv("NEWSBELL_API_ADDR", ":9999")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != "redis" || cfg.Store.RedisAddr != "localhost:6390" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.API.Addr != ":9999" {
		t.Errorf("api = %+v", cfg.API)
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv("NEWSBELL_CONFIG", "/tmp/custom.yaml")
	if ConfigPath() != "/tmp/custom.yaml" {
		t.Errorf("ConfigPath = %q", ConfigPath())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.NotificationCount = 7
	cfg.SetSourceEnabled(catalog.Animotaku, false)

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.NotificationCount != 7 || got.SourceEnabled(catalog.Animotaku) {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestSettingsSwap(t *testing.T) {
	s := NewSettings(nil)
	if !s.NotificationsEnabled() || s.NotificationCount() != 3 {
		t.Fatal("unexpected defaults")
	}
	next := DefaultConfig()
	next.NotificationsEnabled = false
	next.NotificationDelay = "250ms"
	s.Set(next)
	if s.NotificationsEnabled() || s.NotificationDelay() != 250*time.Millisecond {
		t.Errorf("Set not visible: %+v", s.Get())
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "notification_count: 3\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(c *Config) { changes <- c })
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "other.txt"), "ignored")
	writeFile(t, path, "notification_count: 9\n")

	select {
	case c := <-changes:
		if c.NotificationCount != 9 {
			t.Errorf("reloaded count = %d", c.NotificationCount)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}

	writeFile(t, path, "notification_count: [")
	select {
	case c := <-changes:
		t.Errorf("malformed file delivered: %+v", c)
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}
