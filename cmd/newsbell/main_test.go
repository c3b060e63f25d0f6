package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/newsbell/internal/catalog"
	"github.com/abelbrown/newsbell/internal/config"
	"github.com/abelbrown/newsbell/internal/model"
	"github.com/abelbrown/newsbell/internal/otel"
)

func withConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	old := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = old })
	return path
}

func TestEditSourceSaves(t *testing.T) {
	path := withConfigFile(t)

	if err := editSource(catalog.CBR, func(cfg *config.Config, name string) {
		cfg.SetSourceEnabled(name, false)
	}); err != nil {
		t.Fatal(err)
	}
	if err := editSource(catalog.AdalaNews, func(cfg *config.Config, name string) {
		cfg.SetSourceGranularity(name, model.Day)
	}); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SourceEnabled(catalog.CBR) {
		t.Error("CBR should be disabled")
	}
	g := cfg.Overrides()[catalog.AdalaNews].Granularity
	if g == nil || *g != model.Day {
		t.Errorf("Adala News granularity = %v", g)
	}
}

func TestEditSourceUnknown(t *testing.T) {
	withConfigFile(t)
	err := editSource("Slashdot", func(*config.Config, string) {})
	if err == nil || !strings.Contains(err.Error(), "unknown source") {
		t.Errorf("err = %v", err)
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "data", "newsbell.db")

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if n, err := st.Count(context.Background()); err != nil || n != 0 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Driver = "etcd"
	if _, err := openStore(context.Background(), cfg); err == nil {
		t.Error("expected an error")
	}
}

func TestFormatEvent(t *testing.T) {
	ev := otel.Event{
		Time:   time.Date(2024, 3, 12, 9, 0, 0, 0, time.Local),
		Kind:   otel.KindFetchError,
		Source: "CBR",
		DurMs:  1200,
		Err:    errors.New("context deadline exceeded").Error(),
		Extra:  map[string]any{"b": 2, "a": 1},
	}
	got := formatEvent(ev)
	for _, want := range []string{"2024-03-12 09:00:00", "fetch.error", `source="CBR"`, "1200ms", "a=1  b=2", "context deadline exceeded"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatEvent missing %q: %s", want, got)
		}
	}
}

func TestNotificationSummary(t *testing.T) {
	if got := notificationSummary(false, 3, time.Second); got != "off" {
		t.Errorf("disabled = %q", got)
	}
	if got := notificationSummary(true, 3, 3*time.Second); got != "up to 3 per cycle, 3s apart" {
		t.Errorf("enabled = %q", got)
	}
}
