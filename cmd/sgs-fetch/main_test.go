package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bacendata/sgs-client/pkg/dates"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("Expected sqlite default backend, got %q", cfg.Cache.Backend)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected info default level, got %q", cfg.Log.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
base_url: http://localhost:9999
timeout_seconds: 10
max_attempts: 5
cache:
  backend: redis
  redis_addr: redis:6379
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.BaseURL != "http://localhost:9999" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("Cache config = %+v", cfg.Cache)
	}

	cc := cfg.clientConfig()
	if cc.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v", cc.Timeout)
	}
	if cc.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d", cc.MaxAttempts)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SGS_CACHE_BACKEND", "off")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Cache.Backend != "off" {
		t.Errorf("Expected env override to win, got %q", cfg.Cache.Backend)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("SGS_CACHE_BACKEND", "memcached")

	if _, err := loadConfig(""); err == nil {
		t.Error("Expected error for unknown cache backend")
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions("2024-01-01", "31/12/2024", 0)
	if err != nil {
		t.Fatalf("parseOptions failed: %v", err)
	}
	if !opts.Start.Equal(dates.New(2024, time.January, 1)) {
		t.Errorf("Start = %s", opts.Start)
	}
	if !opts.End.Equal(dates.New(2024, time.December, 31)) {
		t.Errorf("End = %s", opts.End)
	}

	if _, err := parseOptions("2024-01-01", "", 5); err == nil {
		t.Error("Expected -last with -start to be rejected")
	}

	opts, err = parseOptions("", "", 5)
	if err != nil {
		t.Fatalf("parseOptions failed: %v", err)
	}
	if opts.Last != 5 {
		t.Errorf("Last = %d", opts.Last)
	}
}

func TestParseRef(t *testing.T) {
	if ref := parseRef("433"); !ref.IsCode() {
		t.Error("Numeric argument should resolve by code")
	}
	if ref := parseRef("selic"); ref.IsCode() {
		t.Error("Name argument should resolve by name")
	}
}
