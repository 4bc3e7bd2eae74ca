package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.JSON {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Analysis.Level != "standard" {
		t.Errorf("analysis level = %q", cfg.Analysis.Level)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should default to disabled")
	}
	if cfg.Cache.ResultTTL != time.Hour {
		t.Errorf("result ttl = %v", cfg.Cache.ResultTTL)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  address: ":9090"
  gracefulTimeout: 5s
logging:
  level: debug
  json: true
analysis:
  level: deep
cache:
  enabled: true
  addr: "redis:6379"
  resultTTL: 30m
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if cfg.Server.GracefulTimeout != 5*time.Second {
		t.Errorf("graceful timeout = %v", cfg.Server.GracefulTimeout)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Analysis.Level != "deep" {
		t.Errorf("analysis level = %q", cfg.Analysis.Level)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "redis:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.ResultTTL != 30*time.Minute {
		t.Errorf("result ttl = %v", cfg.Cache.ResultTTL)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TUNE_ENGINE_SERVER_ADDRESS", ":7070")
	t.Setenv("TUNE_ENGINE_LOG_LEVEL", "warn")
	t.Setenv("TUNE_ENGINE_LOG_FORMAT", "json")
	t.Setenv("TUNE_ENGINE_ANALYSIS_LEVEL", "quick")
	t.Setenv("TUNE_ENGINE_CACHE_ENABLED", "true")
	t.Setenv("TUNE_ENGINE_CACHE_ADDR", "localhost:6380")
	t.Setenv("TUNE_ENGINE_CACHE_DB", "3")
	t.Setenv("TUNE_ENGINE_CACHE_RESULT_TTL", "15m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if cfg.Logging.Level != "warn" || !cfg.Logging.JSON {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Analysis.Level != "quick" {
		t.Errorf("analysis level = %q", cfg.Analysis.Level)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "localhost:6380" || cfg.Cache.DB != 3 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.ResultTTL != 15*time.Minute {
		t.Errorf("result ttl = %v", cfg.Cache.ResultTTL)
	}
}
