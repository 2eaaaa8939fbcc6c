package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"QPOPS_PORT", "QPOPS_LOG_LEVEL", "QPOPS_OUTPUT_DIR",
		"QPOPS_FHE_ENABLED", "QPOPS_RATE_LIMIT_PER_MINUTE",
		"QPOPS_POLICY_PROFILES", "QPOPS_DB_PATH", "QPOPS_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("default port = %q", cfg.Port)
	}
	if cfg.LogLevel != "INFO" {
		t.Fatalf("default log level = %q", cfg.LogLevel)
	}
	if cfg.OutputDir != "exports" {
		t.Fatalf("default output dir = %q", cfg.OutputDir)
	}
	if !cfg.FHEEnabled {
		t.Fatal("FHE must default to enabled")
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Fatalf("default rate limit = %d", cfg.RateLimitPerMinute)
	}
	if cfg.DatabasePath != "" {
		t.Fatal("database must default to in-memory")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QPOPS_PORT", "9090")
	t.Setenv("QPOPS_FHE_ENABLED", "false")
	t.Setenv("QPOPS_RATE_LIMIT_PER_MINUTE", "10")
	t.Setenv("QPOPS_DB_PATH", "/tmp/qpops.db")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.FHEEnabled {
		t.Fatal("FHE override not applied")
	}
	if cfg.RateLimitPerMinute != 10 {
		t.Fatalf("rate limit = %d", cfg.RateLimitPerMinute)
	}
	if cfg.DatabasePath != "/tmp/qpops.db" {
		t.Fatalf("db path = %q", cfg.DatabasePath)
	}
}

func TestLoadIgnoresInvalidRateLimit(t *testing.T) {
	t.Setenv("QPOPS_RATE_LIMIT_PER_MINUTE", "not-a-number")
	if got := Load().RateLimitPerMinute; got != 60 {
		t.Fatalf("rate limit = %d, want default 60", got)
	}
}
