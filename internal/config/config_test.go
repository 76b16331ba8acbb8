package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.TZName != "America/Sao_Paulo" {
		t.Fatalf("tz default %q", cfg.TZName)
	}
	if cfg.MinConversations != 3 {
		t.Fatalf("min conversations default %d", cfg.MinConversations)
	}
	if !cfg.IncludeSender || !cfg.NormalizeConvIDs {
		t.Fatalf("toggles should default on: %+v", cfg)
	}
	if cfg.DBPath != "runtime/chat.db" {
		t.Fatalf("db path default %q", cfg.DBPath)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	file := []byte("analysis_url: http://from-file.example\nmin_conversations: 7\ntz_name: UTC\n")
	if err := os.WriteFile(path, file, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("ANALYSIS_URL", "http://from-env.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AnalysisURL != "http://from-env.example" {
		t.Fatalf("env should win: %q", cfg.AnalysisURL)
	}
	if cfg.MinConversations != 7 {
		t.Fatalf("file min_conversations not applied: %d", cfg.MinConversations)
	}
	if cfg.TZName != "UTC" {
		t.Fatalf("file tz not applied: %q", cfg.TZName)
	}
}

func TestValidateRequiresEndpoint(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing ANALYSIS_URL to fail validation")
	}
	cfg.AnalysisURL = "http://example.invalid"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestStrictConfigSurfacesFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("analysis_url: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("STRICT_CONFIG", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected strict config to fail on malformed yaml")
	}
}

func TestTimeoutClamp(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_TIMEOUT_SEC", "9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPTimeoutSec != maxTimeoutSec {
		t.Fatalf("expected clamp to %d, got %d", maxTimeoutSec, cfg.HTTPTimeoutSec)
	}
}

func TestOpsPortFormatting(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("OPS_PORT", "9100")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.OpsPort != ":9100" {
		t.Fatalf("expected OPS_PORT to include colon, got %s", cfg.OpsPort)
	}
}
