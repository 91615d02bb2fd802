package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 300 {
		t.Errorf("Server.Timeout = %d, want 300", cfg.Server.Timeout)
	}
	if cfg.XAI.BaseURL != "https://api.x.ai/v1" {
		t.Errorf("XAI.BaseURL = %q", cfg.XAI.BaseURL)
	}
	if cfg.XAI.Model != "grok-4-1-fast" {
		t.Errorf("XAI.Model = %q", cfg.XAI.Model)
	}
	if cfg.Report.Schema != "personality" {
		t.Errorf("Report.Schema = %q", cfg.Report.Schema)
	}
	if cfg.RunTimeout() != 300*time.Second {
		t.Errorf("RunTimeout() = %v", cfg.RunTimeout())
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
server:
  port: 9090
xai:
  model: grok-3-mini
report:
  schema: metrics
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.XAI.Model != "grok-3-mini" {
		t.Errorf("XAI.Model = %q", cfg.XAI.Model)
	}
	if cfg.Report.Schema != "metrics" {
		t.Errorf("Report.Schema = %q", cfg.Report.Schema)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.Timeout != 300 {
		t.Errorf("Server.Timeout = %d, want default 300", cfg.Server.Timeout)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("WRAPPED_SERVER__PORT", "7070")
	t.Setenv("WRAPPED_XAI__API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.XAI.APIKey != "env-key" {
		t.Errorf("XAI.APIKey = %q, want env-key", cfg.XAI.APIKey)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default", cfg.Server.Port)
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("XAI_API_KEY", "ambient-key")

	cfg := &Config{}
	if got := cfg.ResolveAPIKey(); got != "ambient-key" {
		t.Errorf("ResolveAPIKey() = %q, want the ambient variable", got)
	}

	cfg.XAI.APIKey = "configured-key"
	if got := cfg.ResolveAPIKey(); got != "configured-key" {
		t.Errorf("ResolveAPIKey() = %q, want the configured key to win", got)
	}
}
