package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Advisor.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got %q", cfg.Advisor.Provider)
	}
	if cfg.Advisor.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Advisor.Timeout)
	}
	if cfg.Cache.BenchmarkTTL != 30*time.Minute {
		t.Errorf("expected benchmark ttl 30m, got %v", cfg.Cache.BenchmarkTTL)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("expected console logging, got %q", cfg.Logging.Format)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
advisor:
  provider: openai
  timeout: 10s
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Advisor.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Advisor.Provider)
	}
	if cfg.Advisor.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Advisor.Timeout)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Advisor.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Advisor.OllamaURL)
	}
	if cfg.Cache.BenchmarkTTL != 30*time.Minute {
		t.Errorf("expected default ttl, got %v", cfg.Cache.BenchmarkTTL)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"provider": "advisor:\n  provider: claude\n",
		"timeout":  "advisor:\n  timeout: 0s\n",
		"ttl":      "cache:\n  benchmark_ttl: -1m\n",
		"port":     "server:\n  port: 70000\n",
		"duration": "advisor:\n  timeout: soon\n",
	}
	for name, data := range cases {
		if _, err := parse([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Advisor.MaxTokens != 1024 {
		t.Errorf("expected max tokens 1024, got %d", cfg.Advisor.MaxTokens)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Advisor.GeminiAPIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("expected gemini key env from file, got %q", cfg.Advisor.GeminiAPIKeyEnv)
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit path")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, DefaultConfigYAML, 0o644)
	got, err := ResolveConfigPath(path)
	if err != nil || got != path {
		t.Errorf("expected %q, got %q (%v)", path, got, err)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.DBPath() != filepath.Join("/custom/path", "cubo.db") {
		t.Errorf("unexpected db path %q", cfg.DBPath())
	}
}
