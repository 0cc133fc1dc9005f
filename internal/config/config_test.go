package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{BotToken: "test-token"},
		Cache:    CacheConfig{Backend: "sqlite"},
		Download: DownloadConfig{MaxFileSize: 50 << 20},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() should pass, got %v", err)
	}
}

func TestConfig_Validate_MissingToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.BotToken = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing BOT_API_TOKEN")
	}
}

func TestConfig_Validate_BadBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Backend = "dynamo"

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for unknown cache backend")
	}
}

func TestConfig_Validate_BadMaxFileSize(t *testing.T) {
	cfg := validConfig()
	cfg.Download.MaxFileSize = 0

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for zero size ceiling")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_API_TOKEN", "token-from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Download.MaxFileSize != 50<<20 {
		t.Errorf("MaxFileSize = %d, want 50MB default", cfg.Download.MaxFileSize)
	}
	if cfg.Status.Debounce != 150*time.Millisecond {
		t.Errorf("Debounce = %v, want 150ms default", cfg.Status.Debounce)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite default", cfg.Cache.Backend)
	}
	if cfg.Download.TempDir == "" {
		t.Error("TempDir should fall back to the OS temp dir")
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
telegram:
  bot_token: yaml-token
download:
  timeout: 1m
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("BOT_API_TOKEN", "env-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Environment wins over the file
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("BotToken = %q, want env override", cfg.Telegram.BotToken)
	}
	if cfg.Download.Timeout != time.Minute {
		t.Errorf("Timeout = %v, want 1m from file", cfg.Download.Timeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load should fail for missing config file")
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 8443}
	if got := cfg.Address(); got != "127.0.0.1:8443" {
		t.Errorf("Address() = %q", got)
	}
}
