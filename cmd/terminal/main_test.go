package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, v := range []string{"OKX_API_KEY", "OKX_SECRET_KEY", "OKX_PASSPHRASE", "OKX_DEMO"} {
		t.Setenv(v, "")
	}
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if !cfg.Exchange.Demo {
		t.Error("demo should default on")
	}
	if !cfg.Exchange.Reconnect {
		t.Error("reconnect should default on")
	}
	if cfg.Watch.InstID != "BTC-USDT" || cfg.Watch.Bar != "1m" {
		t.Errorf("watch defaults wrong: %+v", cfg.Watch)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
exchange:
  api_key: file-key
  demo: false
  reconnect: false
server:
  port: 9000
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Exchange.APIKey != "file-key" {
		t.Errorf("APIKey = %q", cfg.Exchange.APIKey)
	}
	if cfg.Exchange.Demo || cfg.Exchange.Reconnect {
		t.Error("file values should override defaults")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	// untouched sections keep defaults
	if cfg.Watch.InstID != "BTC-USDT" {
		t.Errorf("watch inst = %q", cfg.Watch.InstID)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
exchange:
  api_key: file-key
  secret_key: file-secret
  demo: false
`)
	t.Setenv("OKX_API_KEY", "env-key")
	t.Setenv("OKX_SECRET_KEY", "env-secret")
	t.Setenv("OKX_PASSPHRASE", "env-pass")
	t.Setenv("OKX_DEMO", "1")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Exchange.APIKey != "env-key" || cfg.Exchange.SecretKey != "env-secret" {
		t.Errorf("environment must beat the file: %+v", cfg.Exchange)
	}
	if cfg.Exchange.Passphrase != "env-pass" {
		t.Errorf("Passphrase = %q", cfg.Exchange.Passphrase)
	}
	if !cfg.Exchange.Demo {
		t.Error("OKX_DEMO=1 should enable demo")
	}
}
