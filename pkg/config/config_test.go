package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Build.Address != "localhost:1071" {
		t.Errorf("address = %q", cfg.Build.Address)
	}
	if cfg.Build.Path != "/frames" {
		t.Errorf("path = %q", cfg.Build.Path)
	}
	if cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("log level = %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
build:
  address: "build.internal:1071"
  dial_timeout: 5s
librarian:
  paths:
    - /var/lib/simbridge/models
  watch: true
recorder:
  enabled: true
  path: /tmp/sessions.db
telemetry:
  logging:
    level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Build.Address != "build.internal:1071" {
		t.Errorf("address = %q", cfg.Build.Address)
	}
	if cfg.Build.DialTimeout != 5*time.Second {
		t.Errorf("dial timeout = %v", cfg.Build.DialTimeout)
	}
	// Unset fields keep their defaults.
	if cfg.Build.WriteTimeout != 30*time.Second {
		t.Errorf("write timeout = %v", cfg.Build.WriteTimeout)
	}
	if !cfg.Recorder.Enabled || cfg.Recorder.Path != "/tmp/sessions.db" {
		t.Errorf("recorder = %+v", cfg.Recorder)
	}
	if !cfg.Librarian.Watch || len(cfg.Librarian.Paths) != 1 {
		t.Errorf("librarian = %+v", cfg.Librarian)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadRejectsBadAddress(t *testing.T) {
	path := writeConfig(t, `
build:
  address: "not a host port"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected a validation error for a malformed address")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "build: [\n")
	if _, err := Load(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestBuildURL(t *testing.T) {
	cfg := Default()
	if got := cfg.Build.URL(); got != "ws://localhost:1071/frames" {
		t.Errorf("url = %q", got)
	}
}

func TestWebSocketConfig(t *testing.T) {
	cfg := Default()
	ws := cfg.Build.WebSocketConfig()
	if ws.Address != cfg.Build.Address || ws.Path != cfg.Build.Path {
		t.Errorf("websocket config = %+v", ws)
	}
	if ws.DialTimeout != cfg.Build.DialTimeout {
		t.Errorf("dial timeout = %v", ws.DialTimeout)
	}
}
