package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Format != "plain" {
		t.Fatalf("unexpected default format: %s", cfg.Format)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "text" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if len(cfg.Scan.Extensions) != 2 {
		t.Fatalf("unexpected scan extensions: %v", cfg.Scan.Extensions)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phytime.yaml")
	content := `
format: table
workers: 4
scan:
  extensions: [".log"]
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PHYTIME_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Format != "json" {
		t.Fatalf("environment should override file, got %s", cfg.Format)
	}
	if cfg.Workers != 4 {
		t.Fatalf("unexpected workers: %d", cfg.Workers)
	}
	if len(cfg.Scan.Extensions) != 1 || cfg.Scan.Extensions[0] != ".log" {
		t.Fatalf("unexpected extensions: %v", cfg.Scan.Extensions)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging level: %s", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidFormat(t *testing.T) {
	t.Setenv("PHYTIME_FORMAT", "xml")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
