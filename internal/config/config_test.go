package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Empty directory: everything comes from defaults.
	if err := LoadConfig(t.TempDir()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if AppConfig.Server.IngestPort != 8080 || AppConfig.Server.ConsolePort != 8081 {
		t.Errorf("server defaults: %+v", AppConfig.Server)
	}
	if AppConfig.Evaluator.WarningMargin != 2.0 || AppConfig.Evaluator.OfflineAfter != 300 {
		t.Errorf("evaluator defaults: %+v", AppConfig.Evaluator)
	}
	if AppConfig.Settings.TemperatureUnit != "celsius" || AppConfig.Settings.UpdateInterval != 10 {
		t.Errorf("settings defaults: %+v", AppConfig.Settings)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  ingest_port: 9090
evaluator:
  warning_margin: 1.5
settings:
  update_interval: 5
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := LoadConfig(dir); err != nil {
		t.Fatalf("load: %v", err)
	}
	if AppConfig.Server.IngestPort != 9090 {
		t.Errorf("ingest port: got %d", AppConfig.Server.IngestPort)
	}
	if AppConfig.Evaluator.WarningMargin != 1.5 {
		t.Errorf("warning margin: got %v", AppConfig.Evaluator.WarningMargin)
	}
	if AppConfig.Settings.UpdateInterval != 5 {
		t.Errorf("update interval: got %d", AppConfig.Settings.UpdateInterval)
	}
	// Unset keys still fall back to defaults.
	if AppConfig.Server.ConsolePort != 8081 {
		t.Errorf("console port default: got %d", AppConfig.Server.ConsolePort)
	}
}
