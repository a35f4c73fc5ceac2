package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_PopulatesAppConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "cmd", "config"), 0o755); err != nil {
		t.Fatalf("mkdir sandbox config dir: %v", err)
	}
	yaml := []byte("node:\n  address: \"10.0.0.1:3001\"\n  network_magic: 1\n  node_to_node: false\n  conn_timeout_ms: 500\nstore:\n  db_path: \"x.sqlite\"\npool:\n  id: \"\"\n  vrf_key_path: \"\"\nconsensus:\n  variant: \"tpraos\"\nlogging:\n  level: \"debug\"\n  file: \"\"\n")
	if err := os.WriteFile(filepath.Join(dir, "cmd", "config", "default.yaml"), yaml, 0o600); err != nil {
		t.Fatalf("write default.yaml: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	viper.Reset()

	LoadConfig("")

	if AppConfig.Node.Address != "10.0.0.1:3001" {
		t.Fatalf("unexpected address: %q", AppConfig.Node.Address)
	}
	if AppConfig.Consensus.Variant != "tpraos" {
		t.Fatalf("unexpected consensus variant: %q", AppConfig.Consensus.Variant)
	}
	if AppConfig.Logging.Level != "debug" {
		t.Fatalf("unexpected logging level: %q", AppConfig.Logging.Level)
	}
}

func TestLoadConfig_PanicsOnLoadFailure(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	viper.Reset()

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected LoadConfig to panic when no config file is present")
		}
	}()
	LoadConfig("")
}
