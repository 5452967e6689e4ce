package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lockplane/idxmaint/internal/config"
	"github.com/lockplane/idxmaint/internal/planner"
)

func TestWriteConfigFile(t *testing.T) {
	dir := t.TempDir()

	path, err := writeConfigFile(dir, "postgres://example/app", false)
	if err != nil {
		t.Fatalf("writeConfigFile failed: %v", err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Environments["local"].DatabaseURL != "postgres://example/app" {
		t.Errorf("unexpected database_url %q", cfg.Environments["local"].DatabaseURL)
	}
	if cfg.Budget != planner.DefaultBudget() {
		t.Errorf("generated budget %+v, want defaults %+v", cfg.Budget, planner.DefaultBudget())
	}
	if cfg.DefaultEnvironment != "local" {
		t.Errorf("expected default_environment local, got %q", cfg.DefaultEnvironment)
	}
}

func TestWriteConfigFile_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte("existing"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := writeConfigFile(dir, "postgres://x", false); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected an already-exists error, got %v", err)
	}

	if _, err := writeConfigFile(dir, "postgres://x", true); err != nil {
		t.Fatalf("forced write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "existing") {
		t.Error("forced write should replace the old file")
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := executeRoot(t, "init", "--dir", dir, "--database-url", "app.db")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, config.FileName) {
		t.Errorf("expected output to name the config file, got %q", out)
	}

	cfg, err := config.LoadFile(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Environments["local"].DatabaseURL != "app.db" {
		t.Errorf("unexpected database_url %q", cfg.Environments["local"].DatabaseURL)
	}
}
