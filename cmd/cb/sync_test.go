package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rwielk/cardbridge/internal/config"
)

// writeTestConfig writes a minimal valid config into a temp dir and
// returns its path. The history store points at a sqlite file in the
// same dir so tests never touch the working directory.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
trello:
  key: key123
  token: tok456
  board: board789

notion:
  token: secret_abc
  database: db000

history:
  driver: sqlite
  path: %s
`, filepath.Join(dir, "history.db"))

	path := filepath.Join(dir, "cardbridge.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadTestConfig(t *testing.T, path string) *config.Config {
	t.Helper()
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestSyncCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"sync", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("sync --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "reconciliation pass") {
		t.Errorf("expected help to mention 'reconciliation pass', got: %s", out)
	}
	if !strings.Contains(out, "--config") {
		t.Errorf("expected --config flag in help, got: %s", out)
	}
}

func TestSyncCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"sync", "--config", "/nonexistent/cardbridge.yaml"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestNewSyncCmd_DefaultConfigPath(t *testing.T) {
	cmd := newSyncCmd()
	flag := cmd.Flags().Lookup("config")
	if flag == nil {
		t.Fatal("--config flag not found")
	}
	if flag.DefValue != "cardbridge.yaml" {
		t.Errorf("--config default = %q, want %q", flag.DefValue, "cardbridge.yaml")
	}
	if flag.Shorthand != "c" {
		t.Errorf("--config shorthand = %q, want %q", flag.Shorthand, "c")
	}
}
