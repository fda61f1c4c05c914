package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rwielk/cardbridge/internal/bridge"
	"github.com/rwielk/cardbridge/internal/history"
)

func TestStatusCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"status", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("status --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "--watch") {
		t.Errorf("expected --watch flag in help, got: %s", out)
	}
	if !strings.Contains(out, "--limit") {
		t.Errorf("expected --limit flag in help, got: %s", out)
	}
}

func TestStatusCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"status", "--config", "/nonexistent/cardbridge.yaml"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestStatusCmd_EmptyHistory(t *testing.T) {
	configPath := writeTestConfig(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"status", "--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No sync runs recorded yet") {
		t.Errorf("expected empty-history message, got: %s", buf.String())
	}
}

func TestStatusCmd_ShowsRecordedRuns(t *testing.T) {
	configPath := writeTestConfig(t)
	cfg := loadTestConfig(t, configPath)

	store, err := historyFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	started := time.Now().Add(-time.Minute)
	stats := &bridge.Stats{TrelloToNotion: bridge.Tally{Created: 3, Updated: 1}}
	if err := store.Record(history.NewRun(history.TriggerPoll, started, started.Add(2*time.Second), stats, nil)); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"status", "--config", configPath, "--limit", "5"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("status failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "poll") {
		t.Errorf("expected output to contain trigger 'poll', got: %s", out)
	}
	if !strings.Contains(out, "3 created, 1 updated") {
		t.Errorf("expected entry tally in output, got: %s", out)
	}
	if !strings.Contains(out, "ok") {
		t.Errorf("expected 'ok' result, got: %s", out)
	}
}
