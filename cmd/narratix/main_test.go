package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
staging_dir = %q
output_dir = %q
log_dir = %q
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "staging"),
		filepath.Join(base, "output"),
		filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseTextID(t *testing.T) {
	if _, err := parseTextID("abc"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if _, err := parseTextID("0"); err == nil {
		t.Fatal("expected error for zero id")
	}
	id, err := parseTextID("42")
	if err != nil || id != 42 {
		t.Fatalf("expected 42, got %d (%v)", id, err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected output to mention %s, got %q", target, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	// Refuses to clobber an existing file.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestIngestAndQueueList(t *testing.T) {
	cfgPath := writeTestConfig(t)
	manifest := filepath.Join(t.TempDir(), "segments.json")
	if err := os.WriteFile(manifest, []byte(`[
		{"character": "narrator", "text": "It began at dusk."},
		{"character": "keeper", "text": "Light the lamp."}
	]`), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	out, err := runCommand(t, "-c", cfgPath, "ingest",
		"--title", "The Lighthouse", "--segments", manifest)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !strings.Contains(out, "2 segments") {
		t.Fatalf("unexpected ingest output: %q", out)
	}

	out, err = runCommand(t, "-c", cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "The Lighthouse") || !strings.Contains(out, "awaiting_speech") {
		t.Fatalf("queue list missing ingested text: %q", out)
	}

	out, err = runCommand(t, "-c", cfgPath, "status", "1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Segments:    2 (0 with audio)") {
		t.Fatalf("unexpected status output: %q", out)
	}

	out, err = runCommand(t, "-c", cfgPath, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	if !strings.Contains(out, "Total:      1") {
		t.Fatalf("unexpected health output: %q", out)
	}

	out, err = runCommand(t, "-c", cfgPath, "queue", "remove", "1")
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	if !strings.Contains(out, "Removed text #1") {
		t.Fatalf("unexpected remove output: %q", out)
	}
}

func TestStatusUnknownText(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := runCommand(t, "-c", cfgPath, "status", "99"); err == nil {
		t.Fatal("expected error for unknown text")
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Title"},
		[][]string{{"1"}},
		[]columnAlignment{alignRight, alignLeft},
	)
	if !strings.Contains(out, "ID") || !strings.Contains(out, "1") {
		t.Fatalf("unexpected table output: %q", out)
	}
}
