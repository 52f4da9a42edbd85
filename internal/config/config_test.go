package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"narratix/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, _, err := config.Load(filepath.Join(t.TempDir(), "missing", "config.toml")); err == nil {
		t.Fatal("expected explicit missing path to fail")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + dir + `/data"
staging_dir = "` + dir + `/staging"

[mix]
music_gain = 0.25
output_format = "OGG"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("expected config file to be found")
	}
	if cfg.Mix.MusicGain != 0.25 {
		t.Fatalf("music gain override lost: %v", cfg.Mix.MusicGain)
	}
	if cfg.Mix.OutputFormat != "ogg" {
		t.Fatalf("output format not normalized: %q", cfg.Mix.OutputFormat)
	}
	if cfg.Mix.EffectGain == 0 {
		t.Fatal("defaults not applied for unset keys")
	}
}

func TestValidateRejectsBadGain(t *testing.T) {
	cfg := config.Default()
	cfg.Mix.MusicGain = 1.5
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "music_gain") {
		t.Fatalf("expected music_gain failure, got %v", err)
	}
}

func TestValidateRejectsUnknownFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Mix.OutputFormat = "flac"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unsupported output format to fail validation")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.StagingDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("directory %s missing: %v", dir, err)
		}
	}
}
