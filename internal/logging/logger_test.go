package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"narratix/internal/services"
)

func TestConsoleHandlerFormatsRecord(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("export complete", String("output", "final.ogg"), Int("effects", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Fatalf("missing level in output: %q", line)
	}
	if !strings.Contains(line, "export complete") {
		t.Fatalf("missing message in output: %q", line)
	}
	if !strings.Contains(line, "output=final.ogg") || !strings.Contains(line, "effects=3") {
		t.Fatalf("missing attrs in output: %q", line)
	}
}

func TestConsoleHandlerExtractsComponent(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := NewComponentLogger(slog.New(newConsoleHandler(&buf, levelVar)), "mixer")

	logger.Info("rendering")

	if !strings.Contains(buf.String(), "[mixer]") {
		t.Fatalf("component not rendered: %q", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, levelVar))

	ctx := services.WithTextID(context.Background(), 12)
	ctx = services.WithStage(ctx, "aligning")

	WithContext(ctx, base).Info("stage started")

	line := buf.String()
	if !strings.Contains(line, "text_id=12") || !strings.Contains(line, "stage=aligning") {
		t.Fatalf("context fields missing: %q", line)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("bogus"); got != slog.LevelInfo {
		t.Fatalf("parseLevel(bogus) = %v", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("parseLevel(debug) = %v", got)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
