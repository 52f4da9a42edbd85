package whisper_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"narratix/internal/services/whisper"
)

const sampleJSON = `{
  "segments": [
    {
      "text": "The keeper climbed",
      "start": 0.0,
      "end": 1.4,
      "words": [
        {"word": "The", "start": 0.0, "end": 0.2},
        {"word": "keeper", "start": 0.25, "end": 0.7},
        {"word": "climbed", "start": 0.75, "end": 1.4}
      ]
    },
    {
      "text": "the stairs",
      "start": 1.5,
      "end": 2.2,
      "words": [
        {"word": "the"},
        {"word": "stairs", "start": 1.8, "end": 2.2},
        {"word": "  "}
      ]
    }
  ]
}`

func TestParseWordsFlattensSegments(t *testing.T) {
	words, err := whisper.ParseWords([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("ParseWords failed: %v", err)
	}
	if len(words) != 5 {
		t.Fatalf("expected 5 words, got %d", len(words))
	}
	if words[0].Word != "The" || words[4].Word != "stairs" {
		t.Fatalf("unexpected words: %q .. %q", words[0].Word, words[4].Word)
	}
	if !words[1].Timed() {
		t.Fatal("expected keeper to carry timestamps")
	}
	if words[3].Timed() {
		t.Fatal("expected untimed word to report Timed() == false")
	}
	if got := *words[2].End; got != 1.4 {
		t.Fatalf("climbed end = %v", got)
	}
}

func TestParseWordsRejectsInvalidJSON(t *testing.T) {
	if _, err := whisper.ParseWords([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAlignFileInvokesRunnerAndReadsOutput(t *testing.T) {
	workDir := t.TempDir()
	source := filepath.Join(workDir, "narration.wav")
	if err := os.WriteFile(source, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	svc := whisper.NewService(whisper.Config{Model: "large-v3", Language: "english"})
	var gotArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = append([]string{name}, args...)
		return os.WriteFile(filepath.Join(workDir, "narration.json"), []byte(sampleJSON), 0o644)
	})

	words, err := svc.AlignFile(context.Background(), source, workDir)
	if err != nil {
		t.Fatalf("AlignFile failed: %v", err)
	}
	if len(words) != 5 {
		t.Fatalf("expected 5 words, got %d", len(words))
	}

	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "--language en") {
		t.Fatalf("expected normalized language flag, got %q", joined)
	}
	if !strings.Contains(joined, "--device cpu") || !strings.Contains(joined, "--compute_type float32") {
		t.Fatalf("expected cpu defaults, got %q", joined)
	}
}

func TestAlignFileRequiresSource(t *testing.T) {
	svc := whisper.NewService(whisper.Config{})
	if _, err := svc.AlignFile(context.Background(), "", t.TempDir()); err == nil {
		t.Fatal("expected error for empty source")
	}
}
