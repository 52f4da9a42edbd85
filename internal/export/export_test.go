package export_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"narratix/internal/audio"
	"narratix/internal/export"
	"narratix/internal/notifications"
	"narratix/internal/services"
	"narratix/internal/services/analysis"
	"narratix/internal/services/whisper"
	"narratix/internal/store"
	"narratix/internal/testsupport"
	"narratix/internal/textutil"
)

func toneWAV(freq float64, d time.Duration) []byte {
	buf := audio.NewBuffer(audio.WorkRate, int(d.Seconds()*float64(audio.WorkRate)))
	for i := range buf.Samples {
		buf.Samples[i] = float32(0.4 * math.Sin(2*math.Pi*freq*float64(i)/float64(audio.WorkRate)))
	}
	return audio.EncodeWAV(buf)
}

// fakeSynthesizer renders a short tone per request and records call counts.
type fakeSynthesizer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return toneWAV(330, time.Second), nil
}

type fakeAudioGenerator struct {
	mu        sync.Mutex
	durations []float64
	fail      bool
}

func (f *fakeAudioGenerator) Generate(ctx context.Context, prompt string, durationSeconds float64) ([]byte, error) {
	f.mu.Lock()
	f.durations = append(f.durations, durationSeconds)
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, errors.New("generation backend unavailable")
	}
	return toneWAV(520, time.Duration(durationSeconds*float64(time.Second))), nil
}

type fakeAnalyzer struct {
	result analysis.Result
	err    error
}

func (f *fakeAnalyzer) AnalyzeText(ctx context.Context, content string, wordCount int) (analysis.Result, error) {
	return f.result, f.err
}

// fakeAligner spaces the text's words evenly over the track duration.
type fakeAligner struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeAligner) AlignFile(ctx context.Context, source, outputDir string) ([]whisper.Word, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	// The word list is derived from the speech duration alone; the test
	// texts are short enough that even spacing is a valid alignment.
	count := 8
	total := buf.Duration()
	words := make([]whisper.Word, 0, count)
	for i := 0; i < count; i++ {
		start := total * float64(i) / float64(count)
		end := total * float64(i+1) / float64(count)
		words = append(words, whisper.Word{Word: "w", Start: &start, End: &end})
	}
	return words, nil
}

func (f *fakeAligner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(ctx context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *recordingNotifier) Test(ctx context.Context) error { return nil }

func (r *recordingNotifier) saw(event notifications.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

const testNarration = "the keeper climbed the spiral stairs while the storm hammered the glass above"

func seedText(t *testing.T, st *store.Store) *store.Text {
	t.Helper()
	text := testsupport.NewText(t, st, "The Lighthouse", testNarration)
	testsupport.SeedSegments(t, st, text.ID,
		"the keeper climbed the spiral stairs",
		"while the storm hammered the glass above")
	return text
}

func TestExportEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	text := seedText(t, st)
	ctx := context.Background()

	gen := export.NewGenerator(cfg, st, export.WithSynthesizer(&fakeSynthesizer{}))
	rendered, err := gen.GenerateSpeech(ctx, text.ID, false)
	if err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}
	if rendered != 2 {
		t.Fatalf("expected 2 segments rendered, got %d", rendered)
	}

	aligner := &fakeAligner{}
	notifier := &recordingNotifier{}
	pipeline := export.NewPipeline(cfg, st,
		export.WithAligner(aligner), export.WithNotifier(notifier))

	result, err := pipeline.Export(ctx, text.ID, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if result.State != store.StateComplete {
		t.Fatalf("expected complete state, got %s", result.State)
	}
	if result.OutputPath == "" {
		t.Fatal("expected output path on completed text")
	}
	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "RIFF") {
		t.Fatal("expected WAV output by default")
	}
	if result.SpeechDigest == "" || result.MixDigest == "" {
		t.Fatal("expected fingerprints on completed text")
	}
	if !result.HasAlignment() {
		t.Fatal("expected cached alignment on completed text")
	}
	if !notifier.saw(notifications.EventExportCompleted) {
		t.Fatal("expected export completion notification")
	}
	if aligner.callCount() != 1 {
		t.Fatalf("expected one alignment run, got %d", aligner.callCount())
	}
}

func TestExportIsIdempotentAndRestartsOnSpeechChange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	text := seedText(t, st)
	ctx := context.Background()

	gen := export.NewGenerator(cfg, st, export.WithSynthesizer(&fakeSynthesizer{}))
	if _, err := gen.GenerateSpeech(ctx, text.ID, false); err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}

	aligner := &fakeAligner{}
	pipeline := export.NewPipeline(cfg, st, export.WithAligner(aligner))

	first, err := pipeline.Export(ctx, text.ID, false)
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	firstInfo, err := os.Stat(first.OutputPath)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}

	// Unchanged inputs: no stage runs, same artifact.
	second, err := pipeline.Export(ctx, text.ID, false)
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if aligner.callCount() != 1 {
		t.Fatalf("expected cached export to skip alignment, got %d runs", aligner.callCount())
	}
	secondInfo, err := os.Stat(second.OutputPath)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if !firstInfo.ModTime().Equal(secondInfo.ModTime()) {
		t.Fatal("cached export rewrote the artifact")
	}

	// Re-rendering a segment changes its audio digest, which must restart
	// the pipeline from alignment.
	segments, err := st.SegmentsByText(ctx, text.ID)
	if err != nil {
		t.Fatalf("SegmentsByText: %v", err)
	}
	path := testsupport.WriteTone(t, filepath.Join(testsupport.BaseDir(cfg), "rerender.wav"), 150, time.Second)
	if err := st.SetSegmentAudio(ctx, segments[0].ID, path, "rerendered-digest", 1.0); err != nil {
		t.Fatalf("SetSegmentAudio: %v", err)
	}

	third, err := pipeline.Export(ctx, text.ID, false)
	if err != nil {
		t.Fatalf("third export: %v", err)
	}
	if aligner.callCount() != 2 {
		t.Fatalf("expected speech change to re-run alignment, got %d runs", aligner.callCount())
	}
	if third.State != store.StateComplete {
		t.Fatalf("expected complete state, got %s", third.State)
	}
}

func TestExportSkipsAlignmentWhenOnlyMixConfigChanges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	text := seedText(t, st)
	ctx := context.Background()

	gen := export.NewGenerator(cfg, st, export.WithSynthesizer(&fakeSynthesizer{}))
	if _, err := gen.GenerateSpeech(ctx, text.ID, false); err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}

	aligner := &fakeAligner{}
	pipeline := export.NewPipeline(cfg, st, export.WithAligner(aligner))
	if _, err := pipeline.Export(ctx, text.ID, false); err != nil {
		t.Fatalf("first export: %v", err)
	}

	cfg.Mix.MusicGain = 0.3
	result, err := pipeline.Export(ctx, text.ID, false)
	if err != nil {
		t.Fatalf("re-export after config change: %v", err)
	}
	if aligner.callCount() != 1 {
		t.Fatalf("config change must not re-run alignment, got %d runs", aligner.callCount())
	}
	if result.State != store.StateComplete {
		t.Fatalf("expected complete state, got %s", result.State)
	}
}

func TestExportForceRerunsAlignment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	text := seedText(t, st)
	ctx := context.Background()

	gen := export.NewGenerator(cfg, st, export.WithSynthesizer(&fakeSynthesizer{}))
	if _, err := gen.GenerateSpeech(ctx, text.ID, false); err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}

	aligner := &fakeAligner{}
	pipeline := export.NewPipeline(cfg, st, export.WithAligner(aligner))
	if _, err := pipeline.Export(ctx, text.ID, false); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if _, err := pipeline.Export(ctx, text.ID, true); err != nil {
		t.Fatalf("forced export: %v", err)
	}
	if aligner.callCount() != 2 {
		t.Fatalf("expected forced export to re-run alignment, got %d runs", aligner.callCount())
	}
}

func TestExportFailsFatallyOnMissingSegmentAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	text := seedText(t, st)
	ctx := context.Background()

	gen := export.NewGenerator(cfg, st, export.WithSynthesizer(&fakeSynthesizer{}))
	if _, err := gen.GenerateSpeech(ctx, text.ID, false); err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}
	// Add a segment after speech generation so it has no audio.
	if _, err := st.AddSegment(ctx, text.ID, 2, "and the lamp went dark", "voice-0"); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}

	notifier := &recordingNotifier{}
	pipeline := export.NewPipeline(cfg, st,
		export.WithAligner(&fakeAligner{}), export.WithNotifier(notifier))

	_, err := pipeline.Export(ctx, text.ID, false)
	if err == nil {
		t.Fatal("expected export to fail on missing segment audio")
	}
	var incomplete *services.IncompleteSpeechError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteSpeechError, got %v", err)
	}
	if len(incomplete.MissingIndices) != 1 || incomplete.MissingIndices[0] != 2 {
		t.Fatalf("unexpected missing indices: %v", incomplete.MissingIndices)
	}
	if services.Retryable(err) {
		t.Fatal("missing speech audio must not be retryable")
	}

	stored, err := st.GetText(ctx, text.ID)
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if stored.State != store.StateFailed {
		t.Fatalf("expected failed state, got %s", stored.State)
	}
	if stored.ErrorMessage == "" {
		t.Fatal("expected a persisted error message")
	}
	if !notifier.saw(notifications.EventError) {
		t.Fatal("expected error notification")
	}
}

func TestExportMixesMusicAndEffects(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOutputFormat("ogg"))
	st := testsupport.MustOpenStore(t, cfg)
	text := seedText(t, st)
	ctx := context.Background()

	wordCount := textutil.WordCount(testNarration)
	analyzer := &fakeAnalyzer{result: analysis.Result{
		Soundscape: "slow maritime drone with distant thunder",
		Effects: []analysis.EffectSpec{
			{Name: "storm swell", Prompt: "wind and rain against glass", StartWord: 7, EndWord: wordCount, Rank: 1},
			{Name: "stair creak", Prompt: "old iron stairs creaking", StartWord: 3, EndWord: 6, Rank: 2},
		},
	}}

	gen := export.NewGenerator(cfg, st,
		export.WithSynthesizer(&fakeSynthesizer{}),
		export.WithAudioGenerator(&fakeAudioGenerator{}),
		export.WithAnalyzer(analyzer))

	if _, err := gen.GenerateSpeech(ctx, text.ID, false); err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}
	effects, err := gen.Analyze(ctx, text.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if effects != 2 {
		t.Fatalf("expected 2 effects recorded, got %d", effects)
	}
	if err := gen.GenerateMusic(ctx, text.ID, false); err != nil {
		t.Fatalf("GenerateMusic: %v", err)
	}
	if rendered, err := gen.GenerateEffects(ctx, text.ID, false); err != nil || rendered != 2 {
		t.Fatalf("GenerateEffects: rendered=%d err=%v", rendered, err)
	}

	pipeline := export.NewPipeline(cfg, st, export.WithAligner(&fakeAligner{}))
	result, err := pipeline.Export(ctx, text.ID, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Ext(result.OutputPath) != ".ogg" {
		t.Fatalf("expected .ogg artifact, got %s", result.OutputPath)
	}
	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "OggS") {
		t.Fatal("expected an Ogg container")
	}

	stored, err := st.EffectsByText(ctx, text.ID)
	if err != nil {
		t.Fatalf("EffectsByText: %v", err)
	}
	for _, effect := range stored {
		if !effect.IsResolved() {
			t.Fatalf("effect %q has no resolved times after export", effect.Name)
		}
		if *effect.ResolvedEnd <= *effect.ResolvedStart {
			t.Fatalf("effect %q resolved to a collapsed window: %v..%v",
				effect.Name, *effect.ResolvedStart, *effect.ResolvedEnd)
		}
	}
}

func TestExportDegradesWhenMusicAudioIsCorrupt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	text := seedText(t, st)
	ctx := context.Background()

	gen := export.NewGenerator(cfg, st,
		export.WithSynthesizer(&fakeSynthesizer{}),
		export.WithAudioGenerator(&fakeAudioGenerator{}),
		export.WithAnalyzer(&fakeAnalyzer{result: analysis.Result{Soundscape: "low drone"}}))
	if _, err := gen.GenerateSpeech(ctx, text.ID, false); err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}
	if _, err := gen.Analyze(ctx, text.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := gen.GenerateMusic(ctx, text.ID, false); err != nil {
		t.Fatalf("GenerateMusic: %v", err)
	}

	music, err := st.MusicBedByText(ctx, text.ID)
	if err != nil || music == nil {
		t.Fatalf("MusicBedByText: music=%v err=%v", music, err)
	}
	if err := os.WriteFile(music.AudioPath, []byte("not a wav file"), 0o644); err != nil {
		t.Fatalf("corrupt music file: %v", err)
	}

	pipeline := export.NewPipeline(cfg, st, export.WithAligner(&fakeAligner{}))
	result, err := pipeline.Export(ctx, text.ID, false)
	if err != nil {
		t.Fatalf("Export should omit the broken bed, got %v", err)
	}
	if result.State != store.StateComplete {
		t.Fatalf("state = %s, want complete", result.State)
	}
	if _, err := os.Stat(result.OutputPath); err != nil {
		t.Fatalf("output artifact missing: %v", err)
	}
}

func TestExportUnknownTextFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	pipeline := export.NewPipeline(cfg, st, export.WithAligner(&fakeAligner{}))
	_, err := pipeline.Export(context.Background(), 9999, false)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
