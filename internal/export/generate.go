package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"narratix/internal/audio"
	"narratix/internal/config"
	"narratix/internal/logging"
	"narratix/internal/notifications"
	"narratix/internal/services"
	"narratix/internal/services/analysis"
	"narratix/internal/services/audiogen"
	"narratix/internal/services/tts"
	"narratix/internal/store"
	"narratix/internal/textutil"
)

// charsPerSecond approximates narration pace when no rendered audio exists
// yet. Used to size music and effect generation requests.
const charsPerSecond = 12.5

// SpeechSynthesizer renders one segment of narration to WAV bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// AudioGenerator renders music beds and sound effects from prompts.
type AudioGenerator interface {
	Generate(ctx context.Context, prompt string, durationSeconds float64) ([]byte, error)
}

// Analyzer proposes a sound design for a narration text.
type Analyzer interface {
	AnalyzeText(ctx context.Context, content string, wordCount int) (analysis.Result, error)
}

// Generator runs the external generation passes that produce the pipeline's
// raw audio inputs: per-segment speech, the music bed, and sound effects.
type Generator struct {
	cfg      *config.Config
	store    *store.Store
	logger   *slog.Logger
	notifier notifications.Service
	tts      SpeechSynthesizer
	audio    AudioGenerator
	analyzer Analyzer
}

// GeneratorOption customizes the generator.
type GeneratorOption func(*Generator)

// WithSynthesizer substitutes the speech synthesis client.
func WithSynthesizer(s SpeechSynthesizer) GeneratorOption {
	return func(g *Generator) {
		if s != nil {
			g.tts = s
		}
	}
}

// WithAudioGenerator substitutes the music and effect generation client.
func WithAudioGenerator(a AudioGenerator) GeneratorOption {
	return func(g *Generator) {
		if a != nil {
			g.audio = a
		}
	}
}

// WithAnalyzer substitutes the sound design analysis client.
func WithAnalyzer(a Analyzer) GeneratorOption {
	return func(g *Generator) {
		if a != nil {
			g.analyzer = a
		}
	}
}

// WithGeneratorLogger overrides the default no-op logger.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGeneratorNotifier overrides the notifier built from configuration.
func WithGeneratorNotifier(notifier notifications.Service) GeneratorOption {
	return func(g *Generator) {
		if notifier != nil {
			g.notifier = notifier
		}
	}
}

// NewGenerator builds a generator wired to the configured services.
func NewGenerator(cfg *config.Config, st *store.Store, opts ...GeneratorOption) *Generator {
	g := &Generator{
		cfg:      cfg,
		store:    st,
		logger:   logging.NewNop(),
		notifier: notifications.NewService(cfg),
		tts: tts.NewClient(tts.Config{
			APIKey:  cfg.TTS.APIKey,
			BaseURL: cfg.TTS.BaseURL,
			Voice:   cfg.TTS.Voice,
		}),
		audio: audiogen.NewClient(audiogen.Config{
			APIKey:            cfg.AudioGen.APIKey,
			BaseURL:           cfg.AudioGen.BaseURL,
			CompletionTimeout: time.Duration(cfg.AudioGen.CompletionTimeout) * time.Second,
		}),
		analyzer: analysis.NewClient(analysis.Config{
			APIKey:  cfg.Analysis.APIKey,
			BaseURL: cfg.Analysis.BaseURL,
			Model:   cfg.Analysis.Model,
		}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func retryPolicy(cfg *config.Config) services.RetryPolicy {
	policy := services.DefaultRetryPolicy()
	if cfg.Workflow.RetryAttempts > 0 {
		policy.MaxAttempts = cfg.Workflow.RetryAttempts
	}
	if cfg.Workflow.RetryBaseDelay > 0 {
		policy.BaseDelay = time.Duration(cfg.Workflow.RetryBaseDelay) * time.Second
	}
	if cfg.Workflow.RetryMaxDelay > 0 {
		policy.MaxDelay = time.Duration(cfg.Workflow.RetryMaxDelay) * time.Second
	}
	return policy
}

func (g *Generator) retryPolicy() services.RetryPolicy {
	return retryPolicy(g.cfg)
}

// withTimeout bounds one external service call by the configured timeout.
func (g *Generator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Workflow.ExternalTimeout > 0 {
		return context.WithTimeout(ctx, time.Duration(g.cfg.Workflow.ExternalTimeout)*time.Second)
	}
	return context.WithCancel(ctx)
}

func (g *Generator) concurrency() int {
	if g.cfg.Workflow.GenerationConcurrency > 0 {
		return g.cfg.Workflow.GenerationConcurrency
	}
	return 1
}

// Analyze asks the analysis service for a sound design and records it:
// existing effects are replaced wholesale and the soundscape prompt becomes
// the text's music bed prompt. Returns the number of recorded effects.
func (g *Generator) Analyze(ctx context.Context, textID int64) (int, error) {
	ctx = services.WithTextID(ctx, textID)
	logger := logging.WithContext(ctx, g.logger)

	text, err := g.store.GetText(ctx, textID)
	if err != nil {
		return 0, err
	}
	if text == nil {
		return 0, services.Wrap(services.ErrNotFound, "analysis", "load", fmt.Sprintf("text %d does not exist", textID), nil)
	}
	wordCount := textutil.WordCount(text.Content)
	if wordCount == 0 {
		return 0, services.Wrap(services.ErrValidation, "analysis", "analyze", "text has no words", nil)
	}

	var result analysis.Result
	err = services.Retry(ctx, g.retryPolicy(), func(ctx context.Context) error {
		ctx, cancel := g.withTimeout(ctx)
		defer cancel()
		r, err := g.analyzer.AnalyzeText(ctx, text.Content, wordCount)
		if err != nil {
			return services.Wrap(services.ErrTransient, "analysis", "analyze", "sound design request failed", err)
		}
		result = r
		return nil
	})
	if err != nil {
		return 0, err
	}

	specs := make([]store.EffectSpec, 0, len(result.Effects))
	for _, effect := range result.Effects {
		specs = append(specs, store.EffectSpec{
			Name:      effect.Name,
			Prompt:    effect.Prompt,
			StartWord: effect.StartWord,
			EndWord:   effect.EndWord,
			Rank:      effect.Rank,
		})
	}
	if err := g.store.ReplaceEffects(ctx, textID, specs); err != nil {
		return 0, err
	}

	if soundscape := strings.TrimSpace(result.Soundscape); soundscape != "" {
		if _, err := g.store.UpsertMusicBed(ctx, textID, soundscape); err != nil {
			return 0, err
		}
		text.SoundscapePrompt = soundscape
		if err := g.store.UpdateText(ctx, text); err != nil {
			return 0, err
		}
	}

	logger.Info("sound design recorded",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.Int("effects", len(specs)),
		logging.Bool("soundscape", result.Soundscape != ""))

	if err := g.notifier.Publish(ctx, notifications.EventAnalysisCompleted, notifications.Payload{
		"title":   text.Title,
		"effects": fmt.Sprintf("%d", len(specs)),
	}); err != nil {
		logger.Debug("analysis notification failed", logging.Error(err))
	}
	return len(specs), nil
}

// GenerateSpeech renders audio for each segment that has none yet (or all
// segments when force is set), bounded by the configured generation
// concurrency. Returns the number of segments rendered.
func (g *Generator) GenerateSpeech(ctx context.Context, textID int64, force bool) (int, error) {
	ctx = services.WithTextID(ctx, textID)
	logger := logging.WithContext(ctx, g.logger)

	if err := g.cfg.EnsureDirectories(); err != nil {
		return 0, err
	}
	segments, err := g.store.SegmentsByText(ctx, textID)
	if err != nil {
		return 0, err
	}

	pending := make([]*store.Segment, 0, len(segments))
	for _, seg := range segments {
		if force || !seg.HasAudio() {
			pending = append(pending, seg)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	rendered, err := g.runBounded(ctx, len(pending), func(ctx context.Context, i int) error {
		return g.renderSegment(ctx, textID, pending[i])
	})
	if err != nil {
		return rendered, err
	}

	logger.Info("speech rendered",
		logging.String(logging.FieldEventType, "speech_rendered"),
		logging.Int("segments", rendered))
	return rendered, nil
}

func (g *Generator) renderSegment(ctx context.Context, textID int64, seg *store.Segment) error {
	var data []byte
	err := services.Retry(ctx, g.retryPolicy(), func(ctx context.Context) error {
		ctx, cancel := g.withTimeout(ctx)
		defer cancel()
		rendered, err := g.tts.Synthesize(ctx, seg.Content, seg.Voice)
		if err != nil {
			return services.Wrap(services.ErrTransient, "speech", "synthesize",
				fmt.Sprintf("segment %d", seg.Position), err)
		}
		data = rendered
		return nil
	})
	if err != nil {
		return err
	}

	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "speech", "decode",
			fmt.Sprintf("segment %d returned unreadable audio", seg.Position), err)
	}

	path := segmentAudioPath(g.cfg, textID, seg.Position)
	if err := writeAudioFile(path, data); err != nil {
		return err
	}
	return g.store.SetSegmentAudio(ctx, seg.ID, path, digestBytes(data), buf.Duration())
}

// GenerateMusic renders the music bed from the stored soundscape prompt.
// The requested duration covers the estimated speech length plus the
// configured lead-in; the mixer loops shorter takes, so an estimate is fine.
func (g *Generator) GenerateMusic(ctx context.Context, textID int64, force bool) error {
	ctx = services.WithTextID(ctx, textID)
	logger := logging.WithContext(ctx, g.logger)

	if err := g.cfg.EnsureDirectories(); err != nil {
		return err
	}
	music, err := g.store.MusicBedByText(ctx, textID)
	if err != nil {
		return err
	}
	if music == nil {
		return services.Wrap(services.ErrValidation, "music", "generate",
			"no music bed prompt recorded; run analysis first", nil)
	}
	if music.AudioPath != "" && !force {
		return nil
	}

	text, err := g.store.GetText(ctx, textID)
	if err != nil {
		return err
	}
	if text == nil {
		return services.Wrap(services.ErrNotFound, "music", "load", fmt.Sprintf("text %d does not exist", textID), nil)
	}
	segments, err := g.store.SegmentsByText(ctx, textID)
	if err != nil {
		return err
	}
	duration := speechSeconds(text.Content, segments, g.cfg.Mix.SegmentPadding) + g.cfg.Mix.MusicLeadIn

	var data []byte
	err = services.Retry(ctx, g.retryPolicy(), func(ctx context.Context) error {
		ctx, cancel := g.withTimeout(ctx)
		defer cancel()
		rendered, err := g.audio.Generate(ctx, music.Prompt, duration)
		if err != nil {
			return services.Wrap(services.ErrTransient, "music", "generate", "music generation failed", err)
		}
		data = rendered
		return nil
	})
	if err != nil {
		return err
	}

	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "music", "decode", "music service returned unreadable audio", err)
	}

	path := musicAudioPath(g.cfg, textID)
	if err := writeAudioFile(path, data); err != nil {
		return err
	}
	if err := g.store.SetMusicAudio(ctx, textID, path, digestBytes(data), buf.Duration()); err != nil {
		return err
	}

	logger.Info("music rendered",
		logging.String(logging.FieldEventType, "music_rendered"),
		logging.Float64("requested_seconds", duration),
		logging.Float64("rendered_seconds", buf.Duration()))
	return nil
}

// GenerateEffects renders audio for each recorded effect that has none yet
// (or all when force is set). Each request is sized from the anchored word
// window plus the tail the mixer allows. Returns the number rendered.
func (g *Generator) GenerateEffects(ctx context.Context, textID int64, force bool) (int, error) {
	ctx = services.WithTextID(ctx, textID)
	logger := logging.WithContext(ctx, g.logger)

	if err := g.cfg.EnsureDirectories(); err != nil {
		return 0, err
	}
	text, err := g.store.GetText(ctx, textID)
	if err != nil {
		return 0, err
	}
	if text == nil {
		return 0, services.Wrap(services.ErrNotFound, "effects", "load", fmt.Sprintf("text %d does not exist", textID), nil)
	}
	effects, err := g.store.EffectsByText(ctx, textID)
	if err != nil {
		return 0, err
	}

	pending := make([]*store.Effect, 0, len(effects))
	for _, effect := range effects {
		if force || !effect.HasAudio() {
			pending = append(pending, effect)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	rendered, err := g.runBounded(ctx, len(pending), func(ctx context.Context, i int) error {
		return g.renderEffect(ctx, text, pending[i])
	})
	if err != nil {
		return rendered, err
	}

	logger.Info("effects rendered",
		logging.String(logging.FieldEventType, "effects_rendered"),
		logging.Int("effects", rendered))
	return rendered, nil
}

func (g *Generator) renderEffect(ctx context.Context, text *store.Text, effect *store.Effect) error {
	duration := windowSeconds(text.Content, effect.StartWord, effect.EndWord)

	var data []byte
	err := services.Retry(ctx, g.retryPolicy(), func(ctx context.Context) error {
		ctx, cancel := g.withTimeout(ctx)
		defer cancel()
		rendered, err := g.audio.Generate(ctx, effect.Prompt, duration)
		if err != nil {
			return services.Wrap(services.ErrTransient, "effects", "generate", effect.Name, err)
		}
		data = rendered
		return nil
	})
	if err != nil {
		return err
	}

	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "effects", "decode",
			fmt.Sprintf("effect %q returned unreadable audio", effect.Name), err)
	}

	path := effectAudioPath(g.cfg, text.ID, effect.ID)
	if err := writeAudioFile(path, data); err != nil {
		return err
	}
	return g.store.SetEffectAudio(ctx, effect.ID, path, digestBytes(data), buf.Duration())
}

// runBounded executes fn for indices 0..n-1 with at most the configured
// generation concurrency in flight. The first error wins; remaining work
// still drains so partial results are persisted.
func (g *Generator) runBounded(ctx context.Context, n int, fn func(ctx context.Context, i int) error) (int, error) {
	sem := make(chan struct{}, g.concurrency())
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		done     int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(ctx, i); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			mu.Lock()
			done++
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	return done, firstErr
}

// speechSeconds measures the narration length from rendered segment
// durations when they exist, falling back to the pace heuristic.
func speechSeconds(content string, segments []*store.Segment, padding float64) float64 {
	total := 0.0
	measured := true
	for _, seg := range segments {
		if seg.Duration <= 0 {
			measured = false
			break
		}
		total += seg.Duration
	}
	if measured && len(segments) > 0 {
		return total + padding*float64(len(segments)-1)
	}
	return float64(len(content)) / charsPerSecond
}

// windowSeconds sizes an effect request from its anchored word span plus
// the tail allowed past the window, clamped to a sane range.
func windowSeconds(content string, startWord, endWord int) float64 {
	words := textutil.Words(content)
	chars := 0
	for i := startWord - 1; i < endWord && i < len(words); i++ {
		if i < 0 {
			continue
		}
		chars += len(words[i]) + 1
	}
	seconds := float64(chars)/charsPerSecond + 2
	if seconds < 2 {
		seconds = 2
	}
	if seconds > 10 {
		seconds = 10
	}
	return seconds
}

func writeAudioFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	return nil
}
