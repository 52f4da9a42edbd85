package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"narratix/internal/alignment"
	"narratix/internal/config"
	"narratix/internal/logging"
	"narratix/internal/notifications"
	"narratix/internal/services"
	"narratix/internal/services/whisper"
	"narratix/internal/store"
)

// Aligner produces word timestamps for an assembled speech track. The
// production implementation shells out to whisperx; tests substitute fakes.
type Aligner interface {
	AlignFile(ctx context.Context, source, outputDir string) ([]whisper.Word, error)
}

// Pipeline orchestrates exports over the store's text states.
type Pipeline struct {
	cfg      *config.Config
	store    *store.Store
	logger   *slog.Logger
	notifier notifications.Service
	aligner  Aligner
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithNotifier overrides the notifier built from configuration.
func WithNotifier(notifier notifications.Service) Option {
	return func(p *Pipeline) {
		if notifier != nil {
			p.notifier = notifier
		}
	}
}

// WithAligner substitutes the forced-alignment engine.
func WithAligner(aligner Aligner) Option {
	return func(p *Pipeline) {
		if aligner != nil {
			p.aligner = aligner
		}
	}
}

// NewPipeline builds an export pipeline wired to the configured services.
func NewPipeline(cfg *config.Config, st *store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		store:    st,
		logger:   logging.NewNop(),
		notifier: notifications.NewService(cfg),
		aligner: whisper.NewService(whisper.Config{
			Binary:   cfg.Whisper.Binary,
			Model:    cfg.Whisper.Model,
			Language: cfg.Whisper.Language,
			Device:   cfg.Whisper.Device,
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export runs the pipeline for one text. Repeated calls with unchanged
// inputs return the cached artifact without re-running any stage; changed
// inputs restart from the earliest stale stage (segment audio changes
// invalidate alignment, effect or mix-parameter changes only re-resolve and
// re-mix). force reruns every stage regardless of fingerprints.
func (p *Pipeline) Export(ctx context.Context, textID int64, force bool) (*store.Text, error) {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(p.cfg.Paths.DataDir, "export.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire export lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTransient, "export", "lock", "another export is already running", nil)
	}
	defer func() { _ = lock.Unlock() }()

	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithTextID(ctx, textID)
	logger := logging.WithContext(ctx, p.logger)

	text, err := p.store.GetText(ctx, textID)
	if err != nil {
		return nil, err
	}
	if text == nil {
		return nil, services.Wrap(services.ErrNotFound, "export", "load", fmt.Sprintf("text %d does not exist", textID), nil)
	}

	j, err := p.loadJob(ctx, text)
	if err != nil {
		return nil, err
	}

	if !force && p.cached(text, j) {
		logger.Info("inputs unchanged, returning cached artifact",
			logging.String(logging.FieldEventType, "export_cache_hit"),
			logging.String("output_path", text.OutputPath))
		return text, nil
	}

	needAlign := force || !text.HasAlignment() || text.SpeechDigest != j.speechDigest
	if needAlign {
		align := &alignStage{cfg: p.cfg, store: p.store, logger: logger, aligner: p.aligner, job: j}
		if err := runStage(ctx, runOptions{
			Logger:     p.logger,
			Store:      p.store,
			Notifier:   p.notifier,
			Handler:    align,
			StageName:  "align",
			Processing: store.StateAligning,
			Done:       store.StateResolving,
			Text:       text,
		}); err != nil {
			return nil, err
		}
	} else {
		words, err := alignment.Decode(text.AlignmentJSON)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "export", "cache", "decode cached alignment", err)
		}
		j.words = words
		logger.Info("alignment cache valid, skipping alignment",
			logging.String(logging.FieldEventType, "alignment_cache_hit"))
	}

	resolve := &resolveStage{cfg: p.cfg, store: p.store, logger: logger, job: j}
	if err := runStage(ctx, runOptions{
		Logger:     p.logger,
		Store:      p.store,
		Notifier:   p.notifier,
		Handler:    resolve,
		StageName:  "resolve",
		Processing: store.StateResolving,
		Done:       store.StateMixing,
		Text:       text,
	}); err != nil {
		return nil, err
	}

	mix := &mixStage{cfg: p.cfg, logger: logger, job: j}
	if err := runStage(ctx, runOptions{
		Logger:     p.logger,
		Store:      p.store,
		Notifier:   p.notifier,
		Handler:    mix,
		StageName:  "mix",
		Processing: store.StateMixing,
		Done:       store.StateComplete,
		Text:       text,
	}); err != nil {
		return nil, err
	}

	if err := p.notifier.Publish(ctx, notifications.EventExportCompleted, notifications.Payload{
		"title":      text.Title,
		"outputPath": text.OutputPath,
	}); err != nil {
		logger.Debug("export notification failed", logging.Error(err))
	}

	logger.Info("export completed",
		logging.String(logging.FieldEventType, "export_complete"),
		logging.String("output_path", text.OutputPath))
	return text, nil
}

// loadJob gathers the text's inputs and computes the run fingerprints.
func (p *Pipeline) loadJob(ctx context.Context, text *store.Text) (*job, error) {
	segments, err := p.store.SegmentsByText(ctx, text.ID)
	if err != nil {
		return nil, err
	}
	effects, err := p.store.EffectsByText(ctx, text.ID)
	if err != nil {
		return nil, err
	}
	music, err := p.store.MusicBedByText(ctx, text.ID)
	if err != nil {
		return nil, err
	}

	j := &job{segments: segments, effects: effects, music: music}
	j.speechDigest = speechFingerprint(segments, p.cfg.Mix.SegmentPadding)
	j.mixDigest = mixFingerprint(p.cfg.Mix, j.speechDigest, effects, music)
	return j, nil
}

// cached reports whether a prior export already covers the current inputs.
func (p *Pipeline) cached(text *store.Text, j *job) bool {
	if text.State != store.StateComplete || text.OutputPath == "" {
		return false
	}
	if text.SpeechDigest != j.speechDigest || text.MixDigest != j.mixDigest {
		return false
	}
	_, err := os.Stat(text.OutputPath)
	return err == nil
}
