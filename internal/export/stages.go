package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"narratix/internal/alignment"
	"narratix/internal/audio"
	"narratix/internal/config"
	"narratix/internal/logging"
	"narratix/internal/mixer"
	"narratix/internal/placement"
	"narratix/internal/services"
	"narratix/internal/services/whisper"
	"narratix/internal/store"
	"narratix/internal/timeline"
)

// job carries the in-memory artifacts shared by the stages of one export
// run. Stages fill it progressively; nothing in it outlives the run.
type job struct {
	segments     []*store.Segment
	effects      []*store.Effect
	music        *store.MusicBed
	speechDigest string
	mixDigest    string

	timeline   *timeline.Timeline
	words      *alignment.Alignment
	placements []placement.Placement
}

func timelineSegments(segments []*store.Segment) []timeline.Segment {
	out := make([]timeline.Segment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, timeline.Segment{ID: seg.ID, Position: seg.Position, Path: seg.AudioPath})
	}
	return out
}

// alignStage assembles the speech timeline, runs forced alignment over the
// concatenated track, and caches the word timeline on the text.
type alignStage struct {
	cfg     *config.Config
	store   *store.Store
	logger  *slog.Logger
	aligner Aligner
	job     *job
}

func (s *alignStage) Prepare(ctx context.Context, text *store.Text) error {
	if len(s.job.segments) == 0 {
		return services.Wrap(services.ErrValidation, "align", "prepare", "text has no segments", nil)
	}
	missing, err := s.store.MissingSegmentAudio(ctx, text.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "align", "prepare", "check segment audio", err)
	}
	if len(missing) > 0 {
		return services.NewIncompleteSpeechError(text.ID, missing)
	}
	return nil
}

func (s *alignStage) Execute(ctx context.Context, text *store.Text) error {
	tl, err := timeline.Build(text.ID, timelineSegments(s.job.segments), s.cfg.Mix.SegmentPadding, timeline.LoadWAVFile)
	if err != nil {
		return err
	}
	s.job.timeline = tl

	dir := alignmentDir(s.cfg, text.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create alignment dir: %w", err)
	}
	speechPath := speechTrackPath(s.cfg, text.ID)
	if err := os.WriteFile(speechPath, audio.EncodeWAV(tl.Buffer), 0o644); err != nil {
		return fmt.Errorf("write speech track: %w", err)
	}

	var words []whisper.Word
	err = services.Retry(ctx, retryPolicy(s.cfg), func(ctx context.Context) error {
		if s.cfg.Workflow.ExternalTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.Workflow.ExternalTimeout)*time.Second)
			defer cancel()
		}
		w, err := s.aligner.AlignFile(ctx, speechPath, dir)
		if err != nil {
			return services.Wrap(services.ErrTransient, "align", "whisperx", "forced alignment failed", err)
		}
		words = w
		return nil
	})
	if err != nil {
		return err
	}

	aligned, err := alignment.Align(text.Content, words, tl.Duration())
	if err != nil {
		return services.Wrap(services.ErrValidation, "align", "map words", "alignment mapping failed", err)
	}
	payload, err := aligned.Encode()
	if err != nil {
		return fmt.Errorf("encode alignment: %w", err)
	}

	now := time.Now().UTC()
	if err := s.store.SaveAlignment(ctx, text.ID, payload, now); err != nil {
		return err
	}
	text.AlignmentJSON = payload
	text.AlignedAt = &now
	text.SpeechDigest = s.job.speechDigest
	s.job.words = aligned

	s.logger.Info("alignment cached",
		logging.String(logging.FieldEventType, "alignment_cached"),
		logging.Int("word_count", len(aligned.Words)),
		logging.Float64("speech_seconds", tl.Duration()))
	return nil
}

// resolveStage maps effect word anchors onto timeline seconds. The mix stage
// consumes the placements from the job; the resolved times are also written
// back to the effect rows for status surfaces.
type resolveStage struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
	job    *job
}

func (s *resolveStage) Prepare(ctx context.Context, text *store.Text) error {
	if s.job.words == nil {
		if !text.HasAlignment() {
			return services.Wrap(services.ErrValidation, "resolve", "prepare", "no alignment available", nil)
		}
		decoded, err := alignment.Decode(text.AlignmentJSON)
		if err != nil {
			return services.Wrap(services.ErrValidation, "resolve", "prepare", "decode cached alignment", err)
		}
		s.job.words = decoded
	}
	if s.job.timeline == nil {
		tl, err := timeline.Build(text.ID, timelineSegments(s.job.segments), s.cfg.Mix.SegmentPadding, timeline.LoadWAVFile)
		if err != nil {
			return err
		}
		s.job.timeline = tl
	}
	return nil
}

func (s *resolveStage) Execute(ctx context.Context, text *store.Text) error {
	effects := capEffectsByRank(s.job.effects, s.cfg.Mix.MaxEffects)
	anchors := make([]placement.Anchor, 0, len(effects))
	for _, effect := range effects {
		anchors = append(anchors, placement.Anchor{
			EffectID:  effect.ID,
			StartWord: effect.StartWord,
			EndWord:   effect.EndWord,
		})
	}

	placements, skips := placement.Resolve(anchors, s.job.words, s.job.timeline.Duration())
	for _, skip := range skips {
		s.logger.Warn("effect skipped",
			logging.String(logging.FieldEventType, "effect_skipped"),
			logging.Int64("effect_id", skip.EffectID),
			logging.String("reason", skip.Reason))
	}
	for _, placed := range placements {
		if placed.Clamped {
			s.logger.Warn("effect anchor clamped to alignment boundary",
				logging.String(logging.FieldEventType, "effect_anchor_clamped"),
				logging.Int64("effect_id", placed.EffectID))
		}
	}
	s.job.placements = placements

	persisted := make([]store.EffectPlacement, 0, len(placements))
	for _, placed := range placements {
		persisted = append(persisted, store.EffectPlacement{
			EffectID: placed.EffectID,
			Start:    placed.Start,
			End:      placed.End,
		})
	}
	if err := s.store.SetEffectPlacements(ctx, text.ID, persisted); err != nil {
		return err
	}

	s.logger.Info("placements resolved",
		logging.String(logging.FieldEventType, "placements_resolved"),
		logging.Int("placed", len(placements)),
		logging.Int("skipped", len(skips)))
	return nil
}

// capEffectsByRank keeps the maxEffects most important effects. Order of
// the returned slice follows rank then id so the cut is deterministic.
func capEffectsByRank(effects []*store.Effect, maxEffects int) []*store.Effect {
	if maxEffects <= 0 || len(effects) <= maxEffects {
		return effects
	}
	ordered := make([]*store.Effect, len(effects))
	copy(ordered, effects)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Rank != ordered[j].Rank {
			return ordered[i].Rank < ordered[j].Rank
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered[:maxEffects]
}

// mixStage renders the final track and publishes it to the output directory.
type mixStage struct {
	cfg    *config.Config
	logger *slog.Logger
	job    *job
}

func (s *mixStage) Prepare(ctx context.Context, text *store.Text) error {
	if _, err := mixer.Extension(s.cfg.Mix.OutputFormat); err != nil {
		return services.Wrap(services.ErrConfiguration, "mix", "prepare", "output format", err)
	}
	if err := os.MkdirAll(s.cfg.Paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

func (s *mixStage) Execute(ctx context.Context, text *store.Text) error {
	in := mixer.Input{Speech: s.job.timeline.Buffer}

	if s.job.music != nil {
		switch {
		case s.job.music.AudioPath == "":
			s.logger.Warn("background music unavailable, mixing without it",
				logging.String(logging.FieldEventType, "music_omitted"),
				logging.String("reason", "no rendered audio"))
		default:
			buf, err := timeline.LoadWAVFile(s.job.music.AudioPath)
			if err != nil {
				s.logger.Warn("background music unavailable, mixing without it",
					logging.String(logging.FieldEventType, "music_omitted"),
					logging.Error(err))
			} else {
				in.Music = buf
			}
		}
	}

	byID := make(map[int64]*store.Effect, len(s.job.effects))
	for _, effect := range s.job.effects {
		byID[effect.ID] = effect
	}
	for _, placed := range s.job.placements {
		effect := byID[placed.EffectID]
		if effect == nil || !effect.HasAudio() {
			s.logger.Warn("effect has no audio, leaving it out of the mix",
				logging.Int64("effect_id", placed.EffectID))
			continue
		}
		buf, err := timeline.LoadWAVFile(effect.AudioPath)
		if err != nil {
			s.logger.Warn("effect audio unreadable, leaving it out of the mix",
				logging.Int64("effect_id", effect.ID),
				logging.Error(err))
			continue
		}
		in.Effects = append(in.Effects, mixer.EffectInput{
			EffectID: effect.ID,
			Audio:    buf,
			Start:    placed.Start,
			End:      placed.End,
		})
	}

	out, err := mixer.Mix(in, mixParams(s.cfg.Mix))
	if err != nil {
		return err
	}
	data, err := mixer.Encode(out, s.cfg.Mix.OutputFormat)
	if err != nil {
		return err
	}

	ext, err := mixer.Extension(s.cfg.Mix.OutputFormat)
	if err != nil {
		return err
	}
	outputPath := filepath.Join(s.cfg.Paths.OutputDir, outputFileName(text.Title, text.ID, ext))
	partial := outputPath + ".partial"
	if err := os.WriteFile(partial, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(partial, outputPath); err != nil {
		return fmt.Errorf("publish output: %w", err)
	}

	text.OutputPath = outputPath
	text.SpeechDigest = s.job.speechDigest
	text.MixDigest = s.job.mixDigest

	s.logger.Info("mix rendered",
		logging.String(logging.FieldEventType, "mix_rendered"),
		logging.String("output_path", outputPath),
		logging.Float64("duration_seconds", out.Duration()),
		logging.Int("effects_mixed", len(in.Effects)),
		logging.Bool("music", in.Music != nil))
	return nil
}

func mixParams(mix config.Mix) mixer.Params {
	return mixer.Params{
		TargetLUFS:   mix.TargetLUFS,
		MusicGain:    mix.MusicGain,
		EffectGain:   mix.EffectGain,
		MusicLeadIn:  mix.MusicLeadIn,
		MusicFadeIn:  mix.MusicFadeIn,
		MusicFadeOut: mix.MusicFadeOut,
	}
}
