package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EffectSpec describes a sound effect to record for a text.
type EffectSpec struct {
	Name      string
	Prompt    string
	StartWord int
	EndWord   int
	Rank      int
}

// ReplaceEffects deletes a text's existing effects and records the new set in
// one transaction. Analysis always produces a full effect list, so partial
// merges are never needed; any previously generated effect audio is orphaned
// deliberately because the anchors it was generated for no longer exist.
func (s *Store) ReplaceEffects(ctx context.Context, textID int64, specs []EffectSpec) error {
	for i, spec := range specs {
		if strings.TrimSpace(spec.Name) == "" {
			return fmt.Errorf("effect %d: name is required", i)
		}
		if spec.StartWord < 1 || spec.EndWord < spec.StartWord {
			return fmt.Errorf("effect %q: invalid word range %d..%d", spec.Name, spec.StartWord, spec.EndWord)
		}
	}

	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin effects tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM sound_effects WHERE text_id = ?`, textID); err != nil {
			return fmt.Errorf("delete effects: %w", err)
		}

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		for _, spec := range specs {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO sound_effects (
                    text_id, name, prompt, start_word, end_word, rank, created_at, updated_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				textID,
				spec.Name,
				nullableString(spec.Prompt),
				spec.StartWord,
				spec.EndWord,
				spec.Rank,
				timestamp,
				timestamp,
			); err != nil {
				return fmt.Errorf("insert effect %q: %w", spec.Name, err)
			}
		}

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE texts SET updated_at = ? WHERE id = ?`,
			timestamp,
			textID,
		); err != nil {
			return fmt.Errorf("touch text: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit effects: %w", err)
		}
		return nil
	})
}

// GetEffect fetches an effect by identifier.
func (s *Store) GetEffect(ctx context.Context, id int64) (*Effect, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+effectColumns+` FROM sound_effects WHERE id = ?`, id)
	effect, err := scanEffect(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get effect: %w", err)
	}
	return effect, nil
}

// EffectsByText returns a text's effects ordered by anchor position then id.
// The order is deterministic so repeated mixes place effects identically.
func (s *Store) EffectsByText(ctx context.Context, textID int64) ([]*Effect, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+effectColumns+` FROM sound_effects WHERE text_id = ? ORDER BY start_word, id`,
		textID,
	)
	if err != nil {
		return nil, fmt.Errorf("query effects: %w", err)
	}
	defer rows.Close()

	var effects []*Effect
	for rows.Next() {
		effect, err := scanEffect(rows)
		if err != nil {
			return nil, err
		}
		effects = append(effects, effect)
	}
	return effects, rows.Err()
}

// EffectPlacement is one resolved timeline window to persist on an effect.
type EffectPlacement struct {
	EffectID int64
	Start    float64
	End      float64
}

// SetEffectPlacements replaces a text's resolved effect times in one
// transaction: every effect is cleared first, then the supplied placements
// are written, so readers never observe times from two resolution runs.
func (s *Store) SetEffectPlacements(ctx context.Context, textID int64, placements []EffectPlacement) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin placements tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE sound_effects SET resolved_start = NULL, resolved_end = NULL, updated_at = ? WHERE text_id = ?`,
			timestamp,
			textID,
		); err != nil {
			return fmt.Errorf("clear resolved times: %w", err)
		}

		for _, placement := range placements {
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE sound_effects SET resolved_start = ?, resolved_end = ?, updated_at = ? WHERE id = ? AND text_id = ?`,
				placement.Start,
				placement.End,
				timestamp,
				placement.EffectID,
				textID,
			); err != nil {
				return fmt.Errorf("set resolved times for effect %d: %w", placement.EffectID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit placements: %w", err)
		}
		return nil
	})
}

// SetEffectAudio records generated audio for an effect.
func (s *Store) SetEffectAudio(ctx context.Context, effectID int64, audioPath, audioDigest string, duration float64) error {
	if strings.TrimSpace(audioPath) == "" {
		return errors.New("audio path is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sound_effects SET audio_path = ?, audio_digest = ?, duration_seconds = ?, updated_at = ? WHERE id = ?`,
		audioPath,
		nullableString(audioDigest),
		duration,
		time.Now().UTC().Format(time.RFC3339Nano),
		effectID,
	)
	if err != nil {
		return fmt.Errorf("update effect audio: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("effect %d not found", effectID)
	}
	return nil
}
