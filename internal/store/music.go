package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UpsertMusicBed records the background music prompt for a text. A second
// call replaces the prompt and clears any previously generated audio so the
// bed is regenerated against the new prompt.
func (s *Store) UpsertMusicBed(ctx context.Context, textID int64, prompt string) (*MusicBed, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("music prompt is required")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO music_beds (text_id, prompt, created_at, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (text_id) DO UPDATE SET
             prompt = excluded.prompt,
             audio_path = NULL,
             audio_digest = NULL,
             duration_seconds = 0,
             updated_at = excluded.updated_at`,
		textID,
		prompt,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert music bed: %w", err)
	}
	return s.MusicBedByText(ctx, textID)
}

// MusicBedByText returns the music bed for a text, or nil when none exists.
func (s *Store) MusicBedByText(ctx context.Context, textID int64) (*MusicBed, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+musicColumns+` FROM music_beds WHERE text_id = ?`, textID)
	bed, err := scanMusicBed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get music bed: %w", err)
	}
	return bed, nil
}

// SetMusicAudio records generated audio for a text's music bed.
func (s *Store) SetMusicAudio(ctx context.Context, textID int64, audioPath, audioDigest string, duration float64) error {
	if strings.TrimSpace(audioPath) == "" {
		return errors.New("audio path is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE music_beds SET audio_path = ?, audio_digest = ?, duration_seconds = ?, updated_at = ? WHERE text_id = ?`,
		audioPath,
		nullableString(audioDigest),
		duration,
		time.Now().UTC().Format(time.RFC3339Nano),
		textID,
	)
	if err != nil {
		return fmt.Errorf("update music audio: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("music bed for text %d not found", textID)
	}
	return nil
}
