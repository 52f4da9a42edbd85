package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddSegment inserts a speech segment at the given timeline position.
func (s *Store) AddSegment(ctx context.Context, textID int64, position int, content, voice string) (*Segment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("segment content is required")
	}
	if position < 0 {
		return nil, fmt.Errorf("segment position %d is negative", position)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO segments (
            text_id, position, content, voice, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		textID,
		position,
		content,
		nullableString(voice),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert segment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSegment(ctx, id)
}

// GetSegment fetches a segment by identifier.
func (s *Store) GetSegment(ctx context.Context, id int64) (*Segment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+segmentColumns+` FROM segments WHERE id = ?`, id)
	segment, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return segment, nil
}

// SegmentsByText returns the segments of a text in timeline order.
func (s *Store) SegmentsByText(ctx context.Context, textID int64) ([]*Segment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE text_id = ? ORDER BY position`,
		textID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []*Segment
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}

// SetSegmentAudio records synthesized audio for a segment and invalidates the
// owning text's alignment cache in the same transaction. The cache indexes
// into the concatenated timeline, so any audio change makes it stale.
func (s *Store) SetSegmentAudio(ctx context.Context, segmentID int64, audioPath, audioDigest string, duration float64) error {
	if strings.TrimSpace(audioPath) == "" {
		return errors.New("audio path is required")
	}

	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin segment audio tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)

		res, err := tx.ExecContext(
			ctx,
			`UPDATE segments SET audio_path = ?, audio_digest = ?, duration_seconds = ?, updated_at = ? WHERE id = ?`,
			audioPath,
			nullableString(audioDigest),
			duration,
			timestamp,
			segmentID,
		)
		if err != nil {
			return fmt.Errorf("update segment audio: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("segment %d not found", segmentID)
		}

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE texts SET alignment_json = NULL, aligned_at = NULL, updated_at = ?
             WHERE id = (SELECT text_id FROM segments WHERE id = ?)`,
			timestamp,
			segmentID,
		); err != nil {
			return fmt.Errorf("invalidate alignment: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit segment audio: %w", err)
		}
		return nil
	})
}

// MissingSegmentAudio returns the positions of segments that still lack audio.
func (s *Store) MissingSegmentAudio(ctx context.Context, textID int64) ([]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT position FROM segments WHERE text_id = ? AND (audio_path IS NULL OR audio_path = '') ORDER BY position`,
		textID,
	)
	if err != nil {
		return nil, fmt.Errorf("query missing audio: %w", err)
	}
	defer rows.Close()

	var positions []int
	for rows.Next() {
		var position int
		if err := rows.Scan(&position); err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, rows.Err()
}
