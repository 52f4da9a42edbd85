package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateText inserts a new narration text awaiting speech synthesis.
func (s *Store) CreateText(ctx context.Context, title, content, language, externalID string) (*Text, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("title is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("content is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO texts (
            external_id, title, content, language, state, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullableString(externalID),
		title,
		content,
		nullableString(language),
		StateAwaitingSpeech,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert text: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetText(ctx, id)
}

// GetText fetches a text by identifier.
func (s *Store) GetText(ctx context.Context, id int64) (*Text, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+textColumns+` FROM texts WHERE id = ?`, id)
	text, err := scanText(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get text: %w", err)
	}
	return text, nil
}

// FindTextByExternalID returns the text registered under an external identifier.
func (s *Store) FindTextByExternalID(ctx context.Context, externalID string) (*Text, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+textColumns+` FROM texts WHERE external_id = ? ORDER BY id LIMIT 1`,
		externalID,
	)
	text, err := scanText(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by external id: %w", err)
	}
	return text, nil
}

// UpdateText persists changes to an existing text.
func (s *Store) UpdateText(ctx context.Context, text *Text) error {
	if text == nil {
		return errors.New("text is nil")
	}
	text.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE texts
         SET external_id = ?, title = ?, content = ?, language = ?, state = ?,
             error_message = ?, soundscape_prompt = ?, alignment_json = ?, aligned_at = ?,
             speech_digest = ?, mix_digest = ?, output_path = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(text.ExternalID),
		text.Title,
		text.Content,
		nullableString(text.Language),
		text.State,
		nullableString(text.ErrorMessage),
		nullableString(text.SoundscapePrompt),
		nullableString(text.AlignmentJSON),
		nullableTime(text.AlignedAt),
		nullableString(text.SpeechDigest),
		nullableString(text.MixDigest),
		nullableString(text.OutputPath),
		text.UpdatedAt.Format(time.RFC3339Nano),
		text.ID,
	)
	if err != nil {
		return fmt.Errorf("update text: %w", err)
	}
	return nil
}

// List returns texts filtered by state set (or all texts when no state is provided).
func (s *Store) List(ctx context.Context, states ...State) ([]*Text, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + textColumns + ` FROM texts`
	orderClause := ` ORDER BY created_at`

	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = state
		}
		query := baseQuery + ` WHERE state IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list texts: %w", err)
	}
	defer rows.Close()

	var texts []*Text
	for rows.Next() {
		text, err := scanText(rows)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

// SaveAlignment writes the alignment cache and its timestamp in one statement
// so readers never observe a timeline without knowing when it was produced.
func (s *Store) SaveAlignment(ctx context.Context, textID int64, alignmentJSON string, alignedAt time.Time) error {
	if strings.TrimSpace(alignmentJSON) == "" {
		return errors.New("alignment payload is empty")
	}
	now := time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE texts SET alignment_json = ?, aligned_at = ?, updated_at = ? WHERE id = ?`,
		alignmentJSON,
		alignedAt.UTC().Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		textID,
	)
	if err != nil {
		return fmt.Errorf("save alignment: %w", err)
	}
	return nil
}

// ClearAlignment drops the cached alignment for a text.
func (s *Store) ClearAlignment(ctx context.Context, textID int64) error {
	now := time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE texts SET alignment_json = NULL, aligned_at = NULL, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		textID,
	)
	if err != nil {
		return fmt.Errorf("clear alignment: %w", err)
	}
	return nil
}

// RetryFailed moves failed texts back to awaiting_speech for reprocessing.
// The export orchestrator skips work whose artifacts are still valid, so a
// retried text resumes at its earliest incomplete stage.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE texts SET state = ?, error_message = NULL, updated_at = ? WHERE state = ?`,
			StateAwaitingSpeech,
			now,
			StateFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed texts: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StateAwaitingSpeech, now)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE texts SET state = ?, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND state = '` + string(StateFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected texts: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of texts grouped by state.
func (s *Store) Stats(ctx context.Context) (map[State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM texts GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("text stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[State]int)
	for rows.Next() {
		var state State
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

// Health aggregates text state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for state, count := range stats {
		health.Total += count
		switch state {
		case StateAwaitingSpeech:
			health.Pending += count
		case StateFailed:
			health.Failed += count
		case StateComplete:
			health.Complete += count
		default:
			if _, ok := processingStates[state]; ok {
				health.Processing += count
			}
		}
	}
	return health, nil
}

// RemoveText deletes a text and its dependent artifacts.
func (s *Store) RemoveText(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM texts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete text: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearComplete removes only completed texts.
func (s *Store) ClearComplete(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM texts WHERE state = ?`, StateComplete)
	if err != nil {
		return 0, fmt.Errorf("clear complete: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed texts.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM texts WHERE state = ?`, StateFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}
