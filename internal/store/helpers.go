package store

import (
	"database/sql"
	"errors"
	"time"
)

const textColumns = "id, external_id, title, content, language, state, error_message, soundscape_prompt, alignment_json, aligned_at, speech_digest, mix_digest, output_path, created_at, updated_at"

func scanText(scanner interface{ Scan(dest ...any) error }) (*Text, error) {
	var (
		id            int64
		externalID    sql.NullString
		title         string
		content       string
		language      sql.NullString
		stateStr      string
		errorMessage  sql.NullString
		soundscape    sql.NullString
		alignmentJSON sql.NullString
		alignedRaw    sql.NullString
		speechDigest  sql.NullString
		mixDigest     sql.NullString
		outputPath    sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&externalID,
		&title,
		&content,
		&language,
		&stateStr,
		&errorMessage,
		&soundscape,
		&alignmentJSON,
		&alignedRaw,
		&speechDigest,
		&mixDigest,
		&outputPath,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	text := &Text{
		ID:               id,
		ExternalID:       externalID.String,
		Title:            title,
		Content:          content,
		Language:         language.String,
		State:            State(stateStr),
		ErrorMessage:     errorMessage.String,
		SoundscapePrompt: soundscape.String,
		AlignmentJSON:    alignmentJSON.String,
		SpeechDigest:     speechDigest.String,
		MixDigest:        mixDigest.String,
		OutputPath:       outputPath.String,
	}
	if alignedRaw.Valid {
		if aligned, err := parseTimeString(alignedRaw.String); err == nil {
			text.AlignedAt = &aligned
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		text.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		text.UpdatedAt = updated
	}
	return text, nil
}

const segmentColumns = "id, text_id, position, content, voice, audio_path, audio_digest, duration_seconds, created_at, updated_at"

func scanSegment(scanner interface{ Scan(dest ...any) error }) (*Segment, error) {
	var (
		id          int64
		textID      int64
		position    int
		content     string
		voice       sql.NullString
		audioPath   sql.NullString
		audioDigest sql.NullString
		duration    sql.NullFloat64
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&textID,
		&position,
		&content,
		&voice,
		&audioPath,
		&audioDigest,
		&duration,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	segment := &Segment{
		ID:          id,
		TextID:      textID,
		Position:    position,
		Content:     content,
		Voice:       voice.String,
		AudioPath:   audioPath.String,
		AudioDigest: audioDigest.String,
		Duration:    duration.Float64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		segment.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		segment.UpdatedAt = updated
	}
	return segment, nil
}

const effectColumns = "id, text_id, name, prompt, start_word, end_word, rank, audio_path, audio_digest, duration_seconds, resolved_start, resolved_end, created_at, updated_at"

func scanEffect(scanner interface{ Scan(dest ...any) error }) (*Effect, error) {
	var (
		id            int64
		textID        int64
		name          string
		prompt        sql.NullString
		startWord     int
		endWord       int
		rank          int
		audioPath     sql.NullString
		audioDigest   sql.NullString
		duration      sql.NullFloat64
		resolvedStart sql.NullFloat64
		resolvedEnd   sql.NullFloat64
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&textID,
		&name,
		&prompt,
		&startWord,
		&endWord,
		&rank,
		&audioPath,
		&audioDigest,
		&duration,
		&resolvedStart,
		&resolvedEnd,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	effect := &Effect{
		ID:          id,
		TextID:      textID,
		Name:        name,
		Prompt:      prompt.String,
		StartWord:   startWord,
		EndWord:     endWord,
		Rank:        rank,
		AudioPath:   audioPath.String,
		AudioDigest: audioDigest.String,
		Duration:    duration.Float64,
	}
	if resolvedStart.Valid && resolvedEnd.Valid {
		start, end := resolvedStart.Float64, resolvedEnd.Float64
		effect.ResolvedStart = &start
		effect.ResolvedEnd = &end
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		effect.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		effect.UpdatedAt = updated
	}
	return effect, nil
}

const musicColumns = "id, text_id, prompt, audio_path, audio_digest, duration_seconds, created_at, updated_at"

func scanMusicBed(scanner interface{ Scan(dest ...any) error }) (*MusicBed, error) {
	var (
		id          int64
		textID      int64
		prompt      sql.NullString
		audioPath   sql.NullString
		audioDigest sql.NullString
		duration    sql.NullFloat64
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&textID,
		&prompt,
		&audioPath,
		&audioDigest,
		&duration,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	bed := &MusicBed{
		ID:          id,
		TextID:      textID,
		Prompt:      prompt.String,
		AudioPath:   audioPath.String,
		AudioDigest: audioDigest.String,
		Duration:    duration.Float64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		bed.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		bed.UpdatedAt = updated
	}
	return bed, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
