package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"narratix/internal/services"
	"narratix/internal/store"
)

// SegmentEntry is one narration unit of an ingested text: the spoken text
// plus the voice that should read it. Character is kept for provenance and
// used as the voice when no explicit voice is given.
type SegmentEntry struct {
	Character string `json:"character"`
	Voice     string `json:"voice,omitempty"`
	Text      string `json:"text"`
}

// ParseSegments decodes a segment manifest: a JSON array of entries in
// narration order.
func ParseSegments(data []byte) ([]SegmentEntry, error) {
	var entries []SegmentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse segment manifest: %w", err)
	}
	for i, entry := range entries {
		if strings.TrimSpace(entry.Text) == "" {
			return nil, fmt.Errorf("segment %d: text is required", i)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("segment manifest is empty")
	}
	return entries, nil
}

// IngestRequest describes a text to record along with its ordered segments.
type IngestRequest struct {
	Title      string
	Language   string
	ExternalID string
	Entries    []SegmentEntry
}

// Ingest records a text and its segments. The full narration content is the
// segment texts joined in order; word positions used by effect anchors count
// over that joined content. A duplicate external id is rejected so repeated
// ingests of the same source stay idempotent at the caller.
func Ingest(ctx context.Context, st *store.Store, req IngestRequest) (*store.Text, error) {
	if len(req.Entries) == 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "segments", "at least one segment is required", nil)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "ingest", "title", "title is required", nil)
	}

	if externalID := strings.TrimSpace(req.ExternalID); externalID != "" {
		existing, err := st.FindTextByExternalID(ctx, externalID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, services.Wrap(services.ErrValidation, "ingest", "external id",
				fmt.Sprintf("text with external id %q already exists (#%d)", externalID, existing.ID), nil)
		}
	}

	parts := make([]string, 0, len(req.Entries))
	for _, entry := range req.Entries {
		parts = append(parts, strings.TrimSpace(entry.Text))
	}
	content := strings.Join(parts, "\n\n")

	text, err := st.CreateText(ctx, req.Title, content, req.Language, req.ExternalID)
	if err != nil {
		return nil, err
	}
	for i, entry := range req.Entries {
		voice := strings.TrimSpace(entry.Voice)
		if voice == "" {
			voice = strings.TrimSpace(entry.Character)
		}
		if _, err := st.AddSegment(ctx, text.ID, i, entry.Text, voice); err != nil {
			return nil, fmt.Errorf("record segment %d: %w", i, err)
		}
	}
	return text, nil
}
