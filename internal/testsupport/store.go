package testsupport

import (
	"context"
	"fmt"
	"testing"

	"narratix/internal/config"
	"narratix/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewText creates a narration text for tests using the provided store.
func NewText(t testing.TB, st *store.Store, title, content string) *store.Text {
	t.Helper()

	text, err := st.CreateText(context.Background(), title, content, "en", "")
	if err != nil {
		t.Fatalf("store.CreateText: %v", err)
	}
	return text
}

// SeedSegments splits content into count pieces and registers them as ordered
// segments of the text. It returns the created segments in timeline order.
func SeedSegments(t testing.TB, st *store.Store, textID int64, contents ...string) []*store.Segment {
	t.Helper()

	segments := make([]*store.Segment, 0, len(contents))
	for i, content := range contents {
		segment, err := st.AddSegment(context.Background(), textID, i, content, fmt.Sprintf("voice-%d", i%2))
		if err != nil {
			t.Fatalf("store.AddSegment: %v", err)
		}
		segments = append(segments, segment)
	}
	return segments
}
