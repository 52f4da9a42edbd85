package placement_test

import (
	"reflect"
	"testing"

	"narratix/internal/alignment"
	"narratix/internal/placement"
	"narratix/internal/services/whisper"
)

func buildAlignment(t *testing.T, text string, spans [][2]float64, duration float64) *alignment.Alignment {
	t.Helper()
	words := make([]whisper.Word, len(spans))
	for i, span := range spans {
		start, end := span[0], span[1]
		words[i] = whisper.Word{Word: "w", Start: &start, End: &end}
	}
	// Word text does not matter for windows; positions do.
	a, err := alignment.Align(text, words, duration)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	return a
}

func TestResolveOrdersDeterministically(t *testing.T) {
	a := buildAlignment(t, "a b c d e",
		[][2]float64{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}}, 5)

	anchors := []placement.Anchor{
		{EffectID: 9, StartWord: 4, EndWord: 5},
		{EffectID: 3, StartWord: 1, EndWord: 2},
		{EffectID: 1, StartWord: 1, EndWord: 2},
	}
	placements, skips := placement.Resolve(anchors, a, 5)
	if len(skips) != 0 {
		t.Fatalf("unexpected skips: %v", skips)
	}
	var order []int64
	for _, p := range placements {
		order = append(order, p.EffectID)
	}
	if !reflect.DeepEqual(order, []int64{1, 3, 9}) {
		t.Fatalf("unexpected order: %v", order)
	}
	if placements[2].Start != 3 || placements[2].End != 5 {
		t.Fatalf("unexpected window: %#v", placements[2])
	}
}

func TestResolveClampsToTimeline(t *testing.T) {
	a := buildAlignment(t, "a b c",
		[][2]float64{{0, 1}, {1, 2}, {2, 3}}, 3)

	// Timeline shorter than the alignment claims (e.g. trailing silence trimmed).
	placements, skips := placement.Resolve(
		[]placement.Anchor{{EffectID: 1, StartWord: 2, EndWord: 3}}, a, 1.5)
	if len(skips) != 0 {
		t.Fatalf("unexpected skips: %v", skips)
	}
	if placements[0].Start != 1 || placements[0].End != 1.5 {
		t.Fatalf("expected clamped window, got %#v", placements[0])
	}
}

func TestResolveSkipsCollapsedAnchors(t *testing.T) {
	a := buildAlignment(t, "a b c",
		[][2]float64{{0, 1}, {1, 2}, {2, 3}}, 3)

	anchors := []placement.Anchor{
		{EffectID: 1, StartWord: 3, EndWord: 3}, // starts at 2.0, clamped end 2.0 when duration 2.0
		{EffectID: 2, StartWord: 3, EndWord: 1}, // inverted range, zero width
		{EffectID: 3, StartWord: 1, EndWord: 1},
	}
	placements, skips := placement.Resolve(anchors, a, 2.0)
	if len(placements) != 1 || placements[0].EffectID != 3 {
		t.Fatalf("unexpected placements: %#v", placements)
	}
	if len(skips) != 2 {
		t.Fatalf("expected 2 skips, got %v", skips)
	}
}

func TestResolveClampsOutOfRangeAnchors(t *testing.T) {
	a := buildAlignment(t, "a b c",
		[][2]float64{{0, 1}, {1, 2}, {2, 3}}, 3)

	anchors := []placement.Anchor{
		{EffectID: 1, StartWord: 5, EndWord: 6}, // both past the last word
		{EffectID: 2, StartWord: 0, EndWord: 3}, // start before the first word
	}
	placements, skips := placement.Resolve(anchors, a, 3)
	if len(skips) != 0 {
		t.Fatalf("unexpected skips: %v", skips)
	}
	if len(placements) != 2 {
		t.Fatalf("expected 2 placements, got %#v", placements)
	}
	if placements[0].EffectID != 2 || placements[0].Start != 0 || placements[0].End != 3 {
		t.Fatalf("expected low anchor clamped to the first word, got %#v", placements[0])
	}
	if placements[1].EffectID != 1 || placements[1].Start != 2 || placements[1].End != 3 {
		t.Fatalf("expected high anchor clamped to the last word, got %#v", placements[1])
	}
	for _, p := range placements {
		if !p.Clamped {
			t.Fatalf("expected placement flagged as clamped: %#v", p)
		}
	}
}

func TestResolveClampsEndPastLastWord(t *testing.T) {
	a := buildAlignment(t, "a b c",
		[][2]float64{{0, 1}, {1, 2}, {2, 3}}, 3)

	placements, skips := placement.Resolve(
		[]placement.Anchor{{EffectID: 1, StartWord: 2, EndWord: 8}}, a, 3)
	if len(skips) != 0 {
		t.Fatalf("unexpected skips: %v", skips)
	}
	if len(placements) != 1 || placements[0].Start != 1 || placements[0].End != 3 {
		t.Fatalf("expected window clamped to the last word, got %#v", placements)
	}
}

func TestResolveIsPure(t *testing.T) {
	a := buildAlignment(t, "a b c d",
		[][2]float64{{0, 1}, {1, 2}, {2, 3}, {3, 4}}, 4)
	anchors := []placement.Anchor{
		{EffectID: 2, StartWord: 2, EndWord: 3},
		{EffectID: 1, StartWord: 1, EndWord: 4},
	}
	first, _ := placement.Resolve(anchors, a, 4)
	second, _ := placement.Resolve(anchors, a, 4)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical results for identical inputs")
	}
}
