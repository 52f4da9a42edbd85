package placement

import (
	"sort"

	"narratix/internal/alignment"
)

// Anchor is an effect's word range, 1-based inclusive.
type Anchor struct {
	EffectID  int64
	StartWord int
	EndWord   int
}

// Placement is a resolved effect window in timeline seconds. Clamped
// records that one of the anchor's word positions fell outside the
// alignment and was pulled to the nearest boundary word.
type Placement struct {
	EffectID int64
	Start    float64
	End      float64
	Clamped  bool
}

// Duration returns the anchor window length in seconds.
func (p Placement) Duration() float64 {
	return p.End - p.Start
}

// Skip describes an anchor that could not be placed.
type Skip struct {
	EffectID int64
	Reason   string
}

// Resolve maps each anchor onto the timeline using the word alignment.
// Word positions outside the alignment clamp to the nearest boundary word
// and flag the placement; windows are then clamped into [0, duration].
// Anchors that collapse to zero width after clamping are reported as skips
// rather than errors, because a mix without one effect is still a mix.
//
// Placements are returned ordered by start time, then effect id, so callers
// layering audio do it deterministically.
func Resolve(anchors []Anchor, a *alignment.Alignment, duration float64) ([]Placement, []Skip) {
	var (
		placements []Placement
		skips      []Skip
	)
	if duration <= 0 {
		duration = 0
	}

	for _, anchor := range anchors {
		start, end, ok := a.Window(anchor.StartWord, anchor.EndWord)
		if !ok {
			skips = append(skips, Skip{EffectID: anchor.EffectID, Reason: "no alignment available"})
			continue
		}
		clamped := anchor.StartWord < 1 || anchor.StartWord > len(a.Words) ||
			anchor.EndWord < 1 || anchor.EndWord > len(a.Words)
		if start < 0 {
			start = 0
		}
		if end > duration {
			end = duration
		}
		if end <= start {
			skips = append(skips, Skip{EffectID: anchor.EffectID, Reason: "window collapsed after clamping"})
			continue
		}
		placements = append(placements, Placement{EffectID: anchor.EffectID, Start: start, End: end, Clamped: clamped})
	}

	sort.Slice(placements, func(i, j int) bool {
		if placements[i].Start != placements[j].Start {
			return placements[i].Start < placements[j].Start
		}
		return placements[i].EffectID < placements[j].EffectID
	})
	return placements, skips
}
