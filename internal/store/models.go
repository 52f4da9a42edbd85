package store

import (
	"strings"
	"time"
)

// State represents the export lifecycle of a narration text.
type State string

const (
	StateAwaitingSpeech State = "awaiting_speech"
	StateAligning       State = "aligning"
	StateResolving      State = "resolving"
	StateMixing         State = "mixing"
	StateComplete       State = "complete"
	StateFailed         State = "failed"
)

var allStates = []State{
	StateAwaitingSpeech,
	StateAligning,
	StateResolving,
	StateMixing,
	StateComplete,
	StateFailed,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

var processingStates = map[State]struct{}{
	StateAligning:  {},
	StateResolving: {},
	StateMixing:    {},
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// IsProcessingState reports whether a state reflects an in-flight export stage.
func IsProcessingState(state State) bool {
	_, ok := processingStates[state]
	return ok
}

// Text is a narration text with its export status and cached alignment.
//
// AlignmentJSON holds the word timeline produced by the aligner; AlignedAt
// records when it was written. Both are cleared together whenever segment
// audio changes so downstream stages cannot consume stale timestamps.
type Text struct {
	ID               int64
	ExternalID       string
	Title            string
	Content          string
	Language         string
	State            State
	ErrorMessage     string
	SoundscapePrompt string
	AlignmentJSON    string
	AlignedAt        *time.Time
	SpeechDigest     string
	MixDigest        string
	OutputPath       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasAlignment reports whether the text carries a usable alignment cache.
func (t *Text) HasAlignment() bool {
	return t != nil && t.AlignmentJSON != "" && t.AlignedAt != nil
}

// IsProcessing returns true when the text is mid-stage.
func (t Text) IsProcessing() bool {
	_, ok := processingStates[t.State]
	return ok
}

// SetFailed marks the text as failed with the given error message.
func (t *Text) SetFailed(message string) {
	t.State = StateFailed
	t.ErrorMessage = message
}

// Segment is one ordered speech unit of a text. Position is the zero-based
// timeline order; segments concatenate in ascending Position.
type Segment struct {
	ID          int64
	TextID      int64
	Position    int
	Content     string
	Voice       string
	AudioPath   string
	AudioDigest string
	Duration    float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasAudio reports whether synthesized audio exists for the segment.
func (s Segment) HasAudio() bool {
	return s.AudioPath != ""
}

// Effect is a sound effect anchored to a word range of the full text.
// StartWord and EndWord are 1-based whitespace token positions.
// ResolvedStart and ResolvedEnd are the absolute timeline seconds written by
// the last placement resolution; nil until an export has resolved them.
type Effect struct {
	ID            int64
	TextID        int64
	Name          string
	Prompt        string
	StartWord     int
	EndWord       int
	Rank          int
	AudioPath     string
	AudioDigest   string
	Duration      float64
	ResolvedStart *float64
	ResolvedEnd   *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasAudio reports whether generated audio exists for the effect.
func (e Effect) HasAudio() bool {
	return e.AudioPath != ""
}

// IsResolved reports whether placement resolution has mapped the effect onto
// the timeline.
func (e Effect) IsResolved() bool {
	return e.ResolvedStart != nil && e.ResolvedEnd != nil
}

// MusicBed is the background music generated for a text. At most one exists
// per text; regeneration replaces it in place.
type MusicBed struct {
	ID          int64
	TextID      int64
	Prompt      string
	AudioPath   string
	AudioDigest string
	Duration    float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HealthSummary describes aggregated text counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Complete   int
}
