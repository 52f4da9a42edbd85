package alignment

import (
	"encoding/json"
	"errors"
	"fmt"

	"narratix/internal/services/whisper"
	"narratix/internal/textutil"
)

// matchLookahead bounds how far ahead in the aligner output the matcher
// scans for a token before assuming the streams diverged.
const matchLookahead = 3

// WordTiming is the resolved timing of one whitespace token. Position is the
// 1-based token index in the full text.
type WordTiming struct {
	Word     string  `json:"word"`
	Position int     `json:"position"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}

// Alignment holds one timing per token of the full text, in position order.
type Alignment struct {
	Words    []WordTiming `json:"words"`
	Duration float64      `json:"duration"`
}

// Window returns the time span covered by a 1-based word range. Positions
// outside [1, N] clamp to the nearest boundary word; the text can shift
// between analysis and alignment, so a stale anchor still lands on the
// closest word instead of being dropped. The span may be inverted when the
// range itself is, which callers treat as zero-width. The bool is false only
// when there is no alignment to consult.
func (a *Alignment) Window(startWord, endWord int) (float64, float64, bool) {
	if a == nil || len(a.Words) == 0 {
		return 0, 0, false
	}
	startWord = min(max(startWord, 1), len(a.Words))
	endWord = min(max(endWord, 1), len(a.Words))
	return a.Words[startWord-1].Start, a.Words[endWord-1].End, true
}

// Encode serializes the alignment for the store cache.
func (a *Alignment) Encode() (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode alignment: %w", err)
	}
	return string(data), nil
}

// Decode deserializes an alignment from the store cache.
func Decode(payload string) (*Alignment, error) {
	var alignment Alignment
	if err := json.Unmarshal([]byte(payload), &alignment); err != nil {
		return nil, fmt.Errorf("decode alignment: %w", err)
	}
	if len(alignment.Words) == 0 {
		return nil, errors.New("decode alignment: no words")
	}
	return &alignment, nil
}

// Align maps every whitespace token of the text onto the timeline using the
// aligner's word-level output. totalDuration is the length of the assembled
// speech track; it bounds trailing interpolation.
//
// The matcher walks both streams in order and tolerates small divergences
// (the aligner inserting, dropping, or re-spelling words). Tokens that end up
// without a direct timing are interpolated across the gap between their
// nearest timed neighbors, so the result always carries len(tokens) entries
// with non-decreasing timestamps.
func Align(text string, alignerWords []whisper.Word, totalDuration float64) (*Alignment, error) {
	tokens := textutil.Words(text)
	if len(tokens) == 0 {
		return nil, errors.New("align: text has no words")
	}
	if totalDuration <= 0 {
		return nil, fmt.Errorf("align: invalid timeline duration %v", totalDuration)
	}

	timings := make([]WordTiming, len(tokens))
	timed := make([]bool, len(tokens))
	for i, token := range tokens {
		timings[i] = WordTiming{Word: token, Position: i + 1}
	}

	j := 0
	for i, token := range tokens {
		clean := textutil.CleanWord(token)
		matched := -1
		for k := j; k < len(alignerWords) && k < j+matchLookahead; k++ {
			if textutil.CleanWord(alignerWords[k].Word) == clean {
				matched = k
				break
			}
		}
		var source *whisper.Word
		switch {
		case matched >= 0:
			source = &alignerWords[matched]
			j = matched + 1
		case j < len(alignerWords):
			// Streams diverged; consume one aligner word to stay in step and
			// borrow its timing as an approximation.
			source = &alignerWords[j]
			j++
		}
		if source != nil && source.Timed() {
			timings[i].Start = *source.Start
			timings[i].End = *source.End
			timed[i] = true
		}
	}

	interpolate(timings, timed, totalDuration)
	enforceMonotonic(timings, totalDuration)

	return &Alignment{Words: timings, Duration: totalDuration}, nil
}

// interpolate fills untimed runs by dividing the span between the
// surrounding timed neighbors evenly among the run's tokens.
func interpolate(timings []WordTiming, timed []bool, totalDuration float64) {
	n := len(timings)
	i := 0
	for i < n {
		if timed[i] {
			i++
			continue
		}
		runStart := i
		for i < n && !timed[i] {
			i++
		}
		runEnd := i // exclusive

		spanStart := 0.0
		if runStart > 0 {
			spanStart = timings[runStart-1].End
		}
		spanEnd := totalDuration
		if runEnd < n {
			spanEnd = timings[runEnd].Start
		}
		if spanEnd < spanStart {
			spanEnd = spanStart
		}

		step := (spanEnd - spanStart) / float64(runEnd-runStart)
		for k := runStart; k < runEnd; k++ {
			timings[k].Start = spanStart + float64(k-runStart)*step
			timings[k].End = timings[k].Start + step
		}
	}
}

// enforceMonotonic clamps each timing into [previous end, totalDuration].
func enforceMonotonic(timings []WordTiming, totalDuration float64) {
	prevEnd := 0.0
	for i := range timings {
		if timings[i].Start < prevEnd {
			timings[i].Start = prevEnd
		}
		if timings[i].End < timings[i].Start {
			timings[i].End = timings[i].Start
		}
		if timings[i].End > totalDuration {
			timings[i].End = totalDuration
		}
		if timings[i].Start > totalDuration {
			timings[i].Start = totalDuration
		}
		prevEnd = timings[i].End
	}
}
