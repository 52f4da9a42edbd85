// Package alignment maps the words of a narration text onto the assembled
// speech timeline.
//
// The engine consumes the aligner's word list and produces one timing per
// whitespace token of the full text. Tokens the aligner missed or could not
// time are interpolated from their timed neighbors, never dropped: effect
// anchors reference token positions, so every position must resolve to a
// moment in time.
//
// Timings serialize to JSON for the store's alignment cache.
package alignment
