// Package timeline assembles a text's ordered speech segments into one
// continuous narration track.
//
// The builder concatenates segment audio in position order, optionally with
// silence padding between segments, and records the offset of each segment
// in the result. Offsets are what lets the alignment cache and effect
// placement speak in whole-timeline seconds.
package timeline
