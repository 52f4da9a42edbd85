// Package placement resolves word-anchored sound effects into timeline
// positions.
//
// Resolution is a pure function of the effect anchors and the alignment:
// given the same inputs it always produces the same placements in the same
// order, which keeps repeated mixes byte-identical.
package placement
