// Package mixer layers the speech timeline, background music, and resolved
// sound effects into the final production track.
//
// The speech bus defines the output length. Music enters after a configured
// lead-in, loops to cover the remainder, and fades in and out. Effects are
// mixed at their resolved start times in deterministic order. The summed mix
// is normalized to the target loudness and peak-limited.
package mixer
