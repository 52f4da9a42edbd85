// Package analysis provides an LLM client that reads a narration text and
// proposes its sound design: a soundscape prompt for background music and a
// ranked list of sound effects anchored to word positions.
//
// # Anchoring
//
// Effect positions are 1-based indices into the whitespace token list of the
// full text (see the textutil package). The model is instructed to count
// words the same way, so positions survive the round trip untouched.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.AnalyzeText: send narration content, receive Result with soundscape and effects.
// Client.HealthCheck: verify API key and model availability.
//
// # Fallback
//
// If the LLM is unavailable the caller proceeds without sound design; a mix
// with speech only is always possible.
package analysis
