// Package tts wraps the speech synthesis API that turns segment text into
// narration audio.
//
// The client speaks an OpenAI-compatible speech endpoint and always requests
// WAV output so downstream packages can decode it without external tools.
package tts
