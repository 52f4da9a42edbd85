// Package whisper wraps the whisperx command line tool to produce word-level
// timestamps for synthesized narration audio.
//
// The service runs the aligner against a WAV file and flattens the segment
// output into a single word list. Callers inject a command runner in tests so
// no Python environment is needed.
package whisper
