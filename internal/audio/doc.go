// Package audio implements the PCM primitives the timeline builder and mixer
// are built on: WAV decode/encode, mono float32 buffers, gain and fade
// envelopes, loudness measurement, and linear resampling.
//
// The working format throughout the pipeline is mono float32 at 48 kHz.
// Decoded inputs at other rates or channel counts are converted on ingest.
package audio
