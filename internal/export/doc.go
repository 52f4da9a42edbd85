// Package export drives a text through the production pipeline: speech
// timeline assembly, forced alignment, effect placement, and the final mix.
//
// The orchestrator is a one-shot state machine over the store's text states
// (awaiting_speech, aligning, resolving, mixing, complete, failed). Each
// stage runs through a shared execution helper that persists the processing
// transition, runs the stage handler, and records failures with a
// user-facing message. Content fingerprints over segment audio and mix
// configuration make repeated exports idempotent: unchanged inputs return
// the cached artifact, and changed inputs restart from the earliest stage
// whose inputs went stale.
//
// The package also owns text ingestion and the generation passes that call
// the external synthesis services, so the CLI stays a thin shell.
package export
