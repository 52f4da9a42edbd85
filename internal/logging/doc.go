// Package logging provides the structured logging surface shared by every
// pipeline component.
//
// It wraps log/slog with a console handler for interactive use, a JSON
// handler for machine consumption, and helpers that stamp text identifiers,
// stage names, and correlation IDs from the context onto every record.
package logging
