// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event types cover the export milestones so the
// orchestrator can emit consistent, user-friendly messages without
// duplicating HTTP glue.
package notifications
