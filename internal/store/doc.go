// Package store persists narration texts and their production artifacts in
// SQLite and exposes helpers for driving the export lifecycle.
//
// The Store manages database connections, schema initialization, state
// transitions, and the alignment cache that ties word timestamps to a
// specific speech timeline. Segment audio updates and cache invalidation
// happen in a single transaction so a reader can never observe timestamps
// that belong to a stale timeline.
//
// The database is the single source of truth for pipeline state; when you
// add new states or artifact fields, update schema.sql and bump schemaVersion.
package store
