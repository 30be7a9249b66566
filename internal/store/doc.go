// Package store provides a SQLite-backed journal of finished invocations.
//
// The journal is an audit trail. The engine writes to it through an
// Observer (see Journal) and never reads it back; `appcore history` does.
//
// # Ordering
//
// Every row carries the engine's invocation sequence number. Queries order
// by seq, never by wall time, so listings are stable across clock skew.
// Restarted engines continue the sequence from MaxSeq.
//
// # Database Configuration
//
//   - WAL mode for file journals (history can read while invoke appends)
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - PRAGMA user_version tracks the schema version
package store
