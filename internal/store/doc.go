// Package store provides SQLite-backed durable storage for user progression.
//
// The store holds three tables:
//   - user_progress: one points row per user, last write wins
//   - achievement_awards: ledger keyed UNIQUE(user_id, achievement_id)
//   - lab_completions: ledger keyed UNIQUE(user_id, lab_id, lab_type)
//
// # Insert If Absent
//
// Ledger inserts use ON CONFLICT DO NOTHING and report inserted=false when the
// row already exists. The UNIQUE constraint is the only guard against double
// awards; callers never check for a row before inserting it.
//
// # Change Notification
//
// SQLite has no push channel, so lab completion inserts are published to
// in-process subscribers after the write commits.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
