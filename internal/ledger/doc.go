// Package ledger defines the records shared by the progression engine and
// its remote stores.
//
// Two append-only ledgers back the at-most-once guarantees:
//   - Award: one row per (user, achievement)
//   - LabCompletion: one row per (user, lab, lab type)
//
// Both are written with "insert if absent" semantics. A store reports a
// uniqueness conflict as inserted=false with a nil error, never as a failure.
package ledger
