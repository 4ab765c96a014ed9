// Package engine implements the progression engine: in-memory counters,
// local and remote persistence, achievement evaluation and unlock delivery.
//
// ARCHITECTURE:
//
// Optimistic Mutations:
// AddPoints, CompleteChallenge and IncrementCounter update memory and the
// local snapshot before returning. Remote writes are packaged as Jobs and
// handed to a Persister. The caller never waits for them and never sees
// their errors.
//
// Persistence:
// The default QueuePersister runs jobs one at a time in its Run loop.
// Failures are logged and dropped; there is no retry, no backoff and no
// timeout. A stricter Persister can be substituted with WithPersister.
//
// Award Ledger:
// Evaluate filters the catalog against the locally cached granted set and
// then asks the remote store to insert each award. The store's uniqueness
// constraint is the only guard against double awards: a conflicting insert
// reports inserted=false and is recorded as granted without a notification.
//
// Sessions:
// SignIn reconciles points as MergePoints(local, remote), loads the granted
// set and the lab ledger, and subscribes to lab ledger changes. Every job
// carries the session generation it was created under; jobs from an older
// generation are dropped so nothing is written after SignOut.
//
// Lock discipline:
// Engine.mu guards state. It is never held while a job is submitted or a
// notification is delivered, so jobs may call back into the engine.
package engine
