// Package store provides SQLite-backed storage for validation history.
//
// Two tables mirror the validation dashboard:
//   - examples: one row per validation case, keyed by unique name
//   - validation_results: one row per metric per run
//
// # Ordering
//
// Every result row carries seq, a logical clock assigned at write time.
// Queries order by seq ASC, never by run_date, so history reads back in
// the order it was written regardless of wall clock skew.
//
// # Runs
//
// A run groups the records written by one WriteValidation call under a
// random UUID run id.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
