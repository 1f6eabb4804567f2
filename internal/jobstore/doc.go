// Package jobstore persists job records in SQLite and guards their lifecycle.
//
// The Store enforces the two structural invariants of the job model: at most
// one non-terminal record per (target, type) pair, via a partial unique
// index, and monotonic status transitions, via a transactional update guard.
// Regeneration supersedes a terminal record with a fresh row rather than
// mutating it; GetCurrent always returns the newest row for the pair.
//
// The database is treated as operational state for in-flight and recent jobs
// rather than a long-term archive. Schema changes bump the version in
// schema.go; users clear the database to adopt the new schema.
package jobstore
