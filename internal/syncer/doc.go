// Package syncer tracks a server-side generation job from the client,
// merging the live event stream and the polling fallback into one ordered,
// deduplicated view.
//
// A Controller is an explicit state machine: Idle, Starting, Streaming,
// Polling, Stale, and the three terminal states. Streaming is attempted at
// most once per job; any stream failure downgrades to fixed-interval polling
// for the remainder of the job. Resumption after a reload never re-streams:
// one status call decides, and a non-terminal job is followed by polling
// alone. Reconciliation is last-writer-wins by timestamp for the current
// view, and append-only with (timestamp, message) dedup for the log, so a
// stream event and a later overlapping poll never produce duplicate lines.
//
// Controllers are built per (target, type) pair through the Registry and own
// their run context, so tearing one down deterministically stops any
// in-flight stream read or poll timer.
package syncer
