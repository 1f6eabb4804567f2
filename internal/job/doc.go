// Package job defines the canonical job lifecycle model shared by the store,
// the broadcaster, the HTTP surface, and the client synchronization layer.
//
// A Record describes one generation task (a financial report or podcast
// synthesis) for a target. Status transitions are monotonic: pending moves to
// running, running moves to exactly one terminal state, and a terminal record
// never changes again. Progress never decreases while a job is running.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add new statuses or event kinds, update CanTransition and the
// parse helpers together.
package job
