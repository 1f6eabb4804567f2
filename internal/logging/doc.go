// Package logging wraps log/slog with the console and JSON handlers used
// across the daemon and CLI, plus small attribute helpers so call sites stay
// terse. Components derive child loggers via NewComponentLogger; tests use
// NewNop.
package logging
