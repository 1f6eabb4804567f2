package job

import "errors"

// ErrNotFound indicates no job record exists for the requested target and type.
var ErrNotFound = errors.New("job not found")

// ErrConflict indicates a start was forced while a non-terminal job exists.
var ErrConflict = errors.New("job already in progress")

// ErrInvalidTransition indicates an update would violate status monotonicity.
// This is an internal guard; handlers should never surface it to users as a
// job failure.
var ErrInvalidTransition = errors.New("invalid status transition")
