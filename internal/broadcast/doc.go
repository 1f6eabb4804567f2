// Package broadcast fans progress events out to live per-job subscribers.
//
// Delivery is at-least-once within a subscription window. Events published
// before a subscriber connects are never replayed; late subscribers catch up
// through the status endpoint instead. A subscriber that cannot keep up is
// detached rather than allowed to block the worker, and recovers through the
// same polling fallback.
package broadcast
