// Package daemon coordinates the background services and enforces
// single-instance execution. It owns the job store, the broadcaster, the
// worker manager, and the HTTP API server, and shuts them down in an order
// that leaves no job record stuck in running.
package daemon
