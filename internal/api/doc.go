// Package api defines the wire contract between the daemon's HTTP surface
// and its clients. The JobRecord shape here is the contract boundary with
// the store collaborator; both sides convert at the edge and never leak
// internal types onto the wire.
package api
