// Package worker runs generation jobs in the background, decoupled from any
// client connection. The Manager claims pending records, drives the
// registered Synthesizer for the job's type, and reports progress through the
// progress.Reporter so both delivery channels stay in sync.
//
// Synthesizer is the collaborator boundary: the scripted report and podcast
// synthesizers here stand in for the real generation work and exercise every
// event kind the protocol defines.
package worker
