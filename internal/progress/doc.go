// Package progress is the single write path for job state. The Reporter
// applies each worker report to the store (so late pollers always see the
// latest digest) and publishes the matching event to the broadcaster (so live
// subscribers see it immediately). Keeping both writes behind one API is what
// guarantees the stream and the status endpoint never tell different stories
// for longer than one poll interval.
package progress
