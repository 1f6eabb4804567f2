package syncer

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one line of the client-side activity log for a job.
type Entry struct {
	Timestamp time.Time
	Message   string
	Level     string
}

// Log is the append-only, deduplicated activity log. Entries are keyed by
// (timestamp, message) so the same update arriving over both the stream and
// a later poll produces a single line.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	seen    map[string]struct{}
	sink    func(Entry)
}

// NewLog returns an empty log. sink, when non-nil, is invoked once for every
// entry that survives deduplication.
func NewLog(sink func(Entry)) *Log {
	return &Log{
		seen: make(map[string]struct{}),
		sink: sink,
	}
}

// Append records an entry unless an identical (timestamp, message) pair has
// been recorded before. It reports whether the entry was kept.
func (l *Log) Append(entry Entry) bool {
	if entry.Message == "" {
		return false
	}
	if entry.Level == "" {
		entry.Level = "info"
	}

	key := fmt.Sprintf("%d|%s", entry.Timestamp.UnixNano(), entry.Message)

	l.mu.Lock()
	if _, dup := l.seen[key]; dup {
		l.mu.Unlock()
		return false
	}
	l.seen[key] = struct{}{}
	l.entries = append(l.entries, entry)
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink(entry)
	}
	return true
}

// Entries returns a copy of the recorded entries in append order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of recorded entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
