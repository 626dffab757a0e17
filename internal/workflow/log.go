package workflow

import "time"

// MaxLogEntries bounds the per-record activity log. After every append the
// oldest entries are evicted first until the bound holds.
const MaxLogEntries = 10

// LogEntry is one structured activity-log line. The timestamp comes from the
// engine's injected clock; rendering to a display string is deferred to
// String so the stored form stays locale-free.
type LogEntry struct {
	Actor string    `json:"actor,omitempty"`
	Verb  string    `json:"verb"`
	At    time.Time `json:"at"`
}

// String renders the entry the way the activity trail displays it, e.g.
// "alice updated for approval". Entries recorded without an actor render as
// the verb alone ("deletion denied").
func (e LogEntry) String() string {
	if e.Actor == "" {
		return e.Verb
	}
	return e.Actor + " " + e.Verb
}

// appendLog appends entry and truncates from the front if the log grew past
// MaxLogEntries.
func appendLog(log []LogEntry, entry LogEntry) []LogEntry {
	out := make([]LogEntry, len(log), len(log)+1)
	copy(out, log)
	out = append(out, entry)
	if n := len(out); n > MaxLogEntries {
		out = out[n-MaxLogEntries:]
	}
	return out
}
