// Package ringlog keeps the last N timestamped text lines of a relay session.
package ringlog

import (
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is the number of lines kept by a relay session log.
const DefaultCapacity = 25

// Ellipsis is the text of the synthetic entry that marks evicted lines.
const Ellipsis = "..."

// TimeFormat renders entry times as HH:MM:SS.
const TimeFormat = "15:04:05"

// Entry is one logged line.
type Entry struct {
	Text string
	Time time.Time
}

// String renders the entry as "HH:MM:SS text".
func (e Entry) String() string {
	return e.Time.Format(TimeFormat) + " " + e.Text
}

// Log is a fixed-capacity circular buffer of entries.
//
// The buffer tracks a monotonically increasing write counter; the slot
// for the next write is counter modulo capacity. Once the counter exceeds
// the capacity the oldest entries have been overwritten and Get reports
// the truncation with a leading Ellipsis entry.
//
// All methods are safe for concurrent use.
type Log struct {
	mutex   sync.Mutex
	entries []Entry
	// writePosition is the slot of the next write (0 to capacity-1).
	writePosition int
	// totalWritten counts every Add since construction or the last Clear.
	totalWritten uint64
	now          func() time.Time
}

// New creates a log holding at most capacity entries.
// A capacity below one falls back to DefaultCapacity.
func New(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
}

// Add appends text, overwriting the oldest entry when the log is full.
func (l *Log) Add(text string) {
	entry := Entry{Text: text, Time: l.now()}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.entries[l.writePosition] = entry
	l.writePosition = (l.writePosition + 1) % len(l.entries)
	l.totalWritten++
}

// Write implements io.Writer. Each non-empty line of p becomes one entry.
func (l *Log) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		l.Add(line)
	}
	return len(p), nil
}

// Clear removes all entries.
func (l *Log) Clear() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for i := range l.entries {
		l.entries[i] = Entry{}
	}
	l.writePosition = 0
	l.totalWritten = 0
}

// Get returns the retained entries newest first. When entries have been
// evicted an Ellipsis entry is placed in front. Returns nil when empty.
func (l *Log) Get() []Entry {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.totalWritten == 0 {
		return nil
	}

	capacity := len(l.entries)
	stored := capacity
	wrapped := l.totalWritten > uint64(capacity)
	if !wrapped {
		stored = int(l.totalWritten)
	}

	result := make([]Entry, 0, stored+1)
	if wrapped {
		result = append(result, Entry{Text: Ellipsis, Time: l.now()})
	}

	// walk backwards from the slot written last
	position := l.writePosition
	for i := 0; i < stored; i++ {
		position--
		if position < 0 {
			position = capacity - 1
		}
		result = append(result, l.entries[position])
	}

	return result
}

// String renders Get as one "HH:MM:SS text" line per entry.
func (l *Log) String() string {
	entries := l.Get()
	if len(entries) == 0 {
		return ""
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// Lines returns Get rendered line by line.
func (l *Log) Lines() []string {
	entries := l.Get()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.String())
	}
	return lines
}
